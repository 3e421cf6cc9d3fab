package extract

import (
	"unicode/utf16"
)

// maxRangeSize bounds a single bfrange so a malformed CMap cannot blow up memory.
const maxRangeSize = 1 << 16

type codeKey struct {
	n    int
	code uint32
}

// toUnicode maps character codes of one font to Unicode text, built from the
// font's ToUnicode CMap.
type toUnicode struct {
	lengths []int // code byte lengths present, longest first
	m       map[codeKey]string
}

func parseToUnicode(data []byte) *toUnicode {
	cm := &toUnicode{m: make(map[codeKey]string)}
	seen := make(map[int]bool)
	lx := newLexer(data)

	var operands []token
	mode := ""
	for tok := lx.next(); tok.kind != tokEOF; tok = lx.next() {
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}
		op := string(tok.val)
		switch op {
		case "beginbfchar", "beginbfrange":
			mode = op
		case "endbfchar":
			for i := 0; i+1 < len(operands); i += 2 {
				src, dst := operands[i], operands[i+1]
				if src.kind != tokString || dst.kind != tokString || len(src.val) == 0 || len(src.val) > 4 {
					continue
				}
				cm.m[codeKey{len(src.val), beUint(src.val)}] = utf16Text(dst.val)
				seen[len(src.val)] = true
			}
			mode = ""
		case "endbfrange":
			for i := 0; i+2 < len(operands); i += 3 {
				cm.addRange(operands[i], operands[i+1], operands[i+2], seen)
			}
			mode = ""
		}
		if mode == "" || op == mode {
			operands = operands[:0]
		}
	}

	if len(cm.m) == 0 {
		return nil
	}
	for n := 4; n >= 1; n-- {
		if seen[n] {
			cm.lengths = append(cm.lengths, n)
		}
	}
	return cm
}

func (cm *toUnicode) addRange(lo, hi, dst token, seen map[int]bool) {
	if lo.kind != tokString || hi.kind != tokString || len(lo.val) == 0 || len(lo.val) > 4 || len(lo.val) != len(hi.val) {
		return
	}
	n := len(lo.val)
	start, end := beUint(lo.val), beUint(hi.val)
	if end < start || end-start >= maxRangeSize {
		return
	}
	seen[n] = true

	switch dst.kind {
	case tokString:
		units := utf16Units(dst.val)
		if len(units) == 0 {
			return
		}
		for off := uint32(0); off <= end-start; off++ {
			u := append([]uint16(nil), units...)
			u[len(u)-1] += uint16(off)
			cm.m[codeKey{n, start + off}] = string(utf16.Decode(u))
		}
	case tokArray:
		for off, el := range dst.elems {
			if uint32(off) > end-start {
				break
			}
			if el.kind == tokString {
				cm.m[codeKey{n, start + uint32(off)}] = utf16Text(el.val)
			}
		}
	}
}

// decode maps string bytes to text, matching the longest known code first.
// Unmapped bytes are skipped.
func (cm *toUnicode) decode(b []byte) string {
	var out []rune
	for i := 0; i < len(b); {
		matched := false
		for _, n := range cm.lengths {
			if i+n > len(b) {
				continue
			}
			if s, ok := cm.m[codeKey{n, beUint(b[i : i+n])}]; ok {
				out = append(out, []rune(s)...)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			i += cm.lengths[len(cm.lengths)-1]
		}
	}
	return string(out)
}

func beUint(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func utf16Units(b []byte) []uint16 {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	if len(b)%2 == 1 {
		units = append(units, uint16(b[len(b)-1]))
	}
	return units
}

func utf16Text(b []byte) string {
	return string(utf16.Decode(utf16Units(b)))
}
