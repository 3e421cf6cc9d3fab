package extract

import (
	"strings"
	"unicode"
	"unicode/utf16"
)

// tjSpaceThreshold is the TJ displacement (thousandths of text space) beyond
// which a gap between two glyph runs is rendered as a space.
const tjSpaceThreshold = -180

// textWriter accumulates decoded text and keeps separators from repeating.
type textWriter struct {
	b    strings.Builder
	last rune
}

func (w *textWriter) text(s string) {
	for _, r := range s {
		if r == '\r' {
			r = '\n'
		}
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			continue
		}
		w.b.WriteRune(r)
		w.last = r
	}
}

func (w *textWriter) sep(r rune) {
	if w.b.Len() == 0 || w.last == '\n' || (r == ' ' && w.last == ' ') {
		return
	}
	w.b.WriteRune(r)
	w.last = r
}

// pageFont decodes the strings shown with one font resource: through its
// ToUnicode map when present, otherwise through its simple encoding.
type pageFont struct {
	cmap *toUnicode
	enc  *encoding
}

func (f *pageFont) decode(b []byte) string {
	switch {
	case f == nil:
		return decodeSimple(b)
	case f.cmap != nil:
		return f.cmap.decode(b)
	case f.enc != nil:
		return f.enc.decode(b)
	}
	return decodeSimple(b)
}

// contentText runs the text-showing operators of one page content stream and
// returns the text they paint, in stream order.
func contentText(stream []byte, fonts map[string]*pageFont) string {
	var (
		w        textWriter
		operands []token
		font     *pageFont
	)
	show := func(t token) {
		if t.kind == tokString {
			w.text(font.decode(t.val))
		}
	}
	lastOperand := func() token {
		if len(operands) == 0 {
			return token{}
		}
		return operands[len(operands)-1]
	}

	lx := newLexer(stream)
	for tok := lx.next(); tok.kind != tokEOF; tok = lx.next() {
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}
		switch string(tok.val) {
		case "Tf":
			if len(operands) >= 2 && operands[len(operands)-2].kind == tokName {
				font = fonts[string(operands[len(operands)-2].val)]
			}
		case "Tj":
			show(lastOperand())
		case "'", "\"":
			w.sep('\n')
			show(lastOperand())
		case "TJ":
			arr := lastOperand()
			for _, el := range arr.elems {
				switch el.kind {
				case tokString:
					show(el)
				case tokNumber:
					if el.num < tjSpaceThreshold {
						w.sep(' ')
					}
				}
			}
		case "T*", "Tm":
			w.sep('\n')
		case "Td", "TD":
			if len(operands) >= 2 && operands[len(operands)-1].num != 0 {
				w.sep('\n')
			} else {
				w.sep(' ')
			}
		case "ET":
			w.sep(' ')
		}
		operands = operands[:0]
	}
	return tidy(w.b.String())
}

// decodeSimple decodes string bytes shown with an unknown font: UTF-16BE when
// marked with a byte order mark, otherwise WinAnsiEncoding.
func decodeSimple(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		return string(utf16.Decode(utf16Units(b[2:])))
	}
	return winAnsiEncoding.decode(b)
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
