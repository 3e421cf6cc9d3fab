package extract

import (
	"bytes"
	"strconv"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokName
	tokOperator
	tokArray
	tokDict
)

type token struct {
	kind  tokenKind
	val   []byte // string bytes, name or operator keyword
	num   float64
	elems []token // array elements
}

// lexer tokenizes PDF content streams and CMap programs.
type lexer struct {
	data []byte
	pos  int
}

func newLexer(data []byte) *lexer {
	return &lexer{data: data}
}

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isWhitespace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

// next returns the next token. Arrays are returned whole; dictionaries are
// skipped and returned as an empty tokDict.
func (l *lexer) next() token {
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return token{kind: tokEOF}
		}
		c := l.data[l.pos]
		switch {
		case c == '(':
			return token{kind: tokString, val: l.literalString()}
		case c == '<':
			if l.peek(1) == '<' {
				l.pos += 2
				l.skipDict()
				return token{kind: tokDict}
			}
			return token{kind: tokString, val: l.hexString()}
		case c == '[':
			l.pos++
			return l.array()
		case c == '/':
			l.pos++
			return token{kind: tokName, val: l.regular()}
		case c == ']' || c == '>' || c == ')' || c == '{' || c == '}':
			// Stray closing delimiters and procedure braces carry no text.
			l.pos++
			continue
		}

		word := l.regular()
		if len(word) == 0 {
			l.pos++
			continue
		}
		if isNumberStart(word[0]) {
			if f, err := strconv.ParseFloat(string(word), 64); err == nil {
				return token{kind: tokNumber, num: f}
			}
		}
		if string(word) == "ID" {
			l.skipInlineImage()
			continue
		}
		return token{kind: tokOperator, val: word}
	}
}

func (l *lexer) peek(off int) byte {
	if l.pos+off < len(l.data) {
		return l.data[l.pos+off]
	}
	return 0
}

func isNumberStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}

func (l *lexer) regular() []byte {
	start := l.pos
	for l.pos < len(l.data) && !isWhitespace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	return l.data[start:l.pos]
}

func (l *lexer) literalString() []byte {
	l.pos++ // (
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		case '\\':
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data); i++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return out
}

func (l *lexer) hexString() []byte {
	l.pos++ // <
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		c := l.data[l.pos]
		if v, ok := hexVal(c); ok {
			digits = append(digits, v)
		}
		l.pos++
	}
	l.pos++ // >
	if len(digits)%2 == 1 {
		digits = append(digits, 0)
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = digits[2*i]<<4 | digits[2*i+1]
	}
	return out
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (l *lexer) array() token {
	arr := token{kind: tokArray}
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return arr
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return arr
		}
		t := l.next()
		if t.kind == tokEOF {
			return arr
		}
		arr.elems = append(arr.elems, t)
	}
}

func (l *lexer) skipDict() {
	depth := 1
	for l.pos < len(l.data) && depth > 0 {
		switch {
		case l.data[l.pos] == '(':
			l.literalString()
			continue
		case bytes.HasPrefix(l.data[l.pos:], []byte("<<")):
			depth++
			l.pos += 2
			continue
		case bytes.HasPrefix(l.data[l.pos:], []byte(">>")):
			depth--
			l.pos += 2
			continue
		}
		l.pos++
	}
}

// skipInlineImage moves past binary inline image data up to the EI operator.
func (l *lexer) skipInlineImage() {
	if l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
	for l.pos+1 < len(l.data) {
		if l.data[l.pos] == 'E' && l.data[l.pos+1] == 'I' &&
			l.pos > 0 && isWhitespace(l.data[l.pos-1]) &&
			(l.pos+2 >= len(l.data) || isWhitespace(l.data[l.pos+2])) {
			l.pos += 2
			return
		}
		l.pos++
	}
	l.pos = len(l.data)
}
