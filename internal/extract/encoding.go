package extract

import (
	"strconv"
	"strings"
)

// encoding maps the single-byte codes of a simple font to runes. Zero marks
// an undefined code.
type encoding [256]rune

// asciiGlyphs names the printable ASCII codes 0x20-0x7E.
var asciiGlyphs = strings.Fields(`space exclam quotedbl numbersign dollar percent ampersand quotesingle
	parenleft parenright asterisk plus comma hyphen period slash
	zero one two three four five six seven eight nine colon semicolon less equal greater question
	at A B C D E F G H I J K L M N O P Q R S T U V W X Y Z bracketleft backslash bracketright asciicircum underscore
	grave a b c d e f g h i j k l m n o p q r s t u v w x y z braceleft bar braceright asciitilde`)

// winAnsiHigh holds WinAnsiEncoding 0x80-0x9F, the only range where it
// departs from Latin-1.
var winAnsiHigh = [32]struct {
	r    rune
	name string
}{
	{'€', "Euro"}, {}, {'‚', "quotesinglbase"}, {'ƒ', "florin"},
	{'„', "quotedblbase"}, {'…', "ellipsis"}, {'†', "dagger"}, {'‡', "daggerdbl"},
	{'ˆ', "circumflex"}, {'‰', "perthousand"}, {'Š', "Scaron"}, {'‹', "guilsinglleft"},
	{'Œ', "OE"}, {}, {'Ž', "Zcaron"}, {},
	{}, {'‘', "quoteleft"}, {'’', "quoteright"}, {'“', "quotedblleft"},
	{'”', "quotedblright"}, {'•', "bullet"}, {'–', "endash"}, {'—', "emdash"},
	{'˜', "tilde"}, {'™', "trademark"}, {'š', "scaron"}, {'›', "guilsinglright"},
	{'œ', "oe"}, {}, {'ž', "zcaron"}, {'Ÿ', "Ydieresis"},
}

// latin1Glyphs names 0xA1-0xFF.
var latin1Glyphs = strings.Fields(`exclamdown cent sterling currency yen brokenbar section dieresis
	copyright ordfeminine guillemotleft logicalnot hyphen registered macron
	degree plusminus twosuperior threesuperior acute mu paragraph periodcentered
	cedilla onesuperior ordmasculine guillemotright onequarter onehalf threequarters questiondown
	Agrave Aacute Acircumflex Atilde Adieresis Aring AE Ccedilla
	Egrave Eacute Ecircumflex Edieresis Igrave Iacute Icircumflex Idieresis
	Eth Ntilde Ograve Oacute Ocircumflex Otilde Odieresis multiply
	Oslash Ugrave Uacute Ucircumflex Udieresis Yacute Thorn germandbls
	agrave aacute acircumflex atilde adieresis aring ae ccedilla
	egrave eacute ecircumflex edieresis igrave iacute icircumflex idieresis
	eth ntilde ograve oacute ocircumflex otilde odieresis divide
	oslash ugrave uacute ucircumflex udieresis yacute thorn ydieresis`)

// extraGlyphs covers names used by StandardEncoding and common /Differences
// arrays that WinAnsiEncoding lacks.
var extraGlyphs = map[string]rune{
	"fraction": '⁄', "fi": 'ﬁ', "fl": 'ﬂ', "ff": 'ﬀ', "ffi": 'ﬃ', "ffl": 'ﬄ',
	"breve": '˘', "dotaccent": '˙', "ring": '˚', "hungarumlaut": '˝', "ogonek": '˛', "caron": 'ˇ',
	"Lslash": 'Ł', "lslash": 'ł', "dotlessi": 'ı', "minus": '−', "nbspace": ' ',
}

// standardHigh holds the StandardEncoding codes above 0x7E by glyph name.
var standardHigh = map[byte]string{
	0xA1: "exclamdown", 0xA2: "cent", 0xA3: "sterling", 0xA4: "fraction", 0xA5: "yen", 0xA6: "florin",
	0xA7: "section", 0xA8: "currency", 0xA9: "quotesingle", 0xAA: "quotedblleft", 0xAB: "guillemotleft",
	0xAC: "guilsinglleft", 0xAD: "guilsinglright", 0xAE: "fi", 0xAF: "fl",
	0xB1: "endash", 0xB2: "dagger", 0xB3: "daggerdbl", 0xB4: "periodcentered", 0xB6: "paragraph",
	0xB7: "bullet", 0xB8: "quotesinglbase", 0xB9: "quotedblbase", 0xBA: "quotedblright",
	0xBB: "guillemotright", 0xBC: "ellipsis", 0xBD: "perthousand", 0xBF: "questiondown",
	0xC1: "grave", 0xC2: "acute", 0xC3: "circumflex", 0xC4: "tilde", 0xC5: "macron", 0xC6: "breve",
	0xC7: "dotaccent", 0xC8: "dieresis", 0xCA: "ring", 0xCB: "cedilla", 0xCD: "hungarumlaut",
	0xCE: "ogonek", 0xCF: "caron", 0xD0: "emdash",
	0xE1: "AE", 0xE3: "ordfeminine", 0xE8: "Lslash", 0xE9: "Oslash", 0xEA: "OE", 0xEB: "ordmasculine",
	0xF1: "ae", 0xF5: "dotlessi", 0xF8: "lslash", 0xF9: "oslash", 0xFA: "oe", 0xFB: "germandbls",
}

var (
	glyphRunes       = make(map[string]rune)
	winAnsiEncoding  encoding
	standardEncoding encoding
)

func init() {
	for i, name := range asciiGlyphs {
		r := rune(0x20 + i)
		glyphRunes[name] = r
		winAnsiEncoding[r] = r
	}
	for i, g := range winAnsiHigh {
		if g.r != 0 {
			glyphRunes[g.name] = g.r
			winAnsiEncoding[0x80+i] = g.r
		}
	}
	winAnsiEncoding[0xA0] = ' '
	for i, name := range latin1Glyphs {
		r := rune(0xA1 + i)
		if _, ok := glyphRunes[name]; !ok {
			glyphRunes[name] = r
		}
		winAnsiEncoding[r] = r
	}
	winAnsiEncoding[0xAD] = '-'
	for name, r := range extraGlyphs {
		glyphRunes[name] = r
	}

	for i := range asciiGlyphs {
		standardEncoding[0x20+i] = rune(0x20 + i)
	}
	standardEncoding['\''] = '’'
	standardEncoding['`'] = '‘'
	for code, name := range standardHigh {
		standardEncoding[code] = glyphRunes[name]
	}
}

// baseEncoding returns the table for a PDF encoding name. MacRoman falls back
// to WinAnsi, which agrees with it on ASCII.
func baseEncoding(name string) encoding {
	if name == "StandardEncoding" {
		return standardEncoding
	}
	return winAnsiEncoding
}

// glyphRune resolves a glyph name, including the uniXXXX and uXXXX[XX]
// forms. ok is false for names it does not know.
func glyphRune(name string) (rune, bool) {
	if r, ok := glyphRunes[name]; ok {
		return r, true
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		return glyphRune(name[:i])
	}
	hex := ""
	switch {
	case strings.HasPrefix(name, "uni") && len(name) == 7:
		hex = name[3:]
	case strings.HasPrefix(name, "u") && len(name) >= 5 && len(name) <= 7:
		hex = name[1:]
	default:
		return 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || v == 0 || v > 0x10FFFF {
		return 0, false
	}
	return rune(v), true
}

// difference is one entry of a /Differences array: a glyph name assigned to
// a code.
type difference struct {
	code int
	name string
}

// withDifferences overlays a /Differences array on a base encoding. Unknown
// glyph names leave the code undefined.
func withDifferences(base encoding, diffs []difference) encoding {
	enc := base
	for _, d := range diffs {
		if d.code < 0 || d.code > 255 {
			continue
		}
		r, _ := glyphRune(d.name)
		enc[d.code] = r
	}
	return enc
}

func (e *encoding) decode(b []byte) string {
	rs := make([]rune, 0, len(b))
	for _, c := range b {
		if r := e[c]; r != 0 {
			rs = append(rs, r)
		}
	}
	return string(rs)
}
