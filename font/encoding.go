package font

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/tsawler/deedscan/core"
)

// SimpleEncoding maps single-byte codes to runes. A zero rune means the code
// has no mapping.
type SimpleEncoding [256]rune

var (
	winAnsi  = tableFromCharmap(charmap.Windows1252)
	macRoman = tableFromCharmap(charmap.Macintosh)
	standard = standardEncoding()
)

func tableFromCharmap(cm *charmap.Charmap) *SimpleEncoding {
	var enc SimpleEncoding
	for i := 0; i < 256; i++ {
		r := cm.DecodeByte(byte(i))
		if r != '\ufffd' {
			enc[i] = r
		}
	}
	return &enc
}

// standardEncoding is Adobe StandardEncoding: ASCII with curly quotes and a
// handful of differences in the upper half.
func standardEncoding() *SimpleEncoding {
	var enc SimpleEncoding
	for i := 32; i < 127; i++ {
		enc[i] = rune(i)
	}
	enc['\''] = '’'
	enc['`'] = '‘'
	upper := map[byte]rune{
		0xA1: '¡', 0xA2: '¢', 0xA3: '£', 0xA4: '⁄', 0xA5: '¥', 0xA6: 'ƒ', 0xA7: '§',
		0xA8: '¤', 0xA9: '\'', 0xAA: '“', 0xAB: '«', 0xAC: '‹', 0xAD: '›', 0xAE: 'ﬁ',
		0xAF: 'ﬂ', 0xB1: '–', 0xB2: '†', 0xB3: '‡', 0xB4: '·', 0xB6: '¶', 0xB7: '•',
		0xB8: '‚', 0xB9: '„', 0xBA: '”', 0xBB: '»', 0xBC: '…', 0xBD: '‰', 0xBF: '¿',
		0xC1: '`', 0xC2: '´', 0xC3: 'ˆ', 0xC4: '˜', 0xC5: '¯', 0xC6: '˘', 0xC7: '˙',
		0xC8: '¨', 0xCA: '˚', 0xCB: '¸', 0xCD: '˝', 0xCE: '˛', 0xCF: 'ˇ', 0xD0: '—',
		0xE1: 'Æ', 0xE3: 'ª', 0xE8: 'Ł', 0xE9: 'Ø', 0xEA: 'Œ', 0xEB: 'º', 0xF1: 'æ',
		0xF5: 'ı', 0xF8: 'ł', 0xF9: 'ø', 0xFA: 'œ', 0xFB: 'ß',
	}
	for b, r := range upper {
		enc[b] = r
	}
	return &enc
}

// BaseEncoding returns the named simple encoding, or nil for an unknown name.
func BaseEncoding(name string) *SimpleEncoding {
	switch name {
	case "WinAnsiEncoding":
		return winAnsi
	case "MacRomanEncoding", "MacExpertEncoding":
		return macRoman
	case "StandardEncoding":
		return standard
	}
	return nil
}

// glyphNames covers the glyph names that show up in /Differences arrays of
// Latin fonts. Names of the form uniXXXX and uXXXX[XX] are handled by
// glyphRune directly.
var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#', "dollar": '$',
	"percent": '%', "ampersand": '&', "quotesingle": '\'', "quoteright": '’',
	"quoteleft": '‘', "parenleft": '(', "parenright": ')', "asterisk": '*',
	"plus": '+', "comma": ',', "hyphen": '-', "period": '.', "slash": '/',
	"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4', "five": '5',
	"six": '6', "seven": '7', "eight": '8', "nine": '9', "colon": ':',
	"semicolon": ';', "less": '<', "equal": '=', "greater": '>', "question": '?',
	"at": '@', "bracketleft": '[', "backslash": '\\', "bracketright": ']',
	"asciicircum": '^', "underscore": '_', "grave": '`', "braceleft": '{',
	"bar": '|', "braceright": '}', "asciitilde": '~', "bullet": '•',
	"endash": '–', "emdash": '—', "quotedblleft": '“', "quotedblright": '”',
	"ellipsis": '…', "fi": 'ﬁ', "fl": 'ﬂ', "degree": '°', "copyright": '©',
	"registered": '®', "trademark": '™', "section": '§', "paragraph": '¶',
	"periodcentered": '·', "multiply": '×', "divide": '÷', "minus": '−',
	"nbspace": '\u00a0', "sfthyphen": '\u00ad',
}

// glyphRune maps a glyph name to a rune.
func glyphRune(name string) (rune, bool) {
	if r, ok := glyphNames[name]; ok {
		return r, true
	}
	if len(name) == 1 && name[0] < 0x80 {
		return rune(name[0]), true
	}
	// Suffixes such as "a.sc" or "one.oldstyle" name variants of the base glyph.
	if base, _, found := strings.Cut(name, "."); found && base != "" {
		return glyphRune(base)
	}
	if strings.HasPrefix(name, "uni") && len(name) >= 7 {
		if v, err := strconv.ParseUint(name[3:7], 16, 32); err == nil {
			return rune(v), true
		}
	}
	if strings.HasPrefix(name, "u") && len(name) >= 5 && len(name) <= 7 {
		if v, err := strconv.ParseUint(name[1:], 16, 32); err == nil && v <= 0x10FFFF {
			return rune(v), true
		}
	}
	return 0, false
}

// withDifferences returns a copy of base with a /Differences array applied.
// The array alternates a starting code with the glyph names that follow it.
func withDifferences(base *SimpleEncoding, diffs core.Array) *SimpleEncoding {
	enc := *base
	code := 0
	for _, d := range diffs {
		switch v := d.(type) {
		case core.Int:
			code = int(v)
		case core.Name:
			if code >= 0 && code < 256 {
				if r, ok := glyphRune(string(v)); ok {
					enc[code] = r
				}
			}
			code++
		}
	}
	return &enc
}
