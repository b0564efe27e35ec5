package font

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// predefinedCMap is a named CMap whose codes are a legacy multi-byte
// encoding. Text comes from decoding each code with enc; leadByte reports
// whether a byte starts a two-byte code.
type predefinedCMap struct {
	enc      encoding.Encoding
	leadByte func(b byte) bool
	utf16    bool
}

func between(lo, hi byte) func(byte) bool {
	return func(b byte) bool { return b >= lo && b <= hi }
}

// Prefixes of the predefined CMap names, longest first within each family.
// The -H/-V suffix only selects the writing mode.
var predefinedCMaps = []struct {
	prefix string
	cmap   predefinedCMap
}{
	{"ETenms-B5-", predefinedCMap{enc: traditionalchinese.Big5, leadByte: between(0x81, 0xFE)}},
	{"ETen-B5-", predefinedCMap{enc: traditionalchinese.Big5, leadByte: between(0x81, 0xFE)}},
	{"HKscs-B5-", predefinedCMap{enc: traditionalchinese.Big5, leadByte: between(0x81, 0xFE)}},
	{"B5pc-", predefinedCMap{enc: traditionalchinese.Big5, leadByte: between(0x81, 0xFE)}},
	{"UniCNS-UCS2-", predefinedCMap{utf16: true}},
	{"UniCNS-UTF16-", predefinedCMap{utf16: true}},
	{"UniGB-UCS2-", predefinedCMap{utf16: true}},
	{"UniGB-UTF16-", predefinedCMap{utf16: true}},
	{"UniJIS-UCS2-", predefinedCMap{utf16: true}},
	{"UniJIS-UTF16-", predefinedCMap{utf16: true}},
	{"UniKS-UCS2-", predefinedCMap{utf16: true}},
	{"UniKS-UTF16-", predefinedCMap{utf16: true}},
	{"GBK-EUC-", predefinedCMap{enc: simplifiedchinese.GBK, leadByte: between(0x81, 0xFE)}},
	{"GBKp-EUC-", predefinedCMap{enc: simplifiedchinese.GBK, leadByte: between(0x81, 0xFE)}},
	{"GB-EUC-", predefinedCMap{enc: simplifiedchinese.GBK, leadByte: between(0xA1, 0xFE)}},
	{"90ms-RKSJ-", predefinedCMap{enc: japanese.ShiftJIS, leadByte: func(b byte) bool {
		return (b >= 0x81 && b <= 0x9F) || (b >= 0xE0 && b <= 0xFC)
	}}},
	{"KSCms-UHC-", predefinedCMap{enc: korean.EUCKR, leadByte: between(0x81, 0xFE)}},
	{"KSC-EUC-", predefinedCMap{enc: korean.EUCKR, leadByte: between(0xA1, 0xFE)}},
}

func lookupPredefined(name string) (*predefinedCMap, bool) {
	for _, p := range predefinedCMaps {
		if strings.HasPrefix(name, p.prefix) {
			c := p.cmap
			return &c, true
		}
	}
	return nil, false
}

// isVerticalCMapName reports whether a CMap name selects vertical writing.
func isVerticalCMapName(name string) bool {
	return strings.HasSuffix(name, "-V")
}

// next splits one code off data and decodes it.
func (p *predefinedCMap) next(data []byte) (code uint32, n int, text string) {
	if p.utf16 {
		n = 2
		if len(data) >= 4 && data[0] >= 0xD8 && data[0] <= 0xDB {
			n = 4
		}
		n = min(n, len(data))
		for _, b := range data[:n] {
			code = code<<8 | uint32(b)
		}
		if n < 2 {
			return code, n, ""
		}
		s, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data[:n])
		if err != nil {
			return code, n, ""
		}
		return code, n, string(s)
	}

	n = 1
	if p.leadByte(data[0]) && len(data) >= 2 {
		n = 2
	}
	for _, b := range data[:n] {
		code = code<<8 | uint32(b)
	}
	if n == 1 && data[0] < 0x80 {
		return code, n, string(rune(data[0]))
	}
	s, err := p.enc.NewDecoder().Bytes(data[:n])
	if err != nil || strings.ContainsRune(string(s), '\ufffd') {
		return code, n, ""
	}
	return code, n, string(s)
}
