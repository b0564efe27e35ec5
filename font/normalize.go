package font

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize puts decoded text into NFC. CJK compatibility ideographs fold to
// their unified forms under NFC already; Kangxi and CJK radicals, which some
// Taiwanese government fonts emit for common characters (⼈ for 人), only fold
// under NFKC, so those runes get it individually.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	if !strings.ContainsFunc(s, isRadical) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isRadical(r) {
			b.WriteString(norm.NFKC.String(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isRadical(r rune) bool {
	return (r >= 0x2E80 && r <= 0x2EFF) || (r >= 0x2F00 && r <= 0x2FDF)
}
