package deed

import (
	"regexp"
	"strings"
	"unicode"
)

// SectionMarker is the heading of the building ownership section.
const SectionMarker = "建物所有權部"

// addressPattern captures the text between the owner's 地址 label and the
// 權利範圍 label that follows it.
var addressPattern = regexp.MustCompile(`所有權人.*?地址(.*?)權利範圍`)

// LocatePage returns the index of the first page whose text contains
// SectionMarker. Without a match it returns 1 for multi-page documents,
// where the ownership section usually follows the land section, and 0
// otherwise. It returns -1 when there are no pages.
func LocatePage(pages []string) int {
	for i, text := range pages {
		if strings.Contains(text, SectionMarker) {
			return i
		}
	}
	switch {
	case len(pages) > 1:
		return 1
	case len(pages) == 1:
		return 0
	}
	return -1
}

// Field is the outcome of ExtractField.
type Field struct {
	// Value is the trimmed address text, empty when nothing was captured.
	Value string
	// Anchored reports whether the owner and rights-scope anchors were
	// found. Anchored with an empty Value is a redacted address.
	Anchored bool
}

// ExtractField removes all whitespace from text, which PDF text layers
// scatter between CJK characters, and returns the first non-greedy match
// of the address between its anchors.
func ExtractField(text string) Field {
	m := addressPattern.FindStringSubmatch(StripSpace(text))
	if m == nil {
		return Field{}
	}
	return Field{Value: strings.TrimSpace(m[1]), Anchored: true}
}

// StripSpace removes every Unicode whitespace rune from s.
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
