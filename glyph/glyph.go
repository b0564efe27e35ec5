// Package glyph repairs characters that OCR commonly confuses in Taiwanese
// administrative addresses, such as 耋 read for 臺 or 彗 for 巷.
//
// A Table applies literal substitutions, longest pattern first, then removes
// noise tokens that Tesseract produces from table rules and underlines.
package glyph

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Fix is one substitution: every occurrence of From becomes To.
type Fix struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// DefaultFixes are the substitutions seen on deed scans, in declaration
// order.
var DefaultFixes = []Fix{
	{"耋", "臺"}, {"喜", "臺"}, {"鬆", "縣"}, {"邾", "鄉"}, {"廓", "廟"},
	{"彗", "巷"}, {"芸", "巷"}, {"茹", "巷"},
	{"濃", "鄰"}, {"潤", "鄰"}, {"薪", "鄰"},
	{"頌", "頂"}, {"淼", "淡"}, {"鄴", "鄉"}, {"簡二路", "遠路"},
	{"芝", "坑"}, {"坎", "坑"}, {"模", "樓"}, {"理", "重"}, {"秋", "秀"},
}

// DefaultNoise are OCR artifacts removed after substitution.
var DefaultNoise = []string{"LLˍ", "LL_", "LL", "Lˍ"}

// Table is an ordered, read-only set of fixes and noise tokens. It is safe
// for concurrent use.
type Table struct {
	fixes []Fix
	noise []string
}

// NewTable orders fixes and noise tokens by descending rune length. Entries
// of equal length keep their declaration order. Fixes with an empty From
// and empty noise tokens are dropped.
func NewTable(fixes []Fix, noise []string) *Table {
	t := &Table{}
	for _, f := range fixes {
		if f.From != "" {
			t.fixes = append(t.fixes, f)
		}
	}
	for _, n := range noise {
		if n != "" {
			t.noise = append(t.noise, n)
		}
	}
	slices.SortStableFunc(t.fixes, func(a, b Fix) int {
		return cmp.Compare(utf8.RuneCountInString(b.From), utf8.RuneCountInString(a.From))
	})
	slices.SortStableFunc(t.noise, func(a, b string) int {
		return cmp.Compare(utf8.RuneCountInString(b), utf8.RuneCountInString(a))
	})
	return t
}

// Default returns the table built from DefaultFixes and DefaultNoise.
func Default() *Table {
	return NewTable(DefaultFixes, DefaultNoise)
}

// Fixes returns the substitutions in application order.
func (t *Table) Fixes() []Fix {
	return slices.Clone(t.fixes)
}

// Noise returns the noise tokens in removal order.
func (t *Table) Noise() []string {
	return slices.Clone(t.noise)
}

// Correct applies every fix in order, each to the output of the previous
// one, then deletes every noise token.
func (t *Table) Correct(s string) string {
	for _, f := range t.fixes {
		s = strings.ReplaceAll(s, f.From, f.To)
	}
	for _, n := range t.noise {
		s = strings.ReplaceAll(s, n, "")
	}
	return s
}
