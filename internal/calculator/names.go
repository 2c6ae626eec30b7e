package calculator

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NameMatcher decides whether two shop names refer to the same shop by
// substring containment of their normalized forms. There is no tokenizing
// and no edit distance: short names produce false positives and reordered
// or abbreviated names produce false negatives.
type NameMatcher struct {
	// FoldAccents strips combining marks so "Café" contains "cafe".
	FoldAccents bool
}

// Normalize lowercases and trims a name. A blank name normalizes to "".
func (m NameMatcher) Normalize(name string) string {
	s := cases.Lower(language.Und).String(strings.TrimSpace(name))
	if m.FoldAccents {
		s, _, _ = transform.String(
			transform.Chain(
				norm.NFD,
				runes.Remove(runes.In(unicode.Mn)),
				norm.NFC,
			),
			s,
		)
	}
	return strings.TrimSpace(s)
}

// Similar reports whether either normalized name contains the other.
// An empty name is contained in every name, so it is similar to anything.
func (m NameMatcher) Similar(a, b string) bool {
	na, nb := m.Normalize(a), m.Normalize(b)
	return strings.Contains(nb, na) || strings.Contains(na, nb)
}
