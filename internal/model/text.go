package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTag returns the canonical stored form of a free-text attribute:
// NFC-normalized, trimmed, with internal whitespace runs collapsed.
func NormalizeTag(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Fold returns the case-folded comparison key of a tag. Casers are stateful,
// so a new one is built per call.
func Fold(s string) string {
	return cases.Fold().String(NormalizeTag(s))
}

// EqualFold reports whether two tags are both present and equal ignoring case.
func EqualFold(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return Fold(a) == Fold(b)
}
