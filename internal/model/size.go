package model

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Size is one canonical size value: numeric ("38", "38.5") or a text token ("M", "XL").
// The zero Size means "no size".
type Size struct {
	num     float64
	text    string
	numeric bool
}

// ParseSize normalizes a raw size value. A comma is accepted as decimal separator.
func ParseSize(raw string) (Size, bool) {
	s := NormalizeTag(raw)
	if s == "" {
		return Size{}, false
	}
	if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
		return Size{num: f, numeric: true}, true
	}
	return Size{text: cases.Upper(language.Und).String(s)}, true
}

// NumericSize builds a numeric Size.
func NumericSize(v float64) Size {
	return Size{num: v, numeric: true}
}

// IsZero reports whether the size is unset.
func (s Size) IsZero() bool { return !s.numeric && s.text == "" }

// Numeric returns the numeric value and whether the size is numeric.
func (s Size) Numeric() (float64, bool) { return s.num, s.numeric }

// String returns the canonical form.
func (s Size) String() string {
	if s.numeric {
		return strconv.FormatFloat(s.num, 'f', -1, 64)
	}
	return s.text
}

// MarshalText implements encoding.TextMarshaler.
func (s Size) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Size) UnmarshalText(b []byte) error {
	*s, _ = ParseSize(string(b))
	return nil
}

func (s Size) less(o Size) bool {
	if s.numeric != o.numeric {
		return s.numeric
	}
	if s.numeric {
		return s.num < o.num
	}
	return s.text < o.text
}

// SizeSet is a deduplicated, sorted set of sizes. Numeric sizes sort before text sizes.
type SizeSet []Size

// NewSizeSet builds a set from raw values, dropping blanks and duplicates.
func NewSizeSet(values ...string) SizeSet {
	seen := make(map[Size]bool, len(values))
	var set SizeSet
	for _, v := range values {
		s, ok := ParseSize(v)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		set = append(set, s)
	}
	sort.Slice(set, func(i, j int) bool { return set[i].less(set[j]) })
	return set
}

// decimalComma matches a comma between digits with exactly one fractional digit,
// as in "38,5". A comma followed by two or more digits ("38,41") is a separator.
var decimalComma = regexp.MustCompile(`(\d),(\d)(\D|$)`)

// ParseSizeSet splits a delimited size list. Separators are ';', '|', '/', ',' and
// whitespace. A decimal comma such as "38,5" is read as 38.5.
func ParseSizeSet(raw string) SizeSet {
	raw = decimalComma.ReplaceAllString(raw, "$1.$2$3")
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ';', '|', '/', ',', ' ', '\t', '\n', '\r':
			return true
		}
		return false
	})
	return NewSizeSet(parts...)
}

// Contains reports whether the set holds s.
func (ss SizeSet) Contains(s Size) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// Strings returns the canonical form of every member.
func (ss SizeSet) Strings() []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.String()
	}
	return out
}

// Overlap returns |A∩B| / min(|A|,|B|), or 0 when either set is empty.
func Overlap(a, b SizeSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inB := make(map[Size]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	shared := 0
	for _, s := range a {
		if inB[s] {
			shared++
		}
	}
	return float64(shared) / float64(min(len(a), len(b)))
}
