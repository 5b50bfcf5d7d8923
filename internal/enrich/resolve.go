package enrich

import "github.com/sells-group/similar-cli/internal/model"

// MostFrequent returns the most common non-empty value. Values are compared
// case-insensitively and ties go to the value seen first. The returned
// spelling is the first one seen for the winning value.
func MostFrequent(values []string) (string, bool) {
	type tally struct {
		value string
		count int
		first int
	}
	counts := make(map[string]*tally)
	for i, v := range values {
		if v == "" {
			continue
		}
		key := model.Fold(v)
		if t, ok := counts[key]; ok {
			t.count++
			continue
		}
		counts[key] = &tally{value: v, count: 1, first: i}
	}

	var best *tally
	for _, t := range counts {
		if best == nil || t.count > best.count || (t.count == best.count && t.first < best.first) {
			best = t
		}
	}
	if best == nil {
		return "", false
	}
	return best.value, true
}

// Resolve combines rows attribute by attribute, taking the most frequent value
// across rows for each one.
func Resolve(rows []model.ReferenceAttrs) model.ReferenceAttrs {
	var out model.ReferenceAttrs
	values := make([]string, len(rows))
	for _, attr := range model.AllReferenceAttrs() {
		for i, r := range rows {
			values[i] = r.Get(attr)
		}
		if v, ok := MostFrequent(values); ok {
			out.Set(attr, v)
		}
	}
	return out
}
