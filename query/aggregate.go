package query

import (
	"fmt"

	"github.com/kartikbazzad/duskdb/index"
)

// Count returns the number of documents in the result.
func (r Result) Count() int { return len(r.docs) }

// Sum adds the numeric projection of field across every document,
// skipping documents where the field is absent or non-numeric.
func (r Result) Sum(field string) float64 {
	var total float64
	for _, d := range r.docs {
		if v, ok := index.Project(d.Value, field); ok {
			if f, ok := toFloat(v); ok {
				total += f
			}
		}
	}
	return total
}

// Avg returns Sum(field) / count of documents that actually contributed
// a numeric value; returns 0 if none did.
func (r Result) Avg(field string) float64 {
	var total float64
	var n int
	for _, d := range r.docs {
		if v, ok := index.Project(d.Value, field); ok {
			if f, ok := toFloat(v); ok {
				total += f
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// Min returns the smallest projected value of field, using the same
// numeric-or-lexicographic ordering as query comparisons.
func (r Result) Min(field string) (interface{}, bool) {
	return r.extreme(field, -1)
}

// Max returns the largest projected value of field.
func (r Result) Max(field string) (interface{}, bool) {
	return r.extreme(field, 1)
}

func (r Result) extreme(field string, want int) (interface{}, bool) {
	var best interface{}
	found := false
	for _, d := range r.docs {
		v, ok := index.Project(d.Value, field)
		if !ok {
			continue
		}
		if !found {
			best = v
			found = true
			continue
		}
		if CompareValues(v, best)*want > 0 {
			best = v
		}
	}
	return best, found
}

// GroupBy partitions the result by the projected value of field,
// formatted as a string key (documents missing the field group under "").
func (r Result) GroupBy(field string) map[string][]Doc {
	groups := make(map[string][]Doc)
	for _, d := range r.docs {
		var key string
		if v, ok := index.Project(d.Value, field); ok {
			key = toGroupKey(v)
		}
		groups[key] = append(groups[key], d)
	}
	return groups
}

func toGroupKey(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
