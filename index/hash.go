package index

import "fmt"

// HashIndex maps a projected equality term to the set of store keys whose
// value at that field projects to the same term. Terms are tagged by Go
// type so a string "1" and a number 1 never collide in the same bucket.
type HashIndex struct {
	buckets map[string]map[string]struct{}
}

func newHashIndex() *HashIndex {
	return &HashIndex{buckets: make(map[string]map[string]struct{})}
}

func hashTerm(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return "s:" + v, true
	case float64:
		return fmt.Sprintf("n:%v", v), true
	case bool:
		return fmt.Sprintf("b:%v", v), true
	case nil:
		return "", false
	default:
		return "", false
	}
}

func (h *HashIndex) add(key string, value interface{}) bool {
	term, ok := hashTerm(value)
	if !ok {
		return false
	}
	bucket, exists := h.buckets[term]
	if !exists {
		bucket = make(map[string]struct{})
		h.buckets[term] = bucket
	}
	bucket[key] = struct{}{}
	return true
}

func (h *HashIndex) remove(key string, value interface{}) {
	term, ok := hashTerm(value)
	if !ok {
		return
	}
	bucket, exists := h.buckets[term]
	if !exists {
		return
	}
	delete(bucket, key)
	if len(bucket) == 0 {
		delete(h.buckets, term)
	}
}

func (h *HashIndex) size() int {
	total := 0
	for _, bucket := range h.buckets {
		total += len(bucket)
	}
	return total
}

// Lookup returns every store key whose projected value equals value.
func (h *HashIndex) Lookup(value interface{}) []string {
	term, ok := hashTerm(value)
	if !ok {
		return nil
	}
	bucket, exists := h.buckets[term]
	if !exists {
		return nil
	}
	out := make([]string, 0, len(bucket))
	for k := range bucket {
		out = append(out, k)
	}
	return out
}

// LookupIn returns the union of keys across every value in values, used
// for the `$in` query operator.
func (h *HashIndex) LookupIn(values []interface{}) []string {
	seen := make(map[string]struct{})
	for _, v := range values {
		for _, k := range h.Lookup(v) {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}
