package query

import (
	"sort"

	"github.com/kartikbazzad/duskdb/index"
)

// Result is the chainable pipeline spec §4.4 describes:
// sort/limit/skip/first/last/filter/map over a result set, all operating
// on a copy so chaining never mutates a caller's slice in place.
type Result struct {
	docs []Doc
}

// NewResult wraps a slice of documents for pipelining.
func NewResult(docs []Doc) Result {
	return Result{docs: docs}
}

// All returns every document currently in the pipeline.
func (r Result) All() []Doc {
	out := make([]Doc, len(r.docs))
	copy(out, r.docs)
	return out
}

// Len reports the current result count.
func (r Result) Len() int { return len(r.docs) }

// Sort orders the result by field, ascending by default. A stable sort
// preserves relative order among equal keys, matching spec's sort
// requirement for deterministic pagination.
func (r Result) Sort(field string, descending bool) Result {
	sorted := make([]Doc, len(r.docs))
	copy(sorted, r.docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, _ := index.Project(sorted[i].Value, field)
		vj, _ := index.Project(sorted[j].Value, field)
		cmp := CompareValues(vi, vj)
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})
	return Result{docs: sorted}
}

// Limit caps the result to at most n documents.
func (r Result) Limit(n int) Result {
	if n < 0 {
		n = 0
	}
	if n >= len(r.docs) {
		return r
	}
	return Result{docs: r.docs[:n]}
}

// Skip drops the first n documents.
func (r Result) Skip(n int) Result {
	if n <= 0 {
		return r
	}
	if n >= len(r.docs) {
		return Result{}
	}
	return Result{docs: r.docs[n:]}
}

// First returns the first document, or ok=false on an empty result.
func (r Result) First() (Doc, bool) {
	if len(r.docs) == 0 {
		return Doc{}, false
	}
	return r.docs[0], true
}

// Last returns the final document, or ok=false on an empty result.
func (r Result) Last() (Doc, bool) {
	if len(r.docs) == 0 {
		return Doc{}, false
	}
	return r.docs[len(r.docs)-1], true
}

// Filter narrows the result to documents matching predicate.
func (r Result) Filter(predicate func(Doc) bool) Result {
	out := make([]Doc, 0, len(r.docs))
	for _, d := range r.docs {
		if predicate(d) {
			out = append(out, d)
		}
	}
	return Result{docs: out}
}

// Map projects every document to an arbitrary output value.
func (r Result) Map(fn func(Doc) interface{}) []interface{} {
	out := make([]interface{}, len(r.docs))
	for i, d := range r.docs {
		out[i] = fn(d)
	}
	return out
}
