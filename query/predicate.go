package query

import "fmt"

// Predicate is the "tagged query AST" spec §9 calls for: where(...)
// returns this small structure instead of a function value with
// side-channel properties attached, so the executor can decide between
// an index path and a scan path by reading Kind/Field/Op directly.
type Predicate struct {
	Kind  string // "field" (single field/op/value, index-dispatchable) or "scan" (general AST)
	Field string
	Op    Operator
	Value interface{}
	Node  Matcher
}

// Matches evaluates the predicate against a document, regardless of
// whether it was dispatched via an index.
func (p *Predicate) Matches(doc map[string]interface{}) bool {
	return p.Node.Matches(doc)
}

// FromMatcher wraps a pre-parsed AST (e.g. from Parse) as a scan-only
// predicate: composite queries never carry single-field index metadata
// per spec's single-index-dispatch non-goal.
func FromMatcher(m Matcher) *Predicate {
	return &Predicate{Kind: "scan", Node: m}
}

func predicateCacheKey(field string, op Operator, value interface{}) string {
	return fmt.Sprintf("%s|%s|%v", field, op, value)
}
