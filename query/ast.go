// Package query implements the filter-compilation and predicate-matching
// engine of spec §4.4: a small query AST compiled from either a Mongo-style
// map (`{"age": {"$gt": 25}}`) or a single `where(field, op, value)` call,
// a bounded compiled-predicate cache, index-aware dispatch, a chainable
// result pipeline, and aggregations.
//
// Grounded on bundoc/internal/query/ast.go's Operator/FieldNode/
// LogicalNode/Parse shape; extended here to fully implement `$gte`/`$lte`
// and `$in` (the teacher's `compare` only switches on `$eq`/`$ne`/`$gt`/
// `$lt`) and to tag the compiled predicate with explicit dispatch metadata
// instead of relying on side-channel properties (spec §9 redesign).
package query

import (
	"fmt"

	"github.com/kartikbazzad/duskdb/index"
)

// Operator is a comparison or membership operator usable in a query.
type Operator string

const (
	OpEq  Operator = "$eq"
	OpNe  Operator = "$ne"
	OpGt  Operator = "$gt"
	OpGte Operator = "$gte"
	OpLt  Operator = "$lt"
	OpLte Operator = "$lte"
	OpIn  Operator = "$in"
)

// Node is the common marker for AST nodes; actual matching goes through
// the Matcher interface so Parse can build a tree of mixed node kinds.
type Node interface{}

// Matcher is satisfied by every concrete node kind.
type Matcher interface {
	Matches(doc map[string]interface{}) bool
}

// FieldNode matches a single field against one operator/value pair.
type FieldNode struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// LogicalNode combines children with $and/$or.
type LogicalNode struct {
	Operator string // "$and" or "$or"
	Children []Node
}

// Parse converts a Mongo-style query map into an AST. A bare value for a
// field is sugar for {"$eq": value}.
func Parse(q map[string]interface{}) (Matcher, error) {
	var nodes []Node
	for key, val := range q {
		if key == "$and" || key == "$or" {
			list, ok := val.([]interface{})
			if !ok {
				return nil, fmt.Errorf("value for %s must be a list", key)
			}
			children := make([]Node, 0, len(list))
			for _, item := range list {
				subMap, ok := item.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("element of %s must be an object", key)
				}
				subNode, err := Parse(subMap)
				if err != nil {
					return nil, err
				}
				children = append(children, subNode)
			}
			nodes = append(nodes, &LogicalNode{Operator: key, Children: children})
			continue
		}
		if valMap, ok := val.(map[string]interface{}); ok {
			for op, opVal := range valMap {
				switch Operator(op) {
				case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn:
					nodes = append(nodes, &FieldNode{Field: key, Operator: Operator(op), Value: opVal})
				default:
					return nil, fmt.Errorf("unknown operator: %s", op)
				}
			}
		} else {
			nodes = append(nodes, &FieldNode{Field: key, Operator: OpEq, Value: val})
		}
	}
	return &LogicalNode{Operator: "$and", Children: nodes}, nil
}

// Matches reports whether doc satisfies the field predicate, projecting
// through dotted field paths the same way the index layer does.
func (n *FieldNode) Matches(doc map[string]interface{}) bool {
	val, ok := index.Project(doc, n.Field)
	if !ok {
		return false
	}
	return Compare(val, n.Operator, n.Value)
}

// Matches evaluates the logical combinator over its children.
func (n *LogicalNode) Matches(doc map[string]interface{}) bool {
	switch n.Operator {
	case "$and":
		for _, child := range n.Children {
			if m, ok := child.(Matcher); ok && !m.Matches(doc) {
				return false
			}
		}
		return true
	case "$or":
		if len(n.Children) == 0 {
			return false
		}
		for _, child := range n.Children {
			if m, ok := child.(Matcher); ok && m.Matches(doc) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Compare applies op to (actual, expected). $eq/$ne use a normalized
// string comparison (so "1" and the number 1 still compare unequal,
// matching the index layer's type-tagged terms); $gt/$gte/$lt/$lte use
// numeric-or-lexicographic ordering; $in checks set membership.
func Compare(actual interface{}, op Operator, expected interface{}) bool {
	switch op {
	case OpEq:
		return sameTerm(actual, expected)
	case OpNe:
		return !sameTerm(actual, expected)
	case OpGt:
		return CompareValues(actual, expected) > 0
	case OpGte:
		return CompareValues(actual, expected) >= 0
	case OpLt:
		return CompareValues(actual, expected) < 0
	case OpLte:
		return CompareValues(actual, expected) <= 0
	case OpIn:
		list, ok := expected.([]interface{})
		if !ok {
			return false
		}
		for _, v := range list {
			if sameTerm(actual, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func sameTerm(a, b interface{}) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return fa == fb
	}
	if aNum != bNum {
		return false // a number never equals a non-numeric term, e.g. "1" != 1
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// CompareValues returns -1/0/1 for a</=/> b, used for both predicate
// evaluation and result-set sorting.
func CompareValues(a, b interface{}) int {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		switch {
		case fa > fb:
			return 1
		case fa < fb:
			return -1
		default:
			return 0
		}
	}
	sa := fmt.Sprintf("%v", a)
	sb := fmt.Sprintf("%v", b)
	switch {
	case sa > sb:
		return 1
	case sa < sb:
		return -1
	default:
		return 0
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
