package query

import "github.com/kartikbazzad/duskdb/index"

// Doc pairs a store key with its hydrated value, the unit the result
// pipeline and aggregations operate over.
type Doc struct {
	Key   string
	Value interface{}
}

// StoreReader is the minimal read surface the query engine needs from
// whatever backs it (the root store or a collection's namespaced view).
type StoreReader interface {
	Keys() []string
	Get(key string) (interface{}, bool)
}

// Engine compiles and dispatches queries against a StoreReader, using idx
// for index-path dispatch when a compatible index exists (spec §4.4).
type Engine struct {
	indexes *index.Manager
	cache   *predicateCache
}

// NewEngine builds a query engine over idx (may be nil if no indexes are
// registered — the engine degrades to always-scan).
func NewEngine(idx *index.Manager) *Engine {
	return &Engine{indexes: idx, cache: newPredicateCache(defaultCacheCap)}
}

// Where compiles field/op/value into a tagged predicate, reusing a cached
// compilation when the same (field, op, value) triple was seen before.
func (e *Engine) Where(field string, op Operator, value interface{}) *Predicate {
	key := predicateCacheKey(field, op, value)
	if cached, ok := e.cache.get(key); ok {
		return cached
	}
	pred := &Predicate{
		Kind:  "field",
		Field: field,
		Op:    op,
		Value: value,
		Node:  &FieldNode{Field: field, Operator: op, Value: value},
	}
	e.cache.put(key, pred)
	return pred
}

// Find evaluates pred against store, dispatching through an index when
// pred is a single-field predicate with a compatible ready index and a
// supported operator; otherwise it performs a full scan. Per spec's
// Non-goal on multi-index query planning, composite ($and/$or) predicates
// always scan.
func (e *Engine) Find(store StoreReader, pred *Predicate) []Doc {
	if pred.Kind == "field" && e.indexes != nil {
		if handle, ok := e.indexes.Get(pred.Field); ok {
			if keys, dispatched := dispatchIndex(handle, pred.Op, pred.Value); dispatched {
				return hydrate(store, keys)
			}
		}
	}
	return scan(store, pred)
}

// FindFunc runs a caller-supplied predicate over every (key, value) pair,
// the general `find(predicate)` operation of spec §4.4 that always scans
// (it has no field/op metadata for the optimiser to use).
func (e *Engine) FindFunc(store StoreReader, predicate func(key string, value interface{}) bool) []Doc {
	var out []Doc
	for _, key := range store.Keys() {
		val, ok := store.Get(key)
		if !ok {
			continue
		}
		if predicate(key, val) {
			out = append(out, Doc{Key: key, Value: val})
		}
	}
	return out
}

// Contains/StartsWith/EndsWith expose the text index's membership
// operators directly, since they have no $-operator equivalent in
// Compare (spec Non-goal: no relevance ranking, just membership tests).
func (e *Engine) Contains(store StoreReader, field, substr string) []Doc {
	return e.textDispatch(store, field, func(t *index.TextIndex) []string { return t.Contains(substr) })
}

func (e *Engine) StartsWith(store StoreReader, field, prefix string) []Doc {
	return e.textDispatch(store, field, func(t *index.TextIndex) []string { return t.StartsWith(prefix) })
}

func (e *Engine) EndsWith(store StoreReader, field, suffix string) []Doc {
	return e.textDispatch(store, field, func(t *index.TextIndex) []string { return t.EndsWith(suffix) })
}

func (e *Engine) textDispatch(store StoreReader, field string, run func(*index.TextIndex) []string) []Doc {
	if e.indexes == nil {
		return nil
	}
	handle, ok := e.indexes.Get(field)
	if !ok || handle.Kind != index.KindText {
		return nil
	}
	return hydrate(store, run(handle.Text))
}

func dispatchIndex(h index.Handle, op Operator, value interface{}) ([]string, bool) {
	switch h.Kind {
	case index.KindHash:
		switch op {
		case OpEq:
			return h.Hash.Lookup(value), true
		case OpIn:
			list, ok := value.([]interface{})
			if !ok {
				return nil, false
			}
			return h.Hash.LookupIn(list), true
		}
	case index.KindRange:
		symbol, ok := rangeSymbol(op)
		if !ok {
			return nil, false
		}
		switch v := value.(type) {
		case float64:
			return h.Range.QueryNum(symbol, v), true
		case string:
			return h.Range.QueryStr(symbol, v), true
		}
	}
	return nil, false
}

func rangeSymbol(op Operator) (string, bool) {
	switch op {
	case OpGt:
		return ">", true
	case OpGte:
		return ">=", true
	case OpLt:
		return "<", true
	case OpLte:
		return "<=", true
	default:
		return "", false
	}
}

func hydrate(store StoreReader, keys []string) []Doc {
	out := make([]Doc, 0, len(keys))
	for _, k := range keys {
		if v, ok := store.Get(k); ok {
			out = append(out, Doc{Key: k, Value: v})
		}
	}
	return out
}

func scan(store StoreReader, pred *Predicate) []Doc {
	var out []Doc
	for _, key := range store.Keys() {
		val, ok := store.Get(key)
		if !ok {
			continue
		}
		doc, ok := val.(map[string]interface{})
		if !ok {
			continue
		}
		if pred.Matches(doc) {
			out = append(out, Doc{Key: key, Value: val})
		}
	}
	return out
}

// Count returns the store size when called with a nil predicate. It
// counts store.Keys(), which copies every key, so the cost is linear in
// the store size, not O(1).
func (e *Engine) Count(store StoreReader, pred *Predicate) int {
	if pred == nil {
		return len(store.Keys())
	}
	return len(e.Find(store, pred))
}
