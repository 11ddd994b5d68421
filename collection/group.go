package collection

import (
	"path/filepath"
	"strings"

	"github.com/kartikbazzad/duskdb"
	"github.com/kartikbazzad/duskdb/index"
	"github.com/kartikbazzad/duskdb/query"
)

// Group is a cross-collection secondary index keyed by a glob pattern
// over collection names plus a field (spec §E.2, recovered from
// bundoc/database.go's EnsureGroupIndex/FindInGroup). It lets a caller
// query "all documents across every collection matching users-* where
// status == active" without a per-collection scan.
//
// Because this engine's index.Manager indexes a single flat store
// rather than a per-collection B+Tree, a group index here is simply the
// ordinary field index plus a pattern filter applied over the matched
// documents' collection-name prefix.
type Group struct {
	store   *duskdb.Database
	pattern string
}

// NewGroup returns a Group over every collection whose name matches
// pattern (a filepath.Match glob, e.g. "users-*").
func NewGroup(store *duskdb.Database, pattern string) *Group {
	return &Group{store: store, pattern: pattern}
}

// EnsureIndex builds the backing field index, shared with any other
// Group or Collection querying the same field.
func (g *Group) EnsureIndex(field string, kind index.Kind) error {
	return g.store.CreateIndex(field, kind)
}

// splitKey separates a raw store key of the form "<collection>::<id>"
// into its two parts.
func splitKey(key string) (collection, id string, ok bool) {
	idx := strings.Index(key, "::")
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+len("::"):], true
}

// Find runs an indexed equality/range/membership lookup on field across
// every collection matching the group's pattern (spec §E.2 "FindInGroup").
func (g *Group) Find(field string, op query.Operator, value interface{}) []map[string]interface{} {
	result := g.store.Where(field, op, value)
	var out []map[string]interface{}
	for _, doc := range result.All() {
		collName, _, ok := splitKey(doc.Key)
		if !ok {
			continue
		}
		if matched, _ := filepath.Match(g.pattern, collName); !matched {
			continue
		}
		m, ok := doc.Value.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Scan performs a scatter-gather match of a full Mongo-style query map
// across every collection matching the group's pattern, used when no
// field index covers the query (spec §E.2 "scanGroup" fallback).
func (g *Group) Scan(q map[string]interface{}) ([]map[string]interface{}, error) {
	matcher, err := query.Parse(q)
	if err != nil {
		return nil, err
	}
	var out []map[string]interface{}
	for _, key := range g.store.Keys() {
		collName, _, ok := splitKey(key)
		if !ok {
			continue
		}
		if matched, _ := filepath.Match(g.pattern, collName); !matched {
			continue
		}
		raw, ok := g.store.Get(key)
		if !ok {
			continue
		}
		doc, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if matcher.Matches(doc) {
			out = append(out, cloneDoc(doc))
		}
	}
	return out, nil
}
