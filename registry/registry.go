// Package registry implements the spec §9 redesign of "globally mutable
// singletons" (the quickdb-compatibility shim's module-level database
// instance): "become an explicit named store registry created at program
// start; host code looks up a store by name rather than relying on
// module-level state."
//
// No teacher analogue exists for this (bundoc has no singleton shim);
// built directly from the spec's description.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kartikbazzad/duskdb"
)

// Registry is a concurrency-safe name -> *duskdb.Database map. Unlike a
// package-level singleton, a Registry is an explicit value a host
// constructs and passes around (or wires through dependency injection);
// nothing about it is implicitly global.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]*duskdb.Database
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{stores: make(map[string]*duskdb.Database)}
}

// Register adds db under name. It returns an error if name is already
// registered — callers that want to replace an entry must Remove it
// first, making replacement an explicit act rather than a silent
// overwrite.
func (r *Registry) Register(name string, db *duskdb.Database) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stores[name]; exists {
		return fmt.Errorf("registry: store %q already registered", name)
	}
	r.stores[name] = db
	return nil
}

// Get looks up the store registered under name.
func (r *Registry) Get(name string) (*duskdb.Database, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	db, ok := r.stores[name]
	return db, ok
}

// Remove unregisters name, returning false if it wasn't present. The
// caller remains responsible for closing the underlying database; the
// registry only tracks the mapping.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[name]; !ok {
		return false
	}
	delete(r.stores, name)
	return true
}

// Names returns every registered store name, sorted for deterministic
// iteration.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.stores))
	for name := range r.stores {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CloseAll closes every registered store without stopping at a failing
// Close, and returns the first error encountered; later errors are not
// returned.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for name, db := range r.stores {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("registry: close %q: %w", name, err)
		}
	}
	return firstErr
}
