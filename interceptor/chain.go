// Package interceptor implements the typed middleware chain of spec §9:
// "Monkey-patched method interception ... becomes a typed interceptor
// chain: writes and reads each traverse a linear pipeline of typed
// middlewares (pre-write, post-write, pre-read, post-read) that can
// transform the value or veto the operation."
//
// Grounded on bundoc/collection.go's evaluateRule call sites (a fixed
// point in Insert/Update/Delete where a rule either permits or blocks the
// operation) and on bundoc/security/encryption.go's block-transform
// shape, generalized into a reusable ordered pipeline instead of
// per-method bespoke calls.
package interceptor

import (
	"github.com/kartikbazzad/duskdb"
)

// PreWrite runs before a value is written, in registration order. It may
// transform the value (returning a replacement) or veto the write by
// returning a non-nil error.
type PreWrite func(key string, value interface{}) (interface{}, error)

// PostWrite runs after a write has committed (WAL appended, in-memory
// state updated). It cannot veto — the write already happened — but can
// observe it (audit logging, metrics, cache warming elsewhere).
type PostWrite func(key string, value interface{})

// PreRead runs before a read reaches the store. It may veto the read by
// returning a non-nil error (e.g. an authorization denial).
type PreRead func(key string) error

// PostRead runs after a value is fetched from the store. It may
// transform the value, or hide it entirely by returning keep=false (e.g.
// decrypting a value the caller isn't authorized to see renders it
// absent rather than returning ciphertext).
type PostRead func(key string, value interface{}) (transformed interface{}, keep bool, err error)

// Chain is an ordered collection of stages for each of the four
// interception points (spec §9). A zero-value Chain runs every operation
// through unmodified.
type Chain struct {
	preWrite  []PreWrite
	postWrite []PostWrite
	preRead   []PreRead
	postRead  []PostRead
}

// New returns an empty Chain.
func New() *Chain { return &Chain{} }

// UsePreWrite appends a pre-write stage.
func (c *Chain) UsePreWrite(fn PreWrite) *Chain { c.preWrite = append(c.preWrite, fn); return c }

// UsePostWrite appends a post-write stage.
func (c *Chain) UsePostWrite(fn PostWrite) *Chain { c.postWrite = append(c.postWrite, fn); return c }

// UsePreRead appends a pre-read stage.
func (c *Chain) UsePreRead(fn PreRead) *Chain { c.preRead = append(c.preRead, fn); return c }

// UsePostRead appends a post-read stage.
func (c *Chain) UsePostRead(fn PostRead) *Chain { c.postRead = append(c.postRead, fn); return c }

// Guarded wraps a *duskdb.Database so every Set/Get traverses the chain
// before and after reaching the underlying engine. It is a thin
// composition layer, not a subclass: the underlying Database is still
// reachable directly for operations the chain doesn't care about
// (indexes, collections, watchers, replication).
type Guarded struct {
	db    *duskdb.Database
	chain *Chain
}

// Wrap returns a Guarded view of db that runs every Set/Get through chain.
func Wrap(db *duskdb.Database, chain *Chain) *Guarded {
	if chain == nil {
		chain = New()
	}
	return &Guarded{db: db, chain: chain}
}

// Set runs value through every registered PreWrite stage (in order,
// each seeing the prior stage's transformed value), writes it, then runs
// every PostWrite stage.
func (g *Guarded) Set(key string, value interface{}, opt ...duskdb.SetOption) error {
	for _, pw := range g.chain.preWrite {
		v, err := pw(key, value)
		if err != nil {
			return err
		}
		value = v
	}
	if err := g.db.Set(key, value, opt...); err != nil {
		return err
	}
	for _, pw := range g.chain.postWrite {
		pw(key, value)
	}
	return nil
}

// Get runs key through every PreRead stage, fetches it, then runs the
// fetched value through every PostRead stage. A PostRead stage returning
// keep=false makes the read behave as a miss.
func (g *Guarded) Get(key string) (interface{}, bool, error) {
	for _, pr := range g.chain.preRead {
		if err := pr(key); err != nil {
			return nil, false, err
		}
	}
	value, ok := g.db.Get(key)
	if !ok {
		return nil, false, nil
	}
	for _, pr := range g.chain.postRead {
		v, keep, err := pr(key, value)
		if err != nil {
			return nil, false, err
		}
		if !keep {
			return nil, false, nil
		}
		value = v
	}
	return value, true, nil
}

// Delete passes through to the underlying database unmodified — the
// spec's interceptor redesign note names only read/write transformation,
// and a delete has no value to transform or hide.
func (g *Guarded) Delete(key string) (bool, error) { return g.db.Delete(key) }

// Database returns the wrapped database, for callers that need the full
// embedded API the chain doesn't cover.
func (g *Guarded) Database() *duskdb.Database { return g.db }
