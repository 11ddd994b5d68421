// Package index implements the secondary-index layer of spec §4.3: hash,
// range, and text indexes kept transactionally in sync with store writes,
// plus the batched/cooperative build path used when an index is created
// over an already-populated store.
//
// Grounded on bundoc/storage/index.go's ordered-structure technique (a
// sorted sequence plus a value→keys map, used here for the range index's
// in-memory equivalent) and on bundoc/collection.go's secondary-index
// maintenance diffing (remove the old projection, add the new one, skip
// silently on type mismatch).
package index

// Kind identifies which index structure backs a field.
type Kind string

const (
	KindHash  Kind = "hash"
	KindRange Kind = "range"
	KindText  Kind = "text"
)

// Info is a read-only description of a registered index, for listIndexes.
type Info struct {
	Field string
	Kind  Kind
	Ready bool
	Size  int
}

// structure is the minimal contract every concrete index kind satisfies.
// Add reports whether value was type-compatible with this kind (spec
// "type-incompatible values silently skip the index").
type structure interface {
	add(key string, value interface{}) bool
	remove(key string, value interface{})
	size() int
}

type bufferedOp struct {
	key              string
	newVal, oldVal   interface{}
	hasNew, hasOld   bool
}

type entry struct {
	field   string
	kind    Kind
	store   structure
	ready   bool
	buffer  []bufferedOp
}

// Manager coordinates every secondary index registered on a store.
// It takes no lock of its own (see NewManager): callers serialize access.
type Manager struct {
	entries map[string]*entry
}

// NewManager returns an empty index manager.
//
// Manager itself does not take its own lock: per spec §5 all mutation
// (CreateIndex/DropIndex/Maintain) happens inside the store's writer
// critical section, and the store serializes concurrent callers upstream.
// Read-only methods (Get/ListIndexes) are called from the same critical
// section or from read paths that tolerate the store's own consistency
// discipline; Manager adds no additional locking on top of that.
func NewManager() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

// CreateIndex registers a new index on field, in the "building" state: it
// accepts writes (buffered, not yet queryable) until Publish is called.
// Returns false if an index already exists on that field.
func (m *Manager) CreateIndex(field string, kind Kind) bool {
	if _, exists := m.entries[field]; exists {
		return false
	}
	var s structure
	switch kind {
	case KindHash:
		s = newHashIndex()
	case KindRange:
		s = newRangeIndex()
	case KindText:
		s = newTextIndex()
	default:
		return false
	}
	m.entries[field] = &entry{field: field, kind: kind, store: s}
	return true
}

// Build populates a building index from an existing store snapshot in
// batches, calling yield after each batch so the caller can cooperatively
// reschedule or check a cancellation token (spec §4.3 "Creation"). Writes
// that arrive via Maintain while an index is building are buffered and
// replayed by Publish, so the index never misses a concurrent mutation.
func (m *Manager) Build(field string, snapshot map[string]interface{}, batchSize int, yield func() bool) {
	e, ok := m.entries[field]
	if !ok || e.ready {
		return
	}
	if batchSize <= 0 {
		batchSize = 256
	}
	count := 0
	for key, value := range snapshot {
		if projected, ok := project(value, field); ok {
			e.store.add(key, projected)
		}
		count++
		if count%batchSize == 0 {
			if yield != nil && !yield() {
				return // cancelled mid-build: index stays unpublished, discarded by caller
			}
		}
	}
}

// Publish replays buffered writes accumulated during Build and marks the
// index ready for query dispatch. Call after Build completes without
// cancellation.
func (m *Manager) Publish(field string) {
	e, ok := m.entries[field]
	if !ok {
		return
	}
	for _, op := range e.buffer {
		applyMaintenance(e.store, e.field, op)
	}
	e.buffer = nil
	e.ready = true
}

// Discard abandons a build in progress (e.g. on cancellation), dropping
// both the partial index and its buffered writes.
func (m *Manager) Discard(field string) {
	delete(m.entries, field)
}

// DropIndex removes a fully published or in-progress index.
func (m *Manager) DropIndex(field string) bool {
	if _, ok := m.entries[field]; !ok {
		return false
	}
	delete(m.entries, field)
	return true
}

// ListIndexes reports every registered index, building or ready.
func (m *Manager) ListIndexes() []Info {
	out := make([]Info, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, Info{Field: e.field, Kind: e.kind, Ready: e.ready, Size: e.store.size()})
	}
	return out
}

// Maintain is called once per store write with the key and its old/new
// values (either may be nil meaning "absent"). For every registered index
// it removes the stale projection and adds the fresh one; a building
// index instead buffers the op for replay at Publish time.
func (m *Manager) Maintain(key string, newValue, oldValue interface{}, hasNew, hasOld bool) {
	for field, e := range m.entries {
		if !e.ready {
			e.buffer = append(e.buffer, bufferedOp{key: key, newVal: newValue, oldVal: oldValue, hasNew: hasNew, hasOld: hasOld})
			continue
		}
		applyMaintenance(e.store, field, bufferedOp{key: key, newVal: newValue, oldVal: oldValue, hasNew: hasNew, hasOld: hasOld})
	}
}

func applyMaintenance(s structure, field string, op bufferedOp) {
	if op.hasOld {
		if old, ok := project(op.oldVal, field); ok {
			s.remove(op.key, old)
		}
	}
	if op.hasNew {
		if fresh, ok := project(op.newVal, field); ok {
			s.add(op.key, fresh)
		}
	}
}

func project(value interface{}, field string) (interface{}, bool) {
	return Project(value, field)
}

// Handle exposes the kind-specific query surface of a ready index to the
// query package, without leaking the building/buffering machinery.
type Handle struct {
	Kind  Kind
	Hash  *HashIndex
	Range *RangeIndex
	Text  *TextIndex
}

// Get returns a query handle for field if an index is registered and has
// finished building (ready for dispatch).
func (m *Manager) Get(field string) (Handle, bool) {
	e, ok := m.entries[field]
	if !ok || !e.ready {
		return Handle{}, false
	}
	switch v := e.store.(type) {
	case *HashIndex:
		return Handle{Kind: KindHash, Hash: v}, true
	case *RangeIndex:
		return Handle{Kind: KindRange, Range: v}, true
	case *TextIndex:
		return Handle{Kind: KindText, Text: v}, true
	}
	return Handle{}, false
}
