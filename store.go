package duskdb

import (
	"time"

	"github.com/kartikbazzad/duskdb/errs"
	"github.com/kartikbazzad/duskdb/index"
	"github.com/kartikbazzad/duskdb/internal/storage"
	"github.com/kartikbazzad/duskdb/query"
)

// SetOption configures an individual Set call.
type SetOption struct {
	TTL time.Duration
}

// Set writes key=value through the full write pipeline: WAL put (then
// WAL ttl, if a TTL was given) → map update → cache update → index
// update → event emit → watcher fan-out → replication broadcast, all
// inside the single writer critical section (spec §4.2/§5).
//
// A database running in replica role rejects Set through its
// write guard (spec §4.6 "A replica MUST reject local writes that
// originate from its own public write API") — see WithWriteGuard and
// ApplyReplicatedSet.
func (d *Database) Set(key string, value interface{}, opt ...SetOption) error {
	if !d.ready() {
		return errs.New(errs.NotReady, "engine not initialized", nil)
	}
	if d.writeGuard != nil {
		if err := d.writeGuard(); err != nil {
			return err
		}
	}
	var ttl time.Duration
	if len(opt) > 0 {
		ttl = opt[0].TTL
	}
	return d.setLocked(key, value, ttl)
}

// ApplyReplicatedSet applies an incoming replication Set, bypassing the
// write guard a replica installs over the public Set method (spec §4.6
// "may still accept system writes through the replication channel").
func (d *Database) ApplyReplicatedSet(key string, value interface{}) error {
	if !d.ready() {
		return errs.New(errs.NotReady, "engine not initialized", nil)
	}
	return d.setLocked(key, value, 0)
}

func (d *Database) setLocked(key string, value interface{}, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	old, hadOld := d.data[key]

	rec, err := storage.NewPutRecord(key, value)
	if err != nil {
		return errs.New(errs.Validation, "encode value", err)
	}
	if err := d.mgr.Append(rec); err != nil {
		return errs.New(errs.Durability, "wal append failed", err)
	}

	d.data[key] = value
	d.cache.set(key, value)
	delete(d.ttl, key) // a bare set clears any existing TTL (spec §4.2)

	if ttl > 0 {
		exp := time.Now().Add(ttl).UnixMilli()
		if err := d.mgr.Append(storage.NewTTLRecord(key, exp)); err != nil {
			return errs.New(errs.Durability, "wal ttl append failed", err)
		}
		d.ttl[key] = exp
	}

	d.stats.recordWrite()
	d.indexes.Maintain(key, value, old, true, hadOld)
	d.events.emit(EventSet, SetEventData{Key: key, Value: value, Old: old, HadOld: hadOld})
	d.watchers.notify(key, value, old, true, hadOld)
	if d.writeHook != nil {
		d.writeHook(key, value, old, true, hadOld)
	}
	return nil
}

// Get reads key, promoting through the LRU cache on hit and populating
// it on miss (spec §4.2 "get(key): O(1); cache hit promotes the entry;
// cache miss reads from map and populates cache").
func (d *Database) Get(key string) (interface{}, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.recordRead()
	if v, ok := d.cache.get(key); ok {
		d.stats.recordHit()
		return v, true
	}
	d.stats.recordMiss()
	v, ok := d.data[key]
	if !ok {
		return nil, false
	}
	d.cache.set(key, v)
	return v, true
}

// Delete removes key, returning false (not an error) if it was already
// absent (spec §7 NotFound: "delete returns false, get returns absence,
// not error"). Subject to the same replica write guard as Set.
func (d *Database) Delete(key string) (bool, error) {
	if !d.ready() {
		return false, errs.New(errs.NotReady, "engine not initialized", nil)
	}
	if d.writeGuard != nil {
		if err := d.writeGuard(); err != nil {
			return false, err
		}
	}
	return d.deleteLocked(key)
}

// ApplyReplicatedDelete applies an incoming replication Delete, bypassing
// the replica write guard (spec §4.6).
func (d *Database) ApplyReplicatedDelete(key string) (bool, error) {
	if !d.ready() {
		return false, errs.New(errs.NotReady, "engine not initialized", nil)
	}
	return d.deleteLocked(key)
}

func (d *Database) deleteLocked(key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	old, exists := d.data[key]
	if !exists {
		return false, nil
	}

	if err := d.mgr.Append(storage.NewDelRecord(key)); err != nil {
		return false, errs.New(errs.Durability, "wal append failed", err)
	}

	delete(d.data, key)
	d.cache.delete(key)
	delete(d.ttl, key)

	d.stats.recordWrite()
	d.indexes.Maintain(key, nil, old, false, true)
	d.events.emit(EventDelete, DeleteEventData{Key: key, Old: old})
	d.watchers.notify(key, nil, old, false, true)
	if d.writeHook != nil {
		d.writeHook(key, nil, old, false, true)
	}
	return true, nil
}

// Has reports whether key currently has a value, without touching the
// cache or stats counters.
func (d *Database) Has(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.data[key]
	return ok
}

// All returns a snapshot copy of every key/value pair currently stored.
func (d *Database) All() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]interface{}, len(d.data))
	for k, v := range d.data {
		out[k] = v
	}
	return out
}

// Keys implements query.StoreReader.
func (d *Database) Keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.data))
	for k := range d.data {
		out = append(out, k)
	}
	return out
}

// Clear writes a clr WAL record and resets the map, cache, and TTL table.
// Per spec §4.2, watcher notifications are not required for clear.
func (d *Database) Clear() error {
	if !d.ready() {
		return errs.New(errs.NotReady, "engine not initialized", nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.mgr.Append(storage.NewClrRecord()); err != nil {
		return errs.New(errs.Durability, "wal append failed", err)
	}
	d.data = make(map[string]interface{})
	d.ttl = make(map[string]int64)
	d.cache.clear()
	d.stats.recordWrite()
	d.events.emit(EventClear, nil)
	return nil
}

// Watch subscribes fn to per-key set/delete notifications.
func (d *Database) Watch(key string, fn WatchFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.watchers.watch(key, fn)
}

// Unwatch removes fn from key's subscriber list, or every subscriber for
// key if fn is nil.
func (d *Database) Unwatch(key string, fn WatchFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.watchers.unwatch(key, fn)
}

// On subscribes fn to every event named name (spec §4.2 event taxonomy).
func (d *Database) On(name string, fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events.on(name, fn)
}

// CreateIndex registers and builds a secondary index on field, scanning
// the current store in cooperative batches (spec §4.3 "Creation").
func (d *Database) CreateIndex(field string, kind index.Kind) error {
	if !d.ready() {
		return errs.New(errs.NotReady, "engine not initialized", nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.indexes.CreateIndex(field, kind) {
		return errs.New(errs.Validation, "index already exists on field "+field, nil)
	}
	snapshot := make(map[string]interface{}, len(d.data))
	for k, v := range d.data {
		snapshot[k] = v
	}
	d.indexes.Build(field, snapshot, 256, func() bool { return true })
	d.indexes.Publish(field)
	d.logger.Info().Str("component", "index").Str("field", field).Msg("index built")
	return nil
}

// DropIndex removes a secondary index.
func (d *Database) DropIndex(field string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.indexes.DropIndex(field)
}

// ListIndexes reports every registered index.
func (d *Database) ListIndexes() []index.Info {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.indexes.ListIndexes()
}

// Where compiles a field/op/value query and dispatches it through an
// index when possible, falling back to a full scan otherwise.
func (d *Database) Where(field string, op query.Operator, value interface{}) query.Result {
	pred := d.queryEng.Where(field, op, value)
	return query.NewResult(d.queryEng.Find(d, pred))
}

// Find runs a caller-supplied predicate over every stored (key, value)
// pair (spec §4.4 "find(predicate)").
func (d *Database) Find(predicate func(key string, value interface{}) bool) query.Result {
	return query.NewResult(d.queryEng.FindFunc(d, predicate))
}

// Stats reports the read/write/cache counters and current sizes (spec
// §6 Stats surface).
func (d *Database) Stats() Stats {
	reads, writes, hits, misses := d.stats.snapshot()
	d.mu.Lock()
	size := len(d.data)
	ttlCount := len(d.ttl)
	d.mu.Unlock()

	var hitRate float64
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}
	return Stats{
		Reads: reads, Writes: writes, Hits: hits, Misses: misses,
		HitRate: hitRate, Size: size, TTLCount: ttlCount,
	}
}
