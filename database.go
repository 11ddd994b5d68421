package duskdb

import (
	"sync"
	"time"

	"github.com/kartikbazzad/duskdb/errs"
	"github.com/kartikbazzad/duskdb/index"
	"github.com/kartikbazzad/duskdb/internal/storage"
	"github.com/kartikbazzad/duskdb/query"
)

// Database is the embeddable document store: the single-writer critical
// section of spec §5 wrapped around the WAL/snapshot durability layer,
// the in-memory map + cache + TTL table, the index manager, and the
// watcher/event registries.
//
// Grounded on bundoc/database.go's role as top-level coordinator; its
// pager/buffer-pool/MVCC/B+Tree fields are replaced by internal/storage's
// flat Manager and an in-process map, since this engine has no paged
// on-disk representation.
type Database struct {
	opts   Options
	logger logger

	mu   sync.Mutex // the writer critical section (spec §5)
	data map[string]interface{}
	ttl  map[string]int64 // key -> expiry, ms since epoch

	cache     *lruCache
	watchers  *watchRegistry
	events    *eventBus
	indexes   *index.Manager
	queryEng  *query.Engine
	stats     statCounters
	mgr       *storage.Manager
	writeHook  func(key string, newValue, oldValue interface{}, hasNew, hasOld bool)
	writeGuard func() error

	initialized bool
	closed      bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// logger is the narrow structured-logging surface Database needs;
// satisfied by zerolog.Logger without importing it into every file that
// only logs.
type logger interface {
	Info() logEvent
	Warn() logEvent
	Error() logEvent
}

type logEvent interface {
	Str(key, value string) logEvent
	Err(err error) logEvent
	Msg(msg string)
}

// New allocates a Database in the "not initialized" state (spec
// NotReady): Init (or Open) must run before Set/Delete/Clear/CreateIndex
// accept calls. Get does not check readiness.
func New(opts *Options) *Database {
	if opts == nil {
		opts = DefaultOptions("duskdb")
	}
	o := *opts
	o.normalize()
	return &Database{
		opts:     o,
		logger:   zerologAdapter{o.Logger},
		data:     make(map[string]interface{}),
		ttl:      make(map[string]int64),
		cache:    newLRUCache(o.CacheCapacity),
		watchers: newWatchRegistry(),
		events:   newEventBus(),
		indexes:  index.NewManager(),
		stopCh:   make(chan struct{}),
	}
}

// Open allocates and initializes a Database in one call, mirroring
// bundoc/database.go's Open(opts) constructor.
func Open(opts *Options) (*Database, error) {
	d := New(opts)
	if err := d.Init(); err != nil {
		return nil, err
	}
	return d, nil
}

// Init performs the spec §4.1 recovery sequence, publishes a fully
// built query engine over the recovered store, and starts the TTL
// sweep and compaction background tasks. Init is idempotent-unsafe by
// design: call it exactly once per Database value.
func (d *Database) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	mgr, err := storage.Open(d.opts.Path, storage.CodecByName(d.opts.SnapshotCodec), d.opts.BackupRetention)
	if err != nil {
		return errs.New(errs.Corruption, "open storage manager", err)
	}
	d.mgr = mgr

	result, err := mgr.Load(time.Now().UnixMilli())
	if err != nil {
		return errs.New(errs.Corruption, "recover storage", err)
	}
	d.data = result.Store
	d.ttl = result.TTL
	if d.data == nil {
		d.data = make(map[string]interface{})
	}
	if d.ttl == nil {
		d.ttl = make(map[string]int64)
	}

	for _, w := range result.WALWarnings {
		d.logger.Warn().Str("component", "recovery").Msg(w.Reason)
	}
	if result.DegradedEmpty {
		d.logger.Warn().Str("component", "recovery").Msg("snapshot and all backups unreadable; starting from an empty store")
	} else if result.RecoveredBackup != "" {
		d.logger.Warn().Str("component", "recovery").Str("backup", result.RecoveredBackup).Msg("recovered snapshot from backup")
	}

	d.queryEng = query.NewEngine(d.indexes)
	d.initialized = true

	d.wg.Add(2)
	go d.ttlSweepLoop()
	go d.compactionLoop()

	d.events.emit(EventReady, result)
	return nil
}

// Close stops background tasks, flushes the WAL file handle, and marks
// the database unusable for further store operations.
func (d *Database) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()

	d.events.emit(EventClose, nil)
	if d.mgr != nil {
		return d.mgr.Close()
	}
	return nil
}

func (d *Database) ready() bool {
	return d.initialized && !d.closed
}

func (d *Database) ttlSweepLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.opts.TTLSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.sweepExpired()
		}
	}
}

func (d *Database) sweepExpired() {
	now := time.Now().UnixMilli()
	d.mu.Lock()
	var expired []string
	for k, exp := range d.ttl {
		if exp <= now {
			expired = append(expired, k)
		}
	}
	d.mu.Unlock()

	// Each expired key follows the full delete path (WAL, events,
	// indexes) per spec §4.2 "Deletion through the sweep follows the
	// full delete path" — delete() takes its own lock per call.
	for _, k := range expired {
		if _, err := d.Delete(k); err != nil {
			d.logger.Error().Str("component", "ttl-sweep").Str("key", k).Err(err).Msg("sweep delete failed")
		}
	}
}

func (d *Database) compactionLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.opts.SaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			if err := d.Compact(); err != nil {
				d.logger.Error().Str("component", "compaction").Err(err).Msg("compaction failed")
			}
		}
	}
}

// Compact snapshots the current store and truncates the WAL (spec §4.1
// "Compaction"). Holds the writer critical section for the duration of
// the rename+truncate so no concurrent Set/Delete can interleave with it.
func (d *Database) Compact() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	snapshot := make(map[string]interface{}, len(d.data))
	for k, v := range d.data {
		snapshot[k] = v
	}
	if err := d.mgr.Compact(snapshot); err != nil {
		return errs.New(errs.Durability, "compact storage", err)
	}
	return nil
}

// WithWriteHook registers a hook invoked (under the writer critical
// section, after state + WAL have committed) with every set/delete —
// used by the replication controller to broadcast mutations without the
// store depending on the replication package directly.
func (d *Database) WithWriteHook(fn func(key string, newValue, oldValue interface{}, hasNew, hasOld bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeHook = fn
}

// WithWriteGuard installs a gate checked at the top of every public Set
// and Delete call; a non-nil return rejects the write (spec §4.6 "A
// replica MUST reject local writes that originate from its own public
// write API"). Replication-channel writes use ApplyReplicatedSet/
// ApplyReplicatedDelete, which bypass the guard entirely.
func (d *Database) WithWriteGuard(fn func() error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeGuard = fn
}
