package storage

import (
	"fmt"
	"sync"
)

// Manager is the durability coordinator of spec §4.1: it owns the
// snapshot file, the WAL, and the backup rotation, and guarantees that
// compaction never interleaves with an in-flight append (the writer
// path holds Manager's lock for the duration of rename+truncate, same
// critical section shape as spec §4.1 "Compaction... MUST NOT interleave
// with WAL appends").
//
// Grounded on bundoc/database.go's Open() sequencing (pager → WAL →
// metadata) collapsed into one type, since the spec's storage layer has
// no separate page cache to coordinate.
type Manager struct {
	base            string
	snapshotPath    string
	walPath         string
	tmpPath         string
	backupRetention int
	codec           Codec

	mu  sync.Mutex
	wal *WAL
}

// Open creates a Manager rooted at base (snapshot: base+".snapshot",
// WAL: base+".log", backups: base+".backup_<ts>", tmp: base+".tmp").
func Open(base string, codec Codec, backupRetention int) (*Manager, error) {
	if codec == nil {
		codec = IdentityCodec{}
	}
	if backupRetention <= 0 {
		backupRetention = 5
	}
	return &Manager{
		base:            base,
		snapshotPath:    base + ".snapshot",
		walPath:         base + ".log",
		tmpPath:         base + ".tmp",
		backupRetention: backupRetention,
		codec:           codec,
	}, nil
}

// RecoveryResult reports what Load found, for the caller to log.
type RecoveryResult struct {
	Store           map[string]interface{}
	TTL             map[string]int64 // key -> expiry, ms since epoch
	WALWarnings     []Warning
	RecoveredBackup string // non-empty if the snapshot was unreadable and a backup was promoted
	DegradedEmpty   bool   // true if both snapshot and every backup failed
}

// Load performs the full spec §4.1 recovery sequence: load snapshot
// (falling back to the newest intact backup, then to empty), replay the
// WAL on top of it applying the fixed put/del/clr/ttl semantics, then
// open the WAL for append. nowMillis is used to discard WAL ttl records
// whose expiry has already passed (spec: "TTL records whose expiry is
// already in the past are discarded").
//
// Replay is owned here (not delegated to a caller callback) because the
// caller cannot otherwise see the snapshot contents before WAL replay
// begins: Load both loads the snapshot and drives ReadWAL in the same
// pass, so only Manager itself can apply WAL records on top of the
// correct baseline.
func (m *Manager) Load(nowMillis int64) (*RecoveryResult, error) {
	result := &RecoveryResult{}

	store, err := LoadSnapshot(m.snapshotPath, m.codec)
	if err != nil {
		recoveredFrom, recovered, rerr := RecoverFromBackup(m.snapshotPath, m.base, m.codec)
		if rerr != nil {
			// All recovery paths exhausted: start empty, surface a
			// non-fatal warning (spec §4.1 "degraded-state warning").
			result.DegradedEmpty = true
			store = map[string]interface{}{}
		} else {
			result.RecoveredBackup = recoveredFrom
			store = recovered
		}
	}
	ttl := make(map[string]int64)

	warnings, err := ReadWAL(m.walPath, func(rec Record) error {
		switch rec.Op {
		case OpPut:
			var v interface{}
			if err := rec.Value(&v); err != nil {
				return err
			}
			store[rec.Key] = v
		case OpDel:
			delete(store, rec.Key)
			delete(ttl, rec.Key)
		case OpClr:
			store = make(map[string]interface{})
			ttl = make(map[string]int64)
		case OpTTL:
			if rec.Exp <= nowMillis {
				delete(store, rec.Key)
				delete(ttl, rec.Key)
			} else {
				ttl[rec.Key] = rec.Exp
			}
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("replay wal: %w", err)
	}
	result.Store = store
	result.TTL = ttl
	result.WALWarnings = warnings

	wal, err := OpenWAL(m.walPath)
	if err != nil {
		return result, fmt.Errorf("open wal for append: %w", err)
	}
	m.mu.Lock()
	m.wal = wal
	m.mu.Unlock()

	return result, nil
}

// Append writes one record to the WAL, fsyncing before returning (spec
// I5). Durability errors propagate to the caller of the triggering
// mutation; the caller must not update in-memory state unless this
// returns nil.
func (m *Manager) Append(r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.wal == nil {
		return fmt.Errorf("wal not open")
	}
	return m.wal.Append(r)
}

// Compact atomically replaces the snapshot with store and truncates the
// WAL (spec §4.1 "Compaction"). The caller is expected to hold its own
// higher-level write lock (the store's single-writer critical section)
// so no concurrent Append can race the rename+truncate; Manager's own
// mutex additionally serializes Compact against itself and against
// direct Append callers that bypass the higher-level lock (e.g. tests).
func (m *Manager) Compact(store map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := BackupNow(m.snapshotPath, m.base, m.backupRetention); err != nil {
		return fmt.Errorf("backup before compaction: %w", err)
	}
	if err := WriteSnapshotAtomic(m.snapshotPath, m.tmpPath, store, m.codec); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if m.wal != nil {
		if err := m.wal.Truncate(); err != nil {
			return fmt.Errorf("truncate wal: %w", err)
		}
	}
	return nil
}

// WALSize returns the current WAL file size, used by tests asserting
// compaction shrank it to (near) zero (spec scenario S4).
func (m *Manager) WALSize() (int64, error) {
	m.mu.Lock()
	wal := m.wal
	m.mu.Unlock()
	if wal == nil {
		return 0, fmt.Errorf("wal not open")
	}
	return wal.Size()
}

// Close closes the WAL file handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.wal == nil {
		return nil
	}
	return m.wal.Close()
}
