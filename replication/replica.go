package replication

import (
	"sync"
	"time"

	"github.com/kartikbazzad/duskdb"
	"github.com/kartikbazzad/duskdb/errs"
)

// errConstraintViolation is returned when a replica rejects a write
// (spec §7 ConstraintViolation: "replica rejected a local write").
var errConstraintViolation = errs.New(errs.ConstraintViolation, "replica rejects local writes; use the replication channel", nil)

// ConflictHook lets a host supply a custom resolution strategy for a
// detected conflict (spec §4.6 "If a caller-supplied onConflict(local,
// remote, op) function is configured, use its return value as the new
// value"). Returning ok=false falls through to last-writer-wins-remote.
type ConflictHook func(local, remote interface{}, op Op) (resolved interface{}, ok bool)

// Replica applies inbound mutations from a primary through the wrapped
// database's replication-channel pipeline (ApplyReplicatedSet/Delete),
// detecting write conflicts against its own last local write timestamp
// per key and resolving them per spec §4.6.
//
// Grounded on replication/primary.go's shape (a controller wrapping a
// *duskdb.Database, installed via a hook rather than a subclass) mirrored
// for the receiving side; the conflict-detection/resolution logic itself
// is new, grounded directly on spec §4.6 and scenario S5 since the
// teacher's replication is consensus-based and has no LWW conflict path.
type Replica struct {
	db       *duskdb.Database
	nodeID   string
	onConflict ConflictHook
	conflicts *conflictLog
	logger   logger

	mu          sync.Mutex
	lastLocalTs map[string]int64 // key -> newest ts from RecordLocalWrite or an applied op
}

// NewReplica wraps db in replica role: it installs a write guard that
// rejects calls through the public Set/Delete API (spec §4.6 "A replica
// MUST reject local writes that originate from its own public write
// API") while still tracking local-write timestamps for any write that
// does land through ApplyReplicatedSet/Delete via RecordLocalWrite, so a
// host embedding a replica for local testing can simulate a genuine
// local write ahead of an incoming conflicting op (see scenario S5).
func NewReplica(db *duskdb.Database, nodeID string) *Replica {
	r := &Replica{
		db:          db,
		nodeID:      nodeID,
		conflicts:   newConflictLog(),
		logger:      nopLogger{},
		lastLocalTs: make(map[string]int64),
	}
	db.WithWriteGuard(r.rejectLocalWrite)
	return r
}

// WithLogger installs a logger used for apply warnings.
func (r *Replica) WithLogger(l logger) { r.logger = l }

// WithConflictHook installs a caller-supplied conflict resolver (spec
// §4.6 "onConflict(local, remote, op)").
func (r *Replica) WithConflictHook(fn ConflictHook) { r.onConflict = fn }

// rejectLocalWrite is installed as the database's write guard.
func (r *Replica) rejectLocalWrite() error {
	return errConstraintViolation
}

// RecordLocalWrite marks key as locally written at ts, ahead of any
// ApplyOp call, so a subsequent inbound op with an older timestamp is
// recognised as a conflict (spec §4.6, scenario S5: "Replica locally
// writes x=2 at t=100"). A replica's only legitimate local write path is
// through its own replication channel (e.g. a local admin override
// applied via ApplyReplicatedSet before the primary's broadcast lands),
// so hosts that perform such overrides call this alongside it.
func (r *Replica) RecordLocalWrite(key string, ts int64) {
	if isInternal(key) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLocalTs[key] = ts
}

// ApplyOp applies an inbound mutation from the primary (spec §6
// "applyOp(op) (replica only)"). Keys beginning with "_" are rejected
// per spec §4.6 ("never accepted over the replication channel").
func (r *Replica) ApplyOp(op Op) error {
	if isInternal(op.Key) {
		return errConstraintViolation
	}

	r.mu.Lock()
	localTs, hadLocal := r.lastLocalTs[op.Key]
	r.mu.Unlock()

	value := op.Value
	resolution := ""
	if hadLocal && localTs > op.Ts {
		local, _ := r.db.Get(op.Key)
		resolved, handled := value, false
		if r.onConflict != nil {
			if v, ok := r.onConflict(local, op.Value, op); ok {
				resolved, handled = v, true
			}
		}
		if !handled {
			// Last-writer-wins with remote preferred: the primary is the
			// source of truth (spec §4.6 resolution order, step 2).
			resolved = op.Value
			resolution = "lww_remote"
		} else {
			resolution = "hook"
		}
		value = resolved
		r.conflicts.record(Conflict{
			Timestamp:   time.Now(),
			Key:         op.Key,
			LocalValue:  local,
			RemoteValue: op.Value,
			LocalTs:     localTs,
			RemoteTs:    op.Ts,
			Resolution:  resolution,
		})
	}

	var err error
	switch op.Op {
	case OpSet:
		err = r.db.ApplyReplicatedSet(op.Key, value)
	case OpDelete:
		_, err = r.db.ApplyReplicatedDelete(op.Key)
	default:
		return errConstraintViolation
	}
	if err != nil {
		r.logger.Warn(op.NodeID, err)
		return err
	}

	r.mu.Lock()
	if !hadLocal || op.Ts > localTs {
		r.lastLocalTs[op.Key] = op.Ts
	}
	r.mu.Unlock()
	return nil
}

// Conflicts returns the bounded conflict log accumulated so far (spec
// §4.6 "capped at 100 most recent entries").
func (r *Replica) Conflicts() []Conflict {
	return r.conflicts.Snapshot()
}
