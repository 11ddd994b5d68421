// Package storage implements the write-ahead log and snapshot durability
// layer described in spec §4.1: an append-only, line-delimited WAL backed
// by a periodically compacted snapshot file, with atomic rename as the
// commit point and bounded backup retention.
//
// The on-disk record format is a deliberate departure from the teacher's
// (bundoc/internal/wal) segmented binary log: the spec mandates a single
// self-describing line per record, so replay and crash-recovery tooling
// can `tail`/`grep` the log directly.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Op identifies the kind of mutation a WAL record represents.
type Op string

const (
	OpPut Op = "put"
	OpDel Op = "del"
	OpClr Op = "clr"
	OpTTL Op = "ttl"
)

// Record is a single WAL line: {"op":"put","k":"...","v":...,"exp":...}.
// Exp is milliseconds since epoch, only present for OpTTL.
type Record struct {
	Op  Op              `json:"op"`
	Key string          `json:"k,omitempty"`
	Val json.RawMessage `json:"v,omitempty"`
	Exp int64           `json:"exp,omitempty"`
}

// NewPutRecord builds a put record, marshaling value to JSON.
func NewPutRecord(key string, value interface{}) (Record, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Record{}, fmt.Errorf("marshal value for key %q: %w", key, err)
	}
	return Record{Op: OpPut, Key: key, Val: raw}, nil
}

// NewDelRecord builds a delete record.
func NewDelRecord(key string) Record {
	return Record{Op: OpDel, Key: key}
}

// NewClrRecord builds a clear-all record.
func NewClrRecord() Record {
	return Record{Op: OpClr}
}

// NewTTLRecord builds a TTL record carrying an absolute expiry in ms.
func NewTTLRecord(key string, expMillis int64) Record {
	return Record{Op: OpTTL, Key: key, Exp: expMillis}
}

// Encode renders the record as a single line (no trailing newline).
func (r Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRecord parses one WAL line. Malformed lines return an error so the
// caller (recovery.go) can skip and warn rather than abort replay.
func DecodeRecord(line []byte) (Record, error) {
	line = bytes.TrimSpace(line)
	var r Record
	if len(line) == 0 {
		return r, fmt.Errorf("empty line")
	}
	if err := json.Unmarshal(line, &r); err != nil {
		return r, fmt.Errorf("decode record: %w", err)
	}
	switch r.Op {
	case OpPut, OpDel, OpClr, OpTTL:
	default:
		return r, fmt.Errorf("unknown op %q", r.Op)
	}
	if r.Op != OpClr && r.Key == "" {
		return r, fmt.Errorf("missing key for op %q", r.Op)
	}
	return r, nil
}

// Value unmarshals the record's raw JSON value into v.
func (r Record) Value(v interface{}) error {
	if len(r.Val) == 0 {
		return nil
	}
	return json.Unmarshal(r.Val, v)
}
