package storage

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// WAL is the append-only write-ahead log described in spec §4.1: one
// self-delimited JSON record per line, synced before Append returns so
// spec invariant I5 ("no operation acknowledged as durable before its
// WAL record is persisted") holds without a group-commit window.
//
// Grounded on bundoc/internal/wal.WAL's role as "the main coordinator
// managing... appends", with the teacher's segment-rotation machinery
// dropped in favor of the spec's single `<base>.log` file that Compact
// truncates in place.
type WAL struct {
	path string
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
}

// OpenWAL opens (creating if absent) the WAL file at path for append.
func OpenWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open wal %s: %w", path, err)
	}
	return &WAL{
		path: path,
		file: f,
		w:    bufio.NewWriter(f),
	}, nil
}

// Append writes one record as a line and fsyncs before returning.
// A failed append must not be followed by an in-memory state change by
// the caller (spec §4.1 "Failure semantics").
func (w *WAL) Append(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	line, err := r.Encode()
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	line = append(line, '\n')

	if _, err := w.w.Write(line); err != nil {
		return fmt.Errorf("write wal record: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush wal: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync wal: %w", err)
	}
	return nil
}

// Truncate resets the WAL to empty — used by Compact once the
// corresponding snapshot rename has committed.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate wal: %w", err)
	}
	if _, err := w.file.Seek(0, 0); err != nil {
		return fmt.Errorf("seek wal: %w", err)
	}
	w.w = bufio.NewWriter(w.file)
	return nil
}

// Close flushes and closes the underlying file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// Size returns the current on-disk size of the WAL file, used by tests
// to assert compaction actually truncated it (spec scenario S4).
func (w *WAL) Size() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := w.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
