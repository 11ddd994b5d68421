package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// LoadSnapshot reads the snapshot file at path into a generic K→V map.
// A missing file is an empty store (spec §4.1 recovery step 1), not an
// error. A present-but-unreadable file returns an error so the caller
// (Manager.Load) can fall back to the newest backup.
func LoadSnapshot(path string, codec Codec) (map[string]interface{}, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	plain, err := codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}

	var store map[string]interface{}
	if err := json.Unmarshal(plain, &store); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return store, nil
}

// WriteSnapshotAtomic serializes store to a tmp file and renames it over
// the live snapshot path — rename is the commit point (spec §4.1). A
// process death between write and rename leaves the old snapshot intact,
// and a stray tmp file from a prior failed attempt is silently
// overwritten on the next call.
func WriteSnapshotAtomic(path, tmpPath string, store map[string]interface{}, codec Codec) error {
	plain, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	encoded, err := codec.Encode(plain)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.WriteFile(tmpPath, encoded, 0644); err != nil {
		return fmt.Errorf("write snapshot tmp %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}

// BackupNow copies the current snapshot to a timestamped backup file and
// prunes older backups beyond retention. A missing snapshot (nothing to
// back up yet) is not an error.
func BackupNow(snapshotPath, base string, retention int) error {
	data, err := os.ReadFile(snapshotPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot for backup: %w", err)
	}

	backupPath := base + ".backup_" + time.Now().UTC().Format("20060102T150405.000000000Z")
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return fmt.Errorf("write backup %s: %w", backupPath, err)
	}
	return pruneBackups(base, retention)
}

func pruneBackups(base string, retention int) error {
	if retention <= 0 {
		retention = 5
	}
	matches, err := filepath.Glob(base + ".backup_*")
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}
	if len(matches) <= retention {
		return nil
	}
	sort.Strings(matches) // ISO8601 suffixes sort lexically == chronologically
	toRemove := matches[:len(matches)-retention]
	for _, p := range toRemove {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune backup %s: %w", p, err)
		}
	}
	return nil
}

// RecoverFromBackup copies the most recent intact backup over the live
// snapshot path, for use when the snapshot itself is unreadable/corrupt.
// Returns the backup path it recovered from, or an error if every
// backup also fails (caller then starts empty per spec §4.1).
func RecoverFromBackup(snapshotPath, base string, codec Codec) (string, map[string]interface{}, error) {
	matches, err := filepath.Glob(base + ".backup_*")
	if err != nil {
		return "", nil, fmt.Errorf("list backups: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches))) // newest first

	for _, p := range matches {
		raw, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		plain, err := codec.Decode(raw)
		if err != nil {
			continue
		}
		var store map[string]interface{}
		if err := json.Unmarshal(plain, &store); err != nil {
			continue
		}
		// Promote this backup to be the live snapshot.
		if err := os.WriteFile(snapshotPath, raw, 0644); err != nil {
			continue
		}
		return p, store, nil
	}
	return "", nil, fmt.Errorf("no usable backup found among %d candidates", len(matches))
}
