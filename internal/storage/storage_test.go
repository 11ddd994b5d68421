package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempBase(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "store")
}

func TestRecordRoundTrip(t *testing.T) {
	rec, err := NewPutRecord("a", map[string]interface{}{"x": float64(1)})
	if err != nil {
		t.Fatalf("NewPutRecord: %v", err)
	}
	line, err := rec.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeRecord(line)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if decoded.Op != OpPut || decoded.Key != "a" {
		t.Fatalf("unexpected decoded record: %+v", decoded)
	}
	var v map[string]interface{}
	if err := decoded.Value(&v); err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v["x"] != float64(1) {
		t.Fatalf("expected x=1, got %v", v)
	}
}

func TestDecodeRecordMalformed(t *testing.T) {
	if _, err := DecodeRecord([]byte(`{"op":"bogus"}`)); err == nil {
		t.Fatal("expected error for unknown op")
	}
	if _, err := DecodeRecord([]byte(`{"op":"put"}`)); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := DecodeRecord([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestManagerLoadReplaysTTLAndDiscardsExpired(t *testing.T) {
	base := tempBase(t)
	mgr, err := Open(base, nil, 3)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer mgr.Close()

	if _, err := mgr.Load(0); err != nil {
		t.Fatalf("Load: %v", err)
	}

	putA, _ := NewPutRecord("a", "still-alive")
	putB, _ := NewPutRecord("b", "already-expired")
	ttlA := NewTTLRecord("a", 5_000_000_000_000) // far future
	ttlB := NewTTLRecord("b", 1)                 // epoch ms = 1, long past

	for _, r := range []Record{putA, ttlA, putB, ttlB} {
		if err := mgr.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	mgr.Close()

	mgr2, err := Open(base, nil, 3)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer mgr2.Close()

	result, err := mgr2.Load(2_000_000_000_000) // "now" after b's expiry, before a's
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := result.Store["a"]; !ok {
		t.Fatal("expected key 'a' to survive recovery (TTL still in the future)")
	}
	if _, ok := result.TTL["a"]; !ok {
		t.Fatal("expected TTL entry for 'a' to be reinstated")
	}
	if _, ok := result.Store["b"]; ok {
		t.Fatal("expected key 'b' to be discarded: its TTL record had already expired")
	}
	if _, ok := result.TTL["b"]; ok {
		t.Fatal("expected no TTL entry for already-expired key 'b'")
	}
}

func TestWALAppendAndReplay(t *testing.T) {
	base := tempBase(t)
	mgr, err := Open(base, nil, 3)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer mgr.Close()

	_, err = mgr.Load(0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	rec, _ := NewPutRecord("a", "1")
	if err := mgr.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	size, err := mgr.WALSize()
	if err != nil || size == 0 {
		t.Fatalf("expected non-zero wal size, got %d err=%v", size, err)
	}
	mgr.Close()

	mgr2, err := Open(base, nil, 3)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer mgr2.Close()

	result, err := mgr2.Load(0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if result.Store["a"] != "1" {
		t.Fatalf("expected replayed a=1, got %v", result.Store["a"])
	}
}

func TestSnapshotAtomicWriteAndLoad(t *testing.T) {
	base := tempBase(t)
	store := map[string]interface{}{"k1": "v1", "k2": float64(2)}

	if err := WriteSnapshotAtomic(base+".snapshot", base+".tmp", store, IdentityCodec{}); err != nil {
		t.Fatalf("WriteSnapshotAtomic: %v", err)
	}
	if _, err := os.Stat(base + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file should not survive a successful rename")
	}

	loaded, err := LoadSnapshot(base+".snapshot", IdentityCodec{})
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded["k1"] != "v1" || loaded["k2"] != float64(2) {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestLoadSnapshotMissingIsEmpty(t *testing.T) {
	base := tempBase(t)
	store, err := LoadSnapshot(base+".snapshot", IdentityCodec{})
	if err != nil {
		t.Fatalf("expected no error for missing snapshot, got %v", err)
	}
	if len(store) != 0 {
		t.Fatalf("expected empty store, got %+v", store)
	}
}

func TestCompactionTruncatesWAL(t *testing.T) {
	base := tempBase(t)
	mgr, err := Open(base, nil, 3)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer mgr.Close()

	if _, err := mgr.Load(0); err != nil {
		t.Fatalf("Load: %v", err)
	}

	store := map[string]interface{}{}
	for i := 0; i < 1000; i++ {
		key := "k" + string(rune('a'+i%26)) + string(rune(i))
		store[key] = i
		rec, _ := NewPutRecord(key, i)
		if err := mgr.Append(rec); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}

	sizeBefore, _ := mgr.WALSize()
	if sizeBefore == 0 {
		t.Fatal("expected non-zero wal size before compaction")
	}

	if err := mgr.Compact(store); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	sizeAfter, err := mgr.WALSize()
	if err != nil {
		t.Fatalf("WALSize: %v", err)
	}
	if sizeAfter != 0 {
		t.Fatalf("expected wal truncated to 0, got %d", sizeAfter)
	}

	loaded, err := LoadSnapshot(base+".snapshot", IdentityCodec{})
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(loaded) != 1000 {
		t.Fatalf("expected 1000 keys in snapshot, got %d", len(loaded))
	}

	rec, _ := NewPutRecord("k1001", "v")
	if err := mgr.Append(rec); err != nil {
		t.Fatalf("Append after compaction: %v", err)
	}
	sizeFinal, _ := mgr.WALSize()
	if sizeFinal == 0 {
		t.Fatal("expected wal to contain the post-compaction append")
	}
}

func TestReadWALSkipsMalformedLines(t *testing.T) {
	base := tempBase(t)
	walPath := base + ".log"
	content := `{"op":"put","k":"a","v":"1"}
not json at all
{"op":"put","k":"b","v":"2"}
{"op":"put","k":"c"` // truncated trailing line, as if crash mid-write
	if err := os.WriteFile(walPath, []byte(content+"\n"), 0644); err != nil {
		t.Fatalf("write wal: %v", err)
	}

	applied := map[string]string{}
	warnings, err := ReadWAL(walPath, func(r Record) error {
		var v string
		r.Value(&v)
		applied[r.Key] = v
		return nil
	})
	if err != nil {
		t.Fatalf("ReadWAL: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings (malformed + truncated), got %d: %+v", len(warnings), warnings)
	}
	if applied["a"] != "1" || applied["b"] != "2" {
		t.Fatalf("expected well-formed records applied, got %+v", applied)
	}
	if _, ok := applied["c"]; ok {
		t.Fatal("truncated record should not have applied")
	}
}

func TestRecoverFromBackupWhenSnapshotCorrupt(t *testing.T) {
	base := tempBase(t)
	store := map[string]interface{}{"k": "v"}
	if err := WriteSnapshotAtomic(base+".snapshot", base+".tmp", store, IdentityCodec{}); err != nil {
		t.Fatalf("WriteSnapshotAtomic: %v", err)
	}
	if err := BackupNow(base+".snapshot", base, 5); err != nil {
		t.Fatalf("BackupNow: %v", err)
	}

	// Corrupt the live snapshot.
	if err := os.WriteFile(base+".snapshot", []byte("{not valid json"), 0644); err != nil {
		t.Fatalf("corrupt snapshot: %v", err)
	}

	_, err := LoadSnapshot(base+".snapshot", IdentityCodec{})
	if err == nil {
		t.Fatal("expected corrupt snapshot to fail to load")
	}

	from, recovered, err := RecoverFromBackup(base+".snapshot", base, IdentityCodec{})
	if err != nil {
		t.Fatalf("RecoverFromBackup: %v", err)
	}
	if from == "" {
		t.Fatal("expected a backup path")
	}
	if recovered["k"] != "v" {
		t.Fatalf("expected recovered store to have k=v, got %+v", recovered)
	}
}

func TestBackupRetentionPruning(t *testing.T) {
	base := tempBase(t)
	store := map[string]interface{}{"k": "v"}
	if err := WriteSnapshotAtomic(base+".snapshot", base+".tmp", store, IdentityCodec{}); err != nil {
		t.Fatalf("WriteSnapshotAtomic: %v", err)
	}
	for i := 0; i < 8; i++ {
		if err := BackupNow(base+".snapshot", base, 3); err != nil {
			t.Fatalf("BackupNow #%d: %v", i, err)
		}
	}
	matches, err := filepath.Glob(base + ".backup_*")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(matches) > 3 {
		t.Fatalf("expected at most 3 backups retained, got %d", len(matches))
	}
}
