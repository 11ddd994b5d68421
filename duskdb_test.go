package duskdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kartikbazzad/duskdb/index"
	"github.com/kartikbazzad/duskdb/query"
)

func testOptions(t *testing.T) *Options {
	t.Helper()
	opts := DefaultOptions(filepath.Join(t.TempDir(), "store"))
	opts.TTLSweepInterval = 20 * time.Millisecond
	opts.SaveInterval = time.Hour // don't let background compaction race test assertions
	return opts
}

func TestOpenSetGetDelete(t *testing.T) {
	db, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Set("a", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok := db.Get("a")
	if !ok || v != "1" {
		t.Fatalf("expected a=1, got %v ok=%v", v, ok)
	}
	if !db.Has("a") {
		t.Fatal("expected Has(a) true")
	}

	deleted, err := db.Delete("a")
	if err != nil || !deleted {
		t.Fatalf("Delete: deleted=%v err=%v", deleted, err)
	}
	if _, ok := db.Get("a"); ok {
		t.Fatal("expected a absent after delete")
	}
	deleted, err = db.Delete("a")
	if err != nil || deleted {
		t.Fatalf("expected second delete to report false, not error: deleted=%v err=%v", deleted, err)
	}
}

func TestSetBeforeInitFails(t *testing.T) {
	db := New(testOptions(t))
	if err := db.Set("a", "1"); err == nil {
		t.Fatal("expected NotReady error before Init")
	}
}

func TestClearResetsStore(t *testing.T) {
	db, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	db.Set("a", "1")
	db.Set("b", "2")
	if err := db.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(db.All()) != 0 {
		t.Fatalf("expected empty store after clear, got %v", db.All())
	}
}

func TestTTLExpiryAndSweep(t *testing.T) {
	opts := testOptions(t)
	db, err := Open(opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Set("temp", "v", SetOption{TTL: 10 * time.Millisecond}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !db.Has("temp") {
		t.Fatal("expected temp present immediately after set")
	}

	deadline := time.Now().Add(2 * time.Second)
	for db.Has("temp") && time.Now().Before(deadline) {
		time.Sleep(15 * time.Millisecond)
	}
	if db.Has("temp") {
		t.Fatal("expected ttl sweep to have deleted 'temp'")
	}
}

func TestSetClearsExistingTTL(t *testing.T) {
	db, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	db.Set("k", "v1", SetOption{TTL: time.Hour})
	db.Set("k", "v2") // no ttl option: should clear the previous TTL
	stats := db.Stats()
	if stats.TTLCount != 0 {
		t.Fatalf("expected ttl cleared on bare set, got ttlCount=%d", stats.TTLCount)
	}
}

func TestWatchNotification(t *testing.T) {
	db, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	type call struct {
		newV, oldV   interface{}
		hasNew, hasOld bool
	}
	calls := make(chan call, 4)
	db.Watch("k", func(key string, newValue, oldValue interface{}, hasNew, hasOld bool) {
		calls <- call{newValue, oldValue, hasNew, hasOld}
	})

	db.Set("k", "v1")
	db.Set("k", "v2")
	db.Delete("k")

	first := <-calls
	if first.newV != "v1" || first.hasOld {
		t.Fatalf("expected first call newV=v1 hasOld=false, got %+v", first)
	}
	second := <-calls
	if second.newV != "v2" || second.oldV != "v1" || !second.hasOld {
		t.Fatalf("expected second call newV=v2 oldV=v1 hasOld=true, got %+v", second)
	}
	third := <-calls
	if third.hasNew || third.oldV != "v2" {
		t.Fatalf("expected delete notification hasNew=false oldV=v2, got %+v", third)
	}
}

func TestEventTaxonomy(t *testing.T) {
	db, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	seen := make(chan string, 8)
	for _, name := range []string{EventSet, EventDelete, EventClear} {
		name := name
		db.On(name, func(Event) { seen <- name })
	}

	db.Set("a", "1")
	db.Delete("a")
	db.Clear()

	want := []string{EventSet, EventDelete, EventClear}
	for _, w := range want {
		select {
		case got := <-seen:
			if got != w {
				t.Fatalf("expected event %s, got %s", w, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %s", w)
		}
	}
}

func TestStatsHitMiss(t *testing.T) {
	db, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	db.Set("a", "1")
	db.Get("a")       // hit (Set writes through to the cache)
	db.Get("missing") // miss

	stats := db.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("expected 1 hit and 1 miss, got %+v", stats)
	}
	if stats.Size != 1 {
		t.Fatalf("expected size 1, got %d", stats.Size)
	}
}

func TestCompactionAndRecovery(t *testing.T) {
	opts := testOptions(t)
	db, err := Open(opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.Set("a", "1")
	db.Set("b", "2")
	if err := db.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	db.Set("c", "3") // lands in the WAL only, after compaction
	db.Close()

	db2, err := Open(opts)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()
	for k, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
		v, ok := db2.Get(k)
		if !ok || v != want {
			t.Fatalf("expected %s=%s after recovery, got %v ok=%v", k, want, v, ok)
		}
	}
}

func TestCreateIndexAndWhere(t *testing.T) {
	db, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	db.Set("u1", map[string]interface{}{"name": "alice", "age": float64(30)})
	db.Set("u2", map[string]interface{}{"name": "bob", "age": float64(20)})

	if err := db.CreateIndex("name", index.KindHash); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	result := db.Where("name", query.OpEq, "alice")
	docs := result.All()
	if len(docs) != 1 || docs[0].Key != "u1" {
		t.Fatalf("expected [u1], got %+v", docs)
	}

	// Writes after the index is published must still be maintained.
	db.Set("u3", map[string]interface{}{"name": "alice", "age": float64(40)})
	result2 := db.Where("name", query.OpEq, "alice")
	if result2.Len() != 2 {
		t.Fatalf("expected 2 alices after post-index write, got %d", result2.Len())
	}
}

func TestFindWithCustomPredicate(t *testing.T) {
	db, err := Open(testOptions(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	db.Set("a", float64(10))
	db.Set("b", float64(20))

	result := db.Find(func(key string, value interface{}) bool {
		f, ok := value.(float64)
		return ok && f > 15
	})
	if result.Len() != 1 {
		t.Fatalf("expected 1 match, got %d", result.Len())
	}
}
