package index

import "testing"

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func TestHashIndexAddRemove(t *testing.T) {
	h := newHashIndex()
	if !h.add("u1", "alice") {
		t.Fatal("expected string to be indexable")
	}
	if h.add("u2", map[string]interface{}{"x": 1}) {
		t.Fatal("expected map value to be type-incompatible")
	}
	keys := h.Lookup("alice")
	if !containsKey(keys, "u1") {
		t.Fatalf("expected u1 in lookup, got %v", keys)
	}
	h.remove("u1", "alice")
	if keys := h.Lookup("alice"); len(keys) != 0 {
		t.Fatalf("expected empty after remove, got %v", keys)
	}
}

func TestHashIndexStringNumberNoCollision(t *testing.T) {
	h := newHashIndex()
	h.add("a", "1")
	h.add("b", float64(1))
	if got := h.Lookup("1"); len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected only 'a' for string term, got %v", got)
	}
	if got := h.Lookup(float64(1)); len(got) != 1 || got[0] != "b" {
		t.Fatalf("expected only 'b' for numeric term, got %v", got)
	}
}

func TestRangeIndexBoundaryQueries(t *testing.T) {
	r := newRangeIndex()
	ages := map[string]float64{"u20": 20, "u25": 25, "u30": 30, "u35": 35}
	for k, v := range ages {
		r.add(k, v)
	}
	got := r.QueryNum(">=", 25)
	if len(got) != 3 {
		t.Fatalf("expected 3 keys >= 25, got %d: %v", len(got), got)
	}
	for _, want := range []string{"u25", "u30", "u35"} {
		if !containsKey(got, want) {
			t.Fatalf("expected %s in result %v", want, got)
		}
	}
	if got := r.QueryNum("<", 25); len(got) != 1 || got[0] != "u20" {
		t.Fatalf("expected only u20 for < 25, got %v", got)
	}
}

func TestRangeIndexMixedTypesDisjoint(t *testing.T) {
	r := newRangeIndex()
	r.add("n1", float64(5))
	r.add("s1", "apple")
	if got := r.QueryNum(">=", 0); len(got) != 1 || got[0] != "n1" {
		t.Fatalf("expected only numeric entry, got %v", got)
	}
	if got := r.QueryStr(">=", "a"); len(got) != 1 || got[0] != "s1" {
		t.Fatalf("expected only string entry, got %v", got)
	}
	if r.add("bad", true) {
		t.Fatal("expected bool to be type-incompatible with range index")
	}
}

func TestRangeIndexRemove(t *testing.T) {
	r := newRangeIndex()
	r.add("a", float64(1))
	r.add("b", float64(2))
	r.remove("a", float64(1))
	got := r.QueryNum(">=", 0)
	if len(got) != 1 || got[0] != "b" {
		t.Fatalf("expected only b remaining, got %v", got)
	}
}

func TestTextIndexTokenizeAndScan(t *testing.T) {
	tx := newTextIndex()
	tx.add("doc1", "Hello, World! foo-bar")
	tx.add("doc2", "another Document")

	if got := tx.Contains("world"); !containsKey(got, "doc1") {
		t.Fatalf("expected doc1 in contains 'world', got %v", got)
	}
	if got := tx.StartsWith("doc"); !containsKey(got, "doc2") {
		t.Fatalf("expected doc2 for startswith 'doc' (token 'document'), got %v", got)
	}
	if got := tx.EndsWith("bar"); !containsKey(got, "doc1") {
		t.Fatalf("expected doc1 for endswith 'bar', got %v", got)
	}

	tx.remove("doc1", nil)
	if got := tx.Contains("world"); len(got) != 0 {
		t.Fatalf("expected empty after remove, got %v", got)
	}
}

func TestManagerMaintenanceProtocol(t *testing.T) {
	m := NewManager()
	if !m.CreateIndex("name", KindHash) {
		t.Fatal("expected CreateIndex to succeed")
	}
	m.Publish("name") // empty store: nothing to build, publish immediately

	doc1 := map[string]interface{}{"name": "alice"}
	m.Maintain("u1", doc1, nil, true, false)

	handle, ok := m.Get("name")
	if !ok || handle.Hash == nil {
		t.Fatal("expected ready hash index handle")
	}
	if got := handle.Hash.Lookup("alice"); !containsKey(got, "u1") {
		t.Fatalf("expected u1 indexed under alice, got %v", got)
	}

	doc2 := map[string]interface{}{"name": "bob"}
	m.Maintain("u1", doc2, doc1, true, true)
	if got := handle.Hash.Lookup("alice"); containsKey(got, "u1") {
		t.Fatalf("expected u1 removed from old bucket, got %v", got)
	}
	if got := handle.Hash.Lookup("bob"); !containsKey(got, "u1") {
		t.Fatalf("expected u1 indexed under new value bob, got %v", got)
	}

	m.Maintain("u1", nil, doc2, false, true)
	if got := handle.Hash.Lookup("bob"); containsKey(got, "u1") {
		t.Fatalf("expected u1 removed on delete, got %v", got)
	}
}

func TestManagerBuildBuffersDuringConstruction(t *testing.T) {
	m := NewManager()
	snapshot := map[string]interface{}{
		"u1": map[string]interface{}{"age": float64(20)},
		"u2": map[string]interface{}{"age": float64(30)},
	}
	m.CreateIndex("age", KindRange)

	if _, ready := m.Get("age"); ready {
		t.Fatal("index should not be queryable before Publish")
	}

	m.Build("age", snapshot, 1, func() bool { return true })

	// A concurrent write arrives before Publish: it must buffer, not apply
	// directly (since there's no ready structure to apply to yet from the
	// caller's perspective — Maintain must still be safe to call).
	m.Maintain("u3", map[string]interface{}{"age": float64(40)}, nil, true, false)

	m.Publish("age")

	handle, ok := m.Get("age")
	if !ok || handle.Range == nil {
		t.Fatal("expected ready range index handle after publish")
	}
	got := handle.Range.QueryNum(">=", 0)
	for _, want := range []string{"u1", "u2", "u3"} {
		if !containsKey(got, want) {
			t.Fatalf("expected %s present after publish (build + buffered op), got %v", want, got)
		}
	}
}

func TestManagerDropIndex(t *testing.T) {
	m := NewManager()
	m.CreateIndex("x", KindHash)
	if !m.DropIndex("x") {
		t.Fatal("expected DropIndex to succeed")
	}
	if m.DropIndex("x") {
		t.Fatal("expected second DropIndex to report absence")
	}
}

func TestProjectDotPath(t *testing.T) {
	doc := map[string]interface{}{
		"profile": map[string]interface{}{
			"tags": []interface{}{"a", "b", "c"},
		},
	}
	v, ok := Project(doc, "profile.tags.1")
	if !ok || v != "b" {
		t.Fatalf("expected 'b' at profile.tags.1, got %v ok=%v", v, ok)
	}
	if _, ok := Project(doc, "profile.missing"); ok {
		t.Fatal("expected missing segment to report ok=false")
	}
	if _, ok := Project(doc, "profile.tags.99"); ok {
		t.Fatal("expected out-of-range index to report ok=false")
	}
}
