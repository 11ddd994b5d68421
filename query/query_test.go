package query

import (
	"testing"

	"github.com/kartikbazzad/duskdb/index"
)

// memStore is a trivial StoreReader backed by a plain map, for tests.
type memStore struct {
	data map[string]interface{}
}

func newMemStore() *memStore { return &memStore{data: make(map[string]interface{})} }

func (s *memStore) Keys() []string {
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	return out
}

func (s *memStore) Get(key string) (interface{}, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *memStore) put(key string, value interface{}) {
	s.data[key] = value
}

func TestParseImplicitEq(t *testing.T) {
	m, err := Parse(map[string]interface{}{"status": "active"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !m.Matches(map[string]interface{}{"status": "active"}) {
		t.Fatal("expected implicit $eq match")
	}
	if m.Matches(map[string]interface{}{"status": "inactive"}) {
		t.Fatal("expected implicit $eq mismatch")
	}
}

func TestParseComparisonOperators(t *testing.T) {
	m, err := Parse(map[string]interface{}{"age": map[string]interface{}{"$gte": float64(25)}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !m.Matches(map[string]interface{}{"age": float64(25)}) {
		t.Fatal("expected $gte boundary inclusive match")
	}
	if m.Matches(map[string]interface{}{"age": float64(24)}) {
		t.Fatal("expected $gte to exclude below boundary")
	}

	m2, _ := Parse(map[string]interface{}{"age": map[string]interface{}{"$lte": float64(30)}})
	if !m2.Matches(map[string]interface{}{"age": float64(30)}) {
		t.Fatal("expected $lte boundary inclusive match")
	}
}

func TestParseAndOr(t *testing.T) {
	q := map[string]interface{}{
		"$or": []interface{}{
			map[string]interface{}{"status": "active"},
			map[string]interface{}{"age": map[string]interface{}{"$gt": float64(60)}},
		},
	}
	m, err := Parse(q)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !m.Matches(map[string]interface{}{"status": "active", "age": float64(10)}) {
		t.Fatal("expected $or match via first branch")
	}
	if !m.Matches(map[string]interface{}{"status": "inactive", "age": float64(70)}) {
		t.Fatal("expected $or match via second branch")
	}
	if m.Matches(map[string]interface{}{"status": "inactive", "age": float64(10)}) {
		t.Fatal("expected $or to reject when neither branch matches")
	}
}

func TestCompareInOperator(t *testing.T) {
	if !Compare("b", OpIn, []interface{}{"a", "b", "c"}) {
		t.Fatal("expected $in membership match")
	}
	if Compare("z", OpIn, []interface{}{"a", "b", "c"}) {
		t.Fatal("expected $in to reject non-member")
	}
}

func TestCompareEqDoesNotCoerceNumberAndString(t *testing.T) {
	if Compare("1", OpEq, float64(1)) {
		t.Fatal("expected string '1' to not equal number 1")
	}
}

func TestEngineWhereDispatchesHashIndex(t *testing.T) {
	idx := index.NewManager()
	idx.CreateIndex("name", index.KindHash)
	idx.Publish("name")

	store := newMemStore()
	store.put("u1", map[string]interface{}{"name": "alice"})
	store.put("u2", map[string]interface{}{"name": "bob"})
	idx.Maintain("u1", store.data["u1"], nil, true, false)
	idx.Maintain("u2", store.data["u2"], nil, true, false)

	eng := NewEngine(idx)
	pred := eng.Where("name", OpEq, "alice")
	docs := eng.Find(store, pred)
	if len(docs) != 1 || docs[0].Key != "u1" {
		t.Fatalf("expected [u1], got %+v", docs)
	}
}

func TestEngineWhereDispatchesRangeIndex(t *testing.T) {
	idx := index.NewManager()
	idx.CreateIndex("age", index.KindRange)
	idx.Publish("age")

	store := newMemStore()
	ages := map[string]float64{"u20": 20, "u25": 25, "u30": 30, "u35": 35}
	for k, v := range ages {
		doc := map[string]interface{}{"age": v}
		store.put(k, doc)
		idx.Maintain(k, doc, nil, true, false)
	}

	eng := NewEngine(idx)
	pred := eng.Where("age", OpGte, float64(25))
	result := NewResult(eng.Find(store, pred)).Sort("age", false)
	all := result.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 results, got %d: %+v", len(all), all)
	}
	order := []string{"u25", "u30", "u35"}
	for i, want := range order {
		if all[i].Key != want {
			t.Fatalf("expected ascending order %v, got %+v", order, all)
		}
	}
}

func TestEngineFallsBackToScanWithoutIndex(t *testing.T) {
	eng := NewEngine(index.NewManager())
	store := newMemStore()
	store.put("u1", map[string]interface{}{"city": "nyc"})
	store.put("u2", map[string]interface{}{"city": "sf"})

	pred := eng.Where("city", OpEq, "sf")
	docs := eng.Find(store, pred)
	if len(docs) != 1 || docs[0].Key != "u2" {
		t.Fatalf("expected scan fallback to find u2, got %+v", docs)
	}
}

func TestEngineTextDispatch(t *testing.T) {
	idx := index.NewManager()
	idx.CreateIndex("bio", index.KindText)
	idx.Publish("bio")

	store := newMemStore()
	store.put("u1", map[string]interface{}{"bio": "loves golang and databases"})
	idx.Maintain("u1", store.data["u1"], nil, true, false)

	eng := NewEngine(idx)
	docs := eng.Contains(store, "bio", "golang")
	if len(docs) != 1 || docs[0].Key != "u1" {
		t.Fatalf("expected u1 via text contains, got %+v", docs)
	}
}

func TestResultPipeline(t *testing.T) {
	docs := []Doc{
		{Key: "a", Value: map[string]interface{}{"score": float64(3)}},
		{Key: "b", Value: map[string]interface{}{"score": float64(1)}},
		{Key: "c", Value: map[string]interface{}{"score": float64(2)}},
	}
	r := NewResult(docs).Sort("score", false)
	all := r.All()
	if all[0].Key != "b" || all[1].Key != "c" || all[2].Key != "a" {
		t.Fatalf("expected ascending sort b,c,a; got %+v", all)
	}

	limited := r.Limit(2)
	if limited.Len() != 2 {
		t.Fatalf("expected limit 2, got %d", limited.Len())
	}

	skipped := r.Skip(1)
	if skipped.Len() != 2 {
		t.Fatalf("expected skip leaves 2, got %d", skipped.Len())
	}

	first, ok := r.First()
	if !ok || first.Key != "b" {
		t.Fatalf("expected first=b, got %+v ok=%v", first, ok)
	}
	last, ok := r.Last()
	if !ok || last.Key != "a" {
		t.Fatalf("expected last=a, got %+v ok=%v", last, ok)
	}
}

func TestResultAggregations(t *testing.T) {
	docs := []Doc{
		{Key: "a", Value: map[string]interface{}{"score": float64(3), "team": "x"}},
		{Key: "b", Value: map[string]interface{}{"score": float64(1), "team": "y"}},
		{Key: "c", Value: map[string]interface{}{"score": float64(2), "team": "x"}},
	}
	r := NewResult(docs)
	if got := r.Count(); got != 3 {
		t.Fatalf("expected count 3, got %d", got)
	}
	if got := r.Sum("score"); got != 6 {
		t.Fatalf("expected sum 6, got %v", got)
	}
	if got := r.Avg("score"); got != 2 {
		t.Fatalf("expected avg 2, got %v", got)
	}
	if min, ok := r.Min("score"); !ok || min != float64(1) {
		t.Fatalf("expected min 1, got %v ok=%v", min, ok)
	}
	if max, ok := r.Max("score"); !ok || max != float64(3) {
		t.Fatalf("expected max 3, got %v ok=%v", max, ok)
	}
	groups := r.GroupBy("team")
	if len(groups["x"]) != 2 || len(groups["y"]) != 1 {
		t.Fatalf("expected groups x:2 y:1, got %+v", groups)
	}
}

func TestEngineCountIsFullSizeWithoutPredicate(t *testing.T) {
	eng := NewEngine(index.NewManager())
	store := newMemStore()
	store.put("a", map[string]interface{}{})
	store.put("b", map[string]interface{}{})
	if got := eng.Count(store, nil); got != 2 {
		t.Fatalf("expected count 2, got %d", got)
	}
}
