package index

import "sort"

type numEntry struct {
	val float64
	key string
}

type strEntry struct {
	val string
	key string
}

// RangeIndex maintains two independently sorted sequences — one for
// numeric projections, one for string projections — so `>`, `>=`, `<`,
// `<=` can resolve a boundary via binary search rather than a scan.
// Numbers and strings never compare against each other; a field that
// holds both types simply gets two disjoint sorted runs (this is what
// keeps B3's "mixed types, only compatible ones indexed" true per
// comparison kind rather than per field).
//
// Grounded on bundoc/storage/index.go's ordered-structure technique,
// replacing the paged B+Tree with a plain in-memory sorted slice since
// the spec's range index has no on-disk component.
type RangeIndex struct {
	nums []numEntry
	strs []strEntry

	// byKey records which representation (if any) currently holds the
	// live entry for a key. remove() picks the list to search from the
	// type of the value it is given.
	numByKey map[string]float64
	strByKey map[string]string
}

func newRangeIndex() *RangeIndex {
	return &RangeIndex{
		numByKey: make(map[string]float64),
		strByKey: make(map[string]string),
	}
}

func (r *RangeIndex) add(key string, value interface{}) bool {
	switch v := value.(type) {
	case float64:
		r.insertNum(key, v)
		return true
	case string:
		r.insertStr(key, v)
		return true
	default:
		return false
	}
}

func (r *RangeIndex) insertNum(key string, v float64) {
	i := sort.Search(len(r.nums), func(i int) bool { return r.nums[i].val >= v })
	r.nums = append(r.nums, numEntry{})
	copy(r.nums[i+1:], r.nums[i:])
	r.nums[i] = numEntry{val: v, key: key}
	r.numByKey[key] = v
}

func (r *RangeIndex) insertStr(key string, v string) {
	i := sort.Search(len(r.strs), func(i int) bool { return r.strs[i].val >= v })
	r.strs = append(r.strs, strEntry{})
	copy(r.strs[i+1:], r.strs[i:])
	r.strs[i] = strEntry{val: v, key: key}
	r.strByKey[key] = v
}

func (r *RangeIndex) remove(key string, value interface{}) {
	switch value.(type) {
	case float64:
		if v, ok := r.numByKey[key]; ok {
			r.removeNum(key, v)
			delete(r.numByKey, key)
		}
	case string:
		if v, ok := r.strByKey[key]; ok {
			r.removeStr(key, v)
			delete(r.strByKey, key)
		}
	}
}

func (r *RangeIndex) removeNum(key string, v float64) {
	lo := sort.Search(len(r.nums), func(i int) bool { return r.nums[i].val >= v })
	for i := lo; i < len(r.nums) && r.nums[i].val == v; i++ {
		if r.nums[i].key == key {
			r.nums = append(r.nums[:i], r.nums[i+1:]...)
			return
		}
	}
}

func (r *RangeIndex) removeStr(key string, v string) {
	lo := sort.Search(len(r.strs), func(i int) bool { return r.strs[i].val >= v })
	for i := lo; i < len(r.strs) && r.strs[i].val == v; i++ {
		if r.strs[i].key == key {
			r.strs = append(r.strs[:i], r.strs[i+1:]...)
			return
		}
	}
}

func (r *RangeIndex) size() int {
	return len(r.numByKey) + len(r.strByKey)
}

// QueryNum returns keys for a numeric boundary comparison.
func (r *RangeIndex) QueryNum(op string, bound float64) []string {
	var lo, hi int
	switch op {
	case ">":
		lo = sort.Search(len(r.nums), func(i int) bool { return r.nums[i].val > bound })
		hi = len(r.nums)
	case ">=":
		lo = sort.Search(len(r.nums), func(i int) bool { return r.nums[i].val >= bound })
		hi = len(r.nums)
	case "<":
		lo = 0
		hi = sort.Search(len(r.nums), func(i int) bool { return r.nums[i].val >= bound })
	case "<=":
		lo = 0
		hi = sort.Search(len(r.nums), func(i int) bool { return r.nums[i].val > bound })
	default:
		return nil
	}
	out := make([]string, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, r.nums[i].key)
	}
	return out
}

// QueryStr returns keys for a lexicographic boundary comparison.
func (r *RangeIndex) QueryStr(op string, bound string) []string {
	var lo, hi int
	switch op {
	case ">":
		lo = sort.Search(len(r.strs), func(i int) bool { return r.strs[i].val > bound })
		hi = len(r.strs)
	case ">=":
		lo = sort.Search(len(r.strs), func(i int) bool { return r.strs[i].val >= bound })
		hi = len(r.strs)
	case "<":
		lo = 0
		hi = sort.Search(len(r.strs), func(i int) bool { return r.strs[i].val >= bound })
	case "<=":
		lo = 0
		hi = sort.Search(len(r.strs), func(i int) bool { return r.strs[i].val > bound })
	default:
		return nil
	}
	out := make([]string, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, r.strs[i].key)
	}
	return out
}

// Ascending returns every indexed key in ascending value order, numeric
// run first then string run. The query pipeline's Sort does not use it;
// it sorts the result set itself.
func (r *RangeIndex) Ascending() []string {
	out := make([]string, 0, len(r.nums)+len(r.strs))
	for _, e := range r.nums {
		out = append(out, e.key)
	}
	for _, e := range r.strs {
		out = append(out, e.key)
	}
	return out
}
