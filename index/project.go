package index

import (
	"strconv"
	"strings"
)

// Project resolves a dotted field path against value, descending through
// map keys and numeric array indices at each segment. It returns the
// projected value and whether the path was fully resolved (a missing
// intermediate segment, or a numeric segment applied to a non-slice,
// reports ok=false rather than panicking).
func Project(value interface{}, field string) (interface{}, bool) {
	if field == "" {
		return value, true
	}
	cur := value
	for _, seg := range strings.Split(field, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, found := node[seg]
			if !found {
				return nil, false
			}
			cur = v
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}
