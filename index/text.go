package index

import (
	"strings"
	"unicode"
)

// TextIndex tokenises string projections (split on non-word characters,
// lowercased) and maps each token to the keys whose value contains it.
// Supports `contains`/`startsWith`/`endsWith` by scanning the token set —
// deliberately not a relevance-ranked full-text index (spec Non-goal).
type TextIndex struct {
	tokens    map[string]map[string]struct{} // token -> keys
	keyTokens map[string]map[string]struct{} // key -> its current tokens, for removal
}

func newTextIndex() *TextIndex {
	return &TextIndex{
		tokens:    make(map[string]map[string]struct{}),
		keyTokens: make(map[string]map[string]struct{}),
	}
}

func tokenize(s string) []string {
	lower := strings.ToLower(s)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func (t *TextIndex) add(key string, value interface{}) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	toks := tokenize(s)
	set := make(map[string]struct{}, len(toks))
	for _, tok := range toks {
		set[tok] = struct{}{}
		bucket, exists := t.tokens[tok]
		if !exists {
			bucket = make(map[string]struct{})
			t.tokens[tok] = bucket
		}
		bucket[key] = struct{}{}
	}
	t.keyTokens[key] = set
	return true
}

func (t *TextIndex) remove(key string, _ interface{}) {
	set, ok := t.keyTokens[key]
	if !ok {
		return
	}
	for tok := range set {
		bucket, exists := t.tokens[tok]
		if !exists {
			continue
		}
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(t.tokens, tok)
		}
	}
	delete(t.keyTokens, key)
}

func (t *TextIndex) size() int {
	return len(t.keyTokens)
}

// Contains returns keys whose value has at least one token containing
// substr (lowercased comparison).
func (t *TextIndex) Contains(substr string) []string {
	return t.scan(substr, strings.Contains)
}

// StartsWith returns keys whose value has at least one token starting
// with prefix.
func (t *TextIndex) StartsWith(prefix string) []string {
	return t.scan(prefix, strings.HasPrefix)
}

// EndsWith returns keys whose value has at least one token ending with
// suffix.
func (t *TextIndex) EndsWith(suffix string) []string {
	return t.scan(suffix, strings.HasSuffix)
}

func (t *TextIndex) scan(needle string, match func(token, needle string) bool) []string {
	needle = strings.ToLower(needle)
	seen := make(map[string]struct{})
	for tok, bucket := range t.tokens {
		if match(tok, needle) {
			for k := range bucket {
				seen[k] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}
