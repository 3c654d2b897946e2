// Package variables holds the run-scoped variable map and resolves
// placeholder occurrences against it.
package variables

import (
	"sort"
	"strings"
)

// Pair is one key/value entry supplied by the variable source
type Pair struct {
	Key   string
	Value string
}

// Map is an immutable snapshot of the variables available to a run.
// In case-insensitive mode keys are folded to lowercase at construction.
type Map struct {
	values          map[string]string
	caseInsensitive bool
}

// NewMap builds a Map from ordered pairs. Later pairs override earlier
// ones, including keys that only collide after case folding.
func NewMap(pairs []Pair, caseInsensitive bool) *Map {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key := p.Key
		if caseInsensitive {
			key = strings.ToLower(key)
		}
		values[key] = p.Value
	}
	return &Map{values: values, caseInsensitive: caseInsensitive}
}

// FromMap builds a Map from a plain map. Keys are applied in sorted order
// so folding collisions resolve deterministically.
func FromMap(m map[string]string, caseInsensitive bool) *Map {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, Pair{Key: k, Value: m[k]})
	}
	return NewMap(pairs, caseInsensitive)
}

// Lookup returns the value for name under the map's case policy
func (m *Map) Lookup(name string) (string, bool) {
	if m.caseInsensitive {
		name = strings.ToLower(name)
	}
	value, ok := m.values[name]
	return value, ok
}

// CaseInsensitive reports whether keys were folded
func (m *Map) CaseInsensitive() bool {
	return m.caseInsensitive
}

// Len returns the number of distinct keys
func (m *Map) Len() int {
	return len(m.values)
}

// Keys returns the (possibly folded) keys in sorted order
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
