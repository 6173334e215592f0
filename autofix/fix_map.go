// ABOUTME: fixMap collects the fixes of one iteration keyed by the ObjectRef they touch.
// ABOUTME: Keys stay sorted by their "Type:ID" string so the produced operations are deterministic.
package autofix

import (
	"sort"

	"github.com/2389-research/infracache/schema"
)

type fixMap struct {
	data map[schema.ObjectRef]Fix
	keys []schema.ObjectRef
}

func newFixMap() *fixMap {
	return &fixMap{data: make(map[schema.ObjectRef]Fix)}
}

// insert adds fix under ref. It returns the fix already stored for ref and
// false when the slot was taken, leaving the map unchanged.
func (m *fixMap) insert(ref schema.ObjectRef, fix Fix) (Fix, bool) {
	if existing, ok := m.data[ref]; ok {
		return existing, false
	}
	key := ref.String()
	i := sort.Search(len(m.keys), func(i int) bool { return m.keys[i].String() >= key })
	m.keys = append(m.keys, schema.ObjectRef{})
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = ref
	m.data[ref] = fix
	return Fix{}, true
}

func (m *fixMap) len() int {
	return len(m.keys)
}

// values returns the fixes in key order.
func (m *fixMap) values() []Fix {
	out := make([]Fix, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.data[k])
	}
	return out
}
