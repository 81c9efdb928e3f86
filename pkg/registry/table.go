package registry

import (
	"sort"

	"github.com/aretw0/grove/pkg/domain"
)

// Entry places a handle: the handle of the parent collection (domain.NoParent
// for root collections) and the index inside the parent's folder or request
// sequence.
type Entry struct {
	Parent domain.CollectionHandle
	Index  int
}

type slot struct {
	parent domain.CollectionHandle
	index  int
}

// table is one handle kind's mapping plus its two auxiliary indices:
// slot -> handle for O(1) lookups, parent -> children for sibling shifts.
type table[H ~string] struct {
	entries  map[H]Entry
	slots    map[slot]H
	children map[domain.CollectionHandle]map[H]struct{}
}

func newTable[H ~string]() *table[H] {
	return &table[H]{
		entries:  make(map[H]Entry),
		slots:    make(map[slot]H),
		children: make(map[domain.CollectionHandle]map[H]struct{}),
	}
}

func (t *table[H]) get(h H) (Entry, bool) {
	e, ok := t.entries[h]
	return e, ok
}

func (t *table[H]) at(parent domain.CollectionHandle, index int) (H, bool) {
	h, ok := t.slots[slot{parent, index}]
	return h, ok
}

// unslot removes h from both indices but keeps its entry.
func (t *table[H]) unslot(h H) {
	e, ok := t.entries[h]
	if !ok {
		return
	}
	if cur, ok := t.slots[slot{e.Parent, e.Index}]; ok && cur == h {
		delete(t.slots, slot{e.Parent, e.Index})
	}
	if kids, ok := t.children[e.Parent]; ok {
		delete(kids, h)
		if len(kids) == 0 {
			delete(t.children, e.Parent)
		}
	}
}

// place writes h at e. A different handle already holding the slot is
// evicted and returned.
func (t *table[H]) place(h H, e Entry) (evicted H, ok bool) {
	t.unslot(h)
	s := slot{e.Parent, e.Index}
	if occupant, taken := t.slots[s]; taken && occupant != h {
		t.del(occupant)
		evicted, ok = occupant, true
	}
	t.entries[h] = e
	t.slots[s] = h
	kids, exists := t.children[e.Parent]
	if !exists {
		kids = make(map[H]struct{})
		t.children[e.Parent] = kids
	}
	kids[h] = struct{}{}
	return evicted, ok
}

func (t *table[H]) del(h H) bool {
	if _, ok := t.entries[h]; !ok {
		return false
	}
	t.unslot(h)
	delete(t.entries, h)
	return true
}

// relocate moves many handles at once. All of them leave their slots before
// any is placed, so swaps and shifts never collide with each other.
func (t *table[H]) relocate(updates map[H]Entry) []H {
	for h := range updates {
		t.unslot(h)
	}
	var evicted []H
	for _, h := range sortHandles(keys(updates)) {
		if _, live := t.entries[h]; !live {
			continue
		}
		if old, ok := t.place(h, updates[h]); ok {
			evicted = append(evicted, old)
		}
	}
	return evicted
}

// under lists the handles whose parent is p, ordered by ticket.
func (t *table[H]) under(p domain.CollectionHandle) []H {
	kids := t.children[p]
	out := make([]H, 0, len(kids))
	for h := range kids {
		out = append(out, h)
	}
	return sortHandles(out)
}

func (t *table[H]) handles() []H {
	return sortHandles(keys(t.entries))
}

func (t *table[H]) len() int {
	return len(t.entries)
}

func keys[H comparable, V any](m map[H]V) []H {
	out := make([]H, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// sortHandles orders decimal ticket handles numerically.
func sortHandles[H ~string](hs []H) []H {
	sort.Slice(hs, func(i, j int) bool {
		if len(hs[i]) != len(hs[j]) {
			return len(hs[i]) < len(hs[j])
		}
		return hs[i] < hs[j]
	})
	return hs
}
