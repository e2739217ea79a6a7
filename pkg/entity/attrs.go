// Package entity implements the block-allocated node and edge pools (spec
// §4.2) and the attribute-set type each entity owns (spec §3).
package entity

import "github.com/cortexgraph/kernel/pkg/value"

// AttrID is a small integer identifying an attribute name; the string<->id
// mapping itself lives in the schema layer, out of scope here (spec §1).
type AttrID uint16

// attrPair is one (attribute-id, value) slot, kept sorted by AttrID so
// iteration order is stable across serialization versions (spec §3).
type attrPair struct {
	id  AttrID
	val value.Value
}

// AttrSet is a compact, AttrID-ordered mapping owned by exactly one entity.
// The zero value is a valid empty set.
type AttrSet struct {
	pairs []attrPair
}

// NewAttrSet builds an AttrSet from an unordered set of (id, value) pairs.
func NewAttrSet(entries map[AttrID]value.Value) AttrSet {
	as := AttrSet{pairs: make([]attrPair, 0, len(entries))}
	for id, v := range entries {
		as.Set(id, v)
	}
	return as
}

// Get returns the value for id and whether it was present.
func (a AttrSet) Get(id AttrID) (value.Value, bool) {
	i := a.search(id)
	if i < len(a.pairs) && a.pairs[i].id == id {
		return a.pairs[i].val, true
	}
	return value.Null(), false
}

// Set inserts or replaces the value for id, keeping pairs sorted by id.
func (a *AttrSet) Set(id AttrID, v value.Value) {
	i := a.search(id)
	if i < len(a.pairs) && a.pairs[i].id == id {
		a.pairs[i].val = v
		return
	}
	a.pairs = append(a.pairs, attrPair{})
	copy(a.pairs[i+1:], a.pairs[i:])
	a.pairs[i] = attrPair{id: id, val: v}
}

// Remove deletes id from the set, if present.
func (a *AttrSet) Remove(id AttrID) {
	i := a.search(id)
	if i < len(a.pairs) && a.pairs[i].id == id {
		a.pairs = append(a.pairs[:i], a.pairs[i+1:]...)
	}
}

// Len returns the number of attributes set.
func (a AttrSet) Len() int { return len(a.pairs) }

// ByOrdinal exposes the i-th (id, value) pair for stable iteration across
// serialization versions, per spec §3 "addressable by ordinal".
func (a AttrSet) ByOrdinal(i int) (AttrID, value.Value) {
	p := a.pairs[i]
	return p.id, p.val
}

// Each calls fn for every attribute in ascending AttrID order.
func (a AttrSet) Each(fn func(AttrID, value.Value)) {
	for _, p := range a.pairs {
		fn(p.id, p.val)
	}
}

// Clone deep-copies the set so it can be attached to a cloned record/entity
// without aliasing variant-length Values.
func (a AttrSet) Clone() AttrSet {
	cp := make([]attrPair, len(a.pairs))
	for i, p := range a.pairs {
		cp[i] = attrPair{id: p.id, val: p.val.Clone()}
	}
	return AttrSet{pairs: cp}
}

// search returns the index of id in pairs, or the insertion point.
func (a AttrSet) search(id AttrID) int {
	lo, hi := 0, len(a.pairs)
	for lo < hi {
		mid := (lo + hi) / 2
		if a.pairs[mid].id < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
