package graph

import "github.com/cortexgraph/kernel/pkg/entity"

// Relation-matrix cell encoding (spec §3 "Relation matrix" and §9 "Multi-edge
// encoding"). The top bit of the uint64 cell value is the tag: clear means
// the remaining 63 bits are a direct entity.ID; set means they index into a
// multiEdgeArena slot holding a dynamic array of edge ids. The tag lives at
// the matrix-cell (wire) boundary only; everything above this file works
// with the safe sum type in edgeSlot.
const multiTagBit = uint64(1) << 63

func encodeDirect(id entity.ID) uint64 { return uint64(id) }

func encodeMulti(arenaIdx uint32) uint64 { return multiTagBit | uint64(arenaIdx) }

func isMulti(cell uint64) bool { return cell&multiTagBit != 0 }

func arenaIndexOf(cell uint64) uint32 { return uint32(cell &^ multiTagBit) }

// multiEdgeArena holds the dynamic arrays backing multi-edge slots,
// addressed by index so relation-matrix cells never hold raw pointers
// (spec §9: "arena-index-to-vec").
type multiEdgeArena struct {
	slots [][]entity.ID
	free  []uint32
}

func newMultiEdgeArena() *multiEdgeArena { return &multiEdgeArena{} }

func (a *multiEdgeArena) alloc(ids []entity.ID) uint32 {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx] = ids
		return idx
	}
	a.slots = append(a.slots, ids)
	return uint32(len(a.slots) - 1)
}

func (a *multiEdgeArena) get(idx uint32) []entity.ID { return a.slots[idx] }

func (a *multiEdgeArena) set(idx uint32, ids []entity.ID) { a.slots[idx] = ids }

func (a *multiEdgeArena) release(idx uint32) {
	a.slots[idx] = nil
	a.free = append(a.free, idx)
}

// edgeSlot is the safe sum type described in spec §9: a relation-matrix
// cell is either a single edge id or a handle to a list of edge ids.
type edgeSlot struct {
	multi bool
	id    entity.ID // valid when !multi
	arena uint32    // valid when multi
}

func decodeSlot(cell uint64, present bool) (edgeSlot, bool) {
	if !present {
		return edgeSlot{}, false
	}
	if isMulti(cell) {
		return edgeSlot{multi: true, arena: arenaIndexOf(cell)}, true
	}
	return edgeSlot{id: entity.ID(cell)}, true
}
