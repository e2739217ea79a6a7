// Package plan implements the execution-plan operator model of spec §4.4: a
// DAG of operators, arena-allocated in a Plan, each exposing the
// init/consume/reset/clone/free contract and streaming fixed-width Records.
package plan

import (
	"github.com/cortexgraph/kernel/pkg/entity"
	"github.com/cortexgraph/kernel/pkg/value"
)

// SlotKind discriminates what a Record slot currently holds.
type SlotKind uint8

const (
	SlotEmpty SlotKind = iota
	SlotValue
	SlotNode
	SlotEdge
)

// Slot is one entry of a Record: a scalar Value, a node reference, an edge
// reference, or empty (spec §3 "Record").
type Slot struct {
	Kind  SlotKind
	Val   value.Value
	NodeID entity.ID
	EdgeID entity.ID
}

func EmptySlot() Slot                 { return Slot{Kind: SlotEmpty} }
func ValueSlot(v value.Value) Slot    { return Slot{Kind: SlotValue, Val: v} }
func NodeSlot(id entity.ID) Slot      { return Slot{Kind: SlotNode, NodeID: id} }
func EdgeSlot(id entity.ID) Slot      { return Slot{Kind: SlotEdge, EdgeID: id} }

func (s Slot) Clone() Slot {
	if s.Kind == SlotValue {
		return Slot{Kind: SlotValue, Val: s.Val.Clone()}
	}
	return s
}

// Record is the fixed-width array of slots passed between operators
// (spec §3). Width is determined once by the plan that constructs it.
type Record struct {
	slots []Slot
}

// NewRecord returns a Record with width slots, all empty.
func NewRecord(width int) Record {
	return Record{slots: make([]Slot, width)}
}

func (r Record) Width() int { return len(r.slots) }

func (r Record) Get(i int) Slot { return r.slots[i] }

func (r *Record) Set(i int, s Slot) { r.slots[i] = s }

// Clone deep-copies the record so fan-out operators (Apply, traversal
// buffering) can hand out independent copies (spec §3 "cloned on fan-out").
func (r Record) Clone() Record {
	cp := make([]Slot, len(r.slots))
	for i, s := range r.slots {
		cp[i] = s.Clone()
	}
	return Record{slots: cp}
}
