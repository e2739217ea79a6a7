package plan

import (
	"github.com/cortexgraph/kernel/pkg/entity"
	"github.com/cortexgraph/kernel/pkg/matrix"
)

// AllNodeScan yields every live node id, in pool order.
type AllNodeScan struct {
	base
	nodeSlot int
	cursor   entity.ID
	max      entity.ID
}

func NewAllNodeScan(p *Plan, nodeSlot int) *AllNodeScan {
	op := &AllNodeScan{base: newBase(p), nodeSlot: nodeSlot}
	return op
}

func (o *AllNodeScan) Kind() OpKind     { return OpAllNodeScan }
func (o *AllNodeScan) Modifies() []int  { return []int{o.nodeSlot} }
func (o *AllNodeScan) Free()            {}

func (o *AllNodeScan) Init(ctx *ExecContext) error {
	_ = o.base.Init(ctx)
	o.cursor = 0
	o.max = entity.ID(ctx.Graph.NodePool().Len())
	return nil
}

func (o *AllNodeScan) Reset() error {
	o.cursor = 0
	o.max = entity.ID(o.ctx.Graph.NodePool().Len())
	return nil
}

func (o *AllNodeScan) Consume() (Record, bool, error) {
	for o.cursor < o.max {
		id := o.cursor
		o.cursor++
		if _, ok := o.ctx.Graph.NodePool().Get(id); ok {
			rec := NewRecord(o.ctx.RecordWidth)
			rec.Set(o.nodeSlot, NodeSlot(id))
			return rec, true, nil
		}
	}
	return Record{}, false, nil
}

func (o *AllNodeScan) Clone(p *Plan) Operator {
	return &AllNodeScan{base: newBase(p), nodeSlot: o.nodeSlot}
}

// NodeByLabelScan implements spec §4.4's key-semantics scan: standalone
// iteration over a label matrix within an id range, or child-driven
// iteration when a parameter-binding child is present.
type NodeByLabelScan struct {
	base
	nodeSlot int
	label    uint16
	idMin    int
	idMax    int // inclusive, -1 means unbounded (nrows-1 at init)

	it          matrix.Iterator
	attached    bool
	noop        bool
	childDriven bool
	childRec    *Record
}

// NewNodeByLabelScan builds a standalone (no parameter-binding child) scan.
func NewNodeByLabelScan(p *Plan, nodeSlot int, label uint16, idMin, idMax int) *NodeByLabelScan {
	return &NodeByLabelScan{base: newBase(p), nodeSlot: nodeSlot, label: label, idMin: idMin, idMax: idMax}
}

// NewNodeByLabelScanWithChild builds a child-driven scan: childIdx is a
// record-producing operator used for parameter binding (spec §4.4).
func NewNodeByLabelScanWithChild(p *Plan, nodeSlot int, label uint16, idMin, idMax, childIdx int) *NodeByLabelScan {
	op := &NodeByLabelScan{base: newBase(p, childIdx), nodeSlot: nodeSlot, label: label, idMin: idMin, idMax: idMax}
	op.childDriven = true
	return op
}

func (o *NodeByLabelScan) Kind() OpKind    { return OpNodeByLabelScan }
func (o *NodeByLabelScan) Modifies() []int { return []int{o.nodeSlot} }
func (o *NodeByLabelScan) Free()           { o.it.Detach() }

func (o *NodeByLabelScan) Init(ctx *ExecContext) error {
	_ = o.base.Init(ctx)
	o.childDriven = o.childCount() > 0
	if o.childDriven {
		return nil
	}
	if !ctx.Graph.HasLabelMatrix(o.label) {
		o.noop = true
		return nil
	}
	return o.buildIterator()
}

// buildIterator (re)constructs the matrix iterator, tightening the
// configured range to [0, nrows) and falling back to no-op consume when the
// range becomes invalid (spec §4.4).
func (o *NodeByLabelScan) buildIterator() error {
	m, ok := o.ctx.Graph.LabelMatrix(o.label)
	if !ok {
		o.noop = true
		return nil
	}
	lo, hi := o.idMin, o.idMax
	if hi < 0 || hi > m.NRows()-1 {
		hi = m.NRows() - 1
	}
	if lo < 0 {
		lo = 0
	}
	if err := o.it.AttachRange(m, lo, hi); err != nil {
		o.noop = true
		return nil
	}
	o.attached = true
	o.noop = false
	return nil
}

// Reset rebuilds the iterator without consulting HasLabelMatrix: Reset can
// run from within an enclosing Apply's Consume (spec §4.4), while the graph
// read lock taken at plan start (spec §4.3) is still held, so it must only
// call lock-free accessors. buildIterator's own ok check already covers the
// unknown-label case.
func (o *NodeByLabelScan) Reset() error {
	o.it.Detach()
	o.attached = false
	o.childRec = nil
	if o.childDriven {
		return o.child(0).Reset()
	}
	return o.buildIterator()
}

func (o *NodeByLabelScan) Consume() (Record, bool, error) {
	if o.noop {
		return Record{}, false, nil
	}
	if o.childDriven {
		return o.consumeChildDriven()
	}
	return o.consumeStandalone()
}

func (o *NodeByLabelScan) consumeStandalone() (Record, bool, error) {
	if !o.attached {
		return Record{}, false, nil
	}
	cell, ok := o.it.Next()
	if !ok {
		return Record{}, false, nil
	}
	rec := NewRecord(o.ctx.RecordWidth)
	rec.Set(o.nodeSlot, NodeSlot(entity.ID(cell.Row)))
	return rec, true, nil
}

// consumeChildDriven repeatedly pulls a child record; for each, it
// (re)constructs the iterator over the same label and streams every node id,
// cloning the child record into the output. On exhaustion it advances to
// the next child record (spec §4.4).
func (o *NodeByLabelScan) consumeChildDriven() (Record, bool, error) {
	for {
		if o.attached {
			cell, ok := o.it.Next()
			if ok {
				out := o.childRec.Clone()
				out.Set(o.nodeSlot, NodeSlot(entity.ID(cell.Row)))
				return out, true, nil
			}
			o.it.Detach()
			o.attached = false
		}
		rec, ok, err := o.child(0).Consume()
		if err != nil {
			return Record{}, false, err
		}
		if !ok {
			return Record{}, false, nil
		}
		cp := rec.Clone()
		o.childRec = &cp
		if err := o.buildIterator(); err != nil {
			return Record{}, false, err
		}
		if o.noop {
			// Label unknown for this attempt; try the next child record.
			o.noop = false
			continue
		}
	}
}

func (o *NodeByLabelScan) Clone(p *Plan) Operator {
	children := append([]int(nil), o.children...)
	return &NodeByLabelScan{
		base:        base{plan: p, children: children},
		nodeSlot:    o.nodeSlot,
		label:       o.label,
		idMin:       o.idMin,
		idMax:       o.idMax,
		childDriven: o.childDriven,
	}
}

// NodeByLabelAndIDScan is NodeByLabelScan specialized to a single id probe
// (spec §4.4 names it as a distinct scan because it can skip the iterator
// entirely and do a direct label-bit test).
type NodeByLabelAndIDScan struct {
	base
	nodeSlot int
	label    uint16
	id       entity.ID
	done     bool
}

func NewNodeByLabelAndIDScan(p *Plan, nodeSlot int, label uint16, id entity.ID) *NodeByLabelAndIDScan {
	return &NodeByLabelAndIDScan{base: newBase(p), nodeSlot: nodeSlot, label: label, id: id}
}

func (o *NodeByLabelAndIDScan) Kind() OpKind    { return OpNodeByLabelAndIDScan }
func (o *NodeByLabelAndIDScan) Modifies() []int { return []int{o.nodeSlot} }
func (o *NodeByLabelAndIDScan) Free()           {}

func (o *NodeByLabelAndIDScan) Init(ctx *ExecContext) error {
	_ = o.base.Init(ctx)
	o.done = false
	return nil
}

func (o *NodeByLabelAndIDScan) Reset() error { o.done = false; return nil }

func (o *NodeByLabelAndIDScan) Consume() (Record, bool, error) {
	if o.done {
		return Record{}, false, nil
	}
	o.done = true
	m, ok := o.ctx.Graph.LabelMatrix(o.label)
	if !ok {
		return Record{}, false, nil
	}
	if _, present := m.Get(int(o.id), int(o.id)); !present {
		return Record{}, false, nil
	}
	rec := NewRecord(o.ctx.RecordWidth)
	rec.Set(o.nodeSlot, NodeSlot(o.id))
	return rec, true, nil
}

func (o *NodeByLabelAndIDScan) Clone(p *Plan) Operator {
	return &NodeByLabelAndIDScan{base: newBase(p), nodeSlot: o.nodeSlot, label: o.label, id: o.id}
}
