package plan

import (
	"github.com/cortexgraph/kernel/pkg/entity"
)

// NodeTemplate describes one node to create, evaluated per input record.
type NodeTemplate struct {
	SlotOut int
	Labels  []uint16
	Attrs   func(Record) entity.AttrSet
}

// EdgeTemplate describes one edge to create, evaluated per input record.
type EdgeTemplate struct {
	SrcSlot, DestSlot int
	Relation          uint16
	Attrs             func(Record) entity.AttrSet
}

// Create stages NodeTemplates/EdgeTemplates for every record it streams
// through, committing nothing itself — the Barrier commits once, at end of
// stream or end of read-phase, per spec §4.4.
type Create struct {
	base
	Nodes   []NodeTemplate
	Edges   []EdgeTemplate
	barrier *Barrier

	childExhausted bool
}

// NewCreate wires an optional record-producing child (childIdx < 0 means
// none, for a bare `CREATE (...)` with no preceding MATCH).
func NewCreate(p *Plan, childIdx int, barrier *Barrier, nodes []NodeTemplate, edges []EdgeTemplate) *Create {
	if childIdx < 0 {
		return &Create{base: newBase(p), barrier: barrier, Nodes: nodes, Edges: edges}
	}
	return &Create{base: newBase(p, childIdx), barrier: barrier, Nodes: nodes, Edges: edges}
}

func (o *Create) Kind() OpKind { return OpCreate }
func (o *Create) Modifies() []int {
	out := make([]int, len(o.Nodes))
	for i, n := range o.Nodes {
		out[i] = n.SlotOut
	}
	return out
}
func (o *Create) Free() {}

func (o *Create) Reset() error {
	o.childExhausted = false
	if o.childCount() == 0 {
		return nil
	}
	return o.child(0).Reset()
}

func (o *Create) Consume() (Record, bool, error) {
	if o.childExhausted {
		return Record{}, false, nil
	}
	var rec Record
	var ok bool
	var err error
	if o.childCount() > 0 {
		rec, ok, err = o.child(0).Consume()
		if err != nil {
			return Record{}, false, err
		}
		if !ok {
			o.childExhausted = true
			return Record{}, false, nil
		}
	} else {
		// No child: this Create is its own source, runs exactly once.
		o.childExhausted = true
		rec = NewRecord(o.ctx.RecordWidth)
	}
	for _, n := range o.Nodes {
		attrs := entity.AttrSet{}
		if n.Attrs != nil {
			attrs = n.Attrs(rec)
		}
		o.barrier.stage(pendingChange{kind: changeCreateNode, labels: n.Labels, attrs: attrs})
		// SlotOut is left empty: the node does not exist until the barrier
		// commits, and nothing fills the slot afterwards (barrier semantics
		// in spec §4.4: "reads within the same query never observe their
		// own writes until the barrier").
		rec.Set(n.SlotOut, EmptySlot())
	}
	for _, e := range o.Edges {
		attrs := entity.AttrSet{}
		if e.Attrs != nil {
			attrs = e.Attrs(rec)
		}
		src := rec.Get(e.SrcSlot).NodeID
		dest := rec.Get(e.DestSlot).NodeID
		o.barrier.stage(pendingChange{kind: changeCreateEdge, src: src, dest: dest, rel: e.Relation, attrs: attrs})
	}
	return rec, true, nil
}

func (o *Create) Clone(p *Plan) Operator {
	children := append([]int(nil), o.children...)
	return &Create{base: base{plan: p, children: children}, barrier: o.barrier, Nodes: o.Nodes, Edges: o.Edges}
}

// Update rewrites attributes on entities in the stream. AttrFn is applied
// directly (in place), since property updates — unlike structural
// create/delete — do not need matrix overlay staging; only the fields that
// change the matrix topology go through the Barrier.
type Update struct {
	base
	NodeSlot int
	AttrFn   func(entity.AttrSet) entity.AttrSet
}

func NewUpdate(p *Plan, childIdx, nodeSlot int, attrFn func(entity.AttrSet) entity.AttrSet) *Update {
	return &Update{base: newBase(p, childIdx), NodeSlot: nodeSlot, AttrFn: attrFn}
}

func (o *Update) Kind() OpKind    { return OpUpdate }
func (o *Update) Modifies() []int { return nil }
func (o *Update) Free()           {}
func (o *Update) Reset() error    { return o.child(0).Reset() }

func (o *Update) Consume() (Record, bool, error) {
	rec, ok, err := o.child(0).Consume()
	if err != nil || !ok {
		return rec, ok, err
	}
	id := rec.Get(o.NodeSlot).NodeID
	node, found := o.ctx.Graph.GetNodeLocked(id)
	if found && o.AttrFn != nil {
		node.Attrs = o.AttrFn(node.Attrs)
		o.ctx.Graph.NodePool().Update(id, node)
	}
	return rec, true, nil
}

func (o *Update) Clone(p *Plan) Operator {
	children := append([]int(nil), o.children...)
	return &Update{base: base{plan: p, children: children}, NodeSlot: o.NodeSlot, AttrFn: o.AttrFn}
}

// Delete stages node/edge deletions at the Barrier for every record it
// streams through, passing records through unmodified (the barrier makes
// the deletion invisible to the rest of the same query, spec §4.4).
type Delete struct {
	base
	NodeSlots []int
	EdgeSlots []int
	barrier   *Barrier
}

func NewDelete(p *Plan, childIdx int, barrier *Barrier, nodeSlots, edgeSlots []int) *Delete {
	return &Delete{base: newBase(p, childIdx), barrier: barrier, NodeSlots: nodeSlots, EdgeSlots: edgeSlots}
}

func (o *Delete) Kind() OpKind    { return OpDelete }
func (o *Delete) Modifies() []int { return nil }
func (o *Delete) Free()           {}
func (o *Delete) Reset() error    { return o.child(0).Reset() }

func (o *Delete) Consume() (Record, bool, error) {
	rec, ok, err := o.child(0).Consume()
	if err != nil || !ok {
		return rec, ok, err
	}
	for _, s := range o.EdgeSlots {
		o.barrier.stage(pendingChange{kind: changeDeleteEdge, edgeID: rec.Get(s).EdgeID})
	}
	for _, s := range o.NodeSlots {
		o.barrier.stage(pendingChange{kind: changeDeleteNode, nodeID: rec.Get(s).NodeID})
	}
	return rec, true, nil
}

func (o *Delete) Clone(p *Plan) Operator {
	children := append([]int(nil), o.children...)
	return &Delete{base: base{plan: p, children: children}, barrier: o.barrier, NodeSlots: o.NodeSlots, EdgeSlots: o.EdgeSlots}
}

// Merge matches an existing pattern via MatchChild; if MatchChild yields no
// records, it falls back to staging OnCreate via the Barrier exactly once,
// mirroring the teacher's merge.go match-or-create branch (spec §4.4).
type Merge struct {
	base // children[0] = match subtree
	OnCreate []NodeTemplate
	barrier  *Barrier
	matched  bool
	done     bool
}

func NewMerge(p *Plan, matchIdx int, barrier *Barrier, onCreate []NodeTemplate) *Merge {
	return &Merge{base: newBase(p, matchIdx), barrier: barrier, OnCreate: onCreate}
}

func (o *Merge) Kind() OpKind { return OpMerge }
func (o *Merge) Modifies() []int {
	out := make([]int, len(o.OnCreate))
	for i, n := range o.OnCreate {
		out[i] = n.SlotOut
	}
	return out
}
func (o *Merge) Free() {}

func (o *Merge) Reset() error {
	o.matched = false
	o.done = false
	return o.child(0).Reset()
}

func (o *Merge) Consume() (Record, bool, error) {
	if o.done {
		return Record{}, false, nil
	}
	rec, ok, err := o.child(0).Consume()
	if err != nil {
		return Record{}, false, err
	}
	if ok {
		o.matched = true
		return rec, true, nil
	}
	if o.matched {
		o.done = true
		return Record{}, false, nil
	}
	// No match ever seen: create exactly once.
	o.done = true
	out := NewRecord(o.ctx.RecordWidth)
	for _, n := range o.OnCreate {
		attrs := entity.AttrSet{}
		if n.Attrs != nil {
			attrs = n.Attrs(out)
		}
		o.barrier.stage(pendingChange{kind: changeCreateNode, labels: n.Labels, attrs: attrs})
	}
	return out, true, nil
}

func (o *Merge) Clone(p *Plan) Operator {
	children := append([]int(nil), o.children...)
	return &Merge{base: base{plan: p, children: children}, barrier: o.barrier, OnCreate: o.OnCreate}
}
