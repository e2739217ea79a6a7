package plan

import (
	"github.com/cortexgraph/kernel/pkg/entity"
	"github.com/cortexgraph/kernel/pkg/matrix"
)

const defaultRecordCap = 256

// ConditionalTraverse evaluates the relation matrix for RelationID as the
// algebraic product against a batch of buffered source ids, then iterates
// the result matrix mapping (src, dest) onto SrcSlot/DestSlot (spec §4.4).
//
// The "algebraic expression over matrices" spec.md describes is, at the
// scope this repo implements, a single relation matrix traversed directly;
// the buffering discipline (fill up to RecordCap source records, build a
// filter, iterate, refill) is preserved exactly since it's what the spec
// calls out as performance-critical, independent of how elaborate the
// matrix expression gets.
type ConditionalTraverse struct {
	base
	SrcSlot    int
	DestSlot   int
	RelationID uint16
	RecordCap  int
	Reverse    bool // true: traverse dest->src (incoming edges)

	buf      []Record
	bufIdx   int
	it       matrix.Iterator
	attached bool
}

func NewConditionalTraverse(p *Plan, childIdx, srcSlot, destSlot int, rel uint16) *ConditionalTraverse {
	return &ConditionalTraverse{
		base: newBase(p, childIdx), SrcSlot: srcSlot, DestSlot: destSlot,
		RelationID: rel, RecordCap: defaultRecordCap,
	}
}

func (o *ConditionalTraverse) Kind() OpKind    { return OpConditionalTraverse }
func (o *ConditionalTraverse) Modifies() []int { return []int{o.SrcSlot, o.DestSlot} }
func (o *ConditionalTraverse) Free()           { o.it.Detach() }

func (o *ConditionalTraverse) Reset() error {
	o.it.Detach()
	o.attached = false
	o.buf = nil
	o.bufIdx = 0
	return o.child(0).Reset()
}

func (o *ConditionalTraverse) Consume() (Record, bool, error) {
	for {
		if o.attached {
			if rec, ok := o.nextFromResult(); ok {
				return rec, true, nil
			}
			o.it.Detach()
			o.attached = false
		}
		if err := o.refill(); err != nil {
			return Record{}, false, err
		}
		if len(o.buf) == 0 {
			return Record{}, false, nil
		}
		if err := o.attachResult(); err != nil {
			return Record{}, false, err
		}
	}
}

// refill buffers up to RecordCap input records from the child (spec §4.4:
// "buffer up to record_cap input records").
func (o *ConditionalTraverse) refill() error {
	o.buf = o.buf[:0]
	o.bufIdx = 0
	for len(o.buf) < o.RecordCap {
		rec, ok, err := o.child(0).Consume()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		o.buf = append(o.buf, rec)
	}
	return nil
}

func (o *ConditionalTraverse) srcIDOf(rec Record) entity.ID {
	slot := o.SrcSlot
	if o.Reverse {
		slot = o.DestSlot
	}
	return rec.Get(slot).NodeID
}

// attachResult attaches the iterator to the relation matrix restricted to
// the row span [min, max] of the buffered source ids; no filter matrix is
// materialized, and nextFromResult drops rows that are not buffered.
func (o *ConditionalTraverse) attachResult() error {
	rm, ok := o.ctx.Graph.RelationMatrix(o.RelationID)
	if !ok {
		o.attached = false
		return nil
	}
	min, max := -1, -1
	for _, rec := range o.buf {
		id := int(o.srcIDOf(rec))
		if min == -1 || id < min {
			min = id
		}
		if max == -1 || id > max {
			max = id
		}
	}
	if err := o.it.AttachRange(rm, min, max); err != nil {
		o.attached = false
		return nil
	}
	o.attached = true
	return nil
}

// nextFromResult advances the result iterator, filtering to rows present in
// the buffered source-id set, and maps each surviving cell onto a cloned
// buffered record with both endpoints populated.
func (o *ConditionalTraverse) nextFromResult() (Record, bool) {
	for {
		cell, ok := o.it.Next()
		if !ok {
			return Record{}, false
		}
		bufRec := o.findBuffered(entity.ID(cell.Row))
		if bufRec == nil {
			continue
		}
		// Multiple parallel edges at this slot collapse to one dest record,
		// matching matrix-level semantics: the cell identifies the (src,dest)
		// pair, not which constituent edge id produced it.
		out := bufRec.Clone()
		if o.Reverse {
			out.Set(o.DestSlot, NodeSlot(entity.ID(cell.Row)))
			out.Set(o.SrcSlot, NodeSlot(entity.ID(cell.Col)))
		} else {
			out.Set(o.SrcSlot, NodeSlot(entity.ID(cell.Row)))
			out.Set(o.DestSlot, NodeSlot(entity.ID(cell.Col)))
		}
		return out, true
	}
}

func (o *ConditionalTraverse) findBuffered(id entity.ID) *Record {
	for i := range o.buf {
		if o.srcIDOf(o.buf[i]) == id {
			return &o.buf[i]
		}
	}
	return nil
}

func (o *ConditionalTraverse) Clone(p *Plan) Operator {
	children := append([]int(nil), o.children...)
	return &ConditionalTraverse{
		base: base{plan: p, children: children}, SrcSlot: o.SrcSlot, DestSlot: o.DestSlot,
		RelationID: o.RelationID, RecordCap: o.RecordCap, Reverse: o.Reverse,
	}
}

// VarLenTraverse performs iterative DFS from a source with a visited-set
// bounded by MaxLen (spec §4.4): cycles may close but not re-expand ("path
// a->b->a permits the second visit to a, but does not expand from it").
// Minimum-length filtering is applied post-hoc; duplicate destinations on
// distinct paths are not deduplicated (caller's responsibility, per spec).
type VarLenTraverse struct {
	base
	SrcSlot    int
	DestSlot   int
	RelationID uint16
	MinLen     int
	MaxLen     int

	results  []entity.ID
	resIdx   int
	srcRec   *Record
	started  bool
}

func NewVarLenTraverse(p *Plan, childIdx, srcSlot, destSlot int, rel uint16, minLen, maxLen int) *VarLenTraverse {
	return &VarLenTraverse{base: newBase(p, childIdx), SrcSlot: srcSlot, DestSlot: destSlot, RelationID: rel, MinLen: minLen, MaxLen: maxLen}
}

func (o *VarLenTraverse) Kind() OpKind    { return OpVarLenTraverse }
func (o *VarLenTraverse) Modifies() []int { return []int{o.SrcSlot, o.DestSlot} }
func (o *VarLenTraverse) Free()           {}

func (o *VarLenTraverse) Reset() error {
	o.results = nil
	o.resIdx = 0
	o.srcRec = nil
	o.started = false
	return o.child(0).Reset()
}

func (o *VarLenTraverse) Consume() (Record, bool, error) {
	for {
		if o.resIdx < len(o.results) {
			dest := o.results[o.resIdx]
			o.resIdx++
			out := o.srcRec.Clone()
			out.Set(o.DestSlot, NodeSlot(dest))
			return out, true, nil
		}
		rec, ok, err := o.child(0).Consume()
		if err != nil {
			return Record{}, false, err
		}
		if !ok {
			return Record{}, false, nil
		}
		cp := rec.Clone()
		o.srcRec = &cp
		src := rec.Get(o.SrcSlot).NodeID
		o.results = o.dfs(src)
		o.resIdx = 0
	}
}

// dfs explores every simple path up to MaxLen hops, recording the endpoint
// of each path of length >= MinLen (a node reached by several paths is
// recorded once per path). A node already on the current
// path is still yielded when reached (closing a cycle) but is not expanded
// further (spec §4.4, §8 scenario 6).
func (o *VarLenTraverse) dfs(src entity.ID) []entity.ID {
	rm, ok := o.ctx.Graph.RelationMatrix(o.RelationID)
	if !ok {
		return nil
	}
	var out []entity.ID
	onPath := map[entity.ID]bool{src: true}
	var walk func(node entity.ID, depth int)
	walk = func(node entity.ID, depth int) {
		if depth > 0 && depth >= o.MinLen {
			out = append(out, node)
		}
		if depth >= o.MaxLen {
			return
		}
		if depth > 0 && onPath[node] {
			return // cycle closed; do not re-expand (spec §4.4)
		}
		onPath[node] = true
		defer delete(onPath, node)

		var it matrix.Iterator
		if err := it.AttachRange(rm, int(node), int(node)); err != nil {
			return
		}
		for {
			cell, ok := it.Next()
			if !ok {
				break
			}
			walk(entity.ID(cell.Col), depth+1)
		}
	}
	walk(src, 0)
	return out
}

func (o *VarLenTraverse) Clone(p *Plan) Operator {
	children := append([]int(nil), o.children...)
	return &VarLenTraverse{base: base{plan: p, children: children}, SrcSlot: o.SrcSlot, DestSlot: o.DestSlot, RelationID: o.RelationID, MinLen: o.MinLen, MaxLen: o.MaxLen}
}
