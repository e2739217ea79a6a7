package plan

import (
	"github.com/cortexgraph/kernel/pkg/entity"
	"github.com/cortexgraph/kernel/pkg/graph"
)

// pendingChange is one staged graph mutation, accumulated by a mutation
// operator and applied at the single commit barrier (spec §4.4).
type pendingChange struct {
	kind      changeKind
	labels    []uint16
	attrs     entity.AttrSet
	src, dest entity.ID
	rel       uint16
	nodeID    entity.ID
	edgeID    entity.ID
}

type changeKind uint8

const (
	changeCreateNode changeKind = iota
	changeCreateEdge
	changeDeleteNode
	changeDeleteEdge
)

// Barrier is the single synchronization point described in spec §4.4 and
// the GLOSSARY: it acquires the graph write lock, applies every staged
// change from every mutation operator registered with it, flushes, and
// releases. Reads within the same query never observe their own writes
// until the barrier runs (spec §4.4, and Open Question #2 in spec §9).
type Barrier struct {
	g       *graph.Graph
	pending []pendingChange
}

func NewBarrier(g *graph.Graph) *Barrier { return &Barrier{g: g} }

func (b *Barrier) stage(c pendingChange) { b.pending = append(b.pending, c) }

// Commit applies every staged change, flushes, and clears the buffer. If
// the query errors before Commit runs, the pending buffer is simply
// discarded (spec §7 "Partial mutations are never committed").
func (b *Barrier) Commit(ctx *ExecContext) error {
	b.g.AcquireWriteLock()
	defer b.g.ReleaseWriteLock()
	for _, c := range b.pending {
		switch c.kind {
		case changeCreateNode:
			b.g.CreateNodeLocked(c.labels, c.attrs)
		case changeCreateEdge:
			if _, err := b.g.CreateEdgeLocked(c.src, c.dest, c.rel, c.attrs); err != nil {
				return err
			}
		case changeDeleteNode:
			b.g.DeleteNodeLocked(c.nodeID)
		case changeDeleteEdge:
			b.g.DeleteEdgeLocked(c.edgeID)
		}
	}
	b.g.FlushLocked()
	b.pending = nil
	return nil
}
