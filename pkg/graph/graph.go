// Package graph implements the graph facade of spec §4.3: it aggregates the
// node/edge entity stores, the per-label and per-relation delta-matrices,
// the global adjacency matrix, and the single reader-writer lock guarding
// all of them.
package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/cortexgraph/kernel/pkg/entity"
	"github.com/cortexgraph/kernel/pkg/matrix"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// SyncPolicy is the per-graph matrix-sync enum from spec §3.
type SyncPolicy uint8

const (
	// SyncNOP: writers never implicitly flush; caller flushes.
	SyncNOP SyncPolicy = iota
	// SyncResize: implicit resize on dimension mismatch only.
	SyncResize
	// SyncFlushResize: full flush before any read that requires consistency
	// (default in steady state).
	SyncFlushResize
)

var tracer trace.Tracer = otel.Tracer("github.com/cortexgraph/kernel/pkg/graph")

// Graph is the facade described in spec §4.3. The zero value is not usable;
// construct with New.
type Graph struct {
	name string

	lock sync.RWMutex // guards everything below; Go's RWMutex is
	// writer-preferring (a pending Lock blocks subsequent RLock callers),
	// matching spec §4.3's "writer-preferring" policy requirement directly.

	nodes *entity.Pool[entity.Node]
	edges *entity.Pool[entity.Edge]

	labelMatrices    map[uint16]*matrix.Delta // diagonal boolean, per label
	relationMatrices map[uint16]*matrix.Delta // uint64-valued, per relation
	adjacency        *matrix.Delta            // boolean OR of all relation matrices
	arena            *multiEdgeArena

	policy SyncPolicy
}

// New returns an empty graph named name.
func New(name string) *Graph {
	return &Graph{
		name:             name,
		nodes:            entity.NewPool[entity.Node](),
		edges:            entity.NewPool[entity.Edge](),
		labelMatrices:    make(map[uint16]*matrix.Delta),
		relationMatrices: make(map[uint16]*matrix.Delta),
		adjacency:        matrix.NewDelta(0, 0),
		arena:            newMultiEdgeArena(),
		policy:           SyncFlushResize,
	}
}

func (g *Graph) Name() string { return g.name }

// MatrixSyncPolicy returns the current policy.
func (g *Graph) MatrixSyncPolicy() SyncPolicy {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return g.policy
}

// SetMatrixSyncPolicy sets the policy (spec §3: RESIZE during bulk decode,
// FLUSH-RESIZE in steady state).
func (g *Graph) SetMatrixSyncPolicy(p SyncPolicy) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.policy = p
}

// AcquireReadLock / AcquireWriteLock / ReleaseLock implement spec §4.3's
// explicit lock contract, used by operators that hold the lock across a
// whole plan execution and by the index populator, which releases and
// re-acquires between batches.
func (g *Graph) AcquireReadLock()  { g.lock.RLock() }
func (g *Graph) ReleaseReadLock()  { g.lock.RUnlock() }
func (g *Graph) AcquireWriteLock() { g.lock.Lock() }
func (g *Graph) ReleaseWriteLock() { g.lock.Unlock() }

func (g *Graph) capacity() int { return g.nodes.Len() }

func (g *Graph) labelMatrix(label uint16) *matrix.Delta {
	m, ok := g.labelMatrices[label]
	if !ok {
		m = matrix.NewDelta(g.capacity(), g.capacity())
		g.labelMatrices[label] = m
	}
	return m
}

func (g *Graph) relationMatrix(rel uint16) *matrix.Delta {
	m, ok := g.relationMatrices[rel]
	if !ok {
		m = matrix.NewDelta(g.capacity(), g.capacity())
		g.relationMatrices[rel] = m
	}
	return m
}

// HasLabelMatrix reports whether label has ever been used, without creating
// one — used by NodeByLabelScan's "unknown to the schema" no-op path
// (spec §4.4).
func (g *Graph) HasLabelMatrix(label uint16) bool {
	g.lock.RLock()
	defer g.lock.RUnlock()
	_, ok := g.labelMatrices[label]
	return ok
}

// LabelMatrix exposes the delta-matrix for scans to iterate directly.
// Callers must already hold at least the read lock.
func (g *Graph) LabelMatrix(label uint16) (*matrix.Delta, bool) {
	m, ok := g.labelMatrices[label]
	return m, ok
}

// RelationMatrix exposes the delta-matrix for a relation id, for scans and
// the index populator. Callers must already hold at least the read lock.
func (g *Graph) RelationMatrix(rel uint16) (*matrix.Delta, bool) {
	m, ok := g.relationMatrices[rel]
	return m, ok
}

// EdgesAtSlot resolves a relation-matrix cell value into its constituent
// edge ids (one, for a direct slot; many, for a multi-edge slot).
func (g *Graph) EdgesAtSlot(cell uint64) []entity.ID {
	slot, ok := decodeSlot(cell, true)
	if !ok {
		return nil
	}
	if !slot.multi {
		return []entity.ID{slot.id}
	}
	return g.arena.get(slot.arena)
}

// CreateNode allocates a node, sets its labels, and stages label-matrix
// diagonal entries into P+ (spec §4.3, §4.4).
func (g *Graph) CreateNode(labels []uint16, attrs entity.AttrSet) entity.ID {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.CreateNodeLocked(labels, attrs)
}

// CreateNodeLocked is the lock-free variant of CreateNode for callers that
// already hold the write lock — notably the mutation Barrier (spec §4.4),
// which stages every change in the same critical section as its flush and
// must not re-enter Lock while holding it.
func (g *Graph) CreateNodeLocked(labels []uint16, attrs entity.AttrSet) entity.ID {
	var ls entity.LabelSet
	for _, l := range labels {
		ls.Add(l)
	}
	id := g.nodes.Append(entity.Node{Labels: ls, Attrs: attrs})
	g.nodes.Update(id, entity.Node{ID: id, Labels: ls, Attrs: attrs})

	g.growAllMatrices(int(id) + 1)
	for _, l := range labels {
		g.labelMatrix(l).Set(int(id), int(id), 1)
	}
	return id
}

// CreateEdge inserts (src,dest) into relation rel's matrix per spec §4.3's
// slot-promotion rule: empty -> direct id; single -> promote to a
// two-element multi-edge array; existing multi -> append.
func (g *Graph) CreateEdge(src, dest entity.ID, rel uint16, attrs entity.AttrSet) (entity.ID, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.CreateEdgeLocked(src, dest, rel, attrs)
}

// CreateEdgeLocked is the lock-free variant of CreateEdge for callers that
// already hold the write lock (the mutation Barrier, spec §4.4).
func (g *Graph) CreateEdgeLocked(src, dest entity.ID, rel uint16, attrs entity.AttrSet) (entity.ID, error) {
	if _, ok := g.nodes.Get(src); !ok {
		return entity.Invalid, fmt.Errorf("graph: create edge: src %d not found", src)
	}
	if _, ok := g.nodes.Get(dest); !ok {
		return entity.Invalid, fmt.Errorf("graph: create edge: dest %d not found", dest)
	}

	id := g.edges.Append(entity.Edge{Src: src, Dest: dest, RelationID: rel, Attrs: attrs})
	g.edges.Update(id, entity.Edge{ID: id, Src: src, Dest: dest, RelationID: rel, Attrs: attrs})

	rm := g.relationMatrix(rel)
	if cell, present := rm.Get(int(src), int(dest)); present {
		slot, _ := decodeSlot(cell, true)
		if slot.multi {
			ids := g.arena.get(slot.arena)
			ids = append(ids, id)
			g.arena.set(slot.arena, ids)
		} else {
			arenaIdx := g.arena.alloc([]entity.ID{slot.id, id})
			rm.Set(int(src), int(dest), encodeMulti(arenaIdx))
		}
	} else {
		rm.Set(int(src), int(dest), encodeDirect(id))
	}

	g.adjacency.Set(int(src), int(dest), 1)
	return id, nil
}

// GetNode returns the node at id and whether it is alive.
func (g *Graph) GetNode(id entity.ID) (entity.Node, bool) {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return g.nodes.Get(id)
}

// GetEdge returns the edge at id and whether it is alive.
func (g *Graph) GetEdge(id entity.ID) (entity.Edge, bool) {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return g.edges.Get(id)
}

// GetNodeLocked and GetEdgeLocked are lock-free variants of GetNode/GetEdge
// for callers that already hold the graph's read or write lock — notably
// the index populator (spec §4.5), which must not re-enter RLock while
// holding it, since Go's writer-preferring RWMutex can deadlock a recursive
// RLock against a writer queued in between.
func (g *Graph) GetNodeLocked(id entity.ID) (entity.Node, bool) { return g.nodes.Get(id) }
func (g *Graph) GetEdgeLocked(id entity.ID) (entity.Edge, bool) { return g.edges.Get(id) }

// DeleteNode overlays deletions into every label matrix row/col for id and
// tombstones the node pool slot. It does not cascade to incident edges;
// callers (mutation operators) are responsible for deleting those first,
// matching the teacher's "caller orders its own cascades" convention.
func (g *Graph) DeleteNode(id entity.ID) bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.DeleteNodeLocked(id)
}

// DeleteNodeLocked is the lock-free variant of DeleteNode for callers that
// already hold the write lock (the mutation Barrier, spec §4.4).
func (g *Graph) DeleteNodeLocked(id entity.ID) bool {
	node, ok := g.nodes.Get(id)
	if !ok {
		return false
	}
	node.Labels.Each(func(l uint16) {
		g.labelMatrix(l).Clear(int(id), int(id))
	})
	return g.nodes.Delete(id)
}

// DeleteEdge overlays a deletion into its relation matrix slot, downgrading
// a multi-edge array back to a direct id when it shrinks to one entry, or
// clearing the slot entirely when it empties (spec §4.3, §8 boundary case).
func (g *Graph) DeleteEdge(id entity.ID) bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.DeleteEdgeLocked(id)
}

// DeleteEdgeLocked is the lock-free variant of DeleteEdge for callers that
// already hold the write lock (the mutation Barrier, spec §4.4).
func (g *Graph) DeleteEdgeLocked(id entity.ID) bool {
	edge, ok := g.edges.Get(id)
	if !ok {
		return false
	}
	rm := g.relationMatrix(edge.RelationID)
	if cell, present := rm.Get(int(edge.Src), int(edge.Dest)); present {
		slot, _ := decodeSlot(cell, true)
		switch {
		case !slot.multi:
			rm.Clear(int(edge.Src), int(edge.Dest))
		default:
			ids := g.arena.get(slot.arena)
			filtered := ids[:0]
			for _, eid := range ids {
				if eid != id {
					filtered = append(filtered, eid)
				}
			}
			switch len(filtered) {
			case 0:
				rm.Clear(int(edge.Src), int(edge.Dest))
				g.arena.release(slot.arena)
			case 1:
				rm.Set(int(edge.Src), int(edge.Dest), encodeDirect(filtered[0]))
				g.arena.release(slot.arena)
			default:
				g.arena.set(slot.arena, filtered)
			}
		}
	}
	if !g.relationHasAnyEdgeBetween(edge.Src, edge.Dest) {
		g.adjacency.Clear(int(edge.Src), int(edge.Dest))
	}
	return g.edges.Delete(id)
}

func (g *Graph) relationHasAnyEdgeBetween(src, dest entity.ID) bool {
	for _, rm := range g.relationMatrices {
		if _, ok := rm.Get(int(src), int(dest)); ok {
			return true
		}
	}
	return false
}

// ApplyAllPending flushes every matrix (spec §4.3). force is accepted but
// has no effect: the node and edge free-lists are not compacted, with or
// without it.
func (g *Graph) ApplyAllPending(ctx context.Context, force bool) {
	_, span := tracer.Start(ctx, "graph.apply_all_pending")
	defer span.End()

	g.lock.Lock()
	defer g.lock.Unlock()
	g.flushLocked()
}

// FlushLocked is the lock-free variant of ApplyAllPending for callers that
// already hold the write lock (the mutation Barrier, spec §4.4) — it skips
// the tracing span and lock acquisition ApplyAllPending wraps it in.
func (g *Graph) FlushLocked() { g.flushLocked() }

func (g *Graph) flushLocked() {
	for _, m := range g.labelMatrices {
		m.Flush()
	}
	for _, m := range g.relationMatrices {
		m.Flush()
	}
	g.adjacency.Flush()
}

// growAllMatrices enlarges every tracked matrix to at least nxn; called
// whenever the node pool's capacity grows so matrix dimensions never fall
// behind the node-store capacity (spec §3 invariant 4).
func (g *Graph) growAllMatrices(n int) {
	for _, m := range g.labelMatrices {
		m.Resize(n, n)
	}
	for _, m := range g.relationMatrices {
		m.Resize(n, n)
	}
	g.adjacency.Resize(n, n)
}

// Stats reports aggregate counts for observability/tooling (SPEC_FULL.md).
type Stats struct {
	Nodes            entity.Stats
	Edges            entity.Stats
	LabelMatrices    int
	RelationMatrices int
	Policy           SyncPolicy
}

func (g *Graph) Stats() Stats {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return Stats{
		Nodes:            g.nodes.Stat(),
		Edges:            g.edges.Stat(),
		LabelMatrices:    len(g.labelMatrices),
		RelationMatrices: len(g.relationMatrices),
		Policy:           g.policy,
	}
}

// NodePool and EdgePool expose the underlying pools to pkg/serialize, which
// needs ordinal iteration and free-list access that the facade doesn't
// otherwise surface (spec §4.6).
func (g *Graph) NodePool() *entity.Pool[entity.Node] { return g.nodes }
func (g *Graph) EdgePool() *entity.Pool[entity.Edge] { return g.edges }

// EnsureLabelMatrix / EnsureRelationMatrix let the decoder pre-create
// matrices at final size before streaming entities (spec §4.6 "pre-allocates
// ... all label/relation matrices to final sizes").
func (g *Graph) EnsureLabelMatrix(label uint16, n int) *matrix.Delta {
	m := g.labelMatrix(label)
	m.Resize(n, n)
	return m
}

func (g *Graph) EnsureRelationMatrix(rel uint16, n int) *matrix.Delta {
	m := g.relationMatrix(rel)
	m.Resize(n, n)
	return m
}

// Arena exposes the multi-edge arena for the decoder to replay multi-edge
// slots exactly (spec §4.6).
func (g *Graph) Arena() *multiEdgeArena { return g.arena }

// SetRelationCell lets the decoder write a relation-matrix cell directly
// (already-tagged) while restoring a snapshot, bypassing CreateEdge's
// slot-promotion logic since the original slot shape is already known.
func (g *Graph) SetRelationCell(rel uint16, src, dest entity.ID, cell uint64) {
	g.relationMatrix(rel).Set(int(src), int(dest), cell)
	g.adjacency.Set(int(src), int(dest), 1)
}

func (g *Graph) SetLabelCell(label uint16, id entity.ID) {
	g.labelMatrix(label).Set(int(id), int(id), 1)
}

// AllocArenaSlot exposes arena allocation to the decoder for restoring
// multi-edge arrays.
func (g *Graph) AllocArenaSlot(ids []entity.ID) uint32 { return g.arena.alloc(ids) }

// LabelIDs and RelationIDs enumerate every label/relation the schema has
// ever seen, for the encoder to walk (spec §4.6 header counts).
func (g *Graph) LabelIDs() []uint16 {
	g.lock.RLock()
	defer g.lock.RUnlock()
	out := make([]uint16, 0, len(g.labelMatrices))
	for l := range g.labelMatrices {
		out = append(out, l)
	}
	return out
}

func (g *Graph) RelationIDs() []uint16 {
	g.lock.RLock()
	defer g.lock.RUnlock()
	out := make([]uint16, 0, len(g.relationMatrices))
	for r := range g.relationMatrices {
		out = append(out, r)
	}
	return out
}

// IsMultiEdgeCell reports whether a relation-matrix cell value is tagged as
// a multi-edge arena slot, exposed for the encoder's per-relation
// "multi-edge" header flag (spec §4.6).
func (g *Graph) IsMultiEdgeCell(cell uint64) bool {
	slot, ok := decodeSlot(cell, true)
	return ok && slot.multi
}

// Preallocate grows the node/edge pools and every tracked matrix to their
// final sizes up front, matching the decoder behavior spec §4.6 describes
// for the first virtual key of a snapshot.
func (g *Graph) Preallocate(nodeCapacity, edgeCapacity int) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.nodes.Grow(nodeCapacity)
	g.edges.Grow(edgeCapacity)
	g.growAllMatrices(nodeCapacity)
}

// RestoreNode places a decoded node at its exact original id and stages its
// label-matrix diagonal entries, for the snapshot decoder (spec §4.6), which
// must preserve ids rather than reassign them the way CreateNode does.
func (g *Graph) RestoreNode(id entity.ID, labels []uint16, attrs entity.AttrSet) {
	g.lock.Lock()
	defer g.lock.Unlock()

	var ls entity.LabelSet
	for _, l := range labels {
		ls.Add(l)
	}
	g.nodes.AppendAt(id, entity.Node{ID: id, Labels: ls, Attrs: attrs})

	g.growAllMatrices(int(id) + 1)
	for _, l := range labels {
		g.labelMatrix(l).Set(int(id), int(id), 1)
	}
}

// RestoreEdge places a decoded edge at its exact original id and threads it
// into relation rel's matrix using the same slot-promotion rule CreateEdge
// applies, for the snapshot decoder (spec §4.6).
func (g *Graph) RestoreEdge(id, src, dest entity.ID, rel uint16, attrs entity.AttrSet) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.edges.AppendAt(id, entity.Edge{ID: id, Src: src, Dest: dest, RelationID: rel, Attrs: attrs})

	rm := g.relationMatrix(rel)
	if cell, present := rm.Get(int(src), int(dest)); present {
		slot, _ := decodeSlot(cell, true)
		if slot.multi {
			ids := g.arena.get(slot.arena)
			ids = append(ids, id)
			g.arena.set(slot.arena, ids)
		} else {
			arenaIdx := g.arena.alloc([]entity.ID{slot.id, id})
			rm.Set(int(src), int(dest), encodeMulti(arenaIdx))
		}
	} else {
		rm.Set(int(src), int(dest), encodeDirect(id))
	}

	g.adjacency.Set(int(src), int(dest), 1)
}
