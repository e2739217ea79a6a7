package index

import (
	"sync"

	"github.com/cortexgraph/kernel/pkg/entity"
	"github.com/cortexgraph/kernel/pkg/graph"
	"github.com/cortexgraph/kernel/pkg/matrix"
)

// DefaultBatchSize is the default soft cap on entities indexed per batch
// before the populator releases the graph read lock (spec §4.5).
const DefaultBatchSize = 1000

// NodeIndexFunc is invoked once per live node the populator visits.
type NodeIndexFunc func(id entity.ID, node entity.Node)

// EdgeIndexFunc is invoked once per live edge the populator visits. For a
// multi-edge slot, spec §4.5 requires the whole slot be indexed atomically
// within one batch, so the populator may call this more than once for the
// same (src, dest) pair without releasing the lock in between.
type EdgeIndexFunc func(id entity.ID, edge entity.Edge)

// NodePopulator walks a label matrix in resumable batches, indexing every
// live node it finds, per spec §4.5.
type NodePopulator struct {
	g         *graph.Graph
	label     uint16
	batchSize int
	indexFn   NodeIndexFunc

	state     stateBox
	mu        sync.Mutex // guards resumeRow, touched by both the loop goroutine and Stats
	resumeRow int

	done chan struct{}
}

// NewNodePopulator constructs a populator for g's label matrix, in the
// CREATED state. Start must be called to begin populating.
func NewNodePopulator(g *graph.Graph, label uint16, batchSize int, indexFn NodeIndexFunc) *NodePopulator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &NodePopulator{g: g, label: label, batchSize: batchSize, indexFn: indexFn, done: make(chan struct{})}
}

func (p *NodePopulator) State() State { return p.state.load() }

// Start transitions CREATED -> POPULATING and launches the background loop.
// It is a no-op if the populator is not in CREATED state.
func (p *NodePopulator) Start() {
	if !p.state.cas(Created, Populating) {
		return
	}
	go p.run()
}

// Abort transitions the populator to DROPPED; the loop checks state at
// every batch boundary and exits cleanly (spec §5 "Cancellation").
func (p *NodePopulator) Abort() { p.state.store(Dropped) }

// Wait blocks until the background loop has exited (Active or Dropped).
func (p *NodePopulator) Wait() { <-p.done }

// ResumeRow reports the next row the populator will attach at, for
// observability/testing.
func (p *NodePopulator) ResumeRow() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resumeRow
}

func (p *NodePopulator) run() {
	defer close(p.done)
	it := matrix.NewIterator()
	for {
		if p.state.load() != Populating {
			return
		}

		p.g.AcquireReadLock()
		m, ok := p.g.LabelMatrix(p.label)
		if !ok {
			p.g.ReleaseReadLock()
			p.enable()
			return
		}
		p.mu.Lock()
		start := p.resumeRow
		p.mu.Unlock()
		if err := it.AttachRange(m, start, m.NRows()-1); err != nil {
			p.g.ReleaseReadLock()
			p.enable()
			return
		}

		processed := 0
		var lastRow = start - 1
		for processed < p.batchSize {
			cell, ok := it.Next()
			if !ok {
				break
			}
			node, alive := p.g.GetNodeLocked(entity.ID(cell.Row))
			if alive && p.indexFn != nil {
				p.indexFn(entity.ID(cell.Row), node)
			}
			lastRow = cell.Row
			processed++
		}
		exhausted := it.Exhausted()
		it.Detach()
		p.g.ReleaseReadLock()

		if processed < p.batchSize || exhausted {
			p.enable()
			return
		}
		p.mu.Lock()
		p.resumeRow = lastRow + 1
		p.mu.Unlock()
	}
}

// enable calls Index_Enable (spec §4.5 step 3): transitions POPULATING ->
// ACTIVE, leaving DROPPED untouched.
func (p *NodePopulator) enable() { p.state.cas(Populating, Active) }

// EdgePopulator walks a relation matrix in resumable batches, expanding
// multi-edge slots atomically, per spec §4.5.
type EdgePopulator struct {
	g         *graph.Graph
	relation  uint16
	batchSize int
	indexFn   EdgeIndexFunc

	state stateBox
	mu    sync.Mutex
	// resumeRow/resumeCol is the last (src, dest) pair indexed by the
	// previous batch. The Open Question decision (DESIGN.md) resolves
	// the boundary as a strict ">" skip: entries equal to the last indexed
	// pair are skipped, since within one slot every edge was already
	// indexed atomically in the batch that produced it.
	resumeRow, resumeCol int
	haveResume           bool

	done chan struct{}
}

func NewEdgePopulator(g *graph.Graph, relation uint16, batchSize int, indexFn EdgeIndexFunc) *EdgePopulator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &EdgePopulator{g: g, relation: relation, batchSize: batchSize, indexFn: indexFn, done: make(chan struct{})}
}

func (p *EdgePopulator) State() State { return p.state.load() }

func (p *EdgePopulator) Start() {
	if !p.state.cas(Created, Populating) {
		return
	}
	go p.run()
}

func (p *EdgePopulator) Abort() { p.state.store(Dropped) }
func (p *EdgePopulator) Wait()  { <-p.done }

func (p *EdgePopulator) run() {
	defer close(p.done)
	it := matrix.NewIterator()
	for {
		if p.state.load() != Populating {
			return
		}

		p.g.AcquireReadLock()
		m, ok := p.g.RelationMatrix(p.relation)
		if !ok {
			p.g.ReleaseReadLock()
			p.enable()
			return
		}
		p.mu.Lock()
		startRow := 0
		if p.haveResume {
			startRow = p.resumeRow
		}
		resumeRow, resumeCol, haveResume := p.resumeRow, p.resumeCol, p.haveResume
		p.mu.Unlock()
		if err := it.AttachRange(m, startRow, m.NRows()-1); err != nil {
			p.g.ReleaseReadLock()
			p.enable()
			return
		}

		processed := 0
		lastRow, lastCol := resumeRow, resumeCol
		for processed < p.batchSize {
			cell, ok := it.Next()
			if !ok {
				break
			}
			if haveResume && !after(cell.Row, cell.Col, resumeRow, resumeCol) {
				continue
			}
			edges := p.g.EdgesAtSlot(cell.Val)
			for _, eid := range edges {
				if edge, alive := p.g.GetEdgeLocked(eid); alive && p.indexFn != nil {
					p.indexFn(eid, edge)
				}
			}
			lastRow, lastCol = cell.Row, cell.Col
			processed++
		}
		exhausted := it.Exhausted()
		it.Detach()
		p.g.ReleaseReadLock()

		if processed < p.batchSize || exhausted {
			p.enable()
			return
		}
		p.mu.Lock()
		p.resumeRow, p.resumeCol, p.haveResume = lastRow, lastCol, true
		p.mu.Unlock()
	}
}

func (p *EdgePopulator) enable() { p.state.cas(Populating, Active) }

// after reports whether (row, col) is strictly lexicographically greater
// than (prevRow, prevCol).
func after(row, col, prevRow, prevCol int) bool {
	if row != prevRow {
		return row > prevRow
	}
	return col > prevCol
}
