package matrix

import (
	"errors"
	"sync"
)

// ErrDimensionMismatch is returned by Iterator.Attach/AttachRange when the
// requested range falls entirely outside the matrix's current dimensions
// (spec §4.1 "Failure semantics").
var ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

// Delta presents the logical matrix L = (M ∨ P+) ∧ ¬P- described in spec
// §3's "Delta-matrix" invariant. All mutation goes through Set/Clear/Flush;
// Get/iteration always observe the logical view.
//
// Delta itself holds no lock: pkg/graph serializes access with its
// reader-writer lock per the concurrency contract in spec §4.3. The mutex
// here only protects the overlay bookkeeping (pending()) from being read
// torn by a concurrent Set while the graph lock is briefly relaxed inside
// index population (spec §4.5).
type Delta struct {
	mu sync.Mutex // guards the overlay bookkeeping below (plus, minus, pending)

	main    *Sparse
	plus    *Sparse // pending additions; a cell replaced by Set may also be in main, and plus wins
	minus   *Sparse // pending deletions
	pending int     // count of cells currently in plus or minus, for Pending()
}

// NewDelta returns an empty nrows x ncols delta-matrix.
func NewDelta(nrows, ncols int) *Delta {
	return &Delta{
		main:  New(nrows, ncols),
		plus:  New(nrows, ncols),
		minus: New(nrows, ncols),
	}
}

func (d *Delta) NRows() int { return d.main.NRows() }
func (d *Delta) NCols() int { return d.main.NCols() }

// Resize enlarges all three physical matrices to at least (n, m); never
// shrinks (spec §4.1).
func (d *Delta) Resize(n, m int) {
	d.main.Resize(n, m)
	d.plus.Resize(n, m)
	d.minus.Resize(n, m)
}

// Get returns (value, true) iff L[i,j] holds, per the invariant in spec §3:
// L[i,j] = (M[i,j] ∨ P+[i,j]) ∧ ¬P-[i,j].
func (d *Delta) Get(i, j int) (uint64, bool) {
	if v, ok := d.plus.Get(i, j); ok {
		if _, deleted := d.minus.Get(i, j); deleted {
			return 0, false
		}
		return v, true
	}
	if v, ok := d.main.Get(i, j); ok {
		if _, deleted := d.minus.Get(i, j); deleted {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// Set implements spec §4.1's idempotent-replace semantics: whether the cell
// is already present in M or not, stage the new value into P+ and clear any
// pending deletion, so P+ always wins and a flush folds the new value over
// the old without ever erasing it.
func (d *Delta) Set(i, j int, v uint64) {
	d.growTo(i, j)
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, hadMinus := d.minus.Get(i, j); hadMinus {
		d.minus.Clear(i, j)
		d.pending--
	}
	if _, hadPlus := d.plus.Get(i, j); !hadPlus {
		d.pending++
	}
	d.plus.Set(i, j, v)
}

// Clear implements spec §4.1: if P+ holds the cell, drop it; then, if M
// holds it (a Set replacement of an M cell leaves the old value there),
// stage a pending deletion; else no-op.
func (d *Delta) Clear(i, j int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, hadPlus := d.plus.Get(i, j); hadPlus {
		d.plus.Clear(i, j)
		d.pending--
	}
	if _, inMain := d.main.Get(i, j); inMain {
		if _, hadMinus := d.minus.Get(i, j); !hadMinus {
			d.minus.Set(i, j, 1)
			d.pending++
		}
	}
}

// Pending reports whether either overlay currently holds any cell.
func (d *Delta) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending > 0
}

// Flush atomically folds P+ into M, erases P- entries from M, and clears
// both overlays (spec §4.1). Callers must hold the graph write lock while
// calling Flush (spec §4.3): "the writer may call flush only while it holds
// the write lock."
func (d *Delta) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 0; i < d.plus.NRows(); i++ {
		cols, vals := d.plus.cellsInRow(i)
		for k, c := range cols {
			d.main.Set(i, c, vals[k])
		}
	}
	for i := 0; i < d.minus.NRows(); i++ {
		cols, _ := d.minus.cellsInRow(i)
		for _, c := range cols {
			d.main.Clear(i, c)
		}
	}
	d.plus = New(d.main.NRows(), d.main.NCols())
	d.minus = New(d.main.NRows(), d.main.NCols())
	d.pending = 0
}

func (d *Delta) growTo(i, j int) {
	n, m := d.NRows(), d.NCols()
	grow := false
	if i >= n {
		n = i + 1
		grow = true
	}
	if j >= m {
		m = j + 1
		grow = true
	}
	if grow {
		d.Resize(n, m)
	}
}

// snapshot is the triple captured at Iterator.Attach time (spec §4.1
// "Attaches to a specific delta-matrix and snapshots its triple at attach
// time").
type snapshot struct {
	main, plus, minus *Sparse
}
