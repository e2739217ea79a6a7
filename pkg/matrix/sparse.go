// Package matrix implements the sparse-matrix storage primitive and the
// delta-overlay logic built on top of it (spec §4.1). The spec treats a
// sparse-linear-algebra kernel as a black-box primitive with documented
// operations; no such library appears anywhere in the example corpus, so
// the primitive itself is implemented here directly rather than imported.
package matrix

import "sort"

// Sparse is a minimal row-sorted sparse matrix over uint64 cell values. A
// present cell with value 0 is distinct from an absent cell: absence is
// tracked by the row's column list, not by the stored value.
//
// This is deliberately not safe for concurrent use on its own — callers
// (Delta, pkg/graph) hold the locking discipline.
type Sparse struct {
	nrows, ncols int
	rows         []row // len == nrows; nil row means empty
}

// row holds one matrix row's nonzero cells, columns in ascending order.
type row struct {
	cols []int
	vals []uint64
}

// New returns an nrows x ncols all-zero sparse matrix.
func New(nrows, ncols int) *Sparse {
	return &Sparse{nrows: nrows, ncols: ncols, rows: make([]row, nrows)}
}

func (s *Sparse) NRows() int { return s.nrows }
func (s *Sparse) NCols() int { return s.ncols }

// Resize enlarges the matrix to at least (n, m); it never shrinks (spec
// §4.1 resize contract).
func (s *Sparse) Resize(n, m int) {
	if n > s.nrows {
		grown := make([]row, n)
		copy(grown, s.rows)
		s.rows = grown
		s.nrows = n
	}
	if m > s.ncols {
		s.ncols = m
	}
}

// Get returns the value at (i,j) and whether the cell is present.
func (s *Sparse) Get(i, j int) (uint64, bool) {
	if i < 0 || i >= s.nrows {
		return 0, false
	}
	r := &s.rows[i]
	idx := sort.SearchInts(r.cols, j)
	if idx < len(r.cols) && r.cols[idx] == j {
		return r.vals[idx], true
	}
	return 0, false
}

// Set writes v at (i,j), inserting the cell if absent.
func (s *Sparse) Set(i, j int, v uint64) {
	s.growTo(i, j)
	r := &s.rows[i]
	idx := sort.SearchInts(r.cols, j)
	if idx < len(r.cols) && r.cols[idx] == j {
		r.vals[idx] = v
		return
	}
	r.cols = append(r.cols, 0)
	copy(r.cols[idx+1:], r.cols[idx:])
	r.cols[idx] = j
	r.vals = append(r.vals, 0)
	copy(r.vals[idx+1:], r.vals[idx:])
	r.vals[idx] = v
}

// Clear removes the cell at (i,j) if present.
func (s *Sparse) Clear(i, j int) {
	if i < 0 || i >= s.nrows {
		return
	}
	r := &s.rows[i]
	idx := sort.SearchInts(r.cols, j)
	if idx < len(r.cols) && r.cols[idx] == j {
		r.cols = append(r.cols[:idx], r.cols[idx+1:]...)
		r.vals = append(r.vals[:idx], r.vals[idx+1:]...)
	}
}

// NNZRow returns the number of nonzero cells in row i.
func (s *Sparse) NNZRow(i int) int {
	if i < 0 || i >= s.nrows {
		return 0
	}
	return len(s.rows[i].cols)
}

func (s *Sparse) growTo(i, j int) {
	n, m := s.nrows, s.ncols
	if i >= n {
		n = i + 1
	}
	if j >= m {
		m = j + 1
	}
	if n > s.nrows || m > s.ncols {
		s.Resize(n, m)
	}
}

// cellsInRow returns (col, val) pairs for row i in ascending column order,
// used by the delta iterator's merge step.
func (s *Sparse) cellsInRow(i int) ([]int, []uint64) {
	if i < 0 || i >= s.nrows {
		return nil, nil
	}
	r := &s.rows[i]
	return r.cols, r.vals
}
