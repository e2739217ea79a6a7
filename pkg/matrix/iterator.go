package matrix

// Iterator streams (row, col, value) triples over a Delta's logical view in
// row-major, ascending-column order (spec §4.1). It snapshots the delta's
// (M, P+, P-) triple at Attach time, so a concurrent Flush on the same
// Delta does not retroactively change what an in-flight pass observes
// beyond the documented tolerance: if the same (i,j) transiently appears in
// both M and P+ during a concurrent flush, the P+ entry wins.
type Iterator struct {
	snap     snapshot
	attached bool

	rowMin, rowMax int // inclusive range, [rowMin, rowMax]
	row            int // current row cursor
	exhausted      bool

	// merge cursors into the current row's (col, src) candidates
	mainCols    []int
	mainVals    []uint64
	mainIdx     int
	plusCols    []int
	plusVals    []uint64
	plusIdx     int
}

// NewIterator returns a detached iterator.
func NewIterator() *Iterator { return &Iterator{} }

// Attach snapshots d's full row range. Returns ErrDimensionMismatch if d is
// empty (nrows == 0).
func (it *Iterator) Attach(d *Delta) error {
	return it.AttachRange(d, 0, d.NRows()-1)
}

// AttachRange snapshots d and restricts iteration to [rowMin, rowMax],
// inclusive. Per spec §4.1, a range whose rowMax < rowMin (after the caller
// tightens it to the matrix's bounds) returns ErrDimensionMismatch so the
// caller can fall back to an empty scan.
func (it *Iterator) AttachRange(d *Delta, rowMin, rowMax int) error {
	if rowMax > d.NRows()-1 {
		rowMax = d.NRows() - 1
	}
	if rowMin < 0 {
		rowMin = 0
	}
	if rowMax < rowMin {
		it.attached = false
		it.exhausted = true
		return ErrDimensionMismatch
	}
	d.mu.Lock()
	it.snap = snapshot{main: d.main, plus: d.plus, minus: d.minus}
	d.mu.Unlock()
	it.attached = true
	it.rowMin, it.rowMax = rowMin, rowMax
	it.row = rowMin
	it.exhausted = false
	it.loadRow(it.row)
	return nil
}

// IsAttached reports whether it is currently attached to d, by identity of
// the snapshotted main matrix pointer (spec §4.1 "identity test for
// operators that cache iterators").
func (it *Iterator) IsAttached(d *Delta) bool {
	return it.attached && it.snap.main == d.main
}

// JumpToRow repositions the cursor to row r within the attached range,
// without re-snapshotting. The index populators do not call it; they resume
// by re-attaching with AttachRange at the resume row (spec §4.5).
func (it *Iterator) JumpToRow(r int) {
	if !it.attached {
		return
	}
	if r < it.rowMin {
		r = it.rowMin
	}
	it.row = r
	it.exhausted = r > it.rowMax
	if !it.exhausted {
		it.loadRow(it.row)
	}
}

// Detach releases the snapshot.
func (it *Iterator) Detach() {
	*it = Iterator{}
}

// Reset rewinds to the start of the originally-attached range without
// re-snapshotting the delta matrix (spec §4.1).
func (it *Iterator) Reset() {
	if !it.attached {
		return
	}
	it.row = it.rowMin
	it.exhausted = false
	it.loadRow(it.row)
}

// Cell is one (row, col, value) triple yielded by Next.
type Cell struct {
	Row, Col int
	Val      uint64
}

// Exhausted reports whether the prior Next call returned ok=false.
func (it *Iterator) Exhausted() bool { return it.exhausted }

// Next yields the next cell in row-major, ascending-column order, or
// ok=false when the range is exhausted (spec §4.1: "Termination returns
// EXHAUSTED").
func (it *Iterator) Next() (Cell, bool) {
	if !it.attached || it.exhausted {
		return Cell{}, false
	}
	for {
		cell, ok := it.nextInRow()
		if ok {
			return cell, true
		}
		it.row++
		if it.row > it.rowMax {
			it.exhausted = true
			return Cell{}, false
		}
		it.loadRow(it.row)
	}
}

// loadRow primes the merge cursors for row r from the snapshotted main and
// plus matrices.
func (it *Iterator) loadRow(r int) {
	it.mainCols, it.mainVals = it.snap.main.cellsInRow(r)
	it.plusCols, it.plusVals = it.snap.plus.cellsInRow(r)
	it.mainIdx, it.plusIdx = 0, 0
}

// nextInRow advances the two sorted-column cursors for the current row,
// merging M and P+ while skipping anything present in P-, with P+ winning
// ties (spec §4.1 tie-break rule).
func (it *Iterator) nextInRow() (Cell, bool) {
	for {
		hasMain := it.mainIdx < len(it.mainCols)
		hasPlus := it.plusIdx < len(it.plusCols)
		if !hasMain && !hasPlus {
			return Cell{}, false
		}

		var col int
		var val uint64
		fromPlus := false
		switch {
		case hasMain && hasPlus:
			mc, pc := it.mainCols[it.mainIdx], it.plusCols[it.plusIdx]
			switch {
			case mc == pc:
				col, val, fromPlus = pc, it.plusVals[it.plusIdx], true
				it.mainIdx++
				it.plusIdx++
			case mc < pc:
				col, val = mc, it.mainVals[it.mainIdx]
				it.mainIdx++
			default:
				col, val, fromPlus = pc, it.plusVals[it.plusIdx], true
				it.plusIdx++
			}
		case hasMain:
			col, val = it.mainCols[it.mainIdx], it.mainVals[it.mainIdx]
			it.mainIdx++
		default:
			col, val, fromPlus = it.plusCols[it.plusIdx], it.plusVals[it.plusIdx], true
			it.plusIdx++
		}
		_ = fromPlus

		if _, deleted := it.snap.minus.Get(it.row, col); deleted {
			continue
		}
		return Cell{Row: it.row, Col: col, Val: val}, true
	}
}
