package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, it *Iterator) []Cell {
	t.Helper()
	var out []Cell
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out
}

func TestSetClearFlushPreservesLogicalReads(t *testing.T) {
	d := NewDelta(4, 4)
	d.Set(0, 0, 1)
	d.Set(1, 1, 2)
	d.Clear(1, 1)
	d.Set(2, 2, 3)

	before := map[[2]int]uint64{}
	var it Iterator
	require.NoError(t, it.Attach(d))
	for _, c := range drain(t, &it) {
		before[[2]int{c.Row, c.Col}] = c.Val
	}

	d.Flush()

	after := map[[2]int]uint64{}
	var it2 Iterator
	require.NoError(t, it2.Attach(d))
	for _, c := range drain(t, &it2) {
		after[[2]int{c.Row, c.Col}] = c.Val
	}

	assert.Equal(t, before, after)
	assert.Equal(t, map[[2]int]uint64{{0, 0}: 1, {2, 2}: 3}, after)
	assert.False(t, d.Pending())
}

func TestIteratorYieldsEachCellAtMostOnce(t *testing.T) {
	d := NewDelta(3, 3)
	d.Set(0, 0, 1)
	d.Set(0, 1, 2)
	d.Set(2, 0, 3)

	var it Iterator
	require.NoError(t, it.Attach(d))
	seen := map[[2]int]bool{}
	for _, c := range drain(t, &it) {
		key := [2]int{c.Row, c.Col}
		require.False(t, seen[key], "cell yielded twice: %v", key)
		seen[key] = true
	}
	assert.Len(t, seen, 3)
}

func TestSetOnExistingMainCellReplacesAtFlush(t *testing.T) {
	d := NewDelta(2, 2)
	d.Set(0, 0, 1)
	d.Flush()

	d.Set(0, 0, 99) // cell already in M: idempotent-replace path
	v, ok := d.Get(0, 0)
	require.True(t, ok)
	assert.Equal(t, uint64(99), v)

	d.Flush()
	v, ok = d.Get(0, 0)
	require.True(t, ok)
	assert.Equal(t, uint64(99), v)
}

func TestClearPendingAdditionDropsWithoutTouchingMain(t *testing.T) {
	d := NewDelta(2, 2)
	d.Set(0, 0, 1)
	d.Clear(0, 0)
	_, ok := d.Get(0, 0)
	assert.False(t, ok)
	assert.False(t, d.Pending())
}

func TestIteratorAttachRangeDimensionMismatch(t *testing.T) {
	d := NewDelta(3, 3)
	var it Iterator
	err := it.AttachRange(d, 5, 2) // rowMax < rowMin after clamping
	require.ErrorIs(t, err, ErrDimensionMismatch)
	_, ok := it.Next()
	assert.False(t, ok)
}

func TestIteratorJumpToRowResumesCorrectly(t *testing.T) {
	d := NewDelta(5, 5)
	d.Set(0, 0, 1)
	d.Set(2, 0, 1)
	d.Set(4, 0, 1)

	var it Iterator
	require.NoError(t, it.Attach(d))
	it.JumpToRow(2)
	cells := drain(t, &it)
	require.Len(t, cells, 2)
	assert.Equal(t, 2, cells[0].Row)
	assert.Equal(t, 4, cells[1].Row)
}

func TestIteratorResetReplaysIdenticalStream(t *testing.T) {
	d := NewDelta(3, 3)
	d.Set(0, 1, 7)
	d.Set(2, 2, 8)

	var it Iterator
	require.NoError(t, it.Attach(d))
	first := drain(t, &it)
	it.Reset()
	second := drain(t, &it)
	assert.Equal(t, first, second)
}

func TestEmptyLabelScanExhaustsImmediately(t *testing.T) {
	d := NewDelta(0, 0)
	var it Iterator
	err := it.Attach(d)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestResizeNeverShrinks(t *testing.T) {
	d := NewDelta(5, 5)
	d.Resize(2, 2)
	assert.Equal(t, 5, d.NRows())
	assert.Equal(t, 5, d.NCols())
	d.Resize(10, 10)
	assert.Equal(t, 10, d.NRows())
}
