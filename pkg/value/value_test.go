package value

import (
	"hash/maphash"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualPerVariant(t *testing.T) {
	require.True(t, Equal(Int64(5), Int64(5)))
	require.False(t, Equal(Int64(5), Double(5)))
	require.True(t, Equal(String("a"), String("a")))
	require.True(t, Equal(Array([]Value{Int64(1), String("x")}), Array([]Value{Int64(1), String("x")})))
	require.False(t, Equal(Array([]Value{Int64(1)}), Array([]Value{Int64(1), Int64(2)})))
	require.True(t, Equal(Null(), Null()))
}

func TestTotalOrderAcrossKinds(t *testing.T) {
	vals := []Value{
		Vector([]float32{1}),
		Null(),
		Int64(1),
		Bool(true),
		Map([]MapEntry{{Key: "a", Val: Int64(1)}}),
		Double(1.5),
		String("z"),
		Array([]Value{Int64(1)}),
		PointOf(1, 2),
	}
	SortValues(vals)
	for i := 1; i < len(vals); i++ {
		assert.LessOrEqual(t, int(vals[i-1].Kind()), int(vals[i].Kind()))
	}
	assert.Equal(t, KindNull, vals[0].Kind())
}

func TestCompareWithinKind(t *testing.T) {
	assert.Equal(t, -1, Compare(Int64(1), Int64(2)))
	assert.Equal(t, 1, Compare(Int64(2), Int64(1)))
	assert.Equal(t, 0, Compare(String("a"), String("a")))
	assert.Equal(t, -1, Compare(String("a"), String("b")))
}

func TestCloneDeepCopiesArray(t *testing.T) {
	orig := Array([]Value{Int64(1), Array([]Value{Int64(2)})})
	clone := orig.Clone()
	require.True(t, Equal(orig, clone))

	inner := orig.AsArray()[1].AsArray()
	inner[0] = Int64(999)
	assert.True(t, Equal(clone.AsArray()[1].AsArray()[0], Int64(2)), "clone must not alias original's nested slices")
}

func TestHashStableForSeed(t *testing.T) {
	seed := maphash.MakeSeed()
	v := Map([]MapEntry{{Key: "k", Val: String("v")}})
	h1 := Hash(seed, v)
	h2 := Hash(seed, v.Clone())
	assert.Equal(t, h1, h2)
}

func TestAsXMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { Int64(1).AsString() })
}
