package entity

import (
	"testing"

	"github.com/cortexgraph/kernel/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAppendReuseFreeList(t *testing.T) {
	p := NewPool[Node]()
	id0 := p.Append(Node{ID: 0})
	id1 := p.Append(Node{ID: 1})
	require.Equal(t, ID(0), id0)
	require.Equal(t, ID(1), id1)

	require.True(t, p.Delete(id0))
	id2 := p.Append(Node{ID: 2})
	assert.Equal(t, id0, id2, "deleted id should be reused before monotone append")

	_, ok := p.Get(id1)
	assert.True(t, ok)
}

func TestPoolIterationSnapshotsEndOfPass(t *testing.T) {
	p := NewPool[Node]()
	for i := 0; i < 3; i++ {
		p.Append(Node{ID: ID(i)})
	}
	seen := 0
	p.Each(func(id ID, n Node) bool {
		seen++
		if seen == 1 {
			p.Append(Node{ID: 99}) // appended mid-pass, must not be visited
		}
		return true
	})
	assert.Equal(t, 3, seen)
}

func TestPoolDeletedIDsOrderPreserved(t *testing.T) {
	p := NewPool[Node]()
	ids := make([]ID, 5)
	for i := range ids {
		ids[i] = p.Append(Node{ID: ID(i)})
	}
	require.True(t, p.Delete(ids[3]))
	require.True(t, p.Delete(ids[1]))
	assert.Equal(t, []ID{ids[3], ids[1]}, p.DeletedIDs())
}

func TestAttrSetOrderingAndOrdinalStability(t *testing.T) {
	var as AttrSet
	as.Set(5, value.Int64(5))
	as.Set(1, value.Int64(1))
	as.Set(3, value.Int64(3))
	require.Equal(t, 3, as.Len())

	var seen []AttrID
	as.Each(func(id AttrID, v value.Value) { seen = append(seen, id) })
	assert.Equal(t, []AttrID{1, 3, 5}, seen)

	id0, _ := as.ByOrdinal(0)
	id1, _ := as.ByOrdinal(1)
	id2, _ := as.ByOrdinal(2)
	assert.Equal(t, []AttrID{1, 3, 5}, []AttrID{id0, id1, id2})
}
