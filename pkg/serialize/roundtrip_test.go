package serialize

import (
	"bytes"
	"context"
	"testing"

	"github.com/cortexgraph/kernel/pkg/entity"
	"github.com/cortexgraph/kernel/pkg/graph"
	"github.com/cortexgraph/kernel/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrsOf(pairs ...any) entity.AttrSet {
	var as entity.AttrSet
	for i := 0; i < len(pairs); i += 2 {
		as.Set(entity.AttrID(pairs[i].(int)), pairs[i+1].(value.Value))
	}
	return as
}

func labelsOf(ls entity.LabelSet) []uint16 {
	var out []uint16
	ls.Each(func(l uint16) { out = append(out, l) })
	return out
}

func assertGraphsEqual(t *testing.T, want, got *graph.Graph) {
	t.Helper()
	wantStats, gotStats := want.Stats(), got.Stats()
	assert.Equal(t, wantStats.Nodes.Live, gotStats.Nodes.Live)
	assert.Equal(t, wantStats.Edges.Live, gotStats.Edges.Live)

	want.NodePool().Each(func(id entity.ID, n entity.Node) bool {
		gn, ok := got.GetNode(id)
		if !assert.True(t, ok, "node %d missing after roundtrip", id) {
			return true
		}
		assert.Equal(t, labelsOf(n.Labels), labelsOf(gn.Labels), "node %d labels", id)
		assert.Equal(t, n.Attrs.Len(), gn.Attrs.Len(), "node %d attr count", id)
		for i := 0; i < n.Attrs.Len(); i++ {
			wantID, wantVal := n.Attrs.ByOrdinal(i)
			gotVal, ok := gn.Attrs.Get(wantID)
			require.True(t, ok)
			assert.True(t, value.Equal(wantVal, gotVal), "node %d attr %d", id, wantID)
		}
		return true
	})

	want.EdgePool().Each(func(id entity.ID, e entity.Edge) bool {
		ge, ok := got.GetEdge(id)
		if !assert.True(t, ok, "edge %d missing after roundtrip", id) {
			return true
		}
		assert.Equal(t, e.Src, ge.Src)
		assert.Equal(t, e.Dest, ge.Dest)
		assert.Equal(t, e.RelationID, ge.RelationID)
		return true
	})
}

func TestEncodeDecodeRoundTripPreservesGraph(t *testing.T) {
	g := graph.New("alpha")
	a := g.CreateNode([]uint16{1, 2}, attrsOf(0, value.String("a")))
	b := g.CreateNode([]uint16{2}, attrsOf(0, value.Int64(42)))
	c := g.CreateNode(nil, entity.AttrSet{})

	_, err := g.CreateEdge(a, b, 9, attrsOf(1, value.Double(3.5)))
	require.NoError(t, err)
	_, err = g.CreateEdge(b, c, 9, entity.AttrSet{})
	require.NoError(t, err)

	deadNode := g.CreateNode(nil, entity.AttrSet{})
	require.True(t, g.DeleteNode(deadNode))

	g.ApplyAllPending(context.Background(), true)

	var buf bytes.Buffer
	enc := &Encoder{}
	require.NoError(t, enc.EncodeGraph(g)(&buf))

	got := graph.New("alpha")
	dec := &Decoder{}
	require.NoError(t, dec.DecodeInto(got, bytes.NewReader(buf.Bytes())))

	assertGraphsEqual(t, g, got)

	_, ok := got.GetNode(deadNode)
	assert.False(t, ok, "tombstoned node must stay dead after roundtrip")
}

func TestEncodeDecodeRoundTripPreservesMultiEdge(t *testing.T) {
	g := graph.New("beta")
	a := g.CreateNode(nil, entity.AttrSet{})
	b := g.CreateNode(nil, entity.AttrSet{})

	e1, err := g.CreateEdge(a, b, 4, attrsOf(0, value.String("first")))
	require.NoError(t, err)
	e2, err := g.CreateEdge(a, b, 4, attrsOf(0, value.String("second")))
	require.NoError(t, err)
	e3, err := g.CreateEdge(a, b, 4, attrsOf(0, value.String("third")))
	require.NoError(t, err)

	g.ApplyAllPending(context.Background(), true)

	var buf bytes.Buffer
	enc := &Encoder{}
	require.NoError(t, enc.EncodeGraph(g)(&buf))

	got := graph.New("beta")
	dec := &Decoder{}
	require.NoError(t, dec.DecodeInto(got, bytes.NewReader(buf.Bytes())))

	rm, ok := got.RelationMatrix(4)
	require.True(t, ok)
	cell, present := rm.Get(int(a), int(b))
	require.True(t, present)
	assert.True(t, got.IsMultiEdgeCell(cell))
	assert.ElementsMatch(t, []entity.ID{e1, e2, e3}, got.EdgesAtSlot(cell))

	for _, id := range []entity.ID{e1, e2, e3} {
		_, ok := got.GetEdge(id)
		assert.True(t, ok)
	}
}

func TestEncodeDecodeRoundTripWithBadgerStaging(t *testing.T) {
	g := graph.New("gamma")
	for i := 0; i < 50; i++ {
		g.CreateNode([]uint16{1}, attrsOf(0, value.Int64(int64(i))))
	}
	g.ApplyAllPending(context.Background(), true)

	staging, err := OpenStaging("")
	require.NoError(t, err)
	defer staging.Close()

	var buf bytes.Buffer
	enc := &Encoder{Staging: staging}
	require.NoError(t, enc.EncodeGraph(g)(&buf))

	got := graph.New("gamma")
	dec := &Decoder{}
	require.NoError(t, dec.DecodeInto(got, bytes.NewReader(buf.Bytes())))

	assertGraphsEqual(t, g, got)
}
