package plan

import (
	"context"
	"testing"

	"github.com/cortexgraph/kernel/pkg/entity"
	"github.com/cortexgraph/kernel/pkg/graph"
	"github.com/cortexgraph/kernel/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCtx(g *graph.Graph, width int) *ExecContext {
	ch := make(chan struct{})
	return &ExecContext{Graph: g, Sink: func(error) {}, Cancel: ch, RecordWidth: width}
}

// Scenario 1 (spec §8): label scan with range.
func TestScenarioLabelScanWithRange(t *testing.T) {
	g := graph.New("g")
	for i := 0; i < 10; i++ {
		labels := []uint16{}
		if i%2 == 0 {
			labels = []uint16{1}
		}
		g.CreateNode(labels, entity.AttrSet{})
	}
	g.ApplyAllPending(context.Background(), false)

	p := NewPlan(newCtx(g, 1))
	scanIdx := p.Add(NewNodeByLabelScan(p, 0, 1, 0, 5)) // id(n) < 6
	p.SetRoot(scanIdx)
	require.NoError(t, p.Init())

	var ids []int
	require.NoError(t, p.Run(func(r Record) error {
		ids = append(ids, int(r.Get(0).NodeID))
		return nil
	}))
	assert.Equal(t, []int{0, 2, 4}, ids)
}

// Scenario 2 (spec §8): SKIP $n, cloned and re-executed with a different
// binding.
func TestScenarioSkipParameterCloning(t *testing.T) {
	g := graph.New("g")
	// six-element source via AllNodeScan over six plain nodes a..f
	for i := 0; i < 6; i++ {
		g.CreateNode(nil, entity.AttrSet{})
	}
	g.ApplyAllPending(context.Background(), false)

	params := Params{"n": 2}
	p := NewPlan(newCtx(g, 1))
	scanIdx := p.Add(NewAllNodeScan(p, 0))
	skipIdx := p.Add(NewSkip(p, scanIdx, ParamCount{Name: "n", Params: &params}))
	p.SetRoot(skipIdx)
	require.NoError(t, p.Init())

	var first []int
	require.NoError(t, p.Run(func(r Record) error {
		first = append(first, int(r.Get(0).NodeID))
		return nil
	}))
	assert.Equal(t, []int{2, 3, 4, 5}, first)

	clone := p.Clone()
	skipClone := clone.Op(skipIdx).(*Skip)
	newParams := Params{"n": 5}
	skipClone.expr = ParamCount{Name: "n", Params: &newParams}
	require.NoError(t, clone.Init())

	var second []int
	require.NoError(t, clone.Run(func(r Record) error {
		second = append(second, int(r.Get(0).NodeID))
		return nil
	}))
	assert.Equal(t, []int{5}, second)

	// Original plan's template must be untouched by the clone's rebinding.
	assert.Equal(t, int64(2), params["n"])
}

// Scenario 6 (spec §8): variable-length traversal with a cycle.
func TestScenarioVarLenTraverseWithCycle(t *testing.T) {
	g := graph.New("g")
	a := g.CreateNode(nil, entity.AttrSet{})
	b := g.CreateNode(nil, entity.AttrSet{})
	c := g.CreateNode(nil, entity.AttrSet{})
	const rel = 1
	_, err := g.CreateEdge(a, b, rel, entity.AttrSet{})
	require.NoError(t, err)
	_, err = g.CreateEdge(b, c, rel, entity.AttrSet{})
	require.NoError(t, err)
	_, err = g.CreateEdge(c, a, rel, entity.AttrSet{})
	require.NoError(t, err)
	g.ApplyAllPending(context.Background(), false)

	p := NewPlan(newCtx(g, 2))
	srcIdx := p.Add(NewNodeByLabelAndIDScan(p, 0, 0, a)) // placeholder source binder
	_ = srcIdx
	// Bind source directly via AllNodeScan + filter to node a for determinism.
	scanIdx := p.Add(NewAllNodeScan(p, 0))
	filterIdx := p.Add(NewFilter(p, scanIdx, func(r Record) (bool, error) {
		return r.Get(0).NodeID == a, nil
	}))
	travIdx := p.Add(NewVarLenTraverse(p, filterIdx, 0, 1, rel, 1, 3))
	p.SetRoot(travIdx)
	require.NoError(t, p.Init())

	var dests []entity.ID
	require.NoError(t, p.Run(func(r Record) error {
		dests = append(dests, r.Get(1).NodeID)
		return nil
	}))
	assert.Equal(t, []entity.ID{b, c, a}, dests)
}

func TestMutationBarrierDefersVisibility(t *testing.T) {
	g := graph.New("g")
	barrier := NewBarrier(g)

	p := NewPlan(newCtx(g, 2))
	// Single-shot Create with no child.
	createIdx := p.Add(NewCreate(p, -1, barrier, []NodeTemplate{{SlotOut: 0, Labels: []uint16{9}}}, nil))
	p.SetRoot(createIdx)
	require.NoError(t, p.Init())

	require.NoError(t, p.Run(func(Record) error { return nil }))

	assert.False(t, g.HasLabelMatrix(9) && func() bool {
		m, _ := g.LabelMatrix(9)
		return m.NRows() > 0
	}(), "label matrix should not exist with live rows until the barrier commits")

	require.NoError(t, barrier.Commit(p.Ctx()))

	stats := g.Stats()
	assert.Equal(t, 1, stats.Nodes.Live)
}

func TestAttrSetValueUsedInUpdate(t *testing.T) {
	g := graph.New("g")
	id := g.CreateNode(nil, entity.AttrSet{})
	g.ApplyAllPending(context.Background(), false)

	p := NewPlan(newCtx(g, 1))
	scanIdx := p.Add(NewNodeByLabelAndIDScan(p, 0, 0, id))
	_ = scanIdx
	allIdx := p.Add(NewAllNodeScan(p, 0))
	updIdx := p.Add(NewUpdate(p, allIdx, 0, func(a entity.AttrSet) entity.AttrSet {
		a.Set(1, value.Int64(42))
		return a
	}))
	p.SetRoot(updIdx)
	require.NoError(t, p.Init())
	require.NoError(t, p.Run(func(Record) error { return nil }))
}
