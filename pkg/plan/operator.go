package plan

import (
	"errors"

	"github.com/cortexgraph/kernel/pkg/graph"
)

// OpKind tags each concrete operator (spec §4.4).
type OpKind uint8

const (
	OpAllNodeScan OpKind = iota
	OpNodeByLabelScan
	OpNodeByLabelAndIDScan
	OpConditionalTraverse
	OpVarLenTraverse
	OpSkip
	OpLimit
	OpFilter
	OpProject
	OpSort
	OpCreate
	OpUpdate
	OpDelete
	OpMerge
	OpApply
	OpArgument
	OpLoadCSV
)

// ErrExhausted names stream exhaustion as an error value. No operator in
// this package returns it: Consume reports exhaustion as ok=false with a nil
// error, kept disjoint from real errors per the Open Question in spec §9.
var ErrExhausted = errors.New("plan: exhausted")

// ErrorSink receives runtime-exception reports without a hidden
// thread-local query context (spec §9 "Global context").
type ErrorSink func(error)

// ExecContext is the immutable handle every operator receives in Init:
// the graph, an error-reporting sink, and a cooperative cancellation
// channel (spec §5 "Cancellation & timeouts").
type ExecContext struct {
	Graph   *graph.Graph
	Sink    ErrorSink
	Cancel  <-chan struct{}
	RecordWidth int
}

func (c *ExecContext) cancelled() bool {
	select {
	case <-c.Cancel:
		return true
	default:
		return false
	}
}

// Operator is the contract every concrete operator implements (spec §4.4).
type Operator interface {
	Kind() OpKind
	// Modifies returns the record-slot indices this operator writes.
	Modifies() []int
	Init(ctx *ExecContext) error
	// Consume pulls the next record. ok=false with err=nil means the stream
	// is exhausted; ok=false with err!=nil is a runtime exception.
	Consume() (rec Record, ok bool, err error)
	Reset() error
	Clone(p *Plan) Operator
	Free()
}

// Plan is the arena: operators are indexed by position, and child links are
// integer indices into Plan.ops rather than pointers (spec §9 "arena-
// allocated operators with integer indices for child links, with the plan
// as the arena"). This makes Clone an index-remapping copy.
type Plan struct {
	ops  []Operator
	root int
	ctx  *ExecContext
}

// NewPlan returns an empty plan bound to ctx.
func NewPlan(ctx *ExecContext) *Plan {
	return &Plan{ctx: ctx, root: -1}
}

// Add appends op to the arena and returns its index.
func (p *Plan) Add(op Operator) int {
	p.ops = append(p.ops, op)
	return len(p.ops) - 1
}

// SetRoot marks idx as the plan's single root.
func (p *Plan) SetRoot(idx int) { p.root = idx }

// Op returns the operator at idx.
func (p *Plan) Op(idx int) Operator { return p.ops[idx] }

func (p *Plan) Ctx() *ExecContext { return p.ctx }

// Init calls Init on every operator in arena order, so children are
// initialized before any consumer could pull from them.
func (p *Plan) Init() error {
	for _, op := range p.ops {
		if err := op.Init(p.ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run pulls the root operator to exhaustion, calling visit for each
// produced record. It checks the cancellation flag at every pull boundary
// (spec §5 "a query holds a cancellation flag checked at every operator
// consume entry"). Per spec §4.3, Run holds the graph read lock for its
// entire scan and releases it before returning; the write-lock barrier for
// any staged mutations is acquired separately by the caller's Barrier.Commit
// once Run has returned and the read lock is gone.
func (p *Plan) Run(visit func(Record) error) error {
	if p.root < 0 {
		return errors.New("plan: no root set")
	}
	root := p.ops[p.root]
	ctx, span := startSpan(p.ctx)
	defer span.End()
	_ = ctx

	p.ctx.Graph.AcquireReadLock()
	defer p.ctx.Graph.ReleaseReadLock()

	for {
		if p.ctx.cancelled() {
			return nil
		}
		rec, ok, err := root.Consume()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := visit(rec); err != nil {
			return err
		}
	}
}

// Free tears down every operator in reverse construction order (spec §7
// "tearing down operator state in reverse construction order").
func (p *Plan) Free() {
	for i := len(p.ops) - 1; i >= 0; i-- {
		p.ops[i].Free()
	}
}

// Clone deep-copies the whole plan (index remapping), used for Apply
// subplans that re-execute per outer record (spec §4.4 "Apply / Argument").
func (p *Plan) Clone() *Plan {
	np := &Plan{ctx: p.ctx, root: p.root}
	np.ops = make([]Operator, len(p.ops))
	for i, op := range p.ops {
		np.ops[i] = op.Clone(np)
	}
	return np
}

// base is embedded by every concrete operator: it carries the arena index,
// child indices, and the shared ExecContext, implementing the bookkeeping
// portion of the Operator contract.
type base struct {
	plan     *Plan
	self     int
	children []int
	ctx      *ExecContext
}

func newBase(p *Plan, children ...int) base {
	return base{plan: p, children: children}
}

func (b *base) bindSelf(idx int) { b.self = idx }

func (b *base) child(i int) Operator { return b.plan.Op(b.children[i]) }

func (b *base) childCount() int { return len(b.children) }

func (b *base) Init(ctx *ExecContext) error {
	b.ctx = ctx
	return nil
}
