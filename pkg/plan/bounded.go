package plan

import "errors"

// ErrNegativeCount is the runtime exception for a negative SKIP/LIMIT
// (spec §7 "Runtime exceptions": "negative SKIP/LIMIT").
var ErrNegativeCount = errors.New("plan: SKIP/LIMIT must be non-negative")

// Skip evaluates its count expression once, in Init, before any record is
// pulled (spec §4.4), then discards that many records from its child before
// passing the rest through untouched.
type Skip struct {
	base
	expr     CountExpr
	count    int64
	resolved bool
	skipped  int64
}

// NewSkip builds a Skip over childIdx. expr is evaluated once, in Init, and
// re-cloned in Clone so parameter substitution never mutates the plan
// template (spec §4.4).
func NewSkip(p *Plan, childIdx int, expr CountExpr) *Skip {
	return &Skip{base: newBase(p, childIdx), expr: expr}
}

func (o *Skip) Kind() OpKind    { return OpSkip }
func (o *Skip) Modifies() []int { return nil }
func (o *Skip) Free()           {}

func (o *Skip) Init(ctx *ExecContext) error {
	_ = o.base.Init(ctx)
	n, err := o.expr.Eval()
	if err != nil {
		return err
	}
	if n < 0 {
		return ErrNegativeCount
	}
	o.count = n
	o.resolved = true
	o.skipped = 0
	return nil
}

func (o *Skip) Reset() error {
	o.skipped = 0
	return o.child(0).Reset()
}

func (o *Skip) Consume() (Record, bool, error) {
	for o.skipped < o.count {
		_, ok, err := o.child(0).Consume()
		if err != nil {
			return Record{}, false, err
		}
		if !ok {
			return Record{}, false, nil
		}
		o.skipped++
	}
	return o.child(0).Consume()
}

func (o *Skip) Clone(p *Plan) Operator {
	children := append([]int(nil), o.children...)
	return &Skip{base: base{plan: p, children: children}, expr: o.expr.Clone()}
}

// Limit is Skip's symmetric counterpart (spec §4.4).
type Limit struct {
	base
	expr     CountExpr
	limit    int64
	yielded  int64
}

func NewLimit(p *Plan, childIdx int, expr CountExpr) *Limit {
	return &Limit{base: newBase(p, childIdx), expr: expr}
}

func (o *Limit) Kind() OpKind    { return OpLimit }
func (o *Limit) Modifies() []int { return nil }
func (o *Limit) Free()           {}

func (o *Limit) Init(ctx *ExecContext) error {
	_ = o.base.Init(ctx)
	n, err := o.expr.Eval()
	if err != nil {
		return err
	}
	if n < 0 {
		return ErrNegativeCount
	}
	o.limit = n
	o.yielded = 0
	return nil
}

func (o *Limit) Reset() error {
	o.yielded = 0
	return o.child(0).Reset()
}

func (o *Limit) Consume() (Record, bool, error) {
	if o.yielded >= o.limit {
		return Record{}, false, nil
	}
	rec, ok, err := o.child(0).Consume()
	if err != nil || !ok {
		return rec, ok, err
	}
	o.yielded++
	return rec, true, nil
}

func (o *Limit) Clone(p *Plan) Operator {
	children := append([]int(nil), o.children...)
	return &Limit{base: base{plan: p, children: children}, expr: o.expr.Clone()}
}
