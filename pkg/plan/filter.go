package plan

// Predicate is the narrow interface Filter needs from the expression
// evaluator (out of scope, spec §1): a boolean test over a Record.
type Predicate func(Record) (bool, error)

// Filter discards child records that do not satisfy Pred.
type Filter struct {
	base
	Pred Predicate
}

func NewFilter(p *Plan, childIdx int, pred Predicate) *Filter {
	return &Filter{base: newBase(p, childIdx), Pred: pred}
}

func (o *Filter) Kind() OpKind    { return OpFilter }
func (o *Filter) Modifies() []int { return nil }
func (o *Filter) Free()           {}
func (o *Filter) Reset() error    { return o.child(0).Reset() }

func (o *Filter) Consume() (Record, bool, error) {
	for {
		rec, ok, err := o.child(0).Consume()
		if err != nil || !ok {
			return rec, ok, err
		}
		keep, err := o.Pred(rec)
		if err != nil {
			return Record{}, false, err
		}
		if keep {
			return rec, true, nil
		}
	}
}

func (o *Filter) Clone(p *Plan) Operator {
	children := append([]int(nil), o.children...)
	return &Filter{base: base{plan: p, children: children}, Pred: o.Pred}
}

// Projection is a single output-column computation, the narrow interface
// Project needs from the expression evaluator.
type Projection struct {
	SlotOut int
	Compute func(Record) (Slot, error)
}

// Project writes each Projection's computed slot into the output record,
// which otherwise passes the child record through (RETURN/WITH clauses).
type Project struct {
	base
	Cols []Projection
}

func NewProject(p *Plan, childIdx int, cols []Projection) *Project {
	return &Project{base: newBase(p, childIdx), Cols: cols}
}

func (o *Project) Kind() OpKind { return OpProject }
func (o *Project) Modifies() []int {
	out := make([]int, len(o.Cols))
	for i, c := range o.Cols {
		out[i] = c.SlotOut
	}
	return out
}
func (o *Project) Free()        {}
func (o *Project) Reset() error { return o.child(0).Reset() }

func (o *Project) Consume() (Record, bool, error) {
	rec, ok, err := o.child(0).Consume()
	if err != nil || !ok {
		return rec, ok, err
	}
	for _, c := range o.Cols {
		s, err := c.Compute(rec)
		if err != nil {
			return Record{}, false, err
		}
		rec.Set(c.SlotOut, s)
	}
	return rec, true, nil
}

func (o *Project) Clone(p *Plan) Operator {
	children := append([]int(nil), o.children...)
	cols := append([]Projection(nil), o.Cols...)
	return &Project{base: base{plan: p, children: children}, Cols: cols}
}
