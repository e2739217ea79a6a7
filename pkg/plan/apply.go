package plan

// Argument is the leaf operator inside an Apply's right subtree: it yields
// exactly the one record Apply installed via Bind, then exhausts (spec
// §4.4 "Apply / Argument").
type Argument struct {
	base
	bound   *Record
	yielded bool
}

func NewArgument(p *Plan) *Argument { return &Argument{base: newBase(p)} }

func (o *Argument) Kind() OpKind    { return OpArgument }
func (o *Argument) Modifies() []int { return nil }
func (o *Argument) Free()           {}

func (o *Argument) Init(ctx *ExecContext) error { return o.base.Init(ctx) }

// Bind installs the record Apply produced from its left subtree.
func (o *Argument) Bind(rec Record) {
	o.bound = &rec
	o.yielded = false
}

func (o *Argument) Reset() error {
	o.yielded = false
	return nil
}

func (o *Argument) Consume() (Record, bool, error) {
	if o.bound == nil || o.yielded {
		return Record{}, false, nil
	}
	o.yielded = true
	return o.bound.Clone(), true, nil
}

func (o *Argument) Clone(p *Plan) Operator {
	return &Argument{base: newBase(p)}
}

// Apply runs its right subtree once per record produced by its left
// subtree, installing the left record into the Argument leaf(s) of the
// right subtree before each run, then resetting the right subtree
// afterward (spec §4.4).
type Apply struct {
	base // children[0] = left, children[1] = right
	args []*Argument

	rightDone bool
}

// NewApply wires left and right subtree root indices and the Argument leaf
// instances inside the right subtree that must receive each left record.
func NewApply(p *Plan, leftIdx, rightIdx int, args []*Argument) *Apply {
	return &Apply{base: newBase(p, leftIdx, rightIdx), args: args, rightDone: true}
}

func (o *Apply) Kind() OpKind    { return OpApply }
func (o *Apply) Modifies() []int { return nil }
func (o *Apply) Free()           {}

func (o *Apply) Reset() error {
	o.rightDone = true
	return o.child(0).Reset()
}

func (o *Apply) Consume() (Record, bool, error) {
	for {
		if !o.rightDone {
			rec, ok, err := o.child(1).Consume()
			if err != nil {
				return Record{}, false, err
			}
			if ok {
				return rec, true, nil
			}
			if err := o.child(1).Reset(); err != nil {
				return Record{}, false, err
			}
			o.rightDone = true
		}
		left, ok, err := o.child(0).Consume()
		if err != nil {
			return Record{}, false, err
		}
		if !ok {
			return Record{}, false, nil
		}
		for _, a := range o.args {
			a.Bind(left)
		}
		o.rightDone = false
	}
}

func (o *Apply) Clone(p *Plan) Operator {
	children := append([]int(nil), o.children...)
	// Args are re-resolved by the caller after cloning the right subtree,
	// since they are specific *Argument instances belonging to the clone.
	return &Apply{base: base{plan: p, children: children}, rightDone: true}
}

// RebindArgs lets the caller attach the cloned right subtree's own Argument
// instances after Clone, since the originals belong to the source plan.
func (o *Apply) RebindArgs(args []*Argument) { o.args = args }
