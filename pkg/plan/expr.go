package plan

// CountExpr is the narrow interface plan operators need from the
// arithmetic-expression evaluator, which spec §1 places out of scope as an
// external collaborator. Skip/Limit only need "evaluate to an int64 once,
// and be cloneable without mutating the template" (spec §4.4); ConstCount
// and ParamCount below are the two shapes that satisfy query plans built
// against literal and `$parameter` SKIP/LIMIT clauses respectively.
type CountExpr interface {
	Eval() (int64, error)
	Clone() CountExpr
}

// ConstCount is a literal SKIP/LIMIT count baked into the plan.
type ConstCount int64

func (c ConstCount) Eval() (int64, error) { return int64(c), nil }
func (c ConstCount) Clone() CountExpr     { return c }

// Params is the query's bound-parameter table, supplied fresh per execution
// (and per Clone, per spec §4.4 "Clone-time re-cloning preserves
// parameterization").
type Params map[string]int64

// ParamCount resolves a `$name` SKIP/LIMIT count against a Params table
// captured at construction time. Cloning carries the same table reference
// forward unless the caller swaps it via WithParams, matching "the
// expression is cloned so that parameter substitution does not mutate the
// plan template" — each clone gets its own Params pointer to rebind.
type ParamCount struct {
	Name   string
	Params *Params
}

func (c ParamCount) Eval() (int64, error) {
	if c.Params == nil {
		return 0, errMissingParam(c.Name)
	}
	v, ok := (*c.Params)[c.Name]
	if !ok {
		return 0, errMissingParam(c.Name)
	}
	return v, nil
}

func (c ParamCount) Clone() CountExpr {
	p := *c.Params
	return ParamCount{Name: c.Name, Params: &p}
}

// WithParams returns a copy of c bound to a new parameter table, letting a
// cloned plan be re-executed with different bindings (spec §8 scenario 2).
func (c ParamCount) WithParams(p Params) ParamCount {
	return ParamCount{Name: c.Name, Params: &p}
}

type errMissingParam string

func (e errMissingParam) Error() string { return "plan: missing parameter $" + string(e) }
