package plan

import (
	"sort"

	"github.com/cortexgraph/kernel/pkg/value"
)

// SortKey extracts the comparison value for one ORDER BY column from a
// Record.
type SortKey struct {
	Extract    func(Record) value.Value
	Descending bool
}

// Sort buffers its entire child stream, orders it by Keys (in priority
// order), and streams the sorted result. Buffering the full stream is
// unavoidable for a general ORDER BY (spec names Sort among the ~30
// concrete operators without special-casing top-k pushdown).
type Sort struct {
	base
	Keys    []SortKey
	buf     []Record
	cursor  int
	primed  bool
}

func NewSort(p *Plan, childIdx int, keys []SortKey) *Sort {
	return &Sort{base: newBase(p, childIdx), Keys: keys}
}

func (o *Sort) Kind() OpKind    { return OpSort }
func (o *Sort) Modifies() []int { return nil }
func (o *Sort) Free()           { o.buf = nil }

func (o *Sort) Reset() error {
	o.buf = nil
	o.cursor = 0
	o.primed = false
	return o.child(0).Reset()
}

func (o *Sort) Consume() (Record, bool, error) {
	if !o.primed {
		if err := o.fill(); err != nil {
			return Record{}, false, err
		}
	}
	if o.cursor >= len(o.buf) {
		return Record{}, false, nil
	}
	rec := o.buf[o.cursor]
	o.cursor++
	return rec, true, nil
}

func (o *Sort) fill() error {
	for {
		rec, ok, err := o.child(0).Consume()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		o.buf = append(o.buf, rec)
	}
	sort.SliceStable(o.buf, func(i, j int) bool {
		for _, k := range o.Keys {
			a, b := k.Extract(o.buf[i]), k.Extract(o.buf[j])
			c := value.Compare(a, b)
			if k.Descending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	o.primed = true
	return nil
}

func (o *Sort) Clone(p *Plan) Operator {
	children := append([]int(nil), o.children...)
	keys := append([]SortKey(nil), o.Keys...)
	return &Sort{base: base{plan: p, children: children}, Keys: keys}
}
