package plan

import (
	"encoding/csv"
	"errors"
	"io"

	"github.com/cortexgraph/kernel/pkg/value"
)

// ErrInvalidCSVSource is the runtime exception for a non-string URI or an
// open failure (spec §6, §7).
var ErrInvalidCSVSource = errors.New("plan: invalid CSV source")

// CSVOpener resolves a URI string to a readable stream. Actual URI
// resolution (file://, http://, ...) lives outside this package's scope —
// the spec places CSV ingestion's transport concerns out of scope (spec
// §1) and names only the operator's row-shape contract in §6.
type CSVOpener func(uri string) (io.ReadCloser, error)

// LoadCSV yields one record per row, exposed either as a list-of-strings
// (WithHeaders=false) or a map from header name to field (WithHeaders=true),
// per spec §6.
type LoadCSV struct {
	base
	RowSlot     int
	URI         string
	WithHeaders bool
	Open        CSVOpener

	rc      io.ReadCloser
	r       *csv.Reader
	headers []string
	started bool
}

func NewLoadCSV(p *Plan, rowSlot int, uri string, withHeaders bool, open CSVOpener) *LoadCSV {
	return &LoadCSV{base: newBase(p), RowSlot: rowSlot, URI: uri, WithHeaders: withHeaders, Open: open}
}

func (o *LoadCSV) Kind() OpKind    { return OpLoadCSV }
func (o *LoadCSV) Modifies() []int { return []int{o.RowSlot} }

func (o *LoadCSV) Free() {
	if o.rc != nil {
		_ = o.rc.Close()
		o.rc = nil
	}
}

func (o *LoadCSV) Init(ctx *ExecContext) error {
	_ = o.base.Init(ctx)
	return o.open()
}

func (o *LoadCSV) open() error {
	o.Free()
	o.started = false
	o.headers = nil
	if o.URI == "" || o.Open == nil {
		return ErrInvalidCSVSource
	}
	rc, err := o.Open(o.URI)
	if err != nil {
		return ErrInvalidCSVSource
	}
	o.rc = rc
	o.r = csv.NewReader(rc)
	if o.WithHeaders {
		rec, err := o.r.Read()
		if err != nil {
			return ErrInvalidCSVSource
		}
		o.headers = rec
	}
	o.started = true
	return nil
}

func (o *LoadCSV) Reset() error { return o.open() }

func (o *LoadCSV) Consume() (Record, bool, error) {
	if !o.started {
		return Record{}, false, nil
	}
	row, err := o.r.Read()
	if err == io.EOF {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	rec := NewRecord(o.ctx.RecordWidth)
	if o.WithHeaders {
		entries := make([]value.MapEntry, 0, len(row))
		for i, field := range row {
			key := ""
			if i < len(o.headers) {
				key = o.headers[i]
			}
			entries = append(entries, value.MapEntry{Key: key, Val: value.String(field)})
		}
		rec.Set(o.RowSlot, ValueSlot(value.Map(entries)))
	} else {
		items := make([]value.Value, len(row))
		for i, field := range row {
			items[i] = value.String(field)
		}
		rec.Set(o.RowSlot, ValueSlot(value.Array(items)))
	}
	return rec, true, nil
}

func (o *LoadCSV) Clone(p *Plan) Operator {
	return &LoadCSV{base: newBase(p), RowSlot: o.RowSlot, URI: o.URI, WithHeaders: o.WithHeaders, Open: o.Open}
}
