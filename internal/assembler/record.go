package assembler

import (
	"strings"
	"time"

	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
	"github.com/ginjaninja78/ci-load-engine/internal/document"
	"github.com/ginjaninja78/ci-load-engine/internal/fieldcodec"
	"github.com/shopspring/decimal"
)

// record encodes fields onto one node. The first encoding error sticks and
// later calls are no-ops, so a record can be filled without checking every
// field.
type record struct {
	node  *document.Node
	codec *fieldcodec.Codec
	err   error
}

func newRecord(codec *fieldcodec.Codec, name string, keys []document.Field) *record {
	n := document.NewNode(name)
	n.Fields = make([]document.Field, len(keys), len(keys)+16)
	copy(n.Fields, keys)
	return &record{node: n, codec: codec}
}

func (r *record) text(spec fieldcodec.Spec, value string) {
	if r.err != nil {
		return
	}
	v, err := r.codec.String(value, spec)
	if err != nil {
		r.err = err
		return
	}
	r.node.Add(document.Field{Name: spec.Name, Value: v, Width: spec.MaxLen})
}

func (r *record) number(spec fieldcodec.NumberSpec, value *decimal.Decimal) {
	if r.err != nil {
		return
	}
	v, err := fieldcodec.OptionalNumber(value, spec)
	if err != nil {
		r.err = err
		return
	}
	r.node.Add(document.Field{Name: spec.Name, Value: v, Width: spec.MaxLen, Numeric: true})
}

func (r *record) integer(spec fieldcodec.NumberSpec, n int) {
	v := decimal.NewFromInt(int64(n))
	r.number(spec, &v)
}

// weight converts to kilograms before encoding.
func (r *record) weight(spec fieldcodec.NumberSpec, value *decimal.Decimal, unit ciload.WeightUnit) {
	if r.err != nil || value == nil {
		r.number(spec, nil)
		return
	}
	kg, err := fieldcodec.Weight(*value, strings.ToUpper(strings.TrimSpace(string(unit))))
	if err != nil {
		r.err = &fieldcodec.FieldError{Field: spec.Name, Value: string(unit), Err: err}
		return
	}
	r.number(spec, &kg)
}

func (r *record) date(name string, t *time.Time) {
	if r.err != nil {
		return
	}
	r.node.Add(document.Field{Name: name, Value: fieldcodec.Date(t, fieldcodec.DateYYYYMMDD), Width: dateLen})
}

// tariffNumber encodes digits only; a number that does not fit is an error.
func (r *record) tariffNumber(name, value string) {
	if r.err != nil {
		return
	}
	digits := fieldcodec.TariffNumber(value)
	if len(digits) > tariffNoLen {
		r.err = &fieldcodec.FieldError{Field: name, Value: value, MaxLen: tariffNoLen, Err: fieldcodec.ErrOverflow}
		return
	}
	r.node.Add(document.Field{Name: name, Value: digits, Width: tariffNoLen})
}

func (r *record) flag(name string, v bool) {
	if r.err != nil {
		return
	}
	value := "N"
	if v {
		value = "Y"
	}
	r.node.Add(document.Field{Name: name, Value: value, Width: flagLen})
}

// fields returns the encoded fields, for use as keys of child records.
func (r *record) fields() []document.Field {
	out := make([]document.Field, len(r.node.Fields))
	copy(out, r.node.Fields)
	return out
}
