package translators

import (
	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
)

// Interval components are read with date_part. The whole-unit members
// floor the part; the Total members divide the interval's epoch seconds.
var (
	timeSpanParts = map[string]string{
		"TimeSpan.Days":    "day",
		"TimeSpan.Hours":   "hour",
		"TimeSpan.Minutes": "minute",
		"TimeSpan.Seconds": "second",
	}

	timeSpanTotals = map[string]float64{
		"TimeSpan.TotalDays":         86400,
		"TimeSpan.TotalHours":        3600,
		"TimeSpan.TotalMinutes":      60,
		"TimeSpan.TotalMilliseconds": 0.001,
	}
)

func (t *Translator) registerTimeSpan() {
	for name, part := range timeSpanParts {
		name, part := name, part
		t.member(name, func(instance sqlexpr.Expression) (sqlexpr.Expression, error) {
			if err := requireTimeSpan(instance); err != nil {
				return nil, err
			}
			p, err := t.datePart(part, instance)
			if err != nil {
				return nil, err
			}
			return t.floor(p)
		})
	}
	t.member("TimeSpan.Milliseconds", func(instance sqlexpr.Expression) (sqlexpr.Expression, error) {
		if err := requireTimeSpan(instance); err != nil {
			return nil, err
		}
		p, err := t.datePart("millisecond", instance)
		if err != nil {
			return nil, err
		}
		whole, err := t.floor(p)
		if err != nil {
			return nil, err
		}
		return t.f.Modulo(whole, t.f.ConstantOf(1000), nil)
	})
	t.member("TimeSpan.TotalSeconds", func(instance sqlexpr.Expression) (sqlexpr.Expression, error) {
		if err := requireTimeSpan(instance); err != nil {
			return nil, err
		}
		return t.datePart("epoch", instance)
	})
	for name, divisor := range timeSpanTotals {
		name, divisor := name, divisor
		t.member(name, func(instance sqlexpr.Expression) (sqlexpr.Expression, error) {
			if err := requireTimeSpan(instance); err != nil {
				return nil, err
			}
			epoch, err := t.datePart("epoch", instance)
			if err != nil {
				return nil, err
			}
			return t.f.Divide(epoch, t.f.ConstantOf(divisor), nil)
		})
	}
}

func (t *Translator) datePart(part string, value sqlexpr.Expression) (*sqlexpr.Function, error) {
	return t.f.Function("date_part",
		[]sqlexpr.Expression{t.f.ConstantOf(part), value},
		true, []bool{false, true}, hosttype.Float64, nil)
}

// floor truncates toward negative infinity and casts to int.
func (t *Translator) floor(value sqlexpr.Expression) (sqlexpr.Expression, error) {
	fl, err := t.function("floor", []sqlexpr.Expression{value}, hosttype.Float64, nil)
	if err != nil {
		return nil, err
	}
	return t.f.Convert(fl, hosttype.Int32, nil)
}

func requireTimeSpan(e sqlexpr.Expression) error {
	if hosttype.Unwrap(e.Type()) != hosttype.TimeSpan {
		return qerrors.NewInvalidShapeError("TimeSpan member over %s", e.Type())
	}
	return nil
}
