package translators

import (
	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/typemap"
)

var rangeOperators = map[string]sqlexpr.PgOperator{
	"Range.IsStrictlyLeftOf":     sqlexpr.PgRangeIsStrictlyLeftOf,
	"Range.IsStrictlyRightOf":    sqlexpr.PgRangeIsStrictlyRightOf,
	"Range.DoesNotExtendRightOf": sqlexpr.PgRangeDoesNotExtendRightOf,
	"Range.DoesNotExtendLeftOf":  sqlexpr.PgRangeDoesNotExtendLeftOf,
	"Range.IsAdjacentTo":         sqlexpr.PgRangeIsAdjacentTo,
	"Range.Union":                sqlexpr.PgRangeUnion,
	"Range.Intersect":            sqlexpr.PgRangeIntersect,
	"Range.Except":               sqlexpr.PgRangeExcept,
}

var rangeBoolMembers = map[string]string{
	"Range.IsEmpty":               "isempty",
	"Range.LowerBoundIsInclusive": "lower_inc",
	"Range.UpperBoundIsInclusive": "upper_inc",
	"Range.LowerBoundInfinite":    "lower_inf",
	"Range.UpperBoundInfinite":    "upper_inf",
}

func (t *Translator) registerRange() {
	t.static("Range.Contains", 2, 2, func(_ sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
		return t.f.Contains(args[0], args[1])
	})
	t.static("Range.ContainedBy", 2, 2, func(_ sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
		return t.f.ContainedBy(args[0], args[1])
	})
	t.static("Range.Overlaps", 2, 2, func(_ sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
		return t.f.Overlaps(args[0], args[1])
	})
	for name, op := range rangeOperators {
		name, op := name, op
		t.static(name, 2, 2, func(_ sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
			return t.f.MakePostgresBinary(op, args[0], args[1], nil)
		})
	}
	t.static("Range.Merge", 2, 2, t.rangeMerge)

	t.member("Range.LowerBound", func(instance sqlexpr.Expression) (sqlexpr.Expression, error) {
		return t.rangeBound("lower", instance)
	})
	t.member("Range.UpperBound", func(instance sqlexpr.Expression) (sqlexpr.Expression, error) {
		return t.rangeBound("upper", instance)
	})
	for name, fn := range rangeBoolMembers {
		name, fn := name, fn
		t.member(name, func(instance sqlexpr.Expression) (sqlexpr.Expression, error) {
			if _, err := rangeSubtype(instance); err != nil {
				return nil, err
			}
			return t.function(fn, []sqlexpr.Expression{instance}, hosttype.Bool, nil)
		})
	}
}

// rangeMerge builds range_merge(a, b), the smallest range spanning both.
func (t *Translator) rangeMerge(_ sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
	m := t.f.InferTypeMapping(args[0], args[1])
	if m == nil {
		m = t.f.Source().FindMapping(args[0].Type())
	}
	a, err := t.f.ApplyTypeMapping(args[0], m)
	if err != nil {
		return nil, err
	}
	b, err := t.f.ApplyTypeMapping(args[1], m)
	if err != nil {
		return nil, err
	}
	return t.function("range_merge", []sqlexpr.Expression{a, b}, hosttype.Unwrap(args[0].Type()), m)
}

func (t *Translator) rangeBound(fn string, instance sqlexpr.Expression) (sqlexpr.Expression, error) {
	subtype, err := rangeSubtype(instance)
	if err != nil {
		return nil, err
	}
	var m *typemap.Mapping
	if rm := instance.TypeMapping(); rm != nil && rm.Kind() == typemap.KindRange {
		m = rm.SubtypeMapping()
	}
	if m == nil {
		m = t.f.Source().FindMapping(subtype)
	}
	return t.function(fn, []sqlexpr.Expression{instance}, hosttype.NullableOf(subtype), m)
}

func rangeSubtype(e sqlexpr.Expression) (*hosttype.Type, error) {
	typ := hosttype.Unwrap(e.Type())
	if typ.Kind() != hosttype.KindRange {
		return nil, qerrors.NewInvalidShapeError("range member over non-range type %s", e.Type())
	}
	return typ.Elem(), nil
}
