package sqlfactory

import (
	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/typemap"
)

// differenceTypes maps an operand type to the result type of subtracting two
// values of that type.
var differenceTypes = map[*hosttype.Type]*hosttype.Type{
	hosttype.DateTime:       hosttype.TimeSpan,
	hosttype.DateTimeOffset: hosttype.TimeSpan,
	hosttype.TimeOnly:       hosttype.TimeSpan,
	hosttype.Instant:        hosttype.Duration,
	hosttype.ZonedDateTime:  hosttype.Duration,
	hosttype.LocalDateTime:  hosttype.Period,
	hosttype.LocalTime:      hosttype.Period,
	hosttype.LocalDate:      hosttype.Int32,
	hosttype.DateOnly:       hosttype.Int32,
}

// shiftedBy lists, per duration-like type, the types it can be added to or
// subtracted from without changing their type.
var shiftedBy = map[*hosttype.Type][]*hosttype.Type{
	hosttype.TimeSpan: {hosttype.DateTime, hosttype.DateTimeOffset, hosttype.TimeOnly},
	hosttype.Period:   {hosttype.LocalDateTime, hosttype.LocalDate, hosttype.LocalTime},
	hosttype.Duration: {hosttype.Instant, hosttype.ZonedDateTime},
}

func isShift(left, right *hosttype.Type) bool {
	for _, t := range shiftedBy[right] {
		if t == left {
			return true
		}
	}
	return false
}

func isIntervalType(t *hosttype.Type) bool {
	switch hosttype.Unwrap(t) {
	case hosttype.TimeSpan, hosttype.Duration, hosttype.Period:
		return true
	default:
		return false
	}
}

// binaryResultType returns the host type produced by op over left and right.
func binaryResultType(op sqlexpr.BinaryOperator, left, right sqlexpr.Expression) *hosttype.Type {
	if op.IsComparison() || op.IsLogical() {
		return hosttype.Bool
	}
	lt, rt := hosttype.Unwrap(left.Type()), hosttype.Unwrap(right.Type())
	if op == sqlexpr.OpSubtract && lt == rt {
		if diff, ok := differenceTypes[lt]; ok {
			if hosttype.IsNullable(left.Type()) || hosttype.IsNullable(right.Type()) {
				return hosttype.NullableOf(diff)
			}
			return diff
		}
	}
	return left.Type()
}

func (f *Factory) applyOnBinary(b *sqlexpr.Binary, m *typemap.Mapping) (*sqlexpr.Binary, error) {
	left, right := b.Left, b.Right
	lt, rt := hosttype.Unwrap(left.Type()), hosttype.Unwrap(right.Type())

	if b.Op == sqlexpr.OpAdd || b.Op == sqlexpr.OpSubtract {
		// timestamp + interval keeps the timestamp's mapping.
		if isShift(lt, rt) {
			newLeft, err := f.ApplyTypeMapping(left, m)
			if err != nil {
				return nil, err
			}
			newRight, err := f.ApplyDefaultTypeMapping(right)
			if err != nil {
				return nil, err
			}
			return sqlexpr.NewBinary(b.Op, newLeft, newRight, b.Type(), newLeft.TypeMapping()), nil
		}

		if _, ok := differenceTypes[lt]; ok && b.Op == sqlexpr.OpSubtract && lt == rt {
			inferred := f.inferTypeMapping(left, right)
			if inferred == nil {
				inferred = f.source.FindMapping(lt)
			}
			newLeft, newRight, err := f.applyPair(left, right, inferred)
			if err != nil {
				return nil, err
			}
			result := m
			if result == nil {
				result = f.differenceMapping(b.Type())
			}
			return sqlexpr.NewBinary(b.Op, newLeft, newRight, b.Type(), result), nil
		}
	}

	var inferred, result *typemap.Mapping
	switch {
	case b.Op.IsComparison():
		inferred = f.inferTypeMapping(left, right)
		if inferred == nil {
			inferred = f.source.FindMapping(left.Type())
		}
		result = f.boolMapping
	case b.Op.IsLogical():
		inferred = f.boolMapping
		result = f.boolMapping
	default:
		inferred = m
		if inferred == nil {
			inferred = f.inferTypeMapping(left, right)
		}
		if inferred == nil {
			inferred = f.source.FindMapping(b.Type())
		}
		result = inferred
	}

	newLeft, newRight, err := f.applyPair(left, right, inferred)
	if err != nil {
		return nil, err
	}
	return sqlexpr.NewBinary(b.Op, newLeft, newRight, b.Type(), result), nil
}

func (f *Factory) applyPair(left, right sqlexpr.Expression, m *typemap.Mapping) (sqlexpr.Expression, sqlexpr.Expression, error) {
	newLeft, err := f.ApplyTypeMapping(left, m)
	if err != nil {
		return nil, nil, err
	}
	newRight, err := f.ApplyTypeMapping(right, m)
	if err != nil {
		return nil, nil, err
	}
	return newLeft, newRight, nil
}

// differenceMapping is the result mapping of a temporal subtraction:
// interval for duration-like results, the default mapping otherwise.
func (f *Factory) differenceMapping(t *hosttype.Type) *typemap.Mapping {
	if isIntervalType(t) {
		if m := f.source.FindMappingFor(t, "interval"); m != nil {
			return m
		}
	}
	return f.source.FindMapping(t)
}

// MakeBinary builds a binary operation. The result type follows the
// operator: bool for comparisons and logic, the temporal difference table
// for subtraction of two temporal values, the left operand's type otherwise.
func (f *Factory) MakeBinary(op sqlexpr.BinaryOperator, left, right sqlexpr.Expression, m *typemap.Mapping) (*sqlexpr.Binary, error) {
	typ := binaryResultType(op, left, right)
	e, err := f.ApplyTypeMapping(sqlexpr.NewBinary(op, left, right, typ, nil), m)
	if err != nil {
		return nil, err
	}
	return e.(*sqlexpr.Binary), nil
}

func (f *Factory) Equal(left, right sqlexpr.Expression) (*sqlexpr.Binary, error) {
	return f.MakeBinary(sqlexpr.OpEqual, left, right, nil)
}

func (f *Factory) NotEqual(left, right sqlexpr.Expression) (*sqlexpr.Binary, error) {
	return f.MakeBinary(sqlexpr.OpNotEqual, left, right, nil)
}

func (f *Factory) LessThan(left, right sqlexpr.Expression) (*sqlexpr.Binary, error) {
	return f.MakeBinary(sqlexpr.OpLessThan, left, right, nil)
}

func (f *Factory) LessThanOrEqual(left, right sqlexpr.Expression) (*sqlexpr.Binary, error) {
	return f.MakeBinary(sqlexpr.OpLessThanOrEqual, left, right, nil)
}

func (f *Factory) GreaterThan(left, right sqlexpr.Expression) (*sqlexpr.Binary, error) {
	return f.MakeBinary(sqlexpr.OpGreaterThan, left, right, nil)
}

func (f *Factory) GreaterThanOrEqual(left, right sqlexpr.Expression) (*sqlexpr.Binary, error) {
	return f.MakeBinary(sqlexpr.OpGreaterThanOrEqual, left, right, nil)
}

func (f *Factory) AndAlso(left, right sqlexpr.Expression) (*sqlexpr.Binary, error) {
	return f.MakeBinary(sqlexpr.OpAndAlso, left, right, nil)
}

func (f *Factory) OrElse(left, right sqlexpr.Expression) (*sqlexpr.Binary, error) {
	return f.MakeBinary(sqlexpr.OpOrElse, left, right, nil)
}

func (f *Factory) Add(left, right sqlexpr.Expression, m *typemap.Mapping) (*sqlexpr.Binary, error) {
	return f.MakeBinary(sqlexpr.OpAdd, left, right, m)
}

func (f *Factory) Subtract(left, right sqlexpr.Expression, m *typemap.Mapping) (*sqlexpr.Binary, error) {
	return f.MakeBinary(sqlexpr.OpSubtract, left, right, m)
}

func (f *Factory) Multiply(left, right sqlexpr.Expression, m *typemap.Mapping) (*sqlexpr.Binary, error) {
	return f.MakeBinary(sqlexpr.OpMultiply, left, right, m)
}

func (f *Factory) Divide(left, right sqlexpr.Expression, m *typemap.Mapping) (*sqlexpr.Binary, error) {
	return f.MakeBinary(sqlexpr.OpDivide, left, right, m)
}

func (f *Factory) Modulo(left, right sqlexpr.Expression, m *typemap.Mapping) (*sqlexpr.Binary, error) {
	return f.MakeBinary(sqlexpr.OpModulo, left, right, m)
}
