package sqlfactory

import (
	"fmt"
	"math"
	"time"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/typemap"
)

// HostTypeOf returns the host type a Go value is translated as.
func HostTypeOf(v any) *hosttype.Type {
	switch v.(type) {
	case bool:
		return hosttype.Bool
	case uint8:
		return hosttype.Byte
	case int16:
		return hosttype.Int16
	case int, int32:
		return hosttype.Int32
	case int64:
		return hosttype.Int64
	case uint32:
		return hosttype.UInt32
	case float32:
		return hosttype.Float32
	case float64:
		return hosttype.Float64
	case string:
		return hosttype.String
	case []byte:
		return hosttype.Bytes
	case time.Time:
		return hosttype.DateTime
	case time.Duration:
		return hosttype.TimeSpan
	case []any:
		return hosttype.ArrayOf(hosttype.Object)
	case []int:
		return hosttype.ArrayOf(hosttype.Int32)
	case []string:
		return hosttype.ArrayOf(hosttype.String)
	default:
		return hosttype.Object
	}
}

// Column references table.name. Without m the registry default for typ is
// used; columns always carry a mapping.
func (f *Factory) Column(table, name string, typ *hosttype.Type, nullable bool, m *typemap.Mapping) (*sqlexpr.Column, error) {
	if m == nil {
		m = f.source.FindMapping(typ)
	}
	if m == nil {
		return nil, qerrors.NewUnresolvedTypeMappingError("column "+table+"."+name, typ.String())
	}
	return sqlexpr.NewColumn(table, name, typ, nullable, m), nil
}

// Constant builds an inline value. A nil m leaves it to be inferred from the
// surrounding operation.
func (f *Factory) Constant(value any, typ *hosttype.Type, m *typemap.Mapping) *sqlexpr.Constant {
	return sqlexpr.NewConstant(value, typ, m)
}

// ConstantOf builds an unmapped constant typed after its Go value.
func (f *Factory) ConstantOf(value any) *sqlexpr.Constant {
	return sqlexpr.NewConstant(value, HostTypeOf(value), nil)
}

func (f *Factory) Parameter(name string, typ *hosttype.Type, m *typemap.Mapping) *sqlexpr.Parameter {
	return sqlexpr.NewParameter(name, typ, m)
}

func (f *Factory) unary(op sqlexpr.UnaryOperator, operand sqlexpr.Expression, typ *hosttype.Type, m *typemap.Mapping) (*sqlexpr.Unary, error) {
	e, err := f.ApplyTypeMapping(sqlexpr.NewUnary(op, operand, typ, nil), m)
	if err != nil {
		return nil, err
	}
	return e.(*sqlexpr.Unary), nil
}

func (f *Factory) Not(operand sqlexpr.Expression) (*sqlexpr.Unary, error) {
	return f.unary(sqlexpr.OpNot, operand, operand.Type(), operand.TypeMapping())
}

func (f *Factory) Negate(operand sqlexpr.Expression) (*sqlexpr.Unary, error) {
	return f.unary(sqlexpr.OpNegate, operand, operand.Type(), operand.TypeMapping())
}

func (f *Factory) IsNull(operand sqlexpr.Expression) (*sqlexpr.Unary, error) {
	return f.unary(sqlexpr.OpIsNull, operand, hosttype.Bool, nil)
}

func (f *Factory) IsNotNull(operand sqlexpr.Expression) (*sqlexpr.Unary, error) {
	return f.unary(sqlexpr.OpIsNotNull, operand, hosttype.Bool, nil)
}

// Convert casts operand to typ. Without m the target is typ's default
// mapping; conversions to object stay unmapped.
func (f *Factory) Convert(operand sqlexpr.Expression, typ *hosttype.Type, m *typemap.Mapping) (*sqlexpr.Unary, error) {
	if m == nil {
		m = f.source.FindMapping(typ)
	}
	return f.unary(sqlexpr.OpConvert, operand, typ, m)
}

// Like builds match LIKE pattern [ESCAPE escapeChar].
func (f *Factory) Like(match, pattern, escapeChar sqlexpr.Expression) (*sqlexpr.Like, error) {
	e, err := f.ApplyDefaultTypeMapping(sqlexpr.NewLike(match, pattern, escapeChar, hosttype.Bool, nil))
	if err != nil {
		return nil, err
	}
	return e.(*sqlexpr.Like), nil
}

// Function builds a function call. Arguments get their default mappings.
func (f *Factory) Function(name string, args []sqlexpr.Expression, nullable bool, propagatesNull []bool, typ *hosttype.Type, m *typemap.Mapping) (*sqlexpr.Function, error) {
	if len(propagatesNull) != len(args) {
		return nil, qerrors.NewInvalidShapeError("function %s: %d arguments but %d nullability flags", name, len(args), len(propagatesNull))
	}
	mapped, err := f.applyDefaultAll(args)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = f.source.FindMapping(typ)
	}
	return sqlexpr.NewFunction(name, mapped, nullable, propagatesNull, typ, m), nil
}

// NiladicFunction builds a function rendered without parentheses.
func (f *Factory) NiladicFunction(name string, nullable bool, typ *hosttype.Type, m *typemap.Mapping) *sqlexpr.Function {
	if m == nil {
		m = f.source.FindMapping(typ)
	}
	return sqlexpr.NewNiladicFunction(name, nullable, typ, m)
}

// Case builds a CASE expression. With an operand, the operand and the WHEN
// tests share one inferred mapping; without, the tests are predicates. The
// result mapping is m or inferred from the results.
func (f *Factory) Case(operand sqlexpr.Expression, whens []sqlexpr.CaseWhen, elseResult sqlexpr.Expression, m *typemap.Mapping) (*sqlexpr.Case, error) {
	if len(whens) == 0 {
		return nil, qerrors.NewInvalidShapeError("CASE requires at least one WHEN clause")
	}

	testMapping := f.boolMapping
	if operand != nil {
		exprs := []sqlexpr.Expression{operand}
		for _, w := range whens {
			exprs = append(exprs, w.Test)
		}
		testMapping = f.inferTypeMapping(exprs...)
		if testMapping == nil {
			testMapping = f.source.FindMapping(operand.Type())
		}
		var err error
		if operand, err = f.ApplyTypeMapping(operand, testMapping); err != nil {
			return nil, err
		}
	}

	mapped := make([]sqlexpr.CaseWhen, len(whens))
	for i, w := range whens {
		test, err := f.ApplyTypeMapping(w.Test, testMapping)
		if err != nil {
			return nil, err
		}
		mapped[i] = sqlexpr.CaseWhen{Test: test, Result: w.Result}
	}

	e, err := f.ApplyTypeMapping(sqlexpr.NewCase(operand, mapped, elseResult, whens[0].Result.Type(), nil), m)
	if err != nil {
		return nil, err
	}
	c := e.(*sqlexpr.Case)
	if c.TypeMapping() == nil {
		// Every result is unmapped: fall back to the default for the type.
		e, err = f.applyOnCase(c, f.source.FindMapping(c.Type()))
		if err != nil {
			return nil, err
		}
		c = e.(*sqlexpr.Case)
	}
	return c, nil
}

// RegexMatch builds match ~ pattern with the given options.
func (f *Factory) RegexMatch(match, pattern sqlexpr.Expression, options sqlexpr.RegexOptions) (*sqlexpr.RegexMatch, error) {
	return f.applyOnRegexMatch(sqlexpr.NewRegexMatch(match, pattern, options, nil))
}

// Any builds item op ANY(array).
func (f *Factory) Any(item, array sqlexpr.Expression, op sqlexpr.AnyOperator) (*sqlexpr.Any, error) {
	e, err := f.ApplyDefaultTypeMapping(sqlexpr.NewAny(item, array, op, nil))
	if err != nil {
		return nil, err
	}
	return e.(*sqlexpr.Any), nil
}

// All builds item op ALL(array).
func (f *Factory) All(item, array sqlexpr.Expression, op sqlexpr.AllOperator) (*sqlexpr.All, error) {
	e, err := f.ApplyDefaultTypeMapping(sqlexpr.NewAll(item, array, op, nil))
	if err != nil {
		return nil, err
	}
	return e.(*sqlexpr.All), nil
}

// ArrayIndex builds array[index]. The array must be of an array or list
// host type; m, when given, is the element's mapping.
func (f *Factory) ArrayIndex(array, index sqlexpr.Expression, m *typemap.Mapping) (*sqlexpr.ArrayIndex, error) {
	elem, ok := hosttype.ElementType(hosttype.Unwrap(array.Type()))
	if !ok {
		return nil, qerrors.NewInvalidShapeError("array index requires an array or list operand, got %s", array.Type())
	}
	e, err := f.ApplyTypeMapping(sqlexpr.NewArrayIndex(array, index, elem, nil), m)
	if err != nil {
		return nil, err
	}
	return e.(*sqlexpr.ArrayIndex), nil
}

// AtUtc converts timestamp to UTC.
func (f *Factory) AtUtc(timestamp sqlexpr.Expression) (*sqlexpr.PgBinary, error) {
	return f.AtTimeZone(timestamp, f.ConstantOf("UTC"), timestamp.Type(), nil)
}

// AtTimeZone builds timestamp AT TIME ZONE timeZone. Without m the result
// mapping flips timestamptz to timestamp and back, as the operator does.
func (f *Factory) AtTimeZone(timestamp, timeZone sqlexpr.Expression, typ *hosttype.Type, m *typemap.Mapping) (*sqlexpr.PgBinary, error) {
	if m == nil {
		tm := timestamp.TypeMapping()
		if tm == nil {
			tm = f.source.FindMapping(timestamp.Type())
		}
		switch {
		case tm == nil:
			return nil, qerrors.NewUnresolvedTypeMappingError("AT TIME ZONE operand", timestamp.Type().String())
		case tm.IsTimestampTz():
			m = f.source.FindMappingByStoreType("timestamp without time zone")
		case tm.IsTimestamp():
			m = f.source.FindMappingByStoreType("timestamp with time zone")
		default:
			return nil, qerrors.NewInvalidShapeError("AT TIME ZONE operand has store type %s", tm.StoreType())
		}
	}

	ts, err := f.ApplyDefaultTypeMapping(timestamp)
	if err != nil {
		return nil, err
	}
	tz, err := f.ApplyDefaultTypeMapping(timeZone)
	if err != nil {
		return nil, err
	}
	return sqlexpr.NewPgBinary(sqlexpr.PgAtTimeZone, ts, tz, typ, m), nil
}

// ILike builds match ILIKE pattern [ESCAPE escapeChar].
func (f *Factory) ILike(match, pattern, escapeChar sqlexpr.Expression) (*sqlexpr.ILike, error) {
	return f.applyOnILike(sqlexpr.NewILike(match, pattern, escapeChar, nil))
}

// JsonTraversal builds a JSON path traversal. Traversing an existing
// non-text traversal extends its path instead of nesting.
func (f *Factory) JsonTraversal(expr sqlexpr.Expression, path []sqlexpr.Expression, returnsText bool, typ *hosttype.Type, m *typemap.Mapping) (*sqlexpr.JsonTraversal, error) {
	root, err := f.ApplyDefaultTypeMapping(expr)
	if err != nil {
		return nil, err
	}
	components, err := f.applyDefaultAll(path)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = f.source.FindMapping(typ)
	}

	if prev, ok := root.(*sqlexpr.JsonTraversal); ok && !prev.ReturnsText {
		joined := make([]sqlexpr.Expression, 0, len(prev.Path)+len(components))
		joined = append(joined, prev.Path...)
		joined = append(joined, components...)
		return sqlexpr.NewJsonTraversal(prev.Root, joined, returnsText, typ, m), nil
	}
	return sqlexpr.NewJsonTraversal(root, components, returnsText, typ, m), nil
}

// NewArrayOrConstant builds a single array constant when every element is a
// constant, and an ARRAY[...] literal otherwise.
func (f *Factory) NewArrayOrConstant(elements []sqlexpr.Expression, typ *hosttype.Type, m *typemap.Mapping) (sqlexpr.Expression, error) {
	if !hosttype.IsArrayOrList(hosttype.Unwrap(typ)) {
		return nil, qerrors.NewInvalidShapeError("%s is not an array or list type", typ)
	}

	values := make([]any, len(elements))
	for i, e := range elements {
		c, ok := e.(*sqlexpr.Constant)
		if !ok {
			return f.NewArray(elements, typ, m)
		}
		values[i] = c.Value
	}
	return sqlexpr.NewConstant(values, typ, m), nil
}

// NewArray builds an ARRAY[...] literal, homogenizing element mappings.
func (f *Factory) NewArray(elements []sqlexpr.Expression, typ *hosttype.Type, m *typemap.Mapping) (*sqlexpr.NewArray, error) {
	e, err := f.ApplyTypeMapping(sqlexpr.NewNewArray(elements, typ, nil), m)
	if err != nil {
		return nil, err
	}
	return e.(*sqlexpr.NewArray), nil
}

// MakePostgresBinary builds a PostgreSQL operator expression.
func (f *Factory) MakePostgresBinary(op sqlexpr.PgOperator, left, right sqlexpr.Expression, m *typemap.Mapping) (*sqlexpr.PgBinary, error) {
	typ := pgResultType(op, left.Type())
	e, err := f.ApplyTypeMapping(sqlexpr.NewPgBinary(op, left, right, typ, nil), m)
	if err != nil {
		return nil, err
	}
	return e.(*sqlexpr.PgBinary), nil
}

func (f *Factory) Contains(left, right sqlexpr.Expression) (*sqlexpr.PgBinary, error) {
	return f.MakePostgresBinary(sqlexpr.PgContains, left, right, nil)
}

func (f *Factory) ContainedBy(left, right sqlexpr.Expression) (*sqlexpr.PgBinary, error) {
	return f.MakePostgresBinary(sqlexpr.PgContainedBy, left, right, nil)
}

func (f *Factory) Overlaps(left, right sqlexpr.Expression) (*sqlexpr.PgBinary, error) {
	return f.MakePostgresBinary(sqlexpr.PgOverlaps, left, right, nil)
}

// UnknownBinary passes an operator the node set does not model through to
// SQL verbatim. Operands get their default mappings.
func (f *Factory) UnknownBinary(left, right sqlexpr.Expression, operator string, typ *hosttype.Type, m *typemap.Mapping) (*sqlexpr.UnknownBinary, error) {
	l, err := f.ApplyDefaultTypeMapping(left)
	if err != nil {
		return nil, err
	}
	r, err := f.ApplyDefaultTypeMapping(right)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = f.source.FindMapping(typ)
	}
	return sqlexpr.NewUnknownBinary(l, r, operator, typ, m), nil
}

// GenerateOneBasedIndexExpression converts a zero-based index to the
// one-based form SQL arrays use.
func (f *Factory) GenerateOneBasedIndexExpression(index sqlexpr.Expression) (sqlexpr.Expression, error) {
	if c, ok := index.(*sqlexpr.Constant); ok {
		n, err := toInt32(c.Value)
		if err != nil {
			return nil, err
		}
		return sqlexpr.NewConstant(n+1, hosttype.Int32, c.TypeMapping()), nil
	}
	return f.Add(index, f.ConstantOf(1), nil)
}

func toInt32(v any) (int, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	default:
		return 0, qerrors.NewInvalidShapeError("array index constant %v (%T) is not an integer", v, v)
	}
	if n < math.MinInt32 || n >= math.MaxInt32 {
		return 0, fmt.Errorf("array index %d out of range", n)
	}
	return int(n), nil
}
