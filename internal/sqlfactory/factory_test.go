package sqlfactory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/sqlfactory"
	"github.com/roach88/pgxlate/internal/testutil"
	"github.com/roach88/pgxlate/internal/typemap"
)

type sourceWithout struct {
	typemap.Source
	hidden *hosttype.Type
}

func (s sourceWithout) FindMapping(t *hosttype.Type) *typemap.Mapping {
	if t == s.hidden {
		return nil
	}
	return s.Source.FindMapping(t)
}

func storeColumn(t *testing.T, f *sqlfactory.Factory, name string, typ *hosttype.Type, storeType string) *sqlexpr.Column {
	t.Helper()
	m := f.Source().FindMappingFor(typ, storeType)
	require.NotNil(t, m, storeType)
	return testutil.Must(f.Column("t", name, typ, false, m))
}

func TestNew_RequiresCoreMappings(t *testing.T) {
	r := testutil.NewRegistry(t)

	for _, hidden := range []*hosttype.Type{hosttype.Bool, hosttype.Float64, hosttype.String, hosttype.Int32} {
		t.Run(hidden.String(), func(t *testing.T) {
			_, err := sqlfactory.New(sourceWithout{Source: r, hidden: hidden})
			assert.Equal(t, qerrors.ErrCodeUnresolvedTypeMapping, qerrors.Code(err))
		})
	}

	_, err := sqlfactory.New(nil)
	assert.Error(t, err)
}

func TestParseInferencePreference(t *testing.T) {
	p, err := sqlfactory.ParseInferencePreference("RIGHT")
	require.NoError(t, err)
	assert.Equal(t, sqlfactory.PreferRight, p)
	assert.Equal(t, "left", sqlfactory.PreferLeft.String())

	_, err = sqlfactory.ParseInferencePreference("middle")
	assert.Error(t, err)
}

func TestComparison_InfersConstantFromColumn(t *testing.T) {
	f := testutil.NewFactory(t)
	col := storeColumn(t, f, "name", hosttype.String, "varchar(10)")

	eq := testutil.Must(f.Equal(col, f.ConstantOf("x")))
	assert.Equal(t, "boolean", eq.TypeMapping().StoreType())
	assert.Same(t, hosttype.Bool, eq.Type())
	assert.Equal(t, "varchar(10)", eq.Right.TypeMapping().StoreType())

	eq = testutil.Must(f.Equal(f.ConstantOf("x"), col))
	assert.Equal(t, "varchar(10)", eq.Left.TypeMapping().StoreType())

	unmapped := testutil.Must(f.LessThan(f.ConstantOf(1), f.ConstantOf(2)))
	assert.Equal(t, "integer", unmapped.Left.TypeMapping().StoreType())
}

func TestInferencePreference(t *testing.T) {
	testCases := []struct {
		pref sqlfactory.InferencePreference
		want string
	}{
		{sqlfactory.PreferLeft, "numeric(10,2)"},
		{sqlfactory.PreferRight, "numeric(12,4)"},
	}

	for _, tc := range testCases {
		t.Run(tc.pref.String(), func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			f := testutil.NewFactory(t, sqlfactory.WithInferencePreference(tc.pref), sqlfactory.WithLogger(zap.New(core)))
			a := storeColumn(t, f, "a", hosttype.Decimal, "numeric(10,2)")
			b := storeColumn(t, f, "b", hosttype.Decimal, "numeric(12,4)")

			sum := testutil.Must(f.Add(a, b, nil))
			assert.Equal(t, tc.want, sum.TypeMapping().StoreType())
			assert.Equal(t, 1, logs.FilterMessage("operand type mappings disagree").Len())
		})
	}
}

func TestMixedTimestamps(t *testing.T) {
	f := testutil.NewFactory(t)
	tz := storeColumn(t, f, "created", hosttype.DateTime, "timestamp with time zone")
	local := storeColumn(t, f, "local", hosttype.DateTime, "timestamp without time zone")

	_, err := f.Equal(tz, local)
	assert.True(t, qerrors.IsMixedTimestamp(err))

	legacy := testutil.NewFactory(t, sqlfactory.WithLegacyTimestampBehavior(true))
	assert.True(t, legacy.LegacyTimestamps())
	_, err = legacy.Equal(tz, local)
	assert.NoError(t, err)
}

func TestTemporalArithmetic(t *testing.T) {
	f := testutil.NewFactory(t)
	created := testutil.Column(t, f, "created", hosttype.DateTime, false)
	closed := testutil.Column(t, f, "closed", hosttype.NullableOf(hosttype.DateTime), true)
	day := testutil.Column(t, f, "day", hosttype.DateOnly, false)

	diff := testutil.Must(f.Subtract(created, created, nil))
	assert.Same(t, hosttype.TimeSpan, diff.Type())
	assert.Equal(t, "interval", diff.TypeMapping().StoreType())

	diff = testutil.Must(f.Subtract(closed, created, nil))
	assert.Same(t, hosttype.NullableOf(hosttype.TimeSpan), diff.Type())

	days := testutil.Must(f.Subtract(day, day, nil))
	assert.Same(t, hosttype.Int32, days.Type())
	assert.Equal(t, "integer", days.TypeMapping().StoreType())

	shifted := testutil.Must(f.Add(created, f.Parameter("span", hosttype.TimeSpan, nil), nil))
	assert.Same(t, hosttype.DateTime, shifted.Type())
	assert.Equal(t, created.TypeMapping().StoreType(), shifted.TypeMapping().StoreType())
	assert.Equal(t, "interval", shifted.Right.TypeMapping().StoreType())
}

func TestAny_ArrayMappingFromItem(t *testing.T) {
	f := testutil.NewFactory(t)
	small := storeColumn(t, f, "small", hosttype.Int16, "smallint")

	anyEq := testutil.Must(f.Any(small, f.Parameter("ids", hosttype.ArrayOf(hosttype.Int16), nil), sqlexpr.AnyEqual))
	assert.Equal(t, "smallint[]", anyEq.Array.TypeMapping().StoreType())
	assert.Equal(t, "boolean", anyEq.TypeMapping().StoreType())

	bytes := testutil.Must(f.Any(small, f.Parameter("raw", hosttype.Bytes, nil), sqlexpr.AnyEqual))
	assert.Equal(t, "smallint[]", bytes.Array.TypeMapping().StoreType(), "byte arrays are not bytea here")

	item := testutil.Must(f.Any(f.Parameter("id", hosttype.Int16, nil), testutil.Column(t, f, "ids", hosttype.ArrayOf(hosttype.Int16), false), sqlexpr.AnyEqual))
	assert.Equal(t, "smallint", item.Item.TypeMapping().StoreType())

	scalar := sqlexpr.NewAny(small, small, sqlexpr.AnyEqual, nil)
	_, err := f.ApplyDefaultTypeMapping(scalar)
	assert.True(t, qerrors.IsInvalidShape(err))
}

func TestArrayIndex(t *testing.T) {
	f := testutil.NewFactory(t)
	xs := testutil.Column(t, f, "xs", hosttype.ArrayOf(hosttype.Int64), false)

	idx := testutil.Must(f.ArrayIndex(xs, f.ConstantOf(1), nil))
	assert.Same(t, hosttype.Int64, idx.Type())
	assert.Equal(t, "bigint", idx.TypeMapping().StoreType())

	_, err := f.ArrayIndex(testutil.Column(t, f, "n", hosttype.Int32, false), f.ConstantOf(1), nil)
	assert.True(t, qerrors.IsInvalidShape(err))
}

func TestGenerateOneBasedIndexExpression(t *testing.T) {
	f := testutil.NewFactory(t)

	e := testutil.Must(f.GenerateOneBasedIndexExpression(f.ConstantOf(0)))
	c, ok := e.(*sqlexpr.Constant)
	require.True(t, ok)
	assert.Equal(t, 1, c.Value)

	e = testutil.Must(f.GenerateOneBasedIndexExpression(testutil.Column(t, f, "i", hosttype.Int32, false)))
	b, ok := e.(*sqlexpr.Binary)
	require.True(t, ok)
	assert.Equal(t, sqlexpr.OpAdd, b.Op)
}

func TestNewArray_Widening(t *testing.T) {
	f := testutil.NewFactory(t)
	v10 := storeColumn(t, f, "a", hosttype.String, "varchar(10)")
	v15 := storeColumn(t, f, "b", hosttype.String, "varchar(15)")
	text := testutil.Column(t, f, "c", hosttype.String, false)
	num := storeColumn(t, f, "d", hosttype.Decimal, "numeric(10,2)")
	num2 := storeColumn(t, f, "e", hosttype.Decimal, "numeric(8,4)")
	integer := testutil.Column(t, f, "f", hosttype.Int32, false)
	strings := hosttype.ArrayOf(hosttype.String)

	testCases := []struct {
		name     string
		elements []sqlexpr.Expression
		typ      *hosttype.Type
		want     string
	}{
		{"size widens", []sqlexpr.Expression{v10, v15}, strings, "varchar(15)[]"},
		{"text absorbs varchar", []sqlexpr.Expression{text, v10}, strings, "text[]"},
		{"varchar then text", []sqlexpr.Expression{v10, text}, strings, "text[]"},
		{"precision and scale widen", []sqlexpr.Expression{num, num2}, hosttype.ArrayOf(hosttype.Decimal), "numeric(10,4)[]"},
		{"constants follow", []sqlexpr.Expression{v10, f.ConstantOf("x")}, strings, "varchar(10)[]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			arr := testutil.Must(f.NewArray(tc.elements, tc.typ, nil))
			require.NotNil(t, arr.TypeMapping())
			assert.Equal(t, tc.want, arr.TypeMapping().StoreType())
		})
	}

	_, err := f.NewArray([]sqlexpr.Expression{integer, num}, hosttype.ArrayOf(hosttype.Decimal), nil)
	assert.True(t, qerrors.IsHeterogeneousArray(err))
	assert.Contains(t, err.Error(), "integer")

	_, err = f.NewArray([]sqlexpr.Expression{integer}, hosttype.ArrayOf(hosttype.Int32), text.TypeMapping())
	assert.True(t, qerrors.IsInvalidShape(err))

	unmapped := testutil.Must(f.NewArray([]sqlexpr.Expression{f.Parameter("p", hosttype.Int32, nil)}, hosttype.ArrayOf(hosttype.Int32), nil))
	assert.Nil(t, unmapped.TypeMapping(), "parameters alone leave the literal unmapped")
}

func TestNewArrayOrConstant(t *testing.T) {
	f := testutil.NewFactory(t)

	e := testutil.Must(f.NewArrayOrConstant([]sqlexpr.Expression{f.ConstantOf(1), f.ConstantOf(2)}, hosttype.ArrayOf(hosttype.Int32), nil))
	c, ok := e.(*sqlexpr.Constant)
	require.True(t, ok)
	assert.Equal(t, []any{1, 2}, c.Value)

	e = testutil.Must(f.NewArrayOrConstant([]sqlexpr.Expression{f.ConstantOf(1), testutil.Column(t, f, "i", hosttype.Int32, false)}, hosttype.ArrayOf(hosttype.Int32), nil))
	assert.Equal(t, sqlexpr.KindNewArray, e.Kind())

	_, err := f.NewArrayOrConstant(nil, hosttype.Int32, nil)
	assert.True(t, qerrors.IsInvalidShape(err))
}

func TestContainment(t *testing.T) {
	f := testutil.NewFactory(t)
	ints := testutil.Column(t, f, "ints", hosttype.ArrayOf(hosttype.Int32), false)
	span := testutil.Column(t, f, "span", hosttype.RangeOf(hosttype.Int32), false)

	t.Run("array and list flip", func(t *testing.T) {
		c := testutil.Must(f.Contains(ints, f.Parameter("wanted", hosttype.ListOf(hosttype.Int32), nil)))
		m := c.Right.TypeMapping()
		require.NotNil(t, m)
		assert.Equal(t, "integer[]", m.StoreType())
		assert.Same(t, hosttype.ListOf(hosttype.Int32), m.ClrType())
	})

	t.Run("range contains value", func(t *testing.T) {
		c := testutil.Must(f.Contains(span, f.ConstantOf(5)))
		assert.Equal(t, "integer", c.Right.TypeMapping().StoreType())
		assert.Equal(t, "boolean", c.TypeMapping().StoreType())
	})

	t.Run("value contained by range parameter", func(t *testing.T) {
		c := testutil.Must(f.ContainedBy(testutil.Column(t, f, "n", hosttype.Int32, false), f.Parameter("r", hosttype.RangeOf(hosttype.Int32), nil)))
		assert.Equal(t, "int4range", c.Right.TypeMapping().StoreType())
	})

	t.Run("overlaps same type", func(t *testing.T) {
		c := testutil.Must(f.Overlaps(span, f.Parameter("other", hosttype.RangeOf(hosttype.Int32), nil)))
		assert.Equal(t, span.TypeMapping().StoreType(), c.Right.TypeMapping().StoreType())
	})

	t.Run("distance is double", func(t *testing.T) {
		d := testutil.Must(f.MakePostgresBinary(sqlexpr.PgDistanceKnn, testutil.Column(t, f, "x", hosttype.Float64, false), f.ConstantOf(1.5), nil))
		assert.Same(t, hosttype.Float64, d.Type())
		assert.Equal(t, "double precision", d.TypeMapping().StoreType())
	})

	t.Run("at time zone is not a binary operator", func(t *testing.T) {
		_, err := f.MakePostgresBinary(sqlexpr.PgAtTimeZone, span, span, nil)
		assert.True(t, qerrors.IsInvalidOperator(err))
	})
}

func TestAtTimeZone_FlipsTimestampKind(t *testing.T) {
	f := testutil.NewFactory(t)
	tz := storeColumn(t, f, "created", hosttype.DateTime, "timestamp with time zone")
	local := storeColumn(t, f, "local", hosttype.DateTime, "timestamp without time zone")

	utc := testutil.Must(f.AtUtc(tz))
	assert.True(t, utc.TypeMapping().IsTimestamp())
	assert.Equal(t, sqlexpr.PgAtTimeZone, utc.Op)

	back := testutil.Must(f.AtUtc(local))
	assert.True(t, back.TypeMapping().IsTimestampTz())

	_, err := f.AtUtc(testutil.Column(t, f, "n", hosttype.Int32, false))
	assert.True(t, qerrors.IsInvalidShape(err))
}

func TestJsonTraversal_FlattensPath(t *testing.T) {
	f := testutil.NewFactory(t)
	doc := testutil.Column(t, f, "doc", hosttype.JSONDocument, false)

	customer := testutil.Must(f.JsonTraversal(doc, []sqlexpr.Expression{f.ConstantOf("customer")}, false, hosttype.JSONDocument, nil))
	name := testutil.Must(f.JsonTraversal(customer, []sqlexpr.Expression{f.ConstantOf("name")}, true, hosttype.String, nil))
	assert.Same(t, doc, name.Root)
	require.Len(t, name.Path, 2)
	assert.True(t, name.ReturnsText)
	assert.Equal(t, "text", name.TypeMapping().StoreType())

	nested := testutil.Must(f.JsonTraversal(name, []sqlexpr.Expression{f.ConstantOf("x")}, true, hosttype.String, nil))
	assert.Same(t, name, nested.Root, "a text traversal is not extended")
}

func TestShapeErrors(t *testing.T) {
	f := testutil.NewFactory(t)

	_, err := f.Function("abs", []sqlexpr.Expression{f.ConstantOf(1)}, false, nil, hosttype.Int32, nil)
	assert.True(t, qerrors.IsInvalidShape(err))

	_, err = f.Case(nil, nil, nil, nil)
	assert.True(t, qerrors.IsInvalidShape(err))
}

func TestApplyTypeMapping_MappedNodesUnchanged(t *testing.T) {
	f := testutil.NewFactory(t)
	col := testutil.Column(t, f, "n", hosttype.Int32, false)

	e, err := f.ApplyTypeMapping(col, f.Source().FindMapping(hosttype.Int64))
	require.NoError(t, err)
	assert.Same(t, col, e)
}

func TestApplyDefaultTypeMapping_EveryKind(t *testing.T) {
	f := testutil.NewFactory(t)
	one := sqlexpr.NewConstant(1, hosttype.Int32, nil)
	text := sqlexpr.NewConstant("a", hosttype.String, nil)
	ints := sqlexpr.NewConstant([]any{1}, hosttype.ArrayOf(hosttype.Int32), nil)
	texts := sqlexpr.NewConstant([]any{"a%"}, hosttype.ArrayOf(hosttype.String), nil)

	unmapped := []sqlexpr.Expression{
		sqlexpr.NewColumn("t", "n", hosttype.Int32, false, nil),
		one,
		sqlexpr.NewParameter("p", hosttype.Int32, nil),
		sqlexpr.NewUnary(sqlexpr.OpNegate, one, hosttype.Int32, nil),
		sqlexpr.NewBinary(sqlexpr.OpAdd, one, one, hosttype.Int32, nil),
		sqlexpr.NewLike(text, text, nil, hosttype.Bool, nil),
		sqlexpr.NewFunction("abs", []sqlexpr.Expression{one}, false, []bool{true}, hosttype.Int32, nil),
		sqlexpr.NewCase(nil, []sqlexpr.CaseWhen{{Test: sqlexpr.NewConstant(true, hosttype.Bool, nil), Result: one}}, nil, hosttype.Int32, nil),
		sqlexpr.NewAny(one, ints, sqlexpr.AnyEqual, nil),
		sqlexpr.NewAll(text, texts, sqlexpr.AllLike, nil),
		sqlexpr.NewArrayIndex(ints, one, hosttype.Int32, nil),
		sqlexpr.NewPgBinary(sqlexpr.PgOverlaps, ints, ints, hosttype.Bool, nil),
		sqlexpr.NewILike(text, text, nil, nil),
		sqlexpr.NewNewArray([]sqlexpr.Expression{one}, hosttype.ArrayOf(hosttype.Int32), nil),
		sqlexpr.NewRegexMatch(text, text, sqlexpr.RegexNone, nil),
		sqlexpr.NewJsonTraversal(sqlexpr.NewColumn("t", "doc", hosttype.JSONDocument, false, nil), []sqlexpr.Expression{text}, true, hosttype.String, nil),
		sqlexpr.NewUnknownBinary(text, text, "%", hosttype.Bool, nil),
	}

	seen := map[sqlexpr.Kind]bool{}
	for _, e := range unmapped {
		seen[e.Kind()] = true
		t.Run(e.Kind().String(), func(t *testing.T) {
			got, err := f.ApplyDefaultTypeMapping(e)
			require.NoError(t, err)
			assert.NotNil(t, got.TypeMapping())
			assert.Equal(t, e.Kind(), got.Kind())
		})
	}
	for _, k := range sqlexpr.Kinds() {
		assert.True(t, seen[k], "no case for %s", k)
	}
}
