package sqlgen_test

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/nullability"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/sqlfactory"
	"github.com/roach88/pgxlate/internal/sqlgen"
	"github.com/roach88/pgxlate/internal/testutil"
)

var nullableInt = hosttype.NullableOf(hosttype.Int32)

func render(t *testing.T, e sqlexpr.Expression) sqlgen.Result {
	t.Helper()
	res, err := sqlgen.New().Generate(e)
	require.NoError(t, err)
	return res
}

func TestGenerate(t *testing.T) {
	f := testutil.NewFactory(t)
	a := testutil.Column(t, f, "a", hosttype.Int32, false)
	b := testutil.Column(t, f, "b", hosttype.Int32, false)
	c := testutil.Column(t, f, "c", hosttype.Int32, false)
	x := testutil.Column(t, f, "x", hosttype.Bool, false)
	y := testutil.Column(t, f, "y", hosttype.Bool, false)
	name := testutil.Column(t, f, "name", hosttype.String, true)
	arr := testutil.Column(t, f, "arr", hosttype.ArrayOf(hosttype.Int32), false)
	other := testutil.Column(t, f, "other", hosttype.ArrayOf(hosttype.Int32), false)
	pats := testutil.Column(t, f, "pats", hosttype.ArrayOf(hosttype.String), false)
	ts := testutil.Column(t, f, "ts", hosttype.DateTime, false)
	doc := testutil.Column(t, f, "doc", hosttype.JSONDocument, false)
	intMapping := f.Source().FindMapping(hosttype.Int32)

	testCases := []struct {
		name string
		expr sqlexpr.Expression
		want string
	}{
		{"comparison", testutil.Must(f.Equal(a, f.ConstantOf(5))), "t.a = 5"},
		{"quoted column", testutil.Column(t, f, "Name", hosttype.String, false), `t."Name"`},
		{"reserved column", testutil.Column(t, f, "order", hosttype.Int32, false), `t."order"`},
		{"not over and", testutil.Must(f.Not(testutil.Must(f.AndAlso(x, y)))), "NOT (t.x AND t.y)"},
		{"and chain", testutil.Must(f.AndAlso(testutil.Must(f.AndAlso(x, y)), x)), "t.x AND t.y AND t.x"},
		{"and under or", testutil.Must(f.OrElse(testutil.Must(f.AndAlso(x, y)), x)), "(t.x AND t.y) OR t.x"},
		{"right subtraction", testutil.Must(f.Subtract(a, testutil.Must(f.Subtract(b, c, nil)), nil)), "t.a - (t.b - t.c)"},
		{"left subtraction", testutil.Must(f.Subtract(testutil.Must(f.Subtract(a, b, nil)), c, nil)), "t.a - t.b - t.c"},
		{"sum times", testutil.Must(f.Multiply(testutil.Must(f.Add(a, b, nil)), c, nil)), "(t.a + t.b) * t.c"},
		{"double negation", testutil.Must(f.Negate(testutil.Must(f.Negate(a)))), "-(-t.a)"},
		{"negative literal", testutil.Must(f.Subtract(a, f.Constant(-1, hosttype.Int32, intMapping), nil)), "t.a - (-1)"},
		{"is null over comparison", testutil.Must(f.IsNull(testutil.Must(f.Equal(a, b)))), "(t.a = t.b) IS NULL"},
		{"is not null", testutil.Must(f.IsNotNull(name)), "t.name IS NOT NULL"},
		{"cast", testutil.Must(f.Convert(a, hosttype.Int64, nil)), "t.a::bigint"},
		{"like", testutil.Must(f.Like(name, f.ConstantOf("a%"), nil)), "t.name LIKE 'a%'"},
		{"like escape", testutil.Must(f.Like(name, f.ConstantOf("a!%"), f.ConstantOf("!"))), "t.name LIKE 'a!%' ESCAPE '!'"},
		{"ilike", testutil.Must(f.ILike(name, f.ConstantOf("a%"), nil)), "t.name ILIKE 'a%'"},
		{
			"function",
			testutil.Must(f.Function("lower", []sqlexpr.Expression{name}, true, []bool{true}, hosttype.String, nil)),
			"lower(t.name)",
		},
		{"niladic function", f.NiladicFunction("current_timestamp", false, hosttype.DateTime, nil), "current_timestamp"},
		{
			"searched case",
			testutil.Must(f.Case(nil, []sqlexpr.CaseWhen{{Test: x, Result: a}}, b, nil)),
			"CASE WHEN t.x THEN t.a ELSE t.b END",
		},
		{
			"simple case",
			testutil.Must(f.Case(a, []sqlexpr.CaseWhen{{Test: f.ConstantOf(1), Result: f.ConstantOf("one")}}, nil, nil)),
			"CASE t.a WHEN 1 THEN 'one' END",
		},
		{"any", testutil.Must(f.Any(a, arr, sqlexpr.AnyEqual)), "t.a = ANY (t.arr)"},
		{"all like", testutil.Must(f.All(name, pats, sqlexpr.AllLike)), "t.name LIKE ALL (t.pats)"},
		{"array index", testutil.Must(f.ArrayIndex(arr, f.ConstantOf(1), nil)), "t.arr[1]"},
		{"contains", testutil.Must(f.Contains(arr, other)), "t.arr @> t.other"},
		{"overlaps", testutil.Must(f.Overlaps(arr, other)), "t.arr && t.other"},
		{"at utc", testutil.Must(f.AtUtc(ts)), "t.ts AT TIME ZONE 'UTC'"},
		{"array literal", testutil.Must(f.NewArray([]sqlexpr.Expression{a, b}, hosttype.ArrayOf(hosttype.Int32), nil)), "ARRAY[t.a, t.b]::integer[]"},
		{"regex", testutil.Must(f.RegexMatch(name, f.ConstantOf("^a"), sqlexpr.RegexNone)), "t.name ~ ('(?p)' || '^a')"},
		{"regex ignore case", testutil.Must(f.RegexMatch(name, f.ConstantOf("^a"), sqlexpr.RegexIgnoreCase)), "t.name ~ ('(?ip)' || '^a')"},
		{"regex singleline", testutil.Must(f.RegexMatch(name, f.ConstantOf("^a"), sqlexpr.RegexSingleline)), "t.name ~ '^a'"},
		{
			"regex multiline singleline",
			testutil.Must(f.RegexMatch(name, f.ConstantOf("^a"), sqlexpr.RegexMultiline|sqlexpr.RegexSingleline)),
			"t.name ~ ('(?w)' || '^a')",
		},
		{
			"json text",
			testutil.Must(f.JsonTraversal(doc, []sqlexpr.Expression{f.ConstantOf("customer"), f.ConstantOf("name")}, true, hosttype.String, nil)),
			"t.doc -> 'customer' ->> 'name'",
		},
		{"unknown operator", testutil.Must(f.UnknownBinary(a, b, "#", hosttype.Int32, nil)), "t.a # t.b"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := render(t, tc.expr)
			assert.Equal(t, tc.want, res.SQL)
			assert.Empty(t, res.Parameters)
		})
	}
}

func TestGenerate_ParametersNumberedByFirstUse(t *testing.T) {
	f := testutil.NewFactory(t)
	a := testutil.Column(t, f, "a", hosttype.Int32, false)
	b := testutil.Column(t, f, "b", hosttype.Int32, false)
	c := testutil.Column(t, f, "c", hosttype.Int32, false)

	expr := testutil.Must(f.AndAlso(
		testutil.Must(f.AndAlso(
			testutil.Must(f.Equal(a, f.Parameter("p", hosttype.Int32, nil))),
			testutil.Must(f.Equal(b, f.Parameter("q", hosttype.Int32, nil))))),
		testutil.Must(f.Equal(c, f.Parameter("p", hosttype.Int32, nil)))))

	res := render(t, expr)
	assert.Equal(t, "t.a = $1 AND t.b = $2 AND t.c = $1", res.SQL)
	assert.Equal(t, []string{"p", "q"}, res.Parameters)
}

func TestGenerate_Errors(t *testing.T) {
	f := testutil.NewFactory(t)
	a := testutil.Column(t, f, "a", hosttype.Int32, false)

	testCases := []struct {
		name string
		expr sqlexpr.Expression
	}{
		{"unmapped constant", sqlexpr.NewConstant(1, hosttype.Int32, nil)},
		{"unmapped parameter", sqlexpr.NewParameter("p", hosttype.Int32, nil)},
		{"unmapped array", sqlexpr.NewNewArray([]sqlexpr.Expression{a}, hosttype.ArrayOf(hosttype.Int32), nil)},
		{"nested unmapped", sqlexpr.NewBinary(sqlexpr.OpEqual, a, sqlexpr.NewConstant(1, hosttype.Int32, nil), hosttype.Bool, f.BoolMapping())},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sqlgen.New().Generate(tc.expr)
			assert.True(t, qerrors.IsUnresolvedTypeMapping(err), "got %v", err)
		})
	}

	_, err := sqlgen.New().Generate(nil)
	assert.Error(t, err)

	undeclared := sqlexpr.NewPgBinary(sqlexpr.PgOperator(250), a, a, hosttype.Bool, f.BoolMapping())
	_, err = sqlgen.New().Generate(undeclared)
	assert.True(t, qerrors.IsUnsupportedExpression(err), "got %v", err)
	assert.ErrorContains(t, err, "PgOperator(250)")
}

// TestGenerate_NullCompensation renders predicates after null-semantics
// expansion. The golden files hold the exact SQL a query would carry.
func TestGenerate_NullCompensation(t *testing.T) {
	f := testutil.NewFactory(t)
	a := testutil.Column(t, f, "a", nullableInt, true)
	b := testutil.Column(t, f, "b", nullableInt, true)
	ids := f.Parameter("ids", hosttype.ArrayOf(nullableInt), nil)

	testCases := []struct {
		name      string
		expr      func(*sqlfactory.Factory) sqlexpr.Expression
		optimized bool
	}{
		{"equal_full", func(f *sqlfactory.Factory) sqlexpr.Expression { return testutil.Must(f.Equal(a, b)) }, false},
		{"equal_optimized", func(f *sqlfactory.Factory) sqlexpr.Expression { return testutil.Must(f.Equal(a, b)) }, true},
		{"not_equal", func(f *sqlfactory.Factory) sqlexpr.Expression { return testutil.Must(f.NotEqual(a, b)) }, false},
		{"any_full", func(f *sqlfactory.Factory) sqlexpr.Expression { return testutil.Must(f.Any(a, ids, sqlexpr.AnyEqual)) }, false},
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			processed, _, err := nullability.New(f).Process(tc.expr(f), tc.optimized)
			require.NoError(t, err)
			res := render(t, processed)

			out := res.SQL + "\n"
			for i, p := range res.Parameters {
				out += fmt.Sprintf("-- $%d = @%s\n", i+1, p)
			}
			g.Assert(t, tc.name, []byte(out))
		})
	}
}
