package exprdoc_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pgxlate/internal/exprdoc"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlgen"
	"github.com/roach88/pgxlate/internal/testutil"
	"github.com/roach88/pgxlate/internal/translators"
)

func newBuilder(t *testing.T) *exprdoc.Builder {
	t.Helper()
	f := testutil.NewFactory(t)
	return exprdoc.NewBuilder(f, translators.New(f))
}

func build(t *testing.T, b *exprdoc.Builder, src string) (string, error) {
	t.Helper()
	doc, err := exprdoc.DecodeYAML(strings.NewReader(src))
	require.NoError(t, err)
	e, err := b.Build(doc)
	if err != nil {
		return "", err
	}
	res, err := sqlgen.New().Generate(e)
	require.NoError(t, err)
	return res.SQL, nil
}

func TestBuild(t *testing.T) {
	b := newBuilder(t)

	tests := []struct {
		name string
		expr string
		want string
	}{
		{
			"equality",
			`{op: equal, args: [{column: {name: a, type: int}}, {column: {name: b, type: int}}]}`,
			"t.a = t.b",
		},
		{
			"and folds left",
			`{op: and, args: [{column: {name: x, type: bool}}, {column: {name: y, type: bool}}, {column: {name: z, type: bool}}]}`,
			"t.x AND t.y AND t.z",
		},
		{
			"arithmetic with constant",
			`{op: subtract, args: [{column: {name: a, type: int}}, {constant: {value: 1}}]}`,
			"t.a - 1",
		},
		{
			"qualified column",
			`{column: {table: orders, name: total, type: decimal}}`,
			"orders.total",
		},
		{
			"like",
			`{op: like, args: [{column: {name: name, type: string, nullable: true}}, {constant: {value: "a%"}}]}`,
			"t.name LIKE 'a%'",
		},
		{
			"convert",
			`{op: convert, type: long, args: [{column: {name: a, type: int}}]}`,
			"t.a::bigint",
		},
		{
			"function",
			`{function: {name: lower, args: [{column: {name: name, type: string}}]}, type: string}`,
			"lower(t.name)",
		},
		{
			"niladic function",
			`{function: {name: current_timestamp}, type: DateTime}`,
			"current_timestamp",
		},
		{
			"empty argument list",
			`{function: {name: "random()"}, type: double}`,
			"random()",
		},
		{
			"zero-based index",
			`{op: index, args: [{column: {name: arr, type: "int[]"}}, {constant: {value: 0}}]}`,
			"t.arr[1]",
		},
		{
			"regex options",
			`{op: regex, options: IgnoreCase, args: [{column: {name: name, type: string}}, {constant: {value: "^a"}}]}`,
			"t.name ~ ('(?ip)' || '^a')",
		},
		{
			"json text path",
			`{json: {of: {column: {name: doc, type: JsonDocument}}, path: [customer, name], text: true}}`,
			"t.doc -> 'customer' ->> 'name'",
		},
		{
			"case",
			`{case: {whens: [{when: {column: {name: x, type: bool}}, then: {column: {name: a, type: int}}}], else: {column: {name: b, type: int}}}}`,
			"CASE WHEN t.x THEN t.a ELSE t.b END",
		},
		{
			"array of columns",
			`{op: array, type: "int[]", args: [{column: {name: a, type: int}}, {column: {name: b, type: int}}]}`,
			"ARRAY[t.a, t.b]::integer[]",
		},
		{
			"any",
			`{op: any, args: [{column: {name: a, type: int}}, {column: {name: arr, type: "int[]"}}]}`,
			"t.a = ANY (t.arr)",
		},
		{
			"unknown binary",
			`{op: unknownBinary, operator: "#", type: int, args: [{column: {name: a, type: int}}, {column: {name: b, type: int}}]}`,
			"t.a # t.b",
		},
		{
			"method",
			`{method: Range.Contains, args: [{column: {name: r, type: "Range<int>"}}, {constant: {value: 5}}]}`,
			"t.r @> 5",
		},
		{
			"member",
			`{member: TimeSpan.Days, instance: {column: {name: iv, type: TimeSpan}}}`,
			"floor(date_part('day', t.iv))::integer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := build(t, b, "name: "+tt.name+"\nexpression: "+tt.expr+"\n")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	b := newBuilder(t)

	tests := []struct {
		name  string
		expr  string
		check func(error) bool
	}{
		{"empty node", `{}`, nil},
		{"unknown op", `{op: xor, args: [{column: {name: x, type: bool}}, {column: {name: y, type: bool}}]}`, nil},
		{"arity", `{op: not, args: []}`, nil},
		{"missing type", `{column: {name: a}}`, nil},
		{"bad type", `{column: {name: a, type: "List<int"}}`, nil},
		{"untyped null", `{constant: {value: null}}`, nil},
		{"unknown method", `{method: Nope.Nothing, args: []}`, qerrors.IsUnsupportedExpression},
		{"unknown store type", `{column: {name: a, type: int, storeType: nosuchtype}}`, qerrors.IsUnresolvedTypeMapping},
		{"bad regex option", `{op: regex, options: Bogus, args: [{column: {name: n, type: string}}, {constant: {value: a}}]}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := build(t, b, "name: e\nexpression: "+tt.expr+"\n")
			require.Error(t, err)
			if tt.check != nil {
				assert.True(t, tt.check(err), "unexpected error: %v", err)
			}
		})
	}
}

func TestParameterValues_CoercedToParameterTypes(t *testing.T) {
	b := newBuilder(t)
	doc, err := exprdoc.DecodeYAML(strings.NewReader(`
name: params
parameters:
  ids: [1, null, 3]
  since: "2024-03-01T10:00:00Z"
  unused: 7
expression:
  op: and
  args:
    - op: any
      args:
        - column: {name: a, type: "int?", nullable: true}
        - parameter: {name: ids, type: "int?[]"}
    - op: greaterThan
      args:
        - column: {name: ts, type: DateTime}
        - parameter: {name: since, type: DateTime}
`))
	require.NoError(t, err)

	e, err := b.Build(doc)
	require.NoError(t, err)
	values, err := b.ParameterValues(doc, e)
	require.NoError(t, err)

	assert.Equal(t, []any{1, nil, 3}, values["ids"])
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), values["since"])
	assert.Equal(t, 7, values["unused"])
}

func TestParameterValues_BadValue(t *testing.T) {
	b := newBuilder(t)
	doc, err := exprdoc.DecodeYAML(strings.NewReader(`
name: params
parameters:
  p: not-a-number
expression:
  op: equal
  args:
    - column: {name: a, type: int}
    - parameter: {name: p, type: int}
`))
	require.NoError(t, err)
	e, err := b.Build(doc)
	require.NoError(t, err)

	_, err = b.ParameterValues(doc, e)
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	yamlDoc, err := exprdoc.Load("testdata/any_ids.yaml")
	require.NoError(t, err)
	assert.Equal(t, "any-ids", yamlDoc.Name)
	assert.Equal(t, "any", yamlDoc.Expression.Op)
	assert.Len(t, yamlDoc.Parameters["ids"], 3)

	cueDoc, err := exprdoc.Load("testdata/range_contains.cue")
	require.NoError(t, err)
	assert.Equal(t, "range-contains", cueDoc.Name)
	assert.True(t, cueDoc.Optimized)
	assert.Equal(t, "Range.Contains", cueDoc.Expression.Method)
	require.Len(t, cueDoc.Expression.Args, 2)
	assert.Equal(t, "Range<int>", cueDoc.Expression.Args[0].Column.Type)

	b := newBuilder(t)
	e, err := b.Build(cueDoc)
	require.NoError(t, err)
	res, err := sqlgen.New().Generate(e)
	require.NoError(t, err)
	assert.Equal(t, "t.slots @> t.n", res.SQL)
}

func TestLoad_Errors(t *testing.T) {
	for _, path := range []string{
		"testdata/typo.yaml",
		"testdata/typo.cue",
		"testdata/missing.yaml",
		"testdata/doc.json",
	} {
		t.Run(path, func(t *testing.T) {
			_, err := exprdoc.Load(path)
			assert.Error(t, err)
		})
	}
}

func TestOps_Sorted(t *testing.T) {
	ops := exprdoc.Ops()
	assert.Contains(t, ops, "equal")
	assert.Contains(t, ops, "unknownBinary")
	assert.IsIncreasing(t, ops)
}
