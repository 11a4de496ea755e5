package sqlexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/typemap"
)

func testRegistry(t *testing.T) *typemap.Registry {
	t.Helper()
	r, err := typemap.NewRegistry()
	require.NoError(t, err)
	return r
}

func col(name string, typ *hosttype.Type) *Column {
	return NewColumn("t", name, typ, false, nil)
}

// sample returns one instance of every kind.
func sample(k Kind) Expression {
	i := col("i", hosttype.Int32)
	s := col("s", hosttype.String)
	arr := col("a", hosttype.ArrayOf(hosttype.Int32))
	switch k {
	case KindColumn:
		return i
	case KindConstant:
		return NewConstant(1, hosttype.Int32, nil)
	case KindParameter:
		return NewParameter("p", hosttype.Int32, nil)
	case KindUnary:
		return NewUnary(OpNot, col("b", hosttype.Bool), hosttype.Bool, nil)
	case KindBinary:
		return NewBinary(OpAdd, i, i, hosttype.Int32, nil)
	case KindLike:
		return NewLike(s, s, nil, hosttype.Bool, nil)
	case KindFunction:
		return NewFunction("lower", []Expression{s}, false, []bool{true}, hosttype.String, nil)
	case KindCase:
		return NewCase(nil, []CaseWhen{{Test: col("b", hosttype.Bool), Result: i}}, nil, hosttype.Int32, nil)
	case KindAny:
		return NewAny(i, arr, AnyEqual, nil)
	case KindAll:
		return NewAll(s, col("sa", hosttype.ArrayOf(hosttype.String)), AllLike, nil)
	case KindArrayIndex:
		return NewArrayIndex(arr, i, hosttype.Int32, nil)
	case KindPgBinary:
		return NewPgBinary(PgContains, arr, arr, hosttype.Bool, nil)
	case KindILike:
		return NewILike(s, s, nil, nil)
	case KindNewArray:
		return NewNewArray([]Expression{i, i}, hosttype.ArrayOf(hosttype.Int32), nil)
	case KindRegexMatch:
		return NewRegexMatch(s, s, RegexIgnoreCase, nil)
	case KindJsonTraversal:
		return NewJsonTraversal(col("j", hosttype.JSONDocument), []Expression{NewConstant("a", hosttype.String, nil)}, false, hosttype.JSONElement, nil)
	case KindUnknownBinary:
		return NewUnknownBinary(s, s, "||", hosttype.String, nil)
	}
	return nil
}

func TestKinds_EveryVariantHandled(t *testing.T) {
	r := testRegistry(t)
	mapping := r.FindMapping(hosttype.Bool)

	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			e := sample(k)
			require.NotNil(t, e, "no sample for %s", k)
			assert.Equal(t, k, e.Kind())

			assert.NotPanics(t, func() { Children(e) })
			assert.True(t, Equal(e, e))
			assert.NotEmpty(t, Format(e))

			mapped := WithTypeMapping(e, mapping)
			assert.Equal(t, k, mapped.Kind())
			assert.Same(t, mapping, mapped.TypeMapping())
			assert.Nil(t, e.TypeMapping(), "original must not be mutated")
		})
	}
}

func TestKind_IsPostgres(t *testing.T) {
	assert.False(t, KindCase.IsPostgres())
	assert.True(t, KindAny.IsPostgres())
	assert.True(t, KindUnknownBinary.IsPostgres())
	assert.Equal(t, "Kind(200)", Kind(200).String())
}

func TestBoolResultNodes(t *testing.T) {
	for _, k := range []Kind{KindAny, KindAll, KindILike, KindRegexMatch} {
		assert.Same(t, hosttype.Bool, sample(k).Type(), k.String())
	}
}

func TestUpdate_UnchangedChildrenReturnReceiver(t *testing.T) {
	a := sample(KindAny).(*Any)
	assert.Same(t, a, a.Update(a.Item, a.Array))

	b := sample(KindBinary).(*Binary)
	assert.Same(t, b, b.Update(b.Left, b.Right))

	f := sample(KindFunction).(*Function)
	assert.Same(t, f, f.Update([]Expression{f.Args[0]}))

	c := sample(KindCase).(*Case)
	assert.Same(t, c, c.Update(nil, []CaseWhen{{Test: c.Whens[0].Test, Result: c.Whens[0].Result}}, nil))

	n := sample(KindNewArray).(*NewArray)
	assert.Same(t, n, n.Update(append([]Expression(nil), n.Elements...)))

	j := sample(KindJsonTraversal).(*JsonTraversal)
	assert.Same(t, j, j.Update(j.Root, j.Path))

	l := sample(KindILike).(*ILike)
	assert.Same(t, l, l.Update(l.Match, l.Pattern, l.EscapeChar))
}

func TestUpdate_ChangedChildBuildsNewNode(t *testing.T) {
	r := testRegistry(t)
	boolMapping := r.FindMapping(hosttype.Bool)

	item := col("i", hosttype.Int32)
	arr := col("a", hosttype.ArrayOf(hosttype.Int32))
	a := NewAny(item, arr, AnyEqual, boolMapping)

	other := col("k", hosttype.Int32)
	updated := a.Update(other, arr)

	require.NotSame(t, a, updated)
	assert.Same(t, other, updated.Item)
	assert.Same(t, arr, updated.Array)
	assert.Equal(t, AnyEqual, updated.Op)
	assert.Same(t, boolMapping, updated.TypeMapping())
	assert.Same(t, item, a.Item, "receiver unchanged")
}

func TestJsonTraversal_AppendDoesNotAlias(t *testing.T) {
	root := col("j", hosttype.JSONDocument)
	base := NewJsonTraversal(root, make([]Expression, 0, 4), false, hosttype.JSONElement, nil)

	first := base.Append(NewConstant("a", hosttype.String, nil), hosttype.JSONElement, nil)
	second := base.Append(NewConstant("b", hosttype.String, nil), hosttype.String, nil)

	require.Len(t, first.Path, 1)
	require.Len(t, second.Path, 1)
	assert.Equal(t, "a", first.Path[0].(*Constant).Value)
	assert.Equal(t, "b", second.Path[0].(*Constant).Value)
	assert.Same(t, hosttype.String, second.Type())
	assert.Empty(t, base.Path)
}

func TestEqual(t *testing.T) {
	r := testRegistry(t)
	intMapping := r.FindMapping(hosttype.Int32)

	testCases := []struct {
		name string
		a, b Expression
		want bool
	}{
		{"same constant", NewConstant(1, hosttype.Int32, nil), NewConstant(1, hosttype.Int32, nil), true},
		{"different value", NewConstant(1, hosttype.Int32, nil), NewConstant(2, hosttype.Int32, nil), false},
		{"different mapping", NewConstant(1, hosttype.Int32, intMapping), NewConstant(1, hosttype.Int32, nil), false},
		{"different type", NewConstant(nil, hosttype.Int32, nil), NewConstant(nil, hosttype.Int64, nil), false},
		{"slice values", NewConstant([]any{1, 2}, hosttype.ArrayOf(hosttype.Int32), nil), NewConstant([]any{1, 2}, hosttype.ArrayOf(hosttype.Int32), nil), true},
		{"column nullability", NewColumn("t", "c", hosttype.Int32, true, nil), NewColumn("t", "c", hosttype.Int32, false, nil), false},
		{"any operator", NewAny(col("s", hosttype.String), col("a", hosttype.ArrayOf(hosttype.String)), AnyLike, nil), NewAny(col("s", hosttype.String), col("a", hosttype.ArrayOf(hosttype.String)), AnyILike, nil), false},
		{"nested", sample(KindCase), sample(KindCase), true},
		{"regex options", NewRegexMatch(col("s", hosttype.String), col("s", hosttype.String), RegexNone, nil), sample(KindRegexMatch), false},
		{"nil", nil, sample(KindColumn), false},
		{"both nil", nil, nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Equal(tc.a, tc.b))
		})
	}
}

func TestChildren_OmitsAbsentOptionals(t *testing.T) {
	s := col("s", hosttype.String)
	like := NewLike(s, s, nil, hosttype.Bool, nil)
	assert.Len(t, Children(like), 2)

	esc := NewConstant(`\`, hosttype.String, nil)
	assert.Len(t, Children(like.Update(s, s, esc)), 3)

	assert.Empty(t, Children(sample(KindParameter)))
}

func TestWalk(t *testing.T) {
	var kinds []Kind
	Walk(sample(KindCase), func(e Expression) bool {
		kinds = append(kinds, e.Kind())
		return true
	})
	assert.Equal(t, []Kind{KindCase, KindColumn, KindColumn}, kinds)

	var visited int
	Walk(sample(KindCase), func(Expression) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)
}

func TestWithTypeMapping_SameMappingReturnsReceiver(t *testing.T) {
	r := testRegistry(t)
	m := r.FindMapping(hosttype.Int32)
	c := NewConstant(1, hosttype.Int32, m)
	assert.Same(t, c, WithTypeMapping(c, m))
}

func TestFormat(t *testing.T) {
	r := testRegistry(t)
	e := NewAny(
		NewColumn("t", "i", hosttype.Int32, true, r.FindMapping(hosttype.Int32)),
		NewParameter("ids", hosttype.ArrayOf(hosttype.Int32), nil),
		AnyEqual,
		r.FindMapping(hosttype.Bool),
	)
	assert.Equal(t, "(Any Equal :boolean (Column t.i nullable :integer) (Parameter @ids))", Format(e))
}
