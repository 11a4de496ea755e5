package sqlexpr

import (
	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/typemap"
)

// Any is "item op ANY(array)". The result type is always bool.
type Any struct {
	typed
	Item  Expression
	Array Expression
	Op    AnyOperator
}

func NewAny(item, array Expression, op AnyOperator, mapping *typemap.Mapping) *Any {
	return &Any{typed: typed{hosttype.Bool, mapping}, Item: item, Array: array, Op: op}
}

func (*Any) Kind() Kind     { return KindAny }
func (*Any) sqlExpression() {}

func (a *Any) Update(item, array Expression) *Any {
	if item == a.Item && array == a.Array {
		return a
	}
	return &Any{typed: a.typed, Item: item, Array: array, Op: a.Op}
}

// All is "item op ALL(array)". The result type is always bool.
type All struct {
	typed
	Item  Expression
	Array Expression
	Op    AllOperator
}

func NewAll(item, array Expression, op AllOperator, mapping *typemap.Mapping) *All {
	return &All{typed: typed{hosttype.Bool, mapping}, Item: item, Array: array, Op: op}
}

func (*All) Kind() Kind     { return KindAll }
func (*All) sqlExpression() {}

func (a *All) Update(item, array Expression) *All {
	if item == a.Item && array == a.Array {
		return a
	}
	return &All{typed: a.typed, Item: item, Array: array, Op: a.Op}
}

// ArrayIndex is "array[index]". The index is one-based on the SQL side.
type ArrayIndex struct {
	typed
	Array Expression
	Index Expression
}

func NewArrayIndex(array, index Expression, typ *hosttype.Type, mapping *typemap.Mapping) *ArrayIndex {
	return &ArrayIndex{typed: typed{typ, mapping}, Array: array, Index: index}
}

func (*ArrayIndex) Kind() Kind     { return KindArrayIndex }
func (*ArrayIndex) sqlExpression() {}

func (a *ArrayIndex) Update(array, index Expression) *ArrayIndex {
	if array == a.Array && index == a.Index {
		return a
	}
	return &ArrayIndex{typed: a.typed, Array: array, Index: index}
}

// PgBinary is a binary operator that exists only in PostgreSQL.
type PgBinary struct {
	typed
	Op    PgOperator
	Left  Expression
	Right Expression
}

func NewPgBinary(op PgOperator, left, right Expression, typ *hosttype.Type, mapping *typemap.Mapping) *PgBinary {
	return &PgBinary{typed: typed{typ, mapping}, Op: op, Left: left, Right: right}
}

func (*PgBinary) Kind() Kind     { return KindPgBinary }
func (*PgBinary) sqlExpression() {}

func (p *PgBinary) Update(left, right Expression) *PgBinary {
	if left == p.Left && right == p.Right {
		return p
	}
	return &PgBinary{typed: p.typed, Op: p.Op, Left: left, Right: right}
}

// ILike is a case-insensitive LIKE match. EscapeChar may be nil.
type ILike struct {
	typed
	Match      Expression
	Pattern    Expression
	EscapeChar Expression
}

func NewILike(match, pattern, escapeChar Expression, mapping *typemap.Mapping) *ILike {
	return &ILike{typed: typed{hosttype.Bool, mapping}, Match: match, Pattern: pattern, EscapeChar: escapeChar}
}

func (*ILike) Kind() Kind     { return KindILike }
func (*ILike) sqlExpression() {}

func (l *ILike) Update(match, pattern, escapeChar Expression) *ILike {
	if match == l.Match && pattern == l.Pattern && escapeChar == l.EscapeChar {
		return l
	}
	return &ILike{typed: l.typed, Match: match, Pattern: pattern, EscapeChar: escapeChar}
}

// NewArray is an ARRAY[...] constructor.
type NewArray struct {
	typed
	Elements []Expression
}

func NewNewArray(elements []Expression, typ *hosttype.Type, mapping *typemap.Mapping) *NewArray {
	return &NewArray{typed: typed{typ, mapping}, Elements: elements}
}

func (*NewArray) Kind() Kind     { return KindNewArray }
func (*NewArray) sqlExpression() {}

func (n *NewArray) Update(elements []Expression) *NewArray {
	if sameExpressions(elements, n.Elements) {
		return n
	}
	return &NewArray{typed: n.typed, Elements: elements}
}

// RegexMatch is a POSIX regular expression match (~ or ~*).
type RegexMatch struct {
	typed
	Match   Expression
	Pattern Expression
	Options RegexOptions
}

func NewRegexMatch(match, pattern Expression, options RegexOptions, mapping *typemap.Mapping) *RegexMatch {
	return &RegexMatch{typed: typed{hosttype.Bool, mapping}, Match: match, Pattern: pattern, Options: options}
}

func (*RegexMatch) Kind() Kind     { return KindRegexMatch }
func (*RegexMatch) sqlExpression() {}

func (r *RegexMatch) Update(match, pattern Expression) *RegexMatch {
	if match == r.Match && pattern == r.Pattern {
		return r
	}
	return &RegexMatch{typed: r.typed, Match: match, Pattern: pattern, Options: r.Options}
}

// JsonTraversal walks Path from Root with #> (or #>> when ReturnsText).
type JsonTraversal struct {
	typed
	Root        Expression
	Path        []Expression
	ReturnsText bool
}

func NewJsonTraversal(root Expression, path []Expression, returnsText bool, typ *hosttype.Type, mapping *typemap.Mapping) *JsonTraversal {
	return &JsonTraversal{typed: typed{typ, mapping}, Root: root, Path: path, ReturnsText: returnsText}
}

func (*JsonTraversal) Kind() Kind     { return KindJsonTraversal }
func (*JsonTraversal) sqlExpression() {}

func (j *JsonTraversal) Update(root Expression, path []Expression) *JsonTraversal {
	if root == j.Root && sameExpressions(path, j.Path) {
		return j
	}
	return &JsonTraversal{typed: j.typed, Root: root, Path: path, ReturnsText: j.ReturnsText}
}

// Append returns a traversal one component deeper with the given result type.
func (j *JsonTraversal) Append(component Expression, typ *hosttype.Type, mapping *typemap.Mapping) *JsonTraversal {
	path := make([]Expression, len(j.Path), len(j.Path)+1)
	copy(path, j.Path)
	return &JsonTraversal{
		typed:       typed{typ, mapping},
		Root:        j.Root,
		Path:        append(path, component),
		ReturnsText: j.ReturnsText,
	}
}

// UnknownBinary is an operator the translator passes through verbatim.
type UnknownBinary struct {
	typed
	Operator string
	Left     Expression
	Right    Expression
}

func NewUnknownBinary(left, right Expression, operator string, typ *hosttype.Type, mapping *typemap.Mapping) *UnknownBinary {
	return &UnknownBinary{typed: typed{typ, mapping}, Operator: operator, Left: left, Right: right}
}

func (*UnknownBinary) Kind() Kind     { return KindUnknownBinary }
func (*UnknownBinary) sqlExpression() {}

func (u *UnknownBinary) Update(left, right Expression) *UnknownBinary {
	if left == u.Left && right == u.Right {
		return u
	}
	return &UnknownBinary{typed: u.typed, Operator: u.Operator, Left: left, Right: right}
}
