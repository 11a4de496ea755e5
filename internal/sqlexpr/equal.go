package sqlexpr

import (
	"fmt"
	"reflect"

	"github.com/roach88/pgxlate/internal/typemap"
)

// Equal reports whether a and b are structurally equal: same kind, host
// type, type mapping, operator, payload and (recursively) children.
func Equal(a, b Expression) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind() != b.Kind() || a.Type() != b.Type() || !a.TypeMapping().Equal(b.TypeMapping()) {
		return false
	}

	switch x := a.(type) {
	case *Column:
		y := b.(*Column)
		return x.Table == y.Table && x.Name == y.Name && x.Nullable == y.Nullable
	case *Constant:
		return reflect.DeepEqual(x.Value, b.(*Constant).Value)
	case *Parameter:
		return x.Name == b.(*Parameter).Name
	case *Unary:
		y := b.(*Unary)
		return x.Op == y.Op && Equal(x.Operand, y.Operand)
	case *Binary:
		y := b.(*Binary)
		return x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Like:
		y := b.(*Like)
		return Equal(x.Match, y.Match) && Equal(x.Pattern, y.Pattern) && Equal(x.EscapeChar, y.EscapeChar)
	case *Function:
		y := b.(*Function)
		return x.Schema == y.Schema && x.Name == y.Name && x.Niladic == y.Niladic &&
			x.Nullable == y.Nullable && reflect.DeepEqual(x.PropagatesNull, y.PropagatesNull) &&
			equalAll(x.Args, y.Args)
	case *Case:
		y := b.(*Case)
		if !Equal(x.Operand, y.Operand) || !Equal(x.Else, y.Else) || len(x.Whens) != len(y.Whens) {
			return false
		}
		for i := range x.Whens {
			if !Equal(x.Whens[i].Test, y.Whens[i].Test) || !Equal(x.Whens[i].Result, y.Whens[i].Result) {
				return false
			}
		}
		return true
	case *Any:
		y := b.(*Any)
		return x.Op == y.Op && Equal(x.Item, y.Item) && Equal(x.Array, y.Array)
	case *All:
		y := b.(*All)
		return x.Op == y.Op && Equal(x.Item, y.Item) && Equal(x.Array, y.Array)
	case *ArrayIndex:
		y := b.(*ArrayIndex)
		return Equal(x.Array, y.Array) && Equal(x.Index, y.Index)
	case *PgBinary:
		y := b.(*PgBinary)
		return x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *ILike:
		y := b.(*ILike)
		return Equal(x.Match, y.Match) && Equal(x.Pattern, y.Pattern) && Equal(x.EscapeChar, y.EscapeChar)
	case *NewArray:
		return equalAll(x.Elements, b.(*NewArray).Elements)
	case *RegexMatch:
		y := b.(*RegexMatch)
		return x.Options == y.Options && Equal(x.Match, y.Match) && Equal(x.Pattern, y.Pattern)
	case *JsonTraversal:
		y := b.(*JsonTraversal)
		return x.ReturnsText == y.ReturnsText && Equal(x.Root, y.Root) && equalAll(x.Path, y.Path)
	case *UnknownBinary:
		y := b.(*UnknownBinary)
		return x.Operator == y.Operator && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	default:
		panic(fmt.Sprintf("sqlexpr: unhandled expression %T", a))
	}
}

func equalAll(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Children returns the direct child expressions of e in rendering order.
// Optional children that are absent are omitted.
func Children(e Expression) []Expression {
	var out []Expression
	add := func(es ...Expression) {
		for _, c := range es {
			if c != nil {
				out = append(out, c)
			}
		}
	}

	switch x := e.(type) {
	case *Column, *Constant, *Parameter:
	case *Unary:
		add(x.Operand)
	case *Binary:
		add(x.Left, x.Right)
	case *Like:
		add(x.Match, x.Pattern, x.EscapeChar)
	case *Function:
		add(x.Args...)
	case *Case:
		add(x.Operand)
		for _, w := range x.Whens {
			add(w.Test, w.Result)
		}
		add(x.Else)
	case *Any:
		add(x.Item, x.Array)
	case *All:
		add(x.Item, x.Array)
	case *ArrayIndex:
		add(x.Array, x.Index)
	case *PgBinary:
		add(x.Left, x.Right)
	case *ILike:
		add(x.Match, x.Pattern, x.EscapeChar)
	case *NewArray:
		add(x.Elements...)
	case *RegexMatch:
		add(x.Match, x.Pattern)
	case *JsonTraversal:
		add(x.Root)
		add(x.Path...)
	case *UnknownBinary:
		add(x.Left, x.Right)
	default:
		panic(fmt.Sprintf("sqlexpr: unhandled expression %T", e))
	}
	return out
}

// Walk calls fn for e and every descendant in pre-order. Returning false
// from fn skips the node's children.
func Walk(e Expression, fn func(Expression) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// WithTypeMapping returns a shallow copy of e carrying mapping, or e itself
// when the mapping is already the same descriptor.
func WithTypeMapping(e Expression, mapping *typemap.Mapping) Expression {
	if e.TypeMapping() == mapping {
		return e
	}
	t := typed{e.Type(), mapping}

	switch x := e.(type) {
	case *Column:
		c := *x
		c.typed = t
		return &c
	case *Constant:
		c := *x
		c.typed = t
		return &c
	case *Parameter:
		c := *x
		c.typed = t
		return &c
	case *Unary:
		c := *x
		c.typed = t
		return &c
	case *Binary:
		c := *x
		c.typed = t
		return &c
	case *Like:
		c := *x
		c.typed = t
		return &c
	case *Function:
		c := *x
		c.typed = t
		return &c
	case *Case:
		c := *x
		c.typed = t
		return &c
	case *Any:
		c := *x
		c.typed = t
		return &c
	case *All:
		c := *x
		c.typed = t
		return &c
	case *ArrayIndex:
		c := *x
		c.typed = t
		return &c
	case *PgBinary:
		c := *x
		c.typed = t
		return &c
	case *ILike:
		c := *x
		c.typed = t
		return &c
	case *NewArray:
		c := *x
		c.typed = t
		return &c
	case *RegexMatch:
		c := *x
		c.typed = t
		return &c
	case *JsonTraversal:
		c := *x
		c.typed = t
		return &c
	case *UnknownBinary:
		c := *x
		c.typed = t
		return &c
	default:
		panic(fmt.Sprintf("sqlexpr: unhandled expression %T", e))
	}
}
