package exprdoc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/sqlfactory"
	"github.com/roach88/pgxlate/internal/typemap"
)

type opFunc func(b *Builder, n Node, args []sqlexpr.Expression, at string) (sqlexpr.Expression, error)

type opSpec struct {
	minArgs, maxArgs int
	build            opFunc
}

type (
	binaryMethod[E sqlexpr.Expression]     func(*sqlfactory.Factory, sqlexpr.Expression, sqlexpr.Expression) (E, error)
	arithmeticMethod[E sqlexpr.Expression] func(*sqlfactory.Factory, sqlexpr.Expression, sqlexpr.Expression, *typemap.Mapping) (E, error)
	unaryMethod[E sqlexpr.Expression]      func(*sqlfactory.Factory, sqlexpr.Expression) (E, error)
)

func binary[E sqlexpr.Expression](fn binaryMethod[E]) opSpec {
	return opSpec{2, 2, func(b *Builder, _ Node, args []sqlexpr.Expression, _ string) (sqlexpr.Expression, error) {
		return wrap(fn(b.f, args[0], args[1]))
	}}
}

func arithmetic[E sqlexpr.Expression](fn arithmeticMethod[E]) opSpec {
	return opSpec{2, 2, func(b *Builder, _ Node, args []sqlexpr.Expression, _ string) (sqlexpr.Expression, error) {
		return wrap(fn(b.f, args[0], args[1], nil))
	}}
}

// logical folds two or more operands left to right.
func logical[E sqlexpr.Expression](fn binaryMethod[E]) opSpec {
	return opSpec{2, -1, func(b *Builder, _ Node, args []sqlexpr.Expression, _ string) (sqlexpr.Expression, error) {
		acc := args[0]
		for _, next := range args[1:] {
			var err error
			if acc, err = wrap(fn(b.f, acc, next)); err != nil {
				return nil, err
			}
		}
		return acc, nil
	}}
}

func unary[E sqlexpr.Expression](fn unaryMethod[E]) opSpec {
	return opSpec{1, 1, func(b *Builder, _ Node, args []sqlexpr.Expression, _ string) (sqlexpr.Expression, error) {
		return wrap(fn(b.f, args[0]))
	}}
}

// wrap keeps a nil node pointer from escaping as a non-nil Expression.
func wrap[E sqlexpr.Expression](e E, err error) (sqlexpr.Expression, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

var ops = map[string]opSpec{
	"equal":              binary((*sqlfactory.Factory).Equal),
	"notEqual":           binary((*sqlfactory.Factory).NotEqual),
	"lessThan":           binary((*sqlfactory.Factory).LessThan),
	"lessThanOrEqual":    binary((*sqlfactory.Factory).LessThanOrEqual),
	"greaterThan":        binary((*sqlfactory.Factory).GreaterThan),
	"greaterThanOrEqual": binary((*sqlfactory.Factory).GreaterThanOrEqual),
	"contains":           binary((*sqlfactory.Factory).Contains),
	"containedBy":        binary((*sqlfactory.Factory).ContainedBy),
	"overlaps":           binary((*sqlfactory.Factory).Overlaps),

	"add":      arithmetic((*sqlfactory.Factory).Add),
	"subtract": arithmetic((*sqlfactory.Factory).Subtract),
	"multiply": arithmetic((*sqlfactory.Factory).Multiply),
	"divide":   arithmetic((*sqlfactory.Factory).Divide),
	"modulo":   arithmetic((*sqlfactory.Factory).Modulo),

	"and": logical((*sqlfactory.Factory).AndAlso),
	"or":  logical((*sqlfactory.Factory).OrElse),

	"not":       unary((*sqlfactory.Factory).Not),
	"negate":    unary((*sqlfactory.Factory).Negate),
	"isNull":    unary((*sqlfactory.Factory).IsNull),
	"isNotNull": unary((*sqlfactory.Factory).IsNotNull),
	"atUtc":     unary((*sqlfactory.Factory).AtUtc),

	"convert": {1, 1, func(b *Builder, n Node, args []sqlexpr.Expression, at string) (sqlexpr.Expression, error) {
		typ, err := parseType(n.Type, at)
		if err != nil {
			return nil, err
		}
		return wrap(b.f.Convert(args[0], typ, nil))
	}},
	"like": {2, 3, func(b *Builder, _ Node, args []sqlexpr.Expression, _ string) (sqlexpr.Expression, error) {
		return wrap(b.f.Like(args[0], args[1], optional(args, 2)))
	}},
	"ilike": {2, 3, func(b *Builder, _ Node, args []sqlexpr.Expression, _ string) (sqlexpr.Expression, error) {
		return wrap(b.f.ILike(args[0], args[1], optional(args, 2)))
	}},
	"regex": {2, 2, func(b *Builder, n Node, args []sqlexpr.Expression, at string) (sqlexpr.Expression, error) {
		opts, err := sqlexpr.ParseRegexOptions(n.Options)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", at, err)
		}
		return wrap(b.f.RegexMatch(args[0], args[1], opts))
	}},
	"any": {2, 2, func(b *Builder, n Node, args []sqlexpr.Expression, at string) (sqlexpr.Expression, error) {
		var op sqlexpr.AnyOperator
		switch strings.ToLower(n.Operator) {
		case "", "equal":
			op = sqlexpr.AnyEqual
		case "like":
			op = sqlexpr.AnyLike
		case "ilike":
			op = sqlexpr.AnyILike
		default:
			return nil, fmt.Errorf("%s: unknown any operator %q", at, n.Operator)
		}
		return wrap(b.f.Any(args[0], args[1], op))
	}},
	"all": {2, 2, func(b *Builder, n Node, args []sqlexpr.Expression, at string) (sqlexpr.Expression, error) {
		var op sqlexpr.AllOperator
		switch strings.ToLower(n.Operator) {
		case "", "like":
			op = sqlexpr.AllLike
		case "ilike":
			op = sqlexpr.AllILike
		default:
			return nil, fmt.Errorf("%s: unknown all operator %q", at, n.Operator)
		}
		return wrap(b.f.All(args[0], args[1], op))
	}},
	// index takes a zero-based host index.
	"index": {2, 2, func(b *Builder, _ Node, args []sqlexpr.Expression, _ string) (sqlexpr.Expression, error) {
		idx, err := b.f.GenerateOneBasedIndexExpression(args[1])
		if err != nil {
			return nil, err
		}
		return wrap(b.f.ArrayIndex(args[0], idx, nil))
	}},
	"atTimeZone": {2, 2, func(b *Builder, n Node, args []sqlexpr.Expression, at string) (sqlexpr.Expression, error) {
		typ := args[0].Type()
		if n.Type != "" {
			var err error
			if typ, err = parseType(n.Type, at); err != nil {
				return nil, err
			}
		}
		return wrap(b.f.AtTimeZone(args[0], args[1], typ, nil))
	}},
	"array": {0, -1, func(b *Builder, n Node, args []sqlexpr.Expression, at string) (sqlexpr.Expression, error) {
		typ, err := parseType(n.Type, at)
		if err != nil {
			return nil, err
		}
		return b.f.NewArrayOrConstant(args, typ, nil)
	}},
	"pg": {2, 2, func(b *Builder, n Node, args []sqlexpr.Expression, at string) (sqlexpr.Expression, error) {
		op, err := sqlexpr.ParsePgOperator(n.Operator)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", at, err)
		}
		return wrap(b.f.MakePostgresBinary(op, args[0], args[1], nil))
	}},
	"unknownBinary": {2, 2, func(b *Builder, n Node, args []sqlexpr.Expression, at string) (sqlexpr.Expression, error) {
		if n.Operator == "" {
			return nil, fmt.Errorf("%s: unknownBinary needs an operator", at)
		}
		typ, err := parseType(n.Type, at)
		if err != nil {
			return nil, err
		}
		return wrap(b.f.UnknownBinary(args[0], args[1], n.Operator, typ, nil))
	}},
}

func optional(args []sqlexpr.Expression, i int) sqlexpr.Expression {
	if i < len(args) {
		return args[i]
	}
	return nil
}

// Ops returns the operation names documents may use, sorted.
func Ops() []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Builder) op(n Node, at string) (sqlexpr.Expression, error) {
	spec, ok := ops[n.Op]
	if !ok {
		return nil, fmt.Errorf("%s: unknown op %q", at, n.Op)
	}
	if len(n.Args) < spec.minArgs || spec.maxArgs >= 0 && len(n.Args) > spec.maxArgs {
		return nil, fmt.Errorf("%s: op %s takes %s arguments, got %d", at, n.Op, arity(spec), len(n.Args))
	}
	args, err := b.nodes(n.Args, at+".args")
	if err != nil {
		return nil, err
	}
	e, err := spec.build(b, n, args, at)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func arity(s opSpec) string {
	switch {
	case s.maxArgs < 0:
		return fmt.Sprintf("at least %d", s.minArgs)
	case s.minArgs == s.maxArgs:
		return fmt.Sprint(s.minArgs)
	default:
		return fmt.Sprintf("%d to %d", s.minArgs, s.maxArgs)
	}
}
