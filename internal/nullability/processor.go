// Package nullability computes whether SQL expressions can evaluate to NULL
// and rewrites them so their three-valued result matches two-valued host
// semantics.
//
// Process walks a tree once and returns the rewritten tree, which shares
// every unchanged subtree with its input, plus the root's nullability.
// Running Process on its own output returns the same tree.
package nullability

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/sqlfactory"
)

// Processor rewrites expressions for null semantics. It holds no per-call
// state and may be shared across goroutines.
type Processor struct {
	factory            *sqlfactory.Factory
	useRelationalNulls bool
	parameterValues    map[string]any
	logger             *zap.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithRelationalNulls disables all null compensation: expressions keep raw
// SQL semantics.
func WithRelationalNulls(enabled bool) Option {
	return func(p *Processor) {
		p.useRelationalNulls = enabled
	}
}

// WithParameterValues supplies the values parameters are bound to, so a
// parameter bound to nil is known to be null and one bound to a value is
// known not to be.
func WithParameterValues(values map[string]any) Option {
	return func(p *Processor) {
		p.parameterValues = values
	}
}

// WithLogger sets the logger rewrites are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Processor building its rewrites with factory.
func New(factory *sqlfactory.Factory, opts ...Option) *Processor {
	p := &Processor{
		factory: factory,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// UseRelationalNulls reports whether compensation is disabled.
func (p *Processor) UseRelationalNulls() bool { return p.useRelationalNulls }

// Process rewrites expr. allowOptimizedExpansion states that the caller
// treats a NULL result like false (a WHERE clause conjunct), which permits
// cheaper rewrites.
func (p *Processor) Process(expr sqlexpr.Expression, allowOptimizedExpansion bool) (sqlexpr.Expression, bool, error) {
	if expr == nil {
		return nil, false, nil
	}
	return p.visit(expr, allowOptimizedExpansion)
}

func (p *Processor) visit(e sqlexpr.Expression, allowOptimized bool) (sqlexpr.Expression, bool, error) {
	if e == nil {
		return nil, false, nil
	}

	switch x := e.(type) {
	case *sqlexpr.Column:
		return x, x.Nullable, nil
	case *sqlexpr.Constant:
		return x, x.Value == nil, nil
	case *sqlexpr.Parameter:
		return x, p.parameterNullable(x), nil
	case *sqlexpr.Unary:
		return p.visitUnary(x)
	case *sqlexpr.Binary:
		return p.visitBinary(x, allowOptimized)
	case *sqlexpr.Like:
		return p.visitLike(x)
	case *sqlexpr.Function:
		return p.visitFunction(x)
	case *sqlexpr.Case:
		return p.visitCase(x)
	case *sqlexpr.Any:
		return p.visitAny(x, allowOptimized)
	case *sqlexpr.All:
		return p.visitAll(x)
	case *sqlexpr.ArrayIndex:
		return p.visitArrayIndex(x, allowOptimized)
	case *sqlexpr.PgBinary:
		return p.visitPgBinary(x, allowOptimized)
	case *sqlexpr.ILike:
		return p.visitILike(x)
	case *sqlexpr.NewArray:
		return p.visitNewArray(x, allowOptimized)
	case *sqlexpr.RegexMatch:
		return p.visitRegexMatch(x)
	case *sqlexpr.JsonTraversal:
		return p.visitJsonTraversal(x, allowOptimized)
	case *sqlexpr.UnknownBinary:
		return p.visitUnknownBinary(x, allowOptimized)
	default:
		return nil, false, qerrors.NewUnsupportedExpressionError(fmt.Sprintf("%T", e))
	}
}

// visitEach visits es in order and reports whether any result is nullable.
// The returned slice is es itself when nothing changed.
func (p *Processor) visitEach(es []sqlexpr.Expression, allowOptimized bool) ([]sqlexpr.Expression, []bool, error) {
	var out []sqlexpr.Expression
	nullable := make([]bool, len(es))
	for i, e := range es {
		v, n, err := p.visit(e, allowOptimized)
		if err != nil {
			return nil, nil, err
		}
		nullable[i] = n
		if v != e && out == nil {
			out = make([]sqlexpr.Expression, len(es))
			copy(out, es[:i])
		}
		if out != nil {
			out[i] = v
		}
	}
	if out == nil {
		return es, nullable, nil
	}
	return out, nullable, nil
}

func (p *Processor) parameterNullable(param *sqlexpr.Parameter) bool {
	v, ok := p.parameterValues[param.Name]
	if !ok {
		return true
	}
	return isNil(v)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// mayContainNulls reports whether an array operand can hold a NULL
// element. Only constant arrays are inspected.
func mayContainNulls(array sqlexpr.Expression) bool {
	c, ok := array.(*sqlexpr.Constant)
	if !ok || c.Value == nil {
		return true
	}
	rv := reflect.ValueOf(c.Value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return true
	}
	for i := 0; i < rv.Len(); i++ {
		if isNil(rv.Index(i).Interface()) {
			return true
		}
	}
	return false
}

func (p *Processor) boolConstant(v bool) *sqlexpr.Constant {
	return p.factory.Constant(v, hosttype.Bool, p.factory.BoolMapping())
}
