package nullability

import (
	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/sqlfactory"
)

// builder chains factory calls for rewrites, keeping the first error.
type builder struct {
	f   *sqlfactory.Factory
	err error
}

func newBuilder(f *sqlfactory.Factory) *builder { return &builder{f: f} }

func (b *builder) keep(e sqlexpr.Expression, err error) sqlexpr.Expression {
	if err != nil && b.err == nil {
		b.err = err
	}
	return e
}

func (b *builder) and(l, r sqlexpr.Expression) sqlexpr.Expression {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.AndAlso(l, r))
}

func (b *builder) or(l, r sqlexpr.Expression) sqlexpr.Expression {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.OrElse(l, r))
}

func (b *builder) isNull(e sqlexpr.Expression) sqlexpr.Expression {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.IsNull(e))
}

func (b *builder) isNotNull(e sqlexpr.Expression) sqlexpr.Expression {
	if b.err != nil {
		return nil
	}
	return b.keep(b.f.IsNotNull(e))
}

// arrayPosition builds array_position(array, NULL), which is not NULL
// exactly when the array holds a NULL element.
func (b *builder) arrayPosition(array, item sqlexpr.Expression) sqlexpr.Expression {
	if b.err != nil {
		return nil
	}
	null := b.f.Constant(nil, item.Type(), item.TypeMapping())
	return b.keep(b.f.Function("array_position",
		[]sqlexpr.Expression{array, null},
		true, []bool{false, false}, hosttype.Int32, nil))
}
