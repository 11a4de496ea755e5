package nullability

import (
	"github.com/roach88/pgxlate/internal/sqlexpr"
)

func (p *Processor) visitUnary(u *sqlexpr.Unary) (sqlexpr.Expression, bool, error) {
	operand, nullable, err := p.visit(u.Operand, false)
	if err != nil {
		return nil, false, err
	}

	switch u.Op {
	case sqlexpr.OpIsNull, sqlexpr.OpIsNotNull:
		if !nullable {
			return p.boolConstant(u.Op == sqlexpr.OpIsNotNull), false, nil
		}
		return u.Update(operand), false, nil
	default:
		return u.Update(operand), nullable, nil
	}
}

func (p *Processor) visitBinary(b *sqlexpr.Binary, allowOptimized bool) (sqlexpr.Expression, bool, error) {
	switch {
	case b.Op.IsLogical():
		if fixed, nullable, ok, err := p.compensatedForm(b, allowOptimized); err != nil || ok {
			return fixed, nullable, err
		}
		left, ln, err := p.visit(b.Left, allowOptimized)
		if err != nil {
			return nil, false, err
		}
		right, rn, err := p.visit(b.Right, allowOptimized)
		if err != nil {
			return nil, false, err
		}
		return b.Update(left, right), ln || rn, nil

	case b.Op == sqlexpr.OpEqual || b.Op == sqlexpr.OpNotEqual:
		return p.visitEquality(b, allowOptimized)

	default:
		left, ln, err := p.visit(b.Left, false)
		if err != nil {
			return nil, false, err
		}
		right, rn, err := p.visit(b.Right, false)
		if err != nil {
			return nil, false, err
		}
		return b.Update(left, right), ln || rn, nil
	}
}

func isNullConstant(e sqlexpr.Expression) bool {
	c, ok := e.(*sqlexpr.Constant)
	return ok && c.Value == nil
}

// visitEquality gives = and <> host equality semantics: NULL equals NULL
// and a comparison never yields NULL unless the optimized form was allowed.
func (p *Processor) visitEquality(b *sqlexpr.Binary, allowOptimized bool) (sqlexpr.Expression, bool, error) {
	left, ln, err := p.visit(b.Left, false)
	if err != nil {
		return nil, false, err
	}
	right, rn, err := p.visit(b.Right, false)
	if err != nil {
		return nil, false, err
	}
	updated := b.Update(left, right)
	if p.useRelationalNulls {
		return updated, ln || rn, nil
	}

	equal := b.Op == sqlexpr.OpEqual
	lNull, rNull := isNullConstant(left), isNullConstant(right)
	if lNull || rNull {
		if lNull && rNull {
			return p.boolConstant(equal), false, nil
		}
		operand, operandNullable := left, ln
		if lNull {
			operand, operandNullable = right, rn
		}
		if !operandNullable {
			return p.boolConstant(!equal), false, nil
		}
		var check sqlexpr.Expression
		if equal {
			check, err = p.factory.IsNull(operand)
		} else {
			check, err = p.factory.IsNotNull(operand)
		}
		return check, false, err
	}

	if !ln && !rn {
		return updated, false, nil
	}
	return p.expandComparison(updated, ln, rn, allowOptimized)
}

// expandComparison rewrites a comparison with nullable operands.
//
//	a = b   (a nullable)        full:      (a = b) AND (a IS NOT NULL)
//	a = b   (both nullable)     optimized: (a = b) OR (a IS NULL AND b IS NULL)
//	                            full:      ((a = b) AND (a IS NOT NULL AND b IS NOT NULL)) OR (a IS NULL AND b IS NULL)
//	a <> b  (a nullable)                   (a <> b) OR (a IS NULL)
//	a <> b  (both nullable)                ((a <> b) OR (a IS NULL OR b IS NULL)) AND (a IS NOT NULL OR b IS NOT NULL)
//
// The optimized forms may still yield NULL, where NULL reads as false.
func (p *Processor) expandComparison(c *sqlexpr.Binary, ln, rn, allowOptimized bool) (sqlexpr.Expression, bool, error) {
	b := newBuilder(p.factory)
	a, z := c.Left, c.Right

	var out sqlexpr.Expression
	nullable := false
	if c.Op == sqlexpr.OpEqual {
		switch {
		case allowOptimized && ln && rn:
			out, nullable = b.or(c, b.and(b.isNull(a), b.isNull(z))), true
		case allowOptimized:
			out, nullable = c, true
		case ln && rn:
			out = b.or(
				b.and(c, b.and(b.isNotNull(a), b.isNotNull(z))),
				b.and(b.isNull(a), b.isNull(z)))
		case ln:
			out = b.and(c, b.isNotNull(a))
		default:
			out = b.and(c, b.isNotNull(z))
		}
	} else {
		switch {
		case ln && rn:
			out = b.and(
				b.or(c, b.or(b.isNull(a), b.isNull(z))),
				b.or(b.isNotNull(a), b.isNotNull(z)))
		case ln:
			out = b.or(c, b.isNull(a))
		default:
			out = b.or(c, b.isNull(z))
		}
	}
	if b.err != nil {
		return nil, false, b.err
	}
	return out, nullable, nil
}

func isCompensable(e sqlexpr.Expression) bool {
	switch x := e.(type) {
	case *sqlexpr.Binary:
		return x.Op == sqlexpr.OpEqual || x.Op == sqlexpr.OpNotEqual
	case *sqlexpr.Any:
		return x.Op == sqlexpr.AnyEqual
	default:
		return false
	}
}

// compensatedForm recognizes a logical node that is already the null
// compensation of a comparison or ANY equality, produced by an earlier
// pass. A node in full form is kept in any context; a node in optimized
// form is upgraded to the full form when optimization is not allowed.
func (p *Processor) compensatedForm(b *sqlexpr.Binary, allowOptimized bool) (sqlexpr.Expression, bool, bool, error) {
	if p.useRelationalNulls {
		return nil, false, false, nil
	}

	candidates := make([]sqlexpr.Expression, 0, 2)
	if isCompensable(b.Left) {
		candidates = append(candidates, b.Left)
	}
	if inner, ok := b.Left.(*sqlexpr.Binary); ok && inner.Op.IsLogical() && isCompensable(inner.Left) {
		candidates = append(candidates, inner.Left)
	}

	for _, c := range candidates {
		expanded, nullable, err := p.visit(c, allowOptimized)
		if err != nil {
			return nil, false, false, err
		}
		if sqlexpr.Equal(expanded, b) {
			return b, nullable, true, nil
		}

		other, otherNullable, err := p.visit(c, !allowOptimized)
		if err != nil {
			return nil, false, false, err
		}
		if sqlexpr.Equal(other, b) {
			if allowOptimized {
				return b, otherNullable, true, nil
			}
			return expanded, nullable, true, nil
		}
	}
	return nil, false, false, nil
}

func (p *Processor) visitLike(l *sqlexpr.Like) (sqlexpr.Expression, bool, error) {
	match, mn, err := p.visit(l.Match, false)
	if err != nil {
		return nil, false, err
	}
	pattern, pn, err := p.visit(l.Pattern, false)
	if err != nil {
		return nil, false, err
	}
	escape, en, err := p.visit(l.EscapeChar, false)
	if err != nil {
		return nil, false, err
	}
	return l.Update(match, pattern, escape), mn || pn || en, nil
}

func (p *Processor) visitFunction(f *sqlexpr.Function) (sqlexpr.Expression, bool, error) {
	if f.Niladic {
		return f, f.Nullable, nil
	}
	args, argNullable, err := p.visitEach(f.Args, false)
	if err != nil {
		return nil, false, err
	}
	nullable := f.Nullable
	for i, n := range argNullable {
		if n && f.ArgPropagatesNull(i) {
			nullable = true
		}
	}
	return f.Update(args), nullable, nil
}

func (p *Processor) visitCase(c *sqlexpr.Case) (sqlexpr.Expression, bool, error) {
	operand, _, err := p.visit(c.Operand, false)
	if err != nil {
		return nil, false, err
	}

	// A searched CASE skips arms whose test is NULL, so tests read NULL as false.
	searched := c.Operand == nil
	whens := make([]sqlexpr.CaseWhen, len(c.Whens))
	nullable := false
	for i, w := range c.Whens {
		test, _, err := p.visit(w.Test, searched)
		if err != nil {
			return nil, false, err
		}
		result, rn, err := p.visit(w.Result, false)
		if err != nil {
			return nil, false, err
		}
		whens[i] = sqlexpr.CaseWhen{Test: test, Result: result}
		nullable = nullable || rn
	}

	elseResult, en, err := p.visit(c.Else, false)
	if err != nil {
		return nil, false, err
	}
	nullable = nullable || en || c.Else == nil
	return c.Update(operand, whens, elseResult), nullable, nil
}
