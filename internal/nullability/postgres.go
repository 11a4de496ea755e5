package nullability

import (
	"go.uber.org/zap"

	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
)

// visitAny compensates = ANY(array) for null items and null elements.
//
// In SQL, item = ANY(array) is NULL when the item is NULL, or when no
// element matched and some element is NULL. With host semantics a NULL
// item matches a NULL element, and a non-match is false:
//
//	(item = ANY(array)) AND ((item = ANY(array)) IS NOT NULL)
//	    OR (item IS NULL AND array_position(array, NULL) IS NOT NULL)
//
// The first conjunct is dropped when NULL may read as false, and the
// second disjunct is only added for a nullable item.
func (p *Processor) visitAny(a *sqlexpr.Any, allowOptimized bool) (sqlexpr.Expression, bool, error) {
	item, itemNullable, err := p.visit(a.Item, false)
	if err != nil {
		return nil, false, err
	}
	array, arrayNullable, err := p.visit(a.Array, false)
	if err != nil {
		return nil, false, err
	}
	updated := a.Update(item, array)

	if p.useRelationalNulls {
		return updated, false, nil
	}
	if a.Op != sqlexpr.AnyEqual {
		return updated, itemNullable || arrayNullable || mayContainNulls(array), nil
	}

	b := newBuilder(p.factory)
	var result sqlexpr.Expression = updated
	if !allowOptimized {
		result = b.and(updated, b.isNotNull(updated))
	}
	if itemNullable {
		result = b.or(result, b.and(b.isNull(item), b.isNotNull(b.arrayPosition(array, item))))
	}
	if b.err != nil {
		return nil, false, b.err
	}
	if result != sqlexpr.Expression(updated) {
		p.logger.Debug("compensated ANY equality for nulls",
			zap.Bool("optimized", allowOptimized),
			zap.Bool("nullableItem", itemNullable))
	}
	return result, false, nil
}

func (p *Processor) visitAll(a *sqlexpr.All) (sqlexpr.Expression, bool, error) {
	item, itemNullable, err := p.visit(a.Item, false)
	if err != nil {
		return nil, false, err
	}
	array, arrayNullable, err := p.visit(a.Array, false)
	if err != nil {
		return nil, false, err
	}
	updated := a.Update(item, array)
	if p.useRelationalNulls {
		return updated, false, nil
	}
	return updated, itemNullable || arrayNullable || mayContainNulls(array), nil
}

func (p *Processor) visitArrayIndex(a *sqlexpr.ArrayIndex, allowOptimized bool) (sqlexpr.Expression, bool, error) {
	arrayMapping := a.Array.TypeMapping()
	if !arrayMapping.IsArray() {
		return nil, false, qerrors.NewInvalidShapeError("array index over non-array mapping %s", arrayMapping)
	}

	array, arrayNullable, err := p.visit(a.Array, allowOptimized)
	if err != nil {
		return nil, false, err
	}
	index, indexNullable, err := p.visit(a.Index, allowOptimized)
	if err != nil {
		return nil, false, err
	}
	nullable := arrayNullable || indexNullable || arrayMapping.IsElementNullable()
	return a.Update(array, index), nullable, nil
}

func (p *Processor) visitPgBinary(b *sqlexpr.PgBinary, allowOptimized bool) (sqlexpr.Expression, bool, error) {
	left, ln, err := p.visit(b.Left, allowOptimized)
	if err != nil {
		return nil, false, err
	}
	right, rn, err := p.visit(b.Right, allowOptimized)
	if err != nil {
		return nil, false, err
	}

	switch b.Op {
	case sqlexpr.PgLTreeFirstAncestor, sqlexpr.PgLTreeFirstDescendent, sqlexpr.PgLTreeFirstMatches:
		return b.Update(left, right), true, nil
	default:
		return b.Update(left, right), ln || rn, nil
	}
}

// visitILike reuses the LIKE rules and maps the result back onto the node.
func (p *Processor) visitILike(l *sqlexpr.ILike) (sqlexpr.Expression, bool, error) {
	like := sqlexpr.NewLike(l.Match, l.Pattern, l.EscapeChar, l.Type(), l.TypeMapping())
	visited, nullable, err := p.visitLike(like)
	if err != nil {
		return nil, false, err
	}
	if v, ok := visited.(*sqlexpr.Like); ok {
		return l.Update(v.Match, v.Pattern, v.EscapeChar), nullable, nil
	}
	return visited, nullable, nil
}

func (p *Processor) visitNewArray(n *sqlexpr.NewArray, allowOptimized bool) (sqlexpr.Expression, bool, error) {
	elements, _, err := p.visitEach(n.Elements, allowOptimized)
	if err != nil {
		return nil, false, err
	}
	return n.Update(elements), false, nil
}

func (p *Processor) visitRegexMatch(r *sqlexpr.RegexMatch) (sqlexpr.Expression, bool, error) {
	match, mn, err := p.visit(r.Match, false)
	if err != nil {
		return nil, false, err
	}
	pattern, pn, err := p.visit(r.Pattern, false)
	if err != nil {
		return nil, false, err
	}
	return r.Update(match, pattern), mn || pn, nil
}

// visitJsonTraversal reports every traversal as nullable: a missing key
// yields NULL whatever the operands are.
func (p *Processor) visitJsonTraversal(j *sqlexpr.JsonTraversal, allowOptimized bool) (sqlexpr.Expression, bool, error) {
	root, _, err := p.visit(j.Root, false)
	if err != nil {
		return nil, false, err
	}
	path, _, err := p.visitEach(j.Path, allowOptimized)
	if err != nil {
		return nil, false, err
	}
	return j.Update(root, path), true, nil
}

func (p *Processor) visitUnknownBinary(u *sqlexpr.UnknownBinary, allowOptimized bool) (sqlexpr.Expression, bool, error) {
	left, ln, err := p.visit(u.Left, allowOptimized)
	if err != nil {
		return nil, false, err
	}
	right, rn, err := p.visit(u.Right, allowOptimized)
	if err != nil {
		return nil, false, err
	}
	return u.Update(left, right), ln || rn, nil
}
