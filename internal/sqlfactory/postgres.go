package sqlfactory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/typemap"
)

// applyOnItemAndArray resolves the operands of an item/array pair (ANY,
// ALL, array indexing) from each other.
func (f *Factory) applyOnItemAndArray(item, array sqlexpr.Expression) (sqlexpr.Expression, sqlexpr.Expression, error) {
	arrayMapping := array.TypeMapping()
	if arrayMapping != nil && !arrayMapping.IsArray() {
		return nil, nil, qerrors.NewInvalidShapeError("array operand has non-array mapping %s", arrayMapping.StoreType())
	}

	itemMapping := item.TypeMapping()
	if itemMapping == nil {
		// object[].Contains(x) wraps x in a cast to object.
		if u, ok := item.(*sqlexpr.Unary); ok && u.Op == sqlexpr.OpConvert && u.Type() == hosttype.Object {
			itemMapping = u.Operand.TypeMapping()
		}
	}
	if itemMapping == nil && arrayMapping != nil {
		itemMapping = arrayMapping.ElementMapping()
	}
	if itemMapping == nil {
		itemMapping = f.source.FindMapping(item.Type())
	}
	if itemMapping == nil {
		return nil, nil, qerrors.NewUnresolvedTypeMappingError("array item", item.Type().String())
	}

	if arrayMapping == nil {
		arrayType := hosttype.Unwrap(array.Type())
		switch {
		case itemMapping.Converter() != nil:
			m, err := typemap.NewArrayMapping(arrayType, itemMapping)
			if err != nil {
				return nil, nil, err
			}
			arrayMapping = m
		case arrayType == hosttype.ArrayOf(hosttype.Object) || arrayType == hosttype.ListOf(hosttype.Object):
			arrayMapping = f.source.FindMappingByStoreType(itemMapping.StoreType() + "[]")
		default:
			// Looking up by host type alone would map byte[] to bytea.
			arrayMapping = f.source.FindMappingFor(arrayType, itemMapping.StoreType()+"[]")
		}
		if arrayMapping == nil {
			return nil, nil, qerrors.NewUnresolvedTypeMappingError("array", array.Type().String())
		}
	}

	newItem, err := f.ApplyTypeMapping(item, itemMapping)
	if err != nil {
		return nil, nil, err
	}
	newArray, err := f.ApplyTypeMapping(array, arrayMapping)
	if err != nil {
		return nil, nil, err
	}
	return newItem, newArray, nil
}

func (f *Factory) applyOnArrayIndex(a *sqlexpr.ArrayIndex, m *typemap.Mapping) (*sqlexpr.ArrayIndex, error) {
	var array sqlexpr.Expression
	var err error
	if m != nil {
		// A mapping applied from outside is the element's; infer the array from it.
		_, array, err = f.applyOnItemAndArray(sqlexpr.NewConstant(nil, a.Type(), m), a.Array)
	} else {
		array, err = f.ApplyDefaultTypeMapping(a.Array)
	}
	if err != nil {
		return nil, err
	}
	index, err := f.ApplyDefaultTypeMapping(a.Index)
	if err != nil {
		return nil, err
	}

	result := m
	if am := a.Array.TypeMapping(); am.IsArray() {
		result = am.ElementMapping()
	}
	if result == nil {
		result = f.source.FindMapping(a.Type())
	}
	return sqlexpr.NewArrayIndex(array, index, a.Type(), result), nil
}

func (f *Factory) applyOnILike(l *sqlexpr.ILike) (*sqlexpr.ILike, error) {
	inferred := f.inferTypeMapping(l.Match, l.Pattern, l.EscapeChar)
	if inferred == nil {
		inferred = f.source.FindMapping(l.Match.Type())
	}
	match, pattern, escape, err := f.applyMatchPattern(l.Match, l.Pattern, l.EscapeChar, inferred)
	if err != nil {
		return nil, err
	}
	return sqlexpr.NewILike(match, pattern, escape, f.boolMapping), nil
}

func (f *Factory) applyOnRegexMatch(r *sqlexpr.RegexMatch) (*sqlexpr.RegexMatch, error) {
	inferred := f.inferTypeMapping(r.Match, r.Pattern)
	if inferred == nil {
		inferred = f.source.FindMapping(r.Match.Type())
	}
	match, pattern, err := f.applyPair(r.Match, r.Pattern, inferred)
	if err != nil {
		return nil, err
	}
	return sqlexpr.NewRegexMatch(match, pattern, r.Options, f.boolMapping), nil
}

func isContainmentOperator(op sqlexpr.PgOperator) bool {
	switch op {
	case sqlexpr.PgOverlaps, sqlexpr.PgContains, sqlexpr.PgContainedBy,
		sqlexpr.PgRangeIsStrictlyLeftOf, sqlexpr.PgRangeIsStrictlyRightOf,
		sqlexpr.PgRangeDoesNotExtendRightOf, sqlexpr.PgRangeDoesNotExtendLeftOf,
		sqlexpr.PgRangeIsAdjacentTo:
		return true
	default:
		return false
	}
}

// pgResultType is the host type of op applied to an operand of type left.
func pgResultType(op sqlexpr.PgOperator, left *hosttype.Type) *hosttype.Type {
	switch op {
	case sqlexpr.PgContains, sqlexpr.PgContainedBy, sqlexpr.PgOverlaps,
		sqlexpr.PgNetworkContainedByOrEqual, sqlexpr.PgNetworkContainsOrEqual,
		sqlexpr.PgNetworkContainsOrContainedBy,
		sqlexpr.PgRangeIsStrictlyLeftOf, sqlexpr.PgRangeIsStrictlyRightOf,
		sqlexpr.PgRangeDoesNotExtendRightOf, sqlexpr.PgRangeDoesNotExtendLeftOf,
		sqlexpr.PgRangeIsAdjacentTo, sqlexpr.PgTextSearchMatch,
		sqlexpr.PgJsonExists, sqlexpr.PgJsonExistsAny, sqlexpr.PgJsonExistsAll,
		sqlexpr.PgLTreeMatches, sqlexpr.PgLTreeMatchesAny:
		return hosttype.Bool
	case sqlexpr.PgDistanceKnn:
		return hosttype.Float64
	default:
		return left
	}
}

func (f *Factory) applyOnPgBinary(p *sqlexpr.PgBinary, m *typemap.Mapping) (*sqlexpr.PgBinary, error) {
	left, right := p.Left, p.Right
	var resultType *hosttype.Type
	var inferred, result *typemap.Mapping

	switch op := p.Op; {
	case isContainmentOperator(op):
		resultType, result = hosttype.Bool, f.boolMapping
		lt, rt := hosttype.Unwrap(left.Type()), hosttype.Unwrap(right.Type())

		switch {
		case lt == rt:
			inferred = f.inferTypeMapping(left, right)
			if inferred == nil {
				inferred = f.source.FindMapping(lt)
			}

		case hosttype.IsArrayOrList(lt) && hosttype.IsArrayOrList(rt):
			// An array compared with a list: retarget the known side's
			// mapping at the other side's container shape.
			inferred = f.inferTypeMapping(left, right)
			if inferred == nil {
				newLeft, err := f.ApplyDefaultTypeMapping(left)
				if err != nil {
					return nil, err
				}
				newRight, err := f.ApplyDefaultTypeMapping(right)
				if err != nil {
					return nil, err
				}
				return sqlexpr.NewPgBinary(op, newLeft, newRight, resultType, result), nil
			}
			if !inferred.IsArray() {
				return nil, qerrors.NewInvalidShapeError("non-array mapping %s inferred across array types", inferred.StoreType())
			}
			target := rt
			if left.TypeMapping() == nil {
				target = lt
			}
			flipped, err := inferred.FlipArrayListClrType(target)
			if err != nil {
				return nil, err
			}
			inferred = flipped

		default:
			var newLeft, newRight sqlexpr.Expression
			var err error
			if op == sqlexpr.PgContainedBy {
				newRight, newLeft, err = f.inferContainment(right, left)
			} else {
				newLeft, newRight, err = f.inferContainment(left, right)
			}
			if err != nil {
				return nil, err
			}
			return sqlexpr.NewPgBinary(op, newLeft, newRight, resultType, result), nil
		}

	case op == sqlexpr.PgNetworkContainedByOrEqual, op == sqlexpr.PgNetworkContainsOrEqual,
		op == sqlexpr.PgNetworkContainsOrContainedBy, op == sqlexpr.PgTextSearchMatch,
		op == sqlexpr.PgJsonExists, op == sqlexpr.PgJsonExistsAny, op == sqlexpr.PgJsonExistsAll,
		op == sqlexpr.PgLTreeMatches, op == sqlexpr.PgLTreeMatchesAny:
		newLeft, err := f.ApplyDefaultTypeMapping(left)
		if err != nil {
			return nil, err
		}
		newRight, err := f.ApplyDefaultTypeMapping(right)
		if err != nil {
			return nil, err
		}
		return sqlexpr.NewPgBinary(op, newLeft, newRight, hosttype.Bool, f.boolMapping), nil

	case op == sqlexpr.PgLTreeFirstAncestor, op == sqlexpr.PgLTreeFirstDescendent, op == sqlexpr.PgLTreeFirstMatches:
		newLeft, err := f.ApplyDefaultTypeMapping(left)
		if err != nil {
			return nil, err
		}
		newRight, err := f.ApplyDefaultTypeMapping(right)
		if err != nil {
			return nil, err
		}
		result = m
		if result == nil {
			result = f.source.FindMapping(p.Type())
		}
		return sqlexpr.NewPgBinary(op, newLeft, newRight, p.Type(), result), nil

	case op == sqlexpr.PgRangeUnion, op == sqlexpr.PgRangeIntersect, op == sqlexpr.PgRangeExcept,
		op == sqlexpr.PgTextSearchAnd, op == sqlexpr.PgTextSearchOr:
		inferred = m
		if inferred == nil {
			inferred = f.inferTypeMapping(left, right)
		}
		if inferred == nil {
			inferred = f.source.FindMapping(left.Type())
		}
		resultType, result = left.Type(), inferred
		if inferred != nil {
			resultType = inferred.ClrType()
		}

	case op == sqlexpr.PgDistanceKnn:
		inferred = m
		if inferred == nil {
			inferred = f.inferTypeMapping(left, right)
		}
		resultType, result = hosttype.Float64, f.doubleMapping

	default:
		return nil, qerrors.NewInvalidOperatorError(op.String(), "PgBinary")
	}

	newLeft, newRight, err := f.applyPair(left, right, inferred)
	if err != nil {
		return nil, err
	}
	return sqlexpr.NewPgBinary(p.Op, newLeft, newRight, resultType, result), nil
}

// inferContainment resolves a container (range, multirange) and its
// containee (subtype value, range) from each other.
func (f *Factory) inferContainment(container, containee sqlexpr.Expression) (sqlexpr.Expression, sqlexpr.Expression, error) {
	containerMapping := container.TypeMapping()
	containeeMapping := containee.TypeMapping()
	var err error

	if containeeMapping == nil {
		if containerMapping != nil {
			switch containerMapping.Kind() {
			case typemap.KindRange:
				containeeMapping = containerMapping.SubtypeMapping()
			case typemap.KindMultirange:
				if hosttype.Unwrap(containee.Type()).Kind() == hosttype.KindRange {
					containeeMapping = containerMapping.RangeMapping()
				} else {
					containeeMapping = containerMapping.SubtypeMapping()
				}
			}
		}

		if containeeMapping != nil {
			containee, err = f.ApplyTypeMapping(containee, containeeMapping)
		} else {
			containee, err = f.ApplyDefaultTypeMapping(containee)
			if err == nil {
				containeeMapping = containee.TypeMapping()
				if containeeMapping == nil {
					err = qerrors.NewUnresolvedTypeMappingError("containee", containee.Type().String())
				}
			}
		}
		if err != nil {
			return nil, nil, err
		}
	}

	if containerMapping == nil {
		containerMapping = f.source.FindContainerMapping(container.Type(), containeeMapping)
		// The container's subtype is the containee's mapping itself, not a
		// separately looked-up equivalent.
		if containerMapping != nil && containerMapping.Kind() == typemap.KindRange &&
			!containerMapping.SubtypeMapping().Equal(containeeMapping) {
			containerMapping = typemap.NewRangeMapping(containerMapping.StoreType(), containeeMapping)
		}

		if containerMapping != nil {
			container, err = f.ApplyTypeMapping(container, containerMapping)
		} else {
			container, err = f.ApplyDefaultTypeMapping(container)
			if err == nil && container.TypeMapping() == nil {
				err = qerrors.NewUnresolvedTypeMappingError("container", container.Type().String())
			}
		}
		if err != nil {
			return nil, nil, err
		}
	}

	if container, err = f.ApplyTypeMapping(container, containerMapping); err != nil {
		return nil, nil, err
	}
	if containee, err = f.ApplyTypeMapping(containee, containeeMapping); err != nil {
		return nil, nil, err
	}
	return container, containee, nil
}

func (f *Factory) applyOnNewArray(n *sqlexpr.NewArray, m *typemap.Mapping) (*sqlexpr.NewArray, error) {
	if m != nil && !m.IsArray() {
		return nil, qerrors.NewInvalidShapeError("mapping %s applied to an array literal is not an array mapping", m.StoreType())
	}

	var elementMapping *typemap.Mapping
	for _, e := range n.Elements {
		em := e.TypeMapping()
		switch {
		case em == nil:
			continue
		case elementMapping == nil:
			elementMapping = em
		case em.StoreType() != elementMapping.StoreType():
			widened, err := f.widen(elementMapping, em)
			if err != nil {
				return nil, err
			}
			elementMapping = widened
		}
	}

	arrayMapping := m
	if elementMapping == nil {
		// Only parameters and constants: use the mapping from outside, or
		// leave the literal unmapped so rendering fails.
		if arrayMapping == nil {
			return n, nil
		}
		elementMapping = arrayMapping.ElementMapping()
	} else {
		arrayMapping = f.source.FindMappingFor(n.Type(), elementMapping.StoreType()+"[]")
		if arrayMapping == nil {
			f.logger.Debug("array literal element mapping does not fit its host type",
				zap.String("element", elementMapping.StoreType()),
				zap.Stringer("type", n.Type()))
			return n, nil
		}
	}

	elements, err := f.applyAll(n.Elements, elementMapping)
	if err != nil {
		return nil, err
	}
	return sqlexpr.NewNewArray(elements, n.Type(), arrayMapping), nil
}

// widen combines two element mappings of an array literal: facets of the
// same base widen to the maximum, text absorbs the other character types.
// Anything else is a heterogeneous array.
func (f *Factory) widen(current, next *typemap.Mapping) (*typemap.Mapping, error) {
	if current.CanonicalBase() == next.CanonicalBase() {
		base := next.StoreTypeNameBase()
		var storeType string
		cs, csok := current.Size()
		ns, nsok := next.Size()
		cp, cpok := current.Precision()
		np, npok := next.Precision()
		cc, ccok := current.Scale()
		nc, ncok := next.Scale()

		switch {
		case csok && nsok:
			storeType = fmt.Sprintf("%s(%d)", base, max(cs, ns))
		case cpok && npok && ccok && ncok:
			storeType = fmt.Sprintf("%s(%d,%d)", base, max(cp, np), max(cc, nc))
		case cpok && npok:
			storeType = fmt.Sprintf("%s(%d)", base, max(cp, np))
		default:
			return current, nil
		}

		widened := f.source.FindMappingByStoreType(storeType)
		if widened == nil {
			return nil, qerrors.NewUnresolvedTypeMappingError("array literal element", storeType)
		}
		f.logger.Debug("widened array literal element",
			zap.String("from", current.StoreType()),
			zap.String("with", next.StoreType()),
			zap.String("to", widened.StoreType()))
		return widened, nil
	}

	switch {
	case next.CanonicalBase() == "text" && current.IsTextual():
		return next, nil
	case current.CanonicalBase() == "text" && next.IsTextual():
		return current, nil
	default:
		return nil, qerrors.NewHeterogeneousArrayError(current.StoreType(), next.StoreType())
	}
}
