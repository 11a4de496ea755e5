package typemap

import (
	"fmt"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/qerrors"
)

// NewArrayMapping builds an array mapping over element for the given array or
// list host type. The store type is the element's store type plus "[]".
//
// When the element mapping has a converter, the array mapping gets a
// synthesized converter applying it element-wise. Element nullability
// follows the host element type: value types are nullable only when wrapped,
// reference types are nullable.
func NewArrayMapping(arrayType *hosttype.Type, element *Mapping) (*Mapping, error) {
	clrElem, ok := hosttype.ElementType(arrayType)
	if !ok {
		return nil, qerrors.NewInvalidShapeError("array mapping requires an array or list type, got %s", arrayType)
	}
	if element.kind == KindArray {
		return nil, qerrors.NewInvalidShapeError("nested array mappings are not supported (%s)", arrayType)
	}
	if hosttype.Unwrap(clrElem) != hosttype.Unwrap(element.clrType) && clrElem != hosttype.Object {
		return nil, qerrors.NewElementTypeMismatchError(hosttype.Unwrap(clrElem).String(), hosttype.Unwrap(element.clrType).String())
	}

	m := &Mapping{
		storeType:       element.storeType + "[]",
		base:            element.storeType + "[]",
		canonicalBase:   element.canonicalBase + "[]",
		facets:          noFacets,
		clrType:         arrayType,
		kind:            KindArray,
		family:          element.family,
		comparer:        newArrayComparer(element.comparer),
		element:         element,
		elementNullable: hosttype.IsNullable(clrElem),
	}
	if element.converter != nil {
		m.converter = newArrayConverter(arrayType,
			hosttype.WithElement(arrayType, element.converter.ProviderType), element.converter)
	}
	return m, nil
}

// FlipArrayListClrType returns the same array mapping re-targeted at the
// other container shape (array <-> list). The element mapping is shared, not
// copied. The element type of target must match the mapping's element type.
func (m *Mapping) FlipArrayListClrType(target *hosttype.Type) (*Mapping, error) {
	if m.kind != KindArray {
		return nil, qerrors.NewInvalidShapeError("cannot flip non-array mapping %s", m.storeType)
	}
	targetElem, ok := hosttype.ElementType(target)
	if !ok {
		return nil, qerrors.NewInvalidShapeError("cannot flip array mapping to non-array type %s", target)
	}
	currentElem, _ := hosttype.ElementType(m.clrType)
	if targetElem != currentElem {
		return nil, qerrors.NewElementTypeMismatchError(currentElem.String(), targetElem.String())
	}
	if target == m.clrType {
		return m, nil
	}

	c := m.clone()
	c.clrType = target
	if m.converter != nil {
		c.converter = newArrayConverter(target,
			hosttype.WithElement(target, m.element.converter.ProviderType), m.element.converter)
	}
	return c, nil
}

// MakeNonNullable returns a copy of an array mapping whose elements are
// declared non-nullable.
func (m *Mapping) MakeNonNullable() *Mapping {
	if m.kind != KindArray || !m.elementNullable {
		return m
	}
	c := m.clone()
	c.elementNullable = false
	return c
}

// arrayOfStoreType builds the default array mapping for an element when
// only store types are known.
func arrayOfStoreType(element *Mapping) *Mapping {
	m, err := NewArrayMapping(hosttype.ArrayOf(element.clrType), element)
	if err != nil {
		panic(fmt.Sprintf("typemap: default array over %s: %v", element.storeType, err))
	}
	return m
}
