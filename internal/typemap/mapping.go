package typemap

import (
	"github.com/roach88/pgxlate/internal/hosttype"
)

// Kind classifies a mapping's store-side shape.
type Kind uint8

const (
	KindScalar Kind = iota
	KindArray
	KindRange
	KindMultirange
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindRange:
		return "range"
	case KindMultirange:
		return "multirange"
	default:
		return "unknown"
	}
}

// Family groups store types that share literal syntax and widening rules.
type Family uint8

const (
	FamilyOther Family = iota
	FamilyBool
	FamilyInteger
	FamilyFloat
	FamilyNumeric
	FamilyText
	FamilyChar
	FamilyBytea
	FamilyUUID
	FamilyTimestamp
	FamilyTimestampTz
	FamilyDate
	FamilyTime
	FamilyTimeTz
	FamilyInterval
	FamilyJSON
	FamilyJSONB
	FamilyHstore
	FamilyNetwork
	FamilyTsVector
	FamilyTsQuery
	FamilyLTree
	FamilyBit
)

// Mapping is a type-mapping descriptor: the contract between a host type and
// a store type. Mappings are immutable; the With* methods return copies.
type Mapping struct {
	storeType     string
	base          string
	canonicalBase string
	facets        facets

	clrType *hosttype.Type
	kind    Kind
	family  Family

	converter *ValueConverter
	comparer  *ValueComparer

	element         *Mapping // arrays
	elementNullable bool

	subtype      *Mapping // ranges and multiranges
	rangeMapping *Mapping // multiranges
}

// newScalar builds a scalar mapping prototype from a store type spelling.
func newScalar(storeType string, clr *hosttype.Type, family Family) *Mapping {
	n, err := parseStoreType(storeType)
	if err != nil {
		panic("typemap: " + err.Error())
	}
	return &Mapping{
		storeType:     n.String(),
		base:          n.base,
		canonicalBase: canonicalBase(n.base),
		facets:        n.facets,
		clrType:       clr,
		kind:          KindScalar,
		family:        family,
		comparer:      defaultComparer,
	}
}

// StoreType returns the full store type name, facets included.
func (m *Mapping) StoreType() string { return m.storeType }

// StoreTypeNameBase returns the store type without facets, as spelled.
func (m *Mapping) StoreTypeNameBase() string { return m.base }

// CanonicalBase returns the alias-resolved base name (e.g. "integer" for "int4").
func (m *Mapping) CanonicalBase() string { return m.canonicalBase }

// Size returns the length facet.
func (m *Mapping) Size() (int, bool) { return m.facets.size, m.facets.size != unset }

// Precision returns the precision facet.
func (m *Mapping) Precision() (int, bool) { return m.facets.precision, m.facets.precision != unset }

// Scale returns the scale facet.
func (m *Mapping) Scale() (int, bool) { return m.facets.scale, m.facets.scale != unset }

// ClrType returns the host type the mapping reads and writes.
func (m *Mapping) ClrType() *hosttype.Type { return m.clrType }

// Kind returns the store-side shape.
func (m *Mapping) Kind() Kind { return m.kind }

// Family returns the literal/widening family.
func (m *Mapping) Family() Family { return m.family }

// Converter returns the value converter, or nil.
func (m *Mapping) Converter() *ValueConverter { return m.converter }

// Comparer returns the value comparer. Never nil.
func (m *Mapping) Comparer() *ValueComparer { return m.comparer }

// ElementMapping returns the element mapping of an array mapping.
func (m *Mapping) ElementMapping() *Mapping { return m.element }

// IsElementNullable reports whether array elements may be null.
func (m *Mapping) IsElementNullable() bool { return m.elementNullable }

// SubtypeMapping returns the subtype of a range or multirange mapping.
func (m *Mapping) SubtypeMapping() *Mapping { return m.subtype }

// RangeMapping returns the range mapping a multirange is built from.
func (m *Mapping) RangeMapping() *Mapping { return m.rangeMapping }

// IsArray reports whether m is an array mapping.
func (m *Mapping) IsArray() bool { return m != nil && m.kind == KindArray }

// IsTextual reports whether the mapping is one of the character types.
func (m *Mapping) IsTextual() bool {
	switch m.canonicalBase {
	case "text", "character varying", "character":
		return true
	default:
		return false
	}
}

// IsTimestamp reports whether the mapping is timestamp without time zone.
func (m *Mapping) IsTimestamp() bool { return m.family == FamilyTimestamp }

// IsTimestampTz reports whether the mapping is timestamp with time zone.
func (m *Mapping) IsTimestampTz() bool { return m.family == FamilyTimestampTz }

func (m *Mapping) clone() *Mapping {
	c := *m
	return &c
}

// withFacets returns a copy with f applied.
func (m *Mapping) withFacets(f facets) *Mapping {
	if f == m.facets {
		return m
	}
	c := m.clone()
	c.facets = f
	c.storeType = formatStoreType(m.base, f)
	return c
}

// withSpelling returns a copy spelled as n, keeping the canonical base.
func (m *Mapping) withSpelling(n storeTypeName) *Mapping {
	if n.base == m.base && n.facets == m.facets {
		return m
	}
	c := m.clone()
	c.base = n.base
	c.facets = n.facets
	c.storeType = n.String()
	return c
}

// WithConverter returns a copy that converts through conv; the mapping's
// host type becomes the converter's model type.
func (m *Mapping) WithConverter(conv *ValueConverter) *Mapping {
	c := m.clone()
	c.converter = conv
	c.clrType = conv.ModelType
	return c
}

// WithClrType returns a copy with a different host type.
func (m *Mapping) WithClrType(t *hosttype.Type) *Mapping {
	if t == m.clrType {
		return m
	}
	c := m.clone()
	c.clrType = t
	return c
}

// Equal reports structural equality of two descriptors: same store type,
// host type, shape and element/subtype descriptors. Converter and comparer
// functions are compared by identity.
func (m *Mapping) Equal(other *Mapping) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}
	return m.storeType == other.storeType &&
		m.clrType == other.clrType &&
		m.kind == other.kind &&
		m.converter == other.converter &&
		m.elementNullable == other.elementNullable &&
		m.element.Equal(other.element) &&
		m.subtype.Equal(other.subtype) &&
		m.rangeMapping.Equal(other.rangeMapping)
}

func (m *Mapping) String() string {
	if m == nil {
		return "<unmapped>"
	}
	return m.storeType + " (" + m.clrType.String() + ")"
}
