package typemap

import (
	"github.com/roach88/pgxlate/internal/hosttype"
)

// Range is the host value of a range-typed expression.
type Range struct {
	Lower          any
	Upper          any
	LowerInclusive bool
	UpperInclusive bool
	LowerInfinite  bool
	UpperInfinite  bool
	Empty          bool
}

// NewRangeMapping builds a range mapping named storeType over subtype.
func NewRangeMapping(storeType string, subtype *Mapping) *Mapping {
	m := newScalar(storeType, hosttype.RangeOf(subtype.clrType), FamilyOther)
	m.kind = KindRange
	m.subtype = subtype
	return m
}

// NewMultirangeMapping builds a multirange mapping named storeType over a
// range mapping.
func NewMultirangeMapping(storeType string, rangeMapping *Mapping) *Mapping {
	m := newScalar(storeType, hosttype.MultirangeOf(rangeMapping.subtype.clrType), FamilyOther)
	m.kind = KindMultirange
	m.rangeMapping = rangeMapping
	m.subtype = rangeMapping.subtype
	return m
}

// builtinRanges lists the built-in range types with their subtype and
// multirange store types.
var builtinRanges = []struct {
	rangeType      string
	multirangeType string
	subtype        string
	subtypeClr     *hosttype.Type
}{
	{"int4range", "int4multirange", "integer", hosttype.Int32},
	{"int8range", "int8multirange", "bigint", hosttype.Int64},
	{"numrange", "nummultirange", "numeric", hosttype.Decimal},
	{"tstzrange", "tstzmultirange", "timestamp with time zone", hosttype.DateTime},
	{"tsrange", "tsmultirange", "timestamp without time zone", hosttype.DateTime},
	{"daterange", "datemultirange", "date", hosttype.DateOnly},
}
