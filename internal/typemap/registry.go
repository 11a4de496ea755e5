package typemap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/pgxlate/internal/hosttype"
)

// Source is the read-only lookup contract consumed by the expression factory.
// Every method returns nil when no mapping is registered; callers treat that
// as a translation failure and never substitute a default.
type Source interface {
	// FindMapping returns the default mapping for a host type.
	FindMapping(t *hosttype.Type) *Mapping

	// FindMappingByStoreType returns the default mapping for a store type name.
	FindMappingByStoreType(storeType string) *Mapping

	// FindMappingFor returns a mapping for the store type that can read and
	// write the host type.
	FindMappingFor(t *hosttype.Type, storeType string) *Mapping

	// FindContainerMapping returns the mapping of the container host type
	// that wraps containee (range over subtype, multirange over range, ...).
	FindContainerMapping(container *hosttype.Type, containee *Mapping) *Mapping
}

// UserRange describes a user-defined range type to register.
type UserRange struct {
	RangeName   string
	SchemaName  string
	SubtypeName string
	SubtypeClr  *hosttype.Type
}

// StoreType returns the (optionally schema-qualified) range store type name.
func (u UserRange) StoreType() string {
	if u.SchemaName == "" {
		return u.RangeName
	}
	return u.SchemaName + "." + u.RangeName
}

// Registry is the type-mapping registry.
//
// A Registry is populated once by NewRegistry and never mutated afterwards,
// so it is safe for concurrent lookups from any number of translations.
type Registry struct {
	byStore     map[string][]*Mapping       // canonical base -> candidates; first is the store default
	byClr       map[*hosttype.Type]*Mapping // host type -> default mapping
	ranges      []*Mapping
	multiranges []*Mapping
}

var _ Source = (*Registry)(nil)

type registryOptions struct {
	userRanges  []UserRange
	multiranges bool
}

// RegistryOption configures NewRegistry.
type RegistryOption func(*registryOptions)

// WithUserRanges registers user-defined range types.
func WithUserRanges(ranges ...UserRange) RegistryOption {
	return func(o *registryOptions) { o.userRanges = append(o.userRanges, ranges...) }
}

// WithMultiranges enables the built-in multirange types (PostgreSQL 14+).
func WithMultiranges(enabled bool) RegistryOption {
	return func(o *registryOptions) { o.multiranges = enabled }
}

// scalarMappings lists the built-in scalar mappings. The first entry for a
// store type is the mapping returned for that store type alone.
var scalarMappings = []struct {
	store  string
	clr    *hosttype.Type
	family Family
}{
	{"boolean", hosttype.Bool, FamilyBool},
	{"smallint", hosttype.Int16, FamilyInteger},
	{"smallint", hosttype.Byte, FamilyInteger},
	{"integer", hosttype.Int32, FamilyInteger},
	{"bigint", hosttype.Int64, FamilyInteger},
	{"real", hosttype.Float32, FamilyFloat},
	{"double precision", hosttype.Float64, FamilyFloat},
	{"numeric", hosttype.Decimal, FamilyNumeric},
	{"text", hosttype.String, FamilyText},
	{"character varying", hosttype.String, FamilyText},
	{"character", hosttype.String, FamilyText},
	{"character(1)", hosttype.Char, FamilyChar},
	{"bytea", hosttype.Bytes, FamilyBytea},
	{"uuid", hosttype.UUID, FamilyUUID},
	{"timestamp with time zone", hosttype.DateTime, FamilyTimestampTz},
	{"timestamp with time zone", hosttype.DateTimeOffset, FamilyTimestampTz},
	{"timestamp with time zone", hosttype.Instant, FamilyTimestampTz},
	{"timestamp with time zone", hosttype.ZonedDateTime, FamilyTimestampTz},
	{"timestamp without time zone", hosttype.DateTime, FamilyTimestamp},
	{"timestamp without time zone", hosttype.LocalDateTime, FamilyTimestamp},
	{"date", hosttype.DateOnly, FamilyDate},
	{"date", hosttype.LocalDate, FamilyDate},
	{"time without time zone", hosttype.TimeOnly, FamilyTime},
	{"time without time zone", hosttype.LocalTime, FamilyTime},
	{"time without time zone", hosttype.TimeSpan, FamilyTime},
	{"time with time zone", hosttype.DateTimeOffset, FamilyTimeTz},
	{"interval", hosttype.TimeSpan, FamilyInterval},
	{"interval", hosttype.Duration, FamilyInterval},
	{"interval", hosttype.Period, FamilyInterval},
	{"jsonb", hosttype.String, FamilyJSONB},
	{"jsonb", hosttype.JSONDocument, FamilyJSONB},
	{"jsonb", hosttype.JSONElement, FamilyJSONB},
	{"json", hosttype.String, FamilyJSON},
	{"json", hosttype.JSONDocument, FamilyJSON},
	{"json", hosttype.JSONElement, FamilyJSON},
	{"hstore", hosttype.Hstore, FamilyHstore},
	{"inet", hosttype.IPAddress, FamilyNetwork},
	{"cidr", hosttype.Cidr, FamilyNetwork},
	{"macaddr", hosttype.PhysicalAddress, FamilyNetwork},
	{"tsvector", hosttype.TsVector, FamilyTsVector},
	{"tsquery", hosttype.TsQuery, FamilyTsQuery},
	{"ltree", hosttype.LTree, FamilyLTree},
	{"ltree", hosttype.String, FamilyLTree},
	{"lquery", hosttype.LQuery, FamilyLTree},
	{"bit varying", hosttype.BitArray, FamilyBit},
	{"bit", hosttype.BitArray, FamilyBit},
	{"xid", hosttype.UInt32, FamilyInteger},
}

// clrDefaults lists the store type used when only the host type is known.
var clrDefaults = map[*hosttype.Type]string{
	hosttype.Bool:            "boolean",
	hosttype.Byte:            "smallint",
	hosttype.Int16:           "smallint",
	hosttype.Int32:           "integer",
	hosttype.Int64:           "bigint",
	hosttype.UInt32:          "xid",
	hosttype.Float32:         "real",
	hosttype.Float64:         "double precision",
	hosttype.Decimal:         "numeric",
	hosttype.String:          "text",
	hosttype.Char:            "character(1)",
	hosttype.Bytes:           "bytea",
	hosttype.UUID:            "uuid",
	hosttype.DateTime:        "timestamp with time zone",
	hosttype.DateTimeOffset:  "timestamp with time zone",
	hosttype.Instant:         "timestamp with time zone",
	hosttype.ZonedDateTime:   "timestamp with time zone",
	hosttype.LocalDateTime:   "timestamp without time zone",
	hosttype.DateOnly:        "date",
	hosttype.LocalDate:       "date",
	hosttype.TimeOnly:        "time without time zone",
	hosttype.LocalTime:       "time without time zone",
	hosttype.TimeSpan:        "interval",
	hosttype.Duration:        "interval",
	hosttype.Period:          "interval",
	hosttype.JSONDocument:    "jsonb",
	hosttype.JSONElement:     "jsonb",
	hosttype.Hstore:          "hstore",
	hosttype.IPAddress:       "inet",
	hosttype.Cidr:            "cidr",
	hosttype.PhysicalAddress: "macaddr",
	hosttype.TsVector:        "tsvector",
	hosttype.TsQuery:         "tsquery",
	hosttype.LTree:           "ltree",
	hosttype.LQuery:          "lquery",
	hosttype.BitArray:        "bit varying",
}

// NewRegistry builds a registry with the built-in mappings plus the
// configured user ranges. Registration only happens here.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	var o registryOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		byStore: make(map[string][]*Mapping),
		byClr:   make(map[*hosttype.Type]*Mapping),
	}

	for _, s := range scalarMappings {
		r.add(newScalar(s.store, s.clr, s.family))
	}
	for clr, store := range clrDefaults {
		m := r.candidate(store, clr)
		if m == nil {
			return nil, fmt.Errorf("default mapping for %s: no %s mapping registered", clr, store)
		}
		r.byClr[clr] = m
	}

	for _, b := range builtinRanges {
		subtype := r.candidate(b.subtype, b.subtypeClr)
		rng := NewRangeMapping(b.rangeType, subtype)
		r.addRange(rng)
		if o.multiranges {
			r.addMultirange(NewMultirangeMapping(b.multirangeType, rng))
		}
	}

	for _, u := range o.userRanges {
		if err := r.addUserRange(u); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) add(m *Mapping) {
	r.byStore[m.canonicalBase] = append(r.byStore[m.canonicalBase], m)
}

func (r *Registry) addRange(m *Mapping) {
	r.add(m)
	r.ranges = append(r.ranges, m)
	if _, ok := r.byClr[m.clrType]; !ok {
		r.byClr[m.clrType] = m
	}
}

func (r *Registry) addMultirange(m *Mapping) {
	r.add(m)
	r.multiranges = append(r.multiranges, m)
	if _, ok := r.byClr[m.clrType]; !ok {
		r.byClr[m.clrType] = m
	}
}

func (r *Registry) addUserRange(u UserRange) error {
	if u.RangeName == "" {
		return fmt.Errorf("user range: missing range name")
	}
	if u.SubtypeName == "" && u.SubtypeClr == nil {
		return fmt.Errorf("user range %s: needs a subtype name or host type", u.StoreType())
	}

	var subtype *Mapping
	switch {
	case u.SubtypeName != "" && u.SubtypeClr != nil:
		subtype = r.FindMappingFor(u.SubtypeClr, u.SubtypeName)
	case u.SubtypeName != "":
		subtype = r.FindMappingByStoreType(u.SubtypeName)
	default:
		subtype = r.FindMapping(u.SubtypeClr)
	}
	if subtype == nil {
		return fmt.Errorf("user range %s: no mapping for subtype %q (%s)", u.StoreType(), u.SubtypeName, u.SubtypeClr)
	}

	store := normalizeStoreType(u.StoreType())
	if _, exists := r.byStore[store]; exists {
		return fmt.Errorf("user range %s: store type already registered", u.StoreType())
	}
	r.addRange(NewRangeMapping(store, subtype))
	return nil
}

// candidate returns the registered mapping for a canonical store type that
// handles clr, ignoring facets.
func (r *Registry) candidate(store string, clr *hosttype.Type) *Mapping {
	n, err := parseStoreType(store)
	if err != nil {
		return nil
	}
	for _, m := range r.byStore[canonicalBase(n.base)] {
		if m.clrType == clr {
			return m.withSpelling(n)
		}
	}
	return nil
}

// FindMapping implements Source.
func (r *Registry) FindMapping(t *hosttype.Type) *Mapping {
	if t == nil {
		return nil
	}
	u := hosttype.Unwrap(t)
	if m, ok := r.byClr[u]; ok {
		return m
	}

	if hosttype.IsArrayOrList(u) {
		elemType, _ := hosttype.ElementType(u)
		elem := r.FindMapping(elemType)
		if elem == nil || elem.kind == KindArray {
			return nil
		}
		m, err := NewArrayMapping(u, elem)
		if err != nil {
			return nil
		}
		return m
	}
	return nil
}

// FindMappingByStoreType implements Source.
func (r *Registry) FindMappingByStoreType(storeType string) *Mapping {
	n, err := parseStoreType(storeType)
	if err != nil {
		return nil
	}
	return r.findByName(n)
}

func (r *Registry) findByName(n storeTypeName) *Mapping {
	if n.element != nil {
		elem := r.findByName(*n.element)
		if elem == nil || elem.kind == KindArray {
			return nil
		}
		return arrayOfStoreType(elem)
	}
	candidates := r.byStore[canonicalBase(n.base)]
	if len(candidates) == 0 {
		return nil
	}
	return candidates[0].withSpelling(n)
}

// FindMappingFor implements Source.
func (r *Registry) FindMappingFor(t *hosttype.Type, storeType string) *Mapping {
	if t == nil {
		return r.FindMappingByStoreType(storeType)
	}
	n, err := parseStoreType(storeType)
	if err != nil {
		return nil
	}
	return r.findFor(hosttype.Unwrap(t), n)
}

func (r *Registry) findFor(t *hosttype.Type, n storeTypeName) *Mapping {
	if n.element != nil {
		elemType, ok := hosttype.ElementType(t)
		if !ok {
			return nil
		}
		elem := r.findFor(hosttype.Unwrap(elemType), *n.element)
		if elem == nil || elem.kind == KindArray {
			return nil
		}
		m, err := NewArrayMapping(t, elem)
		if err != nil {
			return nil
		}
		return m
	}
	for _, m := range r.byStore[canonicalBase(n.base)] {
		if m.clrType == t {
			return m.withSpelling(n)
		}
	}
	return nil
}

// FindContainerMapping implements Source.
func (r *Registry) FindContainerMapping(container *hosttype.Type, containee *Mapping) *Mapping {
	if container == nil || containee == nil {
		return nil
	}
	c := hosttype.Unwrap(container)

	switch c.Kind() {
	case hosttype.KindRange:
		for _, m := range r.ranges {
			if m.clrType == c && m.subtype.canonicalBase == containee.canonicalBase {
				return m
			}
		}
	case hosttype.KindMultirange:
		for _, m := range r.multiranges {
			if m.clrType != c {
				continue
			}
			if containee.kind == KindRange && m.rangeMapping.storeType == containee.storeType {
				return m
			}
			if containee.kind == KindScalar && m.subtype.canonicalBase == containee.canonicalBase {
				return m
			}
		}
	case hosttype.KindScalar:
		if containee.family == FamilyNetwork && (c == hosttype.Cidr || c == hosttype.IPAddress) {
			return r.byClr[c]
		}
	}
	return nil
}

// Mappings returns the registered scalar, range and multirange mappings
// sorted by store type, for listing.
func (r *Registry) Mappings() []*Mapping {
	var out []*Mapping
	for _, ms := range r.byStore {
		out = append(out, ms...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].storeType != out[j].storeType {
			return out[i].storeType < out[j].storeType
		}
		return out[i].clrType.String() < out[j].clrType.String()
	})
	return out
}

// Describe renders a mapping as a single line for diagnostics.
func Describe(m *Mapping) string {
	if m == nil {
		return "<unmapped>"
	}
	var b strings.Builder
	b.WriteString(m.storeType)
	b.WriteString(" <-> ")
	b.WriteString(m.clrType.String())
	switch m.kind {
	case KindArray:
		fmt.Fprintf(&b, " element=%s nullable_elements=%t", m.element.storeType, m.elementNullable)
	case KindRange:
		fmt.Fprintf(&b, " subtype=%s", m.subtype.storeType)
	case KindMultirange:
		fmt.Fprintf(&b, " range=%s", m.rangeMapping.storeType)
	}
	if m.converter != nil {
		fmt.Fprintf(&b, " converter=%s->%s", m.converter.ModelType, m.converter.ProviderType)
	}
	return b.String()
}
