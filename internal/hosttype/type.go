package hosttype

import (
	"fmt"
	"strings"
	"sync"
)

// Kind classifies the shape of a host type.
type Kind uint8

const (
	KindScalar Kind = iota
	KindNullable
	KindArray
	KindList
	KindRange
	KindMultirange
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindNullable:
		return "nullable"
	case KindArray:
		return "array"
	case KindList:
		return "list"
	case KindRange:
		return "range"
	case KindMultirange:
		return "multirange"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Type is a host-language type as seen by the expression tree.
//
// Types are interned: two structurally equal types are always the same
// pointer, so == is type identity and *Type can be used as a map key.
// Construct types with the package-level constructors, never with a literal.
type Type struct {
	kind      Kind
	name      string // scalar name; empty for composite kinds
	elem      *Type  // wrapped type for every kind except KindScalar
	valueType bool
}

var (
	internMu sync.Mutex
	interned = make(map[string]*Type)
)

func intern(t Type) *Type {
	key := t.String()

	internMu.Lock()
	defer internMu.Unlock()

	if existing, ok := interned[key]; ok {
		return existing
	}
	p := &t
	interned[key] = p
	return p
}

func scalar(name string, valueType bool) *Type {
	return intern(Type{kind: KindScalar, name: name, valueType: valueType})
}

// Kind returns the shape of the type.
func (t *Type) Kind() Kind { return t.kind }

// Name returns the scalar name, or the canonical string for composite types.
func (t *Type) Name() string {
	if t.kind == KindScalar {
		return t.name
	}
	return t.String()
}

// Elem returns the wrapped type: the underlying type of a nullable, the
// element of an array or list, the subtype of a range or multirange.
// Returns nil for scalars.
func (t *Type) Elem() *Type { return t.elem }

// IsValueType reports whether values of the type can never be null unless
// wrapped in a nullable.
func (t *Type) IsValueType() bool { return t.valueType }

// String returns the canonical textual form accepted by Parse.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.kind {
	case KindNullable:
		return t.elem.String() + "?"
	case KindArray:
		return t.elem.String() + "[]"
	case KindList:
		return "List<" + t.elem.String() + ">"
	case KindRange:
		return "Range<" + t.elem.String() + ">"
	case KindMultirange:
		return "Multirange<" + t.elem.String() + ">"
	default:
		return t.name
	}
}

// NullableOf wraps a value type in a nullable. Reference types and types
// that are already nullable are returned unchanged.
func NullableOf(t *Type) *Type {
	if t.kind == KindNullable || !t.valueType {
		return t
	}
	return intern(Type{kind: KindNullable, elem: t})
}

// ArrayOf returns the array type with the given element.
func ArrayOf(elem *Type) *Type {
	return intern(Type{kind: KindArray, elem: elem})
}

// ListOf returns the list type with the given element.
func ListOf(elem *Type) *Type {
	return intern(Type{kind: KindList, elem: elem})
}

// RangeOf returns the range type over the given subtype.
func RangeOf(subtype *Type) *Type {
	return intern(Type{kind: KindRange, elem: Unwrap(subtype), valueType: true})
}

// MultirangeOf returns the multirange type over the given subtype.
func MultirangeOf(subtype *Type) *Type {
	return intern(Type{kind: KindMultirange, elem: Unwrap(subtype)})
}

// Unwrap strips a nullable wrapper.
func Unwrap(t *Type) *Type {
	if t != nil && t.kind == KindNullable {
		return t.elem
	}
	return t
}

// IsNullable reports whether a value of the type can be null.
func IsNullable(t *Type) bool {
	return t.kind == KindNullable || !t.valueType
}

// IsArrayOrList reports whether the type is an array or a list.
func IsArrayOrList(t *Type) bool {
	return t != nil && (t.kind == KindArray || t.kind == KindList)
}

// ElementType returns the element of an array or list type.
func ElementType(t *Type) (*Type, bool) {
	if !IsArrayOrList(t) {
		return nil, false
	}
	return t.elem, true
}

// WithElement returns a container of the same shape as t over a new element.
// Panics if t is not an array or list.
func WithElement(t *Type, elem *Type) *Type {
	switch t.kind {
	case KindArray:
		return ArrayOf(elem)
	case KindList:
		return ListOf(elem)
	default:
		panic(fmt.Sprintf("hosttype: %s is not an array or list", t))
	}
}

// Predefined scalar types.
var (
	Object          = scalar("object", false)
	Bool            = scalar("bool", true)
	Byte            = scalar("byte", true)
	Int16           = scalar("short", true)
	Int32           = scalar("int", true)
	Int64           = scalar("long", true)
	UInt32          = scalar("uint", true)
	Float32         = scalar("float", true)
	Float64         = scalar("double", true)
	Decimal         = scalar("decimal", true)
	String          = scalar("string", false)
	Char            = scalar("char", true)
	UUID            = scalar("Guid", true)
	DateTime        = scalar("DateTime", true)
	DateTimeOffset  = scalar("DateTimeOffset", true)
	DateOnly        = scalar("DateOnly", true)
	TimeOnly        = scalar("TimeOnly", true)
	TimeSpan        = scalar("TimeSpan", true)
	Instant         = scalar("Instant", true)
	LocalDateTime   = scalar("LocalDateTime", true)
	LocalDate       = scalar("LocalDate", true)
	LocalTime       = scalar("LocalTime", true)
	ZonedDateTime   = scalar("ZonedDateTime", true)
	Duration        = scalar("Duration", true)
	Period          = scalar("Period", false)
	IPAddress       = scalar("IPAddress", false)
	Cidr            = scalar("Cidr", true)
	PhysicalAddress = scalar("PhysicalAddress", false)
	JSONDocument    = scalar("JsonDocument", false)
	JSONElement     = scalar("JsonElement", true)
	TsVector        = scalar("TsVector", false)
	TsQuery         = scalar("TsQuery", false)
	LTree           = scalar("LTree", false)
	LQuery          = scalar("LQuery", false)
	Hstore          = scalar("Hstore", false)
	BitArray        = scalar("BitArray", false)

	// Bytes is the byte array type, mapped to bytea rather than to an array
	// of single bytes.
	Bytes = ArrayOf(Byte)
)

var scalarAliases = map[string]*Type{
	"bool": Bool, "boolean": Bool,
	"int16": Int16, "int32": Int32, "int64": Int64,
	"integer": Int32, "uint32": UInt32,
	"float32": Float32, "float64": Float64, "single": Float32,
	"uuid": UUID, "bytes": Bytes,
	"json": JSONDocument,
}

// Lookup returns the predefined scalar with the given name or alias.
func Lookup(name string) (*Type, bool) {
	internMu.Lock()
	t, ok := interned[name]
	internMu.Unlock()
	if ok && t.kind == KindScalar {
		return t, true
	}
	t, ok = scalarAliases[strings.ToLower(name)]
	return t, ok
}
