package typemap

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/cespare/xxhash/v2"

	"github.com/roach88/pgxlate/internal/hosttype"
)

// ConvertFunc transforms one non-null value.
type ConvertFunc func(v any) (any, error)

// ValueConverter is a bidirectional transform between the host value seen by
// the model and the value handed to the provider.
type ValueConverter struct {
	ModelType    *hosttype.Type
	ProviderType *hosttype.Type

	toProvider   ConvertFunc
	fromProvider ConvertFunc
}

// NewValueConverter creates a converter. Null values are never passed to
// the conversion functions.
func NewValueConverter(model, provider *hosttype.Type, toProvider, fromProvider ConvertFunc) *ValueConverter {
	return &ValueConverter{
		ModelType:    model,
		ProviderType: provider,
		toProvider:   toProvider,
		fromProvider: fromProvider,
	}
}

// ConvertToProvider converts a model value to its provider representation.
func (c *ValueConverter) ConvertToProvider(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return c.toProvider(v)
}

// ConvertFromProvider converts a provider value back to the model representation.
func (c *ValueConverter) ConvertFromProvider(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return c.fromProvider(v)
}

// newArrayConverter lifts an element converter to []any values.
func newArrayConverter(arrayType *hosttype.Type, providerArrayType *hosttype.Type, elem *ValueConverter) *ValueConverter {
	lift := func(f func(any) (any, error)) ConvertFunc {
		return func(v any) (any, error) {
			in, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("array converter: expected []any, got %T", v)
			}
			out := make([]any, len(in))
			for i, e := range in {
				c, err := f(e)
				if err != nil {
					return nil, fmt.Errorf("array converter: element %d: %w", i, err)
				}
				out[i] = c
			}
			return out, nil
		}
	}
	return NewValueConverter(arrayType, providerArrayType,
		lift(elem.ConvertToProvider), lift(elem.ConvertFromProvider))
}

// ValueComparer provides structural equality, hashing and snapshotting of
// host values of one mapping.
type ValueComparer struct {
	equals   func(a, b any) bool
	hash     func(v any) uint64
	snapshot func(v any) any
}

// Equals reports whether two host values are structurally equal. Two nils
// are equal; a nil and a non-nil are not.
func (c *ValueComparer) Equals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return c.equals(a, b)
}

// Hash returns a hash consistent with Equals.
func (c *ValueComparer) Hash(v any) uint64 {
	if v == nil {
		return 0
	}
	return c.hash(v)
}

// Snapshot returns a copy of v that does not share mutable state with it.
func (c *ValueComparer) Snapshot(v any) any {
	if v == nil {
		return nil
	}
	return c.snapshot(v)
}

// defaultComparer handles scalars, byte slices and hstore maps.
var defaultComparer = &ValueComparer{
	equals: func(a, b any) bool {
		if ab, ok := a.([]byte); ok {
			bb, ok := b.([]byte)
			return ok && bytes.Equal(ab, bb)
		}
		if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() {
			return a == b
		}
		return reflect.DeepEqual(a, b)
	},
	hash: func(v any) uint64 {
		if b, ok := v.([]byte); ok {
			return xxhash.Sum64(b)
		}
		return xxhash.Sum64String(fmt.Sprintf("%T:%v", v, v))
	},
	snapshot: func(v any) any {
		switch x := v.(type) {
		case []byte:
			return bytes.Clone(x)
		case map[string]*string:
			out := make(map[string]*string, len(x))
			for k, s := range x {
				if s != nil {
					c := *s
					s = &c
				}
				out[k] = s
			}
			return out
		default:
			return v
		}
	},
}

// newArrayComparer compares []any values element-wise using the element comparer.
func newArrayComparer(elem *ValueComparer) *ValueComparer {
	return &ValueComparer{
		equals: func(a, b any) bool {
			as, ok1 := a.([]any)
			bs, ok2 := b.([]any)
			if !ok1 || !ok2 || len(as) != len(bs) {
				return false
			}
			for i := range as {
				if !elem.Equals(as[i], bs[i]) {
					return false
				}
			}
			return true
		},
		hash: func(v any) uint64 {
			d := xxhash.New()
			s, _ := v.([]any)
			var buf [8]byte
			for _, e := range s {
				h := elem.Hash(e)
				for i := range buf {
					buf[i] = byte(h >> (8 * i))
				}
				_, _ = d.Write(buf[:])
			}
			return d.Sum64()
		},
		snapshot: func(v any) any {
			s, ok := v.([]any)
			if !ok {
				return v
			}
			out := make([]any, len(s))
			for i, e := range s {
				out[i] = elem.Snapshot(e)
			}
			return out
		},
	}
}
