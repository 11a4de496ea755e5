package qerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslationError_Error(t *testing.T) {
	err := NewHeterogeneousArrayError("integer", "numeric")
	assert.Equal(t,
		"HETEROGENEOUS_ARRAY: array literal mixes store types 'integer' and 'numeric' which cannot be widened to a common type (first=integer, second=numeric)",
		err.Error())

	err = NewInvalidShapeError("array index over %s", "int")
	assert.Equal(t, "INVALID_SHAPE: array index over int", err.Error())
}

func TestIsHelpers_Wrapped(t *testing.T) {
	testCases := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"unresolved", NewUnresolvedTypeMappingError("item", "object"), IsUnresolvedTypeMapping},
		{"heterogeneous", NewHeterogeneousArrayError("a", "b"), IsHeterogeneousArray},
		{"shape", NewInvalidShapeError("x"), IsInvalidShape},
		{"mismatch", NewElementTypeMismatchError("int", "long"), IsElementTypeMismatch},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.check(tc.err))
			assert.True(t, tc.check(fmt.Errorf("translate: %w", tc.err)))
			assert.False(t, tc.check(errors.New("plain")))
			assert.False(t, tc.check(nil))
		})
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, ErrCodeMixedTimestamp, Code(fmt.Errorf("wrap: %w", NewMixedTimestampError())))
	assert.Equal(t, ErrorCode(""), Code(errors.New("plain")))
}

func TestElementTypeMismatchMessage(t *testing.T) {
	err := NewElementTypeMismatchError("int", "long")
	assert.Contains(t, err.Error(), "Mismatch in array element CLR types when converting a type mapping: int and long")
}
