// Package qerrors defines the error taxonomy of a query translation pass.
//
// Every failure raised while building, inferring or rewriting an expression
// tree is a *TranslationError. Callers abort the translation of that query;
// nothing in the core retries or recovers locally.
package qerrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// TranslationError represents an error detected while translating an
// expression tree.
type TranslationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context (store types, operator names).
	Details map[string]string
}

// ErrorCode categorizes translation errors.
type ErrorCode string

const (
	// ErrCodeUnresolvedTypeMapping indicates inference exhausted every rule
	// without finding a store type.
	ErrCodeUnresolvedTypeMapping ErrorCode = "UNRESOLVED_TYPE_MAPPING"

	// ErrCodeHeterogeneousArray indicates array literal elements with store
	// types that cannot be widened to a common type.
	ErrCodeHeterogeneousArray ErrorCode = "HETEROGENEOUS_ARRAY"

	// ErrCodeInvalidShape indicates an upstream translator built a node over
	// operands of the wrong shape (e.g. indexing a non-array).
	ErrCodeInvalidShape ErrorCode = "INVALID_SHAPE"

	// ErrCodeElementTypeMismatch indicates an array/list flip across
	// different element types.
	ErrCodeElementTypeMismatch ErrorCode = "ELEMENT_TYPE_MISMATCH"

	// ErrCodeMixedTimestamp indicates a binary operation over timestamp and
	// timestamp with time zone operands.
	ErrCodeMixedTimestamp ErrorCode = "MIXED_TIMESTAMP"

	// ErrCodeInvalidOperator indicates an operator used with a node kind
	// that does not support it.
	ErrCodeInvalidOperator ErrorCode = "INVALID_OPERATOR"

	// ErrCodeUnsupportedExpression indicates a node kind the pass does not
	// know how to handle.
	ErrCodeUnsupportedExpression ErrorCode = "UNSUPPORTED_EXPRESSION"
)

// Error implements the error interface.
func (e *TranslationError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Details[k])
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, ", "))
}

// Code returns the code of the first TranslationError in err's chain, or
// the empty code if there is none.
func Code(err error) ErrorCode {
	var te *TranslationError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// HasCode reports whether err wraps a TranslationError with the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && Code(err) == code
}

// IsUnresolvedTypeMapping returns true if the error is an unresolved mapping error.
func IsUnresolvedTypeMapping(err error) bool {
	return HasCode(err, ErrCodeUnresolvedTypeMapping)
}

// IsHeterogeneousArray returns true if the error is a heterogeneous array literal error.
func IsHeterogeneousArray(err error) bool {
	return HasCode(err, ErrCodeHeterogeneousArray)
}

// IsInvalidShape returns true if the error is an invariant violation on node shape.
func IsInvalidShape(err error) bool {
	return HasCode(err, ErrCodeInvalidShape)
}

// IsElementTypeMismatch returns true if the error is an array/list flip mismatch.
func IsElementTypeMismatch(err error) bool {
	return HasCode(err, ErrCodeElementTypeMismatch)
}

// IsMixedTimestamp returns true if the error rejects mixing timestamp kinds.
func IsMixedTimestamp(err error) bool {
	return HasCode(err, ErrCodeMixedTimestamp)
}

// IsInvalidOperator returns true if the error is an operator/node mismatch.
func IsInvalidOperator(err error) bool {
	return HasCode(err, ErrCodeInvalidOperator)
}

// IsUnsupportedExpression returns true if the error names an unknown node kind.
func IsUnsupportedExpression(err error) bool {
	return HasCode(err, ErrCodeUnsupportedExpression)
}

// NewUnresolvedTypeMappingError creates an error for a failed inference.
// what names the operand or node that could not be mapped.
func NewUnresolvedTypeMappingError(what, hostType string) *TranslationError {
	return &TranslationError{
		Code:    ErrCodeUnresolvedTypeMapping,
		Message: fmt.Sprintf("couldn't find %s type mapping", what),
		Details: map[string]string{"host_type": hostType},
	}
}

// NewHeterogeneousArrayError creates an error naming the conflicting store types.
func NewHeterogeneousArrayError(first, second string) *TranslationError {
	return &TranslationError{
		Code:    ErrCodeHeterogeneousArray,
		Message: fmt.Sprintf("array literal mixes store types '%s' and '%s' which cannot be widened to a common type", first, second),
		Details: map[string]string{"first": first, "second": second},
	}
}

// NewInvalidShapeError creates an invariant violation error.
func NewInvalidShapeError(format string, args ...any) *TranslationError {
	return &TranslationError{
		Code:    ErrCodeInvalidShape,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewElementTypeMismatchError creates an array/list flip error naming both element types.
func NewElementTypeMismatchError(first, second string) *TranslationError {
	return &TranslationError{
		Code:    ErrCodeElementTypeMismatch,
		Message: fmt.Sprintf("Mismatch in array element CLR types when converting a type mapping: %s and %s", first, second),
		Details: map[string]string{"first": first, "second": second},
	}
}

// NewMixedTimestampError creates the error raised when timestamp kinds are mixed.
func NewMixedTimestampError() *TranslationError {
	return &TranslationError{
		Code:    ErrCodeMixedTimestamp,
		Message: "Cannot apply binary operation on types 'timestamp with time zone' and 'timestamp without time zone', convert one of the operands first.",
	}
}

// NewInvalidOperatorError creates an error for an operator a node kind cannot carry.
func NewInvalidOperatorError(operator, node string) *TranslationError {
	return &TranslationError{
		Code:    ErrCodeInvalidOperator,
		Message: fmt.Sprintf("incorrect operator %s for %s", operator, node),
		Details: map[string]string{"operator": operator},
	}
}

// NewUnsupportedExpressionError creates an error for an unknown node kind.
func NewUnsupportedExpressionError(kind string) *TranslationError {
	return &TranslationError{
		Code:    ErrCodeUnsupportedExpression,
		Message: fmt.Sprintf("unsupported expression type: %s", kind),
	}
}
