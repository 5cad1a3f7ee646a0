// Package deckerr provides structured error types for taskdeck.
package deckerr

import (
	"errors"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for taskdeck.
const (
	// Validation errors
	CodeInvalidDependency Code = "INVALID_DEPENDENCY"
	CodeCycleDetected     Code = "CYCLE_DETECTED"
	CodeInvalidPriority   Code = "INVALID_PRIORITY"
	CodeInvalidStatus     Code = "INVALID_STATUS"
	CodeInvalidReference  Code = "INVALID_REFERENCE"

	// Backend errors
	CodeBackendRead  Code = "BACKEND_READ_FAILED"
	CodeBackendWrite Code = "BACKEND_WRITE_FAILED"

	// Credential errors
	CodePrimitivesMissing Code = "CRYPTO_PRIMITIVES_MISSING"

	// Config errors
	CodeConfigInvalid Code = "CONFIG_INVALID"
)

// Category groups error codes for HTTP status mapping by a route layer.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryBadRequest
	CategoryConflict
	CategoryInternal
	CategoryUnavailable
)

// codeCategories maps error codes to their categories.
var codeCategories = map[Code]Category{
	CodeInvalidDependency: CategoryBadRequest,
	CodeCycleDetected:     CategoryConflict,
	CodeInvalidPriority:   CategoryBadRequest,
	CodeInvalidStatus:     CategoryBadRequest,
	CodeInvalidReference:  CategoryBadRequest,
	CodeBackendRead:       CategoryUnavailable,
	CodeBackendWrite:      CategoryUnavailable,
	CodePrimitivesMissing: CategoryInternal,
	CodeConfigInvalid:     CategoryBadRequest,
}

// HTTPStatus returns the HTTP status code for a category.
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryBadRequest:
		return 400
	case CategoryConflict:
		return 409
	case CategoryUnavailable:
		return 503
	default:
		return 500
	}
}

// Error is the structured error type for taskdeck.
type Error struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Category returns the category for the error's code.
func (e *Error) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// New creates an error with a code and message.
func New(code Code, what string) *Error {
	return &Error{Code: code, What: what}
}

// Newf creates an error with a code, message and explanation.
func Newf(code Code, what, why string) *Error {
	return &Error{Code: code, What: what, Why: why}
}

// Wrap creates an error wrapping a cause.
func Wrap(code Code, what string, cause error) *Error {
	return &Error{Code: code, What: what, Cause: cause}
}

// HasCode returns true if err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsValidation returns true if err is a validation-category error.
func IsValidation(err error) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	cat := de.Category()
	return cat == CategoryBadRequest || cat == CategoryConflict
}
