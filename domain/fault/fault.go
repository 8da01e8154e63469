// Package fault defines the engine's error taxonomy.
// Structural preconditions (not found, forbidden, duplicate slug) fail
// fast; record validation never does and is reported through
// validate.Result instead.
package fault

import (
	"errors"
	"fmt"
)

// Code identifies one failure class.
type Code string

const (
	CodeDuplicateSlug             Code = "duplicate_slug"
	CodeImmutableField            Code = "immutable_field"
	CodeInvalidFieldType          Code = "invalid_field_type"
	CodeMissingOptions            Code = "missing_options"
	CodeUnknownRelationshipTarget Code = "unknown_relationship_target"
	CodeDuplicateFieldName        Code = "duplicate_field_name"
	CodeFieldTypeLocked           Code = "field_type_locked"
	CodeFieldInUse                Code = "field_in_use"
	CodeMissingRequiredField      Code = "missing_required_field"
	CodeInvalidFormat             Code = "invalid_format"
	CodeInvalidType               Code = "invalid_type"
	CodeInvalidOption             Code = "invalid_option"
	CodeDanglingReference         Code = "dangling_reference"
	CodeNotFound                  Code = "not_found"
	CodeConcurrentModification    Code = "concurrent_modification"
	CodeForbidden                 Code = "forbidden"
	CodeRelationshipUnavailable   Code = "relationship_unavailable"
)

// Error is a coded engine error. Field is set when the failure concerns
// one field definition or record value.
type Error struct {
	Code    Code
	Message string
	Field   string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a coded error.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// OnField creates a coded error bound to a field name.
func OnField(code Code, field, format string, args ...any) *Error {
	return &Error{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error around a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or "" for uncoded errors.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}
