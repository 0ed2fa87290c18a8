// Package domainerrors carries machine-checkable error codes from services to the
// transport layer. Services return *Error values; handlers translate the code into
// an HTTP status and a stable JSON body without leaking the wrapped cause.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, client-visible error kind.
type Code string

const (
	CodeBadRequest           Code = "bad_request"
	CodeValidation           Code = "validation_error"
	CodeInvalidInput         Code = "invalid_input"
	CodeDuplicateApplication Code = "duplicate_application"
	CodeInvalidStatus        Code = "invalid_status"
	CodeMissingReason        Code = "missing_reason"
	CodeNotFound             Code = "not_found"
	CodeUnauthorized         Code = "unauthorized"
	CodeForbidden            Code = "forbidden"
	CodeIneligibleRecord     Code = "ineligible_record"
	CodeConflict             Code = "conflict"
	CodeAllocationExhausted  Code = "allocation_exhausted"
	CodeRenderFailed         Code = "render_error"
	CodeTimeout              Code = "timeout"
	CodeRateLimited          Code = "rate_limited"
	CodeInvariantViolation   Code = "invariant_violation"
	CodeInternal             Code = "internal_error"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for handler readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in the chain, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the client-safe message for an error. Uncoded errors never
// expose their text.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal server error"
}
