// Package domainerrors defines the coded error type returned by services.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate them
// into a coded Error so transports can map the code to a status without string
// matching. Codes are stable identifiers and are safe to expose to clients.
package domainerrors

import (
	"errors"
	"fmt"
	"maps"
	"time"
)

// Code identifies a category of domain failure.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeConflict           Code = "conflict"
	CodeNotFound           Code = "not_found"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeRateLimited        Code = "rate_limited"
	CodeExpired            Code = "expired"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is a domain error carrying a code, a client-safe message and an optional cause.
type Error struct {
	Code    Code
	Message string
	// Fields maps offending input fields to the reason they were rejected.
	Fields map[string]string
	// RetryAfter is set on rate-limited errors.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a domain error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// WithField returns a copy of the error with an additional field reason.
func (e *Error) WithField(field, reason string) *Error {
	cp := *e
	cp.Fields = make(map[string]string, len(e.Fields)+1)
	maps.Copy(cp.Fields, e.Fields)
	cp.Fields[field] = reason
	return &cp
}

// WithRetryAfter returns a copy of the error carrying a retry window.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	cp := *e
	cp.RetryAfter = d
	return &cp
}

// Validation builds a CodeValidation error for a single field.
func Validation(field, reason string) *Error {
	return New(CodeValidation, field+": "+reason).WithField(field, reason)
}

// As extracts the first domain error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the first domain error in err's chain has the given code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the first domain error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}
