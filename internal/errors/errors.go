// Package errors defines the structured error values returned by the QR
// token services. Every failure that crosses a component boundary is a
// *DomainError carrying a stable Code the HTTP layer can map to a status.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code identifies the kind of a DomainError.
type Code string

const (
	CodeMalformed      Code = "malformed"
	CodeNotFound       Code = "not_found"
	CodeInvalidType    Code = "invalid_type"
	CodeInvalidState   Code = "invalid_state"
	CodeInvalidRequest Code = "invalid_request"
	CodeConflict       Code = "conflict"
	CodeExpired        Code = "expired"
	CodeAlreadyUsed    Code = "already_used"
	CodeRevoked        Code = "revoked"
	CodeUnauthorized   Code = "unauthorized"
	CodeActionFailed   Code = "action_failed"
)

type DomainError struct {
	Code    Code
	Message string
	Detail  string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Detail == "" {
		return e.Message
	}
	return e.Message + ": " + e.Detail
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError with the same code, so detailed copies of a
// sentinel still satisfy errors.Is against the sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of e with a formatted detail message.
func (e *DomainError) WithDetail(format string, args ...interface{}) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Detail:  fmt.Sprintf(format, args...),
		Err:     e.Err,
	}
}

// Wrap returns a copy of e that records err as its cause.
func (e *DomainError) Wrap(err error) *DomainError {
	detail := e.Detail
	if err != nil && detail == "" {
		detail = err.Error()
	}
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Detail:  detail,
		Err:     err,
	}
}

// CodeOf returns the code of the first DomainError in err's chain, or an
// empty code when err carries none.
func CodeOf(err error) Code {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return ""
}

// As is a shortcut for extracting the outermost DomainError.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}
