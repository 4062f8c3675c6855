// Package validation collects field errors for HTTP request bodies before
// they reach the services.
package validation

import (
	"fmt"
	"strings"

	domainErrors "csy/internal/errors"
)

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Validator struct {
	Errors []FieldError
}

func New() *Validator {
	return &Validator{
		Errors: make([]FieldError, 0),
	}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

func (v *Validator) AddError(field, message string) {
	v.Errors = append(v.Errors, FieldError{
		Field:   field,
		Message: message,
	})
}

func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

func (v *Validator) Required(field, value string) {
	v.Check(strings.TrimSpace(value) != "", field, "is required")
}

func (v *Validator) MaxLength(field, value string, n int) {
	v.Check(len(value) <= n, field, fmt.Sprintf("must be at most %d characters", n))
}

// Err folds the collected field errors into one invalid_request error.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	parts := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		parts[i] = e.Error()
	}
	return domainErrors.ErrInvalidRequest.WithDetail("%s", strings.Join(parts, "; "))
}
