package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is the root of every validation failure. Callers that only
// care about "client sent bad input" check errors.Is(err, ErrValidation).
var ErrValidation = errors.New("validation failed")

// Subscriber validation errors.
var (
	ErrInvalidEncoding       = fmt.Errorf("%w: value is not valid UTF-8", ErrValidation)
	ErrEmptyOrWhitespaceName = fmt.Errorf("%w: name is empty or whitespace", ErrValidation)
	ErrNameTooLong           = fmt.Errorf("%w: name is too long", ErrValidation)
	ErrForbiddenCharacter    = fmt.Errorf("%w: name contains a forbidden character", ErrValidation)
	ErrMalformedEmail        = fmt.Errorf("%w: email is not a valid address", ErrValidation)
)

// ValidationError ties a validation failure to the offending field.
type ValidationError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}
