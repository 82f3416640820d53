package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when an operation would violate a uniqueness
	// constraint, e.g. a second subscription for the same email.
	ErrConflict = errors.New("entity already exists")

	// ErrUnavailable is returned when the store cannot be reached: connection
	// refused, pool exhausted, timeouts, broken transport.
	ErrUnavailable = errors.New("store unavailable")

	// ErrSubscriberNotFound indicates that the requested subscriber does not exist.
	ErrSubscriberNotFound = fmt.Errorf("%w: subscriber", ErrNotFound)

	// ErrEmailExists indicates that a subscriber with the given email already exists.
	ErrEmailExists = fmt.Errorf("%w: email", ErrConflict)
)

// IsConflictError checks if the error is any kind of uniqueness conflict.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsUnavailableError checks if the error means the store could not be reached.
func IsUnavailableError(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "subscriber")
	Operation string // The operation that failed (e.g., "insert")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
