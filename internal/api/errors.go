package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/newsletter-api/internal/domain"
	"github.com/phrazzld/newsletter-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
//
// Store conflicts are deliberately a 500: a repeated sign-up is reported as
// a failed persistence, not as a distinct client error.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrInvalidEncoding):
		return "Name must be valid UTF-8"
	case errors.Is(err, domain.ErrEmptyOrWhitespaceName):
		return "Name must not be empty"
	case errors.Is(err, domain.ErrNameTooLong):
		return "Name is too long"
	case errors.Is(err, domain.ErrForbiddenCharacter):
		return "Name contains a forbidden character"
	case errors.Is(err, domain.ErrMalformedEmail):
		return "Email is not a valid address"
	case errors.Is(err, domain.ErrValidation):
		return "Invalid subscriber data"
	default:
		return "Failed to save subscription"
	}
}

// errorKind classifies store errors for the log record.
func errorKind(err error) string {
	switch {
	case store.IsConflictError(err):
		return "conflict"
	case store.IsUnavailableError(err):
		return "unavailable"
	default:
		return "internal"
	}
}
