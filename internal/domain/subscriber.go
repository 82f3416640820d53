package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MaxNameLength is the maximum subscriber name length in grapheme clusters.
const MaxNameLength = 256

// ForbiddenNameCharacters may not appear anywhere in a subscriber name.
const ForbiddenNameCharacters = `{}<>/\"`

var validate = validator.New()

// Subscriber is a newsletter sign-up that has passed validation.
// Only NewSubscriber produces one, so stores can trust its fields.
type Subscriber struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// NewSubscriber validates name and email and returns a Subscriber with a fresh
// ID and submission timestamp. Name checks run before the email check.
func NewSubscriber(name, email string) (*Subscriber, error) {
	validName, err := ParseSubscriberName(name)
	if err != nil {
		return nil, err
	}

	validEmail, err := ParseSubscriberEmail(email)
	if err != nil {
		return nil, err
	}

	return &Subscriber{
		ID:           uuid.New(),
		Name:         validName,
		Email:        validEmail,
		SubscribedAt: time.Now().UTC(),
	}, nil
}

// ParseSubscriberName checks that name is valid UTF-8, is not blank, is at
// most MaxNameLength grapheme clusters long and contains none of
// ForbiddenNameCharacters.
func ParseSubscriberName(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", NewValidationError("name", ErrInvalidEncoding)
	}

	if strings.TrimSpace(name) == "" {
		return "", NewValidationError("name", ErrEmptyOrWhitespaceName)
	}

	if graphemeCount(name) > MaxNameLength {
		return "", NewValidationError("name", ErrNameTooLong)
	}

	if strings.ContainsAny(name, ForbiddenNameCharacters) {
		return "", NewValidationError("name", ErrForbiddenCharacter)
	}

	return name, nil
}

// ParseSubscriberEmail checks that email is a syntactically valid address.
func ParseSubscriberEmail(email string) (string, error) {
	if !utf8.ValidString(email) {
		return "", NewValidationError("email", ErrMalformedEmail)
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return "", NewValidationError("email", ErrMalformedEmail)
	}
	return email, nil
}

// graphemeCount counts user-perceived characters, so "é" written as
// e + combining acute counts once.
func graphemeCount(s string) int {
	n := 0
	tokens := graphemes.FromString(s)
	for tokens.Next() {
		n++
	}
	return n
}
