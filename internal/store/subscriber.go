package store

import (
	"context"

	"github.com/phrazzld/newsletter-api/internal/domain"
)

// SubscriberStore defines the interface for subscriber data persistence.
// Subscriptions are append-only: there is no update and no upsert.
type SubscriberStore interface {
	// Insert saves a validated subscriber.
	// Returns ErrEmailExists (an ErrConflict) if the email is already subscribed,
	// or an error wrapping ErrUnavailable if the database cannot be reached.
	Insert(ctx context.Context, subscriber *domain.Subscriber) error

	// GetByEmail retrieves a subscriber by email address.
	// Returns ErrSubscriberNotFound if no subscriber has that email.
	GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error)

	// Count returns the number of stored subscribers.
	Count(ctx context.Context) (int, error)
}
