package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/phrazzld/newsletter-api/internal/domain"
	"github.com/phrazzld/newsletter-api/internal/store"
)

const (
	insertSubscriberQuery = `
		INSERT INTO subscriptions (id, email, name, subscribed_at)
		VALUES ($1, $2, $3, $4)`

	getSubscriberByEmailQuery = `
		SELECT id, email, name, subscribed_at
		FROM subscriptions
		WHERE email = $1`

	countSubscribersQuery = `SELECT count(*) FROM subscriptions`
)

// PostgresSubscriberStore implements the store.SubscriberStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSubscriberStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSubscriberStore creates a new PostgreSQL implementation of the SubscriberStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresSubscriberStore(db store.DBTX, logger *slog.Logger) *PostgresSubscriberStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSubscriberStore{
		db:     db,
		logger: logger.With(slog.String("component", "subscriber_store")),
	}
}

// Ensure PostgresSubscriberStore implements store.SubscriberStore interface
var _ store.SubscriberStore = (*PostgresSubscriberStore)(nil)

// Insert implements store.SubscriberStore.Insert.
// It issues exactly one INSERT and never retries.
func (s *PostgresSubscriberStore) Insert(ctx context.Context, subscriber *domain.Subscriber) error {
	log := s.logger.With(slog.String("subscriber_id", subscriber.ID.String()))
	log.DebugContext(ctx, "inserting subscriber")

	_, err := s.db.ExecContext(ctx, insertSubscriberQuery,
		subscriber.ID,
		subscriber.Email,
		subscriber.Name,
		subscriber.SubscribedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.DebugContext(ctx, "subscriber email already exists")
			return store.NewStoreError("subscriber", "insert", "email already subscribed", store.ErrEmailExists)
		}
		return store.NewStoreError("subscriber", "insert", "failed to insert subscriber", MapError(err))
	}

	log.DebugContext(ctx, "subscriber inserted")
	return nil
}

// GetByEmail implements store.SubscriberStore.GetByEmail
func (s *PostgresSubscriberStore) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	var sub domain.Subscriber
	err := s.db.QueryRowContext(ctx, getSubscriberByEmailQuery, email).Scan(
		&sub.ID,
		&sub.Email,
		&sub.Name,
		&sub.SubscribedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSubscriberNotFound
		}
		return nil, store.NewStoreError("subscriber", "get", "failed to fetch subscriber", MapError(err))
	}

	sub.SubscribedAt = sub.SubscribedAt.UTC()
	return &sub, nil
}

// Count implements store.SubscriberStore.Count
func (s *PostgresSubscriberStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countSubscribersQuery).Scan(&n); err != nil {
		return 0, store.NewStoreError("subscriber", "count", "failed to count subscribers", MapError(err))
	}
	return n, nil
}
