package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/newsletter-api/internal/domain"
	"github.com/phrazzld/newsletter-api/internal/store"
)

// MockSubscriberStore implements store.SubscriberStore for testing.
// With no Fn or Err set it behaves like an empty in-memory store that
// rejects duplicate emails.
type MockSubscriberStore struct {
	// Custom behavior functions
	InsertFn     func(ctx context.Context, subscriber *domain.Subscriber) error
	GetByEmailFn func(ctx context.Context, email string) (*domain.Subscriber, error)
	CountFn      func(ctx context.Context) (int, error)

	// Err, when set, is returned by every method without a custom function.
	Err error

	mu          sync.Mutex
	subscribers map[string]*domain.Subscriber

	// Call tracking for verification
	InsertCalls struct {
		Count       int
		Subscribers []*domain.Subscriber
	}
}

// Ensure MockSubscriberStore implements store.SubscriberStore
var _ store.SubscriberStore = (*MockSubscriberStore)(nil)

// NewMockSubscriberStore returns an empty MockSubscriberStore.
func NewMockSubscriberStore() *MockSubscriberStore {
	return &MockSubscriberStore{subscribers: make(map[string]*domain.Subscriber)}
}

// Insert implements store.SubscriberStore.Insert
func (m *MockSubscriberStore) Insert(ctx context.Context, subscriber *domain.Subscriber) error {
	m.mu.Lock()
	m.InsertCalls.Count++
	m.InsertCalls.Subscribers = append(m.InsertCalls.Subscribers, subscriber)
	m.mu.Unlock()

	if m.InsertFn != nil {
		return m.InsertFn(ctx, subscriber)
	}
	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribers == nil {
		m.subscribers = make(map[string]*domain.Subscriber)
	}
	if _, exists := m.subscribers[subscriber.Email]; exists {
		return store.NewStoreError("subscriber", "insert", "email already subscribed", store.ErrEmailExists)
	}
	m.subscribers[subscriber.Email] = subscriber
	return nil
}

// GetByEmail implements store.SubscriberStore.GetByEmail
func (m *MockSubscriberStore) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscribers[email]
	if !ok {
		return nil, store.ErrSubscriberNotFound
	}
	return sub, nil
}

// Count implements store.SubscriberStore.Count
func (m *MockSubscriberStore) Count(ctx context.Context) (int, error) {
	if m.CountFn != nil {
		return m.CountFn(ctx)
	}
	if m.Err != nil {
		return 0, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers), nil
}

// InsertCount returns how many times Insert was called.
func (m *MockSubscriberStore) InsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.InsertCalls.Count
}
