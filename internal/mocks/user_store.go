package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
	"github.com/sprintdeck/sprintdeck-api/internal/store"
)

// MockUserStore is an in-memory store.UserStore.
type MockUserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

// Ensure MockUserStore implements store.UserStore.
var _ store.UserStore = (*MockUserStore)(nil)

// NewMockUserStore creates an empty MockUserStore.
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[uuid.UUID]*domain.User)}
}

// AddUser seeds a user.
func (s *MockUserStore) AddUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[user.ID] = &u
}

// GetByID implements store.UserStore.
func (s *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// ListNotifiable implements store.UserStore.
func (s *MockUserStore) ListNotifiable(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.User
	for _, user := range s.users {
		if user.NotificationsEnabled && user.HasPushToken() {
			u := *user
			out = append(out, &u)
		}
	}
	return out, nil
}

// RecordPushSent implements store.UserStore.
func (s *MockUserStore) RecordPushSent(
	ctx context.Context,
	userID uuid.UUID,
	sentAt time.Time,
	countToday int,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	t := sentAt
	user.LastPushSentAt = &t
	user.NotificationsCountToday = countToday
	return nil
}

// ClearPushToken implements store.UserStore.
func (s *MockUserStore) ClearPushToken(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	user.PushToken = nil
	return nil
}

// WithTx implements store.UserStore; in-memory stores ignore transactions.
func (s *MockUserStore) WithTx(tx *sql.Tx) store.UserStore { return s }

// DB implements store.UserStore.
func (s *MockUserStore) DB() *sql.DB { return nil }
