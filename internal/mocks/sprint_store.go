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

// MockSprintStore is an in-memory store.SprintStore.
type MockSprintStore struct {
	mu          sync.RWMutex
	sprints     map[uuid.UUID]*domain.Sprint
	sprintCards map[uuid.UUID][]*domain.SprintCard // keyed by sprint ID

	// Optional per-method overrides for error injection.
	DeleteFn func(ctx context.Context, id uuid.UUID) error
}

// Ensure MockSprintStore implements store.SprintStore.
var _ store.SprintStore = (*MockSprintStore)(nil)

// NewMockSprintStore creates an empty MockSprintStore.
func NewMockSprintStore() *MockSprintStore {
	return &MockSprintStore{
		sprints:     make(map[uuid.UUID]*domain.Sprint),
		sprintCards: make(map[uuid.UUID][]*domain.SprintCard),
	}
}

// activeCardIDs returns the card IDs held by the user's ACTIVE sprints.
// Used by MockCardStore to mirror the SQL exclusion join.
func (s *MockSprintStore) activeCardIDs(userID uuid.UUID) map[uuid.UUID]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]bool)
	for _, sprint := range s.sprints {
		if sprint.UserID != userID || sprint.Status != domain.SprintStatusActive {
			continue
		}
		for _, sc := range s.sprintCards[sprint.ID] {
			out[sc.CardID] = true
		}
	}
	return out
}

// GetByID implements store.SprintStore.
func (s *MockSprintStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sprint, ok := s.sprints[id]
	if !ok {
		return nil, store.ErrSprintNotFound
	}
	sp := *sprint
	return &sp, nil
}

// GetCards implements store.SprintStore.
func (s *MockSprintStore) GetCards(ctx context.Context, sprintID uuid.UUID) ([]*domain.SprintCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cards := s.sprintCards[sprintID]
	out := make([]*domain.SprintCard, len(cards))
	for i, sc := range cards {
		c := *sc
		out[i] = &c
	}
	return out, nil
}

// GetResumableForUser implements store.SprintStore.
func (s *MockSprintStore) GetResumableForUser(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) (*domain.Sprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sprint := range s.sprints {
		if sprint.UserID == userID && sprint.IsResumable(now) {
			sp := *sprint
			return &sp, nil
		}
	}
	return nil, store.ErrSprintNotFound
}

// GetActiveForUser implements store.SprintStore.
func (s *MockSprintStore) GetActiveForUser(ctx context.Context, userID uuid.UUID) (*domain.Sprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sprint := range s.sprints {
		if sprint.UserID == userID && sprint.Status == domain.SprintStatusActive {
			sp := *sprint
			return &sp, nil
		}
	}
	return nil, store.ErrSprintNotFound
}

// CreateWithCards implements store.SprintStore.
func (s *MockSprintStore) CreateWithCards(
	ctx context.Context,
	sprint *domain.Sprint,
	cards []*domain.SprintCard,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sprints[sprint.ID]; ok {
		return store.ErrDuplicate
	}

	sp := *sprint
	s.sprints[sprint.ID] = &sp
	stored := make([]*domain.SprintCard, len(cards))
	for i, sc := range cards {
		c := *sc
		stored[i] = &c
	}
	s.sprintCards[sprint.ID] = stored
	return nil
}

// Update implements store.SprintStore.
func (s *MockSprintStore) Update(ctx context.Context, sprint *domain.Sprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sprints[sprint.ID]; !ok {
		return store.ErrSprintNotFound
	}
	sp := *sprint
	s.sprints[sprint.ID] = &sp
	return nil
}

// SetCardResult implements store.SprintStore. The write is conditional
// on the result still being unset, mirroring the SQL WHERE clause.
func (s *MockSprintStore) SetCardResult(
	ctx context.Context,
	sprintCardID uuid.UUID,
	result domain.SprintCardResult,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cards := range s.sprintCards {
		for _, sc := range cards {
			if sc.ID != sprintCardID {
				continue
			}
			if sc.Result != nil {
				return store.ErrUpdateFailed
			}
			r := result
			sc.Result = &r
			return nil
		}
	}
	return store.ErrSprintCardNotFound
}

// Delete implements store.SprintStore.
func (s *MockSprintStore) Delete(ctx context.Context, id uuid.UUID) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sprints[id]; !ok {
		return store.ErrSprintNotFound
	}
	delete(s.sprints, id)
	delete(s.sprintCards, id)
	return nil
}

// WithTx implements store.SprintStore; in-memory stores ignore transactions.
func (s *MockSprintStore) WithTx(tx *sql.Tx) store.SprintStore { return s }

// DB implements store.SprintStore.
func (s *MockSprintStore) DB() *sql.DB { return nil }
