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

// MockCardStore is an in-memory store.CardStore. When Sprints is set,
// ListDueCandidates excludes members of ACTIVE sprints the way the SQL
// implementation does.
type MockCardStore struct {
	mu      sync.RWMutex
	cards   map[uuid.UUID]*domain.Card
	decks   map[uuid.UUID]*domain.Deck
	Sprints *MockSprintStore

	// Optional per-method overrides for error injection.
	ListDueCandidatesFn func(ctx context.Context, userID uuid.UUID, deckID *uuid.UUID, now time.Time) ([]store.DueCard, error)
	CountDueFn          func(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
}

// Ensure MockCardStore implements store.CardStore.
var _ store.CardStore = (*MockCardStore)(nil)

// NewMockCardStore creates an empty MockCardStore.
func NewMockCardStore() *MockCardStore {
	return &MockCardStore{
		cards: make(map[uuid.UUID]*domain.Card),
		decks: make(map[uuid.UUID]*domain.Deck),
	}
}

// AddDeck seeds a deck.
func (s *MockCardStore) AddDeck(deck *domain.Deck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *deck
	s.decks[deck.ID] = &d
}

// AddCard seeds a card.
func (s *MockCardStore) AddCard(card *domain.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *card
	s.cards[card.ID] = &c
}

// GetByID implements store.CardStore.
func (s *MockCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	card, ok := s.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	c := *card
	return &c, nil
}

// Update implements store.CardStore.
func (s *MockCardStore) Update(ctx context.Context, card *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[card.ID]; !ok {
		return store.ErrCardNotFound
	}
	c := *card
	s.cards[card.ID] = &c
	return nil
}

// SnoozeMany implements store.CardStore.
func (s *MockCardStore) SnoozeMany(ctx context.Context, ids []uuid.UUID, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if card, ok := s.cards[id]; ok {
			u := until
			card.SnoozedUntil = &u
		}
	}
	return nil
}

// ListDueCandidates implements store.CardStore.
func (s *MockCardStore) ListDueCandidates(
	ctx context.Context,
	userID uuid.UUID,
	deckID *uuid.UUID,
	now time.Time,
) ([]store.DueCard, error) {
	if s.ListDueCandidatesFn != nil {
		return s.ListDueCandidatesFn(ctx, userID, deckID, now)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	active := map[uuid.UUID]bool{}
	if s.Sprints != nil {
		active = s.Sprints.activeCardIDs(userID)
	}

	var out []store.DueCard
	for _, card := range s.cards {
		if card.UserID != userID || !card.IsDue(now) {
			continue
		}
		if deckID != nil && card.DeckID != *deckID {
			continue
		}
		deck, ok := s.decks[card.DeckID]
		if !ok || deck.UserID != userID {
			continue
		}
		if active[card.ID] {
			continue
		}
		c := *card
		out = append(out, store.DueCard{Card: &c, DeckPriority: deck.Priority})
	}
	return out, nil
}

// CountDue implements store.CardStore. Unlike ListDueCandidates it does
// not exclude active-sprint members.
func (s *MockCardStore) CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	if s.CountDueFn != nil {
		return s.CountDueFn(ctx, userID, now)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, card := range s.cards {
		if card.UserID == userID && card.IsDue(now) {
			count++
		}
	}
	return count, nil
}

// WithTx implements store.CardStore; in-memory stores ignore transactions.
func (s *MockCardStore) WithTx(tx *sql.Tx) store.CardStore { return s }

// DB implements store.CardStore.
func (s *MockCardStore) DB() *sql.DB { return nil }
