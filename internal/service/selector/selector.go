// Package selector implements due-card selection: it filters through the
// card store and applies the deterministic ordering contract that decides
// which cards make it into a bounded sprint.
package selector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sprintdeck/sprintdeck-api/internal/platform/logger"
	"github.com/sprintdeck/sprintdeck-api/internal/store"
)

// Service selects and orders due cards for a user.
type Service struct {
	cards  store.CardStore
	logger *slog.Logger
}

// NewService creates a new selector Service.
func NewService(cards store.CardStore, log *slog.Logger) *Service {
	if cards == nil {
		panic("cards cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cards:  cards,
		logger: log.With(slog.String("component", "card_selector")),
	}
}

// SelectDue returns up to limit due cards for the user, deck-scoped when
// deckID is non-nil, in the deterministic selection order. An empty
// result is not an error; callers decide what "nothing due" means.
func (s *Service) SelectDue(
	ctx context.Context,
	userID uuid.UUID,
	deckID *uuid.UUID,
	limit int,
	now time.Time,
) ([]store.DueCard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	candidates, err := s.cards.ListDueCandidates(ctx, userID, deckID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due cards: %w", err)
	}

	Order(candidates)

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	log.Debug("selected due cards",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(candidates)))

	return candidates, nil
}

// Order sorts cards into the selection order, all ties broken in turn:
// next review date ascending (most overdue first), card priority
// descending, deck priority descending, card creation time ascending.
func Order(cards []store.DueCard) {
	sort.SliceStable(cards, func(i, j int) bool {
		a, b := cards[i], cards[j]

		if !a.Card.Memory.NextReviewDate.Equal(b.Card.Memory.NextReviewDate) {
			return a.Card.Memory.NextReviewDate.Before(b.Card.Memory.NextReviewDate)
		}
		if a.Card.Priority != b.Card.Priority {
			return a.Card.Priority > b.Card.Priority
		}
		if a.DeckPriority != b.DeckPriority {
			return a.DeckPriority > b.DeckPriority
		}
		return a.Card.CreatedAt.Before(b.Card.CreatedAt)
	})
}
