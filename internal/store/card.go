package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
)

// DueCard pairs a due card with its owning deck's priority, which the
// selector needs as a tie-break weight.
type DueCard struct {
	Card         *domain.Card
	DeckPriority int
}

// CardStore defines the interface for card data persistence.
type CardStore interface {
	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// Update persists a card's mutable fields: memory state, snooze,
	// last notification time, and the updated timestamp.
	// Returns ErrCardNotFound if the card does not exist.
	Update(ctx context.Context, card *domain.Card) error

	// SnoozeMany sets SnoozedUntil on all given cards in one statement.
	// Used by sprint abandonment; missing IDs are silently skipped so an
	// abandon cannot half-fail on a concurrently deleted card.
	SnoozeMany(ctx context.Context, ids []uuid.UUID, until time.Time) error

	// ListDueCandidates returns the user's due, unsnoozed cards that are
	// not members of any ACTIVE sprint, joined with their deck priority.
	// When deckID is non-nil only cards of exactly that deck are
	// returned (no subdeck expansion). Ordering is not guaranteed; the
	// selector applies the deterministic ordering contract.
	ListDueCandidates(
		ctx context.Context,
		userID uuid.UUID,
		deckID *uuid.UUID,
		now time.Time,
	) ([]DueCard, error)

	// CountDue counts the user's due, unsnoozed cards WITHOUT the
	// active-sprint exclusion. The notification sweep uses it to confirm
	// a user has anything to be reminded about.
	CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)

	// WithTx returns a CardStore bound to the given transaction so
	// multiple operations can share one atomic unit. In-memory
	// implementations return themselves.
	WithTx(tx *sql.Tx) CardStore

	// DB exposes the underlying connection for RunInTransaction.
	// In-memory implementations return nil.
	DB() *sql.DB
}
