package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
)

// SprintStore defines the interface for sprint and sprint-card
// persistence. Sprints and their cards are created atomically and only
// ever mutated through the sprint service.
type SprintStore interface {
	// GetByID retrieves a sprint by its unique ID.
	// Returns ErrSprintNotFound if the sprint does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Sprint, error)

	// GetCards returns the sprint's cards ordered by position.
	GetCards(ctx context.Context, sprintID uuid.UUID) ([]*domain.SprintCard, error)

	// GetResumableForUser returns the user's ACTIVE sprint whose resume
	// window has not passed. Returns ErrSprintNotFound if none exists.
	// At most one can exist at a time.
	GetResumableForUser(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.Sprint, error)

	// GetActiveForUser returns the user's ACTIVE sprint regardless of the
	// resume window, so expired sprints can be auto-abandoned before a
	// new one is created. Returns ErrSprintNotFound if none exists.
	GetActiveForUser(ctx context.Context, userID uuid.UUID) (*domain.Sprint, error)

	// CreateWithCards inserts the sprint and its ordered cards.
	// MUST run within a transaction; use WithTx under RunInTransaction.
	CreateWithCards(ctx context.Context, sprint *domain.Sprint, cards []*domain.SprintCard) error

	// Update persists the sprint's status and lifecycle timestamps.
	// Returns ErrSprintNotFound if the sprint does not exist.
	Update(ctx context.Context, sprint *domain.Sprint) error

	// SetCardResult records the result of one sprint card. The write is
	// conditional on the result still being unset; if it was already
	// recorded the method returns ErrUpdateFailed, which the service
	// surfaces as a duplicate review.
	SetCardResult(ctx context.Context, sprintCardID uuid.UUID, result domain.SprintCardResult) error

	// Delete removes a sprint and, via cascade, its sprint cards. Used by
	// the notification sweep to clean up PENDING sprints whose push send
	// failed. Returns ErrSprintNotFound if the sprint does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a SprintStore bound to the given transaction.
	// In-memory implementations return themselves.
	WithTx(tx *sql.Tx) SprintStore

	// DB exposes the underlying connection for RunInTransaction.
	// In-memory implementations return nil.
	DB() *sql.DB
}
