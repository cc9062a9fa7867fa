package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
)

// UserStore defines the interface for the notification-profile side of
// user persistence. Account management lives outside this core.
type UserStore interface {
	// GetByID retrieves a user by ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// ListNotifiable returns users with notifications enabled and a
	// registered push token. This is the sweep's cheap pre-filter; full
	// eligibility is re-checked per user.
	ListNotifiable(ctx context.Context) ([]*domain.User, error)

	// RecordPushSent updates LastPushSentAt and NotificationsCountToday
	// after a successful push delivery. The caller computes countToday
	// (reset vs. increment at the UTC-day boundary).
	RecordPushSent(ctx context.Context, userID uuid.UUID, sentAt time.Time, countToday int) error

	// ClearPushToken removes the user's stored push token after the
	// delivery collaborator reports it permanently invalid.
	ClearPushToken(ctx context.Context, userID uuid.UUID) error

	// WithTx returns a UserStore bound to the given transaction.
	// In-memory implementations return themselves.
	WithTx(tx *sql.Tx) UserStore

	// DB exposes the underlying connection for RunInTransaction.
	// In-memory implementations return nil.
	DB() *sql.DB
}
