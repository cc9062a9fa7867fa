package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
	"github.com/sprintdeck/sprintdeck-api/internal/store"
)

const userColumns = `id, notifications_enabled, push_token,
	notification_cooldown_minutes, max_notifications_per_day,
	notifications_count_today, last_push_sent_at, quiet_hours_start,
	quiet_hours_end, timezone, sprint_size, created_at, updated_at`

// PostgresUserStore implements the store.UserStore interface using a
// PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	conn   *sql.DB
	logger *slog.Logger
}

// Ensure PostgresUserStore implements store.UserStore.
var _ store.UserStore = (*PostgresUserStore)(nil)

// NewPostgresUserStore creates a new PostgreSQL implementation of the
// UserStore interface. If logger is nil, a default logger will be used.
func NewPostgresUserStore(db *sql.DB, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		conn:   db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// WithTx implements store.UserStore.WithTx.
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{
		db:     tx,
		conn:   s.conn,
		logger: s.logger,
	}
}

// DB implements store.UserStore.DB.
func (s *PostgresUserStore) DB() *sql.DB {
	return s.conn
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.NotificationsEnabled,
		&user.PushToken,
		&user.NotificationCooldownMinutes,
		&user.MaxNotificationsPerDay,
		&user.NotificationsCountToday,
		&user.LastPushSentAt,
		&user.QuietHoursStart,
		&user.QuietHoursEnd,
		&user.Timezone,
		&user.SprintSize,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID implements store.UserStore.GetByID.
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrUserNotFound
		}
		return nil, MapError(err)
	}
	return user, nil
}

// ListNotifiable implements store.UserStore.ListNotifiable.
func (s *PostgresUserStore) ListNotifiable(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE notifications_enabled = TRUE
		  AND push_token IS NOT NULL
		  AND push_token <> ''`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, user)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// RecordPushSent implements store.UserStore.RecordPushSent.
func (s *PostgresUserStore) RecordPushSent(
	ctx context.Context,
	userID uuid.UUID,
	sentAt time.Time,
	countToday int,
) error {
	query := `
		UPDATE users SET
			last_push_sent_at = $2,
			notifications_count_today = $3,
			updated_at = $4
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, userID, sentAt, countToday, time.Now().UTC())
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "user"); err != nil {
		if store.IsNotFoundError(err) {
			return store.ErrUserNotFound
		}
		return err
	}
	return nil
}

// ClearPushToken implements store.UserStore.ClearPushToken.
func (s *PostgresUserStore) ClearPushToken(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE users SET push_token = NULL, updated_at = $2 WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, userID, time.Now().UTC())
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "user"); err != nil {
		if store.IsNotFoundError(err) {
			return store.ErrUserNotFound
		}
		return err
	}
	return nil
}
