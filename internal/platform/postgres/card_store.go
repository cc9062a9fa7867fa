package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
	"github.com/sprintdeck/sprintdeck-api/internal/store"
)

// cardColumns is the shared projection for card reads; scanCard must
// stay in sync with it.
const cardColumns = `c.id, c.user_id, c.deck_id, c.priority, c.snoozed_until,
	c.last_notification_sent, c.stability, c.difficulty, c.state, c.reps,
	c.lapses, c.last_review, c.elapsed_days, c.scheduled_days,
	c.next_review_date, c.created_at, c.updated_at`

// PostgresCardStore implements the store.CardStore interface using a
// PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	conn   *sql.DB
	logger *slog.Logger
}

// Ensure PostgresCardStore implements store.CardStore.
var _ store.CardStore = (*PostgresCardStore)(nil)

// NewPostgresCardStore creates a new PostgreSQL implementation of the
// CardStore interface. If logger is nil, a default logger will be used.
func NewPostgresCardStore(db *sql.DB, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		conn:   db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// WithTx implements store.CardStore.WithTx.
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{
		db:     tx,
		conn:   s.conn,
		logger: s.logger,
	}
}

// DB implements store.CardStore.DB.
func (s *PostgresCardStore) DB() *sql.DB {
	return s.conn
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var card domain.Card
	err := row.Scan(
		&card.ID,
		&card.UserID,
		&card.DeckID,
		&card.Priority,
		&card.SnoozedUntil,
		&card.LastNotificationSent,
		&card.Memory.Stability,
		&card.Memory.Difficulty,
		&card.Memory.State,
		&card.Memory.Reps,
		&card.Memory.Lapses,
		&card.Memory.LastReview,
		&card.Memory.ElapsedDays,
		&card.Memory.ScheduledDays,
		&card.Memory.NextReviewDate,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// GetByID implements store.CardStore.GetByID.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards c WHERE c.id = $1`

	card, err := scanCard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrCardNotFound
		}
		return nil, MapError(err)
	}
	return card, nil
}

// Update implements store.CardStore.Update. Only the mutable scheduling
// fields are written; identity and ownership columns never change.
func (s *PostgresCardStore) Update(ctx context.Context, card *domain.Card) error {
	query := `
		UPDATE cards SET
			priority = $2,
			snoozed_until = $3,
			last_notification_sent = $4,
			stability = $5,
			difficulty = $6,
			state = $7,
			reps = $8,
			lapses = $9,
			last_review = $10,
			elapsed_days = $11,
			scheduled_days = $12,
			next_review_date = $13,
			updated_at = $14
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		card.ID,
		card.Priority,
		card.SnoozedUntil,
		card.LastNotificationSent,
		card.Memory.Stability,
		card.Memory.Difficulty,
		card.Memory.State,
		card.Memory.Reps,
		card.Memory.Lapses,
		card.Memory.LastReview,
		card.Memory.ElapsedDays,
		card.Memory.ScheduledDays,
		card.Memory.NextReviewDate,
		card.UpdatedAt,
	)
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "card"); err != nil {
		if store.IsNotFoundError(err) {
			return store.ErrCardNotFound
		}
		return err
	}
	return nil
}

// SnoozeMany implements store.CardStore.SnoozeMany. Missing IDs are
// skipped rather than treated as an error.
func (s *PostgresCardStore) SnoozeMany(ctx context.Context, ids []uuid.UUID, until time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, until, time.Now().UTC())
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`UPDATE cards SET snoozed_until = $1, updated_at = $2 WHERE id IN (%s)`,
		strings.Join(placeholders, ", "),
	)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return MapError(err)
	}
	return nil
}

// ListDueCandidates implements store.CardStore.ListDueCandidates.
// Filtering happens here; ordering is the selector's job.
func (s *PostgresCardStore) ListDueCandidates(
	ctx context.Context,
	userID uuid.UUID,
	deckID *uuid.UUID,
	now time.Time,
) ([]store.DueCard, error) {
	query := `
		SELECT ` + cardColumns + `, d.priority
		FROM cards c
		JOIN decks d ON d.id = c.deck_id
		WHERE c.user_id = $1
		  AND c.next_review_date <= $2
		  AND (c.snoozed_until IS NULL OR c.snoozed_until <= $2)
		  AND NOT EXISTS (
			SELECT 1
			FROM sprint_cards sc
			JOIN sprints sp ON sp.id = sc.sprint_id
			WHERE sc.card_id = c.id AND sp.status = 'active'
		  )`

	args := []any{userID, now}
	if deckID != nil {
		query += ` AND c.deck_id = $3`
		args = append(args, *deckID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.DueCard
	for rows.Next() {
		var card domain.Card
		var deckPriority int
		err := rows.Scan(
			&card.ID,
			&card.UserID,
			&card.DeckID,
			&card.Priority,
			&card.SnoozedUntil,
			&card.LastNotificationSent,
			&card.Memory.Stability,
			&card.Memory.Difficulty,
			&card.Memory.State,
			&card.Memory.Reps,
			&card.Memory.Lapses,
			&card.Memory.LastReview,
			&card.Memory.ElapsedDays,
			&card.Memory.ScheduledDays,
			&card.Memory.NextReviewDate,
			&card.CreatedAt,
			&card.UpdatedAt,
			&deckPriority,
		)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, store.DueCard{Card: &card, DeckPriority: deckPriority})
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// CountDue implements store.CardStore.CountDue.
func (s *PostgresCardStore) CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM cards c
		WHERE c.user_id = $1
		  AND c.next_review_date <= $2
		  AND (c.snoozed_until IS NULL OR c.snoozed_until <= $2)`

	var count int
	if err := s.db.QueryRowContext(ctx, query, userID, now).Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}
