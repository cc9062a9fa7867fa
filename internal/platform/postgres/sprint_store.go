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

const sprintColumns = `id, user_id, deck_id, status, source, created_at,
	started_at, completed_at, abandoned_at, resumable_until`

// PostgresSprintStore implements the store.SprintStore interface using a
// PostgreSQL database as the storage backend.
type PostgresSprintStore struct {
	db     store.DBTX
	conn   *sql.DB
	logger *slog.Logger
}

// Ensure PostgresSprintStore implements store.SprintStore.
var _ store.SprintStore = (*PostgresSprintStore)(nil)

// NewPostgresSprintStore creates a new PostgreSQL implementation of the
// SprintStore interface. If logger is nil, a default logger will be used.
func NewPostgresSprintStore(db *sql.DB, logger *slog.Logger) *PostgresSprintStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSprintStore{
		db:     db,
		conn:   db,
		logger: logger.With(slog.String("component", "sprint_store")),
	}
}

// WithTx implements store.SprintStore.WithTx.
func (s *PostgresSprintStore) WithTx(tx *sql.Tx) store.SprintStore {
	return &PostgresSprintStore{
		db:     tx,
		conn:   s.conn,
		logger: s.logger,
	}
}

// DB implements store.SprintStore.DB.
func (s *PostgresSprintStore) DB() *sql.DB {
	return s.conn
}

func scanSprint(row rowScanner) (*domain.Sprint, error) {
	var sprint domain.Sprint
	err := row.Scan(
		&sprint.ID,
		&sprint.UserID,
		&sprint.DeckID,
		&sprint.Status,
		&sprint.Source,
		&sprint.CreatedAt,
		&sprint.StartedAt,
		&sprint.CompletedAt,
		&sprint.AbandonedAt,
		&sprint.ResumableUntil,
	)
	if err != nil {
		return nil, err
	}
	return &sprint, nil
}

func (s *PostgresSprintStore) getOne(ctx context.Context, query string, args ...any) (*domain.Sprint, error) {
	sprint, err := scanSprint(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrSprintNotFound
		}
		return nil, MapError(err)
	}
	return sprint, nil
}

// GetByID implements store.SprintStore.GetByID.
func (s *PostgresSprintStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sprint, error) {
	return s.getOne(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE id = $1`, id)
}

// GetResumableForUser implements store.SprintStore.GetResumableForUser.
func (s *PostgresSprintStore) GetResumableForUser(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) (*domain.Sprint, error) {
	query := `
		SELECT ` + sprintColumns + `
		FROM sprints
		WHERE user_id = $1 AND status = 'active' AND resumable_until > $2
		ORDER BY created_at DESC
		LIMIT 1`
	return s.getOne(ctx, query, userID, now)
}

// GetActiveForUser implements store.SprintStore.GetActiveForUser.
func (s *PostgresSprintStore) GetActiveForUser(ctx context.Context, userID uuid.UUID) (*domain.Sprint, error) {
	query := `
		SELECT ` + sprintColumns + `
		FROM sprints
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1`
	return s.getOne(ctx, query, userID)
}

// GetCards implements store.SprintStore.GetCards.
func (s *PostgresSprintStore) GetCards(ctx context.Context, sprintID uuid.UUID) ([]*domain.SprintCard, error) {
	query := `
		SELECT id, sprint_id, card_id, position, result
		FROM sprint_cards
		WHERE sprint_id = $1
		ORDER BY position ASC`

	rows, err := s.db.QueryContext(ctx, query, sprintID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.SprintCard
	for rows.Next() {
		var sc domain.SprintCard
		if err := rows.Scan(&sc.ID, &sc.SprintID, &sc.CardID, &sc.Position, &sc.Result); err != nil {
			return nil, MapError(err)
		}
		out = append(out, &sc)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// CreateWithCards implements store.SprintStore.CreateWithCards.
func (s *PostgresSprintStore) CreateWithCards(
	ctx context.Context,
	sprint *domain.Sprint,
	cards []*domain.SprintCard,
) error {
	sprintQuery := `
		INSERT INTO sprints (` + sprintColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, sprintQuery,
		sprint.ID,
		sprint.UserID,
		sprint.DeckID,
		sprint.Status,
		sprint.Source,
		sprint.CreatedAt,
		sprint.StartedAt,
		sprint.CompletedAt,
		sprint.AbandonedAt,
		sprint.ResumableUntil,
	)
	if err != nil {
		return MapError(err)
	}

	cardQuery := `
		INSERT INTO sprint_cards (id, sprint_id, card_id, position, result)
		VALUES ($1, $2, $3, $4, $5)`

	for _, sc := range cards {
		if _, err := s.db.ExecContext(ctx, cardQuery, sc.ID, sc.SprintID, sc.CardID, sc.Position, sc.Result); err != nil {
			return MapError(err)
		}
	}
	return nil
}

// Update implements store.SprintStore.Update.
func (s *PostgresSprintStore) Update(ctx context.Context, sprint *domain.Sprint) error {
	query := `
		UPDATE sprints SET
			status = $2,
			started_at = $3,
			completed_at = $4,
			abandoned_at = $5,
			resumable_until = $6
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		sprint.ID,
		sprint.Status,
		sprint.StartedAt,
		sprint.CompletedAt,
		sprint.AbandonedAt,
		sprint.ResumableUntil,
	)
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "sprint"); err != nil {
		if store.IsNotFoundError(err) {
			return store.ErrSprintNotFound
		}
		return err
	}
	return nil
}

// SetCardResult implements store.SprintStore.SetCardResult. The WHERE
// clause makes the write conditional on the result being unset, so a
// duplicate review turns into zero affected rows instead of an
// overwrite.
func (s *PostgresSprintStore) SetCardResult(
	ctx context.Context,
	sprintCardID uuid.UUID,
	result domain.SprintCardResult,
) error {
	query := `UPDATE sprint_cards SET result = $2 WHERE id = $1 AND result IS NULL`

	res, err := s.db.ExecContext(ctx, query, sprintCardID, result)
	if err != nil {
		return MapError(err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rows == 0 {
		// Either the row is missing or the result was already written;
		// disambiguate so the service can report a duplicate review.
		var exists bool
		checkErr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM sprint_cards WHERE id = $1)`, sprintCardID).Scan(&exists)
		if checkErr != nil {
			return MapError(checkErr)
		}
		if !exists {
			return store.ErrSprintCardNotFound
		}
		return store.ErrUpdateFailed
	}
	return nil
}

// Delete implements store.SprintStore.Delete. Sprint cards go with it
// via ON DELETE CASCADE.
func (s *PostgresSprintStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sprints WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "sprint"); err != nil {
		if store.IsNotFoundError(err) {
			return store.ErrSprintNotFound
		}
		return err
	}
	return nil
}
