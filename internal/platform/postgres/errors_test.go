package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintdeck/sprintdeck-api/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil passes through", nil, nil},
		{"no rows maps to not found", sql.ErrNoRows, store.ErrNotFound},
		{"unique violation maps to duplicate", &pgconn.PgError{Code: uniqueViolationCode}, store.ErrDuplicate},
		{"foreign key violation maps to invalid entity", &pgconn.PgError{Code: foreignKeyViolationCode}, store.ErrInvalidEntity},
		{"check violation maps to invalid entity", &pgconn.PgError{Code: checkViolationCode}, store.ErrInvalidEntity},
		{"not null violation maps to invalid entity", &pgconn.PgError{Code: notNullViolationCode}, store.ErrInvalidEntity},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := MapError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestMapErrorPreservesUnknownErrors(t *testing.T) {
	t.Parallel()

	original := errors.New("connection refused")
	assert.Equal(t, original, MapError(original))
}

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckRowsAffected(fakeResult{rows: 1}, "card"))

	err := CheckRowsAffected(fakeResult{rows: 0}, "card")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = CheckRowsAffected(nil, "card")
	require.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: foreignKeyViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}
