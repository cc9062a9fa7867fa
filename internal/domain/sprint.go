package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SprintStatus represents the lifecycle state of a review sprint.
type SprintStatus string

// Possible sprint statuses.
const (
	SprintStatusPending   SprintStatus = "pending"
	SprintStatusActive    SprintStatus = "active"
	SprintStatusCompleted SprintStatus = "completed"
	SprintStatusAbandoned SprintStatus = "abandoned"
)

// IsValid reports whether the status is one of the known values.
func (s SprintStatus) IsValid() bool {
	switch s {
	case SprintStatusPending, SprintStatusActive, SprintStatusCompleted, SprintStatusAbandoned:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is completed or abandoned.
func (s SprintStatus) IsTerminal() bool {
	return s == SprintStatusCompleted || s == SprintStatusAbandoned
}

// SprintSource records what initiated a sprint.
type SprintSource string

// Possible sprint sources.
const (
	SprintSourceHome SprintSource = "home"
	SprintSourceDeck SprintSource = "deck"
	SprintSourcePush SprintSource = "push"
)

// IsValid reports whether the source is one of the known values.
func (s SprintSource) IsValid() bool {
	switch s {
	case SprintSourceHome, SprintSourceDeck, SprintSourcePush:
		return true
	default:
		return false
	}
}

// SprintCardResult is the recorded outcome of one card within a sprint.
type SprintCardResult string

// Possible sprint card results.
const (
	SprintCardResultPass SprintCardResult = "pass"
	SprintCardResultFail SprintCardResult = "fail"
)

// Sprint-specific validation errors.
var (
	// ErrSprintIDEmpty is returned when a sprint ID is empty or nil.
	ErrSprintIDEmpty = errors.New("sprint ID cannot be empty")

	// ErrSprintUserIDEmpty is returned when a sprint's user ID is empty or nil.
	ErrSprintUserIDEmpty = errors.New("sprint user ID cannot be empty")

	// ErrSprintCardIDEmpty is returned when a sprint card ID is empty or nil.
	ErrSprintCardIDEmpty = errors.New("sprint card ID cannot be empty")
)

// Sprint is a bounded, ordered review session containing a snapshot of
// due cards taken at creation time. It is the sole mutable aggregate
// root for a review session: all status transitions go through the
// sprint service, and at most one sprint per user is ACTIVE at a time.
type Sprint struct {
	ID             uuid.UUID    `json:"id"`
	UserID         uuid.UUID    `json:"user_id"`
	DeckID         *uuid.UUID   `json:"deck_id"` // nil unless deck-scoped
	Status         SprintStatus `json:"status"`
	Source         SprintSource `json:"source"`
	CreatedAt      time.Time    `json:"created_at"`
	StartedAt      *time.Time   `json:"started_at"`
	CompletedAt    *time.Time   `json:"completed_at"`
	AbandonedAt    *time.Time   `json:"abandoned_at"`
	ResumableUntil *time.Time   `json:"resumable_until"` // Rolling resume window for ACTIVE sprints
}

// NewSprint creates a sprint in the given initial status. Active sprints
// get StartedAt=now and a resume window; pending sprints (push path)
// leave both nil until first access activates them.
func NewSprint(
	userID uuid.UUID,
	deckID *uuid.UUID,
	source SprintSource,
	status SprintStatus,
	now time.Time,
	resumeWindow time.Duration,
) (*Sprint, error) {
	sprint := &Sprint{
		ID:        uuid.New(),
		UserID:    userID,
		DeckID:    deckID,
		Status:    status,
		Source:    source,
		CreatedAt: now,
	}

	if status == SprintStatusActive {
		started := now
		until := now.Add(resumeWindow)
		sprint.StartedAt = &started
		sprint.ResumableUntil = &until
	}

	if err := sprint.Validate(); err != nil {
		return nil, err
	}

	return sprint, nil
}

// Validate checks if the Sprint has valid data.
// Returns an error if any field fails validation.
func (s *Sprint) Validate() error {
	if s.ID == uuid.Nil {
		return ErrSprintIDEmpty
	}

	if s.UserID == uuid.Nil {
		return ErrSprintUserIDEmpty
	}

	if !s.Status.IsValid() {
		return ErrInvalidSprintStatus
	}

	if !s.Source.IsValid() {
		return ErrInvalidSprintSource
	}

	return nil
}

// IsResumable reports whether the sprint is ACTIVE with an unexpired
// resume window at the given time.
func (s *Sprint) IsResumable(now time.Time) bool {
	return s.Status == SprintStatusActive &&
		s.ResumableUntil != nil &&
		s.ResumableUntil.After(now)
}

// IsExpired reports whether the sprint is ACTIVE but its resume window
// has passed, meaning it must be auto-abandoned before any further use.
func (s *Sprint) IsExpired(now time.Time) bool {
	return s.Status == SprintStatusActive &&
		s.ResumableUntil != nil &&
		!s.ResumableUntil.After(now)
}

// SprintCard binds a card into a sprint at a fixed position. Result
// transitions exactly once, from nil to pass or fail.
type SprintCard struct {
	ID       uuid.UUID         `json:"id"`
	SprintID uuid.UUID         `json:"sprint_id"`
	CardID   uuid.UUID         `json:"card_id"`
	Position int               `json:"position"`
	Result   *SprintCardResult `json:"result"` // nil until the card is graded
}

// NewSprintCard creates a SprintCard at the given position.
func NewSprintCard(sprintID, cardID uuid.UUID, position int) (*SprintCard, error) {
	sc := &SprintCard{
		ID:       uuid.New(),
		SprintID: sprintID,
		CardID:   cardID,
		Position: position,
	}

	if sc.SprintID == uuid.Nil || sc.CardID == uuid.Nil {
		return nil, ErrSprintCardIDEmpty
	}

	return sc, nil
}

// SprintStats summarizes a completed sprint.
type SprintStats struct {
	TotalCards      int     `json:"total_cards"`
	ReviewedCards   int     `json:"reviewed_cards"`
	PassCount       int     `json:"pass_count"`
	FailCount       int     `json:"fail_count"`
	DurationSeconds float64 `json:"duration_seconds"`
}
