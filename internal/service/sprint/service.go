// Package sprint implements the review-session state machine: creating,
// resuming, grading, completing, and abandoning sprints, including the
// rolling resume window and the snooze applied to leftover cards when a
// session is abandoned.
package sprint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
)

// Lifecycle constants.
const (
	// ResumeWindow is the rolling window during which an ACTIVE sprint
	// can still be continued. Every graded card extends it.
	ResumeWindow = 30 * time.Minute

	// AbandonSnooze is how long an abandoned sprint's unreviewed cards
	// stay out of selection, so they don't immediately reappear in the
	// next sprint or notification sweep.
	AbandonSnooze = 120 * time.Minute
)

// Common error types for the sprint service. Each maps onto one failure
// code of the caller-facing contract; callers dispatch with errors.Is.
var (
	// ErrSprintNotFound indicates the sprint does not exist.
	ErrSprintNotFound = errors.New("sprint not found")

	// ErrSprintNotOwned indicates the sprint belongs to another user.
	ErrSprintNotOwned = errors.New("unauthorized access: sprint not owned by user")

	// ErrNoEligibleCards indicates no due cards were available to build a
	// sprint. Expected and non-fatal: callers treat it as "nothing to do".
	ErrNoEligibleCards = errors.New("no eligible cards for sprint")

	// ErrSprintExpired indicates the resume window passed; the sprint has
	// been auto-abandoned.
	ErrSprintExpired = errors.New("sprint resume window expired")

	// ErrSprintNotActive indicates an operation requiring an ACTIVE
	// sprint hit one in another status.
	ErrSprintNotActive = errors.New("sprint is not active")

	// ErrSprintAbandoned indicates completion was attempted on an
	// abandoned sprint.
	ErrSprintAbandoned = errors.New("sprint is abandoned")

	// ErrSprintIncomplete indicates completion was attempted while some
	// cards are still ungraded.
	ErrSprintIncomplete = errors.New("sprint has unreviewed cards")

	// ErrCardNotInSprint indicates the graded card is not part of the
	// sprint.
	ErrCardNotInSprint = errors.New("card not in sprint")

	// ErrCardAlreadyReviewed indicates the sprint card's result was
	// already recorded.
	ErrCardAlreadyReviewed = errors.New("card already reviewed in this sprint")

	// ErrInvalidRating indicates the rating is not again/hard/good/easy.
	ErrInvalidRating = errors.New("invalid review rating")
)

// StartResult is returned by Start and CreatePending.
type StartResult struct {
	Sprint  *domain.Sprint
	Cards   []*domain.SprintCard
	Resumed bool
}

// GetResult is returned by Get.
type GetResult struct {
	Sprint *domain.Sprint
	Cards  []*domain.SprintCard
}

// ReviewResult is returned by Review: the sprint snapshot plus the
// updated card as a side channel.
type ReviewResult struct {
	Sprint     *domain.Sprint
	SprintCard *domain.SprintCard
	Card       *domain.Card
}

// CompleteResult is returned by Complete.
type CompleteResult struct {
	Sprint *domain.Sprint
	Stats  domain.SprintStats
}

// AbandonResult is returned by Abandon.
type AbandonResult struct {
	Sprint           *domain.Sprint
	SnoozedCardCount int
}

// SprintService owns the sprint state machine. All mutating operations
// are atomic units: either every effect of the operation is visible or
// none is.
type SprintService interface {
	// Start returns the user's resumable sprint if one exists
	// (Resumed=true, no writes), otherwise creates a new ACTIVE sprint
	// from up to sprintSize due cards. Deck-scoped when deckID is
	// non-nil. Returns ErrNoEligibleCards when nothing is due.
	Start(
		ctx context.Context,
		userID uuid.UUID,
		deckID *uuid.UUID,
		source domain.SprintSource,
	) (*StartResult, error)

	// CreatePending creates a PENDING push-path sprint that a
	// notification can reference before the user opens it. StartedAt and
	// ResumableUntil stay unset until first access activates it.
	CreatePending(ctx context.Context, userID uuid.UUID, sprintSize int) (*StartResult, error)

	// Get returns the sprint after applying lazy transitions: an expired
	// ACTIVE sprint is auto-abandoned first; a PENDING sprint is
	// activated on first access.
	Get(ctx context.Context, sprintID, userID uuid.UUID) (*GetResult, error)

	// Review grades one card: runs the scheduler on the card's memory
	// state, persists the card, records the sprint-card result, and
	// extends the resume window, all in one atomic unit.
	Review(
		ctx context.Context,
		sprintID, userID, cardID uuid.UUID,
		rating domain.Rating,
	) (*ReviewResult, error)

	// Complete marks a fully-reviewed sprint COMPLETED and returns its
	// stats. Completing an already-completed sprint is idempotent.
	Complete(ctx context.Context, sprintID, userID uuid.UUID) (*CompleteResult, error)

	// Abandon marks the sprint ABANDONED and snoozes every unreviewed
	// card. Abandoning a terminal sprint is idempotent and snoozes
	// nothing.
	Abandon(ctx context.Context, sprintID, userID uuid.UUID) (*AbandonResult, error)
}

// ServiceError wraps errors from the sprint service with operation
// context, so consumers can differentiate failures with errors.As
// instead of string matching.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}
