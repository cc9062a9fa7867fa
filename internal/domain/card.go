package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Rating represents the user's self-reported recall quality for a
// reviewed card.
type Rating string

// Possible rating values.
const (
	RatingAgain Rating = "again"
	RatingHard  Rating = "hard"
	RatingGood  Rating = "good"
	RatingEasy  Rating = "easy"
)

// IsValid reports whether the rating is one of the four known values.
func (r Rating) IsValid() bool {
	switch r {
	case RatingAgain, RatingHard, RatingGood, RatingEasy:
		return true
	default:
		return false
	}
}

// CardState represents where a card sits in the memory model.
type CardState string

// Possible card states.
const (
	CardStateNew        CardState = "new"
	CardStateLearning   CardState = "learning"
	CardStateReview     CardState = "review"
	CardStateRelearning CardState = "relearning"
)

// Card-specific validation errors.
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardUserIDEmpty is returned when a card's user ID is empty or nil.
	ErrCardUserIDEmpty = errors.New("card user ID cannot be empty")

	// ErrCardDeckIDEmpty is returned when a card's deck ID is empty or nil.
	ErrCardDeckIDEmpty = errors.New("card deck ID cannot be empty")

	// ErrCardPriorityRange is returned when a card's priority is outside 0-100.
	ErrCardPriorityRange = errors.New("card priority must be between 0 and 100")
)

// MemoryState holds the spaced-repetition parameters for a single card.
// It is produced and evolved exclusively by the fsrs package; NextReviewDate
// is never hand-set outside of explicit snooze handling on the owning Card.
type MemoryState struct {
	Stability      float64    `json:"stability"`        // Memory stability in days, >0 after first review
	Difficulty     float64    `json:"difficulty"`       // Clamped to [1, 10] after first review
	State          CardState  `json:"state"`            // new, learning, review, relearning
	Reps           int        `json:"reps"`             // Successful recall attempts
	Lapses         int        `json:"lapses"`           // Times the card fell out of review
	LastReview     *time.Time `json:"last_review"`      // nil before first review
	ElapsedDays    int        `json:"elapsed_days"`     // Days between the last two reviews
	ScheduledDays  int        `json:"scheduled_days"`   // Days until the next scheduled review
	NextReviewDate time.Time  `json:"next_review_date"` // When the card becomes due
}

// Card represents a flashcard owned by a deck, carrying its embedded
// memory state. Content fields (front/back) live outside the scheduling
// core and are not modeled here.
type Card struct {
	ID                   uuid.UUID   `json:"id"`
	UserID               uuid.UUID   `json:"user_id"`
	DeckID               uuid.UUID   `json:"deck_id"`
	Priority             int         `json:"priority"`               // 0-100, tie-break weight in selection
	SnoozedUntil         *time.Time  `json:"snoozed_until"`          // Excluded from selection until this passes
	LastNotificationSent *time.Time  `json:"last_notification_sent"`
	Memory               MemoryState `json:"memory"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// NewCard creates a new Card in the NEW state, due immediately.
// Returns an error if validation fails.
func NewCard(userID, deckID uuid.UUID, priority int) (*Card, error) {
	now := time.Now().UTC()
	card := &Card{
		ID:       uuid.New(),
		UserID:   userID,
		DeckID:   deckID,
		Priority: priority,
		Memory: MemoryState{
			State:          CardStateNew,
			NextReviewDate: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
// Returns an error if any field fails validation.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.UserID == uuid.Nil {
		return ErrCardUserIDEmpty
	}

	if c.DeckID == uuid.Nil {
		return ErrCardDeckIDEmpty
	}

	if c.Priority < 0 || c.Priority > 100 {
		return ErrCardPriorityRange
	}

	return nil
}

// IsDue reports whether the card is due and unsnoozed at the given time.
func (c *Card) IsDue(now time.Time) bool {
	if c.Memory.NextReviewDate.After(now) {
		return false
	}
	if c.SnoozedUntil != nil && c.SnoozedUntil.After(now) {
		return false
	}
	return true
}

// Snooze excludes the card from due-selection until the given time and
// bumps the updated timestamp. The memory state is untouched.
func (c *Card) Snooze(until time.Time) {
	u := until
	c.SnoozedUntil = &u
	c.UpdatedAt = time.Now().UTC()
}
