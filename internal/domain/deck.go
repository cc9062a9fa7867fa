package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Deck-specific validation errors.
var (
	// ErrDeckIDEmpty is returned when a deck ID is empty or nil.
	ErrDeckIDEmpty = errors.New("deck ID cannot be empty")

	// ErrDeckUserIDEmpty is returned when a deck's user ID is empty or nil.
	ErrDeckUserIDEmpty = errors.New("deck user ID cannot be empty")

	// ErrDeckPriorityRange is returned when a deck's priority is outside 0-100.
	ErrDeckPriorityRange = errors.New("deck priority must be between 0 and 100")

	// ErrDeckSelfParent is returned when a deck is its own parent.
	ErrDeckSelfParent = errors.New("deck cannot be its own parent")
)

// Deck groups cards and contributes a secondary priority weight to card
// selection. Decks nest at most one level deep (a parent deck cannot
// itself have a parent); the store enforces the depth limit on write.
// The scheduling core reads decks but never mutates them.
type Deck struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	ParentID  *uuid.UUID `json:"parent_id"` // nil for top-level decks
	Priority  int        `json:"priority"`  // 0-100, secondary selection weight
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewDeck creates a new Deck with the given owner and priority.
// Returns an error if validation fails.
func NewDeck(userID uuid.UUID, parentID *uuid.UUID, priority int) (*Deck, error) {
	now := time.Now().UTC()
	deck := &Deck{
		ID:        uuid.New(),
		UserID:    userID,
		ParentID:  parentID,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := deck.Validate(); err != nil {
		return nil, err
	}

	return deck, nil
}

// Validate checks if the Deck has valid data.
// Returns an error if any field fails validation.
func (d *Deck) Validate() error {
	if d.ID == uuid.Nil {
		return ErrDeckIDEmpty
	}

	if d.UserID == uuid.Nil {
		return ErrDeckUserIDEmpty
	}

	if d.Priority < 0 || d.Priority > 100 {
		return ErrDeckPriorityRange
	}

	if d.ParentID != nil && *d.ParentID == d.ID {
		return ErrDeckSelfParent
	}

	return nil
}
