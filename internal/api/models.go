package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
)

// Shared validator instance for request payloads.
var validate = validator.New()

// StartSprintRequest is the request payload for POST /sprints.
type StartSprintRequest struct {
	UserID uuid.UUID  `json:"user_id"  validate:"required"`
	DeckID *uuid.UUID `json:"deck_id,omitempty"`
	Source string     `json:"source"   validate:"required,oneof=home deck push"`
}

// ReviewCardRequest is the request payload for grading one card.
type ReviewCardRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Rating string    `json:"rating"  validate:"required,oneof=again hard good easy"`
}

// UserScopedRequest is the request payload for operations that only
// need the acting user.
type UserScopedRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// SprintCardResponse is one card entry in a sprint response.
type SprintCardResponse struct {
	CardID   uuid.UUID `json:"card_id"`
	Position int       `json:"position"`
	Result   *string   `json:"result"`
}

// SprintResponse is the response payload describing a sprint.
type SprintResponse struct {
	ID             uuid.UUID            `json:"id"`
	Status         string               `json:"status"`
	Source         string               `json:"source"`
	DeckID         *uuid.UUID           `json:"deck_id,omitempty"`
	Resumed        bool                 `json:"resumed,omitempty"`
	StartedAt      *time.Time           `json:"started_at,omitempty"`
	ResumableUntil *time.Time           `json:"resumable_until,omitempty"`
	Cards          []SprintCardResponse `json:"cards,omitempty"`
}

// ReviewCardResponse is the response payload after grading a card.
type ReviewCardResponse struct {
	CardID         uuid.UUID `json:"card_id"`
	Result         string    `json:"result"`
	State          string    `json:"state"`
	NextReviewDate time.Time `json:"next_review_date"`
	ResumableUntil time.Time `json:"resumable_until"`
}

// CompleteSprintResponse is the response payload for completion.
type CompleteSprintResponse struct {
	ID          uuid.UUID          `json:"id"`
	Status      string             `json:"status"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Stats       domain.SprintStats `json:"stats"`
}

// AbandonSprintResponse is the response payload for abandonment.
type AbandonSprintResponse struct {
	ID               uuid.UUID `json:"id"`
	Status           string    `json:"status"`
	SnoozedCardCount int       `json:"snoozed_card_count"`
}

// SweepResponse summarizes a manually triggered notification sweep.
type SweepResponse struct {
	UsersConsidered int            `json:"users_considered"`
	SprintsCreated  int            `json:"sprints_created"`
	PushesSent      int            `json:"pushes_sent"`
	PushFailures    int            `json:"push_failures"`
	TokensCleared   int            `json:"tokens_cleared"`
	Ineligible      map[string]int `json:"ineligible,omitempty"`
}

func newSprintResponse(sprint *domain.Sprint, cards []*domain.SprintCard, resumed bool) SprintResponse {
	resp := SprintResponse{
		ID:             sprint.ID,
		Status:         string(sprint.Status),
		Source:         string(sprint.Source),
		DeckID:         sprint.DeckID,
		Resumed:        resumed,
		StartedAt:      sprint.StartedAt,
		ResumableUntil: sprint.ResumableUntil,
	}
	for _, sc := range cards {
		var result *string
		if sc.Result != nil {
			r := string(*sc.Result)
			result = &r
		}
		resp.Cards = append(resp.Cards, SprintCardResponse{
			CardID:   sc.CardID,
			Position: sc.Position,
			Result:   result,
		})
	}
	return resp
}
