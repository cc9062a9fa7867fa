package api

import (
	"errors"
	"net/http"

	"github.com/sprintdeck/sprintdeck-api/internal/service/sprint"
	"github.com/sprintdeck/sprintdeck-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so
// handlers never leak internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, sprint.ErrSprintNotOwned):
		return http.StatusForbidden

	case errors.Is(err, sprint.ErrSprintNotFound),
		errors.Is(err, sprint.ErrCardNotInSprint),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrCardNotFound),
		errors.Is(err, store.ErrSprintNotFound):
		return http.StatusNotFound

	case errors.Is(err, sprint.ErrSprintExpired):
		return http.StatusGone

	case errors.Is(err, sprint.ErrNoEligibleCards),
		errors.Is(err, sprint.ErrSprintNotActive),
		errors.Is(err, sprint.ErrSprintAbandoned),
		errors.Is(err, sprint.ErrSprintIncomplete),
		errors.Is(err, sprint.ErrCardAlreadyReviewed):
		return http.StatusConflict

	case errors.Is(err, sprint.ErrInvalidRating),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns the stable machine-readable code for an error, for
// clients that dispatch on codes rather than status.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, sprint.ErrSprintNotFound), errors.Is(err, store.ErrSprintNotFound):
		return "SPRINT_NOT_FOUND"
	case errors.Is(err, sprint.ErrSprintNotOwned):
		return "SPRINT_NOT_OWNED"
	case errors.Is(err, sprint.ErrNoEligibleCards):
		return "NO_ELIGIBLE_CARDS"
	case errors.Is(err, sprint.ErrSprintExpired):
		return "SPRINT_EXPIRED"
	case errors.Is(err, sprint.ErrSprintNotActive):
		return "SPRINT_NOT_ACTIVE"
	case errors.Is(err, sprint.ErrSprintAbandoned):
		return "SPRINT_ABANDONED"
	case errors.Is(err, sprint.ErrSprintIncomplete):
		return "SPRINT_INCOMPLETE"
	case errors.Is(err, sprint.ErrCardNotInSprint):
		return "CARD_NOT_IN_SPRINT"
	case errors.Is(err, sprint.ErrCardAlreadyReviewed):
		return "CARD_ALREADY_REVIEWED"
	case errors.Is(err, sprint.ErrInvalidRating):
		return "INVALID_RATING"
	case errors.Is(err, store.ErrUserNotFound):
		return "USER_NOT_FOUND"
	case errors.Is(err, store.ErrCardNotFound):
		return "CARD_NOT_FOUND"
	default:
		return "INTERNAL_ERROR"
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for an
// error, hiding internal details behind a generic message.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, sprint.ErrSprintNotFound), errors.Is(err, store.ErrSprintNotFound):
		return "Sprint not found"
	case errors.Is(err, sprint.ErrSprintNotOwned):
		return "You do not own this sprint"
	case errors.Is(err, sprint.ErrNoEligibleCards):
		return "No cards are due for review"
	case errors.Is(err, sprint.ErrSprintExpired):
		return "This sprint has expired"
	case errors.Is(err, sprint.ErrSprintNotActive):
		return "This sprint is not active"
	case errors.Is(err, sprint.ErrSprintAbandoned):
		return "This sprint was abandoned"
	case errors.Is(err, sprint.ErrSprintIncomplete):
		return "Not every card in this sprint has been reviewed"
	case errors.Is(err, sprint.ErrCardNotInSprint):
		return "Card is not part of this sprint"
	case errors.Is(err, sprint.ErrCardAlreadyReviewed):
		return "Card was already reviewed in this sprint"
	case errors.Is(err, sprint.ErrInvalidRating):
		return "Rating must be one of: again, hard, good, easy"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrCardNotFound):
		return "Card not found"
	default:
		return "An unexpected error occurred"
	}
}
