package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sprintdeck/sprintdeck-api/internal/api/shared"
	"github.com/sprintdeck/sprintdeck-api/internal/domain"
	"github.com/sprintdeck/sprintdeck-api/internal/platform/logger"
	"github.com/sprintdeck/sprintdeck-api/internal/service/sprint"
)

// SprintHandler exposes the sprint lifecycle over HTTP.
type SprintHandler struct {
	service sprint.SprintService
	logger  *slog.Logger
}

// NewSprintHandler creates a new SprintHandler.
func NewSprintHandler(service sprint.SprintService, log *slog.Logger) *SprintHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SprintHandler{
		service: service,
		logger:  log.With(slog.String("component", "sprint_handler")),
	}
}

func (h *SprintHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	if status == http.StatusInternalServerError {
		log := logger.FromContextOrDefault(r.Context(), h.logger)
		log.Error("sprint handler error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	shared.RespondWithError(w, r, status, ErrorCode(err), GetSafeErrorMessage(err))
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Request failed validation")
		return false
	}
	return true
}

func sprintIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Invalid sprint ID")
		return uuid.Nil, false
	}
	return id, true
}

func cardIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "cardID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Invalid card ID")
		return uuid.Nil, false
	}
	return id, true
}

// StartSprint handles POST /sprints. Returns 200 with the resumable
// sprint when one exists, otherwise 201 with a fresh one.
func (h *SprintHandler) StartSprint(w http.ResponseWriter, r *http.Request) {
	var req StartSprintRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Start(r.Context(), req.UserID, req.DeckID, domain.SprintSource(req.Source))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	shared.RespondWithJSON(w, r, status, newSprintResponse(result.Sprint, result.Cards, result.Resumed))
}

// GetSprint handles GET /sprints/{id}. Lazy transitions (activation,
// auto-abandon) run before the sprint is returned.
func (h *SprintHandler) GetSprint(w http.ResponseWriter, r *http.Request) {
	sprintID, ok := sprintIDParam(w, r)
	if !ok {
		return
	}
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user ID")
		return
	}

	result, err := h.service.Get(r.Context(), sprintID, userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newSprintResponse(result.Sprint, result.Cards, false))
}

// ReviewCard handles POST /sprints/{id}/cards/{cardID}/review.
func (h *SprintHandler) ReviewCard(w http.ResponseWriter, r *http.Request) {
	sprintID, ok := sprintIDParam(w, r)
	if !ok {
		return
	}
	cardID, ok := cardIDParam(w, r)
	if !ok {
		return
	}

	var req ReviewCardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Review(r.Context(), sprintID, req.UserID, cardID, domain.Rating(req.Rating))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReviewCardResponse{
		CardID:         result.Card.ID,
		Result:         string(*result.SprintCard.Result),
		State:          string(result.Card.Memory.State),
		NextReviewDate: result.Card.Memory.NextReviewDate,
		ResumableUntil: *result.Sprint.ResumableUntil,
	})
}

// CompleteSprint handles POST /sprints/{id}/complete.
func (h *SprintHandler) CompleteSprint(w http.ResponseWriter, r *http.Request) {
	sprintID, ok := sprintIDParam(w, r)
	if !ok {
		return
	}

	var req UserScopedRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Complete(r.Context(), sprintID, req.UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CompleteSprintResponse{
		ID:          result.Sprint.ID,
		Status:      string(result.Sprint.Status),
		CompletedAt: result.Sprint.CompletedAt,
		Stats:       result.Stats,
	})
}

// AbandonSprint handles POST /sprints/{id}/abandon.
func (h *SprintHandler) AbandonSprint(w http.ResponseWriter, r *http.Request) {
	sprintID, ok := sprintIDParam(w, r)
	if !ok {
		return
	}

	var req UserScopedRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Abandon(r.Context(), sprintID, req.UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AbandonSprintResponse{
		ID:               result.Sprint.ID,
		Status:           string(result.Sprint.Status),
		SnoozedCardCount: result.SnoozedCardCount,
	})
}
