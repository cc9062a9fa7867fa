package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sprintdeck/sprintdeck-api/internal/api/shared"
	"github.com/sprintdeck/sprintdeck-api/internal/platform/logger"
	"github.com/sprintdeck/sprintdeck-api/internal/service/notify"
	"github.com/sprintdeck/sprintdeck-api/internal/task"
)

// SweepHandler exposes an operator endpoint to trigger a notification
// sweep outside its schedule.
type SweepHandler struct {
	sweeper *task.Sweeper
	logger  *slog.Logger
}

// NewSweepHandler creates a new SweepHandler.
func NewSweepHandler(sweeper *task.Sweeper, log *slog.Logger) *SweepHandler {
	if sweeper == nil {
		panic("sweeper cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SweepHandler{
		sweeper: sweeper,
		logger:  log.With(slog.String("component", "sweep_handler")),
	}
}

// TriggerSweep handles POST /admin/sweep.
func (h *SweepHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.RunNow(r.Context())
	if err != nil {
		if errors.Is(err, notify.ErrSweepInProgress) {
			shared.RespondWithError(w, r, http.StatusConflict, "SWEEP_IN_PROGRESS",
				"A sweep is already running")
			return
		}
		log := logger.FromContextOrDefault(r.Context(), h.logger)
		log.Error("manual sweep failed", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred")
		return
	}

	ineligible := make(map[string]int, len(result.Ineligible))
	for reason, count := range result.Ineligible {
		ineligible[string(reason)] = count
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SweepResponse{
		UsersConsidered: result.UsersConsidered,
		SprintsCreated:  result.SprintsCreated,
		PushesSent:      result.PushesSent,
		PushFailures:    result.PushFailures,
		TokensCleared:   result.TokensCleared,
		Ineligible:      ineligible,
	})
}
