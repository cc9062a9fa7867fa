package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sprintdeck/sprintdeck-api/internal/api"
	apiMiddleware "github.com/sprintdeck/sprintdeck-api/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	sprintHandler := api.NewSprintHandler(app.sprintService, app.logger)
	sweepHandler := api.NewSweepHandler(app.sweeper, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sprints", sprintHandler.StartSprint)
		r.Get("/sprints/{id}", sprintHandler.GetSprint)
		r.Post("/sprints/{id}/cards/{cardID}/review", sprintHandler.ReviewCard)
		r.Post("/sprints/{id}/complete", sprintHandler.CompleteSprint)
		r.Post("/sprints/{id}/abandon", sprintHandler.AbandonSprint)

		r.Post("/admin/sweep", sweepHandler.TriggerSweep)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
