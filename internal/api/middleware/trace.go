// Package middleware provides HTTP middleware for the API layer.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/sprintdeck/sprintdeck-api/internal/api/shared"
	"github.com/sprintdeck/sprintdeck-api/internal/platform/logger"
)

// NewTraceMiddleware attaches a trace ID to every request context and a
// trace-scoped logger that downstream code retrieves with
// logger.FromContext.
func NewTraceMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			traceLogger := log.With(slog.String("trace_id", shared.GetTraceID(ctx)))
			ctx = logger.WithLogger(ctx, traceLogger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
