package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sprintdeck/sprintdeck-api/internal/config"
	"github.com/sprintdeck/sprintdeck-api/internal/domain/fsrs"
	"github.com/sprintdeck/sprintdeck-api/internal/platform/expopush"
	"github.com/sprintdeck/sprintdeck-api/internal/platform/logger"
	"github.com/sprintdeck/sprintdeck-api/internal/platform/metrics"
	"github.com/sprintdeck/sprintdeck-api/internal/platform/postgres"
	"github.com/sprintdeck/sprintdeck-api/internal/service/notify"
	"github.com/sprintdeck/sprintdeck-api/internal/service/selector"
	"github.com/sprintdeck/sprintdeck-api/internal/service/sprint"
	"github.com/sprintdeck/sprintdeck-api/internal/store"
	"github.com/sprintdeck/sprintdeck-api/internal/task"
)

// application holds the wired dependencies of the running server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore   store.UserStore
	cardStore   store.CardStore
	sprintStore store.SprintStore

	sprintService sprint.SprintService
	sweeper       *task.Sweeper
}

// newApplication loads configuration and wires every component.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("Server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel))

	db, err := setupDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, log); err != nil {
		return nil, err
	}

	userStore := postgres.NewPostgresUserStore(db, log)
	cardStore := postgres.NewPostgresCardStore(db, log)
	sprintStore := postgres.NewPostgresSprintStore(db, log)

	scheduler := fsrs.NewDefaultService()
	sel := selector.NewService(cardStore, log)
	sprintService := sprint.NewSprintService(sprintStore, cardStore, userStore, sel, scheduler, log)

	sender := expopush.NewClient(
		cfg.Push.Endpoint,
		cfg.Push.ReceiptsEndpoint,
		time.Duration(cfg.Push.TimeoutSeconds)*time.Second,
	)

	sweepMetrics := metrics.NewSweepMetrics(prometheus.DefaultRegisterer)
	orchestrator := notify.NewOrchestrator(
		userStore,
		cardStore,
		sprintStore,
		sprintService,
		notify.NewEvaluator(sprintStore),
		sender,
		sweepMetrics,
		log,
		cfg.Sweep.Concurrency,
	)

	sweeper := task.NewSweeper(orchestrator, task.SweeperConfig{
		Interval: time.Duration(cfg.Sweep.IntervalMinutes) * time.Minute,
	}, log)

	return &application{
		config:        cfg,
		logger:        log,
		db:            db,
		userStore:     userStore,
		cardStore:     cardStore,
		sprintStore:   sprintStore,
		sprintService: sprintService,
		sweeper:       sweeper,
	}, nil
}

// run starts the sweeper and the HTTP server and blocks until shutdown.
func (app *application) run(ctx context.Context) error {
	app.sweeper.Start()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.setupRouter(),
	}

	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		app.logger.Info("Starting server", slog.Int("port", app.config.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Error("Server failed", slog.String("error", err.Error()))
			cancelServer()
		}
	}()

	select {
	case <-shutdownCh:
		app.logger.Info("Shutting down server...")
	case <-serverCtx.Done():
		app.logger.Info("Server context canceled, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.sweeper.Stop()
	app.logger.Info("Server shutdown completed")
	return nil
}

// cleanup releases held resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Failed to close database connection", slog.String("error", err.Error()))
		}
	}
}
