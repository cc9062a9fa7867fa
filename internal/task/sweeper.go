// Package task runs the background jobs of the scheduling core. Its one
// job today is the periodic notification sweep.
package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sprintdeck/sprintdeck-api/internal/service/notify"
)

// SweeperConfig holds configuration for the notification sweeper.
type SweeperConfig struct {
	// Interval is how often a sweep runs.
	Interval time.Duration

	// ReceiptDelay is how long after a sweep the delivery receipts are
	// fetched. The provider needs time to attempt delivery before
	// receipts mean anything.
	ReceiptDelay time.Duration
}

// DefaultSweeperConfig returns a SweeperConfig with reasonable defaults.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:     15 * time.Minute,
		ReceiptDelay: 5 * time.Minute,
	}
}

// Sweeper drives the notification orchestrator on a fixed interval and
// schedules a receipt-reconciliation pass after each sweep that sent
// anything.
type Sweeper struct {
	orch       *notify.Orchestrator
	config     SweeperConfig
	logger     *slog.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewSweeper creates a Sweeper. Zero config fields get defaults.
func NewSweeper(orch *notify.Orchestrator, config SweeperConfig, logger *slog.Logger) *Sweeper {
	if orch == nil {
		panic("orch cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSweeperConfig().Interval
	}
	if config.ReceiptDelay <= 0 {
		config.ReceiptDelay = DefaultSweeperConfig().ReceiptDelay
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Sweeper{
		orch:       orch,
		config:     config,
		logger:     logger.With(slog.String("component", "notification_sweeper")),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start begins the sweep loop in a background goroutine.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()

		s.logger.Info("notification sweeper started",
			slog.Duration("interval", s.config.Interval))

		for {
			select {
			case <-s.ctx.Done():
				s.logger.Info("notification sweeper stopped")
				return
			case <-ticker.C:
				s.runOnce()
			}
		}
	}()
}

// Stop halts the loop and waits for in-flight work to finish.
func (s *Sweeper) Stop() {
	s.cancelFunc()
	s.wg.Wait()
}

// RunNow triggers one sweep outside the schedule, for an operator
// endpoint or tests. Overlap with a scheduled sweep is handled by the
// orchestrator's guard.
func (s *Sweeper) RunNow(ctx context.Context) (*notify.SweepResult, error) {
	return s.orch.RunSweep(ctx)
}

func (s *Sweeper) runOnce() {
	result, err := s.orch.RunSweep(s.ctx)
	if err != nil {
		if errors.Is(err, notify.ErrSweepInProgress) {
			s.logger.Warn("skipping sweep, previous one still running")
			return
		}
		s.logger.Error("notification sweep failed",
			slog.String("error", err.Error()))
		return
	}

	if len(result.Tickets) == 0 {
		return
	}

	tickets := result.Tickets
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.config.ReceiptDelay):
		}

		cleared, err := s.orch.ReconcileReceipts(s.ctx, tickets)
		if err != nil {
			s.logger.Error("receipt reconciliation failed",
				slog.String("error", err.Error()))
			return
		}
		if cleared > 0 {
			s.logger.Info("cleared dead tokens from receipts",
				slog.Int("cleared", cleared))
		}
	}()
}
