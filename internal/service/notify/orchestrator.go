package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
	"github.com/sprintdeck/sprintdeck-api/internal/platform/logger"
	"github.com/sprintdeck/sprintdeck-api/internal/platform/metrics"
	"github.com/sprintdeck/sprintdeck-api/internal/service/sprint"
	"github.com/sprintdeck/sprintdeck-api/internal/store"
)

// ErrSweepInProgress indicates a sweep was requested while a previous
// one is still running. The caller should treat it as a no-op.
var ErrSweepInProgress = errors.New("notification sweep already in progress")

// DefaultSweepConcurrency bounds per-user evaluation work when the
// caller does not configure a limit.
const DefaultSweepConcurrency = 8

// SweepResult aggregates the outcome of one sweep.
type SweepResult struct {
	UsersConsidered int
	Ineligible      map[IneligibilityReason]int
	NoDueCards      int
	SprintsCreated  int
	PushesSent      int
	PushFailures    int
	TokensCleared   int

	// Tickets holds the provider receipt tickets from accepted sends,
	// for a later ReconcileReceipts pass.
	Tickets []Candidate
}

// Orchestrator runs the periodic notification sweep: evaluate every
// notifiable user, create pending sprints for eligible ones, send one
// batched push call, and reconcile the provider's per-message results.
type Orchestrator struct {
	users       store.UserStore
	cards       store.CardStore
	sprints     store.SprintStore
	sprintSvc   sprint.SprintService
	evaluator   *Evaluator
	sender      PushSender
	metrics     *metrics.SweepMetrics
	logger      *slog.Logger
	concurrency int
	nowFn       func() time.Time

	running atomic.Bool
}

// NewOrchestrator creates a sweep Orchestrator. Pass concurrency <= 0
// for the default bound; metrics may be nil.
func NewOrchestrator(
	users store.UserStore,
	cards store.CardStore,
	sprints store.SprintStore,
	sprintSvc sprint.SprintService,
	evaluator *Evaluator,
	sender PushSender,
	m *metrics.SweepMetrics,
	log *slog.Logger,
	concurrency int,
) *Orchestrator {
	if users == nil {
		panic("users cannot be nil")
	}
	if cards == nil {
		panic("cards cannot be nil")
	}
	if sprints == nil {
		panic("sprints cannot be nil")
	}
	if sprintSvc == nil {
		panic("sprintSvc cannot be nil")
	}
	if evaluator == nil {
		panic("evaluator cannot be nil")
	}
	if sender == nil {
		panic("sender cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = DefaultSweepConcurrency
	}

	return &Orchestrator{
		users:       users,
		cards:       cards,
		sprints:     sprints,
		sprintSvc:   sprintSvc,
		evaluator:   evaluator,
		sender:      sender,
		metrics:     m,
		logger:      log.With(slog.String("component", "notify_orchestrator")),
		concurrency: concurrency,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

// prepared is the per-user output of the evaluation phase.
type prepared struct {
	user     *domain.User
	sprintID Candidate
	message  PushMessage
}

// RunSweep executes one full sweep. Overlapping invocations are
// rejected with ErrSweepInProgress so a slow provider call cannot stack
// sweeps on top of each other.
func (o *Orchestrator) RunSweep(ctx context.Context) (*SweepResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrSweepInProgress
	}
	defer o.running.Store(false)

	log := logger.FromContextOrDefault(ctx, o.logger)
	now := o.nowFn()
	started := time.Now()

	users, err := o.users.ListNotifiable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifiable users: %w", err)
	}

	result := &SweepResult{
		UsersConsidered: len(users),
		Ineligible:      make(map[IneligibilityReason]int),
	}
	o.metrics.AddUsersConsidered(len(users))

	// Phase 1: evaluate users and create pending sprints, bounded
	// fan-out. Each user is independent; failures are logged and skipped
	// so one bad row cannot sink the sweep.
	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		sem       = make(chan struct{}, o.concurrency)
		preparedM []prepared
	)

	for _, user := range users {
		wg.Add(1)
		sem <- struct{}{}
		go func(user *domain.User) {
			defer wg.Done()
			defer func() { <-sem }()

			p, skip, reason, prepErr := o.prepareUser(ctx, user, now)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case prepErr != nil:
				log.Warn("skipping user after sweep error",
					slog.String("user_id", user.ID.String()),
					slog.String("error", prepErr.Error()))
			case reason != "":
				result.Ineligible[reason]++
				o.metrics.IncIneligible(string(reason))
			case skip:
				result.NoDueCards++
			default:
				result.SprintsCreated++
				o.metrics.IncSprintCreated()
				preparedM = append(preparedM, p)
			}
		}(user)
	}
	wg.Wait()

	if len(preparedM) == 0 {
		o.metrics.ObserveSweep(time.Since(started).Seconds())
		log.Info("sweep finished with nothing to send",
			slog.Int("users_considered", result.UsersConsidered))
		return result, nil
	}

	// Phase 2: one batched provider call for every message.
	messages := make([]PushMessage, len(preparedM))
	for i, p := range preparedM {
		messages[i] = p.message
	}

	results, err := o.sender.SendBatch(ctx, messages)
	if err != nil {
		// Total provider failure: roll back every pending sprint so the
		// users stay eligible for the next sweep.
		for _, p := range preparedM {
			o.deletePendingSprint(ctx, p.sprintID)
		}
		return nil, fmt.Errorf("push batch failed: %w", err)
	}

	// Phase 3: reconcile per-message outcomes.
	for i, r := range results {
		if i >= len(preparedM) {
			break
		}
		p := preparedM[i]

		if r.OK {
			result.PushesSent++
			o.metrics.IncPushSent()
			p.sprintID.TicketID = r.ID
			result.Tickets = append(result.Tickets, p.sprintID)

			count := sentToday(p.user, now) + 1
			if err := o.users.RecordPushSent(ctx, p.user.ID, now, count); err != nil {
				log.Warn("failed to record push send",
					slog.String("user_id", p.user.ID.String()),
					slog.String("error", err.Error()))
			}
			continue
		}

		result.PushFailures++
		o.metrics.IncPushFailure()
		o.deletePendingSprint(ctx, p.sprintID)

		if r.DeviceNotRegistered {
			if err := o.users.ClearPushToken(ctx, p.user.ID); err != nil {
				log.Warn("failed to clear dead push token",
					slog.String("user_id", p.user.ID.String()),
					slog.String("error", err.Error()))
			} else {
				result.TokensCleared++
				o.metrics.IncTokenCleared()
			}
		}
	}

	o.metrics.ObserveSweep(time.Since(started).Seconds())
	log.Info("sweep finished",
		slog.Int("users_considered", result.UsersConsidered),
		slog.Int("sprints_created", result.SprintsCreated),
		slog.Int("pushes_sent", result.PushesSent),
		slog.Int("push_failures", result.PushFailures))

	return result, nil
}

// prepareUser runs eligibility, the due-count check, and pending-sprint
// creation for one user. Exactly one of the returns is meaningful:
// a prepared send, skip=true for no due cards, or a non-empty reason.
func (o *Orchestrator) prepareUser(
	ctx context.Context,
	user *domain.User,
	now time.Time,
) (prepared, bool, IneligibilityReason, error) {
	decision, err := o.evaluator.Check(ctx, user, now)
	if err != nil {
		return prepared{}, false, "", err
	}
	if !decision.Eligible {
		return prepared{}, false, decision.Reason, nil
	}

	due, err := o.cards.CountDue(ctx, user.ID, now)
	if err != nil {
		return prepared{}, false, "", fmt.Errorf("failed to count due cards: %w", err)
	}
	if due == 0 {
		return prepared{}, true, "", nil
	}

	created, err := o.sprintSvc.CreatePending(ctx, user.ID, user.SprintSize)
	if err != nil {
		if errors.Is(err, sprint.ErrNoEligibleCards) {
			// Due cards exist but none are selectable (all held by an
			// active sprint or snoozed since the count).
			return prepared{}, true, "", nil
		}
		return prepared{}, false, "", fmt.Errorf("failed to create pending sprint: %w", err)
	}

	// The message describes the sprint the tap opens, not the whole due
	// backlog, so counts come from the created sprint's cards.
	count := len(created.Cards)
	title := "Cards ready to review"
	body := fmt.Sprintf("%d cards are ready for review", count)
	if count == 1 {
		title = "Card ready to review"
		body = "1 card is ready for review"
	}

	return prepared{
		user: user,
		sprintID: Candidate{
			UserID:   user.ID,
			SprintID: created.Sprint.ID,
		},
		message: PushMessage{
			To:    *user.PushToken,
			Title: title,
			Body:  body,
			Data: map[string]string{
				"sprint_id":  created.Sprint.ID.String(),
				"card_count": strconv.Itoa(count),
				"url":        sprintDeepLink(created.Sprint.ID),
			},
		},
	}, false, "", nil
}

// sprintDeepLink builds the in-app URL a tapped notification opens.
func sprintDeepLink(id uuid.UUID) string {
	return "sprintdeck://sprints/" + id.String()
}

// deletePendingSprint removes a sprint whose push never went out.
// Best-effort: an orphaned pending sprint is harmless, it just gets
// superseded on the user's next start.
func (o *Orchestrator) deletePendingSprint(ctx context.Context, c Candidate) {
	if err := o.sprints.Delete(ctx, c.SprintID); err != nil {
		o.logger.Warn("failed to delete pending sprint after push failure",
			slog.String("sprint_id", c.SprintID.String()),
			slog.String("error", err.Error()))
	}
}

// ReconcileReceipts fetches delivery receipts for previously accepted
// tickets and clears tokens that turned out dead at delivery time.
func (o *Orchestrator) ReconcileReceipts(ctx context.Context, tickets []Candidate) (int, error) {
	if len(tickets) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(tickets))
	byTicket := make(map[string]Candidate, len(tickets))
	for _, t := range tickets {
		if t.TicketID == "" {
			continue
		}
		ids = append(ids, t.TicketID)
		byTicket[t.TicketID] = t
	}

	receipts, err := o.sender.CheckReceipts(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch push receipts: %w", err)
	}
	o.metrics.AddReceiptsResolved(len(receipts))

	cleared := 0
	for id, receipt := range receipts {
		if receipt.OK || !receipt.DeviceNotRegistered {
			continue
		}
		t, ok := byTicket[id]
		if !ok {
			continue
		}
		if err := o.users.ClearPushToken(ctx, t.UserID); err != nil {
			o.logger.Warn("failed to clear push token from receipt",
				slog.String("user_id", t.UserID.String()),
				slog.String("error", err.Error()))
			continue
		}
		cleared++
		o.metrics.IncTokenCleared()
	}

	return cleared, nil
}
