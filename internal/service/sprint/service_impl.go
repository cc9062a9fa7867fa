package sprint

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
	"github.com/sprintdeck/sprintdeck-api/internal/domain/fsrs"
	"github.com/sprintdeck/sprintdeck-api/internal/platform/logger"
	"github.com/sprintdeck/sprintdeck-api/internal/service/selector"
	"github.com/sprintdeck/sprintdeck-api/internal/store"
)

// Verify interface compliance at compile time.
var _ SprintService = (*sprintServiceImpl)(nil)

// sprintServiceImpl implements the SprintService interface.
type sprintServiceImpl struct {
	sprints   store.SprintStore
	cards     store.CardStore
	users     store.UserStore
	selector  *selector.Service
	scheduler fsrs.Service
	logger    *slog.Logger
	nowFn     func() time.Time
}

// NewSprintService creates a new SprintService implementation.
func NewSprintService(
	sprints store.SprintStore,
	cards store.CardStore,
	users store.UserStore,
	sel *selector.Service,
	scheduler fsrs.Service,
	log *slog.Logger,
) SprintService {
	if sprints == nil {
		panic("sprints cannot be nil")
	}
	if cards == nil {
		panic("cards cannot be nil")
	}
	if users == nil {
		panic("users cannot be nil")
	}
	if sel == nil {
		panic("selector cannot be nil")
	}
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &sprintServiceImpl{
		sprints:   sprints,
		cards:     cards,
		users:     users,
		selector:  sel,
		scheduler: scheduler,
		logger:    log.With(slog.String("component", "sprint_service")),
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// opError wraps an unexpected infrastructure failure with operation context.
func opError(operation, message string, err error) error {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}

// runInTransaction executes fn with transaction-bound stores. The whole
// unit commits or rolls back together.
func (s *sprintServiceImpl) runInTransaction(
	ctx context.Context,
	fn func(ctx context.Context, sprints store.SprintStore, cards store.CardStore) error,
) error {
	return store.RunInTransaction(ctx, s.sprints.DB(), func(ctx context.Context, tx *sql.Tx) error {
		sprints, cards := s.sprints, s.cards
		if tx != nil {
			sprints = sprints.WithTx(tx)
			cards = cards.WithTx(tx)
		}
		return fn(ctx, sprints, cards)
	})
}

// load fetches a sprint and enforces the ownership check every operation
// performs before any state read.
func (s *sprintServiceImpl) load(
	ctx context.Context,
	sprintID, userID uuid.UUID,
) (*domain.Sprint, error) {
	sprint, err := s.sprints.GetByID(ctx, sprintID)
	if err != nil {
		if errors.Is(err, store.ErrSprintNotFound) {
			return nil, ErrSprintNotFound
		}
		return nil, opError("load_sprint", "failed to get sprint", err)
	}

	if sprint.UserID != userID {
		return nil, ErrSprintNotOwned
	}

	return sprint, nil
}

// Start implements SprintService.Start.
func (s *sprintServiceImpl) Start(
	ctx context.Context,
	userID uuid.UUID,
	deckID *uuid.UUID,
	source domain.SprintSource,
) (*StartResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.nowFn()

	resumable, err := s.sprints.GetResumableForUser(ctx, userID, now)
	if err == nil {
		cards, cardsErr := s.sprints.GetCards(ctx, resumable.ID)
		if cardsErr != nil {
			return nil, opError("start", "failed to load resumable sprint cards", cardsErr)
		}
		log.Debug("resuming existing sprint",
			slog.String("user_id", userID.String()),
			slog.String("sprint_id", resumable.ID.String()))
		return &StartResult{Sprint: resumable, Cards: cards, Resumed: true}, nil
	}
	if !errors.Is(err, store.ErrSprintNotFound) {
		return nil, opError("start", "failed to check for resumable sprint", err)
	}

	// An expired ACTIVE sprint must be abandoned before a new one is
	// created, preserving the one-active-sprint-per-user invariant.
	active, err := s.sprints.GetActiveForUser(ctx, userID)
	if err == nil && active.IsExpired(now) {
		if _, _, abandonErr := s.abandonSprint(ctx, active, now); abandonErr != nil {
			return nil, opError("start", "failed to abandon expired sprint", abandonErr)
		}
	} else if err != nil && !errors.Is(err, store.ErrSprintNotFound) {
		return nil, opError("start", "failed to check for active sprint", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, opError("start", "failed to load user", err)
	}

	result, err := s.createSprint(ctx, userID, deckID, source, domain.SprintStatusActive, user.SprintSize, now)
	if err != nil {
		return nil, err
	}

	log.Info("sprint started",
		slog.String("user_id", userID.String()),
		slog.String("sprint_id", result.Sprint.ID.String()),
		slog.Int("card_count", len(result.Cards)))
	return result, nil
}

// CreatePending implements SprintService.CreatePending.
func (s *sprintServiceImpl) CreatePending(
	ctx context.Context,
	userID uuid.UUID,
	sprintSize int,
) (*StartResult, error) {
	if sprintSize < 1 {
		sprintSize = domain.DefaultSprintSize
	}

	now := s.nowFn()
	return s.createSprint(ctx, userID, nil, domain.SprintSourcePush, domain.SprintStatusPending, sprintSize, now)
}

// createSprint selects due cards and atomically creates the sprint with
// its ordered sprint cards.
func (s *sprintServiceImpl) createSprint(
	ctx context.Context,
	userID uuid.UUID,
	deckID *uuid.UUID,
	source domain.SprintSource,
	status domain.SprintStatus,
	size int,
	now time.Time,
) (*StartResult, error) {
	selected, err := s.selector.SelectDue(ctx, userID, deckID, size, now)
	if err != nil {
		return nil, opError("create_sprint", "failed to select due cards", err)
	}
	if len(selected) == 0 {
		return nil, ErrNoEligibleCards
	}

	sprint, err := domain.NewSprint(userID, deckID, source, status, now, ResumeWindow)
	if err != nil {
		return nil, opError("create_sprint", "invalid sprint", err)
	}

	sprintCards := make([]*domain.SprintCard, len(selected))
	for i, due := range selected {
		sc, scErr := domain.NewSprintCard(sprint.ID, due.Card.ID, i)
		if scErr != nil {
			return nil, opError("create_sprint", "invalid sprint card", scErr)
		}
		sprintCards[i] = sc
	}

	err = s.runInTransaction(ctx, func(ctx context.Context, sprints store.SprintStore, _ store.CardStore) error {
		return sprints.CreateWithCards(ctx, sprint, sprintCards)
	})
	if err != nil {
		return nil, opError("create_sprint", "failed to persist sprint", err)
	}

	return &StartResult{Sprint: sprint, Cards: sprintCards, Resumed: false}, nil
}

// Get implements SprintService.Get.
func (s *sprintServiceImpl) Get(
	ctx context.Context,
	sprintID, userID uuid.UUID,
) (*GetResult, error) {
	sprint, err := s.load(ctx, sprintID, userID)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()

	if sprint.IsExpired(now) {
		sprint, _, err = s.abandonSprint(ctx, sprint, now)
		if err != nil {
			return nil, opError("get", "failed to auto-abandon expired sprint", err)
		}
	} else if sprint.Status == domain.SprintStatusPending {
		// First access activates a push-created sprint.
		started := now
		until := now.Add(ResumeWindow)
		sprint.Status = domain.SprintStatusActive
		sprint.StartedAt = &started
		sprint.ResumableUntil = &until

		err = s.runInTransaction(ctx, func(ctx context.Context, sprints store.SprintStore, _ store.CardStore) error {
			return sprints.Update(ctx, sprint)
		})
		if err != nil {
			return nil, opError("get", "failed to activate pending sprint", err)
		}
	}

	cards, err := s.sprints.GetCards(ctx, sprint.ID)
	if err != nil {
		return nil, opError("get", "failed to load sprint cards", err)
	}

	return &GetResult{Sprint: sprint, Cards: cards}, nil
}

// Review implements SprintService.Review.
func (s *sprintServiceImpl) Review(
	ctx context.Context,
	sprintID, userID, cardID uuid.UUID,
	rating domain.Rating,
) (*ReviewResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !rating.IsValid() {
		return nil, ErrInvalidRating
	}

	sprint, err := s.load(ctx, sprintID, userID)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()

	if sprint.IsExpired(now) {
		if _, _, abandonErr := s.abandonSprint(ctx, sprint, now); abandonErr != nil {
			return nil, opError("review", "failed to auto-abandon expired sprint", abandonErr)
		}
		return nil, ErrSprintExpired
	}
	if sprint.Status != domain.SprintStatusActive {
		return nil, ErrSprintNotActive
	}

	sprintCards, err := s.sprints.GetCards(ctx, sprint.ID)
	if err != nil {
		return nil, opError("review", "failed to load sprint cards", err)
	}

	var target *domain.SprintCard
	for _, sc := range sprintCards {
		if sc.CardID == cardID {
			target = sc
			break
		}
	}
	if target == nil {
		return nil, ErrCardNotInSprint
	}
	if target.Result != nil {
		return nil, ErrCardAlreadyReviewed
	}

	result := domain.SprintCardResultPass
	if rating == domain.RatingAgain {
		result = domain.SprintCardResultFail
	}

	var updatedCard *domain.Card
	err = s.runInTransaction(ctx, func(ctx context.Context, sprints store.SprintStore, cards store.CardStore) error {
		card, txErr := cards.GetByID(ctx, cardID)
		if txErr != nil {
			return txErr
		}

		newMemory, txErr := s.scheduler.Review(card.Memory, rating, now)
		if txErr != nil {
			return txErr
		}
		card.Memory = newMemory
		card.UpdatedAt = now
		if txErr = cards.Update(ctx, card); txErr != nil {
			return txErr
		}

		// Conditional write: a racing duplicate review loses here and
		// observes the post-state instead of corrupting it.
		if txErr = sprints.SetCardResult(ctx, target.ID, result); txErr != nil {
			if errors.Is(txErr, store.ErrUpdateFailed) {
				return ErrCardAlreadyReviewed
			}
			return txErr
		}

		until := now.Add(ResumeWindow)
		sprint.ResumableUntil = &until
		if txErr = sprints.Update(ctx, sprint); txErr != nil {
			return txErr
		}

		updatedCard = card
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCardAlreadyReviewed) {
			return nil, ErrCardAlreadyReviewed
		}
		return nil, opError("review", "failed to record review", err)
	}

	target.Result = &result

	log.Debug("card reviewed",
		slog.String("sprint_id", sprint.ID.String()),
		slog.String("card_id", cardID.String()),
		slog.String("rating", string(rating)),
		slog.Time("next_review_at", updatedCard.Memory.NextReviewDate))

	return &ReviewResult{Sprint: sprint, SprintCard: target, Card: updatedCard}, nil
}

// Complete implements SprintService.Complete.
func (s *sprintServiceImpl) Complete(
	ctx context.Context,
	sprintID, userID uuid.UUID,
) (*CompleteResult, error) {
	sprint, err := s.load(ctx, sprintID, userID)
	if err != nil {
		return nil, err
	}

	sprintCards, err := s.sprints.GetCards(ctx, sprint.ID)
	if err != nil {
		return nil, opError("complete", "failed to load sprint cards", err)
	}

	switch sprint.Status {
	case domain.SprintStatusAbandoned:
		return nil, ErrSprintAbandoned
	case domain.SprintStatusCompleted:
		// Idempotent: return the existing terminal snapshot.
		return &CompleteResult{Sprint: sprint, Stats: computeStats(sprint, sprintCards)}, nil
	}

	for _, sc := range sprintCards {
		if sc.Result == nil {
			return nil, ErrSprintIncomplete
		}
	}

	now := s.nowFn()
	completed := now
	sprint.Status = domain.SprintStatusCompleted
	sprint.CompletedAt = &completed

	err = s.runInTransaction(ctx, func(ctx context.Context, sprints store.SprintStore, _ store.CardStore) error {
		return sprints.Update(ctx, sprint)
	})
	if err != nil {
		return nil, opError("complete", "failed to complete sprint", err)
	}

	return &CompleteResult{Sprint: sprint, Stats: computeStats(sprint, sprintCards)}, nil
}

// Abandon implements SprintService.Abandon.
func (s *sprintServiceImpl) Abandon(
	ctx context.Context,
	sprintID, userID uuid.UUID,
) (*AbandonResult, error) {
	sprint, err := s.load(ctx, sprintID, userID)
	if err != nil {
		return nil, err
	}

	if sprint.Status.IsTerminal() {
		// Idempotent: nothing left to snooze.
		return &AbandonResult{Sprint: sprint, SnoozedCardCount: 0}, nil
	}

	now := s.nowFn()
	abandoned, count, err := s.abandonSprint(ctx, sprint, now)
	if err != nil {
		return nil, opError("abandon", "failed to abandon sprint", err)
	}

	return &AbandonResult{Sprint: abandoned, SnoozedCardCount: count}, nil
}

// abandonSprint marks the sprint ABANDONED and snoozes exactly its
// unreviewed cards for AbandonSnooze, in one atomic unit. Shared by the
// explicit abandon operation and the auto-abandon timeout path.
func (s *sprintServiceImpl) abandonSprint(
	ctx context.Context,
	sprint *domain.Sprint,
	now time.Time,
) (*domain.Sprint, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sprintCards, err := s.sprints.GetCards(ctx, sprint.ID)
	if err != nil {
		return nil, 0, err
	}

	var unreviewed []uuid.UUID
	for _, sc := range sprintCards {
		if sc.Result == nil {
			unreviewed = append(unreviewed, sc.CardID)
		}
	}

	abandonedAt := now
	sprint.Status = domain.SprintStatusAbandoned
	sprint.AbandonedAt = &abandonedAt
	sprint.ResumableUntil = nil

	err = s.runInTransaction(ctx, func(ctx context.Context, sprints store.SprintStore, cards store.CardStore) error {
		if txErr := sprints.Update(ctx, sprint); txErr != nil {
			return txErr
		}
		if len(unreviewed) > 0 {
			return cards.SnoozeMany(ctx, unreviewed, now.Add(AbandonSnooze))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	log.Info("sprint abandoned",
		slog.String("sprint_id", sprint.ID.String()),
		slog.Int("snoozed_cards", len(unreviewed)))

	return sprint, len(unreviewed), nil
}

// computeStats derives the completion stats payload from the sprint and
// its cards.
func computeStats(sprint *domain.Sprint, cards []*domain.SprintCard) domain.SprintStats {
	stats := domain.SprintStats{TotalCards: len(cards)}
	for _, sc := range cards {
		if sc.Result == nil {
			continue
		}
		stats.ReviewedCards++
		if *sc.Result == domain.SprintCardResultPass {
			stats.PassCount++
		} else {
			stats.FailCount++
		}
	}
	if sprint.CompletedAt != nil && sprint.StartedAt != nil {
		stats.DurationSeconds = sprint.CompletedAt.Sub(*sprint.StartedAt).Seconds()
	}
	return stats
}
