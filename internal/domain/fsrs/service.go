package fsrs

import (
	"errors"
	"time"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
)

// Common errors.
var (
	ErrInvalidRating = errors.New("invalid review rating")
	ErrInvalidParams = errors.New("invalid scheduler parameters")
)

// Service defines the interface for scheduler operations. Implementations
// must be pure: no I/O, no shared mutable state, safe for concurrent use.
type Service interface {
	// InitState returns the memory state for a brand-new card, due
	// immediately at the given time.
	InitState(now time.Time) domain.MemoryState

	// Review computes the next memory state for a graded card. The input
	// state is not modified; a new state with an updated NextReviewDate
	// is returned.
	Review(
		state domain.MemoryState,
		rating domain.Rating,
		now time.Time,
	) (domain.MemoryState, error)
}

// defaultService is the standard implementation of the Service interface.
type defaultService struct {
	params *Params
	algo   algo
}

// NewDefaultService creates a scheduler with default parameters.
func NewDefaultService() Service {
	svc, err := NewServiceWithParams(NewDefaultParams())
	if err != nil {
		// Defaults always validate; reaching here is a programming error.
		// ALLOW-PANIC: constructor invariant
		panic(err)
	}
	return svc
}

// NewServiceWithParams creates a scheduler with custom parameters.
func NewServiceWithParams(params *Params) (Service, error) {
	if params == nil {
		params = NewDefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &defaultService{
		params: params,
		algo:   newAlgo(params.Weights),
	}, nil
}

// InitState implements Service.InitState.
func (s *defaultService) InitState(now time.Time) domain.MemoryState {
	return domain.MemoryState{
		State:          domain.CardStateNew,
		NextReviewDate: now,
	}
}

// Review implements Service.Review. It applies the state transition
// table and the stability/difficulty updates, then derives the next
// review date from the new stability.
func (s *defaultService) Review(
	state domain.MemoryState,
	rating domain.Rating,
	now time.Time,
) (domain.MemoryState, error) {
	if !rating.IsValid() {
		return domain.MemoryState{}, ErrInvalidRating
	}

	next := state

	elapsed := 0.0
	if state.LastReview != nil {
		elapsed = now.Sub(*state.LastReview).Hours() / 24
		if elapsed < 0 {
			elapsed = 0
		}
	}
	next.ElapsedDays = int(elapsed)

	reviewedAt := now
	next.LastReview = &reviewedAt

	if state.State == domain.CardStateNew {
		next.Stability = s.algo.initStability(rating)
		next.Difficulty = s.algo.initDifficulty(rating, true)
		switch rating {
		case domain.RatingAgain, domain.RatingHard:
			next.State = domain.CardStateLearning
		default:
			// Cards graduate immediately on Good/Easy; there is no
			// multi-step learning queue.
			next.State = domain.CardStateReview
		}
	} else {
		retr := s.algo.retrievability(elapsed, state.Stability)
		next.Difficulty = s.algo.nextDifficulty(state.Difficulty, rating)
		next.Stability = s.algo.nextStability(state.Difficulty, state.Stability, retr, rating)

		switch rating {
		case domain.RatingAgain:
			if state.State == domain.CardStateReview {
				next.State = domain.CardStateRelearning
				next.Lapses++
			}
			// Learning and relearning cards stay where they are on a fail.
		case domain.RatingGood, domain.RatingEasy:
			next.State = domain.CardStateReview
		case domain.RatingHard:
			// Hard never moves a card between states.
		}
	}

	if rating != domain.RatingAgain {
		next.Reps++
	}

	switch {
	case rating == domain.RatingAgain:
		next.ScheduledDays = 0
		next.NextReviewDate = now.Add(time.Duration(s.params.AgainReviewMinutes) * time.Minute)
	case next.State != domain.CardStateReview:
		// Hard on an ungraduated card: short same-day retry.
		next.ScheduledDays = 0
		next.NextReviewDate = now.Add(time.Duration(s.params.LearningStepMinutes) * time.Minute)
	default:
		ivl := s.algo.nextInterval(next.Stability, s.params.DesiredRetention, s.params.MaxIntervalDays)
		next.ScheduledDays = ivl
		next.NextReviewDate = now.AddDate(0, 0, ivl)
	}

	return next, nil
}
