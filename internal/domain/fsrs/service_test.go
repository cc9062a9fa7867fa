package fsrs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
)

var allRatings = []domain.Rating{
	domain.RatingAgain,
	domain.RatingHard,
	domain.RatingGood,
	domain.RatingEasy,
}

// reviewState is a test helper producing a card that has graduated and
// was last reviewed elapsed days ago.
func reviewState(stability, difficulty float64, elapsed int, now time.Time) domain.MemoryState {
	last := now.AddDate(0, 0, -elapsed)
	return domain.MemoryState{
		Stability:      stability,
		Difficulty:     difficulty,
		State:          domain.CardStateReview,
		Reps:           4,
		Lapses:         1,
		LastReview:     &last,
		ScheduledDays:  elapsed,
		NextReviewDate: now,
	}
}

func TestInitState(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	state := svc.InitState(now)

	assert.Equal(t, domain.CardStateNew, state.State)
	assert.Zero(t, state.Stability)
	assert.Zero(t, state.Difficulty)
	assert.Zero(t, state.Reps)
	assert.Zero(t, state.Lapses)
	assert.Nil(t, state.LastReview)
	assert.Equal(t, now, state.NextReviewDate, "new cards are due immediately")
}

func TestReviewStateTransitions(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	last := now.AddDate(0, 0, -3)

	fromState := func(cs domain.CardState) domain.MemoryState {
		if cs == domain.CardStateNew {
			return svc.InitState(now.AddDate(0, 0, -1))
		}
		s := reviewState(5.0, 5.0, 3, now)
		s.State = cs
		s.LastReview = &last
		return s
	}

	testCases := []struct {
		from   domain.CardState
		rating domain.Rating
		want   domain.CardState
	}{
		{domain.CardStateNew, domain.RatingAgain, domain.CardStateLearning},
		{domain.CardStateNew, domain.RatingHard, domain.CardStateLearning},
		{domain.CardStateNew, domain.RatingGood, domain.CardStateReview},
		{domain.CardStateNew, domain.RatingEasy, domain.CardStateReview},
		{domain.CardStateLearning, domain.RatingAgain, domain.CardStateLearning},
		{domain.CardStateLearning, domain.RatingHard, domain.CardStateLearning},
		{domain.CardStateLearning, domain.RatingGood, domain.CardStateReview},
		{domain.CardStateLearning, domain.RatingEasy, domain.CardStateReview},
		{domain.CardStateReview, domain.RatingAgain, domain.CardStateRelearning},
		{domain.CardStateReview, domain.RatingHard, domain.CardStateReview},
		{domain.CardStateReview, domain.RatingGood, domain.CardStateReview},
		{domain.CardStateReview, domain.RatingEasy, domain.CardStateReview},
		{domain.CardStateRelearning, domain.RatingAgain, domain.CardStateRelearning},
		{domain.CardStateRelearning, domain.RatingHard, domain.CardStateRelearning},
		{domain.CardStateRelearning, domain.RatingGood, domain.CardStateReview},
		{domain.CardStateRelearning, domain.RatingEasy, domain.CardStateReview},
	}

	for _, tc := range testCases {
		next, err := svc.Review(fromState(tc.from), tc.rating, now)
		require.NoError(t, err)
		assert.Equal(t, tc.want, next.State,
			"transition %s + %s should yield %s", tc.from, tc.rating, tc.want)
	}
}

func TestReviewIntervalOrdering(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	fixtures := map[string]domain.MemoryState{
		"new card":            svc.InitState(now),
		"young review card":   reviewState(2.5, 7.2, 2, now),
		"mature review card":  reviewState(120, 3.1, 100, now),
		"overdue review card": reviewState(10, 5.0, 40, now),
	}

	for name, state := range fixtures {
		var dates []time.Time
		for _, rating := range allRatings {
			next, err := svc.Review(state, rating, now)
			require.NoError(t, err)
			dates = append(dates, next.NextReviewDate)
		}

		for i := 1; i < len(dates); i++ {
			assert.False(t, dates[i].Before(dates[i-1]),
				"%s: interval for %s must not be shorter than for %s",
				name, allRatings[i], allRatings[i-1])
		}
	}
}

func TestReviewDifficultyBounds(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for d := 1.0; d <= 10.0; d += 0.5 {
		for _, rating := range allRatings {
			next, err := svc.Review(reviewState(5.0, d, 3, now), rating, now)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, next.Difficulty, 1.0,
				"difficulty %f + %s", d, rating)
			assert.LessOrEqual(t, next.Difficulty, 10.0,
				"difficulty %f + %s", d, rating)
		}
	}

	// First reviews must land inside the bounds too.
	for _, rating := range allRatings {
		next, err := svc.Review(svc.InitState(now), rating, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, next.Difficulty, 1.0)
		assert.LessOrEqual(t, next.Difficulty, 10.0)
	}
}

func TestReviewAgainSchedulesShortRetry(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	next, err := svc.Review(reviewState(5.0, 5.0, 3, now), domain.RatingAgain, now)
	require.NoError(t, err)

	assert.Equal(t, now.Add(10*time.Minute), next.NextReviewDate)
	assert.Zero(t, next.ScheduledDays)
}

func TestReviewCountsRepsAndLapses(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := reviewState(5.0, 5.0, 3, now)

	failed, err := svc.Review(state, domain.RatingAgain, now)
	require.NoError(t, err)
	assert.Equal(t, state.Lapses+1, failed.Lapses, "Again on a review card is a lapse")
	assert.Equal(t, state.Reps, failed.Reps, "Again is not a successful recall")

	passed, err := svc.Review(state, domain.RatingGood, now)
	require.NoError(t, err)
	assert.Equal(t, state.Reps+1, passed.Reps)
	assert.Equal(t, state.Lapses, passed.Lapses)
}

func TestReviewStabilityDirection(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := reviewState(5.0, 5.0, 5, now)

	good, err := svc.Review(state, domain.RatingGood, now)
	require.NoError(t, err)
	easy, err := svc.Review(state, domain.RatingEasy, now)
	require.NoError(t, err)
	again, err := svc.Review(state, domain.RatingAgain, now)
	require.NoError(t, err)

	assert.Greater(t, good.Stability, state.Stability, "success grows stability")
	assert.Greater(t, easy.Stability, good.Stability, "Easy grows stability more than Good")
	assert.Less(t, again.Stability, state.Stability, "failure shrinks stability")
}

func TestReviewMaxIntervalCap(t *testing.T) {
	t.Parallel()

	params := NewDefaultParams()
	params.MaxIntervalDays = 365
	svc, err := NewServiceWithParams(params)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	next, err := svc.Review(reviewState(100000, 1.0, 300, now), domain.RatingEasy, now)
	require.NoError(t, err)

	assert.Equal(t, 365, next.ScheduledDays)
	assert.Equal(t, now.AddDate(0, 0, 365), next.NextReviewDate)
}

func TestReviewInvalidRating(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Now().UTC()

	_, err := svc.Review(svc.InitState(now), domain.Rating("perfect"), now)
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestReviewDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := reviewState(5.0, 5.0, 3, now)
	original := state

	_, err := svc.Review(state, domain.RatingEasy, now)
	require.NoError(t, err)

	assert.Equal(t, original, state)
}

func TestNewServiceWithParamsValidation(t *testing.T) {
	t.Parallel()

	params := NewDefaultParams()
	params.DesiredRetention = 1.5

	_, err := NewServiceWithParams(params)
	assert.ErrorIs(t, err, ErrInvalidParams)
}
