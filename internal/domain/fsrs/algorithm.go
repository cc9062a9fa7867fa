package fsrs

import (
	"math"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
)

// algo holds precomputed constants derived from the model weights.
type algo struct {
	w      [21]float64
	decay  float64 // -w[20]
	factor float64 // 0.9^(1/decay) - 1
}

// newAlgo creates an algo with precomputed decay and factor.
func newAlgo(w [21]float64) algo {
	decay := -w[20]
	factor := math.Pow(0.9, 1.0/decay) - 1.0
	return algo{w: w, decay: decay, factor: factor}
}

// grade maps a rating onto the 1..4 scale the model formulas use.
func grade(r domain.Rating) float64 {
	switch r {
	case domain.RatingAgain:
		return 1
	case domain.RatingHard:
		return 2
	case domain.RatingGood:
		return 3
	default:
		return 4
	}
}

// retrievability computes R(t, S) = (1 + FACTOR * t / S) ^ DECAY.
func (a *algo) retrievability(elapsedDays, stability float64) float64 {
	if stability < minStability {
		stability = minStability
	}
	return math.Pow(1+a.factor*elapsedDays/stability, a.decay)
}

// initStability returns the initial stability S0(G) for a card's first review.
func (a *algo) initStability(r domain.Rating) float64 {
	return clampStability(a.w[int(grade(r))-1])
}

// initDifficulty returns the initial difficulty D0(G) = w[4] - e^(w[5]*(G-1)) + 1.
// When clamp is true, the result is clamped to [1, 10].
func (a *algo) initDifficulty(r domain.Rating, clamp bool) float64 {
	d := a.w[4] - math.Exp(a.w[5]*(grade(r)-1)) + 1
	if clamp {
		return clampDifficulty(d)
	}
	return d
}

// nextInterval computes the next review interval in days:
// I(r, S) = round((S / FACTOR) * (r^(1/DECAY) - 1)), clamped to [1, maxIvl].
func (a *algo) nextInterval(stability, desiredRetention float64, maxIvl int) int {
	ivl := stability / a.factor * (math.Pow(desiredRetention, 1.0/a.decay) - 1)
	rounded := int(math.Round(ivl))
	if rounded < 1 {
		rounded = 1
	}
	if rounded > maxIvl {
		rounded = maxIvl
	}
	return rounded
}

// nextDifficulty computes the updated difficulty after a review:
// linear damping toward the scale midpoint followed by mean reversion
// toward D0(Easy), clamped to [1, 10].
func (a *algo) nextDifficulty(difficulty float64, r domain.Rating) float64 {
	deltaD := -a.w[6] * (grade(r) - 3)
	damped := difficulty + (10-difficulty)*deltaD/9
	target := a.initDifficulty(domain.RatingEasy, false)
	reverted := a.w[7]*target + (1-a.w[7])*damped
	return clampDifficulty(reverted)
}

// nextStability dispatches to the recall or forget formula.
func (a *algo) nextStability(difficulty, stability, retrievability float64, r domain.Rating) float64 {
	if r == domain.RatingAgain {
		return a.nextForgetStability(difficulty, stability, retrievability)
	}
	return a.nextRecallStability(difficulty, stability, retrievability, r)
}

// nextRecallStability computes stability after a successful recall:
// S' = S * (1 + e^w[8] * (11-D) * S^(-w[9]) * (e^((1-R)*w[10]) - 1) * hardPenalty * easyBonus).
func (a *algo) nextRecallStability(d, s, r float64, rating domain.Rating) float64 {
	hardPenalty := 1.0
	if rating == domain.RatingHard {
		hardPenalty = a.w[15]
	}
	easyBonus := 1.0
	if rating == domain.RatingEasy {
		easyBonus = a.w[16]
	}
	return clampStability(s * (1 + math.Exp(a.w[8])*
		(11-d)*
		math.Pow(s, -a.w[9])*
		(math.Exp((1-r)*a.w[10])-1)*
		hardPenalty*easyBonus))
}

// nextForgetStability computes stability after forgetting:
// the minimum of the long-term forget formula and a short-term bound.
func (a *algo) nextForgetStability(d, s, r float64) float64 {
	long := a.w[11] *
		math.Pow(d, -a.w[12]) *
		(math.Pow(s+1, a.w[13]) - 1) *
		math.Exp((1-r)*a.w[14])
	short := s / math.Exp(a.w[17]*a.w[18])
	return clampStability(math.Min(long, short))
}

const minStability = 0.001

// clampStability clamps stability to a small positive minimum.
func clampStability(s float64) float64 {
	return math.Max(s, minStability)
}

// clampDifficulty clamps difficulty to [1, 10].
func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}
