package fsrs

import "fmt"

// DefaultWeights are the FSRS v6 default parameter values.
var DefaultWeights = [21]float64{
	0.212, 1.2931, 2.3065, 8.2956, // w[0..3]  initial stability S0(G)
	6.4133, 0.8334, 3.0194, 0.001, // w[4..7]  difficulty params
	1.8722, 0.1666, 0.796, 1.4835, // w[8..11] recall stability params
	0.0614, 0.2629, 1.6483, 0.6014, // w[12..15] forget stability params
	1.8729, 0.5425, 0.0912, 0.0658, // w[16..19] easy/short-term params
	0.1542, // w[20] decay exponent
}

// Params defines all configurable parameters for the scheduler.
type Params struct {
	// Weights are the 21 FSRS model weights.
	Weights [21]float64

	// DesiredRetention is the target recall probability at review time,
	// e.g. 0.9 for 90%.
	DesiredRetention float64

	// MaxIntervalDays caps the scheduled interval to avoid runaway
	// scheduling on very stable cards.
	MaxIntervalDays int

	// AgainReviewMinutes is how soon a failed card comes back.
	AgainReviewMinutes int

	// LearningStepMinutes is the retry delay for a Hard answer on a
	// card that has not yet graduated to the review state.
	LearningStepMinutes int
}

// NewDefaultParams creates a Params instance with default values.
func NewDefaultParams() *Params {
	return &Params{
		Weights:             DefaultWeights,
		DesiredRetention:    0.9,
		MaxIntervalDays:     36500,
		AgainReviewMinutes:  10,
		LearningStepMinutes: 30,
	}
}

// Validate checks that the parameters are usable.
func (p *Params) Validate() error {
	if p.DesiredRetention <= 0 || p.DesiredRetention >= 1 {
		return fmt.Errorf("%w: desired retention %f not in (0, 1)", ErrInvalidParams, p.DesiredRetention)
	}
	if p.MaxIntervalDays < 1 {
		return fmt.Errorf("%w: max interval %d days", ErrInvalidParams, p.MaxIntervalDays)
	}
	if p.AgainReviewMinutes < 1 || p.LearningStepMinutes < 1 {
		return fmt.Errorf("%w: step minutes must be positive", ErrInvalidParams)
	}
	if p.Weights[20] <= 0 {
		return fmt.Errorf("%w: decay weight w[20] must be positive", ErrInvalidParams)
	}
	return nil
}
