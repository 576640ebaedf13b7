package learner

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
)

// SampleProfile draws one simulated learner. Every trait is sampled inside a range
// that keeps the dynamics well-behaved (e.g. working memory stays below 2.5 so the
// load term never flips sign).
func SampleProfile(rng *rand.Rand, subjects []string) *domain.LearnerProfile {
	u := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	aptitude := make(map[string]float64, len(subjects))
	for _, s := range subjects {
		aptitude[s] = u(0.7, 1.3)
	}

	prefs := make([]float64, domain.LearningStyleCount)
	for i := range prefs {
		// Exponential draws normalised to a Dirichlet(1,...,1) sample.
		prefs[i] = rng.ExpFloat64()
	}
	if sum := floats.Sum(prefs); sum > 0 {
		floats.Scale(1/sum, prefs)
	}

	return &domain.LearnerProfile{
		LearningRate:    u(0.15, 0.30),
		SubjectAptitude: aptitude,
		ForgettingRate:  u(0.02, 0.08),
		MemoryStrength:  u(0.7, 1.3),

		AttentionSpan:  u(0.6, 1.0),
		AttentionDecay: u(0.02, 0.06),

		InterestSensitivity: u(0.5, 1.5),
		SuccessSensitivity:  u(0.5, 1.5),
		FailureSensitivity:  u(0.5, 1.5),
		VarietySeeking:      u(0.2, 1.0),
		ChallengeSeeking:    u(0.2, 1.0),

		WorkingMemory:   u(0.6, 1.4),
		ProcessingSpeed: u(0.7, 1.3),

		StylePreferences: prefs,

		IntrinsicMotivation:  u(0.3, 0.9),
		ExtrinsicSensitivity: u(0.2, 0.8),
		Persistence:          u(0.3, 1.0),
		MasteryOrientation:   u(0.2, 1.0),

		MisconceptionPropensity: u(0.1, 0.5),
		ScaffoldingBenefit:      u(0.5, 1.5),
		FeedbackSensitivity:     u(0.5, 1.5),
	}
}

// DefaultProfile is the population-average learner, used when a session has no
// recorded profile.
func DefaultProfile(subjects []string) *domain.LearnerProfile {
	aptitude := make(map[string]float64, len(subjects))
	for _, s := range subjects {
		aptitude[s] = 1
	}
	prefs := make([]float64, domain.LearningStyleCount)
	for i := range prefs {
		prefs[i] = 1 / float64(domain.LearningStyleCount)
	}
	return &domain.LearnerProfile{
		LearningRate:            0.22,
		SubjectAptitude:         aptitude,
		ForgettingRate:          0.05,
		MemoryStrength:          1,
		AttentionSpan:           0.8,
		AttentionDecay:          0.04,
		InterestSensitivity:     1,
		SuccessSensitivity:      1,
		FailureSensitivity:      1,
		VarietySeeking:          0.6,
		ChallengeSeeking:        0.6,
		WorkingMemory:           1,
		ProcessingSpeed:         1,
		StylePreferences:        prefs,
		IntrinsicMotivation:     0.6,
		ExtrinsicSensitivity:    0.5,
		Persistence:             0.65,
		MasteryOrientation:      0.6,
		MisconceptionPropensity: 0.3,
		ScaffoldingBenefit:      1,
		FeedbackSensitivity:     1,
	}
}
