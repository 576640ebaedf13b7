package dynamics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
)

// strategyStyle[s][k] is how well strategy s suits a learner who prefers style k
// (columns: visual, auditory, read/write, kinesthetic).
var strategyStyle = mat.NewDense(domain.StrategyCount, domain.LearningStyleCount, []float64{
	0.5, 0.9, 0.9, 0.3, // explanation
	0.9, 0.5, 0.4, 0.8, // demonstration
	0.4, 0.3, 0.6, 1.0, // practice
	0.3, 0.9, 0.6, 0.5, // socratic
	0.8, 0.7, 0.6, 0.5, // analogy
	0.5, 0.5, 0.8, 0.4, // review
})

var strategyLoad = [domain.StrategyCount]float64{1.0, 0.85, 1.15, 1.1, 0.9, 0.8}

var strategyAttention = [domain.StrategyCount]float64{0.02, 0.05, 0.045, 0.05, 0.04, 0.025}

var (
	lengthLoad             = [domain.LengthChoiceCount]float64{0.7, 1.0, 1.35}
	lengthGain             = [domain.LengthChoiceCount]float64{0.8, 1.0, 1.15}
	lengthAttentionPenalty = [domain.LengthChoiceCount]float64{0, 0.005, 0.02}
)

var (
	scaffoldingBenefit       = [domain.ScaffoldingChoiceCount]float64{0, 0.3, 0.5}
	scaffoldingLoadReduction = [domain.ScaffoldingChoiceCount]float64{0, 0.15, 0.3}
)

var feedbackClearBonus = [domain.FeedbackChoiceCount]float64{0, 0.08, 0.15}

// LengthGainFactor is the mastery-gain multiplier for a content length.
func LengthGainFactor(l domain.LengthChoice) float64 {
	if !l.Valid() {
		return 1
	}
	return lengthGain[l]
}

// StrategyStyleRow returns the compatibility row of strategy s.
func StrategyStyleRow(s domain.Strategy) []float64 {
	return mat.Row(nil, int(s), strategyStyle)
}
