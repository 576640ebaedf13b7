package simulator

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/dynamics"
)

// TopicPriorities scores every topic by how useful practising it now would be and
// returns the scores as a probability distribution.
func TopicPriorities(g *curriculum.Graph, s *domain.LearnerState) []float64 {
	out := make([]float64, g.Len())
	for i, key := range g.Keys() {
		m := dynamics.Clip(s.Mastery[key], 0, 1)
		attempts := float64(s.TopicAttempts[key])

		learn := dynamics.PrerequisiteSatisfaction(g, s, i) * (1 - m)
		recency := 1 - math.Exp(-float64(s.TimeSincePracticed[key])/10)
		review := recency * (0.3 + 0.7*m) / (1 + 0.2*attempts)

		score := 0.7*learn + 0.3*review
		if sev := s.Misconceptions[key]; sev > 0 {
			score *= 1 + sev
		}
		if attempts < 2 {
			score *= 1.5
		}
		out[i] = math.Max(score, 1e-6)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// TopicSelector may replace the policy's topic before a training step.
type TopicSelector interface {
	Select(rng *rand.Rand, g *curriculum.Graph, s *domain.LearnerState, chosen int) (int, bool)
}

// KeepTopic never overrides.
type KeepTopic struct{}

func (KeepTopic) Select(_ *rand.Rand, _ *curriculum.Graph, _ *domain.LearnerState, chosen int) (int, bool) {
	return chosen, false
}

// PriorityOverride is a training-time exploration heuristic: with Probability, a
// chosen topic whose priority is below LowRatio/N is swapped for one of the TopK
// highest-priority topics, sampled proportionally to priority.
type PriorityOverride struct {
	Probability float64 `yaml:"probability" json:"probability"`
	LowRatio    float64 `yaml:"low_ratio" json:"low_ratio"`
	TopK        int     `yaml:"top_k" json:"top_k"`
}

func DefaultPriorityOverride() PriorityOverride {
	return PriorityOverride{Probability: 0.2, LowRatio: 0.5, TopK: 3}
}

func (o PriorityOverride) Select(rng *rand.Rand, g *curriculum.Graph, s *domain.LearnerState, chosen int) (int, bool) {
	if rng.Float64() >= o.Probability {
		return chosen, false
	}
	pr := TopicPriorities(g, s)
	if pr[chosen] >= o.LowRatio/float64(len(pr)) {
		return chosen, false
	}

	order := make([]int, len(pr))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pr[order[a]] > pr[order[b]] })
	k := o.TopK
	if k <= 0 || k > len(order) {
		k = len(order)
	}
	top := order[:k]

	total := 0.0
	for _, i := range top {
		total += pr[i]
	}
	pick := rng.Float64() * total
	for _, i := range top {
		pick -= pr[i]
		if pick <= 0 {
			return i, i != chosen
		}
	}
	last := top[len(top)-1]
	return last, last != chosen
}
