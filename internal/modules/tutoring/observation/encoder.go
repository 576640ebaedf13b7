// Package observation flattens a learner's state into the fixed-order numeric vector
// consumed by decision policies.
//
// Layout (N topics, K styles, S strategies):
//
//	mastery[N] engagement attention cognitive_load motivation style_prefs[K]
//	strategy_history[S] attempts[N] time_since_practiced[N] misconceptions[N]
//	current_topic recent_performance steps_on_current_topic
//
// Any trained policy depends on this order exactly.
package observation

import (
	"sync/atomic"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/dynamics"
	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
)

const (
	attemptsScale = 20.0
	recencyScale  = 50.0
	stepsScale    = 10.0
)

// Length is the natural vector length for a catalog of n topics.
func Length(n int) int {
	return 4*n + domain.LearningStyleCount + domain.StrategyCount + 5
}

// Encode is a pure function of its inputs.
func Encode(s *domain.LearnerState, p *domain.LearnerProfile, g *curriculum.Graph) []float64 {
	n := g.Len()
	keys := g.Keys()
	out := make([]float64, 0, Length(n))

	for _, k := range keys {
		out = append(out, dynamics.Clip(s.Mastery[k], 0, 1))
	}
	out = append(out,
		dynamics.Clip(s.Engagement, 0, 1),
		dynamics.Clip(s.Attention, 0, 1),
		dynamics.Clip(s.CognitiveLoad, 0, 1),
		dynamics.Clip(s.Motivation, 0, 1),
	)

	var prefs []float64
	if p != nil {
		prefs = p.StylePreferences
	}
	out = append(out, dynamics.NormalizePreferences(prefs, domain.LearningStyleCount)...)
	out = append(out, dynamics.FitHistory(s.StrategyHistory)...)

	for _, k := range keys {
		out = append(out, dynamics.Clip(float64(s.TopicAttempts[k])/attemptsScale, 0, 1))
	}
	for _, k := range keys {
		out = append(out, dynamics.Clip(float64(s.TimeSincePracticed[k])/recencyScale, 0, 1))
	}
	for _, k := range keys {
		out = append(out, dynamics.Clip(s.Misconceptions[k], 0, 1))
	}

	current := n
	if i, ok := g.Index(s.CurrentTopic); ok && s.CurrentTopic != "" {
		current = i
	}
	out = append(out,
		float64(current)/float64(n),
		dynamics.Clip(s.RecentPerformance, 0, 1),
		dynamics.Clip(float64(s.StepsOnCurrentTopic)/stepsScale, 0, 1),
	)
	return out
}

// Fit zero-pads or truncates vec to target. The bool reports whether a repair was
// needed. A non-positive target leaves vec untouched.
func Fit(vec []float64, target int) ([]float64, bool) {
	if target <= 0 || len(vec) == target {
		return vec, false
	}
	out := make([]float64, target)
	copy(out, vec)
	return out, true
}

// Encoder binds a graph and a policy's declared input size, and counts how often the
// produced vector had to be repaired.
type Encoder struct {
	graph      *curriculum.Graph
	target     int
	log        *logger.Logger
	onDegraded func(natural, target int)
	degraded   atomic.Int64
}

type Option func(*Encoder)

// WithDegradedHook registers a callback fired on every repaired vector.
func WithDegradedHook(fn func(natural, target int)) Option {
	return func(e *Encoder) { e.onDegraded = fn }
}

func NewEncoder(g *curriculum.Graph, targetSize int, log *logger.Logger, opts ...Option) *Encoder {
	if log == nil {
		log = logger.Nop()
	}
	e := &Encoder{graph: g, target: targetSize, log: log.With("component", "ObservationEncoder")}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Size is the length every observation from this encoder has.
func (e *Encoder) Size() int {
	if e.target > 0 {
		return e.target
	}
	return Length(e.graph.Len())
}

func (e *Encoder) Observe(s *domain.LearnerState, p *domain.LearnerProfile) ([]float64, bool) {
	vec := Encode(s, p, e.graph)
	natural := len(vec)
	vec, repaired := Fit(vec, e.target)
	if repaired {
		e.degraded.Add(1)
		e.log.Warn("observation length mismatch repaired", "natural", natural, "target", e.target)
		if e.onDegraded != nil {
			e.onDegraded(natural, e.target)
		}
	}
	return vec, repaired
}

// DegradedCount is the number of repaired observations since construction.
func (e *Encoder) DegradedCount() int64 { return e.degraded.Load() }
