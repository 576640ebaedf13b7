package learner

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
)

// NewSessionState is the state of a learner at the start of a real session: no
// recorded mastery and mid-range scalars.
func NewSessionState(g *curriculum.Graph, p *domain.LearnerProfile) *domain.LearnerState {
	s := &domain.LearnerState{
		Engagement:      0.6,
		Attention:       0.5,
		CognitiveLoad:   0.3,
		Motivation:      0.6,
		StrategyHistory: make([]float64, domain.StrategyCount),
	}
	if p != nil && p.AttentionSpan > 0 {
		s.Attention = p.AttentionSpan
	}
	s.EnsureMaps()
	for _, k := range g.Keys() {
		s.Mastery[k] = 0
		s.TopicAttempts[k] = 0
		s.TimeSincePracticed[k] = 0
	}
	return s
}

// NewSimulatedState is the reset state of a simulated learner: low random prior
// mastery, mid-range engagement and motivation, light cognitive load and full attention.
func NewSimulatedState(g *curriculum.Graph, p *domain.LearnerProfile, rng *rand.Rand) *domain.LearnerState {
	s := NewSessionState(g, p)
	for _, k := range g.Keys() {
		m := 0.01 + rng.Float64()*0.14
		s.Mastery[k] = m
		s.PracticeAnchor[k] = m
	}
	s.Engagement = 0.5 + rng.Float64()*0.2
	s.Motivation = 0.5 + rng.Float64()*0.2
	s.CognitiveLoad = 0.2 + rng.Float64()*0.2
	s.Attention = p.AttentionSpan
	return s
}

// CheckInvariants reports the first bounded field found outside its domain. A non-nil
// result is a programming defect in whatever mutated the state.
func CheckInvariants(s *domain.LearnerState, p *domain.LearnerProfile) error {
	in := func(name string, v, lo, hi float64) error {
		if v < lo || v > hi || math.IsNaN(v) {
			return fmt.Errorf("%s=%v outside [%v,%v]", name, v, lo, hi)
		}
		return nil
	}
	span := 1.0
	if p != nil && p.AttentionSpan > 0 {
		span = p.AttentionSpan
	}
	checks := []error{
		in("engagement", s.Engagement, 0, 1),
		in("attention", s.Attention, 0, span),
		in("cognitive_load", s.CognitiveLoad, 0, 1),
		in("motivation", s.Motivation, 0, 1),
		in("recent_performance", s.RecentPerformance, 0, 1),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	for k, v := range s.Mastery {
		if err := in("mastery["+k+"]", v, 0, 1); err != nil {
			return err
		}
	}
	for k, v := range s.Misconceptions {
		if err := in("misconceptions["+k+"]", v, 0, 1); err != nil {
			return err
		}
	}
	for i, v := range s.StrategyHistory {
		if err := in(fmt.Sprintf("strategy_history[%d]", i), v, 0, 1); err != nil {
			return err
		}
	}
	for k, v := range s.TopicAttempts {
		if v < 0 {
			return fmt.Errorf("topic_attempts[%s]=%d negative", k, v)
		}
	}
	return nil
}
