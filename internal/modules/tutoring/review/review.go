// Package review schedules spaced-repetition reviews from a learner state. It never
// mutates the state it reads.
package review

import (
	"math"
	"sort"
	"time"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
)

const (
	PassingPerformance = 0.6
	MaxIntervalDays    = 60.0
)

const day = 24 * time.Hour

// NextInterval returns the days until the next review of a topic.
func NextInterval(mastery, previousDays, performance float64) float64 {
	if performance < PassingPerformance {
		return 1
	}
	ease := 1.3 + 0.8*(performance-PassingPerformance)
	modifier := 0.5 + mastery

	var next float64
	switch {
	case previousDays < 1:
		next = 1
	case previousDays < 2:
		next = 3 * modifier
	default:
		next = previousDays * ease * modifier
	}
	return math.Min(next, MaxIntervalDays)
}

type Due struct {
	Topic        string    `json:"topic"`
	DueAt        time.Time `json:"due_at"`
	IntervalDays float64   `json:"interval_days"`
	Mastery      float64   `json:"mastery"`
	Practiced    bool      `json:"practiced"`
}

type Scheduler struct {
	graph *curriculum.Graph
	now   func() time.Time
}

type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(g *curriculum.Graph, opts ...Option) *Scheduler {
	s := &Scheduler{graph: g, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Interval is the review interval for topic in state. An interval recorded by an
// outcome report is authoritative. Without one the topic is on its first review step,
// which NextInterval fixes at one day whatever the mastery and last performance.
func Interval(state *domain.LearnerState, topic string) float64 {
	if d := state.ReviewIntervalDays[topic]; d > 0 {
		return d
	}
	perf, ok := state.LastPerformance[topic]
	if !ok {
		perf = state.Mastery[topic]
	}
	return NextInterval(state.Mastery[topic], 0, perf)
}

// Schedule maps every catalog topic to its due time. Topics with no recorded practice
// are due now.
func (s *Scheduler) Schedule(state *domain.LearnerState) map[string]time.Time {
	out := make(map[string]time.Time, s.graph.Len())
	for _, d := range s.Plan(state) {
		out[d.Topic] = d.DueAt
	}
	return out
}

// Plan is Schedule ordered by due time, then catalog order.
func (s *Scheduler) Plan(state *domain.LearnerState) []Due {
	now := s.now()
	keys := s.graph.Keys()
	out := make([]Due, 0, len(keys))
	for _, k := range keys {
		d := Due{Topic: k, DueAt: now, Mastery: state.Mastery[k]}
		last, ok := state.LastPracticedAt[k]
		if ok && !last.IsZero() {
			d.Practiced = true
			d.IntervalDays = Interval(state, k)
			elapsed := now.Sub(last)
			remaining := time.Duration(d.IntervalDays*float64(day)) - elapsed
			if remaining > 0 {
				d.DueAt = now.Add(remaining)
			}
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out
}

// DueBy lists the topics due at or before t.
func (s *Scheduler) DueBy(state *domain.LearnerState, t time.Time) []string {
	var out []string
	for _, d := range s.Plan(state) {
		if !d.DueAt.After(t) {
			out = append(out, d.Topic)
		}
	}
	return out
}
