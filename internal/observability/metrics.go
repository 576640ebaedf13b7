package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tutor"

// Metrics holds the tutoring counters. A nil *Metrics is valid and records nothing,
// so components can take one optionally.
type Metrics struct {
	observationDegraded prometheus.Counter
	policyFallback      *prometheus.CounterVec
	simulatorSteps      prometheus.Counter
	episodeReturn       prometheus.Histogram
	decisionSeconds     *prometheus.HistogramVec
	outcomes            *prometheus.CounterVec
	storeErrors         *prometheus.CounterVec
}

// NewMetrics registers every collector on reg. Pass prometheus.NewRegistry() in tests
// to avoid duplicate registration on the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		observationDegraded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observation_degraded_total",
			Help:      "Observations padded or truncated to the policy input size",
		}),
		policyFallback: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_fallback_total",
			Help:      "Decisions that used the default action instead of policy output",
		}, []string{"reason"}),
		simulatorSteps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulator_steps_total",
			Help:      "Simulator steps executed",
		}),
		episodeReturn: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulator_episode_return",
			Help:      "Undiscounted return per simulated episode",
			Buckets:   []float64{-50, 0, 50, 100, 200, 400, 800, 1600},
		}),
		decisionSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_seconds",
			Help:      "Latency of instructional plan decisions",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"source"}),
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Reported learning outcomes by direction of the mastery change",
		}, []string{"direction"}),
		storeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Session store failures",
		}, []string{"backend", "op"}),
	}
}

func (m *Metrics) ObservationDegraded() {
	if m == nil {
		return
	}
	m.observationDegraded.Inc()
}

func (m *Metrics) PolicyFallback(reason string) {
	if m == nil {
		return
	}
	m.policyFallback.WithLabelValues(reason).Inc()
}

func (m *Metrics) SimulatorStep() {
	if m == nil {
		return
	}
	m.simulatorSteps.Inc()
}

func (m *Metrics) EpisodeReturn(v float64) {
	if m == nil {
		return
	}
	m.episodeReturn.Observe(v)
}

func (m *Metrics) ObserveDecision(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.decisionSeconds.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) Outcome(delta float64) {
	if m == nil {
		return
	}
	dir := "flat"
	switch {
	case delta > 0:
		dir = "gain"
	case delta < 0:
		dir = "loss"
	}
	m.outcomes.WithLabelValues(dir).Inc()
}

func (m *Metrics) StoreError(backend, op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(backend, op).Inc()
}
