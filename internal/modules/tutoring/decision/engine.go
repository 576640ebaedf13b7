// Package decision turns a learner state and an optional trained policy into an
// instructional plan, and folds reported learning outcomes back into the state.
package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/dynamics"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/observation"
	"github.com/yungbote/neurobridge-tutor/internal/observability"
	"github.com/yungbote/neurobridge-tutor/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
	"github.com/yungbote/neurobridge-tutor/internal/policy"
)

var ErrUnknownTopic = errors.New("unknown topic")

// Fallback reasons recorded on plans and in metrics.
const (
	ReasonNoPolicy      = "no_policy"
	ReasonTimeout       = "timeout"
	ReasonUnavailable   = "unavailable"
	ReasonInputSize     = "input_size"
	ReasonInvalidAction = "invalid_action"
	ReasonPanic         = "panic"
	ReasonError         = "prediction_error"
)

const DefaultPolicyTimeout = 2 * time.Second

var errPolicyPanic = errors.New("policy panicked")

type Engine struct {
	graph   *curriculum.Graph
	policy  policy.Policy
	encoder *observation.Encoder
	timeout time.Duration
	log     *logger.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

type Option func(*Engine)

// WithPolicy sets the trained policy. A nil policy makes every plan a fallback plan.
func WithPolicy(p policy.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(g *curriculum.Graph, opts ...Option) *Engine {
	e := &Engine{
		graph:   g,
		timeout: DefaultPolicyTimeout,
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("component", "DecisionEngine")

	target := 0
	if e.policy != nil {
		target = e.policy.InputSize()
	}
	e.encoder = observation.NewEncoder(g, target, e.log,
		observation.WithDegradedHook(func(int, int) { e.metrics.ObservationDegraded() }))
	return e
}

func (e *Engine) Graph() *curriculum.Graph { return e.graph }

func (e *Engine) PolicyName() string { return policy.NameOf(e.policy) }

// Encoder exposes the engine's observation encoder and its degraded counter.
func (e *Engine) Encoder() *observation.Encoder { return e.encoder }

// ResolveTopic maps a key or fuzzy topic string to a catalog index.
func (e *Engine) ResolveTopic(query string) (int, error) {
	if i, ok := e.graph.Index(query); ok {
		return i, nil
	}
	if i, ok := MatchTopic(query, e.graph.Keys()); ok {
		return i, nil
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownTopic, query)
}

// Decide produces the next instructional plan and records the content-selection act
// in the state's history fields (attempts, strategy history, recency, current topic).
// Mastery, engagement, attention, cognitive load and motivation are left to
// ReportOutcome. Policy failures never surface as errors; the plan falls back to the
// default action and says why.
func (e *Engine) Decide(ctx context.Context, state *domain.LearnerState, profile *domain.LearnerProfile, userTopic string) domain.InstructionalPlan {
	start := e.now()
	ctx, span := observability.Tracer().Start(ctx, "tutor.decide")
	defer span.End()
	log := e.log.With(ctxutil.LogFields(ctx)...)

	state.EnsureMaps()
	obs, degraded := e.encoder.Observe(state, profile)

	action := domain.DefaultAction()
	source := domain.PlanSourceFallback
	reason := ReasonNoPolicy
	if e.policy != nil {
		a, err := e.predict(ctx, obs)
		if err != nil {
			reason = classify(err)
			log.Warn("policy fallback", "reason", reason, "policy", policy.NameOf(e.policy), "error", err)
			span.RecordError(err)
		} else {
			action, source, reason = a, domain.PlanSourcePolicy, ""
		}
	}
	if reason != "" {
		e.metrics.PolicyFallback(reason)
	}

	topicIdx := action.TopicIndex
	matched := false
	if userTopic != "" {
		if i, ok := MatchTopic(userTopic, e.graph.Keys()); ok {
			topicIdx, matched = i, true
		} else {
			log.Debug("user topic not matched", "query", userTopic)
		}
	}
	topicIdx = e.graph.Clamp(topicIdx)
	topic := e.graph.Topic(topicIdx)

	prereq := dynamics.PrerequisiteSatisfaction(e.graph, state, topicIdx)
	eff := dynamics.EffectiveDifficulty(topic.BaseDifficulty, action.Difficulty, dynamics.Clip(state.Mastery[topic.Key], 0, 1))

	dynamics.RecordPractice(state, e.graph, topic.Key, action.Strategy)

	plan := domain.InstructionalPlan{
		Topic:                    topic.Key,
		TopicIndex:               topicIdx,
		Strategy:                 action.Strategy,
		Difficulty:               action.Difficulty,
		EffectiveDifficulty:      eff,
		Scaffolding:              action.Scaffolding,
		Feedback:                 action.Feedback,
		Length:                   action.Length,
		PrerequisiteSatisfaction: prereq,
		Source:                   source,
		FallbackReason:           reason,
		UserTopicMatch:           matched,
		Degraded:                 degraded,
	}

	span.SetAttributes(
		attribute.String("tutor.topic", plan.Topic),
		attribute.String("tutor.source", string(plan.Source)),
		attribute.Bool("tutor.degraded", degraded),
	)
	if reason != "" && reason != ReasonNoPolicy {
		span.SetStatus(codes.Error, reason)
	}
	e.metrics.ObserveDecision(string(source), e.now().Sub(start))
	log.Debug("plan decided",
		"topic", plan.Topic,
		"strategy", plan.Strategy.String(),
		"difficulty", plan.Difficulty.String(),
		"source", string(plan.Source),
	)
	return plan
}

// predict queries the policy under the engine timeout. The query runs in its own
// goroutine so a policy that ignores its context still cannot block the caller.
func (e *Engine) predict(ctx context.Context, obs []float64) (domain.Action, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		idx domain.ActionIndices
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("%w: %v", errPolicyPanic, r)}
			}
		}()
		idx, err := e.policy.Predict(ctx, obs)
		ch <- result{idx: idx, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return domain.Action{}, r.err
		}
		return policy.Resolve(r.idx, e.graph.Len())
	case <-ctx.Done():
		return domain.Action{}, fmt.Errorf("%w: %w", policy.ErrUnavailable, ctx.Err())
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, errPolicyPanic):
		return ReasonPanic
	case errors.Is(err, policy.ErrInputSize):
		return ReasonInputSize
	case errors.Is(err, policy.ErrInvalidAction):
		return ReasonInvalidAction
	case errors.Is(err, policy.ErrUnavailable):
		return ReasonUnavailable
	default:
		return ReasonError
	}
}
