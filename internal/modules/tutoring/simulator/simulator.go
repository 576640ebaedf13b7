// Package simulator is a fixed-horizon learning environment: reset returns an
// observation, step applies one instructional action to a simulated learner and
// reports a shaped reward. Any policy-optimisation component can drive it.
package simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/dynamics"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/learner"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/observation"
	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
)

var (
	ErrNotReset      = errors.New("simulator: step before reset")
	ErrTerminated    = errors.New("simulator: session terminated")
	ErrInvalidAction = errors.New("simulator: invalid action")
)

type Config struct {
	Horizon int `yaml:"horizon" json:"horizon"`
	// InputSize is the observation length the driving policy expects; 0 keeps the
	// natural length.
	InputSize       int              `yaml:"input_size" json:"input_size"`
	OverrideEnabled bool             `yaml:"override_enabled" json:"override_enabled"`
	Override        PriorityOverride `yaml:"override" json:"override"`
	Reward          RewardConfig     `yaml:"reward" json:"reward"`
}

func DefaultConfig() Config {
	return Config{
		Horizon:         100,
		OverrideEnabled: true,
		Override:        DefaultPriorityOverride(),
		Reward:          DefaultRewardConfig(),
	}
}

type StepInfo struct {
	Step                     int             `json:"step"`
	Topic                    string          `json:"topic"`
	TopicIndex               int             `json:"topic_index"`
	Overridden               bool            `json:"overridden"`
	PrerequisiteSatisfaction float64         `json:"prerequisite_satisfaction"`
	EffectiveDifficulty      float64         `json:"effective_difficulty"`
	StyleMatch               float64         `json:"style_match"`
	ScaffoldingFactor        float64         `json:"scaffolding_factor"`
	LearningEfficacy         float64         `json:"learning_efficacy"`
	MasteryGain              float64         `json:"mastery_gain"`
	Performance              float64         `json:"performance"`
	MisconceptionFormed      bool            `json:"misconception_formed"`
	MisconceptionCleared     bool            `json:"misconception_cleared"`
	AverageMastery           float64         `json:"average_mastery"`
	Degraded                 bool            `json:"degraded"`
	Reward                   RewardBreakdown `json:"reward"`
}

type StepResult struct {
	Observation []float64
	Reward      float64
	Terminated  bool
	Info        StepInfo
}

// Simulator owns one simulated learner. It is not safe for concurrent use; run one
// instance per worker.
type Simulator struct {
	cfg      Config
	graph    *curriculum.Graph
	encoder  *observation.Encoder
	selector TopicSelector
	rng      *rand.Rand
	log      *logger.Logger
	onStep   func(StepResult)

	fixedProfile *domain.LearnerProfile
	profile      *domain.LearnerProfile
	state        *domain.LearnerState

	steps      int
	terminated bool
	bestBand   int
	stagnant   int
}

type Option func(*Simulator)

func WithSeed(seed int64) Option {
	return func(s *Simulator) { s.rng = rand.New(rand.NewSource(seed)) }
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Simulator) {
		if log != nil {
			s.log = log.With("component", "LearningSimulator")
		}
	}
}

// WithProfile makes every Reset use p instead of sampling a new learner.
func WithProfile(p *domain.LearnerProfile) Option {
	return func(s *Simulator) { s.fixedProfile = p }
}

func WithEncoder(e *observation.Encoder) Option {
	return func(s *Simulator) { s.encoder = e }
}

// WithTopicSelector replaces the selector derived from Config.
func WithTopicSelector(sel TopicSelector) Option {
	return func(s *Simulator) { s.selector = sel }
}

func WithStepHook(fn func(StepResult)) Option {
	return func(s *Simulator) { s.onStep = fn }
}

func New(g *curriculum.Graph, cfg Config, opts ...Option) *Simulator {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultConfig().Horizon
	}
	s := &Simulator{
		cfg:   cfg,
		graph: g,
		log:   logger.Nop(),
	}
	if cfg.OverrideEnabled {
		s.selector = cfg.Override
	} else {
		s.selector = KeepTopic{}
	}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.encoder == nil {
		s.encoder = observation.NewEncoder(g, cfg.InputSize, s.log)
	}
	return s
}

func (s *Simulator) ObservationSize() int { return s.encoder.Size() }

func (s *Simulator) ActionCardinality() [domain.ActionHeads]int {
	return domain.ActionCardinality(s.graph.Len())
}

func (s *Simulator) Horizon() int { return s.cfg.Horizon }

// Reset starts a new episode with either the fixed profile or a freshly sampled one.
func (s *Simulator) Reset() []float64 {
	p := s.fixedProfile
	if p == nil {
		p = learner.SampleProfile(s.rng, s.graph.Subjects())
	}
	return s.ResetWithProfile(p)
}

func (s *Simulator) ResetWithProfile(p *domain.LearnerProfile) []float64 {
	s.profile = p
	s.state = learner.NewSimulatedState(s.graph, p, s.rng)
	s.steps = 0
	s.terminated = false
	s.bestBand = -1
	s.stagnant = 0
	return s.Observe()
}

// Observe encodes the current state without advancing the episode.
func (s *Simulator) Observe() []float64 {
	if s.state == nil {
		return make([]float64, s.encoder.Size())
	}
	vec, _ := s.encoder.Observe(s.state, s.profile)
	return vec
}

// State returns a copy of the learner state.
func (s *Simulator) State() *domain.LearnerState { return s.state.Clone() }

func (s *Simulator) Profile() *domain.LearnerProfile { return s.profile }

func (s *Simulator) Steps() int { return s.steps }

func (s *Simulator) Terminated() bool { return s.terminated }

func (s *Simulator) Step(a domain.Action) (StepResult, error) {
	if s.state == nil {
		return StepResult{}, ErrNotReset
	}
	if s.terminated {
		return StepResult{}, ErrTerminated
	}
	if err := a.Validate(s.graph.Len()); err != nil {
		return StepResult{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	g, st, p := s.graph, s.state, s.profile

	topicIdx, overridden := s.selector.Select(s.rng, g, st, a.TopicIndex)
	topic := g.Topic(topicIdx)
	key := topic.Key

	prior := dynamics.Clip(st.Mastery[key], 0, 1)
	priorAttempts := st.TopicAttempts[key]
	sameTopic := st.CurrentTopic == key

	prereq := dynamics.PrerequisiteSatisfaction(g, st, topicIdx)
	eff := dynamics.EffectiveDifficulty(topic.BaseDifficulty, a.Difficulty, prior)
	match := dynamics.StyleMatch(a.Strategy, p.StylePreferences)
	scaffold := dynamics.ScaffoldingFactor(a.Scaffolding, prior, eff, p.ScaffoldingBenefit)

	st.CognitiveLoad = dynamics.UpdateCognitiveLoad(st.CognitiveLoad, dynamics.LoadInput{
		EffectiveDifficulty: eff,
		Length:              a.Length,
		Strategy:            a.Strategy,
		Scaffolding:         a.Scaffolding,
		WorkingMemory:       p.WorkingMemory,
		Attention:           st.Attention,
		Motivation:          st.Motivation,
	})
	st.Attention = dynamics.UpdateAttention(st.Attention, dynamics.AttentionInput{
		Strategy:      a.Strategy,
		Length:        a.Length,
		CognitiveLoad: st.CognitiveLoad,
		Span:          p.AttentionSpan,
		DecayRate:     p.AttentionDecay,
	})

	efficacy := dynamics.LearningEfficacy(prereq, match, st.Attention, st.CognitiveLoad, st.Motivation)
	gain := dynamics.MasteryGain(dynamics.BaseRate(p, topic.Subject), efficacy, scaffold, a.Length, prior)

	perf := dynamics.SimulatedPerformance(prior, gain, eff, s.rng.NormFloat64())
	st.RecentPerformance = dynamics.SmoothPerformance(st.RecentPerformance, perf)
	st.LastPerformance[key] = perf

	mc := dynamics.ResolveMisconception(gain, st.Misconceptions[key],
		dynamics.ClearProbability(efficacy, a.Feedback, a.Strategy, p.FeedbackSensitivity),
		dynamics.FormProbability(prereq, eff, perf, p.MisconceptionPropensity, prior),
		s.rng.Float64,
	)
	formed, cleared := mc.Formed, mc.Cleared
	if mc.Severity > 0 {
		st.Misconceptions[key] = mc.Severity
	} else {
		delete(st.Misconceptions, key)
	}
	gain = mc.Gain
	gain = dynamics.Clip(gain, -prior, 1-prior)
	st.Mastery[key] = dynamics.Clip(prior+gain, 0, 1)
	st.PracticeAnchor[key] = st.Mastery[key]

	dynamics.Forget(st, p, key)

	freq := dynamics.FitHistory(st.StrategyHistory)[a.Strategy]
	st.Motivation = dynamics.UpdateMotivation(st.Motivation, p, dynamics.MotivationSignal{
		Performance:          perf,
		Gain:                 gain,
		MisconceptionFormed:  formed,
		MisconceptionCleared: cleared,
	})
	st.Engagement = dynamics.UpdateEngagement(st.Engagement, p, dynamics.EngagementInput{
		Performance:         perf,
		Gain:                gain,
		StrategyFrequency:   freq,
		EffectiveDifficulty: eff,
		CognitiveLoad:       st.CognitiveLoad,
	})

	dynamics.RecordPractice(st, g, key, a.Strategy)
	s.steps++

	rc := s.cfg.Reward
	if sameTopic && gain < rc.StagnationGain && st.Mastery[key] < rc.StagnationMastery {
		s.stagnant++
	} else {
		s.stagnant = 0
	}

	avg := dynamics.AverageMastery(g, st)
	newBand := false
	if rc.MilestoneBand > 0 && avg > rc.MilestoneFloor {
		band := int(math.Floor((avg - rc.MilestoneFloor) / rc.MilestoneBand))
		if band > s.bestBand {
			s.bestBand = band
			newBand = true
		}
	}

	breakdown := rc.Compute(RewardInput{
		Gain:                gain,
		PriorMastery:        prior,
		EffectiveDifficulty: eff,
		Prerequisite:        prereq,
		CognitiveLoad:       st.CognitiveLoad,
		Motivation:          st.Motivation,
		Engagement:          st.Engagement,
		Scaffolding:         a.Scaffolding,
		Length:              a.Length,
		PriorAttempts:       priorAttempts,
		Formed:              formed,
		Cleared:             cleared,
		StagnantSteps:       s.stagnant,
		NewMilestone:        newBand,
	})

	s.terminated = s.steps >= s.cfg.Horizon
	obs, degraded := s.encoder.Observe(st, p)

	res := StepResult{
		Observation: obs,
		Reward:      breakdown.Total,
		Terminated:  s.terminated,
		Info: StepInfo{
			Step:                     s.steps,
			Topic:                    key,
			TopicIndex:               topicIdx,
			Overridden:               overridden,
			PrerequisiteSatisfaction: prereq,
			EffectiveDifficulty:      eff,
			StyleMatch:               match,
			ScaffoldingFactor:        scaffold,
			LearningEfficacy:         efficacy,
			MasteryGain:              gain,
			Performance:              perf,
			MisconceptionFormed:      formed,
			MisconceptionCleared:     cleared,
			AverageMastery:           avg,
			Degraded:                 degraded,
			Reward:                   breakdown,
		},
	}
	if s.onStep != nil {
		s.onStep(res)
	}
	return res, nil
}
