package domain

import (
	"time"
)

// LearnerProfile holds the fixed traits of one (simulated or modelled) learner.
type LearnerProfile struct {
	LearningRate    float64            `json:"learning_rate" yaml:"learning_rate"`
	SubjectAptitude map[string]float64 `json:"subject_aptitude" yaml:"subject_aptitude"`
	ForgettingRate  float64            `json:"forgetting_rate" yaml:"forgetting_rate"`
	MemoryStrength  float64            `json:"memory_strength" yaml:"memory_strength"`

	AttentionSpan  float64 `json:"attention_span" yaml:"attention_span"`
	AttentionDecay float64 `json:"attention_decay" yaml:"attention_decay"`

	InterestSensitivity float64 `json:"interest_sensitivity" yaml:"interest_sensitivity"`
	SuccessSensitivity  float64 `json:"success_sensitivity" yaml:"success_sensitivity"`
	FailureSensitivity  float64 `json:"failure_sensitivity" yaml:"failure_sensitivity"`
	VarietySeeking      float64 `json:"variety_seeking" yaml:"variety_seeking"`
	ChallengeSeeking    float64 `json:"challenge_seeking" yaml:"challenge_seeking"`

	WorkingMemory   float64 `json:"working_memory" yaml:"working_memory"`
	ProcessingSpeed float64 `json:"processing_speed" yaml:"processing_speed"`

	// StylePreferences is a probability simplex indexed by LearningStyle.
	StylePreferences []float64 `json:"style_preferences" yaml:"style_preferences"`

	IntrinsicMotivation  float64 `json:"intrinsic_motivation" yaml:"intrinsic_motivation"`
	ExtrinsicSensitivity float64 `json:"extrinsic_sensitivity" yaml:"extrinsic_sensitivity"`
	Persistence          float64 `json:"persistence" yaml:"persistence"`
	MasteryOrientation   float64 `json:"mastery_orientation" yaml:"mastery_orientation"`

	MisconceptionPropensity float64 `json:"misconception_propensity" yaml:"misconception_propensity"`
	ScaffoldingBenefit      float64 `json:"scaffolding_benefit" yaml:"scaffolding_benefit"`
	FeedbackSensitivity     float64 `json:"feedback_sensitivity" yaml:"feedback_sensitivity"`
}

// Aptitude returns the subject multiplier, 1.0 when the subject is unknown.
func (p *LearnerProfile) Aptitude(subject string) float64 {
	if p == nil || p.SubjectAptitude == nil {
		return 1
	}
	if v, ok := p.SubjectAptitude[subject]; ok && v > 0 {
		return v
	}
	return 1
}

// LearnerState is the mutable per-session learner model. Per-topic maps are keyed by
// the catalog topic key.
type LearnerState struct {
	Mastery            map[string]float64 `json:"mastery"`
	Engagement         float64            `json:"engagement"`
	Attention          float64            `json:"attention"`
	CognitiveLoad      float64            `json:"cognitive_load"`
	Motivation         float64            `json:"motivation"`
	Misconceptions     map[string]float64 `json:"misconceptions"`
	TopicAttempts      map[string]int     `json:"topic_attempts"`
	TimeSincePracticed map[string]int     `json:"time_since_practiced"`
	StrategyHistory    []float64          `json:"strategy_history"`

	CurrentTopic        string  `json:"current_topic,omitempty"`
	StepsOnCurrentTopic int     `json:"steps_on_current_topic"`
	RecentPerformance   float64 `json:"recent_performance"`

	// PracticeAnchor is the mastery recorded right after a topic was last practiced;
	// forgetting decays toward a fraction of it.
	PracticeAnchor map[string]float64 `json:"practice_anchor,omitempty"`

	LastPracticedAt    map[string]time.Time `json:"last_practiced_at,omitempty"`
	ReviewIntervalDays map[string]float64   `json:"review_interval_days,omitempty"`
	LastPerformance    map[string]float64   `json:"last_performance,omitempty"`
}

// EnsureMaps allocates any nil per-topic map, which happens for states decoded from
// older snapshots.
func (s *LearnerState) EnsureMaps() {
	if s.Mastery == nil {
		s.Mastery = map[string]float64{}
	}
	if s.Misconceptions == nil {
		s.Misconceptions = map[string]float64{}
	}
	if s.TopicAttempts == nil {
		s.TopicAttempts = map[string]int{}
	}
	if s.TimeSincePracticed == nil {
		s.TimeSincePracticed = map[string]int{}
	}
	if s.PracticeAnchor == nil {
		s.PracticeAnchor = map[string]float64{}
	}
	if s.LastPracticedAt == nil {
		s.LastPracticedAt = map[string]time.Time{}
	}
	if s.ReviewIntervalDays == nil {
		s.ReviewIntervalDays = map[string]float64{}
	}
	if s.LastPerformance == nil {
		s.LastPerformance = map[string]float64{}
	}
}

// Clone returns a deep copy.
func (s *LearnerState) Clone() *LearnerState {
	if s == nil {
		return nil
	}
	out := *s
	out.Mastery = cloneMap(s.Mastery)
	out.Misconceptions = cloneMap(s.Misconceptions)
	out.TopicAttempts = cloneMap(s.TopicAttempts)
	out.TimeSincePracticed = cloneMap(s.TimeSincePracticed)
	out.PracticeAnchor = cloneMap(s.PracticeAnchor)
	out.LastPracticedAt = cloneMap(s.LastPracticedAt)
	out.ReviewIntervalDays = cloneMap(s.ReviewIntervalDays)
	out.LastPerformance = cloneMap(s.LastPerformance)
	out.StrategyHistory = append([]float64(nil), s.StrategyHistory...)
	return &out
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	if in == nil {
		return nil
	}
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
