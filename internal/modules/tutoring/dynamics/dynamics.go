// Package dynamics holds the learner-model update rules shared by the training
// simulator and the inference-time decision engine. Every function returns values
// already clipped to their domain.
package dynamics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
)

const (
	MinCognitiveLoad = 0.05
	MaxCognitiveLoad = 0.98
	MinAttention     = 0.1
	MinMotivation    = 0.20
	MaxMotivation    = 0.99
	MinEngagement    = 0.15
	MaxEngagement    = 0.98

	HistoryDecay = 0.9
	HistoryStep  = 0.1

	forgettingFloor    = 0.5
	forgettingBaseTau  = 25.0
	minStyleMatch      = 0.1
	minLoadEfficacy    = 0.15
	loadEfficacySlope  = 0.7
	difficultyDiscount = 0.3
)

func Clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// PrerequisiteSatisfaction is the weighted mean mastery over topic i's
// prerequisites, or 1.0 when it has none.
func PrerequisiteSatisfaction(g *curriculum.Graph, s *domain.LearnerState, i int) float64 {
	row := g.PrerequisiteRow(i)
	total := floats.Sum(row)
	if total <= 0 {
		return 1
	}
	sum := 0.0
	for j, w := range row {
		if w <= 0 {
			continue
		}
		sum += w * Clip(s.Mastery[g.Topic(j).Key], 0, 1)
	}
	return Clip(sum/total, 0, 1)
}

// EffectiveDifficulty applies the chosen adjustment and a mastery discount.
func EffectiveDifficulty(base float64, choice domain.DifficultyChoice, mastery float64) float64 {
	return Clip(base+choice.Adjustment()-difficultyDiscount*mastery, 0.05, 0.95)
}

// NormalizePreferences fits prefs to k entries, drops negatives and renormalises to
// sum 1; a (near) zero vector becomes uniform.
func NormalizePreferences(prefs []float64, k int) []float64 {
	out := make([]float64, k)
	for i := 0; i < k && i < len(prefs); i++ {
		if prefs[i] > 0 && !math.IsInf(prefs[i], 0) {
			out[i] = prefs[i]
		}
	}
	sum := floats.Sum(out)
	if sum < 1e-9 {
		for i := range out {
			out[i] = 1 / float64(k)
		}
		return out
	}
	floats.Scale(1/sum, out)
	return out
}

// StyleMatch dots the strategy's compatibility row with the learner's preferences.
func StyleMatch(st domain.Strategy, prefs []float64) float64 {
	p := NormalizePreferences(prefs, domain.LearningStyleCount)
	return math.Max(minStyleMatch, floats.Dot(StrategyStyleRow(st), p))
}

// ScaffoldingFactor is the mastery-gain multiplier from support, scaled by how much
// support the learner needs right now.
func ScaffoldingFactor(sc domain.ScaffoldingChoice, mastery, effDifficulty, benefit float64) float64 {
	if !sc.Valid() || sc == domain.ScaffoldingNone {
		return 1
	}
	need := Clip((1-mastery)*effDifficulty, 0, 1)
	return 1 + scaffoldingBenefit[sc]*need*benefit
}

type LoadInput struct {
	EffectiveDifficulty float64
	Length              domain.LengthChoice
	Strategy            domain.Strategy
	Scaffolding         domain.ScaffoldingChoice
	WorkingMemory       float64
	Attention           float64
	Motivation          float64
}

func UpdateCognitiveLoad(load float64, in LoadInput) float64 {
	increase := 0.25 * in.EffectiveDifficulty * lengthLoad[in.Length] *
		math.Max(0, 1-in.WorkingMemory*0.4) * strategyLoad[in.Strategy]
	increase *= 1 - scaffoldingLoadReduction[in.Scaffolding]
	recovery := 0.12 * (load - MinCognitiveLoad)
	mitigation := 0.05*math.Max(0, in.Attention-0.5) + 0.05*math.Max(0, in.Motivation-0.5)
	return Clip(load+increase-recovery-mitigation, MinCognitiveLoad, MaxCognitiveLoad)
}

type AttentionInput struct {
	Strategy      domain.Strategy
	Length        domain.LengthChoice
	CognitiveLoad float64
	Span          float64
	DecayRate     float64
}

func UpdateAttention(att float64, in AttentionInput) float64 {
	next := att * math.Exp(-in.DecayRate)
	next += strategyAttention[in.Strategy]
	next -= lengthAttentionPenalty[in.Length]
	next -= 0.05 * math.Max(0, in.CognitiveLoad-0.6)
	span := in.Span
	if span < MinAttention {
		span = MinAttention
	}
	return Clip(next, MinAttention, span)
}

// LearningEfficacy combines readiness, fit and the learner's current condition.
func LearningEfficacy(prereq, styleMatch, attention, load, motivation float64) float64 {
	loadTerm := Clip(1-loadEfficacySlope*load, minLoadEfficacy, 1)
	return Clip(prereq*styleMatch*attention*loadTerm*motivation, 0, 1)
}

func BaseRate(p *domain.LearnerProfile, subject string) float64 {
	if p == nil {
		return 0
	}
	return math.Max(0, p.LearningRate*p.Aptitude(subject))
}

// MasteryGain never exceeds the remaining headroom 1-mastery.
func MasteryGain(baseRate, efficacy, scaffold float64, length domain.LengthChoice, mastery float64) float64 {
	headroom := Clip(1-mastery, 0, 1)
	gain := baseRate * efficacy * scaffold * LengthGainFactor(length) * headroom
	return Clip(gain, 0, headroom)
}

// SimulatedPerformance is the noisy observed score; noise is a standard normal draw.
func SimulatedPerformance(prior, gain, effDifficulty, noise float64) float64 {
	return Clip(prior+0.8*gain+0.15*noise-0.2*effDifficulty, 0, 1)
}

func SmoothPerformance(prev, perf float64) float64 {
	return Clip(0.7*prev+0.3*perf, 0, 1)
}

// ClearProbability is the chance an existing misconception resolves this step.
func ClearProbability(efficacy float64, fb domain.FeedbackChoice, st domain.Strategy, feedbackSensitivity float64) float64 {
	p := 0.1 + 0.4*efficacy
	if fb.Valid() {
		p += feedbackClearBonus[fb] * feedbackSensitivity
	}
	if st == domain.StrategyExplanation || st == domain.StrategyDemonstration {
		p += 0.1
	}
	return Clip(p, 0, 0.9)
}

// FormProbability is the chance a new misconception forms this step.
func FormProbability(prereq, effDifficulty, perf, propensity, mastery float64) float64 {
	risk := ((1 - prereq) + effDifficulty + (1 - perf)) / 3
	return Clip(0.3*risk*propensity*(1-mastery), 0, 1)
}

// MisconceptionStep is the outcome of one step's misconception roll.
type MisconceptionStep struct {
	Gain     float64
	Severity float64
	Formed   bool
	Cleared  bool
}

// ResolveMisconception applies the misconception rules to a step's gain. An open
// misconception (severity > 0) either clears, adding a bonus, or damps the gain;
// without one, a new misconception may form and cut the gain. Formation and clearing
// are exclusive. roll returns uniform draws in [0,1) and is called once for the
// clear or form check and once more for a new severity.
func ResolveMisconception(gain, severity, clearP, formP float64, roll func() float64) MisconceptionStep {
	if severity > 0 {
		if roll() < clearP {
			return MisconceptionStep{Gain: gain + 0.02 + 0.05*severity, Cleared: true}
		}
		return MisconceptionStep{Gain: gain * (1 - 0.5*severity), Severity: severity}
	}
	if roll() < formP {
		sev := 0.3 + 0.4*roll()
		return MisconceptionStep{Gain: gain*0.4 - 0.01*sev, Severity: sev, Formed: true}
	}
	return MisconceptionStep{Gain: gain}
}

// Forget decays every practiced topic other than skip toward a time-decayed fraction
// of its practice anchor. Mastery is only ever lowered.
func Forget(s *domain.LearnerState, p *domain.LearnerProfile, skip string) {
	rate := Clip(p.ForgettingRate, 0, 1)
	strength := math.Max(p.MemoryStrength, 0.1)
	for key, m := range s.Mastery {
		if key == skip || s.TopicAttempts[key] == 0 {
			continue
		}
		anchor, ok := s.PracticeAnchor[key]
		if !ok {
			anchor = m
		}
		elapsed := float64(s.TimeSincePracticed[key] + 1)
		tau := forgettingBaseTau * (1 + math.Log1p(float64(s.TopicAttempts[key]))) * strength
		retention := math.Exp(-elapsed / tau)
		target := anchor * (forgettingFloor + (1-forgettingFloor)*retention)
		if target < m {
			s.Mastery[key] = Clip(m+rate*(target-m), 0, 1)
		}
	}
}

type MotivationSignal struct {
	Performance          float64
	Gain                 float64
	MisconceptionFormed  bool
	MisconceptionCleared bool
}

func UpdateMotivation(mot float64, p *domain.LearnerProfile, sig MotivationSignal) float64 {
	next := mot*(0.9+0.08*p.Persistence) + 0.06*p.IntrinsicMotivation
	if sig.Gain > 0.05 {
		next += 0.05 * p.MasteryOrientation
	}
	blended := 0.6*sig.Performance + 0.4*Clip(sig.Gain*10, 0, 1)
	next += (blended - 0.5) * 0.08 * (0.5 + p.ExtrinsicSensitivity)
	if sig.MisconceptionFormed {
		next -= 0.04
	}
	if sig.MisconceptionCleared {
		next += 0.03
	}
	return Clip(next, MinMotivation, MaxMotivation)
}

type EngagementInput struct {
	Performance         float64
	Gain                float64
	StrategyFrequency   float64
	EffectiveDifficulty float64
	CognitiveLoad       float64
}

func UpdateEngagement(eng float64, p *domain.LearnerProfile, in EngagementInput) float64 {
	next := 0.9*eng + 0.07
	if in.Gain > 0.02 {
		next += 0.03 * p.InterestSensitivity
	}
	if in.Performance >= 0.5 {
		next += (in.Performance - 0.5) * 0.1 * p.SuccessSensitivity
	} else {
		next += (in.Performance - 0.5) * 0.1 * p.FailureSensitivity
	}
	next += 0.05 * p.VarietySeeking * (1 - Clip(in.StrategyFrequency, 0, 1))
	next += 0.05 * p.ChallengeSeeking * (in.EffectiveDifficulty - 0.4)
	next -= 0.08 * math.Max(0, in.CognitiveLoad-0.7)
	return Clip(next, MinEngagement, MaxEngagement)
}

// FitHistory pads or truncates a persisted strategy history to the current width.
func FitHistory(h []float64) []float64 {
	out := make([]float64, domain.StrategyCount)
	copy(out, h)
	for i := range out {
		out[i] = Clip(out[i], 0, 1)
	}
	return out
}

// RecordPractice applies the bookkeeping for practising topic with strategy:
// attempts, decayed strategy history, recency counters and the current-topic pointer.
func RecordPractice(s *domain.LearnerState, g *curriculum.Graph, topic string, st domain.Strategy) {
	s.EnsureMaps()
	s.TopicAttempts[topic]++

	h := FitHistory(s.StrategyHistory)
	for i := range h {
		h[i] *= HistoryDecay
	}
	if st.Valid() {
		h[st] = Clip(h[st]+HistoryStep, 0, 1)
	}
	s.StrategyHistory = h

	for _, k := range g.Keys() {
		s.TimeSincePracticed[k]++
	}
	s.TimeSincePracticed[topic] = 0

	if s.CurrentTopic == topic {
		s.StepsOnCurrentTopic++
	} else {
		s.CurrentTopic = topic
		s.StepsOnCurrentTopic = 1
	}
}

// AverageMastery is the mean mastery over the catalog.
func AverageMastery(g *curriculum.Graph, s *domain.LearnerState) float64 {
	if g.Len() == 0 {
		return 0
	}
	vals := make([]float64, 0, g.Len())
	for _, k := range g.Keys() {
		vals = append(vals, s.Mastery[k])
	}
	return stat.Mean(vals, nil)
}
