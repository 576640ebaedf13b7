package dynamics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/curriculum"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/learner"
)

func twoTopicGraph(t *testing.T) *curriculum.Graph {
	t.Helper()
	g, err := curriculum.NewGraph(&curriculum.Catalog{
		Version: "test",
		Topics: []curriculum.Entry{
			{Subject: "Math", Topic: "Base", Difficulty: 3},
			{Subject: "Math", Topic: "Next", Difficulty: 5},
		},
		Prerequisites: []curriculum.Prerequisite{{Topic: "Math-Next", Requires: []string{"Math-Base"}}},
	}, nil)
	require.NoError(t, err)
	return g
}

func TestPrerequisiteSatisfaction(t *testing.T) {
	g := twoTopicGraph(t)
	s := learner.NewSessionState(g, learner.DefaultProfile([]string{"Math"}))
	s.Mastery["Math-Base"] = 0.4

	assert.Equal(t, 1.0, PrerequisiteSatisfaction(g, s, 0))
	assert.InDelta(t, 0.4, PrerequisiteSatisfaction(g, s, 1), 1e-12)
}

func TestEffectiveDifficulty(t *testing.T) {
	assert.InDelta(t, 0.35, EffectiveDifficulty(0.5, domain.DifficultyNormal, 0.5), 1e-12)
	assert.InDelta(t, 0.95, EffectiveDifficulty(0.9, domain.DifficultyHarder, 0), 1e-12)
	assert.InDelta(t, 0.05, EffectiveDifficulty(0.1, domain.DifficultyEasier, 1), 1e-12)
}

func TestNormalizePreferences(t *testing.T) {
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, NormalizePreferences(nil, 4))
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, NormalizePreferences([]float64{0, 0, 0, 0}, 4))

	got := NormalizePreferences([]float64{2, 2, -1, 0, 9}, 4)
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 0, 0}, got, 1e-12)
}

func TestStyleMatchFloor(t *testing.T) {
	m := StyleMatch(domain.StrategyPractice, []float64{0, 0, 0, 1})
	assert.InDelta(t, 1.0, m, 1e-12)
	assert.GreaterOrEqual(t, StyleMatch(domain.StrategySocratic, []float64{1, 0, 0, 0}), 0.1)
}

func TestScaffoldingFactor(t *testing.T) {
	assert.Equal(t, 1.0, ScaffoldingFactor(domain.ScaffoldingNone, 0.1, 0.9, 1))
	hints := ScaffoldingFactor(domain.ScaffoldingHints, 0.2, 0.6, 1)
	guidance := ScaffoldingFactor(domain.ScaffoldingGuidance, 0.2, 0.6, 1)
	assert.Greater(t, hints, 1.0)
	assert.Greater(t, guidance, hints)
}

func TestMasteryGainBoundedByHeadroom(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 2000; i++ {
		m := rng.Float64()
		gain := MasteryGain(rng.Float64()*5, rng.Float64(), 1+rng.Float64()*2, domain.LengthDetailed, m)
		assert.GreaterOrEqual(t, gain, 0.0)
		assert.LessOrEqual(t, gain, 1-m+1e-12)
	}
}

func TestForgetNeverIncreasesMastery(t *testing.T) {
	g := twoTopicGraph(t)
	p := learner.DefaultProfile([]string{"Math"})
	p.ForgettingRate = 0.5
	s := learner.NewSessionState(g, p)
	s.Mastery["Math-Base"] = 0.8
	s.PracticeAnchor["Math-Base"] = 0.8
	s.TopicAttempts["Math-Base"] = 3
	s.Mastery["Math-Next"] = 0.3
	s.TopicAttempts["Math-Next"] = 1

	prev := s.Mastery["Math-Base"]
	for step := 0; step < 200; step++ {
		Forget(s, p, "Math-Next")
		RecordPractice(s, g, "Math-Next", domain.StrategyPractice)
		cur := s.Mastery["Math-Base"]
		require.LessOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Less(t, s.Mastery["Math-Base"], 0.8)
	assert.GreaterOrEqual(t, s.Mastery["Math-Base"], 0.8*0.5-1e-9)
	assert.Equal(t, 0.3, s.Mastery["Math-Next"])
}

func TestForgetSkipsUnpractisedTopics(t *testing.T) {
	g := twoTopicGraph(t)
	p := learner.DefaultProfile([]string{"Math"})
	s := learner.NewSessionState(g, p)
	s.Mastery["Math-Base"] = 0.5
	s.TimeSincePracticed["Math-Base"] = 100

	Forget(s, p, "Math-Next")
	assert.Equal(t, 0.5, s.Mastery["Math-Base"])
}

func TestRecordPractice(t *testing.T) {
	g := twoTopicGraph(t)
	s := learner.NewSessionState(g, nil)
	s.StrategyHistory = []float64{0.5, 0.5}

	RecordPractice(s, g, "Math-Base", domain.StrategyReview)
	RecordPractice(s, g, "Math-Base", domain.StrategyReview)

	require.Len(t, s.StrategyHistory, domain.StrategyCount)
	assert.InDelta(t, 0.5*0.81, s.StrategyHistory[0], 1e-12)
	assert.InDelta(t, 0.1*0.9+0.1, s.StrategyHistory[domain.StrategyReview], 1e-12)
	assert.Equal(t, 2, s.TopicAttempts["Math-Base"])
	assert.Equal(t, 0, s.TimeSincePracticed["Math-Base"])
	assert.Equal(t, 2, s.TimeSincePracticed["Math-Next"])
	assert.Equal(t, "Math-Base", s.CurrentTopic)
	assert.Equal(t, 2, s.StepsOnCurrentTopic)

	RecordPractice(s, g, "Math-Next", domain.StrategyReview)
	assert.Equal(t, 1, s.StepsOnCurrentTopic)
}

func TestScalarUpdatesStayInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := learner.SampleProfile(rng, []string{"Math"})
	load, att, mot, eng := 0.5, p.AttentionSpan, 0.5, 0.5
	for i := 0; i < 5000; i++ {
		st := domain.Strategy(rng.Intn(domain.StrategyCount))
		ln := domain.LengthChoice(rng.Intn(domain.LengthChoiceCount))
		sc := domain.ScaffoldingChoice(rng.Intn(domain.ScaffoldingChoiceCount))
		eff := rng.Float64()
		load = UpdateCognitiveLoad(load, LoadInput{EffectiveDifficulty: eff, Length: ln, Strategy: st, Scaffolding: sc, WorkingMemory: p.WorkingMemory, Attention: att, Motivation: mot})
		att = UpdateAttention(att, AttentionInput{Strategy: st, Length: ln, CognitiveLoad: load, Span: p.AttentionSpan, DecayRate: p.AttentionDecay})
		mot = UpdateMotivation(mot, p, MotivationSignal{Performance: rng.Float64(), Gain: rng.Float64() * 0.2, MisconceptionFormed: rng.Intn(5) == 0})
		eng = UpdateEngagement(eng, p, EngagementInput{Performance: rng.Float64(), Gain: rng.Float64() * 0.1, StrategyFrequency: rng.Float64(), EffectiveDifficulty: eff, CognitiveLoad: load})

		require.True(t, load >= MinCognitiveLoad && load <= MaxCognitiveLoad)
		require.True(t, att >= MinAttention && att <= p.AttentionSpan)
		require.True(t, mot >= MinMotivation && mot <= MaxMotivation)
		require.True(t, eng >= MinEngagement && eng <= MaxEngagement)
	}
}

func TestClearProbability(t *testing.T) {
	low := ClearProbability(0.1, domain.FeedbackMinimal, domain.StrategyPractice, 1)
	high := ClearProbability(0.8, domain.FeedbackMinimal, domain.StrategyPractice, 1)
	assert.Greater(t, high, low)
	assert.InDelta(t, 0.1+0.4*0.1, low, 1e-12)

	none := ClearProbability(0.5, domain.FeedbackMinimal, domain.StrategyPractice, 1)
	corrective := ClearProbability(0.5, domain.FeedbackCorrective, domain.StrategyPractice, 1)
	elaborated := ClearProbability(0.5, domain.FeedbackElaborated, domain.StrategyPractice, 1)
	assert.Greater(t, corrective, none)
	assert.Greater(t, elaborated, corrective)

	for _, st := range []domain.Strategy{domain.StrategyExplanation, domain.StrategyDemonstration} {
		assert.InDelta(t, none+0.1, ClearProbability(0.5, domain.FeedbackMinimal, st, 1), 1e-12, st.String())
	}
	for _, st := range []domain.Strategy{domain.StrategySocratic, domain.StrategyAnalogy, domain.StrategyReview} {
		assert.InDelta(t, none, ClearProbability(0.5, domain.FeedbackMinimal, st, 1), 1e-12, st.String())
	}

	assert.Equal(t, 0.9, ClearProbability(1, domain.FeedbackElaborated, domain.StrategyExplanation, 5))
}

func TestFormProbability(t *testing.T) {
	base := FormProbability(0.5, 0.5, 0.5, 0.3, 0.2)

	tests := []struct {
		name string
		got  float64
		more bool
	}{
		{"higher propensity", FormProbability(0.5, 0.5, 0.5, 0.6, 0.2), true},
		{"harder content", FormProbability(0.5, 0.9, 0.5, 0.3, 0.2), true},
		{"weaker prerequisites", FormProbability(0.1, 0.5, 0.5, 0.3, 0.2), true},
		{"worse performance", FormProbability(0.5, 0.5, 0.1, 0.3, 0.2), true},
		{"higher mastery", FormProbability(0.5, 0.5, 0.5, 0.3, 0.8), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.more {
				assert.Greater(t, tt.got, base)
			} else {
				assert.Less(t, tt.got, base)
			}
		})
	}
	assert.Equal(t, 0.0, FormProbability(0.5, 0.5, 0.5, 0.3, 1))
}

func seq(vals ...float64) func() float64 {
	i := 0
	return func() float64 {
		v := vals[i]
		i++
		return v
	}
}

func TestResolveMisconception(t *testing.T) {
	t.Run("clears with bonus", func(t *testing.T) {
		out := ResolveMisconception(0.05, 0.4, 0.5, 1, seq(0.1))
		assert.True(t, out.Cleared)
		assert.False(t, out.Formed)
		assert.Zero(t, out.Severity)
		assert.InDelta(t, 0.05+0.02+0.05*0.4, out.Gain, 1e-12)
	})
	t.Run("open misconception damps gain", func(t *testing.T) {
		out := ResolveMisconception(0.05, 0.4, 0.5, 1, seq(0.9))
		assert.False(t, out.Cleared)
		assert.False(t, out.Formed)
		assert.Equal(t, 0.4, out.Severity)
		assert.InDelta(t, 0.05*0.8, out.Gain, 1e-12)
	})
	t.Run("forms and cuts gain", func(t *testing.T) {
		out := ResolveMisconception(0.05, 0, 0.5, 0.5, seq(0.1, 0.5))
		assert.True(t, out.Formed)
		assert.False(t, out.Cleared)
		assert.InDelta(t, 0.5, out.Severity, 1e-12)
		assert.InDelta(t, 0.05*0.4-0.005, out.Gain, 1e-12)
		assert.Less(t, out.Gain, 0.05)
	})
	t.Run("nothing happens", func(t *testing.T) {
		out := ResolveMisconception(0.05, 0, 0.5, 0.2, seq(0.3))
		assert.Equal(t, MisconceptionStep{Gain: 0.05}, out)
	})
}

func TestResolveMisconceptionExclusive(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	for i := 0; i < 5000; i++ {
		sev := 0.0
		if rng.Intn(2) == 0 {
			sev = 0.3 + 0.4*rng.Float64()
		}
		gain := rng.Float64() * 0.2
		out := ResolveMisconception(gain, sev, rng.Float64(), rng.Float64(), rng.Float64)
		require.False(t, out.Formed && out.Cleared)
		if out.Cleared {
			require.Greater(t, out.Gain, gain)
		}
		if out.Formed {
			require.Less(t, out.Gain, gain+1e-12)
		}
	}
}
