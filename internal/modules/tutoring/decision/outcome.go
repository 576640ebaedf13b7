package decision

import (
	"context"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"gonum.org/v1/gonum/floats"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/dynamics"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/learner"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/review"
	"github.com/yungbote/neurobridge-tutor/internal/observability"
	"github.com/yungbote/neurobridge-tutor/internal/platform/ctxutil"
)

const (
	// Scores below this count as a failed attempt and cost mastery.
	passScore = 0.5
	// A score at or above this resolves an open misconception on the topic.
	clearScore = 0.8
	// Share of the gap between score and mastery closed by a strong result.
	scorePull = 0.3
	lossRate  = 0.3
	// Engagement change per rating point away from the neutral 3.
	ratingStep = 0.02
)

type OutcomeResult struct {
	Topic                string  `json:"topic"`
	Score                float64 `json:"score"`
	MasteryDelta         float64 `json:"mastery_delta"`
	Mastery              float64 `json:"mastery"`
	NextReviewDays       float64 `json:"next_review_days"`
	MisconceptionCleared bool    `json:"misconception_cleared"`
}

// NormalizeScore reads values above 1 as a 0-100 completion percentage and clips the
// result to [0,1].
func NormalizeScore(score float64) float64 {
	if score > 1 {
		score /= 100
	}
	return dynamics.Clip(score, 0, 1)
}

// ReportOutcome applies an externally reported result to state. It is the only path
// that changes mastery, engagement and motivation outside the simulator, and it uses
// the same dynamics without simulated noise: the score is taken as ground truth.
func (e *Engine) ReportOutcome(ctx context.Context, state *domain.LearnerState, profile *domain.LearnerProfile, out domain.Outcome) (OutcomeResult, error) {
	_, span := observability.Tracer().Start(ctx, "tutor.outcome")
	defer span.End()

	idx, err := e.ResolveTopic(out.Topic)
	if err != nil {
		span.RecordError(err)
		return OutcomeResult{}, err
	}
	state.EnsureMaps()
	if profile == nil {
		profile = learner.DefaultProfile(nil)
	}
	topic := e.graph.Topic(idx)
	key := topic.Key
	score := NormalizeScore(out.Score)

	strategy := dominantStrategy(state.StrategyHistory)
	prior := dynamics.Clip(state.Mastery[key], 0, 1)
	prereq := dynamics.PrerequisiteSatisfaction(e.graph, state, idx)
	eff := dynamics.EffectiveDifficulty(topic.BaseDifficulty, domain.DifficultyNormal, prior)
	match := dynamics.StyleMatch(strategy, profile.StylePreferences)
	efficacy := dynamics.LearningEfficacy(prereq, match, state.Attention, state.CognitiveLoad, state.Motivation)
	gain := dynamics.MasteryGain(dynamics.BaseRate(profile, topic.Subject), efficacy, 1, domain.LengthStandard, prior)

	var delta float64
	if score >= passScore {
		delta = gain * (0.5 + score)
		if score > prior {
			delta = math.Max(delta, scorePull*(score-prior))
		}
	} else {
		delta = -lossRate * (passScore - score) * prior
	}

	cleared := false
	if sev := state.Misconceptions[key]; sev > 0 {
		if score >= clearScore {
			cleared = true
			delete(state.Misconceptions, key)
			delta += 0.02 + 0.05*sev
		} else {
			delta *= 1 - 0.5*sev
		}
	}
	delta = dynamics.Clip(delta, -prior, 1-prior)
	mastery := dynamics.Clip(prior+delta, 0, 1)
	state.Mastery[key] = mastery
	state.PracticeAnchor[key] = mastery

	state.RecentPerformance = dynamics.SmoothPerformance(state.RecentPerformance, score)
	state.Motivation = dynamics.UpdateMotivation(state.Motivation, profile, dynamics.MotivationSignal{
		Performance:          score,
		Gain:                 delta,
		MisconceptionCleared: cleared,
	})
	state.Engagement = dynamics.UpdateEngagement(state.Engagement, profile, dynamics.EngagementInput{
		Performance:         score,
		Gain:                delta,
		StrategyFrequency:   dynamics.FitHistory(state.StrategyHistory)[strategy],
		EffectiveDifficulty: eff,
		CognitiveLoad:       state.CognitiveLoad,
	})
	if out.Rating != nil {
		r := dynamics.Clip(*out.Rating, 1, 5)
		state.Engagement = dynamics.Clip(state.Engagement+ratingStep*(r-3), dynamics.MinEngagement, dynamics.MaxEngagement)
	}

	at := out.At
	if at.IsZero() {
		at = e.now()
	}
	next := review.NextInterval(mastery, state.ReviewIntervalDays[key], score)
	state.ReviewIntervalDays[key] = next
	state.LastPracticedAt[key] = at
	state.LastPerformance[key] = score

	e.metrics.Outcome(delta)
	span.SetAttributes(
		attribute.String("tutor.topic", key),
		attribute.Float64("tutor.score", score),
		attribute.Float64("tutor.mastery_delta", delta),
	)
	e.log.With(ctxutil.LogFields(ctx)...).Debug("outcome applied", "topic", key, "score", score, "delta", delta, "mastery", mastery)

	return OutcomeResult{
		Topic:                key,
		Score:                score,
		MasteryDelta:         delta,
		Mastery:              mastery,
		NextReviewDays:       next,
		MisconceptionCleared: cleared,
	}, nil
}

// dominantStrategy is the strategy with the highest decayed usage, EXPLANATION when
// there is no history.
func dominantStrategy(history []float64) domain.Strategy {
	h := dynamics.FitHistory(history)
	if floats.Max(h) <= 0 {
		return domain.StrategyExplanation
	}
	return domain.Strategy(floats.MaxIdx(h))
}
