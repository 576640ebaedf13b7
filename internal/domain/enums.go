package domain

import (
	"fmt"
	"strings"
)

// Strategy is the teaching strategy applied in one instructional step.
type Strategy int

const (
	StrategyExplanation Strategy = iota
	StrategyDemonstration
	StrategyPractice
	StrategySocratic
	StrategyAnalogy
	StrategyReview
)

// StrategyCount is the number of strategy kinds; it fixes the strategy-history width.
const StrategyCount = 6

var strategyNames = [StrategyCount]string{"EXPLANATION", "DEMONSTRATION", "PRACTICE", "SOCRATIC", "ANALOGY", "REVIEW"}

func (s Strategy) Valid() bool { return s >= 0 && int(s) < StrategyCount }

func (s Strategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

func ParseStrategy(raw string) (Strategy, error) {
	i, err := parseName(raw, strategyNames[:])
	if err != nil {
		return 0, fmt.Errorf("strategy: %w", err)
	}
	return Strategy(i), nil
}

// LearningStyle indexes the learner's style-preference simplex.
type LearningStyle int

const (
	StyleVisual LearningStyle = iota
	StyleAuditory
	StyleReadWrite
	StyleKinesthetic
)

const LearningStyleCount = 4

var styleNames = [LearningStyleCount]string{"VISUAL", "AUDITORY", "READ_WRITE", "KINESTHETIC"}

func (s LearningStyle) Valid() bool { return s >= 0 && int(s) < LearningStyleCount }

func (s LearningStyle) String() string {
	if !s.Valid() {
		return fmt.Sprintf("LearningStyle(%d)", int(s))
	}
	return styleNames[s]
}

type DifficultyChoice int

const (
	DifficultyEasier DifficultyChoice = iota
	DifficultyNormal
	DifficultyHarder
)

const DifficultyChoiceCount = 3

var difficultyNames = [DifficultyChoiceCount]string{"EASIER", "NORMAL", "HARDER"}

func (d DifficultyChoice) Valid() bool { return d >= 0 && int(d) < DifficultyChoiceCount }

func (d DifficultyChoice) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DifficultyChoice(%d)", int(d))
	}
	return difficultyNames[d]
}

// Adjustment is the additive shift applied to a topic's base difficulty.
func (d DifficultyChoice) Adjustment() float64 {
	switch d {
	case DifficultyEasier:
		return -0.2
	case DifficultyHarder:
		return 0.2
	default:
		return 0
	}
}

func ParseDifficultyChoice(raw string) (DifficultyChoice, error) {
	i, err := parseName(raw, difficultyNames[:])
	if err != nil {
		return 0, fmt.Errorf("difficulty: %w", err)
	}
	return DifficultyChoice(i), nil
}

type ScaffoldingChoice int

const (
	ScaffoldingNone ScaffoldingChoice = iota
	ScaffoldingHints
	ScaffoldingGuidance
)

const ScaffoldingChoiceCount = 3

var scaffoldingNames = [ScaffoldingChoiceCount]string{"NONE", "HINTS", "GUIDANCE"}

func (s ScaffoldingChoice) Valid() bool { return s >= 0 && int(s) < ScaffoldingChoiceCount }

func (s ScaffoldingChoice) String() string {
	if !s.Valid() {
		return fmt.Sprintf("ScaffoldingChoice(%d)", int(s))
	}
	return scaffoldingNames[s]
}

func ParseScaffoldingChoice(raw string) (ScaffoldingChoice, error) {
	i, err := parseName(raw, scaffoldingNames[:])
	if err != nil {
		return 0, fmt.Errorf("scaffolding: %w", err)
	}
	return ScaffoldingChoice(i), nil
}

type FeedbackChoice int

const (
	FeedbackMinimal FeedbackChoice = iota
	FeedbackCorrective
	FeedbackElaborated
)

const FeedbackChoiceCount = 3

var feedbackNames = [FeedbackChoiceCount]string{"MINIMAL", "CORRECTIVE", "ELABORATED"}

func (f FeedbackChoice) Valid() bool { return f >= 0 && int(f) < FeedbackChoiceCount }

func (f FeedbackChoice) String() string {
	if !f.Valid() {
		return fmt.Sprintf("FeedbackChoice(%d)", int(f))
	}
	return feedbackNames[f]
}

func ParseFeedbackChoice(raw string) (FeedbackChoice, error) {
	i, err := parseName(raw, feedbackNames[:])
	if err != nil {
		return 0, fmt.Errorf("feedback: %w", err)
	}
	return FeedbackChoice(i), nil
}

type LengthChoice int

const (
	LengthBrief LengthChoice = iota
	LengthStandard
	LengthDetailed
)

const LengthChoiceCount = 3

var lengthNames = [LengthChoiceCount]string{"BRIEF", "STANDARD", "DETAILED"}

func (l LengthChoice) Valid() bool { return l >= 0 && int(l) < LengthChoiceCount }

func (l LengthChoice) String() string {
	if !l.Valid() {
		return fmt.Sprintf("LengthChoice(%d)", int(l))
	}
	return lengthNames[l]
}

func ParseLengthChoice(raw string) (LengthChoice, error) {
	i, err := parseName(raw, lengthNames[:])
	if err != nil {
		return 0, fmt.Errorf("length: %w", err)
	}
	return LengthChoice(i), nil
}

func parseName(raw string, names []string) (int, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	for i, n := range names {
		if n == key {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown value %q", raw)
}
