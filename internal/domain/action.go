package domain

import (
	"errors"
	"fmt"
)

// ActionHeads is the number of integer outputs a policy produces per decision.
const ActionHeads = 6

// ActionCardinality lists, per head, how many values that head may take. The topic head
// is sized by the catalog and is filled in by callers via ActionCardinality(topicCount).
func ActionCardinality(topicCount int) [ActionHeads]int {
	return [ActionHeads]int{
		StrategyCount,
		topicCount,
		DifficultyChoiceCount,
		ScaffoldingChoiceCount,
		FeedbackChoiceCount,
		LengthChoiceCount,
	}
}

// ActionIndices is the raw policy output, in head order:
// strategy, topic, difficulty, scaffolding, feedback, length.
type ActionIndices [ActionHeads]int

var ErrActionOutOfRange = errors.New("action index out of range")

// Action is a validated instructional action.
type Action struct {
	Strategy    Strategy          `json:"strategy"`
	TopicIndex  int               `json:"topic_index"`
	Difficulty  DifficultyChoice  `json:"difficulty"`
	Scaffolding ScaffoldingChoice `json:"scaffolding"`
	Feedback    FeedbackChoice    `json:"feedback"`
	Length      LengthChoice      `json:"length"`
}

// DefaultAction is used whenever no usable policy output exists.
func DefaultAction() Action {
	return Action{
		Strategy:    StrategyExplanation,
		TopicIndex:  0,
		Difficulty:  DifficultyNormal,
		Scaffolding: ScaffoldingNone,
		Feedback:    FeedbackElaborated,
		Length:      LengthStandard,
	}
}

// ToAction validates every head against its cardinality before converting.
func (a ActionIndices) ToAction(topicCount int) (Action, error) {
	card := ActionCardinality(topicCount)
	for head, v := range a {
		if v < 0 || v >= card[head] {
			return Action{}, fmt.Errorf("%w: head=%d value=%d cardinality=%d", ErrActionOutOfRange, head, v, card[head])
		}
	}
	return Action{
		Strategy:    Strategy(a[0]),
		TopicIndex:  a[1],
		Difficulty:  DifficultyChoice(a[2]),
		Scaffolding: ScaffoldingChoice(a[3]),
		Feedback:    FeedbackChoice(a[4]),
		Length:      LengthChoice(a[5]),
	}, nil
}

func (a Action) Indices() ActionIndices {
	return ActionIndices{int(a.Strategy), a.TopicIndex, int(a.Difficulty), int(a.Scaffolding), int(a.Feedback), int(a.Length)}
}

func (a Action) Validate(topicCount int) error {
	_, err := a.Indices().ToAction(topicCount)
	return err
}
