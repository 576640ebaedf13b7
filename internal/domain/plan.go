package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlanSource records where an instructional plan's action came from.
type PlanSource string

const (
	PlanSourcePolicy   PlanSource = "policy"
	PlanSourceFallback PlanSource = "fallback"
)

// InstructionalPlan is handed to the content-rendering collaborator.
type InstructionalPlan struct {
	Topic                    string            `json:"topic"`
	TopicIndex               int               `json:"topic_index"`
	Strategy                 Strategy          `json:"strategy"`
	Difficulty               DifficultyChoice  `json:"difficulty"`
	EffectiveDifficulty      float64           `json:"effective_difficulty"`
	Scaffolding              ScaffoldingChoice `json:"scaffolding"`
	Feedback                 FeedbackChoice    `json:"feedback"`
	Length                   LengthChoice      `json:"length"`
	PrerequisiteSatisfaction float64           `json:"prerequisite_satisfaction"`

	Source         PlanSource `json:"source"`
	FallbackReason string     `json:"fallback_reason,omitempty"`
	UserTopicMatch bool       `json:"user_topic_match"`
	Degraded       bool       `json:"degraded"`
}

// Outcome is an externally reported assessment or feedback event for one topic.
type Outcome struct {
	Topic string `json:"topic"`
	// Score is in [0,1]; values above 1 are read as a completion percentage (0-100).
	Score float64 `json:"score"`
	// Rating is an optional 1-5 helpfulness rating.
	Rating *float64  `json:"rating,omitempty"`
	At     time.Time `json:"at,omitempty"`
}

// Session is the unit handed to the persistence collaborator.
type Session struct {
	ID             uuid.UUID       `json:"id"`
	Profile        *LearnerProfile `json:"profile"`
	State          *LearnerState   `json:"state"`
	CatalogVersion string          `json:"catalog_version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func NewSession(profile *LearnerProfile, state *LearnerState, catalogVersion string, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		ID:             uuid.New(),
		Profile:        profile,
		State:          state,
		CatalogVersion: catalogVersion,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
