package simulator

import (
	"math"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/modules/tutoring/dynamics"
)

// RewardConfig holds the shaping weights. The defaults are empirically tuned; changing
// them changes what a trained policy learns, so keep their relative magnitudes.
type RewardConfig struct {
	GainWeight float64 `yaml:"gain_weight" json:"gain_weight"`

	MilestoneBonus float64 `yaml:"milestone_bonus" json:"milestone_bonus"`
	MilestoneFloor float64 `yaml:"milestone_floor" json:"milestone_floor"`
	MilestoneBand  float64 `yaml:"milestone_band" json:"milestone_band"`

	MaintenanceThreshold float64 `yaml:"maintenance_threshold" json:"maintenance_threshold"`
	MaintenanceBonus     float64 `yaml:"maintenance_bonus" json:"maintenance_bonus"`

	MismatchWeight float64 `yaml:"mismatch_weight" json:"mismatch_weight"`

	MissingScaffoldMastery    float64 `yaml:"missing_scaffold_mastery" json:"missing_scaffold_mastery"`
	MissingScaffoldDifficulty float64 `yaml:"missing_scaffold_difficulty" json:"missing_scaffold_difficulty"`
	MissingScaffoldPenalty    float64 `yaml:"missing_scaffold_penalty" json:"missing_scaffold_penalty"`
	OverScaffoldMastery       float64 `yaml:"over_scaffold_mastery" json:"over_scaffold_mastery"`
	OverScaffoldDifficulty    float64 `yaml:"over_scaffold_difficulty" json:"over_scaffold_difficulty"`
	OverScaffoldPenalty       float64 `yaml:"over_scaffold_penalty" json:"over_scaffold_penalty"`

	LowPrereqThreshold float64 `yaml:"low_prereq_threshold" json:"low_prereq_threshold"`
	LowPrereqPenalty   float64 `yaml:"low_prereq_penalty" json:"low_prereq_penalty"`

	OverloadThreshold     float64 `yaml:"overload_threshold" json:"overload_threshold"`
	OverloadLengthPenalty float64 `yaml:"overload_length_penalty" json:"overload_length_penalty"`

	MasteredThreshold float64 `yaml:"mastered_threshold" json:"mastered_threshold"`
	MasteredPenalty   float64 `yaml:"mastered_penalty" json:"mastered_penalty"`

	FormationPenalty float64 `yaml:"formation_penalty" json:"formation_penalty"`
	ClearingBonus    float64 `yaml:"clearing_bonus" json:"clearing_bonus"`

	StagnationGain    float64 `yaml:"stagnation_gain" json:"stagnation_gain"`
	StagnationMastery float64 `yaml:"stagnation_mastery" json:"stagnation_mastery"`
	StagnationSteps   int     `yaml:"stagnation_steps" json:"stagnation_steps"`
	StagnationPenalty float64 `yaml:"stagnation_penalty" json:"stagnation_penalty"`

	ExplorationAttempts int     `yaml:"exploration_attempts" json:"exploration_attempts"`
	ExplorationBonus    float64 `yaml:"exploration_bonus" json:"exploration_bonus"`

	LoadLow     float64 `yaml:"load_low" json:"load_low"`
	LoadHigh    float64 `yaml:"load_high" json:"load_high"`
	LoadPenalty float64 `yaml:"load_penalty" json:"load_penalty"`

	SurvivalBonus float64 `yaml:"survival_bonus" json:"survival_bonus"`
}

func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		GainWeight:                50,
		MilestoneBonus:            10,
		MilestoneFloor:            0.3,
		MilestoneBand:             0.02,
		MaintenanceThreshold:      0.6,
		MaintenanceBonus:          0.5,
		MismatchWeight:            10,
		MissingScaffoldMastery:    0.45,
		MissingScaffoldDifficulty: 0.55,
		MissingScaffoldPenalty:    1.0,
		OverScaffoldMastery:       0.7,
		OverScaffoldDifficulty:    0.45,
		OverScaffoldPenalty:       0.5,
		LowPrereqThreshold:        0.4,
		LowPrereqPenalty:          1.5,
		OverloadThreshold:         0.7,
		OverloadLengthPenalty:     1.0,
		MasteredThreshold:         0.95,
		MasteredPenalty:           2.0,
		FormationPenalty:          2.5,
		ClearingBonus:             1.5,
		StagnationGain:            0.005,
		StagnationMastery:         0.9,
		StagnationSteps:           4,
		StagnationPenalty:         1.0,
		ExplorationAttempts:       2,
		ExplorationBonus:          0.3,
		LoadLow:                   0.2,
		LoadHigh:                  0.7,
		LoadPenalty:               0.5,
		SurvivalBonus:             0.05,
	}
}

// RewardInput is everything one step's reward depends on.
type RewardInput struct {
	Gain                float64
	PriorMastery        float64
	EffectiveDifficulty float64
	Prerequisite        float64
	CognitiveLoad       float64
	Motivation          float64
	Engagement          float64
	Scaffolding         domain.ScaffoldingChoice
	Length              domain.LengthChoice
	PriorAttempts       int
	Formed              bool
	Cleared             bool
	StagnantSteps       int
	NewMilestone        bool
}

type RewardBreakdown struct {
	Gain          float64 `json:"gain"`
	Milestone     float64 `json:"milestone"`
	Maintenance   float64 `json:"maintenance"`
	Mismatch      float64 `json:"mismatch"`
	Scaffolding   float64 `json:"scaffolding"`
	Prerequisite  float64 `json:"prerequisite"`
	Overload      float64 `json:"overload"`
	Mastered      float64 `json:"mastered"`
	Misconception float64 `json:"misconception"`
	Stagnation    float64 `json:"stagnation"`
	Exploration   float64 `json:"exploration"`
	Load          float64 `json:"load"`
	Survival      float64 `json:"survival"`
	Total         float64 `json:"total"`
}

// TargetDifficulty is the difficulty a learner at mastery m is best served by.
func TargetDifficulty(m float64) float64 {
	return dynamics.Clip(0.2+0.5*m, 0.1, 0.8)
}

func (c RewardConfig) Compute(in RewardInput) RewardBreakdown {
	var r RewardBreakdown

	r.Gain = c.GainWeight * math.Max(0, in.Gain)
	if in.NewMilestone {
		r.Milestone = c.MilestoneBonus
	}
	if in.Motivation > c.MaintenanceThreshold {
		r.Maintenance += c.MaintenanceBonus
	}
	if in.Engagement > c.MaintenanceThreshold {
		r.Maintenance += c.MaintenanceBonus
	}

	diff := in.EffectiveDifficulty - TargetDifficulty(in.PriorMastery)
	r.Mismatch = -c.MismatchWeight * diff * diff

	switch {
	case in.Scaffolding == domain.ScaffoldingNone &&
		in.PriorMastery < c.MissingScaffoldMastery && in.EffectiveDifficulty > c.MissingScaffoldDifficulty:
		r.Scaffolding = -c.MissingScaffoldPenalty
	case in.Scaffolding != domain.ScaffoldingNone &&
		in.PriorMastery > c.OverScaffoldMastery && in.EffectiveDifficulty < c.OverScaffoldDifficulty:
		r.Scaffolding = -c.OverScaffoldPenalty
		if in.Scaffolding == domain.ScaffoldingHints {
			r.Scaffolding /= 2
		}
	}

	if in.Prerequisite < c.LowPrereqThreshold && c.LowPrereqThreshold > 0 {
		r.Prerequisite = -c.LowPrereqPenalty * (c.LowPrereqThreshold - in.Prerequisite) / c.LowPrereqThreshold
	}
	if in.Length == domain.LengthDetailed && in.CognitiveLoad > c.OverloadThreshold {
		r.Overload = -c.OverloadLengthPenalty
	}
	if in.PriorMastery > c.MasteredThreshold {
		r.Mastered = -c.MasteredPenalty
	}
	if in.Formed {
		r.Misconception -= c.FormationPenalty
	}
	if in.Cleared {
		r.Misconception += c.ClearingBonus
	}
	if in.StagnantSteps > c.StagnationSteps {
		r.Stagnation = -c.StagnationPenalty
	}
	if in.PriorAttempts < c.ExplorationAttempts {
		r.Exploration = c.ExplorationBonus
	}
	if in.CognitiveLoad < c.LoadLow || in.CognitiveLoad > c.LoadHigh {
		r.Load = -c.LoadPenalty
	}
	r.Survival = c.SurvivalBonus

	r.Total = r.Gain + r.Milestone + r.Maintenance + r.Mismatch + r.Scaffolding + r.Prerequisite +
		r.Overload + r.Mastered + r.Misconception + r.Stagnation + r.Exploration + r.Load + r.Survival
	return r
}
