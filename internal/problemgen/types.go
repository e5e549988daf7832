package problemgen

// Tier is the personalization band used to word a generated question.
type Tier string

const (
	TierBeginner     Tier = "beginner"
	TierIntermediate Tier = "intermediate"
	TierAdvanced     Tier = "advanced"
)

// TierThresholds decide which Tier a learner falls into.
type TierThresholds struct {
	// Below either of these the learner is a beginner.
	BeginnerAbility  float64 `mapstructure:"beginner_ability"`
	BeginnerAccuracy float64 `mapstructure:"beginner_accuracy"`

	// Above both of these the learner is advanced.
	AdvancedAbility  float64 `mapstructure:"advanced_ability"`
	AdvancedAccuracy float64 `mapstructure:"advanced_accuracy"`
}

// DefaultTierThresholds returns the standard tier cut points.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{
		BeginnerAbility:  -1.0,
		BeginnerAccuracy: 0.5,
		AdvancedAbility:  1.0,
		AdvancedAccuracy: 0.8,
	}
}

// TierFor classifies a learner by ability and recent accuracy.
func (t TierThresholds) TierFor(ability, accuracy float64) Tier {
	switch {
	case ability < t.BeginnerAbility || accuracy < t.BeginnerAccuracy:
		return TierBeginner
	case ability > t.AdvancedAbility && accuracy > t.AdvancedAccuracy:
		return TierAdvanced
	default:
		return TierIntermediate
	}
}

// Blueprint is the template-like input a question is generated from.
type Blueprint struct {
	ID                int64
	Intent            string
	LearningObjective string
	Style             string
	TargetDifficulty  float64
	CorrectReasoning  string

	// Misconceptions are index-aligned to distractor positions.
	Misconceptions []string
}

// Concept is the concept-like input a question is generated for.
type Concept struct {
	ID          int64
	Name        string
	Description string
}

// LearnerHints carries the learner snapshot used for personalization.
type LearnerHints struct {
	Ability         float64
	RecentAccuracy  float64
	AvgResponseTime float64 // seconds
}

// GenerateInput holds all context needed to generate a question.
type GenerateInput struct {
	Blueprint Blueprint
	Concept   Concept
	Learner   LearnerHints

	// PriorQuestions are stems already stored for this blueprint. They are
	// listed in the prompt and rejected by the dedup validator.
	PriorQuestions []string
}

// Question is a parsed, validated multiple-choice question.
type Question struct {
	Text          string
	Options       []string
	CorrectOption int
	Explanation   string

	// OptionMisconceptions optionally tags each option with the
	// misconception it targets. Empty when the model did not provide one.
	OptionMisconceptions []string

	Tier Tier
}
