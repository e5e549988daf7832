package adaptive

import (
	"time"

	"github.com/abhisek/quizadapt/internal/irt"
	"github.com/abhisek/quizadapt/internal/mastery"
)

// Config holds every tunable of the engine. Use DefaultConfig and override
// individual fields.
type Config struct {
	// RecentWindow is how many recent responses the learner state uses.
	RecentWindow        int     `mapstructure:"recent_window"`
	DefaultAccuracy     float64 `mapstructure:"default_accuracy"`
	DefaultResponseTime float64 `mapstructure:"default_response_time"` // seconds

	ZPD    ZPDBand      `mapstructure:"zpd"`
	Reward RewardConfig `mapstructure:"reward"`

	// ReviewThreshold is the concept mastery below which feedback
	// suggests a review.
	ReviewThreshold float64 `mapstructure:"review_threshold"`

	// GenerationTimeout bounds how long a caller waits for a generated
	// question. BackgroundGenerationTimeout bounds the detached call.
	GenerationTimeout           time.Duration `mapstructure:"generation_timeout"`
	BackgroundGenerationTimeout time.Duration `mapstructure:"background_generation_timeout"`

	// PriorQuestions is how many existing stems of a template are passed
	// to the generator to avoid repeats.
	PriorQuestions int `mapstructure:"prior_questions"`

	IRT     irt.Config     `mapstructure:"irt"`
	Mastery mastery.Params `mapstructure:"mastery"`
}

// ZPDBand is the inclusive mastery band a template's concept must fall in.
type ZPDBand struct {
	MinMastery float64 `mapstructure:"min_mastery"`
	MaxMastery float64 `mapstructure:"max_mastery"`
	// DefaultMastery is assumed for concepts without a recorded value.
	DefaultMastery float64 `mapstructure:"default_mastery"`
}

// RewardConfig shapes the bandit reward from correctness and timing.
type RewardConfig struct {
	CorrectnessWeight float64 `mapstructure:"correctness_weight"`
	TimeWeight        float64 `mapstructure:"time_weight"`

	// The optimal response time is Difficulty*SecondsPerDifficulty + BaseSeconds.
	SecondsPerDifficulty float64 `mapstructure:"seconds_per_difficulty"`
	BaseSeconds          float64 `mapstructure:"base_seconds"`
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return Config{
		RecentWindow:        20,
		DefaultAccuracy:     0.5,
		DefaultResponseTime: 30.0,
		ZPD: ZPDBand{
			MinMastery:     0.2,
			MaxMastery:     0.95,
			DefaultMastery: 0.5,
		},
		Reward: RewardConfig{
			CorrectnessWeight:    0.7,
			TimeWeight:           0.3,
			SecondsPerDifficulty: 60,
			BaseSeconds:          15,
		},
		ReviewThreshold:             0.7,
		GenerationTimeout:           20 * time.Second,
		BackgroundGenerationTimeout: 2 * time.Minute,
		PriorQuestions:              5,
		IRT:                         irt.DefaultConfig(),
		Mastery:                     mastery.DefaultParams(),
	}
}
