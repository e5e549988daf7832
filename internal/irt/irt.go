// Package irt estimates learner ability with the three-parameter logistic
// item response model.
package irt

import "math"

// Item holds the 3PL parameters of a single question.
type Item struct {
	Difficulty     float64 // b, logit scale
	Discrimination float64 // a
	Guessing       float64 // c, lower asymptote
}

// Observation is one graded answer to an item.
type Observation struct {
	Item
	Correct bool
}

// Config controls the estimator. Use DefaultConfig for standard values.
type Config struct {
	MinAbility float64 `mapstructure:"min_ability"`
	MaxAbility float64 `mapstructure:"max_ability"`

	// DifficultyScale stretches a template difficulty in [0,1] onto the
	// logit scale: b = (d - 0.5) * DifficultyScale.
	DifficultyScale float64 `mapstructure:"difficulty_scale"`

	DefaultDiscrimination float64 `mapstructure:"default_discrimination"`
	DefaultGuessing       float64 `mapstructure:"default_guessing"`

	MaxIterations int     `mapstructure:"max_iterations"`
	Tolerance     float64 `mapstructure:"tolerance"`

	// MaxStep bounds a single scoring step so sparse histories do not
	// jump straight to the range limits.
	MaxStep float64 `mapstructure:"max_step"`
}

// DefaultConfig returns the standard estimator settings.
func DefaultConfig() Config {
	return Config{
		MinAbility:            -4,
		MaxAbility:            4,
		DifficultyScale:       6,
		DefaultDiscrimination: 1.0,
		DefaultGuessing:       0.25,
		MaxIterations:         30,
		Tolerance:             1e-4,
		MaxStep:               0.5,
	}
}

// ItemFromDifficulty builds item parameters from a template difficulty in
// [0,1]. Nil overrides fall back to the configured defaults.
func (c Config) ItemFromDifficulty(d float64, discrimination, guessing *float64) Item {
	d = math.Max(0, math.Min(1, d))
	it := Item{
		Difficulty:     (d - 0.5) * c.DifficultyScale,
		Discrimination: c.DefaultDiscrimination,
		Guessing:       c.DefaultGuessing,
	}
	if discrimination != nil && *discrimination > 0 {
		it.Discrimination = *discrimination
	}
	if guessing != nil && *guessing >= 0 && *guessing < 1 {
		it.Guessing = *guessing
	}
	return it
}

// Probability returns P(correct | theta) under the 3PL model.
func Probability(theta float64, it Item) float64 {
	return it.Guessing + (1-it.Guessing)*sigmoid(it.Discrimination*(theta-it.Difficulty))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
