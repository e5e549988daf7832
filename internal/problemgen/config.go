package problemgen

// Config controls the behavior of the Generator.
type Config struct {
	// Validators run in order on every parsed question; the first failure
	// stops the pipeline.
	Validators []Validator `mapstructure:"-"`

	// OptionCount is the exact number of options a question must have.
	OptionCount int `mapstructure:"option_count"`

	// MaxPriorQuestions caps the "already asked" list in the prompt.
	MaxPriorQuestions int `mapstructure:"max_prior_questions"`

	// MaxQuestionChars and MaxExplanationChars bound the text fields.
	MaxQuestionChars    int `mapstructure:"max_question_chars"`
	MaxExplanationChars int `mapstructure:"max_explanation_chars"`

	Tiers TierThresholds `mapstructure:"tiers"`
}

// DefaultConfig returns a Config with the standard validator chain.
func DefaultConfig() Config {
	cfg := Config{
		OptionCount:         4,
		MaxPriorQuestions:   5,
		MaxQuestionChars:    1000,
		MaxExplanationChars: 2000,
		Tiers:               DefaultTierThresholds(),
	}
	cfg.Validators = StandardValidators(cfg)
	return cfg
}

// StandardValidators returns the structural and dedup checks sized by cfg.
func StandardValidators(cfg Config) []Validator {
	return []Validator{
		&StructuralValidator{
			MaxQuestionChars:    cfg.MaxQuestionChars,
			MaxExplanationChars: cfg.MaxExplanationChars,
		},
		&DedupValidator{},
	}
}
