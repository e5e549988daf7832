package problemgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/quizadapt/internal/llm"
	"github.com/abhisek/quizadapt/internal/logger"
)

// ContentGenerator turns a system and user prompt into raw model text.
type ContentGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ContentGeneratorFunc adapts a function to ContentGenerator.
type ContentGeneratorFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f ContentGeneratorFunc) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

// FromProvider adapts an llm.Provider to ContentGenerator.
func FromProvider(p llm.Provider, maxTokens int, temperature float64) ContentGenerator {
	return ContentGeneratorFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		req := llm.UserPrompt(systemPrompt, userPrompt)
		req.JSON = true
		req.MaxTokens = maxTokens
		req.Temperature = temperature

		resp, err := p.Generate(llm.WithPurpose(ctx, llm.PurposeQuestionGen), req)
		if err != nil {
			return "", err
		}
		return resp.Text, nil
	})
}

// GenerationError wraps a failure of the content generator itself.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("content generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator builds prompts, calls the content generator, and parses and
// validates its output.
type Generator struct {
	content ContentGenerator
	config  Config
	log     *logger.Logger
}

// New creates a Generator.
func New(content ContentGenerator, cfg Config, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{content: content, config: cfg, log: log}
}

// Generate produces a single question. Failures are *GenerationError,
// *ParseError or *ValidationError.
func (g *Generator) Generate(ctx context.Context, input GenerateInput) (*Question, error) {
	tier := g.config.Tiers.TierFor(input.Learner.Ability, input.Learner.RecentAccuracy)
	userMsg := buildUserMessage(input, tier, g.config)

	g.log.Debug("generating question", "template_id", input.Blueprint.ID,
		"concept_id", input.Concept.ID, "tier", tier, "prompt_chars", len(userMsg))

	raw, err := g.content.Generate(ctx, systemPrompt, userMsg)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	q, err := ParseQuestion(raw, g.config.OptionCount)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			g.log.Warn("unparseable generated question", "template_id", input.Blueprint.ID,
				"reason", perr.Reason, "raw_preview", preview(raw, 300))
		}
		return nil, err
	}
	q.Tier = tier

	for _, v := range g.config.Validators {
		if verr := v.Validate(q, input); verr != nil {
			g.log.Warn("generated question rejected", "template_id", input.Blueprint.ID,
				"validator", verr.Validator, "reason", verr.Message)
			return nil, verr
		}
	}

	return q, nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
