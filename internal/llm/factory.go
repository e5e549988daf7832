package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/quizadapt/internal/logger"
	"github.com/abhisek/quizadapt/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped as
// caller → retry → rate limit → instrumentation → base. The mock
// provider is returned bare and answers nothing until scripted.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, log *logger.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	traced := Instrument(base, cfg.Provider, eventRepo, log)
	limited := WithRateLimit(traced, cfg.RequestsPerMinute, cfg.Burst)
	return WithRetry(limited, cfg.Retry, log), nil
}
