package llm

import "errors"

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "google/gemini-2.5-flash"
)

// OpenRouterProvider is an OpenAIProvider pointed at OpenRouter. Native
// JSON mode stays off because not every routed model accepts it.
type OpenRouterProvider struct {
	*OpenAIProvider
}

func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openrouter API key is required")
	}
	inner, err := NewOpenAIProvider(OpenAIConfig{
		APIKey:  cfg.APIKey,
		Model:   orDefault(cfg.Model, defaultOpenRouterModel),
		BaseURL: orDefault(cfg.BaseURL, defaultOpenRouterBaseURL),
	})
	if err != nil {
		return nil, err
	}
	inner.jsonMode = false
	return &OpenRouterProvider{OpenAIProvider: inner}, nil
}
