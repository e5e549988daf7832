package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenRouterProvider(t *testing.T) {
	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or", Model: "anthropic/claude-haiku-4-5"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-haiku-4-5", p.ModelID(), "routed IDs are used as-is")
	assert.False(t, p.jsonMode)

	p, err = NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or"})
	require.NoError(t, err)
	assert.Equal(t, defaultOpenRouterModel, p.ModelID())

	_, err = NewOpenRouterProvider(OpenRouterConfig{Model: "x/y"})
	assert.Error(t, err)
}
