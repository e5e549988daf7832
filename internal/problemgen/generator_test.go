package problemgen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizadapt/internal/llm"
)

func TestGenerate_ValidPayload(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: "```json\n" + cleanPayload + "\n```"})
	gen := New(FromProvider(mock, 512, 0.7), DefaultConfig(), nil)

	q, err := gen.Generate(context.Background(), testInput())
	require.NoError(t, err)
	assert.Len(t, q.Options, 4)
	assert.NotEmpty(t, q.Explanation)
	assert.Equal(t, TierIntermediate, q.Tier)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Requests()[0]
	assert.Equal(t, systemPrompt, req.System)
	assert.True(t, req.JSON)
	assert.Equal(t, 512, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "Name: Slices")
}

func TestGenerate_TierFollowsLearner(t *testing.T) {
	var prompt string
	content := ContentGeneratorFunc(func(_ context.Context, _, user string) (string, error) {
		prompt = user
		return cleanPayload, nil
	})
	gen := New(content, DefaultConfig(), nil)

	input := testInput()
	input.Learner = LearnerHints{Ability: 1.6, RecentAccuracy: 0.9, AvgResponseTime: 12}
	q, err := gen.Generate(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, TierAdvanced, q.Tier)
	assert.Contains(t, prompt, "LEARNER (ADVANCED)")
}

func TestGenerate_ProviderErrorIsGenerationError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}})
	gen := New(FromProvider(mock, 512, 0), DefaultConfig(), nil)

	_, err := gen.Generate(context.Background(), testInput())
	var gerr *GenerationError
	require.True(t, errors.As(err, &gerr), "error = %T", err)

	var unavail *llm.ErrProviderUnavailable
	assert.True(t, errors.As(err, &unavail))
}

func TestGenerate_MalformedPayload(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: "Sorry, I ran out of ideas."})
	gen := New(FromProvider(mock, 512, 0), DefaultConfig(), nil)

	_, err := gen.Generate(context.Background(), testInput())
	var perr *ParseError
	require.True(t, errors.As(err, &perr), "error = %T", err)
}

func TestGenerate_DuplicateStemRejected(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: cleanPayload})
	gen := New(FromProvider(mock, 512, 0), DefaultConfig(), nil)

	input := testInput()
	input.PriorQuestions = []string{"what does a HASH MAP trade for O(1) lookups"}
	_, err := gen.Generate(context.Background(), input)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "error = %T", err)
	assert.Equal(t, "dedup", verr.Validator)
}

func TestGenerate_ValidatorsRunInOrder(t *testing.T) {
	var order []string
	cfg := DefaultConfig()
	cfg.Validators = []Validator{
		recordingValidator{name: "first", order: &order},
		recordingValidator{name: "second", order: &order, fail: true},
		recordingValidator{name: "third", order: &order},
	}
	gen := New(ContentGeneratorFunc(func(context.Context, string, string) (string, error) {
		return cleanPayload, nil
	}), cfg, nil)

	_, err := gen.Generate(context.Background(), testInput())
	require.Error(t, err)
	assert.Equal(t, "first,second", strings.Join(order, ","))
}

type recordingValidator struct {
	name  string
	order *[]string
	fail  bool
}

func (v recordingValidator) Name() string { return v.name }

func (v recordingValidator) Validate(*Question, GenerateInput) *ValidationError {
	*v.order = append(*v.order, v.name)
	if v.fail {
		return &ValidationError{Validator: v.name, Message: "nope"}
	}
	return nil
}
