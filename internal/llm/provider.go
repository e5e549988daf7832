// Package llm talks to hosted language models. Providers share one request
// shape and a stack of decorators: retry, rate limiting and
// instrumentation (event rows, logs and trace spans).
package llm

import "context"

// Provider produces text completions for a prompt.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

// Request describes one completion call.
type Request struct {
	System   string
	Messages []Message

	// JSON asks for the provider's native JSON output mode when it has
	// one. The caller still parses the text itself.
	JSON bool

	MaxTokens int
	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UserPrompt builds a single-turn request.
func UserPrompt(system, user string) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: user}},
	}
}

// StopReason is the normalized reason the model stopped.
type StopReason string

const (
	StopEnd       StopReason = "end"
	StopMaxTokens StopReason = "max_tokens"
)

type Response struct {
	Text       string
	Usage      Usage
	Model      string
	StopReason StopReason
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// complete rejects a truncated completion. A question payload cut off at
// the token limit cannot be parsed, so it is returned as
// ErrMaxTokensExceeded instead of text.
func complete(resp *Response) (*Response, error) {
	if resp.StopReason == StopMaxTokens {
		return nil, &ErrMaxTokensExceeded{Text: resp.Text, Usage: resp.Usage}
	}
	return resp, nil
}
