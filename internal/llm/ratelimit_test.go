package llm

import (
	"context"
	"testing"
	"time"
)

func TestWithRateLimit_DisabledReturnsInner(t *testing.T) {
	mock := NewMockProvider()
	if got := WithRateLimit(mock, 0, 1); got != Provider(mock) {
		t.Fatalf("WithRateLimit(0) = %T, want the inner provider", got)
	}
}

func TestWithRateLimit_BlocksUntilContextDone(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: "a"}, MockResponse{Text: "b"})
	p := WithRateLimit(mock, 1, 1)

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Generate(ctx, Request{}); err == nil {
		t.Fatal("second call within the window should fail on the deadline")
	}
	if mock.CallCount() != 1 {
		t.Fatalf("calls = %d, want 1", mock.CallCount())
	}
	if p.ModelID() != "mock" {
		t.Fatalf("ModelID() = %q, want mock", p.ModelID())
	}
}
