package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/abhisek/quizadapt/internal/store"
)

type recordingEvents struct {
	store.EventRepo

	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingEvents) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return r.err
}

func instrumented(t *testing.T, inner Provider, events store.EventRepo) (Provider, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	p := Instrument(inner, "mock", events, nil).(*InstrumentedProvider)
	p.tracer = tp.Tracer("test")
	tick := time.Unix(0, 0)
	p.now = func() time.Time {
		tick = tick.Add(150 * time.Millisecond)
		return tick
	}
	return p, rec
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestInstrument_Success(t *testing.T) {
	events := &recordingEvents{}
	mock := NewMockProvider(MockResponse{Text: `{"ok":true}`, Usage: Usage{InputTokens: 12, OutputTokens: 7}})
	p, rec := instrumented(t, mock, events)

	ctx := WithPurpose(context.Background(), PurposeQuestionGen)
	req := UserPrompt("be brief", "one question")
	req.JSON = true
	req.MaxTokens = 256
	resp, err := p.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Text)

	require.Len(t, events.events, 1)
	ev := events.events[0]
	assert.Equal(t, "mock", ev.Provider)
	assert.Equal(t, "mock", ev.Model)
	assert.Equal(t, PurposeQuestionGen, ev.Purpose)
	assert.True(t, ev.Success)
	assert.Equal(t, int64(150), ev.LatencyMs)
	assert.Equal(t, 12, ev.InputTokens)
	assert.Equal(t, 7, ev.OutputTokens)
	assert.Equal(t, `{"ok":true}`, ev.ResponseBody)
	assert.Equal(t, "[system]\nbe brief\n\n[user]\none question\n\n[format: json]", ev.RequestBody)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "llm.generate", spans[0].Name())
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "mock", attrs["gen_ai.system"].AsString())
	assert.Equal(t, int64(256), attrs["gen_ai.request.max_tokens"].AsInt64())
	assert.Equal(t, PurposeQuestionGen, attrs["llm.purpose"].AsString())
	assert.Equal(t, int64(7), attrs["gen_ai.usage.output_tokens"].AsInt64())
	assert.Equal(t, "end", attrs["gen_ai.response.finish_reason"].AsString())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestInstrument_Failure(t *testing.T) {
	events := &recordingEvents{}
	mock := NewMockProvider(MockResponse{Err: &ErrRejected{Status: 401, Err: errors.New("bad key")}})
	p, rec := instrumented(t, mock, events)

	_, err := p.Generate(context.Background(), Request{})
	var rej *ErrRejected
	require.ErrorAs(t, err, &rej)

	require.Len(t, events.events, 1)
	assert.False(t, events.events[0].Success)
	assert.Contains(t, events.events[0].ErrorMessage, "bad key")
	assert.Equal(t, "unknown", events.events[0].Purpose)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.NotEmpty(t, spans[0].Events(), "error recorded on the span")
}

func TestInstrument_EventErrorsIgnored(t *testing.T) {
	events := &recordingEvents{err: errors.New("disk full")}
	p, _ := instrumented(t, NewMockProvider(MockResponse{Text: "x"}), events)
	resp, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "x", resp.Text)
}

func TestInstrument_NilRepo(t *testing.T) {
	p, rec := instrumented(t, NewMockProvider(MockResponse{Text: "x"}), nil)
	_, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Len(t, rec.Ended(), 1)
	assert.Equal(t, "mock", p.ModelID())
}

func TestInstrument_CancelledContextStillRecords(t *testing.T) {
	events := &recordingEvents{}
	p, _ := instrumented(t, NewMockProvider(MockResponse{Text: "x"}), events)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = p.Generate(ctx, Request{})
	assert.Len(t, events.events, 1)
}
