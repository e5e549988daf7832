package llm

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/quizadapt/internal/logger"
	"github.com/abhisek/quizadapt/internal/store"
)

const tracerName = "github.com/abhisek/quizadapt/internal/llm"

// InstrumentedProvider traces each call, logs it and appends a row to the
// LLM event log. Event persistence failures are logged and otherwise
// ignored.
type InstrumentedProvider struct {
	inner    Provider
	provider string
	events   store.EventRepo
	log      *logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// Instrument wraps p. repo may be nil, in which case no events are stored.
func Instrument(p Provider, providerName string, repo store.EventRepo, log *logger.Logger) Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &InstrumentedProvider{
		inner:    p,
		provider: providerName,
		events:   repo,
		log:      log.With("provider", providerName),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
}

func (p *InstrumentedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	purpose := PurposeFrom(ctx)
	model := p.inner.ModelID()

	ctx, span := p.tracer.Start(ctx, "llm.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.system", p.provider),
			attribute.String("gen_ai.request.model", model),
			attribute.Int("gen_ai.request.max_tokens", req.MaxTokens),
			attribute.String("llm.purpose", purpose),
		))
	defer span.End()

	start := p.now()
	resp, err := p.inner.Generate(ctx, req)
	latency := p.now().Sub(start)

	ev := store.LLMRequestEventData{
		Provider:    p.provider,
		Model:       model,
		Purpose:     purpose,
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if resp != nil {
		if resp.Model != "" {
			ev.Model = resp.Model
		}
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = resp.Text
		span.SetAttributes(
			attribute.String("gen_ai.response.model", ev.Model),
			attribute.String("gen_ai.response.finish_reason", string(resp.StopReason)),
			attribute.Int("gen_ai.usage.input_tokens", ev.InputTokens),
			attribute.Int("gen_ai.usage.output_tokens", ev.OutputTokens),
		)
	}

	if err != nil {
		ev.ErrorMessage = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.log.Warn("llm request failed", "model", model, "purpose", purpose, "latency", latency, "error", err)
	} else {
		p.log.Debug("llm request", "model", ev.Model, "purpose", purpose, "latency", latency,
			"input_tokens", ev.InputTokens, "output_tokens", ev.OutputTokens)
	}

	if p.events != nil {
		if aerr := p.events.AppendLLMRequest(context.WithoutCancel(ctx), ev); aerr != nil {
			p.log.Warn("record llm event", "error", aerr)
		}
	}
	return resp, err
}

func (p *InstrumentedProvider) ModelID() string { return p.inner.ModelID() }

// transcript renders a request as plain text for the event log.
func transcript(req Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		b.WriteString("[")
		b.WriteString(string(m.Role))
		b.WriteString("]\n")
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	if req.JSON {
		b.WriteString("[format: json]\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
