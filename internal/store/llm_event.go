package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	entsql "entgo.io/ent/dialect/sql"
)

// eventRepo implements EventRepo.
type eventRepo struct {
	s *Store
}

var llmEventColumns = []string{
	"id", "created_at", "provider", "model", "purpose", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body",
}

func scanLLMEvent(sc interface{ Scan(...any) error }) (*LLMEvent, error) {
	var e LLMEvent
	err := sc.Scan(&e.ID, &e.Timestamp, &e.Provider, &e.Model, &e.Purpose, &e.InputTokens, &e.OutputTokens,
		&e.LatencyMs, &e.Success, &e.ErrorMessage, &e.RequestBody, &e.ResponseBody)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	ins := r.s.builder().Insert("llm_events").
		Columns("provider", "model", "purpose", "input_tokens", "output_tokens", "latency_ms",
			"success", "error_message", "request_body", "response_body", "created_at").
		Values(data.Provider, data.Model, data.Purpose, data.InputTokens, data.OutputTokens, data.LatencyMs,
			data.Success, data.ErrorMessage, data.RequestBody, data.ResponseBody, r.s.now())
	if _, err := r.s.exec(ctx, ins); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error) {
	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("id", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("id", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("created_at", opts.From))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("created_at", opts.To))
	}
	if opts.Purpose != "" {
		preds = append(preds, entsql.EQ("purpose", opts.Purpose))
	}

	sel := r.s.builder().Select(llmEventColumns...).From(entsql.Table("llm_events"))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc(sel.C("id")))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	rows, err := r.s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	var out []LLMEvent
	for rows.Next() {
		e, err := scanLLMEvent(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan LLM event: %w", err)
		}
		out = append(out, *e)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	return out, nil
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int64) (*LLMEvent, error) {
	sel := r.s.builder().Select(llmEventColumns...).From(entsql.Table("llm_events")).Where(entsql.EQ("id", id))
	e, err := scanLLMEvent(r.s.queryRow(ctx, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get LLM event %d: %w", id, err)
	}
	return e, nil
}

// usageRow is the subset of an event needed for aggregation.
type usageRow struct {
	purpose, model string
	in, out        int
	latency        int64
}

func (r *eventRepo) usageRows(ctx context.Context) ([]usageRow, error) {
	rows, err := r.s.query(ctx, r.s.builder().
		Select("purpose", "model", "input_tokens", "output_tokens", "latency_ms").
		From(entsql.Table("llm_events")))
	if err != nil {
		return nil, fmt.Errorf("query LLM usage: %w", err)
	}
	var out []usageRow
	for rows.Next() {
		var u usageRow
		if err := rows.Scan(&u.purpose, &u.model, &u.in, &u.out, &u.latency); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan LLM usage: %w", err)
		}
		out = append(out, u)
	}
	return out, closeRows(rows)
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error) {
	rows, err := r.usageRows(ctx)
	if err != nil {
		return nil, err
	}
	byPurpose := map[string]*PurposeUsage{}
	latency := map[string]int64{}
	for _, u := range rows {
		p, ok := byPurpose[u.purpose]
		if !ok {
			p = &PurposeUsage{Purpose: u.purpose}
			byPurpose[u.purpose] = p
		}
		p.Calls++
		p.InputTokens += u.in
		p.OutputTokens += u.out
		latency[u.purpose] += u.latency
	}

	out := make([]PurposeUsage, 0, len(byPurpose))
	for k, p := range byPurpose {
		p.AvgLatencyMs = latency[k] / int64(p.Calls)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Purpose < out[j].Purpose })
	return out, nil
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]ModelUsage, error) {
	rows, err := r.usageRows(ctx)
	if err != nil {
		return nil, err
	}
	byModel := map[string]*ModelUsage{}
	for _, u := range rows {
		m, ok := byModel[u.model]
		if !ok {
			m = &ModelUsage{Model: u.model}
			byModel[u.model] = m
		}
		m.Calls++
		m.InputTokens += u.in
		m.OutputTokens += u.out
	}

	out := make([]ModelUsage, 0, len(byModel))
	for _, m := range byModel {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}
