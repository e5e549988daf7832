package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"
)

// responseRepo implements ResponseRepo.
type responseRepo struct {
	s *Store
}

var responseColumns = []string{
	"id", "learner_id", "session_id", "question_id", "template_id", "concept_id",
	"selected_option", "correct", "response_time", "misconception", "created_at",
}

func scanResponse(sc interface{ Scan(...any) error }) (*Response, error) {
	var (
		r             Response
		session       sql.NullInt64
		misconception sql.NullString
	)
	err := sc.Scan(&r.ID, &r.LearnerID, &session, &r.QuestionID, &r.TemplateID, &r.ConceptID,
		&r.SelectedOption, &r.Correct, &r.ResponseTime, &misconception, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.SessionID = session.Int64
	r.Misconception = misconception.String
	return &r, nil
}

func (r *responseRepo) Store(ctx context.Context, resp *Response) (InsertOutcome, error) {
	now := r.s.now()
	ins := r.s.builder().Insert("responses").
		Columns("learner_id", "session_id", "question_id", "template_id", "concept_id",
			"selected_option", "correct", "response_time", "misconception", "created_at").
		Values(resp.LearnerID, nullID(resp.SessionID), resp.QuestionID, resp.TemplateID, resp.ConceptID,
			resp.SelectedOption, resp.Correct, resp.ResponseTime, nullString(resp.Misconception), now)

	id, err := r.s.insertID(ctx, ins)
	if err != nil {
		if sqlgraph.IsUniqueConstraintError(err) {
			return Duplicate, nil
		}
		return Inserted, fmt.Errorf("store response: %w", err)
	}
	resp.ID = id
	resp.CreatedAt = now
	return Inserted, nil
}

func (r *responseRepo) Get(ctx context.Context, learnerID, questionID int64) (*Response, error) {
	sel := r.s.builder().Select(responseColumns...).From(entsql.Table("responses")).
		Where(entsql.And(entsql.EQ("learner_id", learnerID), entsql.EQ("question_id", questionID)))
	resp, err := scanResponse(r.s.queryRow(ctx, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	return resp, nil
}

func (r *responseRepo) Recent(ctx context.Context, learnerID int64, limit int) ([]Response, error) {
	sel := r.s.builder().Select(responseColumns...).From(entsql.Table("responses"))
	sel.Where(entsql.EQ("learner_id", learnerID)).OrderBy(entsql.Desc(sel.C("id")))
	if limit > 0 {
		sel.Limit(limit)
	}
	rows, err := r.s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("recent responses: %w", err)
	}
	var out []Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan response: %w", err)
		}
		out = append(out, *resp)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("recent responses: %w", err)
	}
	return out, nil
}

func (r *responseRepo) HistoryWithItemParams(ctx context.Context, learnerID int64) ([]ItemHistory, error) {
	b := r.s.builder()
	sel := b.Select("question_id", "template_id", "correct").From(entsql.Table("responses"))
	sel.Where(entsql.EQ("learner_id", learnerID)).OrderBy(sel.C("id"))
	rows, err := r.s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("response history: %w", err)
	}

	type answered struct {
		questionID, templateID int64
		correct                bool
	}
	var (
		history     []answered
		templateSet = map[int64]struct{}{}
		questionIDs []int64
	)
	for rows.Next() {
		var a answered
		if err := rows.Scan(&a.questionID, &a.templateID, &a.correct); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan history: %w", err)
		}
		history = append(history, a)
		templateSet[a.templateID] = struct{}{}
		questionIDs = append(questionIDs, a.questionID)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("response history: %w", err)
	}
	if len(history) == 0 {
		return nil, nil
	}

	templateIDs := make([]int64, 0, len(templateSet))
	for id := range templateSet {
		templateIDs = append(templateIDs, id)
	}
	difficulty := make(map[int64]float64, len(templateIDs))
	rows, err = r.s.query(ctx, b.Select("id", "target_difficulty").From(entsql.Table("templates")).
		Where(entsql.In("id", ids(templateIDs)...)))
	if err != nil {
		return nil, fmt.Errorf("template difficulty: %w", err)
	}
	for rows.Next() {
		var (
			id int64
			d  float64
		)
		if err := rows.Scan(&id, &d); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan difficulty: %w", err)
		}
		difficulty[id] = d
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("template difficulty: %w", err)
	}

	type override struct{ a, c *float64 }
	overrides := make(map[int64]override, len(questionIDs))
	rows, err = r.s.query(ctx, b.Select("id", "discrimination", "guessing").From(entsql.Table("questions")).
		Where(entsql.In("id", ids(questionIDs)...)))
	if err != nil {
		return nil, fmt.Errorf("item overrides: %w", err)
	}
	for rows.Next() {
		var (
			id   int64
			a, c sql.NullFloat64
		)
		if err := rows.Scan(&id, &a, &c); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan overrides: %w", err)
		}
		overrides[id] = override{a: floatPtr(a), c: floatPtr(c)}
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("item overrides: %w", err)
	}

	out := make([]ItemHistory, len(history))
	for i, h := range history {
		d, ok := difficulty[h.templateID]
		if !ok {
			d = 0.5
		}
		o := overrides[h.questionID]
		out[i] = ItemHistory{
			Correct:            h.correct,
			TemplateDifficulty: d,
			Discrimination:     o.a,
			Guessing:           o.c,
		}
	}
	return out, nil
}

func (r *responseRepo) BanditStats(ctx context.Context, learnerID int64) (map[int64]BanditStats, error) {
	rows, err := r.s.query(ctx, r.s.builder().Select("template_id", "success", "failure").
		From(entsql.Table("bandit_stats")).Where(entsql.EQ("learner_id", learnerID)))
	if err != nil {
		return nil, fmt.Errorf("bandit stats: %w", err)
	}
	out := make(map[int64]BanditStats)
	for rows.Next() {
		var (
			templateID int64
			st         BanditStats
		)
		if err := rows.Scan(&templateID, &st.Success, &st.Failure); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan bandit stats: %w", err)
		}
		out[templateID] = st
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("bandit stats: %w", err)
	}
	return out, nil
}

func (r *responseRepo) UpdateBanditStats(ctx context.Context, learnerID, templateID int64, stats BanditStats) error {
	ins := r.s.builder().Insert("bandit_stats").
		Columns("learner_id", "template_id", "success", "failure", "updated_at").
		Values(learnerID, templateID, stats.Success, stats.Failure, r.s.now()).
		OnConflict(entsql.ConflictColumns("learner_id", "template_id"), entsql.ResolveWithNewValues())
	if _, err := r.s.exec(ctx, ins); err != nil {
		return fmt.Errorf("update bandit stats: %w", err)
	}
	return nil
}
