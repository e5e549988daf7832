package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// questionRepo implements QuestionRepo.
type questionRepo struct {
	s *Store
}

var questionColumns = []string{
	"id", "template_id", "question_text", "options", "correct_option", "explanation",
	"option_misconceptions", "discrimination", "guessing", "generated", "created_at",
}

func scanQuestion(sc interface{ Scan(...any) error }) (*Question, error) {
	var (
		q              Question
		options, tags  string
		discrim, guess sql.NullFloat64
	)
	err := sc.Scan(&q.ID, &q.TemplateID, &q.Text, &options, &q.CorrectOption, &q.Explanation,
		&tags, &discrim, &guess, &q.Generated, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	q.Options = decodeStrings(options)
	q.OptionMisconceptions = decodeStrings(tags)
	q.Discrimination = floatPtr(discrim)
	q.Guessing = floatPtr(guess)
	return &q, nil
}

func (r *questionRepo) GetUnanswered(ctx context.Context, templateID, learnerID int64) (*Question, error) {
	sel := unansweredQuery(r.s.builder(), templateID, learnerID)
	q, err := scanQuestion(r.s.queryRow(ctx, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get unanswered question: %w", err)
	}
	return q, nil
}

// unansweredQuery selects the oldest question of the template with no
// response from the learner. The answered set stays a subquery so the
// bound parameters do not grow with the learner's history.
func unansweredQuery(b *entsql.DialectBuilder, templateID, learnerID int64) *entsql.Selector {
	answered := b.Select("question_id").From(entsql.Table("responses")).
		Where(entsql.And(entsql.EQ("learner_id", learnerID), entsql.EQ("template_id", templateID)))
	sel := b.Select(questionColumns...).From(entsql.Table("questions"))
	sel.Where(entsql.And(entsql.EQ("template_id", templateID), entsql.NotIn("id", answered))).
		OrderBy(sel.C("id")).Limit(1)
	return sel
}

func (r *questionRepo) GetByID(ctx context.Context, id int64) (*Question, error) {
	sel := r.s.builder().Select(questionColumns...).From(entsql.Table("questions")).Where(entsql.EQ("id", id))
	q, err := scanQuestion(r.s.queryRow(ctx, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question %d: %w", id, err)
	}
	return q, nil
}

func (r *questionRepo) GetConcept(ctx context.Context, id int64) (*Concept, error) {
	var c Concept
	err := r.s.queryRow(ctx, r.s.builder().Select("id", "topic_id", "name", "description", "created_at").
		From(entsql.Table("concepts")).Where(entsql.EQ("id", id))).
		Scan(&c.ID, &c.TopicID, &c.Name, &c.Description, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get concept %d: %w", id, err)
	}
	return &c, nil
}

func (r *questionRepo) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	sel := r.s.builder().Select(templateColumns...).From(entsql.Table("templates")).Where(entsql.EQ("id", id))
	t, err := scanTemplate(r.s.queryRow(ctx, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template %d: %w", id, err)
	}
	return t, nil
}

func (r *questionRepo) Save(ctx context.Context, q *Question) (*Question, error) {
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return nil, fmt.Errorf("correct option %d out of range for %d options", q.CorrectOption, len(q.Options))
	}
	hash := contentHash(q)

	b := r.s.builder()
	ins := b.Insert("questions").
		Columns("template_id", "question_text", "options", "correct_option", "explanation",
			"option_misconceptions", "discrimination", "guessing", "content_hash", "generated", "created_at").
		Values(q.TemplateID, q.Text, encodeStrings(q.Options), q.CorrectOption, q.Explanation,
			encodeStrings(q.OptionMisconceptions), nullFloat(q.Discrimination), nullFloat(q.Guessing),
			hash, q.Generated, r.s.now()).
		OnConflict(entsql.ConflictColumns("template_id", "content_hash"), entsql.DoNothing())

	id, err := r.s.insertID(ctx, ins)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		sel := b.Select(questionColumns...).From(entsql.Table("questions")).
			Where(entsql.And(entsql.EQ("template_id", q.TemplateID), entsql.EQ("content_hash", hash)))
		existing, err := scanQuestion(r.s.queryRow(ctx, sel))
		if err != nil {
			return nil, fmt.Errorf("load existing question: %w", err)
		}
		return existing, nil
	case err != nil:
		return nil, fmt.Errorf("save question: %w", err)
	}

	saved, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("question %d vanished after insert", id)
	}
	return saved, nil
}

func (r *questionRepo) RecentTexts(ctx context.Context, templateID int64, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	sel := r.s.builder().Select("question_text").From(entsql.Table("questions"))
	sel.Where(entsql.EQ("template_id", templateID)).OrderBy(entsql.Desc(sel.C("id"))).Limit(limit)
	rows, err := r.s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list question texts: %w", err)
	}
	var out []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan question text: %w", err)
		}
		out = append(out, text)
	}
	return out, closeRows(rows)
}
