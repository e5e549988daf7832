package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// catalogRepo implements CatalogRepo and TemplateSource.
type catalogRepo struct {
	s *Store
}

var templateColumns = []string{
	"id", "slug", "concept_id", "intent", "learning_objective", "question_style",
	"target_difficulty", "correct_reasoning", "misconception_patterns", "answer_format", "created_at",
}

func scanTemplate(sc interface{ Scan(...any) error }) (*Template, error) {
	var (
		t        Template
		patterns string
	)
	err := sc.Scan(&t.ID, &t.Slug, &t.ConceptID, &t.Intent, &t.LearningObjective, &t.QuestionStyle,
		&t.TargetDifficulty, &t.CorrectReasoning, &patterns, &t.AnswerFormat, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.MisconceptionPatterns = decodeStrings(patterns)
	return &t, nil
}

func (r *catalogRepo) ListCandidateTemplates(ctx context.Context, topicID int64) ([]Template, error) {
	b := r.s.builder()
	rows, err := r.s.query(ctx, b.Select("id").From(entsql.Table("concepts")).Where(entsql.EQ("topic_id", topicID)))
	if err != nil {
		return nil, fmt.Errorf("list topic concepts: %w", err)
	}
	var conceptIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan concept id: %w", err)
		}
		conceptIDs = append(conceptIDs, id)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("list topic concepts: %w", err)
	}
	if len(conceptIDs) == 0 {
		return nil, nil
	}

	sel := b.Select(templateColumns...).From(entsql.Table("templates"))
	sel.Where(entsql.In("concept_id", ids(conceptIDs)...)).OrderBy(sel.C("id"))
	rows, err = r.s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	var out []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, *t)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return out, nil
}

func (r *catalogRepo) EnsureSubject(ctx context.Context, name string) (*Subject, error) {
	b := r.s.builder()
	now := r.s.now()
	ins := b.Insert("subjects").Columns("name", "created_at").Values(name, now).
		OnConflict(entsql.ConflictColumns("name"), entsql.DoNothing())
	if _, err := r.ensure(ctx, ins); err != nil {
		return nil, fmt.Errorf("ensure subject %q: %w", name, err)
	}

	var sub Subject
	err := r.s.queryRow(ctx, b.Select("id", "name", "created_at").From(entsql.Table("subjects")).
		Where(entsql.EQ("name", name))).Scan(&sub.ID, &sub.Name, &sub.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("load subject %q: %w", name, err)
	}
	return &sub, nil
}

func (r *catalogRepo) EnsureTopic(ctx context.Context, subjectID int64, name string) (*Topic, error) {
	b := r.s.builder()
	ins := b.Insert("topics").Columns("subject_id", "name", "created_at").Values(subjectID, name, r.s.now()).
		OnConflict(entsql.ConflictColumns("subject_id", "name"), entsql.DoNothing())
	if _, err := r.ensure(ctx, ins); err != nil {
		return nil, fmt.Errorf("ensure topic %q: %w", name, err)
	}

	var t Topic
	err := r.s.queryRow(ctx, b.Select("id", "subject_id", "name", "created_at").From(entsql.Table("topics")).
		Where(entsql.And(entsql.EQ("subject_id", subjectID), entsql.EQ("name", name)))).
		Scan(&t.ID, &t.SubjectID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("load topic %q: %w", name, err)
	}
	return &t, nil
}

func (r *catalogRepo) EnsureConcept(ctx context.Context, topicID int64, name, description string) (*Concept, error) {
	b := r.s.builder()
	ins := b.Insert("concepts").Columns("topic_id", "name", "description", "created_at").
		Values(topicID, name, description, r.s.now()).
		OnConflict(entsql.ConflictColumns("topic_id", "name"), entsql.DoNothing())
	if _, err := r.ensure(ctx, ins); err != nil {
		return nil, fmt.Errorf("ensure concept %q: %w", name, err)
	}

	if description != "" {
		upd := b.Update("concepts").Set("description", description).
			Where(entsql.And(entsql.EQ("topic_id", topicID), entsql.EQ("name", name)))
		if _, err := r.s.exec(ctx, upd); err != nil {
			return nil, fmt.Errorf("update concept %q: %w", name, err)
		}
	}

	var c Concept
	err := r.s.queryRow(ctx, b.Select("id", "topic_id", "name", "description", "created_at").From(entsql.Table("concepts")).
		Where(entsql.And(entsql.EQ("topic_id", topicID), entsql.EQ("name", name)))).
		Scan(&c.ID, &c.TopicID, &c.Name, &c.Description, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("load concept %q: %w", name, err)
	}
	return &c, nil
}

func (r *catalogRepo) AddPrerequisite(ctx context.Context, conceptID, prerequisiteID int64) error {
	if conceptID == prerequisiteID {
		return fmt.Errorf("concept %d cannot be its own prerequisite", conceptID)
	}
	ins := r.s.builder().Insert("concept_prerequisites").Columns("concept_id", "prerequisite_id").
		Values(conceptID, prerequisiteID).
		OnConflict(entsql.ConflictColumns("concept_id", "prerequisite_id"), entsql.DoNothing())
	if _, err := r.s.exec(ctx, ins); err != nil {
		return fmt.Errorf("add prerequisite %d -> %d: %w", conceptID, prerequisiteID, err)
	}
	return nil
}

func (r *catalogRepo) UpsertTemplate(ctx context.Context, t *Template) (*Template, error) {
	if t.Slug == "" {
		return nil, errors.New("template slug is required")
	}
	format := t.AnswerFormat
	if format == "" {
		format = "MCQ"
	}

	b := r.s.builder()
	ins := b.Insert("templates").
		Columns("slug", "concept_id", "intent", "learning_objective", "question_style",
			"target_difficulty", "correct_reasoning", "misconception_patterns", "answer_format", "created_at").
		Values(t.Slug, t.ConceptID, t.Intent, t.LearningObjective, t.QuestionStyle,
			t.TargetDifficulty, t.CorrectReasoning, encodeStrings(t.MisconceptionPatterns), format, r.s.now()).
		OnConflict(
			entsql.ConflictColumns("slug"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range []string{"concept_id", "intent", "learning_objective", "question_style",
					"target_difficulty", "correct_reasoning", "misconception_patterns", "answer_format"} {
					u.SetExcluded(c)
				}
			}),
		)
	if _, err := r.s.exec(ctx, ins); err != nil {
		return nil, fmt.Errorf("upsert template %q: %w", t.Slug, err)
	}

	row := r.s.queryRow(ctx, b.Select(templateColumns...).From(entsql.Table("templates")).Where(entsql.EQ("slug", t.Slug)))
	saved, err := scanTemplate(row)
	if err != nil {
		return nil, fmt.Errorf("load template %q: %w", t.Slug, err)
	}
	return saved, nil
}

func (r *catalogRepo) ListTopics(ctx context.Context) ([]Topic, error) {
	sel := r.s.builder().Select("id", "subject_id", "name", "created_at").From(entsql.Table("topics"))
	sel.OrderBy(sel.C("id"))
	rows, err := r.s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	var out []Topic
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.SubjectID, &t.Name, &t.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		out = append(out, t)
	}
	return out, closeRows(rows)
}

// ensure runs an insert that may be skipped by ON CONFLICT DO NOTHING and
// reports whether a row was written.
func (r *catalogRepo) ensure(ctx context.Context, ins *entsql.InsertBuilder) (bool, error) {
	res, err := r.s.exec(ctx, ins)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}
