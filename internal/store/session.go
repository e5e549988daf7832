package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// sessionRepo implements SessionRepo.
type sessionRepo struct {
	s *Store
}

var sessionColumns = []string{
	"id", "learner_id", "subject_id", "topic_id", "start_time", "end_time",
	"questions_attempted", "questions_correct",
}

func scanSession(sc interface{ Scan(...any) error }) (*Session, error) {
	var (
		sess Session
		end  sql.NullTime
	)
	err := sc.Scan(&sess.ID, &sess.LearnerID, &sess.SubjectID, &sess.TopicID, &sess.StartTime, &end,
		&sess.Attempted, &sess.Correct)
	if err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		sess.EndTime = &t
	}
	return &sess, nil
}

func (r *sessionRepo) Create(ctx context.Context, learnerID, subjectID, topicID int64) (*Session, error) {
	now := r.s.now()
	ins := r.s.builder().Insert("sessions").
		Columns("learner_id", "subject_id", "topic_id", "start_time", "questions_attempted", "questions_correct").
		Values(learnerID, subjectID, topicID, now, 0, 0)
	id, err := r.s.insertID(ctx, ins)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Session{
		ID:        id,
		LearnerID: learnerID,
		SubjectID: subjectID,
		TopicID:   topicID,
		StartTime: now,
	}, nil
}

func (r *sessionRepo) GetActive(ctx context.Context, learnerID, topicID int64) (*Session, error) {
	sel := r.s.builder().Select(sessionColumns...).From(entsql.Table("sessions"))
	sel.Where(entsql.And(
		entsql.EQ("learner_id", learnerID),
		entsql.EQ("topic_id", topicID),
		entsql.IsNull("end_time"),
	)).OrderBy(entsql.Desc(sel.C("id"))).Limit(1)

	sess, err := scanSession(r.s.queryRow(ctx, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return sess, nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id int64) (*Session, error) {
	sel := r.s.builder().Select(sessionColumns...).From(entsql.Table("sessions")).Where(entsql.EQ("id", id))
	sess, err := scanSession(r.s.queryRow(ctx, sel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return sess, nil
}

func (r *sessionRepo) UpdateMetrics(ctx context.Context, id int64, correct bool) error {
	upd := r.s.builder().Update("sessions").Add("questions_attempted", 1)
	if correct {
		upd.Add("questions_correct", 1)
	}
	upd.Where(entsql.And(entsql.EQ("id", id), entsql.IsNull("end_time")))
	if _, err := r.s.exec(ctx, upd); err != nil {
		return fmt.Errorf("update session metrics: %w", err)
	}
	return nil
}

func (r *sessionRepo) End(ctx context.Context, id int64) (*Session, error) {
	upd := r.s.builder().Update("sessions").Set("end_time", r.s.now()).
		Where(entsql.And(entsql.EQ("id", id), entsql.IsNull("end_time")))
	res, err := r.s.exec(ctx, upd)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}
