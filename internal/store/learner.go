package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// learnerRepo implements LearnerRepo.
type learnerRepo struct {
	s *Store
}

func (r *learnerRepo) GlobalAbility(ctx context.Context, learnerID int64) (float64, error) {
	var ability float64
	err := r.s.queryRow(ctx, r.s.builder().Select("ability").From(entsql.Table("learner_ability")).
		Where(entsql.EQ("learner_id", learnerID))).Scan(&ability)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get ability: %w", err)
	}
	return ability, nil
}

func (r *learnerRepo) UpdateGlobalAbility(ctx context.Context, learnerID int64, ability float64) error {
	ins := r.s.builder().Insert("learner_ability").
		Columns("learner_id", "ability", "updated_at").
		Values(learnerID, ability, r.s.now()).
		OnConflict(entsql.ConflictColumns("learner_id"), entsql.ResolveWithNewValues())
	if _, err := r.s.exec(ctx, ins); err != nil {
		return fmt.Errorf("update ability: %w", err)
	}
	return nil
}

func (r *learnerRepo) ConceptMastery(ctx context.Context, learnerID int64) (map[int64]float64, error) {
	rows, err := r.s.query(ctx, r.s.builder().Select("concept_id", "mastery").
		From(entsql.Table("learner_mastery")).Where(entsql.EQ("learner_id", learnerID)))
	if err != nil {
		return nil, fmt.Errorf("concept mastery: %w", err)
	}
	out := make(map[int64]float64)
	for rows.Next() {
		var (
			conceptID int64
			m         float64
		)
		if err := rows.Scan(&conceptID, &m); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		out[conceptID] = m
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("concept mastery: %w", err)
	}
	return out, nil
}

func (r *learnerRepo) UpdateConceptMastery(ctx context.Context, learnerID, conceptID int64, mastery float64) error {
	ins := r.s.builder().Insert("learner_mastery").
		Columns("learner_id", "concept_id", "mastery", "updated_at").
		Values(learnerID, conceptID, mastery, r.s.now()).
		OnConflict(entsql.ConflictColumns("learner_id", "concept_id"), entsql.ResolveWithNewValues())
	if _, err := r.s.exec(ctx, ins); err != nil {
		return fmt.Errorf("update mastery: %w", err)
	}
	return nil
}

func (r *learnerRepo) Prerequisites(ctx context.Context, conceptID int64) ([]int64, error) {
	sel := r.s.builder().Select("prerequisite_id").From(entsql.Table("concept_prerequisites"))
	sel.Where(entsql.EQ("concept_id", conceptID)).OrderBy(sel.C("prerequisite_id"))
	rows, err := r.s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("prerequisites: %w", err)
	}
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan prerequisite: %w", err)
		}
		out = append(out, id)
	}
	return out, closeRows(rows)
}
