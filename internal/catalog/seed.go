package catalog

import (
	"context"
	"fmt"

	"github.com/abhisek/quizadapt/internal/graph"
	"github.com/abhisek/quizadapt/internal/logger"
	"github.com/abhisek/quizadapt/internal/store"
)

// Result summarizes a seed run. Concepts and Edges are in store ids and can
// be mirrored into the prerequisite graph.
type Result struct {
	Subjects  int
	Topics    int
	Templates int
	Questions int
	Concepts  []store.Concept
	Edges     []graph.Edge
}

// Seed writes f into the store. Every write is idempotent, so seeding the
// same catalog twice leaves the store unchanged.
func Seed(ctx context.Context, cat store.CatalogRepo, questions store.QuestionRepo, f *File, log *logger.Logger) (*Result, error) {
	if log == nil {
		log = logger.Nop()
	}
	res := &Result{}
	ids := make(map[string]int64)

	for _, s := range f.Subjects {
		sub, err := cat.EnsureSubject(ctx, s.Name)
		if err != nil {
			return nil, err
		}
		res.Subjects++

		for _, t := range s.Topics {
			top, err := cat.EnsureTopic(ctx, sub.ID, t.Name)
			if err != nil {
				return nil, err
			}
			res.Topics++

			for _, c := range t.Concepts {
				con, err := cat.EnsureConcept(ctx, top.ID, c.Name, c.Description)
				if err != nil {
					return nil, err
				}
				ids[c.Key] = con.ID
				res.Concepts = append(res.Concepts, *con)

				if err := seedTemplates(ctx, cat, questions, con.ID, c.Templates, res); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, c := range f.Concepts() {
		for _, p := range c.Prerequisites {
			from, to := ids[c.Key], ids[p]
			if err := cat.AddPrerequisite(ctx, from, to); err != nil {
				return nil, err
			}
			res.Edges = append(res.Edges, graph.Edge{Concept: from, Prerequisite: to})
		}
	}

	log.Info("catalog seeded", "subjects", res.Subjects, "topics", res.Topics,
		"concepts", len(res.Concepts), "templates", res.Templates, "questions", res.Questions,
		"prerequisites", len(res.Edges))
	return res, nil
}

func seedTemplates(ctx context.Context, cat store.CatalogRepo, questions store.QuestionRepo, conceptID int64, templates []Template, res *Result) error {
	for _, t := range templates {
		saved, err := cat.UpsertTemplate(ctx, &store.Template{
			Slug:                  t.Slug,
			ConceptID:             conceptID,
			Intent:                t.Intent,
			LearningObjective:     t.LearningObjective,
			QuestionStyle:         t.Style,
			TargetDifficulty:      t.Difficulty,
			CorrectReasoning:      t.CorrectReasoning,
			MisconceptionPatterns: t.Misconceptions,
		})
		if err != nil {
			return err
		}
		res.Templates++

		for i, q := range t.Questions {
			_, err := questions.Save(ctx, &store.Question{
				TemplateID:           saved.ID,
				Text:                 q.Text,
				Options:              q.Options,
				CorrectOption:        q.Correct,
				Explanation:          q.Explanation,
				OptionMisconceptions: q.OptionMisconceptions,
				Discrimination:       q.Discrimination,
				Guessing:             q.Guessing,
			})
			if err != nil {
				return fmt.Errorf("template %q question %d: %w", t.Slug, i, err)
			}
			res.Questions++
		}
	}
	return nil
}
