package adaptive

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/abhisek/quizadapt/internal/bandit"
	"github.com/abhisek/quizadapt/internal/store"
)

// testEnv is a seeded in-memory store with one topic and two concepts,
// the second a prerequisite of the first.
type testEnv struct {
	store    *store.Store
	subject  *store.Subject
	topic    *store.Topic
	concept  *store.Concept
	prereq   *store.Concept
	template *store.Template
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(ctx, "sqlite", fmt.Sprintf("file:adaptive_%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	cat := s.Catalog()
	sub, err := cat.EnsureSubject(ctx, "Physics")
	if err != nil {
		t.Fatalf("ensure subject: %v", err)
	}
	top, err := cat.EnsureTopic(ctx, sub.ID, "Mechanics")
	if err != nil {
		t.Fatalf("ensure topic: %v", err)
	}
	prereq, err := cat.EnsureConcept(ctx, top.ID, "Forces", "Pushes and pulls")
	if err != nil {
		t.Fatalf("ensure prerequisite concept: %v", err)
	}
	con, err := cat.EnsureConcept(ctx, top.ID, "Newton's first law", "Objects resist changes in motion")
	if err != nil {
		t.Fatalf("ensure concept: %v", err)
	}
	if err := cat.AddPrerequisite(ctx, con.ID, prereq.ID); err != nil {
		t.Fatalf("add prerequisite: %v", err)
	}
	tmpl, err := cat.UpsertTemplate(ctx, &store.Template{
		Slug:                  "inertia-basic",
		ConceptID:             con.ID,
		Intent:                "Identify inertia in everyday situations",
		LearningObjective:     "Explain Newton's first law",
		QuestionStyle:         "conceptual",
		TargetDifficulty:      0.5,
		CorrectReasoning:      "An object keeps its state of motion unless a net force acts",
		MisconceptionPatterns: []string{"force_needed_for_motion", "heavier_falls_faster", "confuses_mass_weight"},
	})
	if err != nil {
		t.Fatalf("upsert template: %v", err)
	}
	return &testEnv{store: s, subject: sub, topic: top, concept: con, prereq: prereq, template: tmpl}
}

// engine builds an Engine over the env with a deterministic sampler.
func (e *testEnv) engine(t *testing.T, gen QuestionGenerator, cfg Config) *Engine {
	t.Helper()
	eng, err := New(Deps{
		Templates: e.store.Templates(),
		Questions: e.store.Questions(),
		Responses: e.store.Responses(),
		Learners:  e.store.Learners(),
		Sessions:  e.store.Sessions(),
		Generator: gen,
		Sampler:   bandit.NewSampler(rand.NewPCG(1, 2), bandit.UniformPrior),
	}, cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng
}

// saveQuestion stores a four-option question with option 2 correct.
func (e *testEnv) saveQuestion(t *testing.T, text string) *store.Question {
	t.Helper()
	q, err := e.store.Questions().Save(context.Background(), &store.Question{
		TemplateID:    e.template.ID,
		Text:          text,
		Options:       []string{"It needs a force to keep moving", "Heavier objects fall faster", "It keeps moving", "Mass equals weight"},
		CorrectOption: 2,
		Explanation:   "With no net force the velocity is constant.",
	})
	if err != nil {
		t.Fatalf("save question: %v", err)
	}
	return q
}
