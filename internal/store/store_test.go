package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(context.Background(), "sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixture creates a subject, topic, concept and template.
type fixture struct {
	subject  *Subject
	topic    *Topic
	concept  *Concept
	template *Template
}

func seedFixture(t *testing.T, s *Store) fixture {
	t.Helper()
	ctx := context.Background()
	cat := s.Catalog()

	sub, err := cat.EnsureSubject(ctx, "Physics")
	if err != nil {
		t.Fatalf("ensure subject: %v", err)
	}
	top, err := cat.EnsureTopic(ctx, sub.ID, "Mechanics")
	if err != nil {
		t.Fatalf("ensure topic: %v", err)
	}
	con, err := cat.EnsureConcept(ctx, top.ID, "Inertia", "Objects resist changes in motion")
	if err != nil {
		t.Fatalf("ensure concept: %v", err)
	}
	tmpl, err := cat.UpsertTemplate(ctx, &Template{
		Slug:                  "inertia-basic",
		ConceptID:             con.ID,
		Intent:                "Identify inertia",
		LearningObjective:     "Explain Newton's first law",
		QuestionStyle:         "conceptual",
		TargetDifficulty:      0.5,
		CorrectReasoning:      "Objects keep their state of motion",
		MisconceptionPatterns: []string{"force_needed_for_motion", "heavier_falls_faster"},
	})
	if err != nil {
		t.Fatalf("upsert template: %v", err)
	}
	return fixture{subject: sub, topic: top, concept: con, template: tmpl}
}

func saveQuestion(t *testing.T, s *Store, templateID int64, text string) *Question {
	t.Helper()
	q, err := s.Questions().Save(context.Background(), &Question{
		TemplateID:    templateID,
		Text:          text,
		Options:       []string{"a", "b", "c", "d"},
		CorrectOption: 1,
		Explanation:   "because",
	})
	if err != nil {
		t.Fatalf("save question: %v", err)
	}
	return q
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db")
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so journal_mode is not checked here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		if err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestCatalog_EnsureIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f := seedFixture(t, s)

	again, err := s.Catalog().EnsureSubject(ctx, "Physics")
	if err != nil {
		t.Fatalf("ensure subject again: %v", err)
	}
	if again.ID != f.subject.ID {
		t.Errorf("subject ID = %d, want %d", again.ID, f.subject.ID)
	}

	updated, err := s.Catalog().UpsertTemplate(ctx, &Template{
		Slug:             "inertia-basic",
		ConceptID:        f.concept.ID,
		TargetDifficulty: 0.8,
	})
	if err != nil {
		t.Fatalf("upsert template again: %v", err)
	}
	if updated.ID != f.template.ID {
		t.Errorf("template ID = %d, want %d", updated.ID, f.template.ID)
	}
	if updated.TargetDifficulty != 0.8 {
		t.Errorf("TargetDifficulty = %v, want 0.8", updated.TargetDifficulty)
	}
}

func TestListCandidateTemplates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f := seedFixture(t, s)

	got, err := s.Templates().ListCandidateTemplates(ctx, f.topic.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Slug != "inertia-basic" || len(got[0].MisconceptionPatterns) != 2 {
		t.Errorf("template = %+v", got[0])
	}

	none, err := s.Templates().ListCandidateTemplates(ctx, f.topic.ID+100)
	if err != nil {
		t.Fatalf("list unknown topic: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("len = %d, want 0 for unknown topic", len(none))
	}
}
