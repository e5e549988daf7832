package store

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
)

// schema is written once with placeholders for the column types that
// differ between SQLite and PostgreSQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS subjects (
		id {{pk}},
		name TEXT NOT NULL UNIQUE,
		created_at {{time}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS topics (
		id {{pk}},
		subject_id {{int}} NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at {{time}} NOT NULL,
		UNIQUE (subject_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS concepts (
		id {{pk}},
		topic_id {{int}} NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at {{time}} NOT NULL,
		UNIQUE (topic_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS concept_prerequisites (
		concept_id {{int}} NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
		prerequisite_id {{int}} NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
		PRIMARY KEY (concept_id, prerequisite_id)
	)`,
	`CREATE TABLE IF NOT EXISTS templates (
		id {{pk}},
		slug TEXT NOT NULL UNIQUE,
		concept_id {{int}} NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
		intent TEXT NOT NULL DEFAULT '',
		learning_objective TEXT NOT NULL DEFAULT '',
		question_style TEXT NOT NULL DEFAULT '',
		target_difficulty {{float}} NOT NULL DEFAULT 0.5,
		correct_reasoning TEXT NOT NULL DEFAULT '',
		misconception_patterns TEXT NOT NULL DEFAULT '[]',
		answer_format TEXT NOT NULL DEFAULT 'MCQ',
		created_at {{time}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id {{pk}},
		template_id {{int}} NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
		question_text TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_option INTEGER NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		option_misconceptions TEXT NOT NULL DEFAULT '[]',
		discrimination {{float}},
		guessing {{float}},
		content_hash TEXT NOT NULL,
		generated BOOLEAN NOT NULL DEFAULT FALSE,
		created_at {{time}} NOT NULL,
		UNIQUE (template_id, content_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS responses (
		id {{pk}},
		learner_id {{int}} NOT NULL,
		session_id {{int}},
		question_id {{int}} NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		template_id {{int}} NOT NULL,
		concept_id {{int}} NOT NULL,
		selected_option INTEGER NOT NULL,
		correct BOOLEAN NOT NULL,
		response_time {{float}} NOT NULL,
		misconception TEXT,
		created_at {{time}} NOT NULL,
		UNIQUE (learner_id, question_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_responses_learner_template ON responses (learner_id, template_id)`,
	`CREATE TABLE IF NOT EXISTS bandit_stats (
		learner_id {{int}} NOT NULL,
		template_id {{int}} NOT NULL,
		success {{float}} NOT NULL,
		failure {{float}} NOT NULL,
		updated_at {{time}} NOT NULL,
		PRIMARY KEY (learner_id, template_id)
	)`,
	`CREATE TABLE IF NOT EXISTS learner_ability (
		learner_id {{int}} PRIMARY KEY,
		ability {{float}} NOT NULL,
		updated_at {{time}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS learner_mastery (
		learner_id {{int}} NOT NULL,
		concept_id {{int}} NOT NULL,
		mastery {{float}} NOT NULL,
		updated_at {{time}} NOT NULL,
		PRIMARY KEY (learner_id, concept_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id {{pk}},
		learner_id {{int}} NOT NULL,
		subject_id {{int}} NOT NULL,
		topic_id {{int}} NOT NULL,
		start_time {{time}} NOT NULL,
		end_time {{time}},
		questions_attempted INTEGER NOT NULL DEFAULT 0,
		questions_correct INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_learner_topic ON sessions (learner_id, topic_id)`,
	`CREATE TABLE IF NOT EXISTS llm_events (
		id {{pk}},
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL DEFAULT '',
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms {{int}} NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT '',
		created_at {{time}} NOT NULL
	)`,
}

func columnTypes(d string) *strings.Replacer {
	if d == dialect.Postgres {
		return strings.NewReplacer(
			"{{pk}}", "BIGSERIAL PRIMARY KEY",
			"{{int}}", "BIGINT",
			"{{float}}", "DOUBLE PRECISION",
			"{{time}}", "TIMESTAMPTZ",
		)
	}
	return strings.NewReplacer(
		"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{int}}", "INTEGER",
		"{{float}}", "REAL",
		"{{time}}", "DATETIME",
	)
}

// Migrate creates every table and index that does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	r := columnTypes(s.dialect)
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
