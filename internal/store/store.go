package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// PostgreSQL driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store owns the database handle and hands out repositories.
type Store struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

// Open connects to the database selected by driver ("sqlite" or
// "postgres"), applies driver specific setup and creates the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		d   string
		err error
	)
	switch driver {
	case "", "sqlite", "sqlite3":
		d = dialect.SQLite
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		// A single connection serializes writers and keeps shared-cache
		// in-memory databases consistent.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	case "postgres", "pgx":
		d = dialect.Postgres
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown store driver: %q", driver)
	}

	s := &Store{db: db, dialect: d, now: func() time.Time { return time.Now().UTC() }}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name of the connected database.
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Templates returns the candidate template source.
func (s *Store) Templates() TemplateSource { return &catalogRepo{s: s} }

// Catalog returns the authoring repository used by seeding.
func (s *Store) Catalog() CatalogRepo { return &catalogRepo{s: s} }

// Questions returns the question repository.
func (s *Store) Questions() QuestionRepo { return &questionRepo{s: s} }

// Responses returns the response repository.
func (s *Store) Responses() ResponseRepo { return &responseRepo{s: s} }

// Learners returns the learner repository.
func (s *Store) Learners() LearnerRepo { return &learnerRepo{s: s} }

// Sessions returns the session repository.
func (s *Store) Sessions() SessionRepo { return &sessionRepo{s: s} }

// EventRepo returns the LLM event repository.
func (s *Store) EventRepo() EventRepo { return &eventRepo{s: s} }

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

func (s *Store) query(ctx context.Context, q entsql.Querier) (*sql.Rows, error) {
	query, args := q.Query()
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Store) queryRow(ctx context.Context, q entsql.Querier) *sql.Row {
	query, args := q.Query()
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s *Store) exec(ctx context.Context, q entsql.Querier) (sql.Result, error) {
	query, args := q.Query()
	return s.db.ExecContext(ctx, query, args...)
}

// insertID runs ins and returns the generated primary key. Both SQLite and
// PostgreSQL accept a trailing RETURNING clause, including after
// ON CONFLICT. A conflict resolved with DO NOTHING yields sql.ErrNoRows.
func (s *Store) insertID(ctx context.Context, ins *entsql.InsertBuilder) (int64, error) {
	query, args := ins.Query()
	var id int64
	err := s.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id)
	return id, err
}

// applyPragmas configures SQLite for a small concurrent service.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the SQLite database file path in priority order:
// 1. QUIZADAPT_DB environment variable
// 2. $XDG_DATA_HOME/quizadapt/quizadapt.db
// 3. ~/.local/share/quizadapt/quizadapt.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("QUIZADAPT_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "quizadapt", "quizadapt.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
