package store

import (
	"context"
	"time"
)

// TemplateSource lists the templates a topic can draw from.
type TemplateSource interface {
	ListCandidateTemplates(ctx context.Context, topicID int64) ([]Template, error)
}

// QuestionRepo reads and persists questions and their authoring context.
// Getters return (nil, nil) when the row does not exist.
type QuestionRepo interface {
	// GetUnanswered returns the oldest question of the template the learner
	// has not answered yet.
	GetUnanswered(ctx context.Context, templateID, learnerID int64) (*Question, error)
	GetByID(ctx context.Context, id int64) (*Question, error)
	GetConcept(ctx context.Context, id int64) (*Concept, error)
	GetTemplate(ctx context.Context, id int64) (*Template, error)

	// Save persists q once per (template, content). Saving the same content
	// again returns the existing row.
	Save(ctx context.Context, q *Question) (*Question, error)

	// RecentTexts returns up to limit question stems of the template,
	// newest first.
	RecentTexts(ctx context.Context, templateID int64, limit int) ([]string, error)
}

// ResponseRepo records answers and the per-template bandit statistics.
type ResponseRepo interface {
	// Store inserts r. A second response for the same (learner, question)
	// returns Duplicate and writes nothing.
	Store(ctx context.Context, r *Response) (InsertOutcome, error)
	Get(ctx context.Context, learnerID, questionID int64) (*Response, error)
	// Recent returns up to limit responses, most recent first.
	Recent(ctx context.Context, learnerID int64, limit int) ([]Response, error)
	// HistoryWithItemParams returns every response of the learner in
	// answer order with its item parameters.
	HistoryWithItemParams(ctx context.Context, learnerID int64) ([]ItemHistory, error)
	BanditStats(ctx context.Context, learnerID int64) (map[int64]BanditStats, error)
	UpdateBanditStats(ctx context.Context, learnerID, templateID int64, stats BanditStats) error
}

// LearnerRepo holds ability and mastery state.
type LearnerRepo interface {
	// GlobalAbility returns 0 for a learner without an estimate.
	GlobalAbility(ctx context.Context, learnerID int64) (float64, error)
	UpdateGlobalAbility(ctx context.Context, learnerID int64, ability float64) error
	ConceptMastery(ctx context.Context, learnerID int64) (map[int64]float64, error)
	UpdateConceptMastery(ctx context.Context, learnerID, conceptID int64, mastery float64) error
	Prerequisites(ctx context.Context, conceptID int64) ([]int64, error)
}

// SessionRepo manages practice sessions.
type SessionRepo interface {
	Create(ctx context.Context, learnerID, subjectID, topicID int64) (*Session, error)
	// GetActive returns the newest unended session for the topic.
	GetActive(ctx context.Context, learnerID, topicID int64) (*Session, error)
	GetByID(ctx context.Context, id int64) (*Session, error)
	// UpdateMetrics increments the counters of an active session. Ended
	// sessions are left untouched.
	UpdateMetrics(ctx context.Context, id int64, correct bool) error
	// End stamps the end time of an active session and returns it. It
	// returns (nil, nil) when the session is missing or already ended.
	End(ctx context.Context, id int64) (*Session, error)
}

// CatalogRepo is the authoring side used to load subjects, topics,
// concepts, templates and pre-authored questions. Ensure* calls are
// idempotent on the natural key.
type CatalogRepo interface {
	EnsureSubject(ctx context.Context, name string) (*Subject, error)
	EnsureTopic(ctx context.Context, subjectID int64, name string) (*Topic, error)
	EnsureConcept(ctx context.Context, topicID int64, name, description string) (*Concept, error)
	AddPrerequisite(ctx context.Context, conceptID, prerequisiteID int64) error
	// UpsertTemplate creates or updates the template identified by Slug.
	UpsertTemplate(ctx context.Context, t *Template) (*Template, error)
	ListTopics(ctx context.Context) ([]Topic, error)
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // id > After
	Before  int64     // id < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match when set
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates token usage for one purpose.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo records and queries LLM request events.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)
	GetLLMEvent(ctx context.Context, id int64) (*LLMEvent, error)
	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}
