package store

import "time"

// Subject groups topics, e.g. "Physics".
type Subject struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Topic is the unit a session practices.
type Topic struct {
	ID        int64
	SubjectID int64
	Name      string
	CreatedAt time.Time
}

// Concept is a single knowledge component within a topic.
type Concept struct {
	ID          int64
	TopicID     int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// Template describes what a question for a concept should test.
// MisconceptionPatterns is index-aligned to distractor positions.
type Template struct {
	ID                    int64
	Slug                  string
	ConceptID             int64
	Intent                string
	LearningObjective     string
	QuestionStyle         string
	TargetDifficulty      float64
	CorrectReasoning      string
	MisconceptionPatterns []string
	AnswerFormat          string
	CreatedAt             time.Time
}

// Question is a concrete multiple-choice item tied to one template.
type Question struct {
	ID            int64
	TemplateID    int64
	Text          string
	Options       []string
	CorrectOption int
	Explanation   string

	// OptionMisconceptions optionally tags each option with the
	// misconception it targets; empty entries mean no tag.
	OptionMisconceptions []string

	// Discrimination and Guessing override the IRT defaults when set.
	Discrimination *float64
	Guessing       *float64

	Generated bool
	CreatedAt time.Time
}

// Response is a learner's graded answer. A learner has at most one
// response per question.
type Response struct {
	ID             int64
	LearnerID      int64
	SessionID      int64 // 0 when answered outside a session
	QuestionID     int64
	TemplateID     int64
	ConceptID      int64
	SelectedOption int
	Correct        bool
	ResponseTime   float64 // seconds
	Misconception  string  // empty when none detected
	CreatedAt      time.Time
}

// Session is a practice run for one topic.
type Session struct {
	ID        int64
	LearnerID int64
	SubjectID int64
	TopicID   int64
	StartTime time.Time
	EndTime   *time.Time
	Attempted int
	Correct   int
}

// Active reports whether the session has not been ended.
func (s *Session) Active() bool {
	return s.EndTime == nil
}

// BanditStats are the accumulated Beta weights of a (learner, template) arm.
type BanditStats struct {
	Success float64
	Failure float64
}

// ItemHistory is one past response joined with its item parameters.
// TemplateDifficulty is on the authoring [0,1] scale.
type ItemHistory struct {
	Correct            bool
	TemplateDifficulty float64
	Discrimination     *float64
	Guessing           *float64
}

// InsertOutcome reports whether an idempotent insert wrote a new row.
type InsertOutcome int

const (
	// Inserted means the row was written.
	Inserted InsertOutcome = iota
	// Duplicate means an equivalent row already existed and nothing was written.
	Duplicate
)

func (o InsertOutcome) String() string {
	if o == Duplicate {
		return "duplicate"
	}
	return "inserted"
}
