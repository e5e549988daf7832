package adaptive

import (
	"time"

	"github.com/abhisek/quizadapt/internal/store"
)

// SessionInfo is returned by StartSession.
type SessionInfo struct {
	ID        int64     `json:"session_id"`
	LearnerID int64     `json:"learner_id"`
	SubjectID int64     `json:"subject_id"`
	TopicID   int64     `json:"topic_id"`
	StartTime time.Time `json:"start_time"`
	Attempted int       `json:"questions_attempted"`
	Correct   int       `json:"questions_correct"`
	Resumed   bool      `json:"resumed"`
}

// NextQuestion is a question ready to present.
type NextQuestion struct {
	QuestionID        int64     `json:"question_id"`
	TemplateID        int64     `json:"template_id"`
	ConceptID         int64     `json:"concept_id"`
	Text              string    `json:"question_text"`
	Options           []string  `json:"options"`
	CorrectOption     int       `json:"correct_option"`
	Explanation       string    `json:"explanation"`
	Difficulty        float64   `json:"difficulty"`
	LearningObjective string    `json:"learning_objective"`
	SessionID         int64     `json:"session_id,omitempty"`
	Generated         bool      `json:"generated"`
	ServedAt          time.Time `json:"served_at"`
}

// ResponseInput is one submitted answer. SessionID 0 means none.
type ResponseInput struct {
	LearnerID      int64
	QuestionID     int64
	SelectedOption int
	ResponseTime   float64 // seconds
	SessionID      int64
}

// Feedback is the graded result of a response.
type Feedback struct {
	Correct         bool    `json:"correct"`
	CorrectOption   int     `json:"correct_option"`
	Explanation     string  `json:"explanation"`
	UpdatedMastery  float64 `json:"updated_mastery"`
	GlobalAbility   float64 `json:"global_ability"`
	Misconception   string  `json:"misconception,omitempty"`
	SuggestedReview bool    `json:"suggested_review"`
	Duplicate       bool    `json:"duplicate"`
}

// SessionSummary is returned by EndSession.
type SessionSummary struct {
	ID        int64         `json:"session_id"`
	SubjectID int64         `json:"subject_id"`
	TopicID   int64         `json:"topic_id"`
	Attempted int           `json:"questions_attempted"`
	Correct   int           `json:"questions_correct"`
	Accuracy  float64       `json:"accuracy"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration_ns"`
}

// Profile is the learner's current model state.
type Profile struct {
	LearnerID     int64             `json:"learner_id"`
	GlobalAbility float64           `json:"global_ability"`
	Mastery       map[int64]float64 `json:"concept_mastery"`
}

func sessionInfo(s *store.Session, resumed bool) *SessionInfo {
	return &SessionInfo{
		ID:        s.ID,
		LearnerID: s.LearnerID,
		SubjectID: s.SubjectID,
		TopicID:   s.TopicID,
		StartTime: s.StartTime,
		Attempted: s.Attempted,
		Correct:   s.Correct,
		Resumed:   resumed,
	}
}

func summarize(s *store.Session) *SessionSummary {
	sum := &SessionSummary{
		ID:        s.ID,
		SubjectID: s.SubjectID,
		TopicID:   s.TopicID,
		Attempted: s.Attempted,
		Correct:   s.Correct,
		StartTime: s.StartTime,
	}
	if s.EndTime != nil {
		sum.EndTime = *s.EndTime
		sum.Duration = s.EndTime.Sub(s.StartTime)
	}
	if s.Attempted > 0 {
		sum.Accuracy = float64(s.Correct) / float64(s.Attempted)
	}
	return sum
}
