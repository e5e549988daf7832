package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/quizadapt/internal/adaptive"
	"github.com/abhisek/quizadapt/internal/logger"
)

var errTooManyRequests = errors.New("too many requests")

// Engine is the subset of *adaptive.Engine the API serves.
type Engine interface {
	StartSession(ctx context.Context, learnerID, subjectID, topicID int64) (*adaptive.SessionInfo, error)
	NextQuestion(ctx context.Context, learnerID, topicID int64) (*adaptive.NextQuestion, error)
	NextInSession(ctx context.Context, learnerID, sessionID int64) (*adaptive.NextQuestion, error)
	ProcessResponse(ctx context.Context, in adaptive.ResponseInput) (*adaptive.Feedback, error)
	EndSession(ctx context.Context, learnerID, sessionID int64) (*adaptive.SessionSummary, error)
	LearnerProfile(ctx context.Context, learnerID int64) (*adaptive.Profile, error)
}

type handler struct {
	engine Engine
	health func(context.Context) error
	log    *logger.Logger
}

type startSessionRequest struct {
	SubjectID int64 `json:"subject_id" binding:"required,gt=0"`
	TopicID   int64 `json:"topic_id" binding:"required,gt=0"`
}

type submitResponseRequest struct {
	QuestionID     int64    `json:"question_id" binding:"required,gt=0"`
	SelectedOption *int     `json:"selected_option" binding:"required"`
	ResponseTime   *float64 `json:"response_time" binding:"required"`
	SessionID      int64    `json:"session_id"`
}

// questionView is a served question without its answer key.
type questionView struct {
	QuestionID        int64     `json:"question_id"`
	TemplateID        int64     `json:"template_id"`
	ConceptID         int64     `json:"concept_id"`
	Text              string    `json:"question_text"`
	Options           []string  `json:"options"`
	Difficulty        float64   `json:"difficulty"`
	LearningObjective string    `json:"learning_objective"`
	SessionID         int64     `json:"session_id,omitempty"`
	ServedAt          time.Time `json:"served_at"`
}

func viewOf(q *adaptive.NextQuestion) questionView {
	return questionView{
		QuestionID:        q.QuestionID,
		TemplateID:        q.TemplateID,
		ConceptID:         q.ConceptID,
		Text:              q.Text,
		Options:           q.Options,
		Difficulty:        q.Difficulty,
		LearningObjective: q.LearningObjective,
		SessionID:         q.SessionID,
		ServedAt:          q.ServedAt,
	}
}

// POST /v1/sessions
func (h *handler) startSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	s, err := h.engine.StartSession(c.Request.Context(), learnerID(c), req.SubjectID, req.TopicID)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusCreated
	if s.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, s)
}

// GET /v1/sessions/:id/next
func (h *handler) nextInSession(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	q, err := h.engine.NextInSession(c.Request.Context(), learnerID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(q))
}

// GET /v1/topics/:id/next
func (h *handler) nextForTopic(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	q, err := h.engine.NextQuestion(c.Request.Context(), learnerID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(q))
}

// POST /v1/responses
func (h *handler) submitResponse(c *gin.Context) {
	var req submitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	fb, err := h.engine.ProcessResponse(c.Request.Context(), adaptive.ResponseInput{
		LearnerID:      learnerID(c),
		QuestionID:     req.QuestionID,
		SelectedOption: *req.SelectedOption,
		ResponseTime:   *req.ResponseTime,
		SessionID:      req.SessionID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, fb)
}

// POST /v1/sessions/:id/end
func (h *handler) endSession(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sum, err := h.engine.EndSession(c.Request.Context(), learnerID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// GET /v1/learners/me
func (h *handler) profile(c *gin.Context) {
	p, err := h.engine.LearnerProfile(c.Request.Context(), learnerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GET /healthz
func (h *handler) healthz(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			respondError(c, http.StatusServiceUnavailable, "unhealthy", err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_request", errors.New("id must be a positive integer"))
		return 0, false
	}
	return id, true
}
