package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizadapt/internal/adaptive"
)

var _ adaptive.Recorder = (*Metrics)(nil)

func TestRecorder(t *testing.T) {
	m := New()
	m.SessionStarted(false)
	m.SessionStarted(true)
	m.SessionStarted(true)
	m.SessionEnded()
	m.QuestionServed("cache")
	m.QuestionServed("generated")
	m.ResponseGraded(true, false)
	m.ResponseGraded(false, true)
	m.GenerationFinished("ok", 1500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessions.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsEnded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.questionsServed.WithLabelValues("generated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.responses.WithLabelValues("false", "true")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.generation))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/v1/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/items/42", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/v1/items/:id", "204")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "quizadapt_http_requests_total"), "metrics body missing request counter")
	assert.Contains(t, body, "go_goroutines")
}
