package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/quizadapt/internal/adaptive"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// classify maps an engine error to a status and a stable error code.
func classify(err error) (int, string) {
	var (
		nf *adaptive.NotFoundError
		ve *adaptive.ValidationError
		ue *adaptive.UpstreamError
	)
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, adaptive.ErrSessionOwnership):
		return http.StatusForbidden, "session_forbidden"
	case errors.Is(err, adaptive.ErrSessionEnded):
		return http.StatusConflict, "session_ended"
	case errors.Is(err, adaptive.ErrNoTemplates):
		return http.StatusBadRequest, "no_templates"
	case errors.Is(err, adaptive.ErrNoContent):
		return http.StatusBadRequest, "no_content"
	case errors.As(err, &ve):
		return http.StatusBadRequest, "invalid_request"
	case errors.As(err, &ue) && errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "generation_timeout"
	case errors.As(err, &ue):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal"
}

func (h *handler) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "request_id", requestID(c), "error", err)
		respondError(c, status, code, errors.New("internal server error"))
		return
	}
	var ue *adaptive.UpstreamError
	if errors.As(err, &ue) && ue.Retryable {
		c.Header("Retry-After", "1")
	}
	respondError(c, status, code, err)
}
