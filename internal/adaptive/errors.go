package adaptive

import (
	"errors"
	"fmt"
)

var (
	ErrNoTemplates      = errors.New("no candidate templates for topic")
	ErrNoContent        = errors.New("no question content available")
	ErrSessionEnded     = errors.New("session has ended")
	ErrSessionOwnership = errors.New("session belongs to another learner")
)

// NotFoundError reports an unknown session, question, template or concept.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ValidationError reports a request or content problem the caller must
// fix. Err, when set, is one of the sentinel errors above.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil && e.Reason == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UpstreamError reports a failure of the content generator: a timeout,
// a provider error or an unusable payload. No state was written.
type UpstreamError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func invalid(err error) error {
	return &ValidationError{Err: err}
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func notFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}
