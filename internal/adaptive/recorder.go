package adaptive

import "time"

// Recorder receives engine events for metrics. internal/metrics provides
// the Prometheus implementation.
type Recorder interface {
	SessionStarted(resumed bool)
	SessionEnded()
	QuestionServed(source string)
	ResponseGraded(correct, duplicate bool)
	GenerationFinished(outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted(bool) {}
func (nopRecorder) SessionEnded() {}
func (nopRecorder) QuestionServed(string) {}
func (nopRecorder) ResponseGraded(bool, bool) {}
func (nopRecorder) GenerationFinished(string, time.Duration) {}
