package llm

import "context"

// PurposeQuestionGen labels calls that generate quiz questions.
const PurposeQuestionGen = "question-gen"

type purposeKey struct{}

// WithPurpose labels the calls made with ctx in the event log and traces.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if p, _ := ctx.Value(purposeKey{}).(string); p != "" {
		return p
	}
	return "unknown"
}
