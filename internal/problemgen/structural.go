package problemgen

import (
	"fmt"
	"strings"
)

// StructuralValidator checks text lengths and that no option is blank or
// repeated. Option count and index bounds are enforced by ParseQuestion.
type StructuralValidator struct {
	MaxQuestionChars    int
	MaxExplanationChars int
}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *Question, _ GenerateInput) *ValidationError {
	if strings.TrimSpace(q.Text) == "" {
		return v.fail("question_text is empty")
	}
	if v.MaxQuestionChars > 0 && len(q.Text) > v.MaxQuestionChars {
		return v.fail(fmt.Sprintf("question_text exceeds %d characters", v.MaxQuestionChars))
	}
	if strings.TrimSpace(q.Explanation) == "" {
		return v.fail("explanation is empty")
	}
	if v.MaxExplanationChars > 0 && len(q.Explanation) > v.MaxExplanationChars {
		return v.fail(fmt.Sprintf("explanation exceeds %d characters", v.MaxExplanationChars))
	}

	seen := make(map[string]int, len(q.Options))
	for i, opt := range q.Options {
		key := normalize(opt)
		if key == "" {
			return v.fail(fmt.Sprintf("option %d is empty", i))
		}
		if j, ok := seen[key]; ok {
			return v.fail(fmt.Sprintf("options %d and %d are identical", j, i))
		}
		seen[key] = i
	}

	if n := len(q.OptionMisconceptions); n > 0 && n != len(q.Options) {
		return v.fail(fmt.Sprintf("option_misconceptions has %d entries for %d options", n, len(q.Options)))
	}
	return nil
}

func (v *StructuralValidator) fail(msg string) *ValidationError {
	return &ValidationError{Validator: v.Name(), Message: msg, Retryable: true}
}
