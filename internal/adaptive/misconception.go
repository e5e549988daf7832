package adaptive

import "github.com/abhisek/quizadapt/internal/store"

// DetectMisconception names the misconception behind a wrong answer. An
// explicit per-option tag on the question wins; otherwise the template's
// pattern list is indexed by the selected position. Correct answers, out
// of range positions and blank tags yield "".
func DetectMisconception(q *store.Question, t *store.Template, selected int, correct bool) string {
	if correct || selected < 0 {
		return ""
	}
	if q != nil && len(q.OptionMisconceptions) == len(q.Options) && selected < len(q.OptionMisconceptions) {
		if tag := q.OptionMisconceptions[selected]; tag != "" {
			return tag
		}
	}
	if t == nil || selected >= len(t.MisconceptionPatterns) {
		return ""
	}
	return t.MisconceptionPatterns[selected]
}
