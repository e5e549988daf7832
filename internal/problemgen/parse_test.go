package problemgen

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanPayload = `{
  "question_text": "What does a hash map trade for O(1) lookups?",
  "options": ["Memory", "Ordering", "Type safety", "Concurrency"],
  "correct_option": 0,
  "explanation": "Hash maps spend extra memory on buckets to get constant-time lookups."
}`

func TestParseQuestion_Clean(t *testing.T) {
	q, err := ParseQuestion(cleanPayload, 4)
	require.NoError(t, err)
	assert.Equal(t, "What does a hash map trade for O(1) lookups?", q.Text)
	assert.Equal(t, []string{"Memory", "Ordering", "Type safety", "Concurrency"}, q.Options)
	assert.Equal(t, 0, q.CorrectOption)
	assert.Contains(t, q.Explanation, "constant-time")
	assert.Empty(t, q.OptionMisconceptions)
}

func TestParseQuestion_ExtractionStrategies(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"fenced json", "Here you go:\n```json\n" + cleanPayload + "\n```\nGood luck!"},
		{"fenced bare", "```\n" + cleanPayload + "\n```"},
		{"whole object with padding", "\n\n  " + cleanPayload + "  \n"},
		{"prose around object", "<think>ok, the learner is new</think> Sure! " + cleanPayload + " Let me know."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuestion(tt.raw, 4)
			require.NoError(t, err)
			assert.Len(t, q.Options, 4)
			assert.Equal(t, 0, q.CorrectOption)
		})
	}
}

func TestParseQuestion_ControlCharsInStrings(t *testing.T) {
	raw := "{\"question_text\": \"Line one\nLine two\", \"options\": [\"a\", \"b\", \"c\", \"d\"], " +
		"\"correct_option\": 2, \"explanation\": \"Tabbed\there\"}"
	q, err := ParseQuestion(raw, 4)
	require.NoError(t, err)
	assert.Equal(t, "Line one\nLine two", q.Text)
	assert.Equal(t, "Tabbed\there", q.Explanation)
	assert.Equal(t, 2, q.CorrectOption)
}

func TestParseQuestion_CleansOptionsAndMarkdown(t *testing.T) {
	raw := `{"question_text": "Which is **prime**?", "options": ["A) 4", "B: 6", "C)9", "D) 7"],
		"correct_option": 3, "explanation": "7 has no divisors other than 1 and itself."}`
	q, err := ParseQuestion(raw, 4)
	require.NoError(t, err)
	assert.Equal(t, "Which is prime?", q.Text)
	assert.Equal(t, []string{"4", "6", "9", "7"}, q.Options)
}

func TestParseQuestion_FlattensObjectExplanation(t *testing.T) {
	t.Run("rationale text", func(t *testing.T) {
		raw := `{"question_text": "Q?", "options": ["a","b","c","d"], "correct_option": 1,
			"explanation": {"correct_answer_rationale": {"explanation_text": "Because b."}, "distractors": {"a": "no"}}}`
		q, err := ParseQuestion(raw, 4)
		require.NoError(t, err)
		assert.Equal(t, "Because b.", q.Explanation)
	})

	t.Run("string leaves", func(t *testing.T) {
		raw := `{"question_text": "Q?", "options": ["a","b","c","d"], "correct_option": 1,
			"explanation": {"why": "B fits.", "also": {"note": "A is a trap."}}}`
		q, err := ParseQuestion(raw, 4)
		require.NoError(t, err)
		assert.Equal(t, "A is a trap. B fits.", q.Explanation)
	})
}

func TestParseQuestion_OptionMisconceptions(t *testing.T) {
	raw := `{"question_text": "Q?", "options": ["a","b","c","d"], "correct_option": 0,
		"explanation": "x", "option_misconceptions": ["", "off-by-one", null, "sign error"]}`
	q, err := ParseQuestion(raw, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "off-by-one", "", "sign error"}, q.OptionMisconceptions)

	// A misaligned list is ignored rather than guessed at.
	raw = strings.Replace(raw, `, "sign error"]`, `]`, 1)
	q, err = ParseQuestion(raw, 4)
	require.NoError(t, err)
	assert.Empty(t, q.OptionMisconceptions)
}

func TestParseQuestion_HardFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no object", "I cannot help with that."},
		{"truncated", `{"question_text": "Q?", "options": ["a","b"`},
		{"three options", `{"question_text": "Q?", "options": ["a","b","c"], "correct_option": 0, "explanation": "x"}`},
		{"index out of range", `{"question_text": "Q?", "options": ["a","b","c","d"], "correct_option": 4, "explanation": "x"}`},
		{"negative index", `{"question_text": "Q?", "options": ["a","b","c","d"], "correct_option": -1, "explanation": "x"}`},
		{"missing explanation", `{"question_text": "Q?", "options": ["a","b","c","d"], "correct_option": 0}`},
		{"empty stem", `{"question_text": "", "options": ["a","b","c","d"], "correct_option": 0, "explanation": "x"}`},
		{"empty explanation object", `{"question_text": "Q?", "options": ["a","b","c","d"], "correct_option": 0, "explanation": {}}`},
		{"index as string", `{"question_text": "Q?", "options": ["a","b","c","d"], "correct_option": "1", "explanation": "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuestion(tt.raw, 4)
			require.Error(t, err)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error = %T (%v), want *ParseError", err, err)
			}
		})
	}
}

func TestParseQuestion_OptionCountIsConfigurable(t *testing.T) {
	raw := `{"question_text": "True or false: Go has generics.", "options": ["True", "False"], "correct_option": 0, "explanation": "Since 1.18."}`
	_, err := ParseQuestion(raw, 2)
	require.NoError(t, err)

	_, err = ParseQuestion(raw, 4)
	require.Error(t, err)
}

func TestEscapeControlChars(t *testing.T) {
	in := "{\"a\": \"x\ny\",\n \"b\": \"q\\\"\tz\"}"
	want := "{\"a\": \"x\\ny\",\n \"b\": \"q\\\"\\tz\"}"
	if got := escapeControlChars(in); got != want {
		t.Errorf("escapeControlChars() = %q, want %q", got, want)
	}
}
