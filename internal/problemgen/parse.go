package problemgen

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ParseError reports model output that could not be turned into a question.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse generated question: %s", e.Reason)
}

var (
	fencedObject = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(\\{.*?\\})\\s*```")
	optionPrefix = regexp.MustCompile(`^[A-Z][:)]\s*`)
)

// ParseQuestion extracts and validates a question payload from raw model
// text. Prose or code fences around the object and raw control characters
// inside string values are tolerated; anything structurally wrong is a
// *ParseError.
func ParseQuestion(raw string, optionCount int) (*Question, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, &ParseError{Reason: "no JSON object found", Raw: raw}
	}
	payload = strings.ReplaceAll(payload, "**", "")

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(payload))
	if err != nil {
		doc, err = jsonschema.UnmarshalJSON(strings.NewReader(escapeControlChars(payload)))
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err), Raw: raw}
		}
	}

	sch, err := questionSchema(optionCount)
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("schema: %v", err), Raw: raw}
	}

	data := doc.(map[string]any)

	q := &Question{
		Text: strings.TrimSpace(data["question_text"].(string)),
	}
	for _, o := range data["options"].([]any) {
		q.Options = append(q.Options, cleanOption(o.(string)))
	}

	idx, err := toInt(data["correct_option"])
	if err != nil {
		return nil, &ParseError{Reason: err.Error(), Raw: raw}
	}
	q.CorrectOption = idx

	q.Explanation = strings.TrimSpace(flattenExplanation(data["explanation"]))
	if q.Explanation == "" {
		return nil, &ParseError{Reason: "explanation is empty", Raw: raw}
	}

	if tags, ok := data["option_misconceptions"].([]any); ok && len(tags) == len(q.Options) {
		q.OptionMisconceptions = make([]string, len(tags))
		for i, t := range tags {
			if s, ok := t.(string); ok {
				q.OptionMisconceptions[i] = strings.TrimSpace(s)
			}
		}
	}

	return q, nil
}

// extractJSON returns the most likely JSON object in text: a fenced block
// holding an object, then the whole text if it is an object, then the
// first '{' through the last '}'.
func extractJSON(text string) string {
	if m := fencedObject.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return ""
}

// escapeControlChars escapes raw control characters that appear inside
// JSON string literals, leaving structural whitespace alone.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped := false, false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
			b.WriteRune(r)
		case r == '\\' && inString:
			escaped = true
			b.WriteRune(r)
		case r == '"':
			inString = !inString
			b.WriteRune(r)
		case inString && r < 0x20:
			switch r {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				fmt.Fprintf(&b, `\u%04x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cleanOption(s string) string {
	return strings.TrimSpace(optionPrefix.ReplaceAllString(strings.TrimSpace(s), ""))
}

// flattenExplanation turns a structured explanation into plain text. A
// correct_answer_rationale.explanation_text field wins; otherwise all
// string leaves are joined in key order.
func flattenExplanation(v any) string {
	switch e := v.(type) {
	case string:
		return e
	case map[string]any:
		if r, ok := e["correct_answer_rationale"].(map[string]any); ok {
			if s, ok := r["explanation_text"].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
		var parts []string
		collectStrings(e, &parts)
		return strings.Join(parts, " ")
	}
	return ""
}

func collectStrings(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			*out = append(*out, s)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(t[k], out)
		}
	case []any:
		for _, item := range t {
			collectStrings(item, out)
		}
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("correct_option %q is not a number", n)
		}
		return int(f), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("correct_option has type %T", v)
}
