package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
)

func encodeStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeStrings(s string) []string {
	var out []string
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// contentHash identifies a question by template and visible content so
// that saving the same generated payload twice is idempotent.
func contentHash(q *Question) string {
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(q.TemplateID, 10)))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(q.Text)))
	for _, o := range q.Options {
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(o)))
	}
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(q.CorrectOption)))
	return hex.EncodeToString(h.Sum(nil))
}

// ids converts identifiers into builder arguments.
func ids(v []int64) []any {
	out := make([]any, len(v))
	for i, id := range v {
		out[i] = id
	}
	return out
}
