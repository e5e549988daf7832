package problemgen

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// questionSchemaJSON describes a generated payload; %[1]d is the option
// count and %[2]d the highest valid correct_option.
const questionSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["question_text", "options", "correct_option", "explanation"],
  "properties": {
    "question_text": {"type": "string", "minLength": 1},
    "options": {
      "type": "array",
      "items": {"type": "string"},
      "minItems": %[1]d,
      "maxItems": %[1]d
    },
    "correct_option": {"type": "integer", "minimum": 0, "maximum": %[2]d},
    "explanation": {"type": ["string", "object"]},
    "option_misconceptions": {
      "type": "array",
      "items": {"type": ["string", "null"]}
    }
  }
}`

// schemaCache holds compiled schemas keyed by option count.
var schemaCache sync.Map // map[int]*jsonschema.Schema

func questionSchema(optionCount int) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(optionCount); ok {
		return cached.(*jsonschema.Schema), nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(fmt.Sprintf(questionSchemaJSON, optionCount, optionCount-1)))
	if err != nil {
		return nil, fmt.Errorf("parse question schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://question-%d.json", optionCount)
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile question schema: %w", err)
	}

	schemaCache.Store(optionCount, compiled)
	return compiled, nil
}
