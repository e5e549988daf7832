// Package catalog loads authored subjects, concepts, templates and
// questions from YAML and seeds them into the store.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the root of a catalog document.
type File struct {
	Subjects []Subject `yaml:"subjects"`
}

type Subject struct {
	Name   string  `yaml:"name"`
	Topics []Topic `yaml:"topics"`
}

type Topic struct {
	Name     string    `yaml:"name"`
	Concepts []Concept `yaml:"concepts"`
}

// Concept is identified across the whole file by Key. Prerequisites list
// the keys of concepts that must be learned first.
type Concept struct {
	Key           string     `yaml:"key"`
	Name          string     `yaml:"name"`
	Description   string     `yaml:"description"`
	Prerequisites []string   `yaml:"prerequisites"`
	Templates     []Template `yaml:"templates"`
}

// Template mirrors store.Template. Misconceptions are aligned to the
// distractor positions of the questions generated from it.
type Template struct {
	Slug              string     `yaml:"slug"`
	Intent            string     `yaml:"intent"`
	LearningObjective string     `yaml:"learning_objective"`
	Style             string     `yaml:"style"`
	Difficulty        float64    `yaml:"difficulty"`
	CorrectReasoning  string     `yaml:"correct_reasoning"`
	Misconceptions    []string   `yaml:"misconceptions"`
	Questions         []Question `yaml:"questions"`
}

// Question is a pre-authored item served before anything is generated.
type Question struct {
	Text                 string   `yaml:"text"`
	Options              []string `yaml:"options"`
	Correct              int      `yaml:"correct"`
	Explanation          string   `yaml:"explanation"`
	OptionMisconceptions []string `yaml:"option_misconceptions"`
	Discrimination       *float64 `yaml:"discrimination"`
	Guessing             *float64 `yaml:"guessing"`
}

//go:embed sample.yaml
var sample []byte

// Sample returns the built-in starter catalog.
func Sample() (*File, error) {
	return Parse(bytes.NewReader(sample))
}

// Parse decodes and validates a catalog. Unknown fields are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and parses the catalog at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Concepts returns every concept in document order.
func (f *File) Concepts() []Concept {
	var out []Concept
	for _, s := range f.Subjects {
		for _, t := range s.Topics {
			out = append(out, t.Concepts...)
		}
	}
	return out
}
