package catalog

import (
	"fmt"
	"strings"
)

// Validate performs all structural checks and returns one error listing
// every problem found, or nil.
func Validate(f *File) error {
	var errs []string

	if len(f.Subjects) == 0 {
		errs = append(errs, "no subjects defined")
	}
	for _, s := range f.Subjects {
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, "subject with empty name")
		}
		for _, t := range s.Topics {
			if strings.TrimSpace(t.Name) == "" {
				errs = append(errs, fmt.Sprintf("subject %q: topic with empty name", s.Name))
			}
		}
	}

	concepts := f.Concepts()
	keys := make(map[string]bool, len(concepts))
	slugs := make(map[string]bool)
	for _, c := range concepts {
		if c.Key == "" {
			errs = append(errs, fmt.Sprintf("concept %q has no key", c.Name))
			continue
		}
		if keys[c.Key] {
			errs = append(errs, fmt.Sprintf("duplicate concept key: %q", c.Key))
		}
		keys[c.Key] = true
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, fmt.Sprintf("concept %q has no name", c.Key))
		}

		for _, t := range c.Templates {
			if t.Slug == "" {
				errs = append(errs, fmt.Sprintf("concept %q: template without slug", c.Key))
				continue
			}
			if slugs[t.Slug] {
				errs = append(errs, fmt.Sprintf("duplicate template slug: %q", t.Slug))
			}
			slugs[t.Slug] = true
			errs = append(errs, validateTemplate(t)...)
		}
	}

	for _, c := range concepts {
		for _, p := range c.Prerequisites {
			if p == c.Key {
				errs = append(errs, fmt.Sprintf("concept %q lists itself as a prerequisite", c.Key))
			} else if !keys[p] {
				errs = append(errs, fmt.Sprintf("concept %q references nonexistent prerequisite %q", c.Key, p))
			}
		}
	}

	if cyc := cycleMembers(concepts, keys); len(cyc) > 0 {
		errs = append(errs, fmt.Sprintf("cycle detected involving concepts: %s", strings.Join(cyc, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func validateTemplate(t Template) []string {
	var errs []string
	prefix := fmt.Sprintf("template %q", t.Slug)
	if t.Difficulty < 0 || t.Difficulty > 1 {
		errs = append(errs, fmt.Sprintf("%s: difficulty must be in [0, 1], got %g", prefix, t.Difficulty))
	}
	if strings.TrimSpace(t.LearningObjective) == "" {
		errs = append(errs, fmt.Sprintf("%s: learning_objective is required", prefix))
	}
	for i, q := range t.Questions {
		qp := fmt.Sprintf("%s question %d", prefix, i)
		if strings.TrimSpace(q.Text) == "" {
			errs = append(errs, fmt.Sprintf("%s: text is required", qp))
		}
		if len(q.Options) < 2 {
			errs = append(errs, fmt.Sprintf("%s: at least 2 options required, got %d", qp, len(q.Options)))
		}
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			errs = append(errs, fmt.Sprintf("%s: correct must index an option, got %d", qp, q.Correct))
		}
		if len(q.OptionMisconceptions) > 0 && len(q.OptionMisconceptions) != len(q.Options) {
			errs = append(errs, fmt.Sprintf("%s: option_misconceptions has %d entries for %d options",
				qp, len(q.OptionMisconceptions), len(q.Options)))
		}
		if q.Guessing != nil && (*q.Guessing < 0 || *q.Guessing >= 1) {
			errs = append(errs, fmt.Sprintf("%s: guessing must be in [0, 1)", qp))
		}
		if q.Discrimination != nil && *q.Discrimination <= 0 {
			errs = append(errs, fmt.Sprintf("%s: discrimination must be > 0", qp))
		}
	}
	return errs
}

// cycleMembers runs Kahn's algorithm over known prerequisite edges and
// returns the keys left with a positive in-degree.
func cycleMembers(concepts []Concept, keys map[string]bool) []string {
	inDegree := make(map[string]int, len(concepts))
	dependents := make(map[string][]string)
	for _, c := range concepts {
		if c.Key == "" {
			continue
		}
		for _, p := range c.Prerequisites {
			if !keys[p] || p == c.Key {
				continue
			}
			inDegree[c.Key]++
			dependents[p] = append(dependents[p], c.Key)
		}
	}

	var queue []string
	for _, c := range concepts {
		if c.Key != "" && inDegree[c.Key] == 0 {
			queue = append(queue, c.Key)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	var cyc []string
	seen := make(map[string]bool)
	for _, c := range concepts {
		if inDegree[c.Key] > 0 && !seen[c.Key] {
			seen[c.Key] = true
			cyc = append(cyc, c.Key)
		}
	}
	return cyc
}
