package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizadapt/internal/catalog"
	"github.com/abhisek/quizadapt/internal/llm"
	"github.com/abhisek/quizadapt/internal/logger"
	"github.com/abhisek/quizadapt/internal/problemgen"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview LLM-generated questions for a catalog template (no database)",
	Long: `Generate and interactively answer questions for one template.

This is a stateless developer tool: nothing is stored and no learner
state changes. Useful for evaluating prompt quality on new templates.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringP("file", "f", "", "Catalog YAML file (default: built-in sample)")
	previewCmd.Flags().String("template", "", "Template slug (required)")
	previewCmd.Flags().Int("count", 3, "Number of questions to generate")
	previewCmd.Flags().Float64("ability", 0, "Learner ability on the logit scale")
	previewCmd.Flags().Float64("accuracy", 0.5, "Learner recent accuracy")
	_ = previewCmd.MarkFlagRequired("template")
}

func runPreview(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	slug, _ := cmd.Flags().GetString("template")
	count, _ := cmd.Flags().GetInt("count")
	ability, _ := cmd.Flags().GetFloat64("ability")
	accuracy, _ := cmd.Flags().GetFloat64("accuracy")

	f, err := readCatalog(path)
	if err != nil {
		return err
	}
	concept, tmpl, ok := findTemplate(f, slug)
	if !ok {
		return fmt.Errorf("template %q not found", slug)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.LLM.Provider == "mock" {
		return fmt.Errorf("no LLM provider configured; set one of the provider API keys")
	}

	// No event repo: preview calls are not recorded.
	ctx := cmd.Context()
	provider, err := llm.NewProvider(ctx, cfg.LLM, nil, logger.Nop())
	if err != nil {
		return fmt.Errorf("LLM provider: %w", err)
	}
	gen := problemgen.New(problemgen.FromProvider(provider, cfg.LLM.MaxTokens, cfg.LLM.Temperature), cfg.Problemgen, nil)
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Printf("Template: %s (%s, difficulty %.2f)\n", tmpl.Slug, concept.Name, tmpl.Difficulty)
	fmt.Printf("Generating %d questions with %s...\n\n", count, provider.ModelID())

	var correct, answered int
	var prior []string
	for i := 1; i <= count; i++ {
		q, err := gen.Generate(ctx, problemgen.GenerateInput{
			Blueprint: problemgen.Blueprint{
				Intent:            tmpl.Intent,
				LearningObjective: tmpl.LearningObjective,
				Style:             tmpl.Style,
				TargetDifficulty:  tmpl.Difficulty,
				CorrectReasoning:  tmpl.CorrectReasoning,
				Misconceptions:    tmpl.Misconceptions,
			},
			Concept:        problemgen.Concept{Name: concept.Name, Description: concept.Description},
			Learner:        problemgen.LearnerHints{Ability: ability, RecentAccuracy: accuracy},
			PriorQuestions: prior,
		})
		if err != nil {
			fmt.Printf("Question %d: generation failed: %v\n\n", i, err)
			continue
		}
		prior = append(prior, q.Text)

		fmt.Printf("── Question %d/%d (%s) ──\n", i, count, q.Tier)
		fmt.Println(q.Text)
		for j, o := range q.Options {
			fmt.Printf("  %d) %s\n", j+1, o)
		}

		choice, quit, ok := readChoice(scanner, len(q.Options))
		if !ok || quit {
			break
		}
		answered++
		if choice == q.CorrectOption {
			correct++
			fmt.Println("\033[32m✓ Correct!\033[0m")
		} else {
			fmt.Printf("\033[31m✗ Wrong.\033[0m Answer: %d) %s\n", q.CorrectOption+1, q.Options[q.CorrectOption])
			if choice < len(q.OptionMisconceptions) && q.OptionMisconceptions[choice] != "" {
				fmt.Printf("Targets misconception: %s\n", q.OptionMisconceptions[choice])
			}
		}
		if q.Explanation != "" {
			fmt.Printf("Explanation: %s\n", q.Explanation)
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("─", 40))
	fmt.Printf("Score: %d/%d\n", correct, answered)
	return nil
}

func findTemplate(f *catalog.File, slug string) (catalog.Concept, catalog.Template, bool) {
	for _, c := range f.Concepts() {
		for _, t := range c.Templates {
			if t.Slug == slug {
				return c, t, true
			}
		}
	}
	return catalog.Concept{}, catalog.Template{}, false
}
