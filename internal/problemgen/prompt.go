package problemgen

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are an expert educational content creator."

var tierGuidance = map[Tier]string{
	TierBeginner:     "Use simple language, direct questions, and obvious distractors. Avoid trick wording.",
	TierIntermediate: "Balance clarity with challenge. Include plausible but clearly incorrect distractors.",
	TierAdvanced:     "Use sophisticated scenarios, subtle distractors, and require multi-step reasoning.",
}

// buildUserMessage renders the generation prompt for one blueprint.
func buildUserMessage(input GenerateInput, tier Tier, cfg Config) string {
	bp := input.Blueprint
	n := cfg.OptionCount

	var b strings.Builder

	b.WriteString("Write one multiple-choice assessment question.\n\n")

	b.WriteString("CONCEPT\n")
	fmt.Fprintf(&b, "Name: %s\n", input.Concept.Name)
	fmt.Fprintf(&b, "Description: %s\n", orDefault(input.Concept.Description, "Not provided"))

	b.WriteString("\nOBJECTIVES\n")
	fmt.Fprintf(&b, "Intent: %s\n", orDefault(bp.Intent, "Test understanding of the concept"))
	fmt.Fprintf(&b, "Learning objective: %s\n", orDefault(bp.LearningObjective, "Not provided"))
	fmt.Fprintf(&b, "Target difficulty: %.2f (0 = easy, 1 = hard)\n", bp.TargetDifficulty)
	fmt.Fprintf(&b, "Style: %s\n", orDefault(bp.Style, "conceptual"))

	b.WriteString("\nA CORRECT ANSWER SHOWS\n")
	b.WriteString(orDefault(bp.CorrectReasoning, "Accurate understanding of the concept"))
	b.WriteString("\n")

	b.WriteString("\nMISCONCEPTIONS (distractor i targets misconception i)\n")
	if len(bp.Misconceptions) == 0 {
		b.WriteString("None listed. Write plausible distractors from the concept.\n")
	} else {
		for i, m := range bp.Misconceptions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, m)
		}
	}

	fmt.Fprintf(&b, "\nLEARNER (%s)\n", strings.ToUpper(string(tier)))
	fmt.Fprintf(&b, "Ability: %.2f on a -3 to +3 scale\n", input.Learner.Ability)
	fmt.Fprintf(&b, "Recent accuracy: %.0f%%\n", input.Learner.RecentAccuracy*100)
	fmt.Fprintf(&b, "Average response time: %.1fs\n", input.Learner.AvgResponseTime)
	fmt.Fprintf(&b, "Guidance: %s\n", tierGuidance[tier])

	b.WriteString("\nAlready asked (do not repeat):\n")
	b.WriteString(buildDedup(input.PriorQuestions, cfg.MaxPriorQuestions))
	b.WriteString("\n")

	b.WriteString("\nREQUIREMENTS\n")
	b.WriteString("- One clear, unambiguous stem.\n")
	fmt.Fprintf(&b, "- Exactly %d options with exactly one correct.\n", n)
	b.WriteString("- Distractors are tempting to a learner holding the listed misconceptions and match the correct option in length and tone.\n")
	b.WriteString("- No \"all of the above\" or \"none of the above\".\n")
	b.WriteString("- A short explanation (two or three sentences) of why the correct option is right.\n")

	b.WriteString("\nRespond with only a JSON object of this shape:\n")
	b.WriteString("{\n")
	b.WriteString(`  "question_text": "the stem",` + "\n")
	fmt.Fprintf(&b, "  \"options\": [%s],\n", optionPlaceholders(n))
	fmt.Fprintf(&b, "  \"correct_option\": <0-based index, 0 to %d>,\n", n-1)
	b.WriteString(`  "explanation": "plain string",` + "\n")
	fmt.Fprintf(&b, "  \"option_misconceptions\": [%d strings, the misconception each option targets, empty string for the correct one]\n", n)
	b.WriteString("}\n")
	b.WriteString("Do not prefix options with letters. Do not use markdown. The explanation must be a string, not an object.\n")

	return b.String()
}

func optionPlaceholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%q", fmt.Sprintf("option %d", i+1))
	}
	return strings.Join(parts, ", ")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
