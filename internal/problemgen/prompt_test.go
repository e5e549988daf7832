package problemgen

import (
	"strings"
	"testing"
)

func testInput() GenerateInput {
	return GenerateInput{
		Blueprint: Blueprint{
			ID:                7,
			Intent:            "Check understanding of slice aliasing",
			LearningObjective: "Predict the effect of append on shared backing arrays",
			Style:             "code-reading",
			TargetDifficulty:  0.5,
			CorrectReasoning:  "Recognizes that append may reallocate",
			Misconceptions:    []string{"append always copies", "slices are values"},
		},
		Concept: Concept{ID: 3, Name: "Slices", Description: "Go slice semantics"},
		Learner: LearnerHints{Ability: 0, RecentAccuracy: 0.5, AvgResponseTime: 30},
	}
}

func TestBuildUserMessage_Sections(t *testing.T) {
	msg := buildUserMessage(testInput(), TierIntermediate, DefaultConfig())

	for _, want := range []string{
		"Name: Slices",
		"Description: Go slice semantics",
		"Intent: Check understanding of slice aliasing",
		"Target difficulty: 0.50",
		"Style: code-reading",
		"Recognizes that append may reallocate",
		"1. append always copies\n2. slices are values",
		"LEARNER (INTERMEDIATE)",
		"Recent accuracy: 50%",
		"Average response time: 30.0s",
		tierGuidance[TierIntermediate],
		"Already asked (do not repeat):\nNone",
		"Exactly 4 options",
		`"correct_option": <0-based index, 0 to 3>`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildUserMessage_Defaults(t *testing.T) {
	input := GenerateInput{Concept: Concept{Name: "Channels"}}
	msg := buildUserMessage(input, TierBeginner, DefaultConfig())

	if !strings.Contains(msg, "Intent: Test understanding of the concept") {
		t.Error("expected default intent")
	}
	if !strings.Contains(msg, "None listed. Write plausible distractors") {
		t.Error("expected misconception fallback")
	}
	if !strings.Contains(msg, tierGuidance[TierBeginner]) {
		t.Error("expected beginner guidance")
	}
}

func TestBuildUserMessage_PriorQuestionsCapped(t *testing.T) {
	input := testInput()
	for i := range 8 {
		input.PriorQuestions = append(input.PriorQuestions, "prior "+string(rune('a'+i)))
	}
	msg := buildUserMessage(input, TierIntermediate, DefaultConfig())

	if strings.Contains(msg, "prior a") {
		t.Error("oldest prior question should be dropped")
	}
	if !strings.Contains(msg, "5. prior h") {
		t.Error("expected the five most recent prior questions")
	}
}

func TestTierFor(t *testing.T) {
	th := DefaultTierThresholds()
	tests := []struct {
		ability, accuracy float64
		want              Tier
	}{
		{0, 0.5, TierIntermediate},
		{-1.5, 0.9, TierBeginner},
		{2, 0.4, TierBeginner},
		{1.5, 0.9, TierAdvanced},
		{1.0, 0.9, TierIntermediate}, // bounds are strict
		{1.5, 0.8, TierIntermediate},
		{-1.0, 0.5, TierIntermediate},
	}
	for _, tt := range tests {
		if got := th.TierFor(tt.ability, tt.accuracy); got != tt.want {
			t.Errorf("TierFor(%v, %v) = %q, want %q", tt.ability, tt.accuracy, got, tt.want)
		}
	}
}
