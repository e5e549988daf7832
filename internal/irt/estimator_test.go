package irt

import (
	"math"
	"testing"
)

func item(b float64) Item {
	return Item{Difficulty: b, Discrimination: 1, Guessing: 0.25}
}

func repeat(o Observation, n int) []Observation {
	out := make([]Observation, n)
	for i := range out {
		out[i] = o
	}
	return out
}

func TestProbability_AtDifficulty(t *testing.T) {
	got := Probability(0.7, Item{Difficulty: 0.7, Discrimination: 1.3, Guessing: 0.25})
	if math.Abs(got-0.625) > 1e-12 {
		t.Errorf("Probability = %v, want 0.625", got)
	}
}

func TestItemFromDifficulty(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		d    float64
		want float64
	}{
		{0, -3},
		{0.5, 0},
		{1, 3},
		{1.5, 3}, // clamped
		{-1, -3}, // clamped
	}
	for _, tt := range tests {
		got := cfg.ItemFromDifficulty(tt.d, nil, nil)
		if math.Abs(got.Difficulty-tt.want) > 1e-12 {
			t.Errorf("ItemFromDifficulty(%v).Difficulty = %v, want %v", tt.d, got.Difficulty, tt.want)
		}
		if got.Discrimination != 1.0 || got.Guessing != 0.25 {
			t.Errorf("defaults = (%v, %v), want (1, 0.25)", got.Discrimination, got.Guessing)
		}
	}
}

func TestItemFromDifficulty_Overrides(t *testing.T) {
	a, c := 1.8, 0.1
	got := DefaultConfig().ItemFromDifficulty(0.5, &a, &c)
	if got.Discrimination != 1.8 || got.Guessing != 0.1 {
		t.Errorf("item = %+v, want a=1.8 c=0.1", got)
	}

	bad := 1.5
	got = DefaultConfig().ItemFromDifficulty(0.5, nil, &bad)
	if got.Guessing != 0.25 {
		t.Errorf("Guessing = %v, want default for out-of-range override", got.Guessing)
	}
}

func TestEstimate_StaysInBounds(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	correct := Observation{Item: item(0), Correct: true}
	wrong := Observation{Item: item(0), Correct: false}

	tests := []struct {
		name    string
		seed    float64
		history []Observation
		next    Observation
	}{
		{"empty history correct", 0, nil, correct},
		{"empty history wrong", 0, nil, wrong},
		{"all correct", 3.9, repeat(correct, 50), correct},
		{"all wrong", -3.9, repeat(wrong, 50), wrong},
		{"seed out of range", 10, repeat(correct, 3), correct},
		{"seed below range", -10, repeat(wrong, 3), wrong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Estimate(tt.seed, tt.history, tt.next)
			if got < -4 || got > 4 || math.IsNaN(got) {
				t.Fatalf("Estimate = %v, want within [-4, 4]", got)
			}
		})
	}
}

func TestEstimate_OneSidedHistoryHitsBound(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	got := e.Estimate(0, repeat(Observation{Item: item(0), Correct: true}, 20), Observation{Item: item(0), Correct: true})
	if got != 4 {
		t.Errorf("Estimate(all correct) = %v, want 4", got)
	}
	got = e.Estimate(0, repeat(Observation{Item: item(0), Correct: false}, 20), Observation{Item: item(0), Correct: false})
	if got != -4 {
		t.Errorf("Estimate(all wrong) = %v, want -4", got)
	}
}

func TestEstimate_EmptyHistoryNudgesSeed(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	up := e.Estimate(0.2, nil, Observation{Item: item(0), Correct: true})
	if up <= 0.2 || up > 0.2+DefaultConfig().MaxStep+1e-12 {
		t.Errorf("Estimate after correct = %v, want in (0.2, 0.7]", up)
	}
	down := e.Estimate(0.2, nil, Observation{Item: item(0), Correct: false})
	if down >= 0.2 || down < 0.2-DefaultConfig().MaxStep-1e-12 {
		t.Errorf("Estimate after wrong = %v, want in [-0.3, 0.2)", down)
	}
}

func TestEstimate_MaximizesLikelihood(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	var history []Observation
	for i, b := range []float64{-2, -1, -0.5, 0, 0.5, 1, 1.5, 2} {
		history = append(history, Observation{Item: item(b), Correct: i%3 != 2})
	}
	next := Observation{Item: item(0.25), Correct: false}

	theta := e.Estimate(0, history, next)
	all := append(append([]Observation{}, history...), next)
	best := LogLikelihood(theta, all)
	for _, d := range []float64{-0.05, 0.05} {
		if ll := LogLikelihood(theta+d, all); ll > best+1e-6 {
			t.Errorf("LogLikelihood(%v) = %v exceeds estimate's %v", theta+d, ll, best)
		}
	}
}

func TestEstimate_SeedIndependentForRichHistory(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	var history []Observation
	for i := range 30 {
		b := float64(i%7) - 3
		history = append(history, Observation{Item: item(b), Correct: b < 0.5})
	}
	next := Observation{Item: item(0), Correct: true}

	a := e.Estimate(-3, history, next)
	b := e.Estimate(3, history, next)
	if math.Abs(a-b) > 1e-2 {
		t.Errorf("Estimate depends on seed: %v vs %v", a, b)
	}
}
