package bandit

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() rand.Source {
	return rand.NewPCG(42, 7)
}

func TestUpdate(t *testing.T) {
	p := Params{Success: 2, Failure: 3}
	for _, r := range []float64{0, 0.25, 0.833, 1} {
		got := Update(p, r)
		assert.InDelta(t, p.Success+r, got.Success, 1e-12, "success for r=%v", r)
		assert.InDelta(t, p.Failure+1-r, got.Failure, 1e-12, "failure for r=%v", r)
	}
}

func TestUpdate_Monotonic(t *testing.T) {
	p := UniformPrior
	for i := range 100 {
		next := Update(p, float64(i%11)/10)
		if next.Success < p.Success || next.Failure < p.Failure {
			t.Fatalf("Update decreased params: %+v -> %+v", p, next)
		}
		p = next
	}
}

func TestUpdate_ClampsReward(t *testing.T) {
	got := Update(UniformPrior, 1.7)
	if got.Success != 2 || got.Failure != 1 {
		t.Errorf("Update(1.7) = %+v, want {2 1}", got)
	}
	got = Update(UniformPrior, -3)
	if got.Success != 1 || got.Failure != 2 {
		t.Errorf("Update(-3) = %+v, want {1 2}", got)
	}
}

func TestSelect_Empty(t *testing.T) {
	s := NewSampler(seeded(), UniformPrior)
	_, err := s.Select(nil, nil)
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("err = %v, want ErrNoCandidates", err)
	}
}

func TestSelect_SingleCandidate(t *testing.T) {
	s := NewSampler(seeded(), UniformPrior)
	idx, err := s.Select([]int64{11}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestSelect_DeterministicWithSeed(t *testing.T) {
	ids := []int64{1, 2, 3, 4}
	stats := map[int64]Params{1: {3, 3}, 3: {1, 5}}

	a := NewSampler(seeded(), UniformPrior)
	b := NewSampler(seeded(), UniformPrior)
	for range 20 {
		ia, err := a.Select(ids, stats)
		require.NoError(t, err)
		ib, err := b.Select(ids, stats)
		require.NoError(t, err)
		if ia != ib {
			t.Fatalf("same seed picked %d and %d", ia, ib)
		}
	}
}

func TestSelect_PrefersStrongArm(t *testing.T) {
	s := NewSampler(seeded(), UniformPrior)
	ids := []int64{10, 20}
	stats := map[int64]Params{
		10: {Success: 2, Failure: 60},
		20: {Success: 60, Failure: 2},
	}

	wins := 0
	for range 200 {
		idx, err := s.Select(ids, stats)
		require.NoError(t, err)
		if ids[idx] == 20 {
			wins++
		}
	}
	if wins < 190 {
		t.Errorf("strong arm won %d/200, want >= 190", wins)
	}
}

func TestSelect_InvalidParamsUsePrior(t *testing.T) {
	s := NewSampler(seeded(), UniformPrior)
	idx, err := s.Select([]int64{5}, map[int64]Params{5: {Success: 0, Failure: -1}})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestNewSampler_DefaultsPrior(t *testing.T) {
	s := NewSampler(nil, Params{})
	assert.Equal(t, UniformPrior, s.Prior())
}
