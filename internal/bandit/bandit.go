// Package bandit selects question templates with Thompson sampling over
// per-learner Beta posteriors.
package bandit

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrNoCandidates is returned when Select is given nothing to choose from.
var ErrNoCandidates = errors.New("bandit: no candidates")

// Params are the Beta parameters for one (learner, template) arm.
type Params struct {
	Success float64
	Failure float64
}

// UniformPrior is the uninformative Beta(1,1) prior.
var UniformPrior = Params{Success: 1, Failure: 1}

// Update folds a reward in [0,1] into p. Rewards outside the range are
// clamped.
func Update(p Params, reward float64) Params {
	r := math.Max(0, math.Min(1, reward))
	if math.IsNaN(reward) {
		r = 0
	}
	return Params{Success: p.Success + r, Failure: p.Failure + (1 - r)}
}

// Sampler draws from Beta posteriors. It is safe for concurrent use.
type Sampler struct {
	mu    sync.Mutex
	src   rand.Source
	prior Params
}

// NewSampler creates a Sampler drawing randomness from src. A nil src is
// seeded from the clock. A non-positive prior falls back to UniformPrior.
func NewSampler(src rand.Source, prior Params) *Sampler {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1|1)
	}
	if !positive(prior.Success) || !positive(prior.Failure) {
		prior = UniformPrior
	}
	return &Sampler{src: src, prior: prior}
}

// Prior returns the parameters used for an arm without statistics.
func (s *Sampler) Prior() Params {
	return s.prior
}

// Select samples each candidate's posterior and returns the index of the
// highest draw. Ties go to the earlier candidate.
func (s *Sampler) Select(candidates []int64, stats map[int64]Params) (int, error) {
	if len(candidates) == 0 {
		return -1, ErrNoCandidates
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	best, bestIdx := math.Inf(-1), 0
	for i, id := range candidates {
		p, ok := stats[id]
		p = s.resolve(p, ok)
		v := distuv.Beta{Alpha: p.Success, Beta: p.Failure, Src: s.src}.Rand()
		if v > best {
			best, bestIdx = v, i
		}
	}
	return bestIdx, nil
}

// resolve substitutes the prior for missing or invalid parameters.
func (s *Sampler) resolve(p Params, ok bool) Params {
	if !ok {
		return s.prior
	}
	if !positive(p.Success) {
		p.Success = s.prior.Success
	}
	if !positive(p.Failure) {
		p.Failure = s.prior.Failure
	}
	return p
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
