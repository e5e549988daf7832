// Package mastery tracks per-concept mastery with Bayesian Knowledge
// Tracing and nudges prerequisite concepts after each observation.
package mastery

import "math"

// Params are the fixed BKT parameters.
type Params struct {
	// Prior is the mastery assumed for a concept never seen before.
	Prior float64 `mapstructure:"prior"`
	// Slip is P(incorrect | mastered).
	Slip float64 `mapstructure:"slip"`
	// Guess is P(correct | not mastered).
	Guess float64 `mapstructure:"guess"`
	// Transit is P(learning the concept on this opportunity).
	Transit float64 `mapstructure:"transit"`

	// PropagationRate is the fraction of the remaining distance a
	// prerequisite moves toward 1 (correct) or 0 (incorrect).
	PropagationRate float64 `mapstructure:"propagation_rate"`
	// UnseenPrerequisite is the mastery assumed for a prerequisite with
	// no recorded value.
	UnseenPrerequisite float64 `mapstructure:"unseen_prerequisite"`
}

// DefaultParams returns the standard tracing parameters.
func DefaultParams() Params {
	return Params{
		Prior:              0.3,
		Slip:               0.1,
		Guess:              0.2,
		Transit:            0.1,
		PropagationRate:    0.05,
		UnseenPrerequisite: 0.5,
	}
}

// Tracer applies BKT updates. It holds no learner state.
type Tracer struct {
	params Params
}

// NewTracer creates a Tracer with p, clamping every probability to [0,1].
func NewTracer(p Params) *Tracer {
	p.Prior = clamp01(p.Prior)
	p.Slip = clamp01(p.Slip)
	p.Guess = clamp01(p.Guess)
	p.Transit = clamp01(p.Transit)
	p.PropagationRate = clamp01(p.PropagationRate)
	p.UnseenPrerequisite = clamp01(p.UnseenPrerequisite)
	return &Tracer{params: p}
}

// Params returns the tracer's parameters.
func (t *Tracer) Params() Params {
	return t.params
}

// Prior returns the mastery used for an unseen concept.
func (t *Tracer) Prior() float64 {
	return t.params.Prior
}

// Update returns the posterior mastery after one observation, including
// the learning transition.
func (t *Tracer) Update(prior float64, correct bool) float64 {
	p := clamp01(prior)
	if math.IsNaN(prior) {
		p = t.params.Prior
	}
	slip, guess := t.params.Slip, t.params.Guess

	var posterior float64
	if correct {
		num := p * (1 - slip)
		den := num + (1-p)*guess
		posterior = p
		if den > 0 {
			posterior = num / den
		}
	} else {
		num := p * slip
		den := num + (1-p)*(1-guess)
		posterior = p
		if den > 0 {
			posterior = num / den
		}
	}

	return clamp01(posterior + (1-posterior)*t.params.Transit)
}

// Propagate nudges each prerequisite toward the observed outcome and
// returns only the changed entries. Prerequisites missing from current
// start at UnseenPrerequisite. An empty prerequisite list yields an
// empty map.
func (t *Tracer) Propagate(prerequisites []int64, current map[int64]float64, correct bool) map[int64]float64 {
	out := make(map[int64]float64, len(prerequisites))
	rate := t.params.PropagationRate
	for _, id := range prerequisites {
		m, ok := current[id]
		if !ok || math.IsNaN(m) {
			m = t.params.UnseenPrerequisite
		}
		m = clamp01(m)
		if correct {
			m += rate * (1 - m)
		} else {
			m -= rate * m
		}
		out[id] = clamp01(m)
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
