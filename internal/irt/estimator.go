package irt

import "math"

const probEpsilon = 1e-9

// Estimator fits ability by maximum likelihood using Fisher scoring.
// It is stateless and safe for concurrent use.
type Estimator struct {
	cfg Config
}

// NewEstimator returns an Estimator using cfg.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Config returns the estimator configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Estimate returns the ability that maximizes the likelihood of history
// plus next, starting the search at seed. The result always lies within
// [MinAbility, MaxAbility].
//
// With an empty history a single scoring step is taken from the seed, so
// one answer nudges the estimate instead of driving it to a bound.
func (e *Estimator) Estimate(seed float64, history []Observation, next Observation) float64 {
	theta := e.clamp(seed)
	if math.IsNaN(theta) {
		theta = 0
	}

	obs := make([]Observation, 0, len(history)+1)
	obs = append(obs, history...)
	obs = append(obs, next)

	if len(history) == 0 {
		return e.clamp(theta + e.step(theta, obs))
	}

	for range e.cfg.MaxIterations {
		delta := e.step(theta, obs)
		updated := e.clamp(theta + delta)
		if math.Abs(updated-theta) < e.cfg.Tolerance {
			return updated
		}
		theta = updated
	}
	return theta
}

// step computes one bounded Fisher scoring update.
func (e *Estimator) step(theta float64, obs []Observation) float64 {
	grad, info := scoreAndInformation(theta, obs)
	if info < probEpsilon {
		return 0
	}
	delta := grad / info
	if e.cfg.MaxStep > 0 {
		delta = math.Max(-e.cfg.MaxStep, math.Min(e.cfg.MaxStep, delta))
	}
	return delta
}

func (e *Estimator) clamp(theta float64) float64 {
	return math.Max(e.cfg.MinAbility, math.Min(e.cfg.MaxAbility, theta))
}

// LogLikelihood returns the log-likelihood of obs at theta.
func LogLikelihood(theta float64, obs []Observation) float64 {
	var ll float64
	for _, o := range obs {
		p := clampProb(Probability(theta, o.Item))
		if o.Correct {
			ll += math.Log(p)
		} else {
			ll += math.Log(1 - p)
		}
	}
	return ll
}

// scoreAndInformation returns the first derivative of the log-likelihood
// and the expected Fisher information at theta.
func scoreAndInformation(theta float64, obs []Observation) (grad, info float64) {
	for _, o := range obs {
		a, c := o.Discrimination, o.Guessing
		s := sigmoid(a * (theta - o.Difficulty))
		p := clampProb(c + (1-c)*s)

		u := 0.0
		if o.Correct {
			u = 1
		}
		grad += a * (u - p) * s / p
		info += (1 - c) * a * a * s * s * (1 - s) / p
	}
	return grad, info
}

func clampProb(p float64) float64 {
	return math.Max(probEpsilon, math.Min(1-probEpsilon, p))
}
