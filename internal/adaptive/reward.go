package adaptive

import "math"

// OptimalTime is the expected response time in seconds for a difficulty
// in [0,1].
func (c RewardConfig) OptimalTime(difficulty float64) float64 {
	return difficulty*c.SecondsPerDifficulty + c.BaseSeconds
}

// Reward blends correctness with how close the response time was to the
// optimal time. The result is clamped to [0,1].
func (c RewardConfig) Reward(correct bool, responseTime, difficulty float64) float64 {
	base := 0.0
	if correct {
		base = 1.0
	}

	efficiency := 0.0
	if opt := c.OptimalTime(difficulty); opt > 0 {
		efficiency = math.Max(0, 1-math.Abs(responseTime-opt)/opt)
	}

	r := c.CorrectnessWeight*base + c.TimeWeight*efficiency
	if math.IsNaN(r) {
		return 0
	}
	return math.Max(0, math.Min(1, r))
}
