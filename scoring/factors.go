// Package scoring computes coin trust scores and founding wallet reputation
// scores. Every function in this package is pure.
package scoring

import "math"

// MaxSubScore is the upper bound of every sub-score
const MaxSubScore = 100.0

// capped returns min(value*factor, limit), never below zero
func capped(value, factor, limit float64) float64 {
	v := value * factor
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return math.Min(v, limit)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// step is one entry of a step function: values >= Min score Score
type step struct {
	Min   float64
	Score float64
}

// stepScore returns the score of the highest step reached. Steps must be
// ordered by ascending Min.
func stepScore(value float64, steps []step) float64 {
	score := 0.0
	for _, s := range steps {
		if value >= s.Min {
			score = s.Score
		}
	}
	return score
}

// weighted sums weight*score pairs and rounds to the nearest integer
func weighted(pairs ...[2]float64) int {
	total := 0.0
	for _, p := range pairs {
		total += p[0] * p[1]
	}
	return int(math.Round(clamp(total, 0, MaxSubScore)))
}
