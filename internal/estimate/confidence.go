package estimate

import (
	"math"

	"meal-estimator/internal/nutrition"
)

const (
	confidenceFloor   = 0.3
	confidenceCeiling = 1.0
	maxFlagPenalty    = 0.2
)

// MeanConfidence averages the confidence of included items. ok is false when
// nothing is included.
func MeanConfidence(items []nutrition.FoodItem) (avg float64, ok bool) {
	var sum float64
	var n int
	for _, it := range items {
		if !it.Included {
			continue
		}
		sum += it.Confidence
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func flagPenalty(f nutrition.FlagSet) float64 {
	var p float64
	if f.Has(nutrition.FlagMixedDish) {
		p += 0.10
	}
	if f.Has(nutrition.FlagRestaurantLike) {
		p += 0.10
	}
	if f.Has(nutrition.FlagPossibleOil) {
		p += 0.05
	}
	if f.Has(nutrition.FlagPossibleSauce) {
		p += 0.05
	}
	return p
}

// ScoreConfidence summarizes how trustworthy the included items are. It
// returns 0 for an empty selection and otherwise a value in [0.3, 1.0].
// The averaged flag penalty is capped at 0.2.
func ScoreConfidence(items []nutrition.FoodItem) float64 {
	avg, ok := MeanConfidence(items)
	if !ok {
		return 0
	}

	var penalty float64
	var n int
	for _, it := range items {
		if !it.Included {
			continue
		}
		penalty += flagPenalty(it.Flags)
		n++
	}
	penalty = math.Min(penalty/float64(n), maxFlagPenalty)

	return math.Max(confidenceFloor, math.Min(confidenceCeiling, avg-penalty))
}
