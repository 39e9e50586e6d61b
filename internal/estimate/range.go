// Package estimate derives the uncertainty band, confidence score and
// follow-up questions for a set of food items.
package estimate

import (
	"math"

	"meal-estimator/internal/nutrition"
)

// Range is the calorie band around the point estimate.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

const (
	baseMinMultiplier = 0.85
	baseMaxMultiplier = 1.15

	// MinMultiplierFloor and MaxMultiplierCeiling bound the band. One ceiling
	// is used for every caller.
	MinMultiplierFloor   = 0.7
	MaxMultiplierCeiling = 1.6

	lowConfidence  = 0.6
	highConfidence = 0.85
)

type delta struct {
	min, max float64
}

var (
	oilDelta        = delta{-0.05, 0.10}
	sauceDelta      = delta{-0.03, 0.08}
	mixedDishDelta  = delta{-0.05, 0.15}
	restaurantDelta = delta{-0.05, 0.20}
	friedDelta      = delta{0, 0.15}
)

// Multipliers returns the clamped min/max multipliers for the included items
// and answers.
func Multipliers(items []nutrition.FoodItem, answers Answers) (float64, float64) {
	minM, maxM := baseMinMultiplier, baseMaxMultiplier
	apply := func(d delta) {
		minM += d.min
		maxM += d.max
	}

	c := conditionsOf(items)
	if c.oil {
		apply(oilDelta)
	}
	if c.sauce {
		apply(sauceDelta)
	}
	if c.mixed {
		apply(mixedDishDelta)
	}
	if c.restaurant {
		apply(restaurantDelta)
	}
	if c.fried {
		apply(friedDelta)
	}

	switch answers[QuestionOilUsed] {
	case OptionNone:
		maxM -= 0.05
	case OptionALot:
		maxM += 0.10
	}
	switch answers[QuestionSauceAmount] {
	case OptionNone:
		maxM -= 0.03
	case OptionHeavy:
		maxM += 0.08
	}

	if avg, ok := MeanConfidence(items); ok {
		switch {
		case avg < lowConfidence:
			minM -= 0.05
			maxM += 0.10
		case avg > highConfidence:
			minM += 0.03
			maxM -= 0.03
		}
	}

	return math.Max(minM, MinMultiplierFloor), math.Min(maxM, MaxMultiplierCeiling)
}

// EstimateRange widens baseCalories into a band using the risk flags of the
// included items and the follow-up answers.
func EstimateRange(items []nutrition.FoodItem, answers Answers, baseCalories int) Range {
	if baseCalories <= 0 {
		return Range{}
	}
	minM, maxM := Multipliers(items, answers)
	base := float64(baseCalories)
	return Range{
		Min: int(math.Round(base * minM)),
		Max: int(math.Round(base * maxM)),
	}
}
