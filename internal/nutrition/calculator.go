package nutrition

import "math"

// Scale converts per-100g nutrition into the amounts for the given weight.
// Calories and sodium are whole numbers; grams of macros keep one decimal.
// Callers must reject grams <= 0 beforehand.
func Scale(n NutritionPer100g, grams float64) NutritionPer100g {
	factor := grams / 100

	out := NutritionPer100g{
		Calories: math.Round(n.Calories * factor),
		ProteinG: Round1(n.ProteinG * factor),
		CarbsG:   Round1(n.CarbsG * factor),
		FatG:     Round1(n.FatG * factor),
	}
	if n.FiberG != nil {
		out.FiberG = Float(Round1(*n.FiberG * factor))
	}
	if n.SugarG != nil {
		out.SugarG = Float(Round1(*n.SugarG * factor))
	}
	if n.SodiumMg != nil {
		out.SodiumMg = Float(math.Round(*n.SodiumMg * factor))
	}
	return out
}

// Round1 rounds to one decimal place, halves away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// MaxGrams is the exclusive upper bound for an item's weight.
const MaxGrams = 5000

// ValidGrams reports whether grams is inside (0, MaxGrams).
func ValidGrams(grams float64) bool {
	return !math.IsNaN(grams) && grams > 0 && grams < MaxGrams
}
