package nutrition

import "math"

// Totals is the summed nutrition of the included items of a meal.
type Totals struct {
	Calories int     `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
	FiberG   float64 `json:"fiber_g"`
	SugarG   float64 `json:"sugar_g"`
	SodiumMg int     `json:"sodium_mg"`
}

// Included returns the items that count towards the meal.
func Included(items []FoodItem) []FoodItem {
	out := make([]FoodItem, 0, len(items))
	for _, it := range items {
		if it.Included {
			out = append(out, it)
		}
	}
	return out
}

// Aggregate sums the calculated nutrition of included items. Missing optional
// nutrients count as zero.
func Aggregate(items []FoodItem) Totals {
	var cal, protein, carbs, fat, fiber, sugar, sodium float64
	for _, it := range items {
		if !it.Included {
			continue
		}
		c := it.Calculated
		cal += c.Calories
		protein += c.ProteinG
		carbs += c.CarbsG
		fat += c.FatG
		fiber += valueOrZero(c.FiberG)
		sugar += valueOrZero(c.SugarG)
		sodium += valueOrZero(c.SodiumMg)
	}

	return Totals{
		Calories: int(math.Round(cal)),
		ProteinG: Round1(protein),
		CarbsG:   Round1(carbs),
		FatG:     Round1(fat),
		FiberG:   Round1(fiber),
		SugarG:   Round1(sugar),
		SodiumMg: int(math.Round(sodium)),
	}
}

// Add sums two totals, used for daily roll-ups of logged meals.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Calories: t.Calories + o.Calories,
		ProteinG: Round1(t.ProteinG + o.ProteinG),
		CarbsG:   Round1(t.CarbsG + o.CarbsG),
		FatG:     Round1(t.FatG + o.FatG),
		FiberG:   Round1(t.FiberG + o.FiberG),
		SugarG:   Round1(t.SugarG + o.SugarG),
		SodiumMg: t.SodiumMg + o.SodiumMg,
	}
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
