package nutrition

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScale(t *testing.T) {
	t.Run("WholeCalories", func(t *testing.T) {
		got := Scale(NutritionPer100g{Calories: 100}, 250)
		if got.Calories != 250 {
			t.Errorf("Expected 250 calories, got %v", got.Calories)
		}
	})

	t.Run("HalfRoundsAwayFromZero", func(t *testing.T) {
		// 133 * 0.5 = 66.5; banker's rounding would give 66.
		got := Scale(NutritionPer100g{Calories: 133}, 50)
		if got.Calories != 67 {
			t.Errorf("Expected 67 calories, got %v", got.Calories)
		}
		if math.RoundToEven(66.5) == got.Calories {
			t.Errorf("Expected half-up rounding to differ from banker's rounding at 66.5")
		}
	})

	t.Run("HalfOnEvenBoundary", func(t *testing.T) {
		// 135 * 0.5 = 67.5; both rounding modes give 68.
		got := Scale(NutritionPer100g{Calories: 135}, 50)
		if got.Calories != 68 {
			t.Errorf("Expected 68 calories, got %v", got.Calories)
		}
	})

	t.Run("MacrosOneDecimal", func(t *testing.T) {
		in := NutritionPer100g{Calories: 165, ProteinG: 31, CarbsG: 0, FatG: 3.6}
		got := Scale(in, 150)
		want := NutritionPer100g{Calories: 248, ProteinG: 46.5, CarbsG: 0, FatG: 5.4}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Scale() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("OptionalOnlyWhenPresent", func(t *testing.T) {
		in := NutritionPer100g{Calories: 52, CarbsG: 14, FiberG: Float(2.4), SodiumMg: Float(1)}
		got := Scale(in, 182)
		if got.SugarG != nil {
			t.Errorf("Expected sugar to stay absent, got %v", *got.SugarG)
		}
		if got.FiberG == nil || *got.FiberG != 4.4 {
			t.Errorf("Expected fiber 4.4, got %v", got.FiberG)
		}
		if got.SodiumMg == nil || *got.SodiumMg != 2 {
			t.Errorf("Expected sodium 2, got %v", got.SodiumMg)
		}
	})

	t.Run("DoesNotAliasInput", func(t *testing.T) {
		in := NutritionPer100g{Calories: 100, FiberG: Float(1)}
		got := Scale(in, 100)
		*got.FiberG = 99
		if *in.FiberG != 1 {
			t.Errorf("Expected input fiber to stay 1, got %v", *in.FiberG)
		}
	})
}

func TestValidGrams(t *testing.T) {
	tests := []struct {
		grams float64
		want  bool
	}{
		{0, false},
		{-5, false},
		{0.1, true},
		{4999.9, true},
		{5000, false},
		{6000, false},
		{math.NaN(), false},
	}
	for _, tt := range tests {
		if got := ValidGrams(tt.grams); got != tt.want {
			t.Errorf("ValidGrams(%v) = %v, want %v", tt.grams, got, tt.want)
		}
	}
}
