package session

import (
	"errors"
	"math"
	"testing"
	"time"

	"meal-estimator/internal/nutrition"
)

func TestFromDetected(t *testing.T) {
	per100 := &nutrition.NutritionPer100g{Calories: 884, FatG: 100}

	t.Run("PoorPhotoLowersConfidence", func(t *testing.T) {
		it, err := FromDetected(DetectedFoodItem{Name: "toast", Grams: 40, Confidence: 0.75, Nutrition: per100}, PhotoQualityPoor, "x")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if math.Abs(it.Confidence-0.65) > 1e-9 {
			t.Errorf("Expected confidence 0.65, got %v", it.Confidence)
		}
	})

	t.Run("ConfidenceClamped", func(t *testing.T) {
		it, _ := FromDetected(DetectedFoodItem{Name: "toast", Grams: 40, Confidence: 1.4, Nutrition: per100}, PhotoQualityGood, "x")
		if it.Confidence != 1 {
			t.Errorf("Expected confidence 1, got %v", it.Confidence)
		}
	})

	t.Run("WeightFromPortion", func(t *testing.T) {
		it, err := FromDetected(DetectedFoodItem{
			Name:      "olive oil",
			Portion:   nutrition.Portion{Quantity: 1, Unit: nutrition.UnitTbsp},
			Nutrition: per100,
		}, PhotoQualityGood, "x")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if math.Abs(it.Grams-14.78676478125) > 1e-9 {
			t.Errorf("Expected one tablespoon in grams, got %v", it.Grams)
		}
		if it.Calculated.Calories != 131 {
			t.Errorf("Expected 131 calories, got %v", it.Calculated.Calories)
		}
		if it.Source != nutrition.SourceAI || !it.Included {
			t.Errorf("Expected an included ai item, got %+v", it)
		}
	})

	t.Run("NoName", func(t *testing.T) {
		_, err := FromDetected(DetectedFoodItem{Grams: 10}, PhotoQualityGood, "x")
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Expected ValidationError, got %v", err)
		}
	})

	t.Run("NegativeNutritionIsMissing", func(t *testing.T) {
		it, err := FromDetected(DetectedFoodItem{
			Name:      "odd",
			Grams:     50,
			Nutrition: &nutrition.NutritionPer100g{Calories: -10},
		}, PhotoQualityGood, "x")
		var missing *MissingNutritionError
		if !errors.As(err, &missing) {
			t.Fatalf("Expected MissingNutritionError, got %v", err)
		}
		if !it.Nutrition.IsZero() || it.Calculated.Calories != 0 {
			t.Errorf("Expected zero nutrition, got %+v", it.Nutrition)
		}
	})
}

func TestNewManualItem(t *testing.T) {
	n := nutrition.NutritionPer100g{Calories: 52, ProteinG: 0.3, CarbsG: 14, FatG: 0.2}
	presets := map[nutrition.Unit]float64{nutrition.UnitPieces: 182}

	it, err := NewManualItem("apple", n, nutrition.Portion{Quantity: 1, Unit: nutrition.UnitPieces}, presets, "fruit")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if it.Grams != 182 || it.Calculated.Calories != 95 {
		t.Errorf("Expected 182g and 95 calories, got %vg and %v", it.Grams, it.Calculated.Calories)
	}
	if it.Source != nutrition.SourceManual {
		t.Errorf("Expected source manual, got %s", it.Source)
	}

	_, err = NewManualItem("apple", n, nutrition.Portion{Quantity: 40, Unit: nutrition.UnitPieces}, presets, "fruit")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for 7280g, got %v", err)
	}

	_, err = NewManualItem("apple", n, nutrition.Portion{Quantity: 1, Unit: nutrition.UnitServing}, nil, "fruit")
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for a serving without preset, got %v", err)
	}
}

func TestDefaultMealType(t *testing.T) {
	tests := []struct {
		hour int
		want MealType
	}{
		{7, MealTypeBreakfast},
		{12, MealTypeLunch},
		{16, MealTypeSnack},
		{20, MealTypeDinner},
		{2, MealTypeDinner},
	}
	for _, tt := range tests {
		got := DefaultMealType(time.Date(2026, 1, 1, tt.hour, 0, 0, 0, time.UTC))
		if got != tt.want {
			t.Errorf("hour %d: expected %s, got %s", tt.hour, tt.want, got)
		}
	}

	if _, err := ParseMealType("Brunch"); err == nil {
		t.Error("Expected an error for an unknown meal type")
	}
	if mt, _ := ParseMealType(" Dinner "); mt != MealTypeDinner {
		t.Errorf("Expected dinner, got %s", mt)
	}
}
