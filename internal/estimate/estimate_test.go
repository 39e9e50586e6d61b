package estimate

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"meal-estimator/internal/nutrition"
)

func food(confidence float64, flags ...nutrition.RiskFlag) nutrition.FoodItem {
	return nutrition.FoodItem{
		Name:       "food",
		Grams:      100,
		Confidence: confidence,
		Flags:      nutrition.NewFlagSet(flags...),
		Included:   true,
	}
}

func TestEstimateRange(t *testing.T) {
	tests := []struct {
		name    string
		items   []nutrition.FoodItem
		answers Answers
		base    int
		want    Range
	}{
		{
			name:  "NoFlags",
			items: []nutrition.FoodItem{food(0.7)},
			base:  200,
			want:  Range{Min: 170, Max: 230},
		},
		{
			name:  "PossibleOil",
			items: []nutrition.FoodItem{food(0.7, nutrition.FlagPossibleOil)},
			base:  200,
			want:  Range{Min: 160, Max: 250},
		},
		{
			name:  "FriedCountsForOilAndOnItsOwn",
			items: []nutrition.FoodItem{food(0.7, nutrition.FlagFried)},
			base:  100,
			want:  Range{Min: 80, Max: 140},
		},
		{
			name: "ConditionsCountOncePerMeal",
			items: []nutrition.FoodItem{
				food(0.7, nutrition.FlagPossibleOil),
				food(0.7, nutrition.FlagPossibleOil),
			},
			base: 200,
			want: Range{Min: 160, Max: 250},
		},
		{
			name:    "HeavySauceAnswer",
			items:   []nutrition.FoodItem{food(0.7, nutrition.FlagCreamy)},
			answers: Answers{QuestionSauceAmount: OptionHeavy},
			base:    100,
			want:    Range{Min: 82, Max: 131},
		},
		{
			name:    "NoneAnswersNarrowMax",
			items:   []nutrition.FoodItem{food(0.7)},
			answers: Answers{QuestionOilUsed: OptionNone, QuestionSauceAmount: OptionNone},
			base:    100,
			want:    Range{Min: 85, Max: 107},
		},
		{
			name:  "HighConfidenceNarrows",
			items: []nutrition.FoodItem{food(0.9)},
			base:  100,
			want:  Range{Min: 88, Max: 112},
		},
		{
			name:  "LowConfidenceWidens",
			items: []nutrition.FoodItem{food(0.5)},
			base:  100,
			want:  Range{Min: 80, Max: 125},
		},
		{
			name: "ClampedToFloorAndCeiling",
			items: []nutrition.FoodItem{
				food(0.4, nutrition.FlagRestaurantLike, nutrition.FlagMixedDish, nutrition.FlagPossibleOil),
			},
			base: 1000,
			want: Range{Min: 700, Max: 1600},
		},
		{
			name: "ExcludedFlagsIgnored",
			items: []nutrition.FoodItem{
				food(0.7),
				func() nutrition.FoodItem {
					f := food(0.7, nutrition.FlagRestaurantLike)
					f.Included = false
					return f
				}(),
			},
			base: 200,
			want: Range{Min: 170, Max: 230},
		},
		{
			name:  "ZeroBase",
			items: []nutrition.FoodItem{food(0.7, nutrition.FlagFried)},
			base:  0,
			want:  Range{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateRange(tt.items, tt.answers, tt.base)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("EstimateRange() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEstimateRangeCeilingIsOnePointSix(t *testing.T) {
	items := []nutrition.FoodItem{
		food(0.3, nutrition.FlagRestaurantLike, nutrition.FlagMixedDish, nutrition.FlagFried, nutrition.FlagCreamy),
	}
	answers := Answers{QuestionOilUsed: OptionALot, QuestionSauceAmount: OptionHeavy}
	_, maxM := Multipliers(items, answers)
	if maxM != 1.6 {
		t.Errorf("Expected max multiplier to be clamped at 1.6, got %v", maxM)
	}
}

func TestEstimateRangeMinNeverExceedsMax(t *testing.T) {
	oilOptions := []string{"", OptionNone, OptionALittle, OptionNormal, OptionALot}
	sauceOptions := []string{"", OptionNone, OptionLight, OptionNormal, OptionHeavy}
	confidences := []float64{0, 0.3, 0.59, 0.6, 0.7, 0.85, 0.86, 1}

	// Every subset of flags.
	for mask := 0; mask < 1<<len(nutrition.AllFlags); mask++ {
		var flags []nutrition.RiskFlag
		for i, f := range nutrition.AllFlags {
			if mask&(1<<i) != 0 {
				flags = append(flags, f)
			}
		}
		for _, c := range confidences {
			for _, oil := range oilOptions {
				for _, sauce := range sauceOptions {
					answers := Answers{QuestionOilUsed: oil, QuestionSauceAmount: sauce}
					r := EstimateRange([]nutrition.FoodItem{food(c, flags...)}, answers, 487)
					if r.Min > r.Max {
						t.Fatalf("min %d > max %d for flags=%v conf=%v answers=%v", r.Min, r.Max, flags, c, answers)
					}
				}
			}
		}
	}
}

func TestScoreConfidence(t *testing.T) {
	tests := []struct {
		name  string
		items []nutrition.FoodItem
		want  float64
	}{
		{name: "Empty", items: nil, want: 0},
		{
			name: "NothingIncluded",
			items: func() []nutrition.FoodItem {
				f := food(0.9)
				f.Included = false
				return []nutrition.FoodItem{f}
			}(),
			want: 0,
		},
		{name: "NoFlags", items: []nutrition.FoodItem{food(0.8)}, want: 0.8},
		{
			name: "PenaltyAveragedPerItem",
			items: []nutrition.FoodItem{
				food(0.8, nutrition.FlagMixedDish),
				food(0.6),
			},
			want: 0.65,
		},
		{
			name: "PenaltyCappedAtPointTwo",
			items: []nutrition.FoodItem{
				food(1, nutrition.FlagMixedDish, nutrition.FlagRestaurantLike, nutrition.FlagPossibleOil, nutrition.FlagPossibleSauce),
			},
			want: 0.8,
		},
		{name: "Floor", items: []nutrition.FoodItem{food(0.1)}, want: 0.3},
		{name: "CheeseNotPenalized", items: []nutrition.FoodItem{food(0.9, nutrition.FlagCheeseLikely)}, want: 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreConfidence(tt.items)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected confidence %v, got %v", tt.want, got)
			}
		})
	}
}

func TestQuestionsFor(t *testing.T) {
	t.Run("None", func(t *testing.T) {
		if qs := QuestionsFor([]nutrition.FoodItem{food(0.8, nutrition.FlagCheeseLikely)}); len(qs) != 0 {
			t.Errorf("Expected no questions, got %d", len(qs))
		}
	})

	t.Run("OilFromFried", func(t *testing.T) {
		qs := QuestionsFor([]nutrition.FoodItem{food(0.8, nutrition.FlagFried)})
		if len(qs) != 1 || qs[0].Key != QuestionOilUsed {
			t.Fatalf("Expected only the oil question, got %+v", qs)
		}
		want := []string{OptionNone, OptionALittle, OptionNormal, OptionALot}
		if diff := cmp.Diff(want, qs[0].Options); diff != "" {
			t.Errorf("Options mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("BothInOrder", func(t *testing.T) {
		qs := QuestionsFor([]nutrition.FoodItem{
			food(0.8, nutrition.FlagPossibleDressing),
			food(0.8, nutrition.FlagPossibleOil),
		})
		if len(qs) != 2 {
			t.Fatalf("Expected 2 questions, got %d", len(qs))
		}
		if qs[0].Key != QuestionOilUsed || qs[1].Key != QuestionSauceAmount {
			t.Errorf("Expected oil then sauce, got %s then %s", qs[0].Key, qs[1].Key)
		}
	})

	t.Run("ExcludedItemsIgnored", func(t *testing.T) {
		f := food(0.8, nutrition.FlagCreamy)
		f.Included = false
		if qs := QuestionsFor([]nutrition.FoodItem{f}); len(qs) != 0 {
			t.Errorf("Expected no questions, got %d", len(qs))
		}
	})

	t.Run("OptionsNotShared", func(t *testing.T) {
		qs := QuestionsFor([]nutrition.FoodItem{food(0.8, nutrition.FlagFried)})
		qs[0].Options[0] = "changed"
		q, _ := Lookup(QuestionOilUsed)
		if q.Options[0] != OptionNone {
			t.Errorf("Expected catalog to stay untouched, got %q", q.Options[0])
		}
	})
}

func TestValidateAnswer(t *testing.T) {
	if err := ValidateAnswer(QuestionOilUsed, OptionALot); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := ValidateAnswer(QuestionOilUsed, OptionHeavy); err == nil {
		t.Error("Expected an error for a sauce option on the oil question")
	}
	if err := ValidateAnswer("salt_added", OptionNone); err == nil {
		t.Error("Expected an error for an unknown question")
	}
}
