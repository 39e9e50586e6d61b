package nutrition

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// NutritionPer100g is the nutrient density of a food, normalized to 100 grams.
// Optional nutrients are nil when the source did not provide them.
type NutritionPer100g struct {
	Calories float64  `json:"calories"`
	ProteinG float64  `json:"protein_g"`
	CarbsG   float64  `json:"carbs_g"`
	FatG     float64  `json:"fat_g"`
	FiberG   *float64 `json:"fiber_g,omitempty"`
	SugarG   *float64 `json:"sugar_g,omitempty"`
	SodiumMg *float64 `json:"sodium_mg,omitempty"`
}

// IsZero reports whether the record carries no usable nutrient data.
func (n NutritionPer100g) IsZero() bool {
	return n.Calories == 0 && n.ProteinG == 0 && n.CarbsG == 0 && n.FatG == 0 &&
		n.FiberG == nil && n.SugarG == nil && n.SodiumMg == nil
}

// Validate rejects negative or non-finite values.
func (n NutritionPer100g) Validate() error {
	fields := map[string]*float64{
		"calories":  &n.Calories,
		"protein_g": &n.ProteinG,
		"carbs_g":   &n.CarbsG,
		"fat_g":     &n.FatG,
		"fiber_g":   n.FiberG,
		"sugar_g":   n.SugarG,
		"sodium_mg": n.SodiumMg,
	}
	for name, v := range fields {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
			return fmt.Errorf("invalid %s value %v", name, *v)
		}
	}
	return nil
}

// Clone returns a deep copy so optional pointers are never shared.
func (n NutritionPer100g) Clone() NutritionPer100g {
	out := n
	out.FiberG = clonePtr(n.FiberG)
	out.SugarG = clonePtr(n.SugarG)
	out.SodiumMg = clonePtr(n.SodiumMg)
	return out
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v, for filling optional nutrients.
func Float(v float64) *float64 {
	return &v
}

// RiskFlag marks a food as likely to carry hidden or variable calories.
type RiskFlag string

const (
	FlagPossibleOil      RiskFlag = "possible_oil"
	FlagPossibleSauce    RiskFlag = "possible_sauce"
	FlagPossibleDressing RiskFlag = "possible_dressing"
	FlagMixedDish        RiskFlag = "mixed_dish"
	FlagRestaurantLike   RiskFlag = "restaurant_like"
	FlagFried            RiskFlag = "fried"
	FlagCreamy           RiskFlag = "creamy"
	FlagCheeseLikely     RiskFlag = "cheese_likely"
)

// AllFlags lists every known risk flag.
var AllFlags = []RiskFlag{
	FlagPossibleOil,
	FlagPossibleSauce,
	FlagPossibleDressing,
	FlagMixedDish,
	FlagRestaurantLike,
	FlagFried,
	FlagCreamy,
	FlagCheeseLikely,
}

// ParseRiskFlag maps a collaborator string onto the closed flag set.
func ParseRiskFlag(s string) (RiskFlag, bool) {
	for _, f := range AllFlags {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// FlagSet is an unordered set of risk flags.
type FlagSet map[RiskFlag]struct{}

// NewFlagSet builds a set from the given flags.
func NewFlagSet(flags ...RiskFlag) FlagSet {
	s := make(FlagSet, len(flags))
	for _, f := range flags {
		s[f] = struct{}{}
	}
	return s
}

// Has reports whether f is in the set. A nil set has no flags.
func (s FlagSet) Has(f RiskFlag) bool {
	_, ok := s[f]
	return ok
}

// HasAny reports whether any of flags is in the set.
func (s FlagSet) HasAny(flags ...RiskFlag) bool {
	for _, f := range flags {
		if s.Has(f) {
			return true
		}
	}
	return false
}

// Clone copies the set.
func (s FlagSet) Clone() FlagSet {
	out := make(FlagSet, len(s))
	for f := range s {
		out[f] = struct{}{}
	}
	return out
}

// Sorted returns the flags in a stable order, for display and storage.
func (s FlagSet) Sorted() []RiskFlag {
	out := make([]RiskFlag, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON encodes the set as a sorted array of flag names.
func (s FlagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of flag names, dropping unknown ones.
func (s *FlagSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode risk flags: %w", err)
	}
	out := make(FlagSet, len(raw))
	for _, r := range raw {
		if f, ok := ParseRiskFlag(r); ok {
			out[f] = struct{}{}
		}
	}
	*s = out
	return nil
}

// Source records where a food item came from.
type Source string

const (
	SourceAI       Source = "ai"
	SourceDatabase Source = "database"
	SourceManual   Source = "manual"
)

// FoodItem is one detected or manually added food in a meal.
type FoodItem struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Portion    Portion          `json:"portion"`
	Grams      float64          `json:"grams"`
	Confidence float64          `json:"confidence"`
	Flags      FlagSet          `json:"flags"`
	Included   bool             `json:"included"`
	Nutrition  NutritionPer100g `json:"nutrition"`
	Calculated NutritionPer100g `json:"calculated_nutrition"`
	Source     Source           `json:"source"`
	Category   string           `json:"category,omitempty"`
}

// Recalculate refreshes Calculated from Nutrition and Grams.
func (f *FoodItem) Recalculate() {
	if f.Grams <= 0 {
		f.Calculated = NutritionPer100g{}
		return
	}
	f.Calculated = Scale(f.Nutrition, f.Grams)
}

// Clone returns a deep copy of the item.
func (f FoodItem) Clone() FoodItem {
	out := f
	out.Flags = f.Flags.Clone()
	out.Nutrition = f.Nutrition.Clone()
	out.Calculated = f.Calculated.Clone()
	return out
}
