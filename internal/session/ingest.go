package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"meal-estimator/internal/nutrition"
)

// PhotoQuality is the scan provider's verdict on the photo.
type PhotoQuality string

const (
	PhotoQualityGood PhotoQuality = "good"
	PhotoQualityFair PhotoQuality = "fair"
	PhotoQualityPoor PhotoQuality = "poor"
)

const (
	poorPhotoPenalty  = 0.1
	manualConfidence  = 0.9
	defaultConfidence = 0.5
)

// DetectedFoodItem is a food as reported by the vision provider, before the
// session assigns an id and computes its nutrition.
type DetectedFoodItem struct {
	Name       string                      `json:"name"`
	Portion    nutrition.Portion           `json:"portion"`
	Grams      float64                     `json:"grams"`
	Confidence float64                     `json:"confidence"`
	Flags      []string                    `json:"flags"`
	Nutrition  *nutrition.NutritionPer100g `json:"nutrition_per_100g"`
	Category   string                      `json:"category"`
}

// ScanResult is the output of one photo scan.
type ScanResult struct {
	Items        []DetectedFoodItem `json:"items"`
	PhotoQuality PhotoQuality       `json:"photo_quality"`
}

// FromDetected turns a detected food into a session item. An item without
// usable nutrition is still returned together with a *MissingNutritionError.
// A weight that cannot be resolved yields a *ValidationError and no item.
func FromDetected(d DetectedFoodItem, quality PhotoQuality, id string) (nutrition.FoodItem, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nutrition.FoodItem{}, &ValidationError{Field: "name", Reason: "detected item has no name"}
	}

	grams := d.Grams
	if !nutrition.ValidGrams(grams) {
		g, err := d.Portion.Grams(nil)
		if err != nil || !nutrition.ValidGrams(g) {
			return nutrition.FoodItem{}, &ValidationError{Field: "grams", Reason: "cannot determine weight of " + name}
		}
		grams = g
	}

	portion := d.Portion
	if portion.Validate() != nil {
		portion = nutrition.Portion{Quantity: grams, Unit: nutrition.UnitGrams}
	}

	confidence := d.Confidence
	if math.IsNaN(confidence) {
		confidence = defaultConfidence
	}
	if quality == PhotoQualityPoor {
		confidence -= poorPhotoPenalty
	}
	confidence = math.Max(0, math.Min(1, confidence))

	flags := nutrition.NewFlagSet()
	for _, raw := range d.Flags {
		if f, ok := nutrition.ParseRiskFlag(strings.ToLower(strings.TrimSpace(raw))); ok {
			flags[f] = struct{}{}
		}
	}

	item := nutrition.FoodItem{
		ID:         id,
		Name:       name,
		Portion:    portion,
		Grams:      grams,
		Confidence: confidence,
		Flags:      flags,
		Included:   true,
		Source:     nutrition.SourceAI,
		Category:   d.Category,
	}

	var err error
	if usable(d.Nutrition) {
		item.Nutrition = d.Nutrition.Clone()
	} else {
		err = &MissingNutritionError{ItemName: name}
	}
	item.Recalculate()
	return item, err
}

// NewManualItem builds an item from a food database selection.
func NewManualItem(name string, n nutrition.NutritionPer100g, portion nutrition.Portion, presets map[nutrition.Unit]float64, category string) (nutrition.FoodItem, error) {
	if strings.TrimSpace(name) == "" {
		return nutrition.FoodItem{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if err := n.Validate(); err != nil {
		return nutrition.FoodItem{}, &ValidationError{Field: "nutrition", Reason: err.Error()}
	}
	grams, err := portion.Grams(presets)
	if err != nil {
		return nutrition.FoodItem{}, &ValidationError{Field: "portion", Reason: err.Error()}
	}
	if !nutrition.ValidGrams(grams) {
		return nutrition.FoodItem{}, gramsError(grams)
	}

	item := nutrition.FoodItem{
		Name:       strings.TrimSpace(name),
		Portion:    portion,
		Grams:      grams,
		Confidence: manualConfidence,
		Flags:      nutrition.NewFlagSet(),
		Included:   true,
		Nutrition:  n.Clone(),
		Source:     nutrition.SourceManual,
		Category:   category,
	}
	item.Recalculate()
	return item, nil
}

func usable(n *nutrition.NutritionPer100g) bool {
	return n != nil && !n.IsZero() && n.Validate() == nil
}

func gramsError(grams float64) *ValidationError {
	return &ValidationError{
		Field:  "grams",
		Reason: fmt.Sprintf("must be greater than 0 and less than %d, got %s", nutrition.MaxGrams, strconv.FormatFloat(grams, 'f', -1, 64)),
	}
}
