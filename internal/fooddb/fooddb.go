// Package fooddb looks up per-100g nutrition for foods by name.
package fooddb

import (
	"context"
	"strings"

	"meal-estimator/internal/nutrition"
)

// Provider names an entry's origin.
type Provider string

const (
	ProviderOpenFoodFacts Provider = "openfoodfacts"
	ProviderEstimate      Provider = "estimate"
	ProviderClipped       Provider = "clipped"
)

// Entry is one food database match.
type Entry struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Brand     string                     `json:"brand,omitempty"`
	Nutrition nutrition.NutritionPer100g `json:"nutrition_per_100g"`
	// Portions maps units without a fixed weight (pieces, serving) to grams.
	Portions map[nutrition.Unit]float64 `json:"portions,omitempty"`
	Category string                     `json:"category,omitempty"`
	Provider Provider                   `json:"provider"`
}

// DisplayName includes the brand when known.
func (e Entry) DisplayName() string {
	if e.Brand == "" {
		return e.Name
	}
	return e.Name + " (" + e.Brand + ")"
}

// Searcher finds foods matching a free-text query, best match first.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Entry, error)
}

// NormalizeQuery lowercases and collapses whitespace so equivalent queries
// share cache entries.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
