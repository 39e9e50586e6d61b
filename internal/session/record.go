package session

import (
	"context"
	"time"

	"meal-estimator/internal/estimate"
	"meal-estimator/internal/nutrition"
)

// RecordItem is the snapshot of one included item at logging time.
type RecordItem struct {
	Name       string                     `json:"name"`
	Grams      float64                    `json:"grams"`
	Nutrition  nutrition.NutritionPer100g `json:"nutrition"`
	Confidence float64                    `json:"confidence"`
	Source     nutrition.Source           `json:"source"`
	Category   string                     `json:"category,omitempty"`
}

// MealRecord is what Commit hands to the MealSaver. ClientID is stable across
// retries of the same commit so the store can deduplicate.
type MealRecord struct {
	ClientID   string           `json:"client_id"`
	MealID     int64            `json:"meal_id"`
	Items      []RecordItem     `json:"items"`
	Totals     nutrition.Totals `json:"totals"`
	Range      estimate.Range   `json:"range"`
	Confidence float64          `json:"confidence"`
	MealType   MealType         `json:"meal_type"`
	PhotoRef   string           `json:"photo_ref,omitempty"`
	LoggedAt   time.Time        `json:"logged_at"`
}

// MealSaver persists a committed meal and returns its id. Saving the same
// ClientID twice must not create a second meal.
type MealSaver interface {
	SaveMeal(ctx context.Context, record MealRecord) (int64, error)
}
