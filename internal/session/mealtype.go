package session

import (
	"fmt"
	"strings"
	"time"
)

// MealType classifies a logged meal.
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSnack     MealType = "snack"
)

// MealTypes lists the meal types in display order.
var MealTypes = []MealType{MealTypeBreakfast, MealTypeLunch, MealTypeSnack, MealTypeDinner}

// ParseMealType resolves a meal type name, case-insensitively.
func ParseMealType(s string) (MealType, error) {
	switch MealType(strings.ToLower(strings.TrimSpace(s))) {
	case MealTypeBreakfast:
		return MealTypeBreakfast, nil
	case MealTypeLunch:
		return MealTypeLunch, nil
	case MealTypeDinner:
		return MealTypeDinner, nil
	case MealTypeSnack:
		return MealTypeSnack, nil
	}
	return "", fmt.Errorf("unknown meal type %q", s)
}

// DefaultMealType suggests a meal type from the local hour of t.
func DefaultMealType(t time.Time) MealType {
	switch h := t.Hour(); {
	case h >= 5 && h < 11:
		return MealTypeBreakfast
	case h >= 11 && h < 15:
		return MealTypeLunch
	case h >= 15 && h < 18:
		return MealTypeSnack
	default:
		return MealTypeDinner
	}
}
