package shared

import (
	"time"
)

// Agent names recorded with every model call.
const (
	AgentMealScanner   = "MealScanner"
	AgentFoodEstimator = "FoodEstimator"
	AgentPageClipper   = "NutritionClipper"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// Add sums usage across calls. The model of the receiver wins unless empty.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	model := u.Model
	if model == "" {
		model = o.Model
	}
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
		Model:            model,
	}
}

// AgentMeta holds operational metadata for one model-backed step.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}
