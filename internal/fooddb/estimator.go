package fooddb

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"meal-estimator/internal/llm"
	"meal-estimator/internal/nutrition"
	"meal-estimator/internal/shared"
)

//go:embed estimate_prompt.md
var estimatePrompt string

var estimateTemplate = template.Must(template.New("estimate").Parse(estimatePrompt))

// MetaRecorder receives usage of model-backed lookups.
type MetaRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

// Estimator asks a text model for typical nutrition values. It is the last
// resort when no database knows the food.
type Estimator struct {
	textGen  llm.TextGenerator
	recorder MetaRecorder
	logger   *zap.Logger
}

// NewEstimator creates an Estimator. recorder may be nil.
func NewEstimator(textGen llm.TextGenerator, recorder MetaRecorder, logger *zap.Logger) *Estimator {
	return &Estimator{textGen: textGen, recorder: recorder, logger: logger}
}

type estimateResponse struct {
	Name         string                     `json:"name"`
	Category     string                     `json:"category"`
	Nutrition    nutrition.NutritionPer100g `json:"nutrition_per_100g"`
	PieceGrams   float64                    `json:"piece_grams"`
	ServingGrams float64                    `json:"serving_grams"`
}

// Search implements Searcher and returns at most one entry.
func (e *Estimator) Search(ctx context.Context, query string) ([]Entry, error) {
	entry, meta, err := e.Estimate(ctx, query)
	if e.recorder != nil && meta.Usage.PromptTokens > 0 {
		if rerr := e.recorder.RecordMeta(ctx, meta); rerr != nil {
			e.logger.Warn("failed to record estimator usage", zap.Error(rerr))
		}
	}
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	return []Entry{*entry}, nil
}

// Estimate returns nil when the model does not recognize a food.
func (e *Estimator) Estimate(ctx context.Context, query string) (*Entry, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: shared.AgentFoodEstimator}

	var buf bytes.Buffer
	if err := estimateTemplate.Execute(&buf, struct{ Query string }{query}); err != nil {
		return nil, meta, fmt.Errorf("failed to build estimate prompt: %w", err)
	}

	resp, err := e.textGen.GenerateContent(ctx, buf.String())
	meta.Latency = time.Since(start)
	if err != nil {
		return nil, meta, fmt.Errorf("failed to get LLM response: %w", err)
	}
	meta.Usage = resp.Usage

	var r estimateResponse
	if err := json.Unmarshal([]byte(llm.StripCodeFence(resp.Content)), &r); err != nil {
		return nil, meta, fmt.Errorf("failed to unmarshal estimate response: %w", err)
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, meta, nil
	}
	if err := r.Nutrition.Validate(); err != nil || r.Nutrition.IsZero() {
		return nil, meta, fmt.Errorf("estimate for %q has unusable nutrition", query)
	}

	entry := &Entry{
		ID:        "estimate:" + NormalizeQuery(query),
		Name:      name,
		Nutrition: r.Nutrition,
		Category:  r.Category,
		Provider:  ProviderEstimate,
	}
	if r.PieceGrams > 0 || r.ServingGrams > 0 {
		entry.Portions = map[nutrition.Unit]float64{}
		if r.PieceGrams > 0 {
			entry.Portions[nutrition.UnitPieces] = r.PieceGrams
		}
		if r.ServingGrams > 0 {
			entry.Portions[nutrition.UnitServing] = r.ServingGrams
		}
	}
	return entry, meta, nil
}
