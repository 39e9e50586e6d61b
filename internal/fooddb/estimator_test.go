package fooddb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"meal-estimator/internal/llm"
	"meal-estimator/internal/nutrition"
	"meal-estimator/internal/shared"
)

type mockTextGen struct {
	content string
	err     error
	prompts []string
}

func (m *mockTextGen) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{
		Content: m.content,
		Usage:   shared.TokenUsage{PromptTokens: 80, CompletionTokens: 40, Model: "llama"},
	}, nil
}

type mockRecorder struct {
	metas []shared.AgentMeta
}

func (m *mockRecorder) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	m.metas = append(m.metas, meta)
	return nil
}

func TestEstimatorSearch(t *testing.T) {
	gen := &mockTextGen{content: `{
		"name": "samosa",
		"category": "snack",
		"nutrition_per_100g": {"calories": 262, "protein_g": 4.7, "carbs_g": 24, "fat_g": 17, "fiber_g": 2.1},
		"piece_grams": 60,
		"serving_grams": 0
	}`}
	rec := &mockRecorder{}
	e := NewEstimator(gen, rec, zap.NewNop())

	entries, err := e.Search(context.Background(), "Vegetable Samosa")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.Name != "samosa" || got.Provider != ProviderEstimate || got.ID != "estimate:vegetable samosa" {
		t.Errorf("Unexpected entry %+v", got)
	}
	if got.Portions[nutrition.UnitPieces] != 60 {
		t.Errorf("Expected a 60g piece preset, got %v", got.Portions)
	}
	if _, ok := got.Portions[nutrition.UnitServing]; ok {
		t.Error("Expected no serving preset")
	}
	if !strings.Contains(gen.prompts[0], `"Vegetable Samosa"`) {
		t.Errorf("Expected query in prompt, got:\n%s", gen.prompts[0])
	}
	if len(rec.metas) != 1 || rec.metas[0].AgentName != shared.AgentFoodEstimator {
		t.Errorf("Expected usage recorded once, got %+v", rec.metas)
	}
}

func TestEstimatorNotAFood(t *testing.T) {
	e := NewEstimator(&mockTextGen{content: `{"name": ""}`}, nil, zap.NewNop())
	entries, err := e.Search(context.Background(), "keyboard")
	if err != nil || entries != nil {
		t.Errorf("Expected no entries and no error, got %v, %v", entries, err)
	}
}

func TestEstimatorErrors(t *testing.T) {
	if _, err := NewEstimator(&mockTextGen{err: errors.New("boom")}, nil, zap.NewNop()).Search(context.Background(), "x"); err == nil {
		t.Error("Expected model error")
	}
	if _, err := NewEstimator(&mockTextGen{content: `{"name": "x", "nutrition_per_100g": {}}`}, nil, zap.NewNop()).Search(context.Background(), "x"); err == nil {
		t.Error("Expected error for zero nutrition")
	}
}
