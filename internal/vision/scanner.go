// Package vision turns a meal photo into detected food items using a
// multimodal model.
package vision

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"
	"time"

	"go.uber.org/zap"

	"meal-estimator/internal/llm"
	"meal-estimator/internal/nutrition"
	"meal-estimator/internal/session"
	"meal-estimator/internal/shared"
)

//go:embed scan_prompt.md
var scanPrompt string

var scanTemplate = template.Must(template.New("scan").Parse(scanPrompt))

// MaxImageBytes bounds the photo size sent to the model.
const MaxImageBytes = 10 << 20

// ErrNoFood is returned when the photo shows nothing edible.
var ErrNoFood = errors.New("no food detected in photo")

// Scanner detects food in a photo.
type Scanner interface {
	Scan(ctx context.Context, image []byte, mimeType, hint string) (session.ScanResult, shared.AgentMeta, error)
}

// ModelScanner is a Scanner backed by a vision model.
type ModelScanner struct {
	gen    llm.VisionGenerator
	logger *zap.Logger
}

// NewScanner creates a Scanner on top of gen.
func NewScanner(gen llm.VisionGenerator, logger *zap.Logger) *ModelScanner {
	return &ModelScanner{gen: gen, logger: logger}
}

type promptData struct {
	Units []nutrition.Unit
	Flags []nutrition.RiskFlag
	Hint  string
}

// Scan sends the photo to the model and parses its answer. hint is an
// optional free-text description from the user.
func (s *ModelScanner) Scan(ctx context.Context, image []byte, mimeType, hint string) (session.ScanResult, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: shared.AgentMealScanner}

	if len(image) == 0 {
		return session.ScanResult{}, meta, fmt.Errorf("empty image")
	}
	if len(image) > MaxImageBytes {
		return session.ScanResult{}, meta, fmt.Errorf("image too large: %d bytes", len(image))
	}

	prompt, err := buildPrompt(hint)
	if err != nil {
		return session.ScanResult{}, meta, fmt.Errorf("failed to build scan prompt: %w", err)
	}

	resp, err := s.gen.GenerateFromImage(ctx, prompt, image, mimeType)
	meta.Latency = time.Since(start)
	if err != nil {
		return session.ScanResult{}, meta, fmt.Errorf("failed to scan photo: %w", err)
	}
	meta.Usage = resp.Usage

	result, err := ParseScan(resp.Content)
	if err != nil {
		s.logger.Warn("unparseable scan response",
			zap.Error(err),
			zap.Int("response_len", len(resp.Content)),
		)
		return session.ScanResult{}, meta, err
	}

	s.logger.Info("photo scanned",
		zap.Int("items", len(result.Items)),
		zap.String("photo_quality", string(result.PhotoQuality)),
		zap.Duration("latency", meta.Latency),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
	)
	if len(result.Items) == 0 {
		return result, meta, ErrNoFood
	}
	return result, meta, nil
}

// ParseScan decodes a model answer into a ScanResult. Unknown photo quality
// values are treated as fair.
func ParseScan(content string) (session.ScanResult, error) {
	var result session.ScanResult
	if err := json.Unmarshal([]byte(llm.StripCodeFence(content)), &result); err != nil {
		return session.ScanResult{}, fmt.Errorf("failed to unmarshal scan response: %w", err)
	}
	switch result.PhotoQuality {
	case session.PhotoQualityGood, session.PhotoQualityFair, session.PhotoQualityPoor:
	default:
		result.PhotoQuality = session.PhotoQualityFair
	}
	for i := range result.Items {
		if u, err := nutrition.ParseUnit(string(result.Items[i].Portion.Unit)); err == nil {
			result.Items[i].Portion.Unit = u
		}
	}
	return result, nil
}

func buildPrompt(hint string) (string, error) {
	data := promptData{
		Units: []nutrition.Unit{
			nutrition.UnitGrams, nutrition.UnitCups, nutrition.UnitTbsp, nutrition.UnitTsp,
			nutrition.UnitPieces, nutrition.UnitOz, nutrition.UnitMl, nutrition.UnitServing,
		},
		Flags: nutrition.AllFlags,
		Hint:  hint,
	}
	var buf bytes.Buffer
	if err := scanTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
