package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"meal-estimator/internal/shared"
)

// GeminiClient talks to the Google Gemini API. It handles both text and
// image prompts and always asks for JSON output.
type GeminiClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"
	return &GeminiClient{client: client, model: model, modelName: modelName}, nil
}

// GenerateContent sends a text prompt to the model.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	return c.generate(ctx, genai.Text(prompt))
}

// GenerateFromImage sends a prompt together with an image.
func (c *GeminiClient) GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (ContentResponse, error) {
	format, err := imageFormat(mimeType)
	if err != nil {
		return ContentResponse{}, err
	}
	return c.generate(ctx, genai.ImageData(format, image), genai.Text(prompt))
}

func (c *GeminiClient) generate(ctx context.Context, parts ...genai.Part) (ContentResponse, error) {
	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if text, ok := p.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return ContentResponse{}, fmt.Errorf("generated content is not text")
	}

	usage := shared.TokenUsage{Model: c.modelName}
	if m := resp.UsageMetadata; m != nil {
		usage.PromptTokens = int(m.PromptTokenCount)
		usage.CompletionTokens = int(m.CandidatesTokenCount)
		usage.TotalTokens = int(m.TotalTokenCount)
	}
	return ContentResponse{Content: sb.String(), Usage: usage}, nil
}

// Close closes the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// imageFormat maps a MIME type to the short format genai.ImageData expects.
func imageFormat(mimeType string) (string, error) {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return "jpeg", nil
	case "image/png":
		return "png", nil
	case "image/webp":
		return "webp", nil
	case "image/heic":
		return "heic", nil
	}
	return "", fmt.Errorf("unsupported image type %q", mimeType)
}
