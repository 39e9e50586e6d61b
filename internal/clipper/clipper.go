// Package clipper reads nutrition facts from recipe and product web pages.
package clipper

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"meal-estimator/internal/fooddb"
	"meal-estimator/internal/llm"
	"meal-estimator/internal/nutrition"
	"meal-estimator/internal/shared"
)

//go:embed clip_prompt.md
var clipPrompt string

var clipTemplate = template.Must(template.New("clip").Parse(clipPrompt))

// maxContentChars caps the page text sent to the model.
const maxContentChars = 12000

// ErrNoNutrition is returned when the page has no nutrition facts.
var ErrNoNutrition = errors.New("no nutrition information found on page")

// Clipper handles fetching and extracting nutrition facts from URLs.
type Clipper struct {
	textGen    llm.TextGenerator
	httpClient *http.Client
	logger     *zap.Logger
}

type extracted struct {
	Name         string                     `json:"name"`
	Category     string                     `json:"category"`
	ServingGrams float64                    `json:"serving_grams"`
	Nutrition    nutrition.NutritionPer100g `json:"nutrition_per_100g"`
}

type page struct {
	Content        string
	StructuredData string
}

// NewClipper creates a new Clipper instance.
func NewClipper(textGen llm.TextGenerator, logger *zap.Logger) *Clipper {
	return &Clipper{
		textGen:    textGen,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// ClipURL fetches the page and turns its nutrition facts into a food entry.
func (c *Clipper) ClipURL(ctx context.Context, rawURL string) (fooddb.Entry, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: shared.AgentPageClipper}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fooddb.Entry{}, meta, fmt.Errorf("invalid url %q", rawURL)
	}

	p, err := c.fetchAndCleanHTML(ctx, u.String())
	if err != nil {
		return fooddb.Entry{}, meta, fmt.Errorf("failed to fetch content: %w", err)
	}

	var buf bytes.Buffer
	if err := clipTemplate.Execute(&buf, p); err != nil {
		return fooddb.Entry{}, meta, fmt.Errorf("failed to build clip prompt: %w", err)
	}

	resp, err := c.textGen.GenerateContent(ctx, buf.String())
	meta.Latency = time.Since(start)
	if err != nil {
		return fooddb.Entry{}, meta, fmt.Errorf("ai extraction failed: %w", err)
	}
	meta.Usage = resp.Usage

	var ex extracted
	if err := json.Unmarshal([]byte(llm.StripCodeFence(resp.Content)), &ex); err != nil {
		return fooddb.Entry{}, meta, fmt.Errorf("failed to parse AI response: %w", err)
	}
	if strings.TrimSpace(ex.Name) == "" || ex.Nutrition.IsZero() {
		return fooddb.Entry{}, meta, ErrNoNutrition
	}
	if err := ex.Nutrition.Validate(); err != nil {
		return fooddb.Entry{}, meta, fmt.Errorf("clipped nutrition is invalid: %w", err)
	}

	entry := fooddb.Entry{
		ID:        u.String(),
		Name:      strings.TrimSpace(ex.Name),
		Brand:     u.Hostname(),
		Nutrition: ex.Nutrition,
		Category:  ex.Category,
		Provider:  fooddb.ProviderClipped,
	}
	if ex.ServingGrams > 0 {
		entry.Portions = map[nutrition.Unit]float64{nutrition.UnitServing: ex.ServingGrams}
	}

	c.logger.Info("page clipped",
		zap.String("host", u.Hostname()),
		zap.String("name", entry.Name),
		zap.Float64("calories_per_100g", entry.Nutrition.Calories),
	)
	return entry, meta, nil
}

func (c *Clipper) fetchAndCleanHTML(ctx context.Context, pageURL string) (page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return page{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return page{}, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return page{}, err
	}

	// Recipe sites publish schema.org NutritionInformation as JSON-LD.
	var structured []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if strings.Contains(text, "nutrition") || strings.Contains(text, "NutritionInformation") {
			structured = append(structured, text)
		}
	})

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, noscript, svg, ads, .ads, #ads, .comments, #comments").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	return page{
		Content:        truncate(collapseSpace(doc.Find("body").Text()), maxContentChars),
		StructuredData: truncate(strings.Join(structured, "\n"), maxContentChars/2),
	}, nil
}

func collapseSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
