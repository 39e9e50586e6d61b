package fooddb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"meal-estimator/internal/nutrition"
)

const (
	offPageSize  = 10
	offUserAgent = "meal-estimator/1.0"
	kjPerKcal    = 4.184
)

// OpenFoodFacts searches the Open Food Facts product database.
type OpenFoodFacts struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOpenFoodFacts creates a client for the given base URL, for example
// https://world.openfoodfacts.org.
func NewOpenFoodFacts(baseURL string, logger *zap.Logger) *OpenFoodFacts {
	return &OpenFoodFacts{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type offSearchResponse struct {
	Products []offProduct `json:"products"`
}

type offProduct struct {
	Code            string         `json:"code"`
	ProductName     string         `json:"product_name"`
	ProductNameEn   string         `json:"product_name_en"`
	GenericName     string         `json:"generic_name"`
	Brands          string         `json:"brands"`
	Nutriments      map[string]any `json:"nutriments"`
	ServingQuantity any            `json:"serving_quantity"`
	CategoriesTags  []string       `json:"categories_tags"`
}

// Search implements Searcher. Products without a name or calories are skipped.
func (c *OpenFoodFacts) Search(ctx context.Context, query string) ([]Entry, error) {
	q := url.Values{}
	q.Set("search_terms", query)
	q.Set("search_simple", "1")
	q.Set("action", "process")
	q.Set("json", "1")
	q.Set("page_size", strconv.Itoa(offPageSize))
	q.Set("fields", "code,product_name,product_name_en,generic_name,brands,nutriments,serving_quantity,categories_tags")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cgi/search.pl?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", offUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call open food facts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("open food facts error %d: %s", resp.StatusCode, string(body))
	}

	var sr offSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to parse open food facts response: %w", err)
	}

	entries := make([]Entry, 0, len(sr.Products))
	for _, p := range sr.Products {
		e, ok := p.entry()
		if !ok {
			continue
		}
		entries = append(entries, e)
	}
	c.logger.Debug("open food facts search",
		zap.String("query", query),
		zap.Int("products", len(sr.Products)),
		zap.Int("usable", len(entries)),
	)
	return entries, nil
}

func (p offProduct) name() string {
	for _, n := range []string{p.ProductName, p.ProductNameEn, p.GenericName} {
		if n = strings.TrimSpace(n); n != "" {
			return n
		}
	}
	return ""
}

func (p offProduct) entry() (Entry, bool) {
	name := p.name()
	if name == "" {
		return Entry{}, false
	}

	kcal, ok := nutriment(p.Nutriments, "energy-kcal_100g", 0, 1000)
	if !ok {
		kj, ok := nutriment(p.Nutriments, "energy-kj_100g", 0, 4184)
		if !ok {
			return Entry{}, false
		}
		kcal = kj / kjPerKcal
	}

	n := nutrition.NutritionPer100g{Calories: nutrition.Round1(kcal)}
	n.ProteinG, _ = nutriment(p.Nutriments, "proteins_100g", 0, 100)
	n.CarbsG, _ = nutriment(p.Nutriments, "carbohydrates_100g", 0, 100)
	n.FatG, _ = nutriment(p.Nutriments, "fat_100g", 0, 100)
	if v, ok := nutriment(p.Nutriments, "fiber_100g", 0, 100); ok {
		n.FiberG = nutrition.Float(v)
	}
	if v, ok := nutriment(p.Nutriments, "sugars_100g", 0, 100); ok {
		n.SugarG = nutrition.Float(v)
	}
	// Sodium is reported in grams.
	if v, ok := nutriment(p.Nutriments, "sodium_100g", 0, 100); ok {
		n.SodiumMg = nutrition.Float(math.Round(v * 1000))
	}

	e := Entry{
		ID:        p.Code,
		Name:      name,
		Brand:     firstBrand(p.Brands),
		Nutrition: n,
		Provider:  ProviderOpenFoodFacts,
	}
	if g, ok := toFloat(p.ServingQuantity); ok && g > 0 {
		e.Portions = map[nutrition.Unit]float64{nutrition.UnitServing: g}
	}
	if len(p.CategoriesTags) > 0 {
		e.Category = strings.TrimPrefix(p.CategoriesTags[len(p.CategoriesTags)-1], "en:")
	}
	return e, true
}

func firstBrand(brands string) string {
	b, _, _ := strings.Cut(brands, ",")
	return strings.TrimSpace(b)
}

// nutriment reads a value and rejects anything outside [min, max].
func nutriment(m map[string]any, key string, min, max float64) (float64, bool) {
	v, ok := toFloat(m[key])
	if !ok || v < min || v > max {
		return 0, false
	}
	return v, true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
