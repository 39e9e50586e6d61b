package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"meal-estimator/internal/config"
	"meal-estimator/internal/database"
	"meal-estimator/internal/fooddb"
	"meal-estimator/internal/meal"
	"meal-estimator/internal/metrics"
	"meal-estimator/internal/nutrition"
	"meal-estimator/internal/session"
	"meal-estimator/internal/shared"
	"meal-estimator/internal/storage"
)

// --- Mocks ---

type mockScanner struct {
	result session.ScanResult
	err    error
	hint   string
}

func (m *mockScanner) Scan(ctx context.Context, image []byte, mimeType, hint string) (session.ScanResult, shared.AgentMeta, error) {
	m.hint = hint
	meta := shared.AgentMeta{
		AgentName: shared.AgentMealScanner,
		Usage:     shared.TokenUsage{Model: "gemini-test", PromptTokens: 1200, CompletionTokens: 150},
		Latency:   2 * time.Second,
	}
	return m.result, meta, m.err
}

type mockSearcher struct {
	entries map[string][]fooddb.Entry
	err     error
	queries []string
}

func (m *mockSearcher) Search(ctx context.Context, query string) ([]fooddb.Entry, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return m.entries[fooddb.NormalizeQuery(query)], nil
}

type mockClipper struct {
	entry fooddb.Entry
	err   error
}

func (m *mockClipper) ClipURL(ctx context.Context, rawURL string) (fooddb.Entry, shared.AgentMeta, error) {
	return m.entry, shared.AgentMeta{AgentName: shared.AgentPageClipper}, m.err
}

var apple = fooddb.Entry{
	ID:        "off:apple",
	Name:      "Apple",
	Nutrition: nutrition.NutritionPer100g{Calories: 52, ProteinG: 0.3, CarbsG: 14, FatG: 0.2},
	Portions:  map[nutrition.Unit]float64{nutrition.UnitPieces: 182},
	Category:  "fruit",
	Provider:  fooddb.ProviderOpenFoodFacts,
}

var sauce = fooddb.Entry{
	ID:        "off:sauce",
	Name:      "Teriyaki sauce",
	Nutrition: nutrition.NutritionPer100g{Calories: 200, ProteinG: 3, CarbsG: 40, FatG: 0.5},
	Provider:  fooddb.ProviderOpenFoodFacts,
}

func riceAndSauce() session.ScanResult {
	return session.ScanResult{
		PhotoQuality: session.PhotoQualityGood,
		Items: []session.DetectedFoodItem{
			{
				Name:       "white rice",
				Portion:    nutrition.Portion{Quantity: 150, Unit: nutrition.UnitGrams},
				Grams:      150,
				Confidence: 0.8,
				Nutrition:  &nutrition.NutritionPer100g{Calories: 130, ProteinG: 2.7, CarbsG: 28, FatG: 0.3},
			},
			{
				Name:       "teriyaki sauce",
				Portion:    nutrition.Portion{Quantity: 50, Unit: nutrition.UnitGrams},
				Grams:      50,
				Confidence: 0.6,
				Flags:      []string{"possible_sauce"},
			},
		},
	}
}

type fixture struct {
	app      *App
	scanner  *mockScanner
	searcher *mockSearcher
	meals    *meal.Repository
	metrics  *metrics.Store
	photos   *storage.FileStore
}

var noon = time.Date(2026, 7, 1, 12, 30, 0, 0, time.UTC)

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "meals.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	photos, err := storage.NewFileStore(filepath.Join(t.TempDir(), "photos"))
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		scanner:  &mockScanner{result: riceAndSauce()},
		searcher: &mockSearcher{entries: map[string][]fooddb.Entry{"apple": {apple}, "teriyaki sauce": {sauce}}},
		meals:    meal.NewRepository(db.SQL),
		metrics:  metrics.NewStore(db.SQL),
		photos:   photos,
	}
	opts = append([]Option{
		WithPhotoStore(photos),
		WithClock(func() time.Time { return noon }),
		WithDefaultGoals(config.DefaultGoals{Calories: 2000, ProteinG: 120, CarbsG: 250, FatG: 65}),
	}, opts...)
	f.app = NewApp(f.scanner, f.searcher, f.meals, f.metrics, zap.NewNop(), opts...)
	return f
}

// --- Tests ---

func TestScanMeal_ResolvesMissingNutrition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.app.NewSession("42")

	view, err := f.app.ScanMeal(ctx, "42", s, []byte{0xff, 0xd8}, "image/jpeg", "chicken bowl")
	if err != nil {
		t.Fatalf("ScanMeal failed: %v", err)
	}
	if f.scanner.hint != "chicken bowl" {
		t.Errorf("Expected hint to reach the scanner, got %q", f.scanner.hint)
	}
	// 150g rice at 130 kcal + 50g sauce at 200 kcal.
	if view.Totals.Calories != 295 {
		t.Errorf("Expected 295 kcal, got %d", view.Totals.Calories)
	}
	if view.ItemCount != 2 || view.IncludedCount != 2 {
		t.Errorf("Expected 2 included items, got %d/%d", view.IncludedCount, view.ItemCount)
	}

	var sauceItem nutrition.FoodItem
	for _, it := range s.Items() {
		if it.Name == "teriyaki sauce" {
			sauceItem = it
		}
	}
	if sauceItem.Source != nutrition.SourceDatabase {
		t.Errorf("Expected resolved item to be database-sourced, got %s", sauceItem.Source)
	}

	if s.PhotoRef() == "" {
		t.Fatal("Expected photo reference to be attached")
	}
	if _, err := f.photos.Load(ctx, s.PhotoRef()); err != nil {
		t.Errorf("Expected stored photo, got %v", err)
	}

	usage, err := f.metrics.GetDailyUsage(ctx, 1)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 1 || usage[0].TotalExecution != 1 || usage[0].TotalPrompt != 1200 {
		t.Errorf("Expected one recorded scan, got %+v", usage)
	}
}

func TestScanMeal_UnresolvedItems(t *testing.T) {
	f := newFixture(t)
	f.searcher.entries = nil
	s := f.app.NewSession("42")

	view, err := f.app.ScanMeal(context.Background(), "42", s, []byte{1}, "image/png", "")
	var missing *session.MissingNutritionError
	if !errors.As(err, &missing) || missing.ItemName != "teriyaki sauce" {
		t.Fatalf("Expected missing nutrition for sauce, got %v", err)
	}
	if view.ItemCount != 2 || view.Totals.Calories != 195 {
		t.Errorf("Expected both items kept with 195 kcal, got %d items, %d kcal", view.ItemCount, view.Totals.Calories)
	}
}

func TestScanMeal_KeepsValidItemsOfMixedScan(t *testing.T) {
	mystery := session.DetectedFoodItem{
		Name:       "mystery",
		Portion:    nutrition.Portion{Quantity: 1, Unit: nutrition.UnitPieces},
		Confidence: 0.5,
	}

	t.Run("SkippedAndResolved", func(t *testing.T) {
		f := newFixture(t)
		f.scanner.result.Items = append(f.scanner.result.Items, mystery)
		s := f.app.NewSession("42")

		view, err := f.app.ScanMeal(context.Background(), "42", s, []byte{1}, "image/jpeg", "")
		var verr *session.ValidationError
		if !errors.As(err, &verr) || verr.Field != "grams" {
			t.Fatalf("Expected the skipped item to be reported, got %v", err)
		}
		problems, ok := ItemProblems(err)
		if !ok || len(problems) != 1 {
			t.Errorf("Expected one per-item problem, got %v (ok=%v)", problems, ok)
		}
		if view.ItemCount != 2 || view.Totals.Calories != 295 {
			t.Errorf("Expected rice and resolved sauce at 295 kcal, got %d items, %d kcal", view.ItemCount, view.Totals.Calories)
		}
	})

	t.Run("SkippedOnly", func(t *testing.T) {
		f := newFixture(t)
		f.scanner.result.Items = []session.DetectedFoodItem{f.scanner.result.Items[0], mystery}
		s := f.app.NewSession("42")

		view, err := f.app.ScanMeal(context.Background(), "42", s, []byte{1}, "image/jpeg", "")
		problems, ok := ItemProblems(err)
		if err == nil || !ok || len(problems) != 1 {
			t.Fatalf("Expected only a per-item problem, got %v", err)
		}
		if view.ItemCount != 1 || view.Totals.Calories != 195 {
			t.Errorf("Expected rice kept at 195 kcal, got %d items, %d kcal", view.ItemCount, view.Totals.Calories)
		}
	})

	t.Run("SkippedAndUnresolved", func(t *testing.T) {
		f := newFixture(t)
		f.searcher.entries = nil
		f.scanner.result.Items = append(f.scanner.result.Items, mystery)
		s := f.app.NewSession("42")

		_, err := f.app.ScanMeal(context.Background(), "42", s, []byte{1}, "image/jpeg", "")
		problems, ok := ItemProblems(err)
		if !ok || len(problems) != 2 {
			t.Fatalf("Expected skipped and missing items, got %v", err)
		}
		var missing *session.MissingNutritionError
		if !errors.As(err, &missing) || missing.ItemName != "teriyaki sauce" {
			t.Errorf("Expected missing nutrition for sauce, got %v", err)
		}
	})
}

func TestItemProblems(t *testing.T) {
	if p, ok := ItemProblems(nil); !ok || p != nil {
		t.Errorf("Expected no problems for nil, got %v", p)
	}
	if _, ok := ItemProblems(fmt.Errorf("quota exceeded")); ok {
		t.Error("Expected a plain error to be a failure")
	}
	mixed := errors.Join(&session.ValidationError{Field: "grams"}, errors.New("boom"))
	if _, ok := ItemProblems(mixed); ok {
		t.Error("Expected a joined failure to be a failure")
	}
}

func TestScanMeal_ScannerError(t *testing.T) {
	f := newFixture(t)
	f.scanner.err = fmt.Errorf("quota exceeded")
	s := f.app.NewSession("42")

	view, err := f.app.ScanMeal(context.Background(), "42", s, []byte{1}, "image/jpeg", "")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if view.State != session.StateEmpty || s.PhotoRef() != "" {
		t.Errorf("Expected untouched session, got %+v", view)
	}
}

func TestAddFromQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.app.NewSession("7")

	entry, view, err := f.app.AddFromQuery(ctx, s, "Apple", nutrition.Portion{Quantity: 1, Unit: nutrition.UnitPieces})
	if err != nil {
		t.Fatalf("AddFromQuery failed: %v", err)
	}
	if entry.ID != apple.ID {
		t.Errorf("Expected apple entry, got %+v", entry)
	}
	if view.Totals.Calories != 95 {
		t.Errorf("Expected 95 kcal for one apple, got %d", view.Totals.Calories)
	}
	if items := s.Items(); items[0].Source != nutrition.SourceManual || items[0].Grams != 182 {
		t.Errorf("Unexpected item %+v", items[0])
	}

	if _, _, err := f.app.AddFromQuery(ctx, s, "unobtainium", nutrition.Portion{Quantity: 1, Unit: nutrition.UnitGrams}); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Expected ErrNoMatch, got %v", err)
	}

	f.searcher.err = fmt.Errorf("connection refused")
	if _, _, err := f.app.AddFromQuery(ctx, s, "apple", nutrition.Portion{Quantity: 100, Unit: nutrition.UnitGrams}); err == nil {
		t.Error("Expected search error to surface")
	}
}

func TestAddFromURL(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		f := newFixture(t)
		s := f.app.NewSession("7")
		if _, _, err := f.app.AddFromURL(context.Background(), s, "https://example.com", nutrition.Portion{Quantity: 100, Unit: nutrition.UnitGrams}); !errors.Is(err, ErrClipperDisabled) {
			t.Errorf("Expected ErrClipperDisabled, got %v", err)
		}
	})

	t.Run("Clipped", func(t *testing.T) {
		pancakes := fooddb.Entry{
			Name:      "Pancakes",
			Nutrition: nutrition.NutritionPer100g{Calories: 295, ProteinG: 7.8, CarbsG: 37, FatG: 12.6},
			Portions:  map[nutrition.Unit]float64{nutrition.UnitServing: 77},
			Provider:  fooddb.ProviderClipped,
		}
		f := newFixture(t, WithClipper(&mockClipper{entry: pancakes}))
		s := f.app.NewSession("7")

		_, view, err := f.app.AddFromURL(context.Background(), s, "https://example.com/pancakes", nutrition.Portion{Quantity: 2, Unit: nutrition.UnitServing})
		if err != nil {
			t.Fatalf("AddFromURL failed: %v", err)
		}
		// 154g at 295 kcal/100g
		if view.Totals.Calories != 454 {
			t.Errorf("Expected 454 kcal, got %d", view.Totals.Calories)
		}
	})
}

func TestLogMealAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.app.NewSession("42")

	if _, err := f.app.LogMeal(ctx, "42", s); !errors.Is(err, session.ErrEmptySelection) {
		t.Fatalf("Expected ErrEmptySelection, got %v", err)
	}

	if _, err := f.app.ScanMeal(ctx, "42", s, []byte{1}, "image/jpeg", ""); err != nil {
		t.Fatalf("ScanMeal failed: %v", err)
	}
	rec, err := f.app.LogMeal(ctx, "42", s)
	if err != nil {
		t.Fatalf("LogMeal failed: %v", err)
	}
	if rec.MealID == 0 || rec.MealType != session.MealTypeLunch {
		t.Errorf("Unexpected record %+v", rec)
	}
	if s.State() != session.StateCommitted {
		t.Errorf("Expected committed session, got %s", s.State())
	}

	sum, err := f.app.Today(ctx, "42")
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}
	if len(sum.Meals) != 1 || sum.Totals.Calories != 295 {
		t.Errorf("Expected one 295 kcal meal, got %d meals, %d kcal", len(sum.Meals), sum.Totals.Calories)
	}
	if sum.Goals.Calories != 2000 || sum.Remaining.Calories != 1705 {
		t.Errorf("Expected default goals with 1705 kcal left, got %+v / %+v", sum.Goals, sum.Remaining)
	}

	if g, err := f.app.Goals(ctx, "42"); err != nil || g.ProteinG != 120 {
		t.Errorf("Expected default goals before saving, got %+v, %v", g, err)
	}
	if err := f.app.SetGoals(ctx, "42", meal.Goals{Calories: 1800, ProteinG: 100}); err != nil {
		t.Fatalf("SetGoals failed: %v", err)
	}
	if g, err := f.app.Goals(ctx, "42"); err != nil || g.Calories != 1800 || g.ProteinG != 100 {
		t.Errorf("Expected saved goals, got %+v, %v", g, err)
	}
	sum, _ = f.app.Today(ctx, "42")
	if sum.Remaining.Calories != 1505 {
		t.Errorf("Expected user goals to win, got %+v", sum.Remaining)
	}

	other, _ := f.app.Summary(ctx, "42", noon.AddDate(0, 0, 1))
	if len(other.Meals) != 0 {
		t.Errorf("Expected no meals the next day, got %d", len(other.Meals))
	}

	history, err := f.app.History(ctx, "42", 0)
	if err != nil || len(history) != 1 {
		t.Fatalf("Expected one meal in history, got %d, %v", len(history), err)
	}
	if err := f.app.DeleteMeal(ctx, "42", history[0]); err != nil {
		t.Fatalf("DeleteMeal failed: %v", err)
	}
	if _, err := f.photos.Load(ctx, history[0].PhotoRef); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected photo to be deleted, got %v", err)
	}
	if err := f.app.DeleteMeal(ctx, "42", history[0]); err == nil {
		t.Error("Expected deleting twice to fail")
	}
}
