// Package app wires the meal session to its collaborators: the photo
// scanner, food databases, photo storage and the meal repository.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"meal-estimator/internal/config"
	"meal-estimator/internal/fooddb"
	"meal-estimator/internal/meal"
	"meal-estimator/internal/nutrition"
	"meal-estimator/internal/session"
	"meal-estimator/internal/shared"
	"meal-estimator/internal/storage"
	"meal-estimator/internal/vision"
)

// ErrClipperDisabled is returned when page clipping is requested but no text
// model is configured.
var ErrClipperDisabled = errors.New("page clipping is not configured")

// MealStore persists logged meals and daily goals.
type MealStore interface {
	Saver(userID string) session.MealSaver
	ListRecent(ctx context.Context, userID string, limit int) ([]meal.Meal, error)
	ListBetween(ctx context.Context, userID string, from, to time.Time) ([]meal.Meal, error)
	Delete(ctx context.Context, userID string, id int64) (bool, error)
	DailyGoals(ctx context.Context, userID string) (*meal.Goals, error)
	SaveDailyGoals(ctx context.Context, userID string, g meal.Goals) error
}

// PageClipper extracts a food entry from a web page.
type PageClipper interface {
	ClipURL(ctx context.Context, rawURL string) (fooddb.Entry, shared.AgentMeta, error)
}

// App holds the application's dependencies.
type App struct {
	scanner  vision.Scanner
	foods    fooddb.Searcher
	meals    MealStore
	recorder fooddb.MetaRecorder
	logger   *zap.Logger

	clipper      PageClipper
	photos       storage.PhotoStore
	defaultGoals meal.Goals
	now          func() time.Time
}

// Option configures optional collaborators.
type Option func(*App)

// WithClipper enables adding foods from recipe and product pages.
func WithClipper(c PageClipper) Option {
	return func(a *App) { a.clipper = c }
}

// WithPhotoStore keeps scanned photos and attaches their reference to the meal.
func WithPhotoStore(p storage.PhotoStore) Option {
	return func(a *App) { a.photos = p }
}

// WithDefaultGoals sets the goals used for users without their own.
func WithDefaultGoals(g config.DefaultGoals) Option {
	return func(a *App) {
		a.defaultGoals = meal.Goals{Calories: g.Calories, ProteinG: g.ProteinG, CarbsG: g.CarbsG, FatG: g.FatG}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// NewApp creates and initializes a new App instance. recorder may be nil.
func NewApp(
	scanner vision.Scanner,
	foods fooddb.Searcher,
	meals MealStore,
	recorder fooddb.MetaRecorder,
	logger *zap.Logger,
	opts ...Option,
) *App {
	a := &App{
		scanner:  scanner,
		foods:    foods,
		meals:    meals,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewSession starts an empty pending meal for a user.
func (a *App) NewSession(userID string) *session.Session {
	return session.New(a.meals.Saver(userID), session.WithClock(a.now))
}

// LogMeal commits the session. On failure the session keeps its items so the
// caller can retry.
func (a *App) LogMeal(ctx context.Context, userID string, s *session.Session) (session.MealRecord, error) {
	rec, err := s.Commit(ctx)
	if err != nil {
		var perr *session.PersistenceError
		if errors.As(err, &perr) {
			a.logger.Error("failed to log meal", zap.String("user_id", userID), zap.Error(perr.Err))
		}
		return session.MealRecord{}, err
	}
	a.logger.Info("meal logged",
		zap.String("user_id", userID),
		zap.Int64("meal_id", rec.MealID),
		zap.String("meal_type", string(rec.MealType)),
		zap.Int("calories", rec.Totals.Calories),
		zap.Int("items", len(rec.Items)),
	)
	return rec, nil
}

// History returns the user's latest meals.
func (a *App) History(ctx context.Context, userID string, limit int) ([]meal.Meal, error) {
	if limit <= 0 {
		limit = 10
	}
	return a.meals.ListRecent(ctx, userID, limit)
}

// DeleteMeal removes a logged meal and its stored photo.
func (a *App) DeleteMeal(ctx context.Context, userID string, m meal.Meal) error {
	ok, err := a.meals.Delete(ctx, userID, m.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("meal %d not found", m.ID)
	}
	if m.PhotoRef != "" && a.photos != nil {
		if err := a.photos.Delete(ctx, m.PhotoRef); err != nil {
			a.logger.Warn("failed to delete meal photo", zap.String("ref", m.PhotoRef), zap.Error(err))
		}
	}
	return nil
}

// Goals returns the user's daily goals, falling back to the configured
// defaults when none were saved.
func (a *App) Goals(ctx context.Context, userID string) (meal.Goals, error) {
	g, err := a.meals.DailyGoals(ctx, userID)
	if err != nil {
		return meal.Goals{}, err
	}
	if g == nil {
		return a.defaultGoals, nil
	}
	return *g, nil
}

// SetGoals saves the user's daily goals.
func (a *App) SetGoals(ctx context.Context, userID string, g meal.Goals) error {
	return a.meals.SaveDailyGoals(ctx, userID, g)
}

// DaySummary is what was eaten on one day, against the user's goals.
type DaySummary struct {
	Day       time.Time
	Meals     []meal.Meal
	Totals    nutrition.Totals
	Goals     meal.Goals
	Remaining nutrition.Totals
}

// Summary sums the meals logged on day (in day's location) and compares them
// with the user's goals, falling back to the configured defaults.
func (a *App) Summary(ctx context.Context, userID string, day time.Time) (DaySummary, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	meals, err := a.meals.ListBetween(ctx, userID, from, to)
	if err != nil {
		return DaySummary{}, err
	}
	goals, err := a.Goals(ctx, userID)
	if err != nil {
		return DaySummary{}, err
	}

	sum := DaySummary{Day: from, Meals: meals, Totals: meal.Sum(meals), Goals: goals}
	sum.Remaining = nutrition.Totals{
		Calories: sum.Goals.Calories - sum.Totals.Calories,
		ProteinG: nutrition.Round1(sum.Goals.ProteinG - sum.Totals.ProteinG),
		CarbsG:   nutrition.Round1(sum.Goals.CarbsG - sum.Totals.CarbsG),
		FatG:     nutrition.Round1(sum.Goals.FatG - sum.Totals.FatG),
	}
	return sum, nil
}

// Today is Summary for the current day.
func (a *App) Today(ctx context.Context, userID string) (DaySummary, error) {
	return a.Summary(ctx, userID, a.now())
}

func (a *App) record(ctx context.Context, meta shared.AgentMeta) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.RecordMeta(ctx, meta); err != nil {
		a.logger.Warn("failed to record metrics", zap.String("agent", meta.AgentName), zap.Error(err))
	}
}
