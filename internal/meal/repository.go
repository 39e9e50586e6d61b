// Package meal persists logged meals and daily goals.
package meal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"meal-estimator/internal/estimate"
	"meal-estimator/internal/meal/mealdb"
	"meal-estimator/internal/nutrition"
	"meal-estimator/internal/session"
)

// Meal is a logged meal as read back from storage.
type Meal struct {
	ID         int64
	ClientID   string
	UserID     string
	MealType   session.MealType
	Items      []session.RecordItem
	Totals     nutrition.Totals
	Range      estimate.Range
	Confidence float64
	PhotoRef   string
	LoggedAt   time.Time
}

// Goals are a user's daily nutrition targets.
type Goals struct {
	Calories int     `yaml:"calories" json:"calories"`
	ProteinG float64 `yaml:"protein_g" json:"protein_g"`
	CarbsG   float64 `yaml:"carbs_g" json:"carbs_g"`
	FatG     float64 `yaml:"fat_g" json:"fat_g"`
}

// IsZero reports whether no goal is set.
func (g Goals) IsZero() bool {
	return g == Goals{}
}

// Repository handles persistence of meals and goals.
type Repository struct {
	queries *mealdb.Queries
	db      *sql.DB
}

// NewRepository creates a new meal repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{
		queries: mealdb.New(d),
		db:      d,
	}
}

// Saver binds the repository to one user so it can log meals for a session.
func (r *Repository) Saver(userID string) session.MealSaver {
	return userSaver{repo: r, userID: userID}
}

type userSaver struct {
	repo   *Repository
	userID string
}

func (s userSaver) SaveMeal(ctx context.Context, record session.MealRecord) (int64, error) {
	return s.repo.SaveMeal(ctx, s.userID, record)
}

// SaveMeal stores a committed meal. A record whose client id was already
// saved is not inserted again; the existing id is returned.
func (r *Repository) SaveMeal(ctx context.Context, userID string, record session.MealRecord) (int64, error) {
	if record.ClientID == "" {
		return 0, errors.New("meal record has no client id")
	}
	items, err := json.Marshal(record.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal meal items: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	t := record.Totals
	err = qtx.InsertMeal(ctx, mealdb.InsertMealParams{
		ClientID:   record.ClientID,
		UserID:     userID,
		MealType:   string(record.MealType),
		Items:      string(items),
		Calories:   int64(t.Calories),
		ProteinG:   t.ProteinG,
		CarbsG:     t.CarbsG,
		FatG:       t.FatG,
		FiberG:     t.FiberG,
		SugarG:     t.SugarG,
		SodiumMg:   int64(t.SodiumMg),
		RangeMin:   int64(record.Range.Min),
		RangeMax:   int64(record.Range.Max),
		Confidence: record.Confidence,
		PhotoRef:   record.PhotoRef,
		LoggedAt:   storedTime(record.LoggedAt),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert meal: %w", err)
	}

	id, err := qtx.GetMealIDByClientID(ctx, record.ClientID)
	if err != nil {
		return 0, fmt.Errorf("failed to read meal id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit meal: %w", err)
	}
	return id, nil
}

// Get returns one meal of the user, or nil if it does not exist.
func (r *Repository) Get(ctx context.Context, userID string, id int64) (*Meal, error) {
	row, err := r.queries.GetMeal(ctx, mealdb.GetMealParams{ID: id, UserID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meal %d: %w", id, err)
	}
	m, err := toMeal(row)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListRecent returns the user's latest meals, newest first.
func (r *Repository) ListRecent(ctx context.Context, userID string, limit int) ([]Meal, error) {
	rows, err := r.queries.ListRecentMeals(ctx, mealdb.ListRecentMealsParams{UserID: userID, Limit: int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent meals: %w", err)
	}
	return toMeals(rows)
}

// ListBetween returns meals logged in [from, to), oldest first.
func (r *Repository) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]Meal, error) {
	rows, err := r.queries.ListMealsBetween(ctx, mealdb.ListMealsBetweenParams{
		UserID:     userID,
		LoggedAt:   storedTime(from),
		LoggedAt_2: storedTime(to),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	return toMeals(rows)
}

// Delete removes a meal. It reports whether a meal was deleted.
func (r *Repository) Delete(ctx context.Context, userID string, id int64) (bool, error) {
	n, err := r.queries.DeleteMeal(ctx, mealdb.DeleteMealParams{ID: id, UserID: userID})
	if err != nil {
		return false, fmt.Errorf("failed to delete meal %d: %w", id, err)
	}
	return n > 0, nil
}

// DailyGoals returns the user's goals, or nil if none were saved.
func (r *Repository) DailyGoals(ctx context.Context, userID string) (*Goals, error) {
	row, err := r.queries.GetGoals(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}
	return &Goals{
		Calories: int(row.Calories),
		ProteinG: row.ProteinG,
		CarbsG:   row.CarbsG,
		FatG:     row.FatG,
	}, nil
}

// SaveDailyGoals creates or replaces the user's goals.
func (r *Repository) SaveDailyGoals(ctx context.Context, userID string, g Goals) error {
	if g.Calories < 0 || g.ProteinG < 0 || g.CarbsG < 0 || g.FatG < 0 {
		return fmt.Errorf("goals must not be negative")
	}
	err := r.queries.UpsertGoals(ctx, mealdb.UpsertGoalsParams{
		UserID:    userID,
		Calories:  int64(g.Calories),
		ProteinG:  g.ProteinG,
		CarbsG:    g.CarbsG,
		FatG:      g.FatG,
		UpdatedAt: storedTime(time.Now()),
	})
	if err != nil {
		return fmt.Errorf("failed to save goals: %w", err)
	}
	return nil
}

// Times are stored in UTC at second precision so text comparison in SQLite
// orders them correctly.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func toMeals(rows []mealdb.Meal) ([]Meal, error) {
	meals := make([]Meal, 0, len(rows))
	for _, row := range rows {
		m, err := toMeal(row)
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, nil
}

func toMeal(row mealdb.Meal) (Meal, error) {
	var items []session.RecordItem
	if err := json.Unmarshal([]byte(row.Items), &items); err != nil {
		return Meal{}, fmt.Errorf("failed to unmarshal items of meal %d: %w", row.ID, err)
	}
	return Meal{
		ID:       row.ID,
		ClientID: row.ClientID,
		UserID:   row.UserID,
		MealType: session.MealType(row.MealType),
		Items:    items,
		Totals: nutrition.Totals{
			Calories: int(row.Calories),
			ProteinG: row.ProteinG,
			CarbsG:   row.CarbsG,
			FatG:     row.FatG,
			FiberG:   row.FiberG,
			SugarG:   row.SugarG,
			SodiumMg: int(row.SodiumMg),
		},
		Range:      estimate.Range{Min: int(row.RangeMin), Max: int(row.RangeMax)},
		Confidence: row.Confidence,
		PhotoRef:   row.PhotoRef,
		LoggedAt:   row.LoggedAt,
	}, nil
}

// Sum adds up the totals of the given meals.
func Sum(meals []Meal) nutrition.Totals {
	var t nutrition.Totals
	for _, m := range meals {
		t = t.Add(m.Totals)
	}
	return t
}
