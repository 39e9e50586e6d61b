package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"meal-estimator/internal/fooddb"
	"meal-estimator/internal/nutrition"
	"meal-estimator/internal/session"
)

// ErrNoMatch is returned when no food database knows a query.
var ErrNoMatch = errors.New("no matching food found")

// ScanMeal scans a meal photo into the session. The photo is stored when a
// photo store is configured. Items the scanner gave no nutrition for are
// looked up in the food database. Items that were skipped or remain
// unresolved are reported alongside the updated view; see ItemProblems.
func (a *App) ScanMeal(ctx context.Context, userID string, s *session.Session, image []byte, mimeType, hint string) (session.View, error) {
	result, meta, err := a.scanner.Scan(ctx, image, mimeType, hint)
	a.record(ctx, meta)
	if err != nil {
		return s.View(), fmt.Errorf("failed to scan meal photo: %w", err)
	}

	if a.photos != nil {
		ref, err := a.photos.Save(ctx, userID, image, mimeType)
		if err != nil {
			a.logger.Warn("failed to store meal photo", zap.String("user_id", userID), zap.Error(err))
		} else if err := s.SetPhoto(ref); err != nil {
			return s.View(), err
		}
	}

	view, err := s.AddDetected(result)
	if err == nil {
		return view, nil
	}
	var problems []error
	resolve := false
	for _, e := range flatten(err) {
		var missing *session.MissingNutritionError
		if errors.As(e, &missing) {
			resolve = true
			continue
		}
		problems = append(problems, e)
	}
	for _, e := range problems {
		a.logger.Info("scanned item skipped", zap.String("user_id", userID), zap.Error(e))
	}
	if resolve {
		view, err = a.ResolveMissing(ctx, s)
		problems = append(problems, err)
	}
	return view, errors.Join(problems...)
}

// ItemProblems splits err into per-item problems: skipped items
// (*session.ValidationError) and items without nutrition
// (*session.MissingNutritionError). ok is false when err holds anything else,
// in which case the operation failed as a whole.
func ItemProblems(err error) (problems []error, ok bool) {
	if err == nil {
		return nil, true
	}
	for _, e := range flatten(err) {
		var verr *session.ValidationError
		var missing *session.MissingNutritionError
		if !errors.As(e, &verr) && !errors.As(e, &missing) {
			return nil, false
		}
		problems = append(problems, e)
	}
	return problems, true
}

func flatten(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, flatten(e)...)
	}
	return out
}

// ResolveMissing looks up nutrition for scanned items that have none. Matched
// items switch to database-sourced nutrition.
func (a *App) ResolveMissing(ctx context.Context, s *session.Session) (session.View, error) {
	var errs []error
	for _, item := range s.Items() {
		if item.Source != nutrition.SourceAI || !item.Nutrition.IsZero() {
			continue
		}
		entries, err := a.foods.Search(ctx, item.Name)
		if err != nil {
			a.logger.Warn("food lookup failed", zap.String("item", item.Name), zap.Error(err))
		}
		if len(entries) == 0 {
			errs = append(errs, &session.MissingNutritionError{ItemName: item.Name})
			continue
		}
		if _, err := s.SetNutrition(item.ID, entries[0].Nutrition, nutrition.SourceDatabase); err != nil {
			return s.View(), err
		}
		a.logger.Debug("nutrition resolved",
			zap.String("item", item.Name),
			zap.String("match", entries[0].DisplayName()),
			zap.String("provider", string(entries[0].Provider)),
		)
	}
	return s.View(), errors.Join(errs...)
}

// Search finds foods matching a free-text query.
func (a *App) Search(ctx context.Context, query string) ([]fooddb.Entry, error) {
	entries, err := a.foods.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search foods: %w", err)
	}
	return entries, nil
}

// AddFromQuery adds the best match for query in the given portion.
func (a *App) AddFromQuery(ctx context.Context, s *session.Session, query string, portion nutrition.Portion) (fooddb.Entry, session.View, error) {
	entries, err := a.Search(ctx, query)
	if err != nil {
		return fooddb.Entry{}, s.View(), err
	}
	if len(entries) == 0 {
		return fooddb.Entry{}, s.View(), fmt.Errorf("%w: %q", ErrNoMatch, query)
	}
	view, err := a.AddFromEntry(s, entries[0], portion)
	return entries[0], view, err
}

// AddFromEntry adds a food database selection as a manual item.
func (a *App) AddFromEntry(s *session.Session, e fooddb.Entry, portion nutrition.Portion) (session.View, error) {
	item, err := session.NewManualItem(e.DisplayName(), e.Nutrition, portion, e.Portions, e.Category)
	if err != nil {
		return s.View(), err
	}
	return s.AddItem(item)
}

// AddFromURL clips nutrition from a web page and adds it in the given portion.
func (a *App) AddFromURL(ctx context.Context, s *session.Session, rawURL string, portion nutrition.Portion) (fooddb.Entry, session.View, error) {
	if a.clipper == nil {
		return fooddb.Entry{}, s.View(), ErrClipperDisabled
	}
	entry, meta, err := a.clipper.ClipURL(ctx, rawURL)
	a.record(ctx, meta)
	if err != nil {
		return fooddb.Entry{}, s.View(), fmt.Errorf("failed to clip %s: %w", rawURL, err)
	}
	view, err := a.AddFromEntry(s, entry, portion)
	return entry, view, err
}
