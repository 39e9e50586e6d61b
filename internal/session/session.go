// Package session holds the editable state of one meal being estimated and
// keeps its totals, range, confidence and questions in sync with every edit.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"meal-estimator/internal/estimate"
	"meal-estimator/internal/nutrition"
)

// State is the externally visible lifecycle state of a session.
type State string

const (
	StateEmpty      State = "empty"
	StateEditing    State = "editing"
	StateReadyToLog State = "ready_to_log"
	StateLogging    State = "logging"
	StateCommitted  State = "committed"
	StateDiscarded  State = "discarded"
)

type phase int

const (
	phaseOpen phase = iota
	phaseLogging
	phaseCommitted
	phaseDiscarded
)

// View is the derived picture of a session after an edit.
type View struct {
	State         State
	Totals        nutrition.Totals
	Range         estimate.Range
	Confidence    float64
	Questions     []estimate.Question
	IncludedCount int
	ItemCount     int
	MealType      MealType
}

// Session is a single meal under construction. It is not safe for
// concurrent use; callers serialize access per session.
type Session struct {
	items    []nutrition.FoodItem
	answers  estimate.Answers
	mealType MealType
	photoRef string

	phase    phase
	clientID string
	derived  View

	saver MealSaver
	now   func() time.Time
	newID func() string
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator replaces the uuid generator used for item and client ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Session) { s.newID = gen }
}

// New creates an empty session that logs meals through saver.
func New(saver MealSaver, opts ...Option) *Session {
	s := &Session{
		answers: estimate.Answers{},
		saver:   saver,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mealType = DefaultMealType(s.now())
	s.recompute()
	return s
}

// State reports the lifecycle state.
func (s *Session) State() State {
	switch s.phase {
	case phaseLogging:
		return StateLogging
	case phaseCommitted:
		return StateCommitted
	case phaseDiscarded:
		return StateDiscarded
	}
	switch {
	case len(s.items) == 0:
		return StateEmpty
	case s.derived.IncludedCount > 0:
		return StateReadyToLog
	default:
		return StateEditing
	}
}

// View returns the current derived values.
func (s *Session) View() View {
	v := s.derived
	v.State = s.State()
	v.MealType = s.mealType
	v.Questions = slices.Clone(s.derived.Questions)
	return v
}

// Items returns a copy of the items in insertion order.
func (s *Session) Items() []nutrition.FoodItem {
	out := make([]nutrition.FoodItem, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

// Item returns a copy of the item with the given id.
func (s *Session) Item(id string) (nutrition.FoodItem, bool) {
	i := s.index(id)
	if i < 0 {
		return nutrition.FoodItem{}, false
	}
	return s.items[i].Clone(), true
}

// Answers returns a copy of the recorded answers.
func (s *Session) Answers() estimate.Answers {
	return s.answers.Clone()
}

// PhotoRef is the stored photo reference, if any.
func (s *Session) PhotoRef() string {
	return s.photoRef
}

// AddItem appends an item. A missing id is generated; a duplicate id, a
// weight outside (0, 5000) grams, a confidence outside [0, 1] or invalid
// nutrition is rejected.
func (s *Session) AddItem(item nutrition.FoodItem) (View, error) {
	if err := s.beginEdit(); err != nil {
		return s.View(), err
	}
	item = item.Clone()
	if item.ID == "" {
		item.ID = s.newID()
	}
	if s.index(item.ID) >= 0 {
		return s.View(), &ValidationError{Field: "id", Reason: fmt.Sprintf("item %q already exists", item.ID)}
	}
	if !nutrition.ValidGrams(item.Grams) {
		return s.View(), gramsError(item.Grams)
	}
	if math.IsNaN(item.Confidence) || item.Confidence < 0 || item.Confidence > 1 {
		return s.View(), &ValidationError{Field: "confidence", Reason: fmt.Sprintf("must be between 0 and 1, got %v", item.Confidence)}
	}
	if err := item.Nutrition.Validate(); err != nil {
		return s.View(), &ValidationError{Field: "nutrition", Reason: err.Error()}
	}
	if item.Flags == nil {
		item.Flags = nutrition.NewFlagSet()
	}
	item.Recalculate()

	s.items = append(s.items, item)
	s.changed()
	return s.View(), nil
}

// AddDetected adds every usable item from a scan. Items that cannot be
// weighed are skipped; items without nutrition are added at zero. Both are
// reported in the joined error while the rest of the scan is kept.
func (s *Session) AddDetected(result ScanResult) (View, error) {
	if err := s.beginEdit(); err != nil {
		return s.View(), err
	}
	var errs []error
	added := 0
	for _, d := range result.Items {
		item, err := FromDetected(d, result.PhotoQuality, s.newID())
		var verr *ValidationError
		if errors.As(err, &verr) {
			errs = append(errs, err)
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
		s.items = append(s.items, item)
		added++
	}
	if added > 0 {
		s.changed()
	}
	return s.View(), errors.Join(errs...)
}

// RemoveItem deletes an item. Removing an unknown id is a no-op.
func (s *Session) RemoveItem(id string) (View, error) {
	if err := s.beginEdit(); err != nil {
		return s.View(), err
	}
	i := s.index(id)
	if i < 0 {
		return s.View(), nil
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.changed()
	return s.View(), nil
}

// ToggleInclude flips whether an item counts toward the meal.
func (s *Session) ToggleInclude(id string) (View, error) {
	if err := s.beginEdit(); err != nil {
		return s.View(), err
	}
	i := s.index(id)
	if i < 0 {
		return s.View(), fmt.Errorf("toggle %q: %w", id, ErrItemNotFound)
	}
	s.items[i].Included = !s.items[i].Included
	s.changed()
	return s.View(), nil
}

// SetGrams changes an item's weight and rescales its nutrition.
func (s *Session) SetGrams(id string, grams float64) (View, error) {
	if err := s.beginEdit(); err != nil {
		return s.View(), err
	}
	i := s.index(id)
	if i < 0 {
		return s.View(), fmt.Errorf("set grams of %q: %w", id, ErrItemNotFound)
	}
	if !nutrition.ValidGrams(grams) {
		return s.View(), gramsError(grams)
	}
	s.items[i].Grams = grams
	s.items[i].Portion = nutrition.Portion{Quantity: grams, Unit: nutrition.UnitGrams}
	s.items[i].Recalculate()
	s.changed()
	return s.View(), nil
}

// SetNutrition replaces an item's per-100g record, for example after a food
// database lookup filled in missing data.
func (s *Session) SetNutrition(id string, n nutrition.NutritionPer100g, source nutrition.Source) (View, error) {
	if err := s.beginEdit(); err != nil {
		return s.View(), err
	}
	i := s.index(id)
	if i < 0 {
		return s.View(), fmt.Errorf("set nutrition of %q: %w", id, ErrItemNotFound)
	}
	if err := n.Validate(); err != nil {
		return s.View(), &ValidationError{Field: "nutrition", Reason: err.Error()}
	}
	s.items[i].Nutrition = n.Clone()
	s.items[i].Source = source
	s.items[i].Recalculate()
	s.changed()
	return s.View(), nil
}

// SetAnswer records the answer to a clarifying question. The answer applies
// to the range even if the question is no longer being asked.
func (s *Session) SetAnswer(key estimate.QuestionKey, option string) (View, error) {
	if err := s.beginEdit(); err != nil {
		return s.View(), err
	}
	if err := estimate.ValidateAnswer(key, option); err != nil {
		return s.View(), &ValidationError{Field: "answer", Reason: err.Error()}
	}
	s.answers[key] = option
	s.changed()
	return s.View(), nil
}

// SetMealType changes the meal type. Derived values do not depend on it.
func (s *Session) SetMealType(mt MealType) (View, error) {
	if err := s.beginEdit(); err != nil {
		return s.View(), err
	}
	parsed, err := ParseMealType(string(mt))
	if err != nil {
		return s.View(), &ValidationError{Field: "meal_type", Reason: err.Error()}
	}
	s.mealType = parsed
	s.clientID = ""
	return s.View(), nil
}

// SetPhoto attaches a stored photo reference to the meal.
func (s *Session) SetPhoto(ref string) error {
	if err := s.beginEdit(); err != nil {
		return err
	}
	s.photoRef = ref
	s.clientID = ""
	return nil
}

// Commit logs the included items. On success the session is cleared and
// reports StateCommitted. On failure the session is untouched and a retry
// reuses the same client id unless the session was edited in between.
func (s *Session) Commit(ctx context.Context) (MealRecord, error) {
	if s.phase == phaseLogging {
		return MealRecord{}, ErrSessionBusy
	}
	if s.derived.IncludedCount == 0 {
		return MealRecord{}, ErrEmptySelection
	}
	if s.saver == nil {
		return MealRecord{}, &PersistenceError{Err: errors.New("no meal store configured")}
	}
	if s.clientID == "" {
		s.clientID = s.newID()
	}

	record := s.snapshot()
	s.phase = phaseLogging
	id, err := s.saver.SaveMeal(ctx, record)
	if err != nil {
		s.phase = phaseOpen
		return MealRecord{}, &PersistenceError{Err: err}
	}
	record.MealID = id

	s.reset()
	s.phase = phaseCommitted
	return record, nil
}

// Discard drops all items and answers.
func (s *Session) Discard() error {
	if s.phase == phaseLogging {
		return ErrSessionBusy
	}
	s.reset()
	s.phase = phaseDiscarded
	return nil
}

func (s *Session) snapshot() MealRecord {
	v := s.View()
	record := MealRecord{
		ClientID:   s.clientID,
		Totals:     v.Totals,
		Range:      v.Range,
		Confidence: v.Confidence,
		MealType:   s.mealType,
		PhotoRef:   s.photoRef,
		LoggedAt:   s.now(),
	}
	for _, it := range s.items {
		if !it.Included {
			continue
		}
		record.Items = append(record.Items, RecordItem{
			Name:       it.Name,
			Grams:      it.Grams,
			Nutrition:  it.Calculated.Clone(),
			Confidence: it.Confidence,
			Source:     it.Source,
			Category:   it.Category,
		})
	}
	return record
}

// beginEdit rejects edits during a commit and reopens a finished session.
func (s *Session) beginEdit() error {
	if s.phase == phaseLogging {
		return ErrSessionBusy
	}
	if s.phase == phaseCommitted || s.phase == phaseDiscarded {
		s.phase = phaseOpen
	}
	return nil
}

func (s *Session) changed() {
	s.clientID = ""
	s.recompute()
}

func (s *Session) reset() {
	s.items = nil
	s.answers = estimate.Answers{}
	s.photoRef = ""
	s.clientID = ""
	s.mealType = DefaultMealType(s.now())
	s.recompute()
}

// recompute derives every view value from items and answers alone.
func (s *Session) recompute() {
	totals := nutrition.Aggregate(s.items)
	s.derived = View{
		Totals:        totals,
		Range:         estimate.EstimateRange(s.items, s.answers, totals.Calories),
		Confidence:    estimate.ScoreConfidence(s.items),
		Questions:     estimate.QuestionsFor(s.items),
		IncludedCount: len(nutrition.Included(s.items)),
		ItemCount:     len(s.items),
	}
}

func (s *Session) index(id string) int {
	return slices.IndexFunc(s.items, func(it nutrition.FoodItem) bool { return it.ID == id })
}
