package session

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySelection is returned by Commit when no item is included.
	ErrEmptySelection = errors.New("add at least one included item before logging")
	// ErrSessionBusy is returned by mutators while a commit is in flight.
	ErrSessionBusy = errors.New("session is read-only while the meal is being logged")
	// ErrItemNotFound is returned when an item id is not in the session.
	ErrItemNotFound = errors.New("item not found")
)

// ValidationError reports input the session refused. State is unchanged.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// MissingNutritionError marks an item that was added without usable
// per-100g nutrition; its calculated nutrition is zero.
type MissingNutritionError struct {
	ItemName string
}

func (e *MissingNutritionError) Error() string {
	return fmt.Sprintf("no nutrition data for %q, counted as zero", e.ItemName)
}

// PersistenceError wraps a failed save. The session is left intact so the
// commit can be retried.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to log meal, try again: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
