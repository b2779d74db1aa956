// Package apperror holds the error categories shared by every domain:
// field validation lives in pkg/validator, everything else is here.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrStateConflict marks an action that is not legal in the current state
	// of an entity (locked cycle, already approved loan, ...).
	ErrStateConflict = errors.New("state conflict")

	// ErrBusinessRuleViolation marks a well-formed request that a business
	// rule rejects (e.g. borrowing limit exceeded).
	ErrBusinessRuleViolation = errors.New("business rule violation")

	// ErrPersistence marks a storage failure. The in-flight transaction has
	// been rolled back when this is returned.
	ErrPersistence = errors.New("persistence failure")
)

// StateConflictError describes which entity refused which action.
type StateConflictError struct {
	Entity string
	ID     string
	Status string
	Action string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in status %q", e.Action, e.Entity, e.ID, e.Status)
}

func (e *StateConflictError) Unwrap() error {
	return ErrStateConflict
}

// NewStateConflict builds a StateConflictError.
func NewStateConflict(entity, id, status, action string) error {
	return &StateConflictError{Entity: entity, ID: id, Status: status, Action: action}
}

// PersistenceError wraps a driver error with the operation that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the category and the driver error to errors.Is.
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// Persistence wraps err unless it is nil or already categorised.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsCategorised(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsCategorised reports whether err already belongs to one of the categories.
func IsCategorised(err error) bool {
	return errors.Is(err, ErrStateConflict) ||
		errors.Is(err, ErrBusinessRuleViolation) ||
		errors.Is(err, ErrPersistence)
}

// IsStateConflict returns true if the error is a StateConflict.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrStateConflict)
}
