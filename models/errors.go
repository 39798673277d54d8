// ABOUTME: Error taxonomy shared by every layer of the pipeline engine
// ABOUTME: Sentinel errors plus a typed ValidationError that matches ErrValidation
package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAlreadyConverted  = errors.New("lead already converted")
	ErrAlreadyCompleted  = errors.New("task already completed")
	ErrPersistence       = errors.New("persistence failure")
	ErrNotPermitted      = errors.New("operation not permitted for role")
)

// ErrInvalidStage is returned when a stage string does not normalize to a
// member of the stage vocabulary.
var ErrInvalidStage = ErrInvalidTransition

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError builds an ErrNotFound wrapped with the entity kind and id.
func NotFoundError(kind string, id int) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}
