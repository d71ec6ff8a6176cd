// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrModelNotFound indicates no stored model has the given identifier.
	ErrModelNotFound = errors.New("stored model not found")

	// ErrInvalidModel indicates a stored model could not be decoded.
	ErrInvalidModel = errors.New("invalid stored model")
)

// ModelError wraps model-related errors with additional context.
type ModelError struct {
	Op      string // Operation being performed (e.g., "Get", "Save", "Delete")
	ModelID string // Model ID if applicable
	Err     error  // Underlying error
}

func (e *ModelError) Error() string {
	if e.ModelID == "" {
		return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s operation failed for model %s: %v", e.Op, e.ModelID, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for model errors.
func (e *ModelError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewModelError creates a new model error with context.
func NewModelError(op, modelID string, err error) *ModelError {
	return &ModelError{
		Op:      op,
		ModelID: modelID,
		Err:     err,
	}
}

// IsModelNotFound checks if an error indicates a model was not found.
func IsModelNotFound(err error) bool {
	return errors.Is(err, ErrModelNotFound)
}

// IsInvalidModel checks if an error indicates a stored model could not be decoded.
func IsInvalidModel(err error) bool {
	return errors.Is(err, ErrInvalidModel)
}
