package protocol

import (
	"errors"
	"fmt"
)

// RetryableValidationError aborts the current branch only; Hint guides a retrying caller.
type RetryableValidationError struct {
	Message string
	Hint    string
}

func (e *RetryableValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s (hint: %s)", e.Message, e.Hint)
	}

	return e.Message
}

// NewRetryableValidationError creates a retryable validation error.
func NewRetryableValidationError(message, hint string) *RetryableValidationError {
	return &RetryableValidationError{Message: message, Hint: hint}
}

// IsRetryableValidationError checks if an error is a retryable validation error.
func IsRetryableValidationError(err error) bool {
	var re *RetryableValidationError

	return errors.As(err, &re)
}
