package errors

import (
	"errors"
	"fmt"
)

// Category groups errors by subsystem
type Category string

const (
	CategorySyntax      Category = "syntax"
	CategorySpawn       Category = "spawn"
	CategoryRedirection Category = "redirection"
	CategoryTool        Category = "tool"
	CategoryLoop        Category = "loop"
	CategoryLLM         Category = "llm"
	CategoryContext     Category = "context"
	CategoryConfig      Category = "config"
)

// AishError is the structured error type for the project
type AishError struct {
	Category  Category
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

func (e *AishError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

func (e *AishError) Unwrap() error {
	return e.Cause
}

func (e *AishError) Is(target error) bool {
	t, ok := target.(*AishError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Category == t.Category
}

// IsRetryable checks whether an error is retryable.
// Returns false for nil errors or non-AishError types.
func IsRetryable(err error) bool {
	var ae *AishError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// GetCategory extracts the error category from an AishError.
// Returns an empty Category for nil errors or non-AishError types.
func GetCategory(err error) Category {
	var ae *AishError
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ""
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, c Category) bool {
	return err != nil && GetCategory(err) == c
}

// GetUserMessage returns a user-friendly message for the error.
// For AishError it returns the Message field; for other errors it returns Error().
func GetUserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ae *AishError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
