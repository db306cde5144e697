package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Malformed input: reported to the caller, never retried
	ErrorCategoryInvalidStrategy ErrorCategory = "INVALID_STRATEGY"
	ErrorCategoryInvalidBalance  ErrorCategory = "INVALID_BALANCE"
	ErrorCategoryValidation      ErrorCategory = "VALIDATION"
	ErrorCategoryConfiguration   ErrorCategory = "CONFIG"

	// Collaborator failures: always converted to a fallback value at the boundary
	ErrorCategoryProviderUnavailable ErrorCategory = "PROVIDER_UNAVAILABLE"
	ErrorCategoryTimeout             ErrorCategory = "TIMEOUT"
	ErrorCategoryNetwork             ErrorCategory = "NETWORK"

	// Persistence failures
	ErrorCategoryStorage ErrorCategory = "STORAGE"
)

// Sentinels for errors.Is matching. A *BotError matches the sentinel of its category.
var (
	ErrInvalidStrategy     = stderrors.New("invalid strategy")
	ErrInvalidBalance      = stderrors.New("invalid balance")
	ErrProviderUnavailable = stderrors.New("provider unavailable")
	ErrValidation          = stderrors.New("validation failed")
	ErrStorage             = stderrors.New("storage failure")
)

// BotError represents a categorized error with context
type BotError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BotError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target is the sentinel for this error's category.
func (e *BotError) Is(target error) bool {
	s := sentinelFor(e.Category)
	return s != nil && s == target
}

// IsRetryable returns whether this error can be retried
func (e *BotError) IsRetryable() bool {
	return e.Retryable
}

func sentinelFor(category ErrorCategory) error {
	switch category {
	case ErrorCategoryInvalidStrategy:
		return ErrInvalidStrategy
	case ErrorCategoryInvalidBalance:
		return ErrInvalidBalance
	case ErrorCategoryProviderUnavailable, ErrorCategoryTimeout, ErrorCategoryNetwork:
		return ErrProviderUnavailable
	case ErrorCategoryValidation, ErrorCategoryConfiguration:
		return ErrValidation
	case ErrorCategoryStorage:
		return ErrStorage
	default:
		return nil
	}
}

// NewBotError creates a new categorized bot error
func NewBotError(category ErrorCategory, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with bot error context
func WrapError(err error, category ErrorCategory, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	return &BotError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// isRetryableCategory determines if an error category is generally retryable
func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryProviderUnavailable, ErrorCategoryStorage:
		return true
	default:
		return false
	}
}

// CategorizeProviderError classifies a collaborator failure. The result always
// matches ErrProviderUnavailable.
func CategorizeProviderError(err error, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	var botErr *BotError
	if stderrors.As(err, &botErr) && sentinelFor(botErr.Category) == ErrProviderUnavailable {
		return botErr
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded"):
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	case strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "dial") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "network"):
		return WrapError(err, ErrorCategoryNetwork, component, operation)
	default:
		return WrapError(err, ErrorCategoryProviderUnavailable, component, operation)
	}
}

// Common error constructors
func NewInvalidStrategyError(component, operation, name string) *BotError {
	return NewBotError(ErrorCategoryInvalidStrategy, component, operation, fmt.Sprintf("unknown strategy %q", name)).
		WithContext("strategy", name)
}

func NewInvalidBalanceError(component, operation string, balance float64) *BotError {
	return NewBotError(ErrorCategoryInvalidBalance, component, operation, fmt.Sprintf("balance must be positive, got %.4f", balance)).
		WithContext("balance", balance)
}

func NewValidationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryValidation, component, operation, message)
}

func NewConfigurationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryConfiguration, component, operation, message)
}

func NewStorageError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryStorage, component, operation)
}

// ErrorStats tracks error statistics
type ErrorStats struct {
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []*BotError
	MaxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]*BotError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *BotError) {
	es.TotalErrors++
	es.ErrorsByCategory[err.Category]++

	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// HasRecentErrors checks if there have been errors in the recent history
func (es *ErrorStats) HasRecentErrors(category ErrorCategory, count int) bool {
	recentCount := 0
	for _, err := range es.RecentErrors {
		if err.Category == category {
			recentCount++
		}
	}
	return recentCount >= count
}
