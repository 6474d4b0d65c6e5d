package errors

import (
	stderrors "errors"
	"fmt"
)

// Category separates the error taxonomy of the validation pipeline.
type Category string

const (
	// CategoryConfig marks fatal pre-computation errors: overlapping folds,
	// purge/embargo producing negative ranges, empty parameter grid. A config
	// error stops the whole run before any simulation starts.
	CategoryConfig Category = "CONFIG"

	// CategoryData marks per-fold data problems: non-monotonic timestamps,
	// excessive invalid bars, insufficient out-of-sample bars. Recoverable in
	// lenient mode (the fold is excluded), fatal in strict mode.
	CategoryData Category = "DATA"

	// CategorySimulation marks execution-level failures inside a single
	// simulation run. Defined-value outcomes (infinite profit factor,
	// zero-trade fold) are NOT errors and never use this category.
	CategorySimulation Category = "SIMULATION"

	// CategoryStatistical marks aggregation failures such as fewer than two
	// valid folds; the report then carries an INSUFFICIENT_DATA verdict.
	CategoryStatistical Category = "STATISTICAL"
)

// Error is a categorized error with component/operation context.
type Error struct {
	Category   Category
	Component  string
	Operation  string
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Fatal reports whether the error must abort the whole run regardless of
// mode. Only config errors are unconditionally fatal; data errors become
// fatal in strict mode, which the caller decides.
func (e *Error) Fatal() bool {
	return e.Category == CategoryConfig
}

// NewConfigError creates a fatal configuration error.
func NewConfigError(component, operation, message string) *Error {
	return &Error{Category: CategoryConfig, Component: component, Operation: operation, Message: message}
}

// NewDataError creates a recoverable data error.
func NewDataError(component, operation, message string) *Error {
	return &Error{Category: CategoryData, Component: component, Operation: operation, Message: message}
}

// NewStatisticalError creates a statistical aggregation error.
func NewStatisticalError(component, operation, message string) *Error {
	return &Error{Category: CategoryStatistical, Component: component, Operation: operation, Message: message}
}

// Wrap attaches category and context to an existing error. Returns nil for a
// nil error so call sites can wrap unconditionally.
func Wrap(err error, category Category, component, operation string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
	}
}

// As is the standard errors.As, re-exported so callers importing this
// package do not also need the stdlib errors package.
func As(err error, target any) bool { return stderrors.As(err, target) }

// IsCategory reports whether err (or anything it wraps) carries the category.
func IsCategory(err error, category Category) bool {
	var ve *Error
	if stderrors.As(err, &ve) {
		return ve.Category == category
	}
	return false
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool { return IsCategory(err, CategoryConfig) }

// IsData reports whether err is a data error.
func IsData(err error) bool { return IsCategory(err, CategoryData) }
