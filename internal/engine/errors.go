package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/stepwise/internal/ir"
)

// RuntimeError represents an error detected while executing steps.
//
// Runtime errors include:
//   - Unknown action: a step names a definition missing from the registry
//   - Action failure: an action returned an error or panicked
//   - No parent: a flow call had neither a parent step nor an explicit path
//   - Duplicate path: a step was recorded twice at one sequence path
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the sequence path of the affected step, if any.
	Path string

	// Statement is the input text of the affected step, if any.
	Statement string

	// Err is the underlying error.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownAction indicates a step references an unregistered definition.
	ErrCodeUnknownAction RuntimeErrorCode = "UNKNOWN_ACTION"

	// ErrCodeActionFailed indicates an action or hook returned an error.
	ErrCodeActionFailed RuntimeErrorCode = "ACTION_FAILED"

	// ErrCodeActionPanic indicates an action panicked.
	ErrCodeActionPanic RuntimeErrorCode = "ACTION_PANIC"

	// ErrCodeNoParent indicates a flow call without parent step or explicit path.
	ErrCodeNoParent RuntimeErrorCode = "NO_PARENT"

	// ErrCodeDuplicatePath indicates the path uniqueness invariant was violated.
	ErrCodeDuplicatePath RuntimeErrorCode = "DUPLICATE_PATH"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewUnknownActionError creates a RuntimeError for a missing definition.
func NewUnknownActionError(step ir.FeatureStep) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeUnknownAction,
		Message:   fmt.Sprintf("no definition registered for %s", step.Key()),
		Path:      step.Path.String(),
		Statement: step.In,
	}
}

// NewNoParentError creates a RuntimeError for an unplaceable flow call.
func NewNoParentError(statement string) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeNoParent,
		Message:   "flow call needs a parent step or an explicit sequence path",
		Statement: statement,
	}
}

// IsRuntimeError returns true if err carries the given code.
// Uses errors.As to handle wrapped errors.
func IsRuntimeError(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// isFatal reports errors that are never contained by speculative intent:
// programming errors and cancellation.
func isFatal(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		switch re.Code {
		case ErrCodeNoParent, ErrCodeDuplicatePath, ErrCodeUnknownAction:
			return true
		}
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
