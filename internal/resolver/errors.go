package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes resolver errors.
type ErrorCode string

const (
	// ErrCodeNoStepFound indicates no definition matched a statement.
	ErrCodeNoStepFound ErrorCode = "NO_STEP_FOUND"

	// ErrCodeNestingTooDeep indicates runaway statement-domain recursion.
	ErrCodeNestingTooDeep ErrorCode = "NESTING_TOO_DEEP"

	// ErrCodeMalformedTemplate indicates a template that cannot be compiled.
	ErrCodeMalformedTemplate ErrorCode = "MALFORMED_TEMPLATE"

	// ErrCodeDuplicateDefinition indicates two definitions share a stepper.action key.
	ErrCodeDuplicateDefinition ErrorCode = "DUPLICATE_DEFINITION"

	// ErrCodeDuplicateDomain indicates two domains share a name.
	ErrCodeDuplicateDomain ErrorCode = "DUPLICATE_DOMAIN"

	// ErrCodeUnknownDomain indicates a placeholder names an unregistered domain.
	ErrCodeUnknownDomain ErrorCode = "UNKNOWN_DOMAIN"

	// ErrCodeInvalidDefinition indicates a structurally invalid definition.
	ErrCodeInvalidDefinition ErrorCode = "INVALID_DEFINITION"
)

// ResolveError is returned when a statement cannot be resolved.
type ResolveError struct {
	Code      ErrorCode
	Statement string

	// Rejections explains candidates that matched textually but failed
	// argument coercion or nested resolution.
	Rejections []string

	// Suggestions lists close patterns for "did you mean" output.
	Suggestions []string
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	var msg string
	switch e.Code {
	case ErrCodeNestingTooDeep:
		msg = fmt.Sprintf("statement nesting too deep at %s", e.Statement)
	default:
		msg = fmt.Sprintf("no step found for %s", e.Statement)
	}
	if len(e.Rejections) > 0 {
		msg += " (" + strings.Join(e.Rejections, "; ") + ")"
	}
	return msg
}

// ConfigError reports an invalid registration. It is raised when the
// registry is built, never during a run.
type ConfigError struct {
	Code    ErrorCode
	Key     string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Key, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNoStepFound returns true if err is a resolution failure.
// Uses errors.As to handle wrapped errors.
func IsNoStepFound(err error) bool {
	var re *ResolveError
	return errors.As(err, &re)
}

// IsConfigError returns true if err is a registration error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
