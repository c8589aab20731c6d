package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// LoopGuard counts iterations of one loop construct and enforces the
// iteration ceiling. Each loop evaluation gets its own guard.
type LoopGuard struct {
	construct string
	limit     int
	current   int
}

// NewLoopGuard creates a guard allowing limit iterations.
func NewLoopGuard(construct string, limit int) *LoopGuard {
	return &LoopGuard{construct: construct, limit: limit}
}

// Check increments the counter and returns LoopLimitError past the limit.
func (g *LoopGuard) Check() error {
	g.current++
	if g.current > g.limit {
		return &LoopLimitError{Construct: g.construct, Iterations: g.current, Limit: g.limit}
	}
	return nil
}

// Current returns the number of checked iterations.
func (g *LoopGuard) Current() int {
	return g.current
}

// LoopLimitError is returned when a loop exceeds its iteration ceiling.
// Loop constructs report it as an ordinary failed result.
type LoopLimitError struct {
	Construct  string
	Iterations int
	Limit      int
}

// Error implements the error interface.
func (e *LoopLimitError) Error() string {
	return fmt.Sprintf("infinite loop detected: %s exceeded %d iterations", e.Construct, e.Limit)
}

// IsLoopLimitError returns true if err is a LoopLimitError.
func IsLoopLimitError(err error) bool {
	var le *LoopLimitError
	return errors.As(err, &le)
}

// Yield lets other goroutines run between loop iterations and reports
// cancellation of ctx.
func Yield(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}
