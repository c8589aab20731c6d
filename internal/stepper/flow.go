package stepper

import (
	"context"

	"github.com/roach88/stepwise/internal/ir"
)

// Signal is the two-case result of an indirectly executed statement.
type Signal struct {
	OK      bool
	Message string
	Topics  ir.Object
}

// Okay returns a success signal.
func Okay(topics ir.Object) Signal {
	return Signal{OK: true, Topics: topics}
}

// Failed returns a failure signal.
func Failed(message string, topics ir.Object) Signal {
	return Signal{Message: message, Topics: topics}
}

// SignalOf converts an execution result into a signal.
func SignalOf(r ir.Result) Signal {
	return Signal{OK: r.OK, Message: r.Message, Topics: r.Topics}
}

// Result converts the signal back into an execution result.
func (s Signal) Result() ir.Result {
	return ir.Result{OK: s.OK, Message: s.Message, Topics: s.Topics}
}

// FlowOptions parameterizes a Flow call.
type FlowOptions struct {
	// Parent is the step on whose behalf statements run. Child paths derive from it.
	Parent *ir.FeatureStep

	// Path places a single statement explicitly, bypassing derivation.
	Path ir.SeqPath

	// Intent of the nested steps. A zero Mode inherits the parent's intent.
	Intent ir.Intent

	// Args are call-site substitutions; they win over the parent's inherited args.
	Args map[string]string
}

// Flow executes statements on behalf of control-flow constructs.
//
// Errors are returned only for authoritative intent or for programming
// errors (no parent and no path); speculative failures come back as a
// failed Signal.
type Flow interface {
	RunStatement(ctx context.Context, w *World, statement string, opts FlowOptions) (Signal, error)
	RunStatements(ctx context.Context, w *World, statements []string, opts FlowOptions) (Signal, error)
	RunSteps(ctx context.Context, w *World, steps []ir.FeatureStep, opts FlowOptions) (Signal, error)
}
