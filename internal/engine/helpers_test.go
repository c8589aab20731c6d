package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/stepper"
	"github.com/roach88/stepwise/internal/testutil"
)

// probeStepper exercises the flow runner from inside actions.
type probeStepper struct{}

func (probeStepper) Name() string { return "probe" }

func (probeStepper) Steps() []stepper.Definition {
	return []stepper.Definition{
		{
			Name:     "echo",
			Template: "echo {what}",
			Action: func(_ context.Context, _ *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
				return ir.OK(ir.NewObject(ir.O("what", ir.String(step.Args.Term("what"))))), nil
			},
		},
		{
			Name:     "nest",
			Template: "nest {inner:statement}",
			Unique:   true,
			Action: func(ctx context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
				inner, _ := step.Args.Statement("inner")
				sig, err := w.Flow.RunSteps(ctx, w, inner, stepper.FlowOptions{Parent: step})
				return sig.Result(), err
			},
		},
		{
			Name:     "probe",
			Template: "probe {inner:statement}",
			Unique:   true,
			Action: func(ctx context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
				inner, _ := step.Args.Statement("inner")
				sig, err := w.Flow.RunSteps(ctx, w, inner, stepper.FlowOptions{
					Parent: step,
					Intent: step.Intent.Speculative(),
				})
				if err != nil {
					return ir.Result{}, err
				}
				return ir.OK(ir.NewObject(ir.O("inner_ok", ir.Bool(sig.OK)))), nil
			},
		},
		{
			Name:     "bind",
			Template: "bind {name} to {value} then {statement}",
			Unique:   true,
			Action: func(ctx context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
				sig, err := w.Flow.RunStatement(ctx, w, step.Args.Term("statement"), stepper.FlowOptions{
					Parent: step,
					Args:   map[string]string{step.Args.Term("name"): step.Args.Term("value")},
				})
				return sig.Result(), err
			},
		},
		{
			Name:     "checked",
			Template: "checked {n:number}",
			Validate: func(step *ir.FeatureStep) error {
				if n, _ := step.Args.Int("n"); n <= 0 {
					return errors.New("n must be positive")
				}
				return nil
			},
			Action: func(context.Context, *stepper.World, *ir.FeatureStep) (ir.Result, error) {
				return ir.OK(nil), nil
			},
		},
	}
}

func newTestEngineWith(t *testing.T, fixture *testutil.Fixture, opts ...Option) *Engine {
	t.Helper()
	e, err := New([]stepper.Stepper{fixture, probeStepper{}}, opts...)
	require.NoError(t, err)
	return e
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	return newTestEngineWith(t, testutil.NewFixture(), opts...)
}

// resolveAt resolves text and places it at path.
func resolveAt(t *testing.T, e *Engine, text string, path ...int) ir.FeatureStep {
	t.Helper()
	step, err := e.Resolve(text, ir.Source{Path: "test.feature", Line: 1})
	require.NoError(t, err)
	step.Path = ir.SeqPath(path)
	return step
}

// tracePaths lists the recorded paths in sequence path order.
func tracePaths(w *stepper.World) []string {
	var out []string
	for _, e := range w.Trace.Ordered() {
		out = append(out, e.Path.String())
	}
	return out
}
