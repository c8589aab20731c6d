package engine

import (
	"context"
	"strings"

	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/stepper"
)

// FlowRunner executes statements on behalf of control-flow constructs.
// It implements stepper.Flow and is reached by actions through World.Flow.
//
// Every call:
//   - merges the parent's inherited args with the call-site args (call-site wins)
//   - interpolates {name} placeholders before resolution
//   - places the step at an explicit path or derives one from the parent
//   - converts resolution errors to a failed Signal under speculative intent
type FlowRunner struct {
	engine *Engine
}

var _ stepper.Flow = (*FlowRunner)(nil)

// RunStatement resolves and executes one statement.
func (f *FlowRunner) RunStatement(ctx context.Context, w *stepper.World, statement string, opts stepper.FlowOptions) (stepper.Signal, error) {
	intent := flowIntent(opts)
	args := mergeArgs(inherited(opts.Parent), opts.Args)
	text := Interpolate(statement, args)

	var path ir.SeqPath
	switch {
	case opts.Path != nil:
		path = opts.Path.Clone()
	case opts.Parent != nil:
		path = DerivePath(opts.Parent.Path, intent.IsSpeculative(), w.Trace)
	default:
		return stepper.Signal{}, NewNoParentError(text)
	}

	var src ir.Source
	if opts.Parent != nil {
		src = opts.Parent.Source
	}
	step, err := f.engine.registry.Resolve(text, src)
	if err != nil {
		return contain(intent, err)
	}
	step = step.WithPath(path).WithIntent(intent)
	step.Synthetic = opts.Parent != nil
	step.Inherited = args
	return f.execute(ctx, w, step)
}

// RunStatements runs statements in order as children of opts.Parent,
// stopping at the first failure. An empty list is ok.
func (f *FlowRunner) RunStatements(ctx context.Context, w *stepper.World, statements []string, opts stepper.FlowOptions) (stepper.Signal, error) {
	if opts.Parent == nil {
		return stepper.Signal{}, NewNoParentError(strings.Join(statements, ", "))
	}
	last := stepper.Okay(nil)
	for _, s := range statements {
		sig, err := f.RunStatement(ctx, w, s, stepper.FlowOptions{
			Parent: opts.Parent,
			Intent: opts.Intent,
			Args:   opts.Args,
		})
		if err != nil || !sig.OK {
			return sig, err
		}
		last = sig
	}
	return last, nil
}

// RunSteps runs already-resolved steps as children of opts.Parent, stopping
// at the first failure. A step whose text mentions a merged arg is
// re-interpolated and resolved again.
func (f *FlowRunner) RunSteps(ctx context.Context, w *stepper.World, steps []ir.FeatureStep, opts stepper.FlowOptions) (stepper.Signal, error) {
	if opts.Parent == nil {
		names := make([]string, len(steps))
		for i, s := range steps {
			names[i] = s.In
		}
		return stepper.Signal{}, NewNoParentError(strings.Join(names, ", "))
	}
	intent := flowIntent(opts)
	args := mergeArgs(opts.Parent.Inherited, opts.Args)

	last := stepper.Okay(nil)
	for _, s := range steps {
		step := s
		if mentions(step.In, args) {
			resolved, err := f.engine.registry.Resolve(Interpolate(step.In, args), step.Source)
			if err != nil {
				return contain(intent, err)
			}
			resolved.Synthetic = step.Synthetic
			resolved.Injected = step.Injected
			step = resolved
		}

		// Injected steps are consequences of their parent and always run forward.
		speculative := intent.IsSpeculative() && !step.Injected
		step = step.WithPath(DerivePath(opts.Parent.Path, speculative, w.Trace)).WithIntent(intent)
		step.Inherited = args

		sig, err := f.execute(ctx, w, step)
		if err != nil || !sig.OK {
			return sig, err
		}
		last = sig
	}
	return last, nil
}

// execute runs a placed step, then the steps it injected.
func (f *FlowRunner) execute(ctx context.Context, w *stepper.World, step ir.FeatureStep) (stepper.Signal, error) {
	res, injected, err := f.engine.Execute(ctx, w, step)
	if err != nil {
		return stepper.SignalOf(res), err
	}
	if !res.OK || len(injected) == 0 {
		return stepper.SignalOf(res), nil
	}
	sig, err := f.RunSteps(ctx, w, injected, stepper.FlowOptions{Parent: &step, Intent: step.Intent})
	if err != nil || !sig.OK {
		return sig, err
	}
	return stepper.SignalOf(res), nil
}

// flowIntent returns the call's intent; an unset mode inherits the parent's.
func flowIntent(opts stepper.FlowOptions) ir.Intent {
	if opts.Intent.Mode != "" {
		return opts.Intent
	}
	if opts.Parent != nil {
		return opts.Parent.Intent
	}
	return ir.Authoritative()
}

func inherited(parent *ir.FeatureStep) map[string]string {
	if parent == nil {
		return nil
	}
	return parent.Inherited
}

// contain converts err to a failed signal under speculative intent.
func contain(intent ir.Intent, err error) (stepper.Signal, error) {
	if intent.IsSpeculative() && !isFatal(err) {
		return stepper.Failed(err.Error(), nil), nil
	}
	return stepper.Signal{}, err
}
