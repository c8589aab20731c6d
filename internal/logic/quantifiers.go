package logic

import (
	"context"
	"fmt"

	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/stepper"
)

// binding holds a quantifier variable for the duration of one evaluation
// and restores the previous value afterwards.
type binding struct {
	vars *stepper.Vars
	name string
	prev string
	had  bool
}

func bind(w *stepper.World, name string) *binding {
	prev, had := w.Vars.Get(name)
	return &binding{vars: w.Vars, name: name, prev: prev, had: had}
}

// args binds obs and returns the interpolation args: {name} plus {name.metric}.
func (b *binding) args(obs stepper.Observation) map[string]string {
	b.vars.Set(b.name, obs.Value)
	args := map[string]string{b.name: obs.Value}
	for k, v := range obs.Metrics {
		args[b.name+"."+k] = v
	}
	return args
}

func (b *binding) restore() {
	if b.had {
		b.vars.Set(b.name, b.prev)
		return
	}
	b.vars.Delete(b.name)
}

func every(ctx context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	values, failed, err := observe(ctx, w, step)
	if err != nil || failed != nil {
		return deref(failed), err
	}

	name, statement := step.Args.Term("var"), step.Args.Term("statement")
	b := bind(w, name)
	defer b.restore()

	for _, obs := range values {
		opts := consequence(step)
		opts.Args = b.args(obs)
		sig, err := w.Flow.RunStatement(ctx, w, statement, opts)
		if err != nil {
			return ir.Result{}, err
		}
		if !sig.OK {
			return ir.Fail(fmt.Sprintf("%s %s: %s", name, obs.Value, sig.Message), sig.Topics), nil
		}
	}
	return ir.OK(ir.NewObject(ir.O("checked", ir.Int(len(values))))), nil
}

func some(ctx context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	values, failed, err := observe(ctx, w, step)
	if err != nil || failed != nil {
		return deref(failed), err
	}
	if len(values) == 0 {
		return ir.Fail(MsgNoMembers, nil), nil
	}

	name, statement := step.Args.Term("var"), step.Args.Term("statement")
	b := bind(w, name)
	defer b.restore()

	for _, obs := range values {
		opts := speculative(step)
		opts.Args = b.args(obs)
		sig, err := w.Flow.RunStatement(ctx, w, statement, opts)
		if err != nil {
			return ir.Result{}, err
		}
		if sig.OK {
			return ir.OK(ir.NewObject(ir.O(name, ir.String(obs.Value)))), nil
		}
	}
	return ir.Fail(fmt.Sprintf("no member of %s satisfied the statement", step.Args.Term("source")), nil), nil
}

func deref(r *ir.Result) ir.Result {
	if r == nil {
		return ir.Result{}
	}
	return *r
}
