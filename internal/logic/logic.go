package logic

import (
	"context"
	"fmt"

	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/resolver"
	"github.com/roach88/stepwise/internal/stepper"
)

// StepperName is the name the logic stepper registers under.
const StepperName = "logic"

// Failure messages.
const (
	MsgNegationTrue  = "negation was true"
	MsgNoneSatisfied = "No conditions in the list were satisfied"
	MsgNoMembers     = "no members to check"
	MsgUnknownSource = "unknown domain or observation source"
)

// Stepper is the control-flow stepper. Every step is unique so keyword
// statements win over generic patterns such as "{what} is {value}".
type Stepper struct{}

var _ stepper.Stepper = Stepper{}

// New returns the logic stepper.
func New() Stepper { return Stepper{} }

func (Stepper) Name() string { return StepperName }

func (Stepper) Steps() []stepper.Definition {
	return []stepper.Definition{
		{
			Name:        "not",
			Template:    "not {statement:statement}",
			Unique:      true,
			Action:      not,
			Description: "Passes when the statement fails.",
		},
		{
			Name:        "where",
			Template:    "where {condition:statement}, {action:statement}",
			Unique:      true,
			Action:      where,
			Description: "Runs action when condition passes; passes vacuously otherwise.",
		},
		{
			Name:        "whenever",
			Template:    "whenever {condition:statement}, {action:statement}",
			Unique:      true,
			Action:      whenever,
			Description: "Runs action while condition passes.",
		},
		{
			Name:        "anyOf",
			Template:    "any of {statements}",
			Unique:      true,
			Action:      anyOf,
			Description: "Passes when one of the comma-separated statements passes.",
		},
		{
			Name:        "every",
			Template:    "every {var} in {source} is {statement}",
			Unique:      true,
			Action:      every,
			Description: "Passes when the statement passes for every member of source.",
		},
		{
			Name:        "some",
			Template:    "some {var} in {source} is {statement}",
			Unique:      true,
			Action:      some,
			Description: "Passes when the statement passes for at least one member of source.",
		},
		{
			Name:        "afterEvery",
			Template:    "after every {target}, {statement}",
			Unique:      true,
			Action:      afterEvery,
			Description: "Runs statement after each later successful step of target (stepper or stepper.action).",
		},
	}
}

func speculative(step *ir.FeatureStep) stepper.FlowOptions {
	return stepper.FlowOptions{Parent: step, Intent: step.Intent.Speculative()}
}

func consequence(step *ir.FeatureStep) stepper.FlowOptions {
	return stepper.FlowOptions{Parent: step, Intent: step.Intent}
}

func not(ctx context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	inner, _ := step.Args.Statement("statement")
	sig, err := w.Flow.RunSteps(ctx, w, inner, speculative(step))
	if err != nil {
		return ir.Result{}, err
	}
	if sig.OK {
		return ir.Fail(MsgNegationTrue, sig.Topics), nil
	}
	return ir.OK(nil), nil
}

func where(ctx context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	condition, _ := step.Args.Statement("condition")
	action, _ := step.Args.Statement("action")

	cond, err := w.Flow.RunSteps(ctx, w, condition, speculative(step))
	if err != nil {
		return ir.Result{}, err
	}
	if !cond.OK {
		return ir.OK(nil), nil
	}
	sig, err := w.Flow.RunSteps(ctx, w, action, consequence(step))
	return sig.Result(), err
}

func whenever(ctx context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	condition, _ := step.Args.Statement("condition")
	action, _ := step.Args.Statement("action")
	guard := engine.NewLoopGuard("whenever", w.Options.MaxLoopIterations)

	for {
		cond, err := w.Flow.RunSteps(ctx, w, condition, speculative(step))
		if err != nil {
			return ir.Result{}, err
		}
		if !cond.OK {
			return ir.OK(ir.NewObject(ir.O("iterations", ir.Int(guard.Current())))), nil
		}
		if err := guard.Check(); err != nil {
			return ir.Fail(err.Error(), nil), nil
		}
		sig, err := w.Flow.RunSteps(ctx, w, action, consequence(step))
		if err != nil || !sig.OK {
			return sig.Result(), err
		}
		if err := engine.Yield(ctx); err != nil {
			return ir.Result{}, err
		}
	}
}

func anyOf(ctx context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	for _, s := range resolver.SplitUnquoted(step.Args.Term("statements"), ",") {
		sig, err := w.Flow.RunStatement(ctx, w, s, speculative(step))
		if err != nil {
			return ir.Result{}, err
		}
		if sig.OK {
			return ir.OK(sig.Topics), nil
		}
	}
	return ir.Fail(MsgNoneSatisfied, nil), nil
}

func afterEvery(_ context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	w.AddEffect(stepper.EffectRule{
		Target:    step.Args.Term("target"),
		Statement: step.Args.Term("statement"),
		DefinedAt: step.Path.Clone(),
	})
	return ir.OK(nil), nil
}

func observe(ctx context.Context, w *stepper.World, step *ir.FeatureStep) ([]stepper.Observation, *ir.Result, error) {
	source := step.Args.Term("source")
	values, ok, err := w.Sources.Observe(ctx, w, source)
	if err != nil {
		return nil, nil, fmt.Errorf("observe %s: %w", source, err)
	}
	if !ok {
		res := ir.Fail(fmt.Sprintf("%s: %s", MsgUnknownSource, source), nil)
		return nil, &res, nil
	}
	return values, nil, nil
}
