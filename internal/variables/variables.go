// Package variables provides steps that bind and compare run variables.
// Proof statements and loop conditions are usually written with them.
package variables

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/stepper"
)

// StepperName is the name the variables stepper registers under.
const StepperName = "variables"

// Stepper binds values in World.Vars.
type Stepper struct{}

var _ stepper.Stepper = Stepper{}

// New returns the variables stepper.
func New() Stepper { return Stepper{} }

func (Stepper) Name() string { return StepperName }

func (Stepper) Steps() []stepper.Definition {
	return []stepper.Definition{
		{
			Name:        "set",
			Template:    "set {what} to {value}",
			Action:      set,
			Description: "Binds a variable.",
		},
		{
			Name:        "unset",
			Template:    "unset {what}",
			Action:      unset,
			Description: "Removes a binding.",
		},
		{
			Name:        "increment",
			Template:    "increment {what}",
			Action:      increment,
			Description: "Adds one to a numeric variable; unset counts as 0.",
		},
		{
			Name:        "display",
			Template:    "display {what}",
			Action:      display,
			Description: "Logs a variable and returns it as a topic.",
		},
		{
			Name:        "isLessThan",
			Template:    "{what} is less than {value:number}",
			Precludes:   []string{StepperName + ".is"},
			Action:      isLessThan,
			Description: "Passes when a numeric variable is below value.",
		},
		{
			Name:        "is",
			Template:    "{what} is {value}",
			Action:      is,
			Description: "Passes when a variable equals value.",
		},
	}
}

func topics(name, value string) ir.Object {
	return ir.NewObject(ir.O("name", ir.String(name)), ir.O("value", ir.String(value)))
}

func set(_ context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	name, value := step.Args.Term("what"), step.Args.Term("value")
	w.Vars.Set(name, value)
	return ir.OK(topics(name, value)), nil
}

func unset(_ context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	w.Vars.Delete(step.Args.Term("what"))
	return ir.OK(nil), nil
}

func increment(_ context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	name := step.Args.Term("what")
	n := int64(0)
	if v, ok := w.Vars.Get(name); ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return ir.Fail(fmt.Sprintf("%s is %q, not a number", name, v), nil), nil
		}
		n = parsed
	}
	value := strconv.FormatInt(n+1, 10)
	w.Vars.Set(name, value)
	return ir.OK(topics(name, value)), nil
}

func display(_ context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	name := step.Args.Term("what")
	v, ok := w.Vars.Get(name)
	if !ok {
		return ir.Fail(fmt.Sprintf("%s is not set", name), nil), nil
	}
	slog.Info("variable", "run_id", w.RunID, "path", step.Path.String(), "name", name, "value", v)
	return ir.OK(topics(name, v)), nil
}

func is(_ context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	name, want := step.Args.Term("what"), step.Args.Term("value")
	got, ok := w.Vars.Get(name)
	if !ok {
		return ir.Fail(fmt.Sprintf("%s is not set", name), nil), nil
	}
	if got != want {
		return ir.Fail(fmt.Sprintf("%s is %q, not %q", name, got, want), topics(name, got)), nil
	}
	return ir.OK(topics(name, got)), nil
}

func isLessThan(_ context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	name := step.Args.Term("what")
	limit, _ := step.Args.Int("value")
	got, ok := w.Vars.Get(name)
	if !ok {
		got = "0"
	}
	n, err := strconv.ParseInt(got, 10, 64)
	if err != nil {
		return ir.Fail(fmt.Sprintf("%s is %q, not a number", name, got), nil), nil
	}
	if n >= limit {
		return ir.Fail(fmt.Sprintf("%s is %d, not less than %d", name, n, limit), topics(name, got)), nil
	}
	return ir.OK(topics(name, got)), nil
}
