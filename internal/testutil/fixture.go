package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/stepper"
)

// FixtureStepperName is the name the fixture registers under.
const FixtureStepperName = "test"

// ErrThrown is the error returned by the "throws" fixture step.
var ErrThrown = errors.New("fixture action threw")

// Fixture is a stepper with deterministic outcomes for engine tests:
//
//	passes                   ok
//	fails                    fail "fixture failed"
//	throws                   returns ErrThrown
//	panics                   panics
//	announce {what}          ok; injects "passes" after itself
//	fails {n:number} times   fails until called n times, then passes
//
// Optional hooks let tests request executor controls.
type Fixture struct {
	// Before and After, when set, are consulted as step hooks.
	Before func(step *ir.FeatureStep) stepper.Control
	After  func(step *ir.FeatureStep, result ir.Result) stepper.Control

	// Features counts StartFeature calls; Ended counts EndFeature calls.
	// Read them after the runs finish.
	Features int
	Ended    int

	mu       sync.Mutex
	attempts map[string]int
}

var (
	_ stepper.Stepper        = (*Fixture)(nil)
	_ stepper.BeforeStepHook = (*Fixture)(nil)
	_ stepper.AfterStepHook  = (*Fixture)(nil)
	_ stepper.FeatureHook    = (*Fixture)(nil)
)

// NewFixture creates a fixture stepper without hooks.
func NewFixture() *Fixture {
	return &Fixture{attempts: make(map[string]int)}
}

func (f *Fixture) Name() string { return FixtureStepperName }

func (f *Fixture) Steps() []stepper.Definition {
	return []stepper.Definition{
		{
			Name:        "passes",
			Exact:       "passes",
			Action:      func(context.Context, *stepper.World, *ir.FeatureStep) (ir.Result, error) { return ir.OK(nil), nil },
			Description: "Always passes.",
		},
		{
			Name:  "fails",
			Exact: "fails",
			Action: func(context.Context, *stepper.World, *ir.FeatureStep) (ir.Result, error) {
				return ir.Fail("fixture failed", nil), nil
			},
			Description: "Always fails.",
		},
		{
			Name:  "throws",
			Exact: "throws",
			Action: func(context.Context, *stepper.World, *ir.FeatureStep) (ir.Result, error) {
				return ir.Result{}, ErrThrown
			},
			Description: "Returns an action error.",
		},
		{
			Name:  "panics",
			Exact: "panics",
			Action: func(context.Context, *stepper.World, *ir.FeatureStep) (ir.Result, error) {
				panic("fixture panic")
			},
			Description: "Panics inside the action.",
		},
		{
			Name:     "announce",
			Template: "announce {what}",
			Action: func(_ context.Context, _ *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
				return ir.OK(ir.NewObject(ir.O("announced", ir.String(step.Args.Term("what"))))), nil
			},
			ApplyEffect: func(context.Context, *stepper.World, *ir.FeatureStep, []stepper.Stepper) ([]string, error) {
				return []string{"passes"}, nil
			},
			Description: "Passes and injects a passing step after itself.",
		},
		{
			Name:     "flaky",
			Template: "fails {n:number} times",
			Action: func(_ context.Context, _ *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
				n, _ := step.Args.Int("n")
				f.mu.Lock()
				f.attempts[step.In]++
				attempt := f.attempts[step.In]
				f.mu.Unlock()
				if int64(attempt) <= n {
					return ir.Fail(fmt.Sprintf("attempt %d", attempt), nil), nil
				}
				return ir.OK(nil), nil
			},
			Description: "Fails the first n calls, then passes.",
		},
	}
}

// Attempts returns how often the flaky step ran for statement.
func (f *Fixture) Attempts(statement string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[statement]
}

func (f *Fixture) BeforeStep(_ context.Context, _ *stepper.World, step *ir.FeatureStep) (stepper.Control, error) {
	if f.Before == nil {
		return stepper.Continue(), nil
	}
	return f.Before(step), nil
}

func (f *Fixture) AfterStep(_ context.Context, _ *stepper.World, step *ir.FeatureStep, result ir.Result) (stepper.Control, error) {
	if f.After == nil {
		return stepper.Continue(), nil
	}
	return f.After(step, result), nil
}

func (f *Fixture) StartFeature(context.Context, *stepper.World) error {
	f.mu.Lock()
	f.Features++
	f.mu.Unlock()
	return nil
}

func (f *Fixture) EndFeature(context.Context, *stepper.World) error {
	f.mu.Lock()
	f.Ended++
	f.mu.Unlock()
	return nil
}
