package stepper

import (
	"context"
	"regexp"

	"github.com/roach88/stepwise/internal/ir"
)

// Action is the executable body bound to a step definition.
// The step is read-only; its Args hold the extracted, coerced arguments.
type Action func(ctx context.Context, w *World, step *ir.FeatureStep) (ir.Result, error)

// EffectFunc runs after a successful step and returns statements to be
// scheduled immediately after it, as children of that step.
type EffectFunc func(ctx context.Context, w *World, step *ir.FeatureStep, steppers []Stepper) ([]string, error)

// Definition is one step pattern and its action.
// Exactly one of Exact, Match or Template must be set.
type Definition struct {
	// Name identifies the definition within its stepper.
	Name string

	// Exact matches the normalized statement literally.
	Exact string

	// Match is an arbitrary regular expression; named groups become arguments.
	Match *regexp.Regexp

	// Template uses {name} / {name:domain} placeholders and (...)? elidable fragments.
	Template string

	// Unique definitions win over every non-unique competing match.
	Unique bool

	// Precludes lists "stepper.action" keys this definition suppresses when both match.
	Precludes []string

	// Validate runs before the action; an error fails the step.
	Validate func(step *ir.FeatureStep) error

	Action Action

	ApplyEffect EffectFunc

	Description string
}

// Stepper is a registration unit of step definitions.
type Stepper interface {
	Name() string
	Steps() []Definition
}

// BeforeStepHook is implemented by steppers that observe or veto steps
// before their action runs. It is skipped for debugging usage.
type BeforeStepHook interface {
	BeforeStep(ctx context.Context, w *World, step *ir.FeatureStep) (Control, error)
}

// AfterStepHook is implemented by steppers that inspect action results.
type AfterStepHook interface {
	AfterStep(ctx context.Context, w *World, step *ir.FeatureStep, result ir.Result) (Control, error)
}

// FeatureHook brackets one feature execution.
type FeatureHook interface {
	StartFeature(ctx context.Context, w *World) error
	EndFeature(ctx context.Context, w *World) error
}

// ExecutionHook brackets a whole run of one or more features.
type ExecutionHook interface {
	StartExecution(ctx context.Context) error
	EndExecution(ctx context.Context) error
}

// ControlKind is a structural control signal requested by a hook.
// Kinds are ordered by precedence: a higher kind overrides a lower one.
type ControlKind int

const (
	ControlContinue ControlKind = iota
	ControlNext
	ControlRetry
	ControlFail
)

func (k ControlKind) String() string {
	switch k {
	case ControlNext:
		return "next"
	case ControlRetry:
		return "retry"
	case ControlFail:
		return "fail"
	default:
		return "continue"
	}
}

// Control is a hook's request to the executor.
type Control struct {
	Kind    ControlKind
	Message string
}

// Continue is the default pass-through control.
func Continue() Control { return Control{Kind: ControlContinue} }

// Strongest returns the control with the higher precedence; ties keep a.
func Strongest(a, b Control) Control {
	if b.Kind > a.Kind {
		return b
	}
	return a
}
