package ir

import "fmt"

// Mode is the execution mode of a step.
type Mode string

const (
	// ModeAuthoritative steps propagate errors and stop the feature on failure.
	ModeAuthoritative Mode = "authoritative"

	// ModeSpeculative steps contain failures; used for conditions and probes.
	ModeSpeculative Mode = "speculative"
)

// Usage tags refine how a step is run.
const (
	UsageDebugging = "debugging"
	UsagePolling   = "polling"
)

// Intent carries the mode and optional usage tag of a step.
type Intent struct {
	Mode  Mode   `json:"mode"`
	Usage string `json:"usage,omitempty"`
}

// Authoritative returns the default intent.
func Authoritative() Intent {
	return Intent{Mode: ModeAuthoritative}
}

// Speculative returns a speculative intent keeping i's usage tag.
func (i Intent) Speculative() Intent {
	return Intent{Mode: ModeSpeculative, Usage: i.Usage}
}

// IsSpeculative reports whether failures under this intent are contained.
func (i Intent) IsSpeculative() bool {
	return i.Mode == ModeSpeculative
}

// Contained reports whether action errors become fail results instead of
// propagating: speculative mode or polling usage.
func (i Intent) Contained() bool {
	return i.Mode == ModeSpeculative || i.Usage == UsagePolling
}

// Source locates a statement in its feature file.
type Source struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

func (s Source) String() string {
	if s.Line == 0 {
		return s.Path
	}
	return fmt.Sprintf("%s:%d", s.Path, s.Line)
}

// ArgValue is the sealed variant of a coerced argument:
// StringArg, IntArg, BoolArg, or StatementArg.
type ArgValue interface {
	argValue()
}

// StringArg is a plain string argument.
type StringArg string

func (StringArg) argValue() {}

// IntArg is a numeric argument.
type IntArg int64

func (IntArg) argValue() {}

// BoolArg is a boolean argument.
type BoolArg bool

func (BoolArg) argValue() {}

// StatementArg is a nested statement resolved into child steps.
type StatementArg []FeatureStep

func (StatementArg) argValue() {}

// StepArg is one extracted argument.
type StepArg struct {
	Name     string   `json:"name"`
	Term     string   `json:"term"`
	Domain   string   `json:"domain,omitempty"`
	Original string   `json:"original"`
	Value    ArgValue `json:"-"`
}

// Args maps placeholder names to extracted arguments.
type Args map[string]StepArg

// Term returns the raw term of name, or "" when absent.
func (a Args) Term(name string) string {
	return a[name].Term
}

// Int returns the numeric value of name.
func (a Args) Int(name string) (int64, bool) {
	v, ok := a[name].Value.(IntArg)
	return int64(v), ok
}

// Bool returns the boolean value of name.
func (a Args) Bool(name string) (bool, bool) {
	v, ok := a[name].Value.(BoolArg)
	return bool(v), ok
}

// Statement returns the resolved child steps of a statement-domain argument.
func (a Args) Statement(name string) ([]FeatureStep, bool) {
	v, ok := a[name].Value.(StatementArg)
	return []FeatureStep(v), ok
}

// FeatureStep is a statement resolved to one step definition.
// Treat values as immutable; use the With* helpers to derive copies.
type FeatureStep struct {
	Source  Source  `json:"source"`
	In      string  `json:"in"`
	Path    SeqPath `json:"path"`
	Stepper string  `json:"stepper"`
	Action  string  `json:"action"`
	Args    Args    `json:"args,omitempty"`
	Intent  Intent  `json:"intent"`

	// Synthetic marks steps created by control-flow constructs.
	Synthetic bool `json:"synthetic,omitempty"`

	// Injected marks steps produced by apply-effect hooks or effect rules.
	Injected bool `json:"injected,omitempty"`

	// Inherited holds runtime string substitutions visible to nested statements.
	Inherited map[string]string `json:"inherited,omitempty"`
}

// Key returns the "stepper.action" identifier of the chosen definition.
func (s FeatureStep) Key() string {
	return s.Stepper + "." + s.Action
}

// WithPath returns a copy of s at path p.
func (s FeatureStep) WithPath(p SeqPath) FeatureStep {
	s.Path = p.Clone()
	return s
}

// WithIntent returns a copy of s with intent i.
func (s FeatureStep) WithIntent(i Intent) FeatureStep {
	s.Intent = i
	return s
}
