package stepper

import (
	"sync"
	"time"

	"github.com/roach88/stepwise/internal/ir"
)

// Defaults for Options.
const (
	DefaultMaxLoopIterations = 1000
	DefaultMaxRetries        = 3
)

// Options are the run-level limits read by the executor and control-flow steppers.
type Options struct {
	// MaxLoopIterations bounds whenever loops.
	MaxLoopIterations int

	// MaxRetries bounds after-step retry requests per step.
	MaxRetries int

	// RetryInterval is the constant wait between retries.
	RetryInterval time.Duration
}

// DefaultOptions returns the default limits.
func DefaultOptions() Options {
	return Options{
		MaxLoopIterations: DefaultMaxLoopIterations,
		MaxRetries:        DefaultMaxRetries,
	}
}

// EffectRule injects Statement after every successful step matching Target,
// where Target is a stepper name or a "stepper.action" key.
type EffectRule struct {
	Target    string
	Statement string
	DefinedAt ir.SeqPath
}

// Matches reports whether the rule applies to step.
func (r EffectRule) Matches(step *ir.FeatureStep) bool {
	if step.Injected || step.Path.Equal(r.DefinedAt) {
		return false
	}
	return r.Target == step.Key() || r.Target == step.Stepper
}

// World is the explicit run state of one feature execution.
type World struct {
	RunID    string
	Feature  string
	Vars     *Vars
	Outcomes *OutcomeCache
	Trace    *ir.Trace
	Clock    *Clock
	Flow     Flow
	Sources  Sources
	Events   EventSink
	Options  Options

	effects []EffectRule

	mu    sync.Mutex
	local map[string]any
}

// NewWorld creates run state with empty bindings, cache and trace.
// Flow and Sources are wired by the engine.
func NewWorld(runID, feature string, opts Options) *World {
	return &World{
		RunID:    runID,
		Feature:  feature,
		Vars:     NewVars(),
		Outcomes: NewOutcomeCache(),
		Trace:    ir.NewTrace(),
		Clock:    NewClock(),
		Events:   NopSink{},
		Options:  opts,
	}
}

// AddEffect installs a run-scoped effect rule.
func (w *World) AddEffect(r EffectRule) {
	w.effects = append(w.effects, r)
}

// Effects returns the installed effect rules in installation order.
func (w *World) Effects() []EffectRule {
	return w.effects
}

// Local returns the feature-scoped value a stepper keeps under name,
// creating it with create on first use.
func (w *World) Local(name string, create func() any) any {
	w.mu.Lock()
	defer w.mu.Unlock()
	if v, ok := w.local[name]; ok {
		return v
	}
	if w.local == nil {
		w.local = make(map[string]any)
	}
	v := create()
	w.local[name] = v
	return v
}

// DropLocal removes the value kept under name.
func (w *World) DropLocal(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.local, name)
}

// ResetFeature clears feature-scoped state: bindings, satisfied outcomes,
// effect rules and stepper locals. The trace and clock are kept.
func (w *World) ResetFeature() {
	w.Vars.Clear()
	w.Outcomes.Clear()
	w.effects = nil

	w.mu.Lock()
	w.local = nil
	w.mu.Unlock()
}
