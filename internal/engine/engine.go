package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/stepwise/internal/feature"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/resolver"
	"github.com/roach88/stepwise/internal/stepper"
)

// Engine resolves and executes statements against a fixed set of steppers.
//
// The engine itself holds no run state. Every feature execution gets its
// own *stepper.World from NewWorld; worlds must not be shared between
// goroutines, but one engine may run many features concurrently.
//
// INVARIANTS:
//   - stepper order NEVER changes after construction (it is the tie-break order)
//   - observation source names are unique
type Engine struct {
	steppers     []stepper.Stepper
	registry     *resolver.Registry
	sink         stepper.EventSink
	runIDs       RunIDGenerator
	options      stepper.Options
	domains      []stepper.Domain
	observations map[string]stepper.ObservationSource
	flow         *FlowRunner

	bgMu        sync.Mutex
	backgrounds []*feature.Feature
	bgLoaded    bool
	bgOnce      sync.Once
	bgErr       error
}

// Option configures an Engine.
type Option func(*Engine)

// WithOptions replaces the run-level limits.
func WithOptions(o stepper.Options) Option {
	return func(e *Engine) {
		e.options = o
	}
}

// WithMaxLoopIterations sets the whenever iteration ceiling.
//
// Default: 1000 (stepper.DefaultMaxLoopIterations)
func WithMaxLoopIterations(n int) Option {
	return func(e *Engine) {
		e.options.MaxLoopIterations = n
	}
}

// WithRetries bounds after-step retry requests and sets the wait between them.
func WithRetries(n int, interval time.Duration) Option {
	return func(e *Engine) {
		e.options.MaxRetries = n
		e.options.RetryInterval = interval
	}
}

// WithDomains registers extra domains after the stepper-provided ones.
func WithDomains(domains ...stepper.Domain) Option {
	return func(e *Engine) {
		e.domains = append(e.domains, domains...)
	}
}

// WithSink sets the receiver of step and outcome events.
func WithSink(sink stepper.EventSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithRunIDGenerator sets the run ID source. Tests use FixedGenerator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// New builds an engine. The steppers slice order is the registration order
// used for tie-breaks and hook invocation; it is copied.
func New(steppers []stepper.Stepper, opts ...Option) (*Engine, error) {
	e := &Engine{
		steppers:     append([]stepper.Stepper(nil), steppers...),
		sink:         stepper.NopSink{},
		runIDs:       UUIDv7Generator{},
		options:      stepper.DefaultOptions(),
		observations: make(map[string]stepper.ObservationSource),
	}
	for _, opt := range opts {
		opt(e)
	}

	reg, err := resolver.New(e.steppers, e.domains...)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	e.registry = reg

	e.observations[StepCountsSource] = stepper.ObservationFunc(stepCounts)
	for _, s := range e.steppers {
		op, ok := s.(stepper.ObservationProvider)
		if !ok {
			continue
		}
		for name, src := range op.Observations() {
			if _, dup := e.observations[name]; dup {
				return nil, fmt.Errorf("stepper %s: observation source %q registered twice", s.Name(), name)
			}
			e.observations[name] = src
		}
	}

	e.flow = &FlowRunner{engine: e}
	return e, nil
}

// Registry returns the resolver registry.
func (e *Engine) Registry() *resolver.Registry {
	return e.registry
}

// Steppers returns the registered steppers in registration order.
func (e *Engine) Steppers() []stepper.Stepper {
	return e.steppers
}

// Flow returns the flow runner bound to this engine.
func (e *Engine) Flow() *FlowRunner {
	return e.flow
}

// Options returns the run-level limits.
func (e *Engine) Options() stepper.Options {
	return e.options
}

// NewWorld creates the run state of one feature execution with a fresh run ID.
func (e *Engine) NewWorld(featurePath string) *stepper.World {
	w := stepper.NewWorld(e.runIDs.Generate(), featurePath, e.options)
	w.Flow = e.flow
	w.Sources = e
	w.Events = e.sink
	return w
}

// Resolve resolves text without executing it.
func (e *Engine) Resolve(text string, src ir.Source) (ir.FeatureStep, error) {
	return e.registry.Resolve(text, src)
}

// StartExecution runs every ExecutionHook's StartExecution in order.
func (e *Engine) StartExecution(ctx context.Context) error {
	var errs []error
	for _, s := range e.steppers {
		if h, ok := s.(stepper.ExecutionHook); ok {
			if err := h.StartExecution(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: start execution: %w", s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// EndExecution runs every ExecutionHook's EndExecution in order. All hooks
// run even when one fails.
func (e *Engine) EndExecution(ctx context.Context) error {
	var errs []error
	for _, s := range e.steppers {
		if h, ok := s.(stepper.ExecutionHook); ok {
			if err := h.EndExecution(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: end execution: %w", s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
