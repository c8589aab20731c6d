// Package activities implements the outcome registry: named, memoized
// preconditions proven by a list of statements.
//
// An outcome is registered from an "Activity:" block:
//
//	Activity: Is logged in as {user}
//	    set "loggedIn" to "true"
//	    set "user" to "{user}"
//
// "ensure Is logged in as "Admin"" proves it once per run and caches the
// key "Is logged in as Admin"; "forget" drops the key and "waypointed"
// checks it without proving.
package activities

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/stepwise/internal/feature"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/resolver"
	"github.com/roach88/stepwise/internal/stepper"
)

// StepperName is the name the activities stepper registers under.
const StepperName = "activities"

// Outcome is a registered outcome phrase and its proof statements.
type Outcome struct {
	Phrase     string
	Proofs     []string
	Source     ir.Source
	Background bool

	pattern *resolver.Pattern
}

// Key renders the cache key for terms.
func (o *Outcome) Key(terms map[string]string) string {
	return o.pattern.Render(terms)
}

// DuplicateOutcomeError is returned when a phrase is registered twice.
type DuplicateOutcomeError struct {
	Phrase string
	First  ir.Source
}

func (e *DuplicateOutcomeError) Error() string {
	return fmt.Sprintf("outcome %q already registered at %s", e.Phrase, e.First)
}

// Stepper holds background outcome definitions, which every run of the
// engine shares. Definitions from a feature live in that feature's World;
// satisfaction lives in each World's outcome cache.
type Stepper struct {
	mu         sync.RWMutex
	background []*Outcome
}

// featureOutcomes is the per-World set of feature definitions.
type featureOutcomes struct {
	outcomes []*Outcome
}

var (
	_ stepper.Stepper     = (*Stepper)(nil)
	_ stepper.FeatureHook = (*Stepper)(nil)
)

// New creates an empty registry.
func New() *Stepper {
	return &Stepper{}
}

func (s *Stepper) Name() string { return StepperName }

func (s *Stepper) Steps() []stepper.Definition {
	return []stepper.Definition{
		{
			Name:        "ensure",
			Template:    "ensure {outcome}",
			Unique:      true,
			Action:      s.ensure,
			Description: "Proves an outcome unless it is already established in this run.",
		},
		{
			Name:        "forget",
			Template:    "forget {outcome}",
			Unique:      true,
			Action:      s.forget,
			Description: "Drops an established outcome so the next ensure proves it again.",
		},
		{
			Name:        "waypointed",
			Template:    "waypointed {outcome}",
			Unique:      true,
			Action:      s.waypointed,
			Description: "Passes when an outcome is established; never proves it.",
		},
	}
}

func compile(o Outcome) (*Outcome, error) {
	p, err := resolver.CompileTemplate(resolver.Normalize(o.Phrase))
	if err != nil {
		return nil, fmt.Errorf("outcome %q: %w", o.Phrase, err)
	}
	o.pattern = p
	o.Proofs = append([]string(nil), o.Proofs...)
	return &o, nil
}

func duplicate(o *Outcome, sets ...[]*Outcome) error {
	for _, set := range sets {
		for _, existing := range set {
			if existing.pattern.Stripped == o.pattern.Stripped {
				return &DuplicateOutcomeError{Phrase: o.Phrase, First: existing.Source}
			}
		}
	}
	return nil
}

// Register adds a background outcome visible to every run. Its phrase may
// carry {name} placeholders.
func (s *Stepper) Register(o Outcome) error {
	compiled, err := compile(o)
	if err != nil {
		return err
	}
	compiled.Background = true

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := duplicate(compiled, s.background); err != nil {
		return err
	}
	s.background = append(s.background, compiled)
	return nil
}

// registerFeature adds an outcome visible only to the feature running in w.
func (s *Stepper) registerFeature(w *stepper.World, o Outcome) error {
	compiled, err := compile(o)
	if err != nil {
		return err
	}
	compiled.Background = false

	local := s.local(w)
	s.mu.RLock()
	err = duplicate(compiled, s.background, local.outcomes)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	local.outcomes = append(local.outcomes, compiled)
	return nil
}

func (s *Stepper) local(w *stepper.World) *featureOutcomes {
	return w.Local(StepperName, func() any { return &featureOutcomes{} }).(*featureOutcomes)
}

// Outcomes returns the background outcomes in registration order.
func (s *Stepper) Outcomes() []Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyOutcomes(s.background)
}

// FeatureOutcomes returns the outcomes the feature running in w registered.
func (s *Stepper) FeatureOutcomes(w *stepper.World) []Outcome {
	return copyOutcomes(s.local(w).outcomes)
}

func copyOutcomes(in []*Outcome) []Outcome {
	out := make([]Outcome, len(in))
	for i, o := range in {
		out[i] = *o
	}
	return out
}

// LoadFeature registers the activity blocks of f and emits a registered
// event for each. Blocks of a background go to the shared set.
func (s *Stepper) LoadFeature(ctx context.Context, w *stepper.World, f *feature.Feature) error {
	for _, a := range f.Activities {
		o := Outcome{
			Phrase:     a.Outcome,
			Proofs:     a.ProofTexts(),
			Source:     ir.Source{Path: f.Path, Line: a.Line},
			Background: f.Background,
		}
		var err error
		if f.Background {
			err = s.Register(o)
		} else {
			err = s.registerFeature(w, o)
		}
		if err != nil {
			return err
		}
		w.Events.OutcomeLinked(ctx, stepper.OutcomeEvent{
			RunID:      w.RunID,
			Kind:       stepper.OutcomeRegistered,
			Phrase:     o.Phrase,
			Proofs:     o.Proofs,
			Source:     o.Source.String(),
			Background: o.Background,
		})
	}
	return nil
}

func (s *Stepper) StartFeature(context.Context, *stepper.World) error { return nil }

// EndFeature drops the definitions the feature registered.
func (s *Stepper) EndFeature(_ context.Context, w *stepper.World) error {
	w.DropLocal(StepperName)
	return nil
}

// lookup finds the outcome matching text, backgrounds first, and returns it
// with its terms and key.
func (s *Stepper) lookup(w *stepper.World, text string) (*Outcome, map[string]string, string, bool) {
	text = resolver.Normalize(text)
	s.mu.RLock()
	candidates := append([]*Outcome(nil), s.background...)
	s.mu.RUnlock()
	candidates = append(candidates, s.local(w).outcomes...)

	for _, o := range candidates {
		caps, ok := o.pattern.Match(text)
		if !ok {
			continue
		}
		terms := make(map[string]string, len(caps))
		for _, c := range caps {
			terms[c.Slot.Name] = c.Term
		}
		return o, terms, o.Key(terms), true
	}
	return nil, nil, text, false
}

func outcomeTopics(key string, cached bool) ir.Object {
	return ir.NewObject(ir.O("outcome", ir.String(key)), ir.O("cached", ir.Bool(cached)))
}

func (s *Stepper) ensure(ctx context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	text := step.Args.Term("outcome")
	o, terms, key, ok := s.lookup(w, text)
	if !ok {
		return ir.Fail(fmt.Sprintf("no outcome registered for %s", text), nil), nil
	}
	if w.Outcomes.Satisfied(key) {
		return ir.OK(outcomeTopics(key, true)), nil
	}

	sig, err := w.Flow.RunStatements(ctx, w, o.Proofs, stepper.FlowOptions{
		Parent: step,
		Intent: step.Intent,
		Args:   terms,
	})
	if err != nil {
		return ir.Result{}, err
	}
	if !sig.OK {
		return ir.Fail(fmt.Sprintf("ensure %s: %s", key, sig.Message), sig.Topics), nil
	}

	seq := w.Clock.Current()
	w.Outcomes.Satisfy(key, stepper.Proof{Path: step.Path.Clone(), Seq: seq})
	w.Events.OutcomeLinked(ctx, stepper.OutcomeEvent{
		RunID:      w.RunID,
		Kind:       stepper.OutcomeEnsured,
		Phrase:     o.Phrase,
		Key:        key,
		Proofs:     o.Proofs,
		Source:     o.Source.String(),
		Background: o.Background,
		Path:       step.Path.Clone(),
		Seq:        seq,
	})
	return ir.OK(outcomeTopics(key, false)), nil
}

func (s *Stepper) forget(ctx context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	_, _, key, _ := s.lookup(w, step.Args.Term("outcome"))
	if !w.Outcomes.Satisfied(key) {
		return ir.OK(nil), nil
	}
	w.Outcomes.Forget(key)
	w.Events.OutcomeLinked(ctx, stepper.OutcomeEvent{
		RunID: w.RunID,
		Kind:  stepper.OutcomeForgotten,
		Key:   key,
		Path:  step.Path.Clone(),
		Seq:   w.Clock.Current(),
	})
	return ir.OK(nil), nil
}

func (s *Stepper) waypointed(_ context.Context, w *stepper.World, step *ir.FeatureStep) (ir.Result, error) {
	_, _, key, _ := s.lookup(w, step.Args.Term("outcome"))
	if !w.Outcomes.Satisfied(key) {
		return ir.Fail("outcome not established: "+key, nil), nil
	}
	return ir.OK(outcomeTopics(key, true)), nil
}
