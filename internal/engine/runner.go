package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/stepwise/internal/feature"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/stepper"
)

// FeatureLoader is implemented by steppers that read definitions out of
// parsed feature files, such as activity blocks.
type FeatureLoader interface {
	LoadFeature(ctx context.Context, w *stepper.World, f *feature.Feature) error
}

// FeatureResult summarizes one feature execution.
type FeatureResult struct {
	RunID   string
	Feature string
	OK      bool

	// FailedAt is the path of the top-level statement that failed, if any.
	FailedAt ir.SeqPath
	Message  string

	// Trace holds every recorded entry in sequence path order.
	Trace []ir.TraceEntry
}

// AddBackground queues a background whose definitions persist across
// features. Backgrounds are loaded once, before the first feature runs.
func (e *Engine) AddBackground(f *feature.Feature) error {
	bg, err := feature.AsBackground(f)
	if err != nil {
		return err
	}
	e.bgMu.Lock()
	defer e.bgMu.Unlock()
	if e.bgLoaded {
		return errors.New("backgrounds already loaded")
	}
	e.backgrounds = append(e.backgrounds, bg)
	return nil
}

// RunFeature executes the statements of f in w.
//
// Feature-scoped state in w is reset first. Top-level statements are placed
// at [1], [2], ... and run authoritatively; the first failure stops the
// feature. An error is returned with the partial result when a statement
// could not be resolved or an action error propagated.
func (e *Engine) RunFeature(ctx context.Context, w *stepper.World, f *feature.Feature) (*FeatureResult, error) {
	w.ResetFeature()
	res := &FeatureResult{RunID: w.RunID, Feature: f.Path, OK: true}

	runErr := e.startFeature(ctx, w, f)
	if runErr != nil {
		res.OK = false
		res.Message = runErr.Error()
	} else {
		slog.Info("feature started", "run_id", w.RunID, "feature", f.Path, "statements", len(f.Statements))
		runErr = e.runStatements(ctx, w, f, res)
	}

	errs := []error{runErr}
	for _, s := range e.steppers {
		if h, ok := s.(stepper.FeatureHook); ok {
			if err := h.EndFeature(ctx, w); err != nil {
				errs = append(errs, fmt.Errorf("%s: end feature: %w", s.Name(), err))
			}
		}
	}

	slog.Info("feature finished", "run_id", w.RunID, "feature", f.Path, "ok", res.OK)
	res.Trace = w.Trace.Ordered()
	return res, errors.Join(errs...)
}

// startFeature loads definitions and runs StartFeature hooks.
func (e *Engine) startFeature(ctx context.Context, w *stepper.World, f *feature.Feature) error {
	if err := e.load(ctx, w, f); err != nil {
		return err
	}
	for _, s := range e.steppers {
		if h, ok := s.(stepper.FeatureHook); ok {
			if err := h.StartFeature(ctx, w); err != nil {
				return fmt.Errorf("%s: start feature: %w", s.Name(), err)
			}
		}
	}
	return nil
}

func (e *Engine) runStatements(ctx context.Context, w *stepper.World, f *feature.Feature, res *FeatureResult) error {
	for i, st := range f.Statements {
		path := ir.SeqPath{i + 1}
		step, err := e.registry.Resolve(st.Text, ir.Source{Path: f.Path, Line: st.Line})
		if err != nil {
			res.fail(path, err.Error())
			return fmt.Errorf("%s:%d: %w", f.Path, st.Line, err)
		}
		step = step.WithPath(path).WithIntent(ir.Authoritative())

		sig, err := e.flow.execute(ctx, w, step)
		if err != nil {
			res.fail(path, err.Error())
			return err
		}
		if !sig.OK {
			res.fail(path, sig.Message)
			return nil
		}
	}
	return nil
}

// load hands background and feature definitions to every FeatureLoader.
func (e *Engine) load(ctx context.Context, w *stepper.World, f *feature.Feature) error {
	var loaders []FeatureLoader
	for _, s := range e.steppers {
		if l, ok := s.(FeatureLoader); ok {
			loaders = append(loaders, l)
		}
	}

	e.bgOnce.Do(func() {
		e.bgMu.Lock()
		e.bgLoaded = true
		backgrounds := e.backgrounds
		e.bgMu.Unlock()
		e.bgErr = loadBackgrounds(ctx, w, loaders, backgrounds)
	})
	if e.bgErr != nil {
		return e.bgErr
	}
	for _, l := range loaders {
		if err := l.LoadFeature(ctx, w, f); err != nil {
			return fmt.Errorf("load feature %s: %w", f.Path, err)
		}
	}
	return nil
}

// loadBackgrounds runs once per engine, in the first feature's World.
func loadBackgrounds(ctx context.Context, w *stepper.World, loaders []FeatureLoader, backgrounds []*feature.Feature) error {
	for _, bg := range backgrounds {
		for _, l := range loaders {
			if err := l.LoadFeature(ctx, w, bg); err != nil {
				return fmt.Errorf("load background %s: %w", bg.Path, err)
			}
		}
	}
	return nil
}

func (r *FeatureResult) fail(path ir.SeqPath, msg string) {
	r.OK = false
	r.FailedAt = path
	r.Message = msg
}
