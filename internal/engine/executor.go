package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/stepper"
)

// errRetry is returned from a retry attempt that an after-step hook asked to repeat.
var errRetry = errors.New("retry requested")

// Execute runs one placed step and records it in the run trace.
//
// Order of operations:
//  1. before-step hooks (skipped for debugging usage)
//  2. validator, then the action; after-step hooks may retry it
//  3. the entry is stamped with the next clock value and appended to the trace
//  4. on success, apply-effect statements and matching effect rules are
//     resolved into injected steps the caller must run next
//
// An action error is recorded as a failed entry. It is returned unless the
// step's intent contains it (speculative mode or polling usage), in which
// case the failed result is the only signal. Unknown actions and duplicate
// paths are always returned.
func (e *Engine) Execute(ctx context.Context, w *stepper.World, step ir.FeatureStep) (ir.Result, []ir.FeatureStep, error) {
	def, ok := e.registry.Lookup(step.Stepper, step.Action)
	if !ok {
		return ir.Result{}, nil, NewUnknownActionError(step)
	}
	if w.Trace.Has(step.Path) {
		return ir.Result{}, nil, duplicatePathError(step)
	}

	started := time.Now()
	ev := stepper.StepEvent{
		RunID:     w.RunID,
		Feature:   w.Feature,
		Path:      step.Path,
		Source:    step.Source,
		In:        step.In,
		Stepper:   step.Stepper,
		Action:    step.Action,
		Intent:    step.Intent,
		Synthetic: step.Synthetic,
		Injected:  step.Injected,
		Started:   started,
	}
	w.Events.StepStarted(ctx, ev)

	result, runErr := e.run(ctx, w, def, &step)
	if runErr != nil {
		result = ir.Fail(runErr.Error(), result.Topics)
	}

	var injected []ir.FeatureStep
	if runErr == nil && result.OK {
		var err error
		injected, err = e.effects(ctx, w, def, &step)
		if err != nil {
			runErr = err
			result = ir.Fail(err.Error(), result.Topics)
		}
	}

	ev.Seq = w.Clock.Next()
	ev.Duration = time.Since(started)
	ev.Result = &result
	if err := w.Trace.Append(ev.Entry()); err != nil {
		return result, nil, duplicatePathError(step)
	}
	w.Events.StepEnded(ctx, ev)

	slog.Debug("step executed",
		"run_id", w.RunID,
		"path", step.Path.String(),
		"stepper", step.Stepper,
		"action", step.Action,
		"statement", step.In,
		"ok", result.OK)

	if runErr != nil {
		if step.Intent.Contained() && !isFatal(runErr) {
			return result, nil, nil
		}
		return result, nil, runErr
	}
	return result, injected, nil
}

// run applies hooks, the validator and the retry loop around the action.
func (e *Engine) run(ctx context.Context, w *stepper.World, def stepper.Definition, step *ir.FeatureStep) (ir.Result, error) {
	if step.Intent.Usage != ir.UsageDebugging {
		ctl, err := e.beforeStep(ctx, w, step)
		if err != nil {
			return ir.Result{}, hookError(step, err)
		}
		switch ctl.Kind {
		case stepper.ControlFail:
			return ir.Fail(messageOr(ctl.Message, "failed by before-step hook"), nil), nil
		case stepper.ControlNext:
			return ir.OK(nil), nil
		}
	}

	if def.Validate != nil {
		if err := def.Validate(step); err != nil {
			return ir.Fail("invalid arguments: "+err.Error(), nil), nil
		}
	}

	var result ir.Result
	attempt := func() error {
		r, err := e.invoke(ctx, w, def, step)
		if err != nil {
			return backoff.Permanent(err)
		}
		ctl, err := e.afterStep(ctx, w, step, r)
		if err != nil {
			return backoff.Permanent(hookError(step, err))
		}
		switch ctl.Kind {
		case stepper.ControlFail:
			result = ir.Fail(messageOr(ctl.Message, "failed by after-step hook"), r.Topics)
		case stepper.ControlRetry:
			result = r
			return errRetry
		case stepper.ControlNext:
			result = ir.OK(r.Topics)
		default:
			result = r
		}
		return nil
	}

	retries := max(w.Options.MaxRetries, 0)
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(w.Options.RetryInterval), uint64(retries)),
		ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		if errors.Is(err, errRetry) {
			return ir.Fail("retry limit reached", result.Topics), nil
		}
		return result, err
	}
	return result, nil
}

// invoke calls the action, converting panics and errors into RuntimeErrors.
// RuntimeErrors from nested steps pass through unchanged.
func (e *Engine) invoke(ctx context.Context, w *stepper.World, def stepper.Definition, step *ir.FeatureStep) (res ir.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RuntimeError{
				Code:      ErrCodeActionPanic,
				Message:   fmt.Sprintf("action %s panicked: %v", step.Key(), r),
				Path:      step.Path.String(),
				Statement: step.In,
			}
		}
	}()

	res, err = def.Action(ctx, w, step)
	if err == nil {
		return res, nil
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return res, err
	}
	return res, &RuntimeError{
		Code:      ErrCodeActionFailed,
		Message:   fmt.Sprintf("action %s returned an error", step.Key()),
		Path:      step.Path.String(),
		Statement: step.In,
		Err:       err,
	}
}

func (e *Engine) beforeStep(ctx context.Context, w *stepper.World, step *ir.FeatureStep) (stepper.Control, error) {
	ctl := stepper.Continue()
	for _, s := range e.steppers {
		h, ok := s.(stepper.BeforeStepHook)
		if !ok {
			continue
		}
		c, err := h.BeforeStep(ctx, w, step)
		if err != nil {
			return ctl, fmt.Errorf("%s: before step: %w", s.Name(), err)
		}
		ctl = stepper.Strongest(ctl, c)
	}
	return ctl, nil
}

func (e *Engine) afterStep(ctx context.Context, w *stepper.World, step *ir.FeatureStep, result ir.Result) (stepper.Control, error) {
	ctl := stepper.Continue()
	for _, s := range e.steppers {
		h, ok := s.(stepper.AfterStepHook)
		if !ok {
			continue
		}
		c, err := h.AfterStep(ctx, w, step, result)
		if err != nil {
			return ctl, fmt.Errorf("%s: after step: %w", s.Name(), err)
		}
		ctl = stepper.Strongest(ctl, c)
	}
	return ctl, nil
}

// effects collects the statements to inject after a successful step and
// resolves them. Injected steps keep the parent's intent and inherited args.
func (e *Engine) effects(ctx context.Context, w *stepper.World, def stepper.Definition, step *ir.FeatureStep) ([]ir.FeatureStep, error) {
	var statements []string
	if def.ApplyEffect != nil {
		s, err := def.ApplyEffect(ctx, w, step, e.steppers)
		if err != nil {
			return nil, &RuntimeError{
				Code:      ErrCodeActionFailed,
				Message:   fmt.Sprintf("apply effect of %s failed", step.Key()),
				Path:      step.Path.String(),
				Statement: step.In,
				Err:       err,
			}
		}
		statements = append(statements, s...)
	}
	for _, rule := range w.Effects() {
		if rule.Matches(step) {
			statements = append(statements, rule.Statement)
		}
	}
	if len(statements) == 0 {
		return nil, nil
	}

	steps := make([]ir.FeatureStep, 0, len(statements))
	for _, s := range statements {
		fs, err := e.registry.Resolve(Interpolate(s, step.Inherited), step.Source)
		if err != nil {
			return nil, fmt.Errorf("injected statement: %w", err)
		}
		fs.Injected = true
		fs.Intent = step.Intent
		steps = append(steps, fs)
	}
	return steps, nil
}

func hookError(step *ir.FeatureStep, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeActionFailed,
		Message:   "step hook returned an error",
		Path:      step.Path.String(),
		Statement: step.In,
		Err:       err,
	}
}

func duplicatePathError(step ir.FeatureStep) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeDuplicatePath,
		Message:   "sequence path already recorded in this run",
		Path:      step.Path.String(),
		Statement: step.In,
		Err:       &ir.DuplicatePathError{Path: step.Path},
	}
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
