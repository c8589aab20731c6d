package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/stepwise/internal/activities"
	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/feature"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/logic"
	"github.com/roach88/stepwise/internal/stepper"
	"github.com/roach88/stepwise/internal/store"
	"github.com/roach88/stepwise/internal/testutil"
	"github.com/roach88/stepwise/internal/variables"
)

// Harness is the scenario execution environment: one engine with the
// standard steppers, an isolated store, and a discarding logger.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Steppers returns the steppers every scenario runs with.
func Steppers() []stepper.Stepper {
	return []stepper.Stepper{
		testutil.NewFixture(),
		variables.New(),
		logic.New(),
		activities.New(),
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Create fresh in-memory database and engine
//  2. Register backgrounds
//  3. Run the feature
//  4. Compare the outcome with expect, failed_at and message
//  5. Evaluate assertions against the in-memory and stored traces
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(st, scenario)
	if err != nil {
		return nil, err
	}

	return h.run(context.Background(), scenario)
}

func newHarness(st *store.Store, scenario *Scenario) (*Harness, error) {
	opts := []engine.Option{
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithSink(store.NewSink(st)),
	}
	if scenario.MaxLoopIterations > 0 {
		opts = append(opts, engine.WithMaxLoopIterations(scenario.MaxLoopIterations))
	}
	if len(scenario.Domains) > 0 {
		opts = append(opts, engine.WithDomains(domains(scenario.Domains)...))
	}

	eng, err := engine.New(Steppers(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	for i, text := range scenario.Backgrounds {
		bg, err := feature.Parse(text, fmt.Sprintf("%s.background-%d", scenario.Name, i+1))
		if err != nil {
			return nil, fmt.Errorf("background %d: %w", i+1, err)
		}
		if err := eng.AddBackground(bg); err != nil {
			return nil, fmt.Errorf("background %d: %w", i+1, err)
		}
	}

	return &Harness{
		store:  st,
		engine: eng,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	f, err := feature.Parse(scenario.Feature, scenario.Name+".feature")
	if err != nil {
		return nil, fmt.Errorf("failed to parse feature: %w", err)
	}

	// The engine logs through the default logger.
	prev := slog.Default()
	slog.SetDefault(h.logger)
	defer slog.SetDefault(prev)

	w := h.engine.NewWorld(f.Path)
	res, runErr := h.engine.RunFeature(ctx, w, f)

	result := NewResult()
	result.RunID = res.RunID
	result.Trace = res.Trace
	result.FailedAt = res.FailedAt
	result.Message = res.Message
	switch {
	case runErr != nil:
		result.Outcome = OutcomeError
		result.Message = runErr.Error()
	case res.OK:
		result.Outcome = OutcomePass
	default:
		result.Outcome = OutcomeFail
	}

	if err := h.store.FinishRun(ctx, store.Run{
		ID:       res.RunID,
		Feature:  res.Feature,
		OK:       res.OK && runErr == nil,
		FailedAt: res.FailedAt,
		Message:  result.Message,
	}); err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}
	stored, err := h.store.ReadTrace(ctx, res.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored trace: %w", err)
	}

	h.logger.Info("scenario executed",
		"scenario", scenario.Name,
		"run_id", res.RunID,
		"outcome", result.Outcome,
		"entries", len(result.Trace))

	checkOutcome(scenario, result)
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, &AssertionContext{Stored: stored}) {
		result.AddError(msg)
	}

	return result, nil
}

// checkOutcome compares the feature verdict with the scenario's expectations.
func checkOutcome(scenario *Scenario, result *Result) {
	if result.Outcome != scenario.Expect {
		msg := fmt.Sprintf("expected %s, got %s", scenario.Expect, result.Outcome)
		if result.Message != "" {
			msg += ": " + result.Message
		}
		result.AddError(msg)
	}

	if scenario.FailedAt != "" {
		want, _ := ir.ParseSeqPath(scenario.FailedAt)
		if !want.Equal(result.FailedAt) {
			result.AddError(fmt.Sprintf("expected failure at %s, got %q", scenario.FailedAt, result.FailedAt.String()))
		}
	}

	if scenario.Message != "" && !strings.Contains(result.Message, scenario.Message) {
		result.AddError(fmt.Sprintf("expected message containing %q, got %q", scenario.Message, result.Message))
	}
}

// domains converts scenario domains sorted by name.
func domains(m map[string][]string) []stepper.Domain {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]stepper.Domain, 0, len(names))
	for _, name := range names {
		values := m[name]
		if values == nil {
			values = []string{}
		}
		out = append(out, stepper.Domain{Name: name, Values: values})
	}
	return out
}

// RunAll runs every scenario, returning results in order. Execution errors
// are joined; a failed scenario is reported through its Result.
func RunAll(scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	var errs []error
	for _, s := range scenarios {
		res, err := Run(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			res = NewResult()
			res.Outcome = OutcomeError
			res.AddError(err.Error())
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
