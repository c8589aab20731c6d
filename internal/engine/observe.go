package engine

import (
	"context"
	"strconv"

	"github.com/roach88/stepwise/internal/stepper"
)

// StepCountsSource is the built-in observation source yielding each distinct
// stepper.action executed so far in the run, with metric "count".
const StepCountsSource = "step counts"

var _ stepper.Sources = (*Engine)(nil)

// Observe implements stepper.Sources. Enumerated domains are checked before
// observation sources. A domain declared with an empty member list is an
// empty source, not an unknown one.
func (e *Engine) Observe(ctx context.Context, w *stepper.World, name string) ([]stepper.Observation, bool, error) {
	if d, ok := e.registry.Domain(name); ok && d.Enumerated() {
		out := make([]stepper.Observation, len(d.Values))
		for i, v := range d.Values {
			out[i] = stepper.Observation{Value: v}
		}
		return out, true, nil
	}
	src, ok := e.observations[name]
	if !ok {
		return nil, false, nil
	}
	values, err := src.Observe(ctx, w)
	return values, true, err
}

func stepCounts(_ context.Context, w *stepper.World) ([]stepper.Observation, error) {
	var order []string
	counts := make(map[string]int)
	for _, entry := range w.Trace.Entries() {
		key := entry.Key()
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}
	out := make([]stepper.Observation, len(order))
	for i, key := range order {
		out[i] = stepper.Observation{
			Value:   key,
			Metrics: map[string]string{"count": strconv.Itoa(counts[key])},
		}
	}
	return out, nil
}
