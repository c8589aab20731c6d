package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/stepwise/internal/stepper"
)

// Sink persists engine events. Write failures are logged and never fail the run.
type Sink struct {
	store *Store

	mu   sync.Mutex
	runs map[string]string // run ID -> feature recorded so far
}

var _ stepper.EventSink = (*Sink)(nil)

// NewSink returns an event sink writing to s.
func NewSink(s *Store) *Sink {
	return &Sink{store: s, runs: make(map[string]string)}
}

// StepStarted records the run on first sight. Entries are written on end.
func (k *Sink) StepStarted(ctx context.Context, ev stepper.StepEvent) {
	k.ensureRun(ctx, ev.RunID, ev.Feature)
}

// StepEnded appends the finished step to the run's trace.
func (k *Sink) StepEnded(ctx context.Context, ev stepper.StepEvent) {
	if !k.ensureRun(ctx, ev.RunID, ev.Feature) {
		return
	}
	if err := k.store.WriteEntry(ctx, ev.RunID, ev.Entry()); err != nil {
		slog.Warn("trace store write failed",
			"run_id", ev.RunID,
			"path", ev.Path.String(),
			"error", err)
	}
}

// OutcomeLinked stores an outcome-graph record.
func (k *Sink) OutcomeLinked(ctx context.Context, ev stepper.OutcomeEvent) {
	if !k.ensureRun(ctx, ev.RunID, "") {
		return
	}
	_, err := k.store.WriteOutcomeLink(ctx, OutcomeLink{
		RunID:      ev.RunID,
		Kind:       string(ev.Kind),
		Phrase:     ev.Phrase,
		Outcome:    ev.Key,
		Proofs:     ev.Proofs,
		Source:     ev.Source,
		Background: ev.Background,
		Path:       ev.Path,
		Seq:        ev.Seq,
	})
	if err != nil {
		slog.Warn("outcome link write failed",
			"run_id", ev.RunID,
			"outcome", ev.Key,
			"error", err)
	}
}

// ensureRun writes the run row once per (run, feature) pair seen.
func (k *Sink) ensureRun(ctx context.Context, runID, feature string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	known, seen := k.runs[runID]
	if seen && (feature == "" || known != "") {
		return true
	}
	if err := k.store.BeginRun(ctx, runID, feature); err != nil {
		slog.Warn("run record write failed", "run_id", runID, "error", err)
		return false
	}
	k.runs[runID] = feature
	return true
}
