package stepper

import (
	"context"
	"time"

	"github.com/roach88/stepwise/internal/ir"
)

// StepEvent describes a step starting or ending. Result is nil on start.
type StepEvent struct {
	RunID     string
	Feature   string
	Seq       int64
	Path      ir.SeqPath
	Source    ir.Source
	In        string
	Stepper   string
	Action    string
	Intent    ir.Intent
	Synthetic bool
	Injected  bool
	Started   time.Time
	Duration  time.Duration
	Result    *ir.Result
}

// Entry converts an ended step event into a trace entry.
func (e StepEvent) Entry() ir.TraceEntry {
	entry := ir.TraceEntry{
		Seq:       e.Seq,
		Path:      e.Path,
		Source:    e.Source,
		In:        e.In,
		Stepper:   e.Stepper,
		Action:    e.Action,
		Intent:    e.Intent,
		Synthetic: e.Synthetic,
		Injected:  e.Injected,
		Started:   e.Started,
		Duration:  e.Duration,
	}
	if e.Result != nil {
		entry.Result = *e.Result
	}
	return entry
}

// OutcomeKind classifies outcome-graph records.
type OutcomeKind string

const (
	OutcomeRegistered OutcomeKind = "registered"
	OutcomeEnsured    OutcomeKind = "ensured"
	OutcomeForgotten  OutcomeKind = "forgotten"
)

// OutcomeEvent links an outcome phrase to its proofs for graph tooling.
type OutcomeEvent struct {
	RunID      string
	Kind       OutcomeKind
	Phrase     string
	Key        string
	Proofs     []string
	Source     string
	Background bool
	Path       ir.SeqPath
	Seq        int64
}

// EventSink receives the engine's outward events. Delivery is best effort:
// sinks must not fail the run, so methods return nothing.
type EventSink interface {
	StepStarted(ctx context.Context, ev StepEvent)
	StepEnded(ctx context.Context, ev StepEvent)
	OutcomeLinked(ctx context.Context, ev OutcomeEvent)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) StepStarted(context.Context, StepEvent) {}
func (NopSink) StepEnded(context.Context, StepEvent) {}
func (NopSink) OutcomeLinked(context.Context, OutcomeEvent) {}

// MultiSink fans events out in order.
type MultiSink []EventSink

func (m MultiSink) StepStarted(ctx context.Context, ev StepEvent) {
	for _, s := range m {
		s.StepStarted(ctx, ev)
	}
}

func (m MultiSink) StepEnded(ctx context.Context, ev StepEvent) {
	for _, s := range m {
		s.StepEnded(ctx, ev)
	}
}

func (m MultiSink) OutcomeLinked(ctx context.Context, ev OutcomeEvent) {
	for _, s := range m {
		s.OutcomeLinked(ctx, ev)
	}
}

// RecordingSink keeps every event in memory. Used by tests and the harness.
type RecordingSink struct {
	Started  []StepEvent
	Ended    []StepEvent
	Outcomes []OutcomeEvent
}

func (r *RecordingSink) StepStarted(_ context.Context, ev StepEvent) {
	r.Started = append(r.Started, ev)
}

func (r *RecordingSink) StepEnded(_ context.Context, ev StepEvent) {
	r.Ended = append(r.Ended, ev)
}

func (r *RecordingSink) OutcomeLinked(_ context.Context, ev OutcomeEvent) {
	r.Outcomes = append(r.Outcomes, ev)
}
