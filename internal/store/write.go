package store

import (
	"context"
	"fmt"

	"github.com/roach88/stepwise/internal/ir"
)

// Run is the stored summary of one feature execution.
type Run struct {
	ID       string
	Feature  string
	Finished bool
	OK       bool
	FailedAt ir.SeqPath
	Message  string
}

// OutcomeLink is one stored outcome-graph record.
type OutcomeLink struct {
	ID         string
	RunID      string
	Kind       string
	Phrase     string
	Outcome    string
	Proofs     []string
	Source     string
	Background bool
	Path       ir.SeqPath
	Seq        int64
}

// BeginRun records a run if it is not stored yet. A run first seen without
// a feature name takes the name of a later call.
func (s *Store) BeginRun(ctx context.Context, runID, feature string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, feature) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET feature = excluded.feature
		WHERE runs.feature = '' AND excluded.feature != ''
	`, runID, feature)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun stores the verdict of a run, creating the run row if needed.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, feature, finished, ok, failed_at, message)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			feature   = CASE WHEN excluded.feature != '' THEN excluded.feature ELSE runs.feature END,
			finished  = 1,
			ok        = excluded.ok,
			failed_at = excluded.failed_at,
			message   = excluded.message
	`,
		run.ID,
		run.Feature,
		boolInt(run.OK),
		run.FailedAt.String(),
		run.Message,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// WriteEntry appends a trace entry to a stored run.
// Uses ON CONFLICT DO NOTHING: a second entry at the same path is ignored.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteEntry(ctx context.Context, runID string, e ir.TraceEntry) error {
	id, err := ir.EntryID(runID, e.Path, e.Seq, e.In)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	topics, err := marshalTopics(e.Result.Topics)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trace_entries
		(id, run_id, seq, path, source_path, source_line, statement, stepper, action,
		 mode, usage, synthetic, injected, ok, message, topics, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		id,
		runID,
		e.Seq,
		e.Path.String(),
		e.Source.Path,
		e.Source.Line,
		e.In,
		e.Stepper,
		e.Action,
		string(e.Intent.Mode),
		e.Intent.Usage,
		boolInt(e.Synthetic),
		boolInt(e.Injected),
		boolInt(e.Result.OK),
		e.Result.Message,
		topics,
		int64(e.Duration),
	)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

// WriteOutcomeLink stores an outcome-graph record and returns its ID.
// Duplicate records are ignored.
func (s *Store) WriteOutcomeLink(ctx context.Context, link OutcomeLink) (string, error) {
	id, err := ir.OutcomeID(link.RunID, link.Kind, link.Outcome, link.Seq)
	if err != nil {
		return "", fmt.Errorf("write outcome link: %w", err)
	}
	proofs, err := marshalProofs(link.Proofs)
	if err != nil {
		return "", fmt.Errorf("write outcome link: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outcome_links
		(id, run_id, kind, phrase, outcome, proofs, source, background, path, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		link.RunID,
		link.Kind,
		link.Phrase,
		link.Outcome,
		proofs,
		link.Source,
		boolInt(link.Background),
		link.Path.String(),
		link.Seq,
	)
	if err != nil {
		return "", fmt.Errorf("write outcome link: %w", err)
	}
	return id, nil
}
