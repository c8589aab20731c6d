package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/stepwise/internal/ir"
)

// ReadRuns returns all stored runs ordered by id (start order for UUIDv7 ids).
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, feature, finished, ok, failed_at, message
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, feature, finished, ok, failed_at, message
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// ReadTrace returns the entries of a run in execution order:
// ORDER BY seq ASC, id ASC COLLATE BINARY.
// Returns an empty slice (not nil) if the run has no entries.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]ir.TraceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, path, source_path, source_line, statement, stepper, action,
		       mode, usage, synthetic, injected, ok, message, topics, duration_ns
		FROM trace_entries
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trace entries: %w", err)
	}
	defer rows.Close()

	entries := []ir.TraceEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace entries: %w", err)
	}
	return entries, nil
}

// ReadOutcomeLinks returns the outcome-graph records of a run ordered by
// seq ASC, id ASC COLLATE BINARY.
func (s *Store) ReadOutcomeLinks(ctx context.Context, runID string) ([]OutcomeLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, kind, phrase, outcome, proofs, source, background, path, seq
		FROM outcome_links
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcome links: %w", err)
	}
	defer rows.Close()

	links := []OutcomeLink{}
	for rows.Next() {
		var (
			link       OutcomeLink
			proofs     string
			background int
			path       string
		)
		if err := rows.Scan(&link.ID, &link.RunID, &link.Kind, &link.Phrase, &link.Outcome,
			&proofs, &link.Source, &background, &path, &link.Seq); err != nil {
			return nil, fmt.Errorf("scan outcome link: %w", err)
		}
		if link.Proofs, err = unmarshalProofs(proofs); err != nil {
			return nil, err
		}
		if link.Path, err = parseOptionalPath(path); err != nil {
			return nil, err
		}
		link.Background = background != 0
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome links: %w", err)
	}
	return links, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		finished int
		ok       int
		failedAt string
	)
	if err := row.Scan(&run.ID, &run.Feature, &finished, &ok, &failedAt, &run.Message); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	path, err := parseOptionalPath(failedAt)
	if err != nil {
		return Run{}, err
	}
	run.Finished = finished != 0
	run.OK = ok != 0
	run.FailedAt = path
	return run, nil
}

func scanEntry(row scanner) (ir.TraceEntry, error) {
	var (
		e                   ir.TraceEntry
		path, mode, topics  string
		synthetic, injected int
		ok                  int
		duration            int64
	)
	if err := row.Scan(&e.Seq, &path, &e.Source.Path, &e.Source.Line, &e.In, &e.Stepper, &e.Action,
		&mode, &e.Intent.Usage, &synthetic, &injected, &ok, &e.Result.Message, &topics, &duration); err != nil {
		return ir.TraceEntry{}, fmt.Errorf("scan trace entry: %w", err)
	}

	p, err := ir.ParseSeqPath(path)
	if err != nil {
		return ir.TraceEntry{}, fmt.Errorf("scan trace entry: %w", err)
	}
	e.Path = p
	e.Intent.Mode = ir.Mode(mode)
	e.Synthetic = synthetic != 0
	e.Injected = injected != 0
	e.Result.OK = ok != 0
	e.Duration = time.Duration(duration)
	if e.Result.Topics, err = unmarshalTopics(topics); err != nil {
		return ir.TraceEntry{}, err
	}
	return e, nil
}

func parseOptionalPath(s string) (ir.SeqPath, error) {
	if s == "" {
		return nil, nil
	}
	p, err := ir.ParseSeqPath(s)
	if err != nil {
		return nil, fmt.Errorf("parse stored path: %w", err)
	}
	return p, nil
}
