package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/harness"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Action   string // optional "stepper.action" filter
	Under    string // optional sequence path; keeps that step and its descendants
}

// TraceStep is one recorded step in trace output.
type TraceStep struct {
	Path      string `json:"path"`
	Seq       int64  `json:"seq"`
	Source    string `json:"source,omitempty"`
	Statement string `json:"statement"`
	Action    string `json:"action"`
	Mode      string `json:"mode"`
	Usage     string `json:"usage,omitempty"`
	Synthetic bool   `json:"synthetic,omitempty"`
	Injected  bool   `json:"injected,omitempty"`
	OK        bool   `json:"ok"`
	Message   string `json:"message,omitempty"`
	Topics    string `json:"topics,omitempty"`
}

// TraceOutcome is one outcome link in trace output.
type TraceOutcome struct {
	Kind       string   `json:"kind"`
	Phrase     string   `json:"phrase,omitempty"`
	Outcome    string   `json:"outcome"`
	Proofs     []string `json:"proofs,omitempty"`
	Background bool     `json:"background,omitempty"`
	Path       string   `json:"path,omitempty"`
}

// TraceResult holds the complete trace of one run.
type TraceResult struct {
	Run      RunInfo        `json:"run"`
	Steps    []TraceStep    `json:"steps"`
	Outcomes []TraceOutcome `json:"outcomes"`
	Stats    TraceStats     `json:"stats"`
}

// RunInfo summarizes a stored run.
type RunInfo struct {
	ID       string `json:"id"`
	Feature  string `json:"feature"`
	Finished bool   `json:"finished"`
	OK       bool   `json:"ok"`
	FailedAt string `json:"failed_at,omitempty"`
	Message  string `json:"message,omitempty"`
}

// TraceStats holds summary counts for a run.
type TraceStats struct {
	Steps       int `json:"steps"`
	Failed      int `json:"failed"`
	Speculative int `json:"speculative"`
	Injected    int `json:"injected"`
	Outcomes    int `json:"outcomes"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show recorded runs",
		Long: `Show runs recorded in a trace database.

Without a run ID, lists every run oldest first. With a run ID, shows the
run's steps in sequence path order, the outcome links made during the
run and summary counts.

Examples:
  stepwise trace --db ./trace.db
  stepwise trace --db ./trace.db 01927f3c-...
  stepwise trace --db ./trace.db --action variables.set 01927f3c-...
  stepwise trace --db ./trace.db --under 2 01927f3c-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listRuns(cmd, opts)
			}
			return runTrace(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Action, "action", "", "filter steps to one stepper.action")
	cmd.Flags().StringVar(&opts.Under, "under", "", "filter steps to the subtree at a sequence path")

	return cmd
}

func openTraceStore(out *OutputFormatter, path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		_ = out.Error(CodeStore, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func listRuns(cmd *cobra.Command, opts *TraceOptions) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	st, err := openTraceStore(out, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ReadRuns(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read runs", err)
	}

	infos := make([]RunInfo, len(runs))
	for i, r := range runs {
		infos[i] = runInfo(r)
	}
	if out.JSON() {
		return out.Success(infos)
	}

	w := out.Writer
	if len(infos) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range infos {
		fmt.Fprintf(w, "%s  %-10s %s\n", r.ID, runStatus(r), r.Feature)
	}
	return nil
}

func runTrace(cmd *cobra.Command, opts *TraceOptions, runID string) error {
	ctx := context.Background()
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var under ir.SeqPath
	if opts.Under != "" {
		p, err := ir.ParseSeqPath(opts.Under)
		if err != nil {
			_ = out.Error(CodeParse, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --under path", err)
		}
		under = p
	}

	st, err := openTraceStore(out, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		_ = out.Error(CodeNoSuchRun, "no run "+runID, nil)
		return NewExitError(ExitCommandError, "run not found: "+runID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	entries, err := st.ReadTrace(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	links, err := st.ReadOutcomeLinks(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read outcome links", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Path.Compare(entries[j].Path) < 0
	})
	if opts.Action != "" {
		entries = filterEntries(entries, func(e ir.TraceEntry) bool { return e.Key() == opts.Action })
	}
	if under != nil {
		entries = filterEntries(entries, func(e ir.TraceEntry) bool { return e.Path.HasPrefix(under) })
	}

	result := TraceResult{
		Run:      runInfo(run),
		Steps:    make([]TraceStep, 0, len(entries)),
		Outcomes: make([]TraceOutcome, 0, len(links)),
	}
	for _, e := range entries {
		result.Steps = append(result.Steps, traceStep(e))
		result.Stats.Steps++
		if !e.Result.OK {
			result.Stats.Failed++
		}
		if e.Intent.IsSpeculative() {
			result.Stats.Speculative++
		}
		if e.Injected {
			result.Stats.Injected++
		}
	}
	for _, l := range links {
		o := TraceOutcome{
			Kind:       l.Kind,
			Phrase:     l.Phrase,
			Outcome:    l.Outcome,
			Proofs:     l.Proofs,
			Background: l.Background,
		}
		if len(l.Path) > 0 {
			o.Path = l.Path.String()
		}
		result.Outcomes = append(result.Outcomes, o)
	}
	result.Stats.Outcomes = len(result.Outcomes)

	if out.JSON() {
		return out.Success(result)
	}
	writeTraceText(out.Writer, result, entries, opts.Verbose)
	return nil
}

func filterEntries(entries []ir.TraceEntry, keep func(ir.TraceEntry) bool) []ir.TraceEntry {
	var kept []ir.TraceEntry
	for _, e := range entries {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

func runInfo(r store.Run) RunInfo {
	info := RunInfo{ID: r.ID, Feature: r.Feature, Finished: r.Finished, OK: r.OK, Message: r.Message}
	if len(r.FailedAt) > 0 {
		info.FailedAt = r.FailedAt.String()
	}
	return info
}

func traceStep(e ir.TraceEntry) TraceStep {
	step := TraceStep{
		Path:      e.Path.String(),
		Seq:       e.Seq,
		Statement: e.In,
		Action:    e.Key(),
		Mode:      string(e.Intent.Mode),
		Usage:     e.Intent.Usage,
		Synthetic: e.Synthetic,
		Injected:  e.Injected,
		OK:        e.Result.OK,
		Message:   e.Result.Message,
	}
	if e.Source.Path != "" {
		step.Source = e.Source.String()
	}
	if len(e.Result.Topics) > 0 {
		if b, err := ir.MarshalCanonical(e.Result.Topics); err == nil {
			step.Topics = string(b)
		}
	}
	return step
}

func runStatus(r RunInfo) string {
	switch {
	case !r.Finished:
		return "unfinished"
	case r.OK:
		return "passed"
	default:
		return "failed"
	}
}

func writeTraceText(w io.Writer, result TraceResult, entries []ir.TraceEntry, verbose bool) {
	fmt.Fprintf(w, "Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Feature: %s\n", result.Run.Feature)
	status := runStatus(result.Run)
	if result.Run.FailedAt != "" {
		status += " at " + result.Run.FailedAt
	}
	fmt.Fprintf(w, "Status: %s\n", status)
	if result.Run.Message != "" {
		fmt.Fprintf(w, "Message: %s\n", result.Run.Message)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Steps ===")
	if len(entries) == 0 {
		fmt.Fprintln(w, "  (no steps)")
	}
	for i, e := range entries {
		indent := strings.Repeat("  ", e.Path.Depth())
		fmt.Fprintf(w, "  %s%s", indent, harness.RenderTrace([]ir.TraceEntry{e}))
		if verbose && result.Steps[i].Topics != "" {
			fmt.Fprintf(w, "  %s    topics: %s\n", indent, result.Steps[i].Topics)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Outcomes ===")
	if len(result.Outcomes) == 0 {
		fmt.Fprintln(w, "  (no outcome links)")
	}
	for _, o := range result.Outcomes {
		fmt.Fprintf(w, "  %s %q", o.Kind, o.Outcome)
		if o.Phrase != "" && o.Phrase != o.Outcome {
			fmt.Fprintf(w, " (%s)", o.Phrase)
		}
		if o.Path != "" {
			fmt.Fprintf(w, " at %s", o.Path)
		}
		if o.Background {
			fmt.Fprint(w, " [background]")
		}
		fmt.Fprintln(w)
		if verbose {
			for _, p := range o.Proofs {
				fmt.Fprintf(w, "      proof: %s\n", p)
			}
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Steps:       %d\n", result.Stats.Steps)
	fmt.Fprintf(w, "  Failed:      %d\n", result.Stats.Failed)
	fmt.Fprintf(w, "  Speculative: %d\n", result.Stats.Speculative)
	fmt.Fprintf(w, "  Injected:    %d\n", result.Stats.Injected)
	fmt.Fprintf(w, "  Outcomes:    %d\n", result.Stats.Outcomes)
}
