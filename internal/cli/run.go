package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/config"
	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/feature"
	"github.com/roach88/stepwise/internal/harness"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/stepper"
	"github.com/roach88/stepwise/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config            string
	Database          string
	Backgrounds       []string
	MaxLoopIterations int
}

// FeatureReport is the outcome of one feature in run output.
type FeatureReport struct {
	RunID    string `json:"run_id"`
	Feature  string `json:"feature"`
	OK       bool   `json:"ok"`
	FailedAt string `json:"failed_at,omitempty"`
	Message  string `json:"message,omitempty"`
	Steps    int    `json:"steps"`
}

// RunSummary is the JSON payload of the run command.
type RunSummary struct {
	Features []FeatureReport `json:"features"`
	Passed   int             `json:"passed"`
	Failed   int             `json:"failed"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <feature>...",
		Short: "Run feature files",
		Long: `Run one or more feature files in order.

Backgrounds from the config file and --background are loaded once before
the first feature; their activities stay defined for every feature. When
a trace database is configured (--db or "trace" in stepwise.cue) every
executed step is recorded under the feature's run ID.

Example:
  stepwise run login.feature checkout.feature
  stepwise run --background common.background --db ./trace.db login.feature`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeatures(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE config (default ./"+DefaultConfigFile+" if present)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database")
	cmd.Flags().StringArrayVar(&opts.Backgrounds, "background", nil, "background file (repeatable)")
	cmd.Flags().IntVar(&opts.MaxLoopIterations, "max-loop-iterations", 0, "override the loop iteration limit")

	return cmd
}

func runFeatures(cmd *cobra.Command, opts *RunOptions, paths []string) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		_ = out.Error(CodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.MaxLoopIterations > 0 {
		cfg.MaxLoopIterations = opts.MaxLoopIterations
	}
	if opts.Database != "" {
		cfg.Trace = opts.Database
	}
	setupLogging(cmd.ErrOrStderr(), opts.Verbose, cfg.LogLevel)

	features := make([]*feature.Feature, 0, len(paths))
	for _, p := range paths {
		f, err := feature.ParseFile(p)
		if err != nil {
			_ = out.Error(CodeParse, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to parse feature", err)
		}
		features = append(features, f)
	}

	var st *store.Store
	if cfg.Trace != "" {
		slog.Debug("opening trace database", "path", cfg.Trace)
		st, err = store.Open(cfg.Trace)
		if err != nil {
			_ = out.Error(CodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
	}

	e, err := buildEngine(opts, cfg, st, out.GetErrWriter())
	if err != nil {
		_ = out.Error(CodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to build engine", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := e.StartExecution(ctx); err != nil {
		return WrapExitError(ExitFailure, "start execution", err)
	}

	summary := RunSummary{Features: make([]FeatureReport, 0, len(features))}
	for _, f := range features {
		if ctx.Err() != nil {
			slog.Info("run interrupted", "remaining", len(features)-len(summary.Features))
			break
		}
		report, err := runOne(ctx, e, st, f)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		summary.Features = append(summary.Features, report)
		if report.OK {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if err := e.EndExecution(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("end execution", "error", err)
	}

	var failure string
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		failure = "interrupted"
	case summary.Failed > 0:
		failure = fmt.Sprintf("%d of %d features failed", summary.Failed, len(summary.Features))
	}

	switch {
	case !out.JSON():
		writeRunText(out.Writer, summary)
	case failure != "":
		if err := out.Failure(CodeFailed, failure, summary); err != nil {
			return err
		}
	default:
		if err := out.Success(summary); err != nil {
			return err
		}
	}

	if failure != "" {
		return NewExitError(ExitFailure, failure)
	}
	return nil
}

func buildEngine(opts *RunOptions, cfg config.Config, st *store.Store, progress io.Writer) (*engine.Engine, error) {
	var sinks stepper.MultiSink
	if st != nil {
		sinks = append(sinks, store.NewSink(st))
	}
	if opts.Verbose {
		sinks = append(sinks, progressSink{w: progress})
	}
	var sink stepper.EventSink
	if len(sinks) > 0 {
		sink = sinks
	}
	e, err := newEngine(opts.RootOptions, cfg, sink)
	if err != nil {
		return nil, err
	}

	bgPaths := append(append([]string{}, cfg.Backgrounds...), opts.Backgrounds...)
	for _, p := range bgPaths {
		bg, err := feature.ParseBackground(p)
		if err != nil {
			return nil, err
		}
		if err := e.AddBackground(bg); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return e, nil
}

// progressSink prints each finished step, indented by depth.
type progressSink struct {
	stepper.NopSink
	w io.Writer
}

func (p progressSink) StepEnded(_ context.Context, ev stepper.StepEvent) {
	indent := strings.Repeat("  ", ev.Path.Depth())
	fmt.Fprintf(p.w, "%s%s", indent, harness.RenderTrace([]ir.TraceEntry{ev.Entry()}))
}

// runOne executes a feature and stores its verdict. Only store failures
// are returned; feature errors land in the report.
func runOne(ctx context.Context, e *engine.Engine, st *store.Store, f *feature.Feature) (FeatureReport, error) {
	w := e.NewWorld(f.Path)
	res, runErr := e.RunFeature(ctx, w, f)

	report := FeatureReport{
		RunID:   res.RunID,
		Feature: f.Path,
		OK:      res.OK && runErr == nil,
		Message: res.Message,
		Steps:   len(res.Trace),
	}
	if len(res.FailedAt) > 0 {
		report.FailedAt = res.FailedAt.String()
	}
	if runErr != nil {
		report.Message = runErr.Error()
	}

	if st != nil {
		err := st.FinishRun(context.WithoutCancel(ctx), store.Run{
			ID:       res.RunID,
			Feature:  f.Path,
			OK:       report.OK,
			FailedAt: res.FailedAt,
			Message:  report.Message,
		})
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func writeRunText(w io.Writer, summary RunSummary) {
	for _, r := range summary.Features {
		if r.OK {
			fmt.Fprintf(w, "✓ %s (%d steps)\n", r.Feature, r.Steps)
			continue
		}
		if r.FailedAt != "" {
			fmt.Fprintf(w, "✗ %s: failed at %s: %s\n", r.Feature, r.FailedAt, r.Message)
		} else {
			fmt.Fprintf(w, "✗ %s: %s\n", r.Feature, r.Message)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed\n", summary.Passed, summary.Failed)
}
