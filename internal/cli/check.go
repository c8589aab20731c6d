package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/feature"
	"github.com/roach88/stepwise/internal/ir"
	"github.com/roach88/stepwise/internal/resolver"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Config string
}

// Unresolved is one statement the check command could not resolve.
type Unresolved struct {
	Source      string   `json:"source"`
	Statement   string   `json:"statement"`
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// CheckSummary is the JSON payload of the check command.
type CheckSummary struct {
	Features   int          `json:"features"`
	Statements int          `json:"statements"`
	Unresolved []Unresolved `json:"unresolved"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <feature>...",
		Short: "Resolve feature statements without running them",
		Long: `Parse feature files and resolve every top-level statement against the
registered steps. Nothing is executed. Unresolved statements are listed
with close matches.

Example:
  stepwise check login.feature
  stepwise check --format json features/*.feature`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkFeatures(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE config (default ./"+DefaultConfigFile+" if present)")

	return cmd
}

func checkFeatures(cmd *cobra.Command, opts *CheckOptions, paths []string) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		_ = out.Error(CodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	setupLogging(cmd.ErrOrStderr(), opts.Verbose, cfg.LogLevel)

	e, err := newEngine(opts.RootOptions, cfg, nil)
	if err != nil {
		_ = out.Error(CodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to build engine", err)
	}

	summary := CheckSummary{Unresolved: []Unresolved{}}
	for _, p := range paths {
		f, err := feature.ParseFile(p)
		if err != nil {
			_ = out.Error(CodeParse, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to parse feature", err)
		}
		summary.Features++
		out.VerboseLog("checking %s (%d statements)", f.Path, len(f.Statements))

		for _, st := range f.Statements {
			summary.Statements++
			src := ir.Source{Path: f.Path, Line: st.Line}
			if _, err := e.Resolve(st.Text, src); err != nil {
				u := Unresolved{Source: src.String(), Statement: st.Text, Error: err.Error()}
				var re *resolver.ResolveError
				if errors.As(err, &re) {
					u.Suggestions = re.Suggestions
				}
				summary.Unresolved = append(summary.Unresolved, u)
			}
		}
	}

	var failure string
	if len(summary.Unresolved) > 0 {
		failure = fmt.Sprintf("%d unresolved statements", len(summary.Unresolved))
	}

	switch {
	case !out.JSON():
		writeCheckText(out.Writer, summary)
	case failure != "":
		if err := out.Failure(CodeResolve, failure, summary); err != nil {
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

func writeCheckText(w io.Writer, summary CheckSummary) {
	for _, u := range summary.Unresolved {
		fmt.Fprintf(w, "%s: %s\n", u.Source, u.Error)
		for _, s := range u.Suggestions {
			fmt.Fprintf(w, "    did you mean: %s\n", s)
		}
	}
	if len(summary.Unresolved) == 0 {
		fmt.Fprintf(w, "✓ %d statements in %d features resolved\n", summary.Statements, summary.Features)
		return
	}
	fmt.Fprintf(w, "✗ %d of %d statements unresolved\n", len(summary.Unresolved), summary.Statements)
}
