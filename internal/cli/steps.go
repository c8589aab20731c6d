package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/resolver"
)

// StepsOptions holds flags for the steps command.
type StepsOptions struct {
	*RootOptions
	Config string
	Kind   string
}

// NewStepsCommand creates the steps command.
func NewStepsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StepsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "steps",
		Short: "List registered step definitions",
		Long: `List every registered step definition in registration order, with
its key, kind and pattern.

Example:
  stepwise steps
  stepwise steps --kind exact`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSteps(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE config (default ./"+DefaultConfigFile+" if present)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only list definitions of this kind (exact|template|regex)")

	return cmd
}

func listSteps(cmd *cobra.Command, opts *StepsOptions) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		_ = out.Error(CodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	e, err := newEngine(opts.RootOptions, cfg, nil)
	if err != nil {
		_ = out.Error(CodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to build engine", err)
	}

	descs := []resolver.Description{}
	for _, d := range e.Registry().Describe() {
		if opts.Kind == "" || d.Kind == opts.Kind {
			descs = append(descs, d)
		}
	}

	if out.JSON() {
		return out.Success(descs)
	}

	tw := tabwriter.NewWriter(out.Writer, 0, 4, 2, ' ', 0)
	for _, d := range descs {
		unique := ""
		if d.Unique {
			unique = " (unique)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s%s\n", d.Key, d.Kind, d.Pattern, unique)
	}
	return tw.Flush()
}
