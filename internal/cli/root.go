package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/activities"
	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/logic"
	"github.com/roach88/stepwise/internal/stepper"
	"github.com/roach88/stepwise/internal/variables"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Steppers builds the registered steppers. Defaults to DefaultSteppers;
	// tests add fixture steppers here.
	Steppers func() []stepper.Stepper

	// RunIDs overrides the run ID generator (for testing).
	// If nil, the engine uses UUIDv7 run IDs.
	RunIDs engine.RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// DefaultSteppers returns the built-in steppers.
func DefaultSteppers() []stepper.Stepper {
	return []stepper.Stepper{
		variables.New(),
		logic.New(),
		activities.New(),
	}
}

// NewRootCommand creates the root command for the stepwise CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stepwise",
		Short: "stepwise - behaviour feature runner",
		Long:  "Runs plain-language feature files against registered step definitions and records a path-addressed trace.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewStepsCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) steppers() []stepper.Stepper {
	if o.Steppers != nil {
		return o.Steppers()
	}
	return DefaultSteppers()
}
