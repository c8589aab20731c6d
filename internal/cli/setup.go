package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/stepwise/internal/config"
	"github.com/roach88/stepwise/internal/engine"
	"github.com/roach88/stepwise/internal/stepper"
)

// DefaultConfigFile is read from the working directory when --config is not set.
const DefaultConfigFile = "stepwise.cue"

// loadConfig reads path, or DefaultConfigFile when it exists, or defaults.
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return config.Load(DefaultConfigFile)
	} else if !errors.Is(err, os.ErrNotExist) {
		return config.Config{}, err
	}
	return config.Default(), nil
}

// setupLogging installs a text handler on w. --verbose wins over the
// configured level.
func setupLogging(w io.Writer, verbose bool, level slog.Level) {
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// newEngine builds an engine from configuration and global options.
func newEngine(opts *RootOptions, cfg config.Config, sink stepper.EventSink) (*engine.Engine, error) {
	engineOpts := []engine.Option{
		engine.WithOptions(cfg.Options()),
		engine.WithDomains(cfg.DomainList()...),
	}
	if sink != nil {
		engineOpts = append(engineOpts, engine.WithSink(sink))
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	return engine.New(opts.steppers(), engineOpts...)
}
