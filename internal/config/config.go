// Package config loads run configuration from CUE files.
//
// A configuration file is unified with the closed #Config definition
// embedded in this package, so misspelled or unknown fields are rejected:
//
//	maxLoopIterations: 500
//	retryInterval:     "50ms"
//	domains: colour: ["red", "green"]
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/stepwise/internal/stepper"
)

//go:embed schema.cue
var schemaSource string

// Error codes for ConfigError.
const (
	ErrCodeRead    = "CONFIG_READ"
	ErrCodeSyntax  = "CONFIG_SYNTAX"
	ErrCodeInvalid = "CONFIG_INVALID"
)

// ConfigError reports a configuration problem, with a CUE position when known.
type ConfigError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Config is the decoded run configuration.
type Config struct {
	MaxLoopIterations int
	MaxRetries        int
	RetryInterval     time.Duration
	Trace             string
	LogLevel          slog.Level
	Backgrounds       []string
	Domains           map[string][]string
}

// Default returns the configuration used when no file is given.
func Default() Config {
	opts := stepper.DefaultOptions()
	return Config{
		MaxLoopIterations: opts.MaxLoopIterations,
		MaxRetries:        opts.MaxRetries,
		RetryInterval:     opts.RetryInterval,
		LogLevel:          slog.LevelWarn,
		Domains:           map[string][]string{},
	}
}

// Load reads and validates the CUE file at path.
func Load(path string) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ConfigError{Code: ErrCodeRead, Message: err.Error()}
	}
	return Parse(src, path)
}

// Parse validates src against #Config and decodes it over the defaults.
// name is used in error positions.
func Parse(src []byte, name string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return Config{}, formatCUEError(ErrCodeSyntax, err)
	}

	v = schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(ErrCodeInvalid, err)
	}

	return decode(v)
}

func decode(v cue.Value) (Config, error) {
	cfg := Default()

	if n, ok, err := lookupInt(v, "maxLoopIterations"); err != nil {
		return Config{}, err
	} else if ok {
		cfg.MaxLoopIterations = n
	}
	if n, ok, err := lookupInt(v, "maxRetries"); err != nil {
		return Config{}, err
	} else if ok {
		cfg.MaxRetries = n
	}

	if s, ok, err := lookupString(v, "retryInterval"); err != nil {
		return Config{}, err
	} else if ok {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			return Config{}, &ConfigError{
				Code:    ErrCodeInvalid,
				Message: fmt.Sprintf("retryInterval: invalid duration %q", s),
				Pos:     v.LookupPath(cue.ParsePath("retryInterval")).Pos(),
			}
		}
		cfg.RetryInterval = d
	}

	if s, ok, err := lookupString(v, "trace"); err != nil {
		return Config{}, err
	} else if ok {
		cfg.Trace = s
	}

	if s, ok, err := lookupString(v, "logLevel"); err != nil {
		return Config{}, err
	} else if ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(s)); err != nil {
			return Config{}, &ConfigError{Code: ErrCodeInvalid, Message: err.Error()}
		}
	}

	bg := v.LookupPath(cue.ParsePath("backgrounds"))
	if bg.Exists() {
		list, err := stringList(bg)
		if err != nil {
			return Config{}, err
		}
		cfg.Backgrounds = list
	}

	domains := v.LookupPath(cue.ParsePath("domains"))
	if domains.Exists() {
		iter, err := domains.Fields()
		if err != nil {
			return Config{}, formatCUEError(ErrCodeInvalid, err)
		}
		for iter.Next() {
			members, err := stringList(iter.Value())
			if err != nil {
				return Config{}, err
			}
			cfg.Domains[iter.Selector().Unquoted()] = members
		}
	}

	return cfg, nil
}

func lookupInt(v cue.Value, field string) (int, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, false, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, false, formatCUEError(ErrCodeInvalid, err)
	}
	return int(n), true, nil
}

func lookupString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(ErrCodeInvalid, err)
	}
	return s, true, nil
}

// stringList never returns nil, so an empty CUE list stays an empty domain.
func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(ErrCodeInvalid, err)
	}
	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(ErrCodeInvalid, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Options converts the limits into executor options.
func (c Config) Options() stepper.Options {
	return stepper.Options{
		MaxLoopIterations: c.MaxLoopIterations,
		MaxRetries:        c.MaxRetries,
		RetryInterval:     c.RetryInterval,
	}
}

// DomainList returns the configured enumerated domains sorted by name.
func (c Config) DomainList() []stepper.Domain {
	names := make([]string, 0, len(c.Domains))
	for name := range c.Domains {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]stepper.Domain, 0, len(names))
	for _, name := range names {
		out = append(out, stepper.Domain{Name: name, Values: c.Domains[name]})
	}
	return out
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(code string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ConfigError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	cerr := &ConfigError{Code: code, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		cerr.Pos = positions[0]
	}
	return cerr
}
