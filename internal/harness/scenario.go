package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stepwise/internal/ir"
)

// Scenario defines a conformance test scenario: a feature to run, the
// expected outcome, and assertions over the resulting trace.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID fixes the run ID. Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// MaxLoopIterations overrides the loop ceiling when positive.
	MaxLoopIterations int `yaml:"max_loop_iterations,omitempty"`

	// Domains adds enumerated domains by name.
	Domains map[string][]string `yaml:"domains,omitempty"`

	// Backgrounds holds background feature texts containing only activities.
	Backgrounds []string `yaml:"backgrounds,omitempty"`

	// Feature is the feature file text to run.
	Feature string `yaml:"feature"`

	// Expect is the feature outcome: pass, fail or error.
	Expect string `yaml:"expect"`

	// FailedAt is the expected failing top-level path, e.g. "3".
	FailedAt string `yaml:"failed_at,omitempty"`

	// Message must be contained in the failure message when set.
	Message string `yaml:"message,omitempty"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is a "stepper.action" key (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Statement is the exact executed text (trace_contains, trace_count).
	Statement string `yaml:"statement,omitempty"`

	// Path restricts trace_contains to one sequence path.
	Path string `yaml:"path,omitempty"`

	// OK restricts trace_contains to passing or failing entries.
	OK *bool `yaml:"ok,omitempty"`

	// Count is the expected number of matches (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected first-occurrence order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Paths is the expected path list (trace_paths).
	Paths []string `yaml:"paths,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
	AssertTracePaths    = "trace_paths"
	AssertPathUnique    = "path_unique"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if strings.TrimSpace(s.Feature) == "" {
		return fmt.Errorf("feature is required")
	}

	switch s.Expect {
	case OutcomePass, OutcomeFail, OutcomeError:
	case "":
		return fmt.Errorf("expect is required")
	default:
		return fmt.Errorf("expect must be pass, fail or error, got %q", s.Expect)
	}

	if s.MaxLoopIterations < 0 {
		return fmt.Errorf("max_loop_iterations must be non-negative")
	}

	if s.FailedAt != "" {
		if _, err := ir.ParseSeqPath(s.FailedAt); err != nil {
			return fmt.Errorf("failed_at: %w", err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" && a.Statement == "" && a.Path == "" {
			return fmt.Errorf("assertions[%d]: action, statement or path is required for trace_contains", index)
		}
	case AssertTraceCount:
		if a.Action == "" && a.Statement == "" {
			return fmt.Errorf("assertions[%d]: action or statement is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTracePaths:
		if len(a.Paths) == 0 {
			return fmt.Errorf("assertions[%d]: paths list is required for trace_paths", index)
		}
	case AssertPathUnique:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Path != "" {
		if _, err := ir.ParseSeqPath(a.Path); err != nil {
			return fmt.Errorf("assertions[%d]: path: %w", index, err)
		}
	}

	return nil
}
