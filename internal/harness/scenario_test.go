package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenarioYAML = `
name: valid
description: A valid scenario
max_loop_iterations: 10
domains:
  colors: [red, green]
feature: |
  passes
expect: pass
failed_at: "1"
assertions:
  - type: trace_contains
    action: test.passes
    ok: true
  - type: trace_count
    statement: passes
    count: 1
  - type: trace_order
    actions: [test.passes]
  - type: trace_paths
    paths: ["1"]
  - type: path_unique
`

// TestParseScenario_Valid tests decoding of every field.
func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(validScenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "valid", s.Name)
	assert.Equal(t, 10, s.MaxLoopIterations)
	assert.Equal(t, []string{"red", "green"}, s.Domains["colors"])
	assert.Equal(t, "passes\n", s.Feature)
	assert.Equal(t, OutcomePass, s.Expect)
	require.Len(t, s.Assertions, 5)
	require.NotNil(t, s.Assertions[0].OK)
	assert.True(t, *s.Assertions[0].OK)
	assert.Equal(t, 1, s.Assertions[1].Count)
}

// TestParseScenario_Invalid tests rejected scenarios.
func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		contains string
	}{
		{"unknown field", "name: x\ndescription: d\nfeature: passes\nexpect: pass\nflow: []\n", "field flow not found"},
		{"missing name", "description: d\nfeature: passes\nexpect: pass\n", "name is required"},
		{"missing description", "name: x\nfeature: passes\nexpect: pass\n", "description is required"},
		{"missing feature", "name: x\ndescription: d\nexpect: pass\n", "feature is required"},
		{"missing expect", "name: x\ndescription: d\nfeature: passes\n", "expect is required"},
		{"bad expect", "name: x\ndescription: d\nfeature: passes\nexpect: maybe\n", "expect must be pass, fail or error"},
		{"bad failed_at", "name: x\ndescription: d\nfeature: passes\nexpect: fail\nfailed_at: \"1.0\"\n", "failed_at"},
		{"negative loop limit", "name: x\ndescription: d\nfeature: passes\nexpect: pass\nmax_loop_iterations: -1\n", "max_loop_iterations"},
		{"assertion without type", "name: x\ndescription: d\nfeature: passes\nexpect: pass\nassertions:\n  - action: a.b\n", "type is required"},
		{"unknown assertion", "name: x\ndescription: d\nfeature: passes\nexpect: pass\nassertions:\n  - type: final_state\n", "unknown assertion type"},
		{"contains without filter", "name: x\ndescription: d\nfeature: passes\nexpect: pass\nassertions:\n  - type: trace_contains\n", "required for trace_contains"},
		{"count without filter", "name: x\ndescription: d\nfeature: passes\nexpect: pass\nassertions:\n  - type: trace_count\n    count: 1\n", "required for trace_count"},
		{"negative count", "name: x\ndescription: d\nfeature: passes\nexpect: pass\nassertions:\n  - type: trace_count\n    action: a.b\n    count: -1\n", "non-negative"},
		{"order without actions", "name: x\ndescription: d\nfeature: passes\nexpect: pass\nassertions:\n  - type: trace_order\n", "actions list is required"},
		{"paths without list", "name: x\ndescription: d\nfeature: passes\nexpect: pass\nassertions:\n  - type: trace_paths\n", "paths list is required"},
		{"bad assertion path", "name: x\ndescription: d\nfeature: passes\nexpect: pass\nassertions:\n  - type: trace_contains\n    path: a\n", "path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

// TestLoadScenario_FileNotFound tests a missing scenario file.
func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

// TestLoadScenarios tests directory loading order and filtering.
func TestLoadScenarios(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("b.yaml", "name: b\ndescription: d\nfeature: passes\nexpect: pass\n")
	write("a.yml", "name: a\ndescription: d\nfeature: passes\nexpect: pass\n")
	write("notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755))

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "a", scenarios[0].Name)
	assert.Equal(t, "b", scenarios[1].Name)

	write("c.yaml", "name: c\n")
	_, err = LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c.yaml")
}
