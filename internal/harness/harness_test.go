package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRun_Scenarios tests every scenario under testdata/scenarios.
func TestRun_Scenarios(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors:\n%s\ntrace:\n%s",
				strings.Join(result.Errors, "\n"), RenderTrace(result.Trace))
		})
	}
}

// TestRun_MinimalScenario tests a single passing statement.
func TestRun_MinimalScenario(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Feature:     "passes\n",
		Expect:      OutcomePass,
	})
	require.NoError(t, err)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "test-run-default", result.RunID)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "test.passes", result.Trace[0].Key())
}

// TestRun_FixedRunID tests that the scenario run ID is used.
func TestRun_FixedRunID(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "run_id",
		Description: "Fixed run id",
		RunID:       "run-fixed",
		Feature:     "passes\n",
		Expect:      OutcomePass,
	})
	require.NoError(t, err)
	assert.Equal(t, "run-fixed", result.RunID)
}

// TestRun_OutcomeMismatch tests that unexpected outcomes are reported.
func TestRun_OutcomeMismatch(t *testing.T) {
	tests := []struct {
		name     string
		scenario Scenario
		contains string
	}{
		{
			name:     "expected pass",
			scenario: Scenario{Feature: "fails\n", Expect: OutcomePass},
			contains: "expected pass, got fail: fixture failed",
		},
		{
			name:     "wrong failed_at",
			scenario: Scenario{Feature: "passes\nfails\n", Expect: OutcomeFail, FailedAt: "1"},
			contains: `expected failure at 1, got "2"`,
		},
		{
			name:     "wrong message",
			scenario: Scenario{Feature: "fails\n", Expect: OutcomeFail, Message: "other"},
			contains: `expected message containing "other"`,
		},
		{
			name:     "expected fail",
			scenario: Scenario{Feature: "throws\n", Expect: OutcomeFail},
			contains: "expected fail, got error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.scenario.Name = "mismatch"
			tt.scenario.Description = tt.name
			result, err := Run(&tt.scenario)
			require.NoError(t, err)
			assert.False(t, result.Pass)
			require.NotEmpty(t, result.Errors)
			assert.Contains(t, result.Errors[0], tt.contains)
		})
	}
}

// TestRun_AssertionFailure tests that failed assertions fail the result.
func TestRun_AssertionFailure(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "assertion_failure",
		Description: "Count mismatch",
		Feature:     "passes\npasses\n",
		Expect:      OutcomePass,
		Assertions:  []Assertion{{Type: AssertTraceCount, Action: "test.passes", Count: 3}},
	})
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "3 occurrences of action test.passes")
	assert.Contains(t, result.Errors[0], "2 occurrences")
}

// TestRun_Errors tests scenario setup failures.
func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		scenario Scenario
	}{
		{"bad feature", Scenario{Feature: "    orphan proof\n", Expect: OutcomePass}},
		{"background with statements", Scenario{Feature: "passes\n", Expect: OutcomePass, Backgrounds: []string{"passes\n"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.scenario.Name = "errors"
			_, err := Run(&tt.scenario)
			assert.Error(t, err)
		})
	}
}

// TestRunAll tests running a list of scenarios.
func TestRunAll(t *testing.T) {
	ok := &Scenario{Name: "ok", Description: "ok", Feature: "passes\n", Expect: OutcomePass}
	broken := &Scenario{Name: "broken", Description: "broken", Feature: "    orphan\n", Expect: OutcomePass}

	results, err := RunAll([]*Scenario{ok, broken})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	require.Len(t, results, 2)
	assert.True(t, results[0].Pass)
	assert.False(t, results[1].Pass)
	assert.Equal(t, OutcomeError, results[1].Outcome)
}
