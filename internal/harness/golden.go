package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/stepwise/internal/ir"
)

// RenderTrace renders entries one per line as
//
//	<path> <ok|fail> <stepper.action> <statement>
//
// with " => <message>" appended to failed entries.
func RenderTrace(trace []ir.TraceEntry) string {
	var buf strings.Builder
	for _, e := range trace {
		status := "ok"
		if !e.Result.OK {
			status = "fail"
		}
		fmt.Fprintf(&buf, "%s %s %s %s", e.Path, status, e.Key(), e.In)
		if !e.Result.OK && e.Result.Message != "" {
			fmt.Fprintf(&buf, " => %s", e.Result.Message)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

// RenderResult renders a scenario result for golden comparison: the
// scenario name, the outcome, then the trace.
func RenderResult(name string, result *Result) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	fmt.Fprintf(&buf, "outcome: %s\n", result.Outcome)
	if len(result.FailedAt) > 0 {
		fmt.Fprintf(&buf, "failed_at: %s\n", result.FailedAt)
	}
	buf.WriteString(RenderTrace(result.Trace))
	return buf.String()
}

// RunWithGolden executes a scenario and compares the rendered result against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, []byte(RenderResult(scenarioName, result)))
}
