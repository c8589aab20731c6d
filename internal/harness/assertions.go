package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/stepwise/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the rendered trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []ir.TraceEntry
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, line := range strings.Split(strings.TrimSuffix(RenderTrace(e.Trace), "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// AssertionContext carries data beyond the in-memory trace.
type AssertionContext struct {
	// Stored is the trace read back from the store, in seq order.
	Stored []ir.TraceEntry
}

// matches reports whether entry satisfies the assertion's filters.
func matches(entry ir.TraceEntry, a Assertion) bool {
	if a.Action != "" && entry.Key() != a.Action {
		return false
	}
	if a.Statement != "" && entry.In != a.Statement {
		return false
	}
	if a.Path != "" && entry.Path.String() != a.Path {
		return false
	}
	if a.OK != nil && entry.Result.OK != *a.OK {
		return false
	}
	return true
}

func describe(a Assertion) string {
	var parts []string
	if a.Action != "" {
		parts = append(parts, "action "+a.Action)
	}
	if a.Statement != "" {
		parts = append(parts, fmt.Sprintf("statement %q", a.Statement))
	}
	if a.Path != "" {
		parts = append(parts, "path "+a.Path)
	}
	if a.OK != nil {
		parts = append(parts, fmt.Sprintf("ok=%t", *a.OK))
	}
	return strings.Join(parts, ", ")
}

// assertTraceContains checks that at least one entry matches.
func assertTraceContains(trace []ir.TraceEntry, assertion Assertion) error {
	for _, entry := range trace {
		if matches(entry, assertion) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describe(assertion),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks that exactly Count entries match.
func assertTraceCount(trace []ir.TraceEntry, assertion Assertion) error {
	count := 0
	for _, entry := range trace {
		if matches(entry, assertion) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, describe(assertion)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertTraceOrder checks that actions first appear in the given order.
// Order is execution order (seq), not path order. Actions don't need to be
// consecutive.
func assertTraceOrder(trace []ir.TraceEntry, assertion Assertion) error {
	bySeq := slices.Clone(trace)
	sort.SliceStable(bySeq, func(i, j int) bool { return bySeq[i].Seq < bySeq[j].Seq })

	positions := make(map[string]int)
	for i, entry := range bySeq {
		if _, seen := positions[entry.Key()]; !seen {
			positions[entry.Key()] = i + 1
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTracePaths checks the exact list of paths in path order.
func assertTracePaths(trace []ir.TraceEntry, assertion Assertion) error {
	got := make([]string, len(trace))
	for i, entry := range trace {
		got[i] = entry.Path.String()
	}

	if !slices.Equal(got, assertion.Paths) {
		return &AssertionError{
			Type:     AssertTracePaths,
			Expected: fmt.Sprintf("paths %v", assertion.Paths),
			Actual:   fmt.Sprintf("paths %v", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertPathUnique checks that no path repeats and that the stored trace
// holds the same entries as the in-memory one.
func assertPathUnique(trace, stored []ir.TraceEntry) error {
	seen := make(map[string]bool, len(stored))
	for _, entry := range stored {
		key := entry.Path.String()
		if seen[key] {
			return &AssertionError{
				Type:     AssertPathUnique,
				Expected: "every path recorded once",
				Actual:   fmt.Sprintf("path %s recorded twice", key),
				Trace:    trace,
			}
		}
		seen[key] = true
	}

	if len(stored) != len(trace) {
		return &AssertionError{
			Type:     AssertPathUnique,
			Expected: fmt.Sprintf("%d stored entries", len(trace)),
			Actual:   fmt.Sprintf("%d stored entries", len(stored)),
			Trace:    trace,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTracePaths:
			err = assertTracePaths(result.Trace, assertion)
		case AssertPathUnique:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: path_unique requires the stored trace", i)
			} else {
				err = assertPathUnique(result.Trace, actx.Stored)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
