package harness

import "github.com/roach88/stepwise/internal/ir"

// Outcome values for Scenario.Expect and Result.Outcome.
const (
	OutcomePass  = "pass"
	OutcomeFail  = "fail"
	OutcomeError = "error"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the feature outcome and every assertion matched.
	Pass bool `json:"pass"`

	RunID string `json:"run_id"`

	// Outcome is pass, fail, or error when the run returned an error.
	Outcome  string     `json:"outcome"`
	FailedAt ir.SeqPath `json:"failed_at,omitempty"`
	Message  string     `json:"message,omitempty"`

	// Trace holds the recorded entries in sequence path order.
	Trace []ir.TraceEntry `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []ir.TraceEntry{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
