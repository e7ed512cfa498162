package harness

import (
	"fmt"

	"github.com/keyplan/keyplan/internal/derive"
)

// PlanOutcome is the result of one (type, capability) derivation.
type PlanOutcome struct {
	Type       string `json:"type"`
	Capability string `json:"capability"`

	// Rendered is the deterministic text form of the derived plan.
	// Empty when the derivation aborted.
	Rendered string `json:"rendered,omitempty"`

	Aborted bool `json:"aborted,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// ScenarioName echoes the scenario this result belongs to.
	ScenarioName string `json:"scenario_name"`

	// Pass indicates overall scenario success: every expect step matched
	// and every expected diagnostic was reported.
	Pass bool `json:"pass"`

	// Outcomes holds one entry per derivation attempt, in registration
	// order, encode before decode.
	Outcomes []PlanOutcome `json:"outcomes"`

	// Diagnostics holds everything the run reported, in report order.
	Diagnostics []derive.Diagnostic `json:"diagnostics,omitempty"`

	// Errors contains expectation failure messages. Empty if Pass.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result for the named scenario.
func NewResult(name string) *Result {
	return &Result{ScenarioName: name, Pass: true}
}

// AddError records an expectation failure and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Outcome returns the derivation outcome for a (type, capability) pair.
func (r *Result) Outcome(typeName, capability string) (PlanOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Type == typeName && o.Capability == capability {
			return o, true
		}
	}
	return PlanOutcome{}, false
}
