package harness

import (
	"fmt"
	"os"
	"strings"

	"github.com/keyplan/keyplan/internal/derive"
	"github.com/keyplan/keyplan/internal/plan"
	"github.com/keyplan/keyplan/internal/schema"
	"github.com/keyplan/keyplan/internal/typedef"
)

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile the scenario's type definitions into a fresh registry
//  2. Derive every declared capability of every type, encode before decode
//  3. Evaluate the expect steps against the outcomes
//  4. Evaluate the diagnostic expectations against the reported diagnostics
//
// A compile failure or an unexpected derivation error is returned as an
// error; expectation mismatches are recorded on the result instead.
func Run(scenario *Scenario) (*Result, error) {
	src, err := definitionSource(scenario)
	if err != nil {
		return nil, err
	}

	reg, err := typedef.CompileSource(src)
	if err != nil {
		return nil, fmt.Errorf("failed to compile definitions: %w", err)
	}

	rep := &derive.List{}
	d := derive.New(reg, rep)

	result := NewResult(scenario.Name)
	for _, t := range reg.Types() {
		for _, c := range []schema.Capability{schema.CapabilityEncode, schema.CapabilityDecode} {
			if !t.Derives.Has(c) {
				continue
			}
			body, err := d.Derive(t.ID, c)
			if err != nil {
				if !derive.IsAborted(err) {
					return nil, fmt.Errorf("derivation failed: %w", err)
				}
				result.Outcomes = append(result.Outcomes, PlanOutcome{
					Type:       t.Name,
					Capability: c.String(),
					Aborted:    true,
				})
				continue
			}
			result.Outcomes = append(result.Outcomes, PlanOutcome{
				Type:       t.Name,
				Capability: c.String(),
				Rendered:   plan.Render(body),
			})
		}
	}
	result.Diagnostics = rep.Diags

	evaluateExpectations(scenario, result)
	return result, nil
}

// definitionSource assembles the CUE source unit for a scenario.
func definitionSource(s *Scenario) (string, error) {
	if s.Definitions != "" {
		return s.Definitions, nil
	}
	var sb strings.Builder
	for _, f := range s.Files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", fmt.Errorf("failed to read definition file: %w", err)
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// evaluateExpectations checks the scenario's expect steps and diagnostic
// expectations against the result, recording every mismatch.
func evaluateExpectations(s *Scenario, r *Result) {
	for _, e := range s.Expect {
		o, ok := r.Outcome(e.Type, e.Capability)
		if !ok {
			r.AddError("expect %s %s: no derivation was attempted", e.Capability, e.Type)
			continue
		}

		switch {
		case e.Outcome == OutcomeAborted && !o.Aborted:
			r.AddError("expect %s %s: expected abort, plan was derived", e.Capability, e.Type)
		case e.Outcome == OutcomeDerived && o.Aborted:
			r.AddError("expect %s %s: derivation aborted", e.Capability, e.Type)
		}

		for _, want := range e.PlanContains {
			if !strings.Contains(o.Rendered, want) {
				r.AddError("expect %s %s: rendered plan does not contain %q", e.Capability, e.Type, want)
			}
		}
	}

	for _, de := range s.Diagnostics {
		if !diagnosticReported(r.Diagnostics, de) {
			r.AddError("expected diagnostic %s was not reported", de.Code)
		}
	}
}

// diagnosticReported reports whether any reported diagnostic matches the
// expectation. Empty expectation fields match anything.
func diagnosticReported(diags []derive.Diagnostic, e DiagnosticExpect) bool {
	for _, d := range diags {
		if string(d.Code) != e.Code {
			continue
		}
		if e.Severity != "" && d.Severity.String() != e.Severity {
			continue
		}
		if e.Type != "" && d.TypeName != e.Type {
			continue
		}
		if e.Subject != "" && d.Subject != e.Subject {
			continue
		}
		return true
	}
	return false
}
