// Package harness provides conformance testing for plan derivation.
//
// The harness compiles CUE type definitions, derives encode/decode plans
// for every declared type, and validates the outcomes as executable
// contract tests with golden snapshot comparison.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	definitions: |
//	  types: Person: {
//	      kind: "record"
//	      members: name: {type: "string"}
//	  }
//	expect:
//	  - type: Person
//	    capability: encode
//	    outcome: derived
//	    plan_contains:
//	      - "container.encode(name, key: .name)"
//	  - type: Person
//	    capability: decode
//	    outcome: derived
//	diagnostics:
//	  - code: EXTRANEOUS_KEY
//	    type: Person
//	    subject: address
//
// Definitions can alternatively reference files relative to the scenario:
//
//	files:
//	  - defs/person.cue
//
// # Expectations
//
// Each expect step names one (type, capability) pair and its outcome,
// "derived" or "aborted". plan_contains is a substring check on the
// rendered plan. The diagnostics list is a subset match: every listed
// diagnostic must have been reported, extra diagnostics are allowed (they
// still appear in the golden snapshot).
//
// # Golden Snapshots
//
// Rendered plans are deterministic for a given set of definitions, so
// snapshots are stable across runs. RunWithGolden compares the full
// snapshot (all outcomes plus all diagnostics, without source positions)
// against testdata/golden/{name}.golden.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/person.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
