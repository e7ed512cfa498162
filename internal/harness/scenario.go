package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario. Scenarios compile a set of
// type definitions, derive every declared capability, and assert on the
// resulting plans and diagnostics.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden snapshots are stored
	// under this name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Definitions holds inline CUE type definitions. Exactly one of
	// Definitions and Files must be set.
	Definitions string `yaml:"definitions,omitempty"`

	// Files lists paths to CUE definition files, relative to the scenario
	// file location. The files are compiled as one unit.
	Files []string `yaml:"files,omitempty"`

	// Expect lists the expected outcome per (type, capability) pair.
	Expect []ExpectStep `yaml:"expect"`

	// Diagnostics lists diagnostics the run must report. Subset match:
	// diagnostics not listed here are allowed and still snapshotted.
	Diagnostics []DiagnosticExpect `yaml:"diagnostics,omitempty"`
}

// ExpectStep is the expected outcome of one derivation.
type ExpectStep struct {
	// Type names the declared type.
	Type string `yaml:"type"`

	// Capability is "encode" or "decode".
	Capability string `yaml:"capability"`

	// Outcome is "derived" or "aborted".
	Outcome string `yaml:"outcome"`

	// PlanContains lists substrings the rendered plan must contain.
	// Only meaningful for a "derived" outcome.
	PlanContains []string `yaml:"plan_contains,omitempty"`
}

// DiagnosticExpect matches one reported diagnostic. Empty fields match
// anything.
type DiagnosticExpect struct {
	Code     string `yaml:"code"`
	Severity string `yaml:"severity,omitempty"`
	Type     string `yaml:"type,omitempty"`
	Subject  string `yaml:"subject,omitempty"`
}

// Outcome constants for ExpectStep.
const (
	OutcomeDerived = "derived"
	OutcomeAborted = "aborted"
)

// LoadScenario reads and parses a scenario YAML file. Returns an error if
// the file doesn't exist, is malformed, contains unknown fields (typos),
// or is missing required fields. File paths inside the scenario are
// resolved relative to the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, f := range scenario.Files {
		if !filepath.IsAbs(f) {
			scenario.Files[i] = filepath.Join(base, f)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Definitions == "" && len(s.Files) == 0 {
		return fmt.Errorf("definitions or files is required")
	}
	if s.Definitions != "" && len(s.Files) > 0 {
		return fmt.Errorf("definitions and files are mutually exclusive")
	}

	if len(s.Expect) == 0 {
		return fmt.Errorf("expect list is required and must be non-empty")
	}

	for i, e := range s.Expect {
		if e.Type == "" {
			return fmt.Errorf("expect[%d]: type is required", i)
		}
		if e.Capability != "encode" && e.Capability != "decode" {
			return fmt.Errorf("expect[%d]: capability must be \"encode\" or \"decode\"", i)
		}
		if e.Outcome != OutcomeDerived && e.Outcome != OutcomeAborted {
			return fmt.Errorf("expect[%d]: outcome must be %q or %q", i, OutcomeDerived, OutcomeAborted)
		}
		if e.Outcome == OutcomeAborted && len(e.PlanContains) > 0 {
			return fmt.Errorf("expect[%d]: plan_contains is meaningless for an aborted derivation", i)
		}
	}

	for i, d := range s.Diagnostics {
		if d.Code == "" {
			return fmt.Errorf("diagnostics[%d]: code is required", i)
		}
		if d.Severity != "" && d.Severity != "error" && d.Severity != "warning" {
			return fmt.Errorf("diagnostics[%d]: severity must be \"error\" or \"warning\"", i)
		}
	}

	for _, f := range s.Files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			return fmt.Errorf("definition file not found: %s", f)
		}
	}

	return nil
}
