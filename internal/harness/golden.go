package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/keyplan/keyplan/internal/derive"
)

// Snapshot renders a result in its deterministic text form for golden
// comparison: every derivation outcome in order, then every diagnostic.
// Source positions are omitted because they depend on how the definitions
// were loaded, not on what was derived.
func Snapshot(r *Result) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scenario: %s\n", r.ScenarioName)

	for _, o := range r.Outcomes {
		fmt.Fprintf(&sb, "\n== %s %s ==\n", o.Type, o.Capability)
		if o.Aborted {
			sb.WriteString("aborted\n")
			continue
		}
		sb.WriteString(o.Rendered)
	}

	sb.WriteString("\n== diagnostics ==\n")
	if len(r.Diagnostics) == 0 {
		sb.WriteString("(none)\n")
	} else {
		for _, d := range r.Diagnostics {
			sb.WriteString(snapshotDiagnostic(d) + "\n")
		}
	}

	return []byte(sb.String())
}

func snapshotDiagnostic(d derive.Diagnostic) string {
	if d.Subject != "" {
		return fmt.Sprintf("%s: [%s] %s %s: %q: %s", d.Severity, d.Code, d.Capability, d.TypeName, d.Subject, d.Message)
	}
	return fmt.Sprintf("%s: [%s] %s %s: %s", d.Severity, d.Code, d.Capability, d.TypeName, d.Message)
}

// RunWithGolden executes a scenario and compares its snapshot against the
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can additionally assert on Pass; the golden
// mismatch itself fails the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(result))

	return result, nil
}
