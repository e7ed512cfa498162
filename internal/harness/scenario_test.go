package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `
name: basic
description: "a basic scenario"
definitions: |
  types: T: {
      kind: "record"
      members: x: {type: "int"}
  }
expect:
  - type: T
    capability: encode
    outcome: derived
    plan_contains:
      - "container.encode(x, key: .x)"
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "basic", s.Name)
	require.Len(t, s.Expect, 1)
	assert.Equal(t, "encode", s.Expect[0].Capability)
	assert.Equal(t, OutcomeDerived, s.Expect[0].Outcome)
}

func TestLoadScenarioResolvesFilePaths(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "types.cue")
	require.NoError(t, os.WriteFile(def, []byte(`types: T: {
	kind: "record"
	members: x: {type: "int"}
}
`), 0o644))

	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: from_file
description: "definitions loaded from a file"
files:
  - types.cue
expect:
  - type: T
    capability: encode
    outcome: derived
`), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	require.Len(t, s.Files, 1)
	assert.Equal(t, def, s.Files[0])
}

func TestLoadScenarioRejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "has a typo"
definitions: "types: {}"
expects:
  - type: T
    capability: encode
    outcome: derived
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenarioValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "d"
definitions: "types: {}"
expect:
  - {type: T, capability: encode, outcome: derived}
`,
			wantErr: "name is required",
		},
		{
			name: "missing definitions",
			content: `
name: s
description: "d"
expect:
  - {type: T, capability: encode, outcome: derived}
`,
			wantErr: "definitions or files is required",
		},
		{
			name: "empty expect",
			content: `
name: s
description: "d"
definitions: "types: {}"
expect: []
`,
			wantErr: "expect list is required",
		},
		{
			name: "bad capability",
			content: `
name: s
description: "d"
definitions: "types: {}"
expect:
  - {type: T, capability: transcode, outcome: derived}
`,
			wantErr: "capability must be",
		},
		{
			name: "bad outcome",
			content: `
name: s
description: "d"
definitions: "types: {}"
expect:
  - {type: T, capability: encode, outcome: maybe}
`,
			wantErr: "outcome must be",
		},
		{
			name: "plan_contains on abort",
			content: `
name: s
description: "d"
definitions: "types: {}"
expect:
  - {type: T, capability: encode, outcome: aborted, plan_contains: ["x"]}
`,
			wantErr: "plan_contains is meaningless",
		},
		{
			name: "diagnostic without code",
			content: `
name: s
description: "d"
definitions: "types: {}"
expect:
  - {type: T, capability: encode, outcome: derived}
diagnostics:
  - {severity: error}
`,
			wantErr: "code is required",
		},
		{
			name: "missing definition file",
			content: `
name: s
description: "d"
files:
  - nope.cue
expect:
  - {type: T, capability: encode, outcome: derived}
`,
			wantErr: "definition file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
