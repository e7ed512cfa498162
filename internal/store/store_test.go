package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyplan/keyplan/internal/derive"
	"github.com/keyplan/keyplan/internal/plan"
	"github.com/keyplan/keyplan/internal/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "keyplan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testBody() *plan.Body {
	return &plan.Body{
		TypeName:   "Person",
		Capability: schema.CapabilityEncode,
		Steps: []plan.Step{
			plan.AcquireContainer{Keys: []string{"name"}},
			plan.EncodeField{Key: "name", Member: "name"},
		},
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyplan.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var version int
	require.NoError(t, s2.DB().QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestWriteAndReadPlan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx, "person.cue")
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	body := testBody()
	id, inserted, err := s.WritePlan(ctx, runID, body)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, plan.MustBodyID(body), id)

	got, err := s.GetPlan(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Person", got.TypeName)
	assert.Equal(t, schema.CapabilityEncode, got.Capability)
	assert.Equal(t, plan.Render(body), got.Rendered)
	assert.Contains(t, got.Canonical, `"capability":"encode"`)
}

func TestWritePlanIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run1, err := s.BeginRun(ctx, "person.cue")
	require.NoError(t, err)
	run2, err := s.BeginRun(ctx, "person.cue")
	require.NoError(t, err)

	id1, inserted, err := s.WritePlan(ctx, run1, testBody())
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same body from a second run: no new plan row, just a new link.
	id2, inserted, err := s.WritePlan(ctx, run2, testBody())
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, id1, id2)

	var count int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM plans").Scan(&count))
	assert.Equal(t, 1, count)

	plans, err := s.PlansForRun(ctx, run2)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, id1, plans[0].ID)
}

func TestPlansForType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx, "person.cue")
	require.NoError(t, err)

	enc := testBody()
	dec := testBody()
	dec.Capability = schema.CapabilityDecode
	dec.Steps = []plan.Step{
		plan.AcquireContainer{Keys: []string{"name"}},
		plan.DecodeField{Key: "name", Member: "name", TypeName: "string"},
	}

	_, _, err = s.WritePlan(ctx, runID, enc)
	require.NoError(t, err)
	_, _, err = s.WritePlan(ctx, runID, dec)
	require.NoError(t, err)

	plans, err := s.PlansForType(ctx, "Person")
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, schema.CapabilityDecode, plans[0].Capability)
	assert.Equal(t, schema.CapabilityEncode, plans[1].Capability)
}

func TestGetPlanNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetPlan(context.Background(), "deadbeef")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteAndReadDiagnostics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runID, err := s.BeginRun(ctx, "bad.cue")
	require.NoError(t, err)

	diags := []derive.Diagnostic{
		{
			Code:       derive.CodeExtraneousKey,
			Severity:   derive.SeverityError,
			TypeName:   "Person",
			Capability: schema.CapabilityDecode,
			Subject:    "address",
			Message:    "key does not match any stored member",
			Pos:        schema.Pos{File: "bad.cue", Line: 4, Col: 2},
		},
		{
			Code:       derive.CodeImmutableMemberNotDecoded,
			Severity:   derive.SeverityWarning,
			TypeName:   "Person",
			Capability: schema.CapabilityDecode,
			Subject:    "id",
			Message:    "immutable member with an initial value will not be decoded",
			Advice:     "make the member mutable",
		},
	}
	require.NoError(t, s.WriteDiagnostics(ctx, runID, diags))

	stored, err := s.DiagnosticsForRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	assert.Equal(t, 0, stored[0].Seq)
	assert.Equal(t, diags[0], stored[0].Diagnostic)
	assert.Equal(t, diags[1], stored[1].Diagnostic)
}

func TestRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.BeginRun(ctx, "a.cue")
	require.NoError(t, err)
	_, err = s.BeginRun(ctx, "b.cue")
	require.NoError(t, err)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.NotEmpty(t, r.ID)
		assert.NotEmpty(t, r.CreatedAt)
	}
}
