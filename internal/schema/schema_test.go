package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaps(t *testing.T) {
	assert.False(t, CapsNone.Has(CapabilityEncode))
	assert.False(t, CapsNone.Has(CapabilityDecode))
	assert.True(t, CapsEncode.Has(CapabilityEncode))
	assert.False(t, CapsEncode.Has(CapabilityDecode))
	assert.True(t, CapsBoth.Has(CapabilityEncode))
	assert.True(t, CapsBoth.Has(CapabilityDecode))

	assert.Equal(t, CapsBoth, CapsEncode.With(CapabilityDecode))
	assert.Equal(t, CapsEncode, CapsNone.With(CapabilityEncode))
}

func TestParamCodingName(t *testing.T) {
	labeled := Param{Label: "radius"}
	assert.Equal(t, "radius", labeled.CodingName(0))
	assert.False(t, labeled.Synthesized())

	positional := Param{}
	assert.Equal(t, "_0", positional.CodingName(0))
	assert.Equal(t, "_7", positional.CodingName(7))
	assert.True(t, positional.Synthesized())
}

func TestMemberPredicates(t *testing.T) {
	tests := []struct {
		name        string
		member      Member
		defaultable bool
		fixed       bool
	}{
		{"plain", Member{Name: "a"}, false, false},
		{"optional", Member{Name: "a", Optional: true}, true, false},
		{"default", Member{Name: "a", HasDefault: true}, true, false},
		{"initial value", Member{Name: "a", HasInitialValue: true}, true, false},
		{"immutable only", Member{Name: "a", Immutable: true}, false, false},
		{"immutable with initial value", Member{Name: "a", Immutable: true, HasInitialValue: true}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.defaultable, tt.member.DefaultInitializable())
			assert.Equal(t, tt.fixed, tt.member.ImmutableWithInitializer())
		})
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	id, err := reg.Register(&Type{Name: "A", Kind: KindRecord})
	require.NoError(t, err)
	assert.Equal(t, TypeID(1), id)

	id2, err := reg.Register(&Type{Name: "B", Kind: KindUnion})
	require.NoError(t, err)
	assert.Equal(t, TypeID(2), id2)

	assert.Equal(t, "A", reg.Lookup(id).Name)
	assert.Nil(t, reg.Lookup(InvalidType))
	assert.Nil(t, reg.Lookup(TypeID(99)))

	b, ok := reg.LookupName("B")
	require.True(t, ok)
	assert.Equal(t, id2, b.ID)
	_, ok = reg.LookupName("C")
	assert.False(t, ok)

	types := reg.Types()
	require.Len(t, types, 2)
	assert.Equal(t, "A", types[0].Name)
}

func TestRegistryRejectsDuplicatesAndUnnamed(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Register(&Type{Name: "A"})
	require.NoError(t, err)

	_, err = reg.Register(&Type{Name: "A"})
	assert.ErrorContains(t, err, "duplicate type name")

	_, err = reg.Register(&Type{})
	assert.ErrorContains(t, err, "no name")
}

func TestConforms(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Register(&Type{Name: "EncOnly", Derives: CapsEncode})
	require.NoError(t, err)

	assert.True(t, reg.Conforms("string", CapabilityEncode))
	assert.True(t, reg.Conforms("string", CapabilityDecode))
	assert.True(t, reg.Conforms("EncOnly", CapabilityEncode))
	assert.False(t, reg.Conforms("EncOnly", CapabilityDecode))
	assert.False(t, reg.Conforms("Unknown", CapabilityEncode))
}

func TestUserVisibleMembers(t *testing.T) {
	typ := &Type{
		Name: "T",
		Members: []Member{
			{Name: "a"},
			{Name: "hidden", Hidden: true},
			{Name: "b"},
		},
	}
	visible := typ.UserVisibleMembers()
	require.Len(t, visible, 2)
	assert.Equal(t, "a", visible[0].Name)
	assert.Equal(t, "b", visible[1].Name)

	_, ok := typ.MemberNamed("hidden")
	assert.False(t, ok)
	m, ok := typ.MemberNamed("b")
	require.True(t, ok)
	assert.Equal(t, "b", m.Name)
}

func TestAncestorSupports(t *testing.T) {
	var nilAncestor *Ancestor
	assert.False(t, nilAncestor.Supports(CapabilityEncode))

	a := &Ancestor{Encodes: true}
	assert.True(t, a.Supports(CapabilityEncode))
	assert.False(t, a.Supports(CapabilityDecode))
}

func TestPos(t *testing.T) {
	assert.Equal(t, "<unknown>", Pos{}.String())
	assert.Equal(t, "a.cue:3:7", Pos{File: "a.cue", Line: 3, Col: 7}.String())
	assert.True(t, Pos{File: "a.cue"}.IsValid())
	assert.True(t, Pos{Line: 1}.IsValid())
}
