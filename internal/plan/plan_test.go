package plan

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyplan/keyplan/internal/schema"
)

func recordEncodeBody() *Body {
	return &Body{
		TypeName:   "Person",
		Capability: schema.CapabilityEncode,
		Steps: []Step{
			AcquireContainer{Keys: []string{"name", "age"}},
			EncodeField{Key: "name", Member: "name"},
			EncodeField{Key: "age", Member: "age", IfPresent: true},
			EncodeAncestor{Key: "super"},
		},
	}
}

func unionDecodeBody() *Body {
	return &Body{
		TypeName:   "Shape",
		Capability: schema.CapabilityDecode,
		Steps: []Step{
			AcquireContainer{Keys: []string{"circle", "empty"}},
			GuardSingleKey{Message: "invalid number of keys found, expected one"},
			Switch{
				Subject: SwitchOnPresentKey,
				Cases: []Case{
					{Variant: "circle", Key: "circle", Steps: []Step{
						AcquireNested{Key: "circle", Keys: []string{"radius"}},
						DecodeParam{Key: "radius", Param: "radius", TypeName: "int"},
						Construct{Variant: "circle", Params: []string{"radius"}, Labeled: true},
					}},
					{Variant: "empty", Key: "empty", Steps: []Step{
						AcquireNested{Key: "empty"},
						Construct{Variant: "empty"},
					}},
				},
			},
		},
	}
}

func TestRenderRecordEncode(t *testing.T) {
	got := Render(recordEncodeBody())
	want := strings.Join([]string{
		"encode Person {",
		"  container := acquire(keys: [name age])",
		"  container.encode(name, key: .name)",
		"  container.encodeIfPresent(age, key: .age)",
		"  ancestor.encode(container.sub(.super))",
		"}",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestRenderUnionDecode(t *testing.T) {
	got := Render(unionDecodeBody())
	assert.Contains(t, got, "decode Shape {")
	assert.Contains(t, got, `guard single-key else fail type-mismatch "invalid number of keys found, expected one"`)
	assert.Contains(t, got, "switch present-key {")
	assert.Contains(t, got, "case circle (key .circle):")
	assert.Contains(t, got, "radius := nested.decode(int, key: .radius)")
	assert.Contains(t, got, "result = .circle(radius)")
	assert.Contains(t, got, "result = .empty\n")
}

func TestRenderFailAndInit(t *testing.T) {
	b := &Body{
		TypeName:   "T",
		Capability: schema.CapabilityDecode,
		Steps: []Step{
			InitAncestor{},
			InitAncestor{Propagates: true},
			FailUnrepresentable{Variant: "v", Message: "nope"},
			DefaultParam{Param: "x"},
		},
	}
	got := Render(b)
	assert.Contains(t, got, "  ancestor.init()\n")
	assert.Contains(t, got, "  try ancestor.init()\n")
	assert.Contains(t, got, `  fail invalid-value "nope"`)
	assert.Contains(t, got, "  x := default()\n")
}

func TestMarshalCanonicalIsValidJSON(t *testing.T) {
	for _, b := range []*Body{recordEncodeBody(), unionDecodeBody()} {
		data, err := MarshalCanonical(b)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, b.TypeName, decoded["type"])
		assert.Equal(t, b.Capability.String(), decoded["capability"])
	}
}

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	data, err := marshalCanonical(map[string]any{"b": 1, "a": 2, "c": 3})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":3}`, string(data))
}

func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	// U+1D306 (surrogate pair in UTF-16) sorts before U+FF5E under UTF-16
	// code unit order, after it under UTF-8 byte order.
	data, err := marshalCanonical(map[string]any{
		"\U0001D306": 1,
		"～":     2,
	})
	require.NoError(t, err)
	idxSupp := strings.Index(string(data), "\U0001D306")
	idxFull := strings.Index(string(data), "～")
	assert.Less(t, idxSupp, idxFull)
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	data, err := marshalCanonical("<a>&</a>")
	require.NoError(t, err)
	assert.Equal(t, `"<a>&</a>"`, string(data))
}

func TestMarshalCanonicalNormalizesNFC(t *testing.T) {
	// e followed by combining acute accent normalizes to the precomposed
	// form.
	decomposed := "é"
	precomposed := "é"

	d1, err := marshalCanonical(decomposed)
	require.NoError(t, err)
	d2, err := marshalCanonical(precomposed)
	require.NoError(t, err)
	assert.Equal(t, d2, d1)
}

func TestMarshalCanonicalRejectsFloatsAndNull(t *testing.T) {
	_, err := marshalCanonical(1.5)
	assert.ErrorContains(t, err, "floats are forbidden")

	_, err = marshalCanonical(nil)
	assert.ErrorContains(t, err, "null is forbidden")
}

func TestBodyIDStable(t *testing.T) {
	id1, err := BodyID(recordEncodeBody())
	require.NoError(t, err)
	id2, err := BodyID(recordEncodeBody())
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
}

func TestBodyIDDistinguishesCapability(t *testing.T) {
	enc := recordEncodeBody()
	dec := recordEncodeBody()
	dec.Capability = schema.CapabilityDecode

	assert.NotEqual(t, MustBodyID(enc), MustBodyID(dec))
}

func TestBodyIDDistinguishesStepOrder(t *testing.T) {
	a := recordEncodeBody()
	b := recordEncodeBody()
	b.Steps[1], b.Steps[2] = b.Steps[2], b.Steps[1]

	assert.NotEqual(t, MustBodyID(a), MustBodyID(b))
}

func TestHashDomainSeparation(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t,
		hashWithDomain("keyplan/body/v1", data),
		hashWithDomain("keyplan/other/v1", data))
}
