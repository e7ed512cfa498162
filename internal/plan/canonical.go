package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical JSON form of a body, the only
// serialization used for content-addressed identity.
//
// Canonical form rules (RFC 8785 subset):
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings NFC normalized
//  4. Values limited to string, int, bool, array, object
func MarshalCanonical(b *Body) ([]byte, error) {
	return marshalCanonical(bodyToCanonical(b))
}

// bodyToCanonical lowers a body to the generic tree canonical marshaling
// operates on. Step order is preserved; every step carries an "op" tag.
func bodyToCanonical(b *Body) map[string]any {
	steps := make([]any, len(b.Steps))
	for i, s := range b.Steps {
		steps[i] = stepToCanonical(s)
	}
	return map[string]any{
		"type":       b.TypeName,
		"capability": b.Capability.String(),
		"steps":      steps,
	}
}

func stepToCanonical(s Step) map[string]any {
	switch st := s.(type) {
	case AcquireContainer:
		return map[string]any{"op": "acquire", "keys": stringsToAny(st.Keys)}
	case EncodeField:
		return map[string]any{"op": "encode_field", "key": st.Key, "member": st.Member, "if_present": st.IfPresent}
	case DecodeField:
		return map[string]any{"op": "decode_field", "key": st.Key, "member": st.Member, "type": st.TypeName, "if_present": st.IfPresent}
	case EncodeAncestor:
		return map[string]any{"op": "encode_ancestor", "key": st.Key}
	case DecodeAncestor:
		return map[string]any{"op": "decode_ancestor", "key": st.Key}
	case InitAncestor:
		return map[string]any{"op": "init_ancestor", "propagates": st.Propagates}
	case GuardSingleKey:
		return map[string]any{"op": "guard_single_key", "message": st.Message}
	case Switch:
		cases := make([]any, len(st.Cases))
		for i, c := range st.Cases {
			steps := make([]any, len(c.Steps))
			for j, cs := range c.Steps {
				steps[j] = stepToCanonical(cs)
			}
			cases[i] = map[string]any{"variant": c.Variant, "key": c.Key, "steps": steps}
		}
		return map[string]any{"op": "switch", "subject": st.Subject.String(), "cases": cases}
	case AcquireNested:
		return map[string]any{"op": "acquire_nested", "key": st.Key, "keys": stringsToAny(st.Keys)}
	case EncodeParam:
		return map[string]any{"op": "encode_param", "key": st.Key, "param": st.Param, "if_present": st.IfPresent}
	case DecodeParam:
		return map[string]any{"op": "decode_param", "key": st.Key, "param": st.Param, "type": st.TypeName}
	case DefaultParam:
		return map[string]any{"op": "default_param", "param": st.Param}
	case FailUnrepresentable:
		return map[string]any{"op": "fail_unrepresentable", "variant": st.Variant, "message": st.Message}
	case Construct:
		return map[string]any{"op": "construct", "variant": st.Variant, "params": stringsToAny(st.Params), "labeled": st.Labeled}
	default:
		return map[string]any{"op": fmt.Sprintf("unknown:%T", s)}
	}
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(val)
	case int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []any:
		return marshalCanonicalArray(val)
	case map[string]any:
		return marshalCanonicalObject(val)
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString produces a canonical JSON string: NFC normalized,
// no HTML escaping.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline, remove it
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	return result, nil
}

func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)

	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// compareKeysUTF16 compares strings by UTF-16 code units as RFC 8785
// requires. Go's native string comparison is UTF-8 and orders supplementary
// characters differently.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}
