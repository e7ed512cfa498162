package derive

import (
	"unicode"
	"unicode/utf8"

	"github.com/keyplan/keyplan/internal/schema"
)

// AncestorKeyName is the reserved identifier addressing a Record's ancestor
// in the serialized form. When present it is always the enumeration's first
// key.
const AncestorKeyName = "super"

// KeySource distinguishes a user-declared key enumeration from a
// synthesized one.
type KeySource int

const (
	// KeySynthesized marks an enumeration the engine built itself.
	KeySynthesized KeySource = iota
	// KeyUserDeclared marks an enumeration found in the type declaration.
	KeyUserDeclared
)

// String implements fmt.Stringer.
func (s KeySource) String() string {
	if s == KeyUserDeclared {
		return "declared"
	}
	return "synthesized"
}

// Key is one stable serialization identifier.
type Key struct {
	Name   string
	Source KeySource

	// Reserved marks the synthesized ancestor key; reserved keys never
	// match a member during validation.
	Reserved bool
}

// KeyEnumeration is the ordered key list for one type, created at most once
// and shared by encode and decode derivation.
type KeyEnumeration struct {
	TypeName string
	Source   KeySource
	Keys     []Key
}

// Names returns the ordered key identifiers.
func (e *KeyEnumeration) Names() []string {
	out := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		out[i] = k.Name
	}
	return out
}

// Lookup returns the key with the given identifier.
func (e *KeyEnumeration) Lookup(name string) (Key, bool) {
	for _, k := range e.Keys {
		if k.Name == name {
			return k, true
		}
	}
	return Key{}, false
}

// AncestorKey returns the reserved ancestor key identifier when the
// enumeration carries one, or the default ancestor key otherwise.
func (e *KeyEnumeration) AncestorKey() string {
	if len(e.Keys) > 0 && e.Keys[0].Reserved {
		return e.Keys[0].Name
	}
	return AncestorKeyName
}

// VariantKeyEnumeration is the per-variant key list addressing one union
// variant's payload parameters.
type VariantKeyEnumeration struct {
	Variant string
	Source  KeySource
	Keys    []Key
}

// Names returns the ordered key identifiers.
func (e *VariantKeyEnumeration) Names() []string {
	out := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		out[i] = k.Name
	}
	return out
}

// Lookup returns the key with the given identifier.
func (e *VariantKeyEnumeration) Lookup(name string) (Key, bool) {
	for _, k := range e.Keys {
		if k.Name == name {
			return k, true
		}
	}
	return Key{}, false
}

// VariantKeysName returns the nested namespace name addressing one
// variant's key enumeration ("circle" -> "CircleKeys").
func VariantKeysName(variant string) string {
	return sentenceCase(variant) + "Keys"
}

func sentenceCase(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// synthesizeTypeKeys builds the canonical key enumeration for a type that
// declares none.
//
// Records get one key per user-visible member in declaration order, with
// the reserved ancestor key prepended when an ancestor already supports
// either capability (the enumeration is shared by both derivations, so
// either direction of inheritance reserves the slot). Unions get one key
// per variant; unions have no inheritance in this model.
func synthesizeTypeKeys(t *schema.Type) *KeyEnumeration {
	e := &KeyEnumeration{TypeName: t.Name, Source: KeySynthesized}

	if t.Kind == schema.KindUnion {
		for _, v := range t.Variants {
			e.Keys = append(e.Keys, Key{Name: v.Name, Source: KeySynthesized})
		}
		return e
	}

	if t.Ancestor != nil && (t.Ancestor.Encodes || t.Ancestor.Decodes) {
		e.Keys = append(e.Keys, Key{Name: AncestorKeyName, Source: KeySynthesized, Reserved: true})
	}
	for _, m := range t.UserVisibleMembers() {
		e.Keys = append(e.Keys, Key{Name: m.Name, Source: KeySynthesized})
	}
	return e
}

// synthesizeVariantKeys builds the key enumeration for one variant's
// payload: one key per parameter, addressed by its coding name.
func synthesizeVariantKeys(v schema.Variant) *VariantKeyEnumeration {
	e := &VariantKeyEnumeration{Variant: v.Name, Source: KeySynthesized}
	for i, p := range v.Payload {
		e.Keys = append(e.Keys, Key{Name: p.CodingName(i), Source: KeySynthesized})
	}
	return e
}

// declaredTypeKeys converts a declared enumeration into a KeyEnumeration.
// Structural validity was already checked by the caller.
func declaredTypeKeys(t *schema.Type) *KeyEnumeration {
	e := &KeyEnumeration{TypeName: t.Name, Source: KeyUserDeclared}
	for _, name := range t.DeclaredKeys.Names {
		e.Keys = append(e.Keys, Key{Name: name, Source: KeyUserDeclared})
	}
	return e
}

// declaredVariantKeys converts a variant's declared enumeration.
func declaredVariantKeys(v schema.Variant) *VariantKeyEnumeration {
	e := &VariantKeyEnumeration{Variant: v.Name, Source: KeyUserDeclared}
	for _, name := range v.DeclaredKeys.Names {
		e.Keys = append(e.Keys, Key{Name: name, Source: KeyUserDeclared})
	}
	return e
}
