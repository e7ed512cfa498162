package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the two shapes of derivable types.
type Kind int

const (
	// KindRecord is a type with named members and an optional linear ancestor.
	KindRecord Kind = iota
	// KindUnion is a type with named variants, each carrying an ordered payload.
	KindUnion
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindUnion:
		return "union"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Capability identifies one of the two independently derivable codec
// directions.
type Capability int

const (
	// CapabilityEncode converts a value into a keyed serialized form.
	CapabilityEncode Capability = iota
	// CapabilityDecode reconstructs a value from a keyed serialized form.
	CapabilityDecode
)

// String implements fmt.Stringer.
func (c Capability) String() string {
	switch c {
	case CapabilityEncode:
		return "encode"
	case CapabilityDecode:
		return "decode"
	default:
		return fmt.Sprintf("Capability(%d)", int(c))
	}
}

// MarshalJSON writes the capability in its storage form.
func (c Capability) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON reads the storage form.
func (c *Capability) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCapability(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCapability converts the wire/storage form of a capability back to
// its value.
func ParseCapability(s string) (Capability, error) {
	switch s {
	case "encode":
		return CapabilityEncode, nil
	case "decode":
		return CapabilityDecode, nil
	default:
		return CapabilityEncode, fmt.Errorf("unknown capability %q", s)
	}
}

// Caps is a set of capabilities.
type Caps uint8

const (
	// CapsNone is the empty capability set.
	CapsNone Caps = 0
	// CapsEncode contains only the encode capability.
	CapsEncode Caps = 1 << iota
	// CapsDecode contains only the decode capability.
	CapsDecode
	// CapsBoth contains both capabilities.
	CapsBoth = CapsEncode | CapsDecode
)

// Has reports whether the set contains the given capability.
func (s Caps) Has(c Capability) bool {
	switch c {
	case CapabilityEncode:
		return s&CapsEncode != 0
	case CapabilityDecode:
		return s&CapsDecode != 0
	default:
		return false
	}
}

// With returns the set extended by the given capability.
func (s Caps) With(c Capability) Caps {
	switch c {
	case CapabilityEncode:
		return s | CapsEncode
	case CapabilityDecode:
		return s | CapsDecode
	default:
		return s
	}
}

// Pos is a source position for diagnostics. The zero value means "unknown".
type Pos struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
}

// IsValid reports whether the position points at actual source.
func (p Pos) IsValid() bool { return p.File != "" || p.Line > 0 }

// String implements fmt.Stringer.
func (p Pos) String() string {
	if !p.IsValid() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Member is one stored member of a Record.
type Member struct {
	Name     string
	TypeName string

	// Optional marks the member's declared type as optional; optional
	// members use the if-present codec variants and are default
	// initializable.
	Optional bool

	// HasDefault marks the member as default initializable without being
	// decoded (a declaration-site default exists).
	HasDefault bool

	// HasInitialValue marks the member as carrying an explicit initial
	// value at its declaration.
	HasInitialValue bool

	// Immutable marks the member as non-assignable after initialization.
	Immutable bool

	// Hidden excludes the member from serialization entirely (computed or
	// otherwise non-user-visible storage).
	Hidden bool

	Pos Pos
}

// ImmutableWithInitializer reports whether the member can never be assigned
// by a decode body because its value is fixed at declaration.
func (m Member) ImmutableWithInitializer() bool {
	return m.Immutable && m.HasInitialValue
}

// DefaultInitializable reports whether a decode body may legally skip the
// member: it is optional, carries a declaration default, or already has an
// initial value.
func (m Member) DefaultInitializable() bool {
	return m.Optional || m.HasDefault || m.HasInitialValue
}

// Param is one payload parameter of a union Variant.
type Param struct {
	// Label is the user-written parameter name; empty for positional
	// parameters, which are addressed by a synthesized _0, _1, ... name.
	Label    string
	TypeName string
	Optional bool

	// HasDefault marks the parameter as carrying a default expression; a
	// parameter without a key in the variant key enumeration must have one
	// for decode to be derivable.
	HasDefault bool

	Pos Pos
}

// PositionalName returns the synthesized identifier for the i-th unlabeled
// payload parameter.
func PositionalName(i int) string {
	return "_" + strconv.Itoa(i)
}

// CodingName returns the identifier a parameter is addressed by in the
// variant key enumeration: its label, or a synthesized positional name.
func (p Param) CodingName(index int) string {
	if p.Label == "" {
		return PositionalName(index)
	}
	return p.Label
}

// Synthesized reports whether the coding name was generated rather than
// user-written.
func (p Param) Synthesized() bool { return p.Label == "" }

// Variant is one named case of a Union with its ordered payload.
type Variant struct {
	Name    string
	Payload []Param

	// DeclaredKeys is the user-declared variant key enumeration, if any.
	DeclaredKeys *DeclaredKeys

	Pos Pos
}

// HasPayload reports whether the variant carries any parameters.
func (v Variant) HasPayload() bool { return len(v.Payload) > 0 }

// DeclaredKeys is a user-declared key enumeration as found in source,
// before validation.
type DeclaredKeys struct {
	Names []string

	// NotAnEnum marks a declaration that names something other than an
	// enumeration of identifiers.
	NotAnEnum bool

	// Redeclared marks a type carrying more than one declaration for the
	// same enumeration.
	Redeclared bool

	Pos Pos
}

// AncestorInit describes the ancestor initializer a decode body must chain
// to when the ancestor does not itself decode.
type AncestorInit struct {
	Exists     bool
	Designated bool
	Accessible bool
	Failable   bool

	// Throws marks an initializer whose failure must be propagated by the
	// generated body.
	Throws bool
}

// Ancestor is a Record's single linear parent, when present.
type Ancestor struct {
	// Type is the registry handle of the parent type; InvalidType when the
	// parent is external to the compilation unit.
	Type TypeID

	// Name is the parent's declared name, kept for rendering and
	// diagnostics.
	Name string

	// Encodes and Decodes report whether the parent already supports the
	// corresponding capability.
	Encodes bool
	Decodes bool

	Init AncestorInit
}

// Supports reports whether the ancestor already carries the capability.
func (a *Ancestor) Supports(c Capability) bool {
	if a == nil {
		return false
	}
	if c == CapabilityEncode {
		return a.Encodes
	}
	return a.Decodes
}

// Type is the immutable structural description of one derivable type.
type Type struct {
	// ID is assigned by the Registry at registration time.
	ID   TypeID
	Name string
	Kind Kind

	// Derives is the capability set requested for this type. The decode
	// generator consults it to know whether encode is derived alongside.
	Derives Caps

	// Members is the declaration-ordered member list (Records only).
	Members []Member

	// Variants is the declaration-ordered variant list (Unions only).
	Variants []Variant

	// Ancestor is the linear parent link (Records only).
	Ancestor *Ancestor

	// DeclaredKeys is the user-declared type-level key enumeration, if any.
	DeclaredKeys *DeclaredKeys

	Pos Pos
}

// UserVisibleMembers returns the members that participate in serialization,
// in declaration order.
func (t *Type) UserVisibleMembers() []Member {
	out := make([]Member, 0, len(t.Members))
	for _, m := range t.Members {
		if m.Hidden {
			continue
		}
		out = append(out, m)
	}
	return out
}

// MemberNamed returns the user-visible member with the given name.
func (t *Type) MemberNamed(name string) (Member, bool) {
	for _, m := range t.Members {
		if m.Hidden {
			continue
		}
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// VariantNamed returns the variant with the given name.
func (t *Type) VariantNamed(name string) (Variant, bool) {
	for _, v := range t.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}
