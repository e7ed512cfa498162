package plan

import "github.com/keyplan/keyplan/internal/schema"

// Body is a fully derived procedure body for one (type, capability) pair.
type Body struct {
	TypeName   string
	Capability schema.Capability
	Steps      []Step
}

// Step is a sealed interface over the closed set of plan operations. Only
// the types in this file implement it.
type Step interface {
	step() // sealed
}

// AcquireContainer binds the keyed container scoped to the type-level key
// enumeration. Keys lists the enumeration's identifiers in stored order.
type AcquireContainer struct {
	Keys []string
}

func (AcquireContainer) step() {}

// EncodeField writes one Record member into the container under its key.
// IfPresent selects the encode-if-present variant for optional members.
type EncodeField struct {
	Key       string
	Member    string
	IfPresent bool
}

func (EncodeField) step() {}

// DecodeField reads one Record member from the container under its key and
// assigns it. IfPresent selects the decode-if-present variant.
type DecodeField struct {
	Key       string
	Member    string
	TypeName  string
	IfPresent bool
}

func (DecodeField) step() {}

// EncodeAncestor encodes the ancestor through a derived sub-container
// addressed by the reserved ancestor key.
type EncodeAncestor struct {
	Key string
}

func (EncodeAncestor) step() {}

// DecodeAncestor chains to the ancestor's decode through a derived
// sub-container addressed by the reserved ancestor key.
type DecodeAncestor struct {
	Key string
}

func (DecodeAncestor) step() {}

// InitAncestor constructs the ancestor through its plain designated
// initializer. Propagates marks an initializer whose failure the body must
// pass through.
type InitAncestor struct {
	Propagates bool
}

func (InitAncestor) step() {}

// GuardSingleKey aborts a union decode with a type-mismatch failure unless
// exactly one key is present in the serialized data.
type GuardSingleKey struct {
	Message string
}

func (GuardSingleKey) step() {}

// SwitchSubject selects what a Switch branches on.
type SwitchSubject int

const (
	// SwitchOnValue branches on the union value's variant (encode side).
	SwitchOnValue SwitchSubject = iota
	// SwitchOnPresentKey branches on the single key present in the
	// serialized data (decode side).
	SwitchOnPresentKey
)

// String implements fmt.Stringer.
func (s SwitchSubject) String() string {
	if s == SwitchOnValue {
		return "value"
	}
	return "present-key"
}

// Switch branches once per listed variant, in declaration order.
type Switch struct {
	Subject SwitchSubject
	Cases   []Case
}

func (Switch) step() {}

// Case is one branch of a Switch. Key is empty for a variant absent from
// the type-level key enumeration (encode emits an unconditional failure for
// such a case; decode omits it from the branch set entirely).
type Case struct {
	Variant string
	Key     string
	Steps   []Step
}

// AcquireNested binds a nested container scoped to one variant's key
// enumeration, addressed by the variant's type-level key.
type AcquireNested struct {
	Key  string
	Keys []string
}

func (AcquireNested) step() {}

// EncodeParam writes one payload parameter into the nested container.
type EncodeParam struct {
	Key       string
	Param     string
	IfPresent bool
}

func (EncodeParam) step() {}

// DecodeParam reads one payload parameter from the nested container.
type DecodeParam struct {
	Key      string
	Param    string
	TypeName string
}

func (DecodeParam) step() {}

// DefaultParam substitutes a payload parameter's default expression instead
// of decoding it.
type DefaultParam struct {
	Param string
}

func (DefaultParam) step() {}

// FailUnrepresentable signals that the value cannot be represented in the
// serialized form (a variant without a key was constructed).
type FailUnrepresentable struct {
	Variant string
	Message string
}

func (FailUnrepresentable) step() {}

// Construct builds the variant value from the previously decoded or
// defaulted parameters and assigns it as the result. Labeled is false for a
// payload-free variant, which is constructed positionally.
type Construct struct {
	Variant string
	Params  []string
	Labeled bool
}

func (Construct) step() {}
