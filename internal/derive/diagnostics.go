package derive

import (
	"errors"
	"fmt"

	"github.com/keyplan/keyplan/internal/schema"
)

// Code categorizes derivation diagnostics.
type Code string

const (
	// CodeDuplicateKeyEnumerationDeclaration indicates a type declares its
	// key enumeration more than once.
	CodeDuplicateKeyEnumerationDeclaration Code = "DUPLICATE_KEY_ENUMERATION_DECLARATION"

	// CodeKeyEnumerationIsNotAnEnum indicates the declared key enumeration
	// names something other than an enumeration of identifiers.
	CodeKeyEnumerationIsNotAnEnum Code = "KEY_ENUMERATION_IS_NOT_AN_ENUM"

	// CodeKeyDoesNotConformToKeyContract indicates the declared key
	// enumeration violates the key contract (unique, stable, non-empty
	// identifiers).
	CodeKeyDoesNotConformToKeyContract Code = "KEY_DOES_NOT_CONFORM_TO_KEY_CONTRACT"

	// CodeExtraneousKey indicates a declared key that names no existing
	// member or variant.
	CodeExtraneousKey Code = "EXTRANEOUS_KEY"

	// CodeMissingKeyForNonDecodedMember indicates a member omitted from the
	// key enumeration that decode cannot default.
	CodeMissingKeyForNonDecodedMember Code = "MISSING_KEY_FOR_NON_DECODED_MEMBER"

	// CodeMemberDoesNotConformToCapability indicates a keyed member or
	// payload parameter whose type does not support the derived capability.
	CodeMemberDoesNotConformToCapability Code = "MEMBER_DOES_NOT_CONFORM_TO_CAPABILITY"

	// CodeDuplicateVariantName indicates two union variants sharing a name.
	CodeDuplicateVariantName Code = "DUPLICATE_VARIANT_NAME"

	// CodeDuplicatePayloadParameterName indicates two payload parameters of
	// one variant sharing a coding name.
	CodeDuplicatePayloadParameterName Code = "DUPLICATE_PAYLOAD_PARAMETER_NAME"

	// CodeNoReachableAncestorInitializer indicates decode derivation found
	// no ancestor initializer to chain to.
	CodeNoReachableAncestorInitializer Code = "NO_REACHABLE_ANCESTOR_INITIALIZER"

	// CodeAncestorInitializerNotDesignated indicates the reachable ancestor
	// initializer is not the designated one.
	CodeAncestorInitializerNotDesignated Code = "ANCESTOR_INITIALIZER_NOT_DESIGNATED"

	// CodeAncestorInitializerInaccessible indicates the ancestor initializer
	// cannot be called from the derived body.
	CodeAncestorInitializerInaccessible Code = "ANCESTOR_INITIALIZER_INACCESSIBLE"

	// CodeAncestorInitializerIsFailable indicates the ancestor initializer
	// is failable while the derived decode body is not.
	CodeAncestorInitializerIsFailable Code = "ANCESTOR_INITIALIZER_IS_FAILABLE"

	// CodeImmutableMemberNotDecoded is the warning for an immutable member
	// with an initial value whose key is present but which decode will
	// never assign.
	CodeImmutableMemberNotDecoded Code = "IMMUTABLE_MEMBER_NOT_DECODED"
)

// Severity of a diagnostic. Errors invalidate the derivation that reported
// them; warnings do not.
type Severity int

const (
	// SeverityError aborts the (type, capability) derivation.
	SeverityError Severity = iota
	// SeverityWarning is advisory only.
	SeverityWarning
)

// String implements fmt.Stringer.
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// MarshalJSON writes the severity in its storage form.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Diagnostic is one structured derivation finding, located at its precise
// source position with the capability and type named.
type Diagnostic struct {
	Code       Code              `json:"code"`
	Severity   Severity          `json:"severity"`
	TypeName   string            `json:"type"`
	Capability schema.Capability `json:"capability"`

	// Subject names the member, variant, parameter, or key the finding is
	// about, when there is one.
	Subject string `json:"subject,omitempty"`

	Message string `json:"message"`

	// Advice carries the follow-up suggestion for warnings that have one.
	Advice string `json:"advice,omitempty"`

	Pos schema.Pos `json:"pos,omitzero"`
}

// String implements fmt.Stringer.
func (d Diagnostic) String() string {
	loc := ""
	if d.Pos.IsValid() {
		loc = d.Pos.String() + ": "
	}
	if d.Subject != "" {
		return fmt.Sprintf("%s%s: [%s] %s %s: %q: %s", loc, d.Severity, d.Code, d.Capability, d.TypeName, d.Subject, d.Message)
	}
	return fmt.Sprintf("%s%s: [%s] %s %s: %s", loc, d.Severity, d.Code, d.Capability, d.TypeName, d.Message)
}

// Reporter receives structured diagnostics. Reporting is fire-and-forget:
// it never affects derivation control flow beyond the abort decision
// already made by the caller.
type Reporter interface {
	Report(d Diagnostic)
}

// List is a Reporter that accumulates diagnostics in report order.
type List struct {
	Diags []Diagnostic
}

// Report implements Reporter.
func (l *List) Report(d Diagnostic) {
	l.Diags = append(l.Diags, d)
}

// Errors returns the accumulated error-severity diagnostics.
func (l *List) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range l.Diags {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether any error-severity diagnostic was reported.
func (l *List) HasErrors() bool {
	for _, d := range l.Diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ByCode returns accumulated diagnostics with the given code.
func (l *List) ByCode(code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range l.Diags {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// AbortError is returned when derivation for one (type, capability) pair is
// invalidated. The diagnostics explaining the abort were already delivered
// to the Reporter; sibling types and the other capability are unaffected.
type AbortError struct {
	TypeName   string
	Capability schema.Capability
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	return fmt.Sprintf("derivation aborted: %s for type %s (see diagnostics)", e.Capability, e.TypeName)
}

// IsAborted reports whether the error is a derivation abort. Uses
// errors.As to handle wrapped errors.
func IsAborted(err error) bool {
	var ae *AbortError
	return errors.As(err, &ae)
}
