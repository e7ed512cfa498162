package derive

import (
	"fmt"

	"github.com/keyplan/keyplan/internal/schema"
)

// checkKeyContract validates the structural contract of a declared key
// enumeration: declared once, actually an enumeration, unique non-empty
// identifiers. Violations are reported; the return value is false when the
// declaration cannot be used at all.
func checkKeyContract(dk *schema.DeclaredKeys, typeName string, c schema.Capability, rep Reporter) bool {
	if dk.Redeclared {
		rep.Report(Diagnostic{
			Code:       CodeDuplicateKeyEnumerationDeclaration,
			Severity:   SeverityError,
			TypeName:   typeName,
			Capability: c,
			Message:    "key enumeration is declared more than once",
			Pos:        dk.Pos,
		})
		return false
	}
	if dk.NotAnEnum {
		rep.Report(Diagnostic{
			Code:       CodeKeyEnumerationIsNotAnEnum,
			Severity:   SeverityError,
			TypeName:   typeName,
			Capability: c,
			Message:    "declared key enumeration is not an enumeration of identifiers",
			Pos:        dk.Pos,
		})
		return false
	}

	seen := make(map[string]bool, len(dk.Names))
	for _, name := range dk.Names {
		if name == "" {
			rep.Report(Diagnostic{
				Code:       CodeKeyDoesNotConformToKeyContract,
				Severity:   SeverityError,
				TypeName:   typeName,
				Capability: c,
				Message:    "declared key has an empty identifier",
				Pos:        dk.Pos,
			})
			return false
		}
		if seen[name] {
			rep.Report(Diagnostic{
				Code:       CodeKeyDoesNotConformToKeyContract,
				Severity:   SeverityError,
				TypeName:   typeName,
				Capability: c,
				Subject:    name,
				Message:    "declared key identifiers are not unique",
				Pos:        dk.Pos,
			})
			return false
		}
		seen[name] = true
	}
	return true
}

// validateRecordKeys cross-checks a key enumeration against a Record's
// user-visible members.
//
// Matching pass: every non-reserved key must name an existing member, and
// the member's type must support the capability. Coverage pass (decode
// only): every member not named by any key must be default initializable.
// Encode has no coverage requirement; un-keyed members are silently skipped
// on encode.
func validateRecordKeys(reg *schema.Registry, t *schema.Type, e *KeyEnumeration, c schema.Capability, rep Reporter) bool {
	members := t.UserVisibleMembers()
	matched := make(map[string]bool, len(members))

	valid := true
	for _, k := range e.Keys {
		if k.Reserved {
			continue
		}
		m, ok := t.MemberNamed(k.Name)
		if !ok {
			rep.Report(Diagnostic{
				Code:       CodeExtraneousKey,
				Severity:   SeverityError,
				TypeName:   t.Name,
				Capability: c,
				Subject:    k.Name,
				Message:    "key does not match any stored member",
				Pos:        t.Pos,
			})
			valid = false
			continue
		}

		if !reg.Conforms(m.TypeName, c) {
			rep.Report(Diagnostic{
				Code:       CodeMemberDoesNotConformToCapability,
				Severity:   SeverityError,
				TypeName:   t.Name,
				Capability: c,
				Subject:    m.Name,
				Message:    fmt.Sprintf("member type %s does not support %s", m.TypeName, c),
				Pos:        m.Pos,
			})
			valid = false
			continue
		}
		matched[m.Name] = true
	}
	if !valid {
		return false
	}

	if c == schema.CapabilityDecode {
		for _, m := range members {
			if matched[m.Name] {
				continue
			}
			if m.DefaultInitializable() {
				continue
			}
			rep.Report(Diagnostic{
				Code:       CodeMissingKeyForNonDecodedMember,
				Severity:   SeverityError,
				TypeName:   t.Name,
				Capability: c,
				Subject:    m.Name,
				Message:    "member has no key and no default; decode cannot produce a complete value",
				Pos:        m.Pos,
			})
			valid = false
		}
	}
	return valid
}

// validateUnionKeys cross-checks a type-level key enumeration against a
// Union's variants. Every key must name an existing variant; a variant
// without a key is legal (it becomes permanently unrepresentable) and is
// not reported here.
func validateUnionKeys(t *schema.Type, e *KeyEnumeration, c schema.Capability, rep Reporter) bool {
	valid := true
	for _, k := range e.Keys {
		if _, ok := t.VariantNamed(k.Name); !ok {
			rep.Report(Diagnostic{
				Code:       CodeExtraneousKey,
				Severity:   SeverityError,
				TypeName:   t.Name,
				Capability: c,
				Subject:    k.Name,
				Message:    "key does not match any variant",
				Pos:        t.Pos,
			})
			valid = false
		}
	}
	return valid
}

// validateVariantKeys cross-checks one variant's key enumeration against
// its payload parameters, under the same asymmetric rules as
// validateRecordKeys: decode requires every un-keyed parameter to carry a
// default expression; encode silently omits un-keyed parameters.
func validateVariantKeys(reg *schema.Registry, t *schema.Type, v schema.Variant, e *VariantKeyEnumeration, c schema.Capability, rep Reporter) bool {
	params := make(map[string]schema.Param, len(v.Payload))
	order := make([]string, 0, len(v.Payload))
	for i, p := range v.Payload {
		name := p.CodingName(i)
		params[name] = p
		order = append(order, name)
	}
	matched := make(map[string]bool, len(params))

	valid := true
	for _, k := range e.Keys {
		p, ok := params[k.Name]
		if !ok {
			rep.Report(Diagnostic{
				Code:       CodeExtraneousKey,
				Severity:   SeverityError,
				TypeName:   t.Name,
				Capability: c,
				Subject:    fmt.Sprintf("%s.%s", v.Name, k.Name),
				Message:    "variant key does not match any payload parameter",
				Pos:        v.Pos,
			})
			valid = false
			continue
		}

		if !reg.Conforms(p.TypeName, c) {
			rep.Report(Diagnostic{
				Code:       CodeMemberDoesNotConformToCapability,
				Severity:   SeverityError,
				TypeName:   t.Name,
				Capability: c,
				Subject:    fmt.Sprintf("%s.%s", v.Name, k.Name),
				Message:    fmt.Sprintf("payload parameter type %s does not support %s", p.TypeName, c),
				Pos:        p.Pos,
			})
			valid = false
			continue
		}
		matched[k.Name] = true
	}
	if !valid {
		return false
	}

	if c == schema.CapabilityDecode {
		for _, name := range order {
			if matched[name] {
				continue
			}
			if params[name].HasDefault {
				continue
			}
			rep.Report(Diagnostic{
				Code:       CodeMissingKeyForNonDecodedMember,
				Severity:   SeverityError,
				TypeName:   t.Name,
				Capability: c,
				Subject:    fmt.Sprintf("%s.%s", v.Name, name),
				Message:    "payload parameter has no key and no default expression",
				Pos:        v.Pos,
			})
			valid = false
		}
	}
	return valid
}

// checkUnionShape validates variant-name and payload-parameter-name
// uniqueness across a Union. A user-written label colliding with a
// synthesized positional name is reported on the user-written one.
func checkUnionShape(t *schema.Type, c schema.Capability, rep Reporter) bool {
	valid := true
	variantNames := make(map[string]bool, len(t.Variants))
	for _, v := range t.Variants {
		if variantNames[v.Name] {
			rep.Report(Diagnostic{
				Code:       CodeDuplicateVariantName,
				Severity:   SeverityError,
				TypeName:   t.Name,
				Capability: c,
				Subject:    v.Name,
				Message:    "duplicate variant name",
				Pos:        v.Pos,
			})
			valid = false
			continue
		}
		variantNames[v.Name] = true

		seen := make(map[string]int, len(v.Payload))
		for i, p := range v.Payload {
			name := p.CodingName(i)
			if prev, dup := seen[name]; dup {
				// At most one of the two colliding parameters is
				// user-written; blame that one.
				pos := p.Pos
				subject := name
				if p.Synthesized() {
					pos = v.Payload[prev].Pos
				}
				rep.Report(Diagnostic{
					Code:       CodeDuplicatePayloadParameterName,
					Severity:   SeverityError,
					TypeName:   t.Name,
					Capability: c,
					Subject:    fmt.Sprintf("%s.%s", v.Name, subject),
					Message:    "duplicate payload parameter name",
					Pos:        pos,
				})
				valid = false
				continue
			}
			seen[name] = i
		}
	}
	return valid
}

// checkAncestorInitializer enforces the decode preconditions on a Record's
// ancestor link: a reachable, designated, accessible initializer that is
// not failable when decode is not inherited. Violations abort derivation
// before any body is attempted.
func checkAncestorInitializer(t *schema.Type, rep Reporter) bool {
	a := t.Ancestor
	if a == nil {
		return true
	}

	init := a.Init
	if !init.Exists {
		rep.Report(Diagnostic{
			Code:       CodeNoReachableAncestorInitializer,
			Severity:   SeverityError,
			TypeName:   t.Name,
			Capability: schema.CapabilityDecode,
			Subject:    a.Name,
			Message:    "no reachable ancestor initializer to chain to",
			Pos:        t.Pos,
		})
		return false
	}
	if !init.Designated {
		rep.Report(Diagnostic{
			Code:       CodeAncestorInitializerNotDesignated,
			Severity:   SeverityError,
			TypeName:   t.Name,
			Capability: schema.CapabilityDecode,
			Subject:    a.Name,
			Message:    "ancestor initializer is not the designated one",
			Pos:        t.Pos,
		})
		return false
	}
	if !init.Accessible {
		rep.Report(Diagnostic{
			Code:       CodeAncestorInitializerInaccessible,
			Severity:   SeverityError,
			TypeName:   t.Name,
			Capability: schema.CapabilityDecode,
			Subject:    a.Name,
			Message:    "ancestor initializer is inaccessible from the derived body",
			Pos:        t.Pos,
		})
		return false
	}
	if !a.Decodes && init.Failable {
		rep.Report(Diagnostic{
			Code:       CodeAncestorInitializerIsFailable,
			Severity:   SeverityError,
			TypeName:   t.Name,
			Capability: schema.CapabilityDecode,
			Subject:    a.Name,
			Message:    "ancestor initializer is failable; the derived decode body is not",
			Pos:        t.Pos,
		})
		return false
	}
	return true
}
