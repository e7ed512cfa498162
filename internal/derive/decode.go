package derive

import (
	"fmt"

	"github.com/keyplan/keyplan/internal/plan"
	"github.com/keyplan/keyplan/internal/schema"
)

// buildRecordDecode emits the decode body for a Record. The container is
// acquired only when the enumeration is non-empty; an empty enumeration
// decodes to an all-defaulted (or all-ancestor) value. Immutable members
// with an initial value are skipped with a warning instead of decoded.
func buildRecordDecode(t *schema.Type, e *KeyEnumeration, rep Reporter) *plan.Body {
	var steps []plan.Step

	if len(e.Keys) > 0 {
		steps = append(steps, plan.AcquireContainer{Keys: e.Names()})
		for _, k := range e.Keys {
			if k.Reserved {
				continue
			}
			m, _ := t.MemberNamed(k.Name)
			if m.ImmutableWithInitializer() {
				diagnoseUndecodedMember(t, e, m, rep)
				continue
			}
			steps = append(steps, plan.DecodeField{
				Key:       k.Name,
				Member:    m.Name,
				TypeName:  m.TypeName,
				IfPresent: m.Optional,
			})
		}
	}

	if a := t.Ancestor; a != nil {
		if a.Decodes {
			steps = append(steps, plan.DecodeAncestor{Key: e.AncestorKey()})
		} else {
			steps = append(steps, plan.InitAncestor{Propagates: a.Init.Throws})
		}
	}

	return &plan.Body{TypeName: t.Name, Capability: schema.CapabilityDecode, Steps: steps}
}

// diagnoseUndecodedMember routes the warning for an immutable member with
// an initial value whose key is present but which the decode body will
// never assign. The advice depends on whether the enumeration was implicit
// and whether encode is derived alongside:
//
//  1. implicit enumeration, encode also derived: declare the key set
//     explicitly and keep the key, so encoding stays intact
//  2. implicit enumeration, decode only: declare the key set explicitly and
//     omit the key, making the skip explicit
//  3. explicit enumeration, decode only: remove the key from the declared
//     set
//  4. explicit enumeration, encode also derived: silent; removing the key
//     would break encoding
func diagnoseUndecodedMember(t *schema.Type, e *KeyEnumeration, m schema.Member, rep Reporter) {
	implicit := e.Source == KeySynthesized
	alsoEncodes := t.Derives.Has(schema.CapabilityEncode)

	var advice string
	switch {
	case implicit && alsoEncodes:
		advice = fmt.Sprintf("declare the key set explicitly and keep %q so encoding stays intact, or make the member mutable", m.Name)
	case implicit:
		advice = fmt.Sprintf("declare the key set explicitly and omit %q to make the skip explicit, or make the member mutable", m.Name)
	case !alsoEncodes:
		advice = fmt.Sprintf("remove %q from the declared key set, or make the member mutable", m.Name)
	default:
		return
	}

	rep.Report(Diagnostic{
		Code:       CodeImmutableMemberNotDecoded,
		Severity:   SeverityWarning,
		TypeName:   t.Name,
		Capability: schema.CapabilityDecode,
		Subject:    m.Name,
		Message:    "immutable member with an initial value will not be decoded",
		Advice:     advice,
		Pos:        m.Pos,
	})
}

// buildUnionDecode emits the decode body for a Union: acquire the keyed
// container, check that exactly one key is present, then branch on that key
// with one case per variant that has a key. Variants without a key are
// omitted from the branch set entirely. Payload parameters without a
// variant key substitute their default expression (guaranteed to exist by
// validation).
func buildUnionDecode(t *schema.Type, e *KeyEnumeration, variantKeys func(schema.Variant) *VariantKeyEnumeration) *plan.Body {
	var steps []plan.Step
	if len(e.Keys) > 0 {
		steps = append(steps,
			plan.AcquireContainer{Keys: e.Names()},
			plan.GuardSingleKey{Message: "invalid number of keys found, expected one"},
		)

		sw := plan.Switch{Subject: plan.SwitchOnPresentKey}
		for _, v := range t.Variants {
			k, ok := e.Lookup(v.Name)
			if !ok {
				continue
			}

			ve := variantKeys(v)
			caseSteps := []plan.Step{plan.AcquireNested{Key: k.Name, Keys: ve.Names()}}
			params := make([]string, 0, len(v.Payload))
			for i, p := range v.Payload {
				name := p.CodingName(i)
				params = append(params, name)
				if _, keyed := ve.Lookup(name); keyed {
					caseSteps = append(caseSteps, plan.DecodeParam{
						Key:      name,
						Param:    name,
						TypeName: p.TypeName,
					})
				} else {
					caseSteps = append(caseSteps, plan.DefaultParam{Param: name})
				}
			}
			caseSteps = append(caseSteps, plan.Construct{
				Variant: v.Name,
				Params:  params,
				Labeled: len(params) > 0,
			})
			sw.Cases = append(sw.Cases, plan.Case{Variant: v.Name, Key: k.Name, Steps: caseSteps})
		}
		steps = append(steps, sw)
	}

	return &plan.Body{TypeName: t.Name, Capability: schema.CapabilityDecode, Steps: steps}
}
