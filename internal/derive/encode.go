package derive

import (
	"fmt"

	"github.com/keyplan/keyplan/internal/plan"
	"github.com/keyplan/keyplan/internal/schema"
)

// buildRecordEncode emits the encode body for a Record: one keyed container
// scoped to the enumeration, one encode step per key in stored order, and a
// trailing ancestor encode through a derived sub-container when the
// ancestor already encodes.
func buildRecordEncode(t *schema.Type, e *KeyEnumeration) *plan.Body {
	steps := []plan.Step{plan.AcquireContainer{Keys: e.Names()}}

	for _, k := range e.Keys {
		if k.Reserved {
			continue
		}
		// Validation guarantees the member exists.
		m, _ := t.MemberNamed(k.Name)
		steps = append(steps, plan.EncodeField{
			Key:       k.Name,
			Member:    m.Name,
			IfPresent: m.Optional,
		})
	}

	if t.Ancestor.Supports(schema.CapabilityEncode) {
		steps = append(steps, plan.EncodeAncestor{Key: e.AncestorKey()})
	}

	return &plan.Body{TypeName: t.Name, Capability: schema.CapabilityEncode, Steps: steps}
}

// buildUnionEncode emits the encode body for a Union: one keyed container,
// then one branch per variant in declaration order. A variant absent from
// the enumeration encodes as an unconditional failure; a present variant
// writes its keyed payload parameters into a nested container, silently
// omitting parameters without a key.
func buildUnionEncode(t *schema.Type, e *KeyEnumeration, variantKeys func(schema.Variant) *VariantKeyEnumeration) *plan.Body {
	sw := plan.Switch{Subject: plan.SwitchOnValue}

	for _, v := range t.Variants {
		k, ok := e.Lookup(v.Name)
		if !ok {
			sw.Cases = append(sw.Cases, plan.Case{
				Variant: v.Name,
				Steps: []plan.Step{plan.FailUnrepresentable{
					Variant: v.Name,
					Message: fmt.Sprintf("variant '%s' cannot be encoded because it is not defined in the key set", v.Name),
				}},
			})
			continue
		}

		ve := variantKeys(v)
		caseSteps := []plan.Step{plan.AcquireNested{Key: k.Name, Keys: ve.Names()}}
		for i, p := range v.Payload {
			name := p.CodingName(i)
			if _, keyed := ve.Lookup(name); !keyed {
				continue
			}
			caseSteps = append(caseSteps, plan.EncodeParam{
				Key:       name,
				Param:     name,
				IfPresent: p.Optional,
			})
		}
		sw.Cases = append(sw.Cases, plan.Case{Variant: v.Name, Key: k.Name, Steps: caseSteps})
	}

	steps := []plan.Step{plan.AcquireContainer{Keys: e.Names()}, sw}
	return &plan.Body{TypeName: t.Name, Capability: schema.CapabilityEncode, Steps: steps}
}
