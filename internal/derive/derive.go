package derive

import (
	"fmt"
	"sync"

	"github.com/keyplan/keyplan/internal/plan"
	"github.com/keyplan/keyplan/internal/schema"
)

// Deriver derives encode and decode plans for the types of one compilation
// unit. Key enumerations are created at most once per type and shared by
// both capabilities: a second derivation request observes the already
// published enumeration rather than re-running synthesis.
type Deriver struct {
	reg *schema.Registry
	rep Reporter

	mu          sync.Mutex
	typeKeys    map[schema.TypeID]*KeyEnumeration
	variantKeys map[schema.TypeID]map[string]*VariantKeyEnumeration
}

// New creates a Deriver over a registry. Diagnostics go to rep.
func New(reg *schema.Registry, rep Reporter) *Deriver {
	return &Deriver{
		reg:         reg,
		rep:         rep,
		typeKeys:    make(map[schema.TypeID]*KeyEnumeration),
		variantKeys: make(map[schema.TypeID]map[string]*VariantKeyEnumeration),
	}
}

// DeriveEncode derives the encode plan for a type. On validation failure it
// returns an AbortError; the diagnostics were delivered to the Reporter.
func (d *Deriver) DeriveEncode(id schema.TypeID) (*plan.Body, error) {
	return d.derive(id, schema.CapabilityEncode)
}

// DeriveDecode derives the decode plan for a type. On validation failure it
// returns an AbortError; the diagnostics were delivered to the Reporter.
func (d *Deriver) DeriveDecode(id schema.TypeID) (*plan.Body, error) {
	return d.derive(id, schema.CapabilityDecode)
}

// Derive dispatches on the capability.
func (d *Deriver) Derive(id schema.TypeID, c schema.Capability) (*plan.Body, error) {
	return d.derive(id, c)
}

func (d *Deriver) derive(id schema.TypeID, c schema.Capability) (*plan.Body, error) {
	t := d.reg.Lookup(id)
	if t == nil {
		return nil, fmt.Errorf("derive: unknown type handle %d", id)
	}

	e, ok := d.canSynthesize(t, c)
	if !ok {
		return nil, &AbortError{TypeName: t.Name, Capability: c}
	}

	switch {
	case t.Kind == schema.KindUnion && c == schema.CapabilityEncode:
		return buildUnionEncode(t, e, d.variantKeysFn(t)), nil
	case t.Kind == schema.KindUnion:
		return buildUnionDecode(t, e, d.variantKeysFn(t)), nil
	case c == schema.CapabilityEncode:
		return buildRecordEncode(t, e), nil
	default:
		return buildRecordDecode(t, e, d.rep), nil
	}
}

// canSynthesize runs every precondition and validation rule for one
// (type, capability) pair. It returns the resolved key enumeration and
// whether body generation may proceed. All rule violations are reported
// before returning; none is fatal to other types or the other capability.
func (d *Deriver) canSynthesize(t *schema.Type, c schema.Capability) (*KeyEnumeration, bool) {
	// Before looking up (or synthesizing) the key enumeration, the type
	// must be otherwise valid: a decoded Record with an ancestor needs an
	// initializer the generated body can chain to.
	if c == schema.CapabilityDecode && t.Kind == schema.KindRecord {
		if !checkAncestorInitializer(t, d.rep) {
			return nil, false
		}
	}

	e, ok := d.resolveTypeKeys(t, c)
	if !ok {
		return nil, false
	}

	if t.Kind == schema.KindRecord {
		if !validateRecordKeys(d.reg, t, e, c, d.rep) {
			return nil, false
		}
		return e, true
	}

	valid := validateUnionKeys(t, e, c, d.rep)
	valid = checkUnionShape(t, c, d.rep) && valid

	// Variant key enumerations exist only for variants present in the
	// type-level enumeration; an absent variant is excluded from
	// derivation entirely.
	for _, v := range t.Variants {
		if _, keyed := e.Lookup(v.Name); !keyed {
			continue
		}
		ve, ok := d.resolveVariantKeys(t, v, c)
		if !ok {
			valid = false
			continue
		}
		if !validateVariantKeys(d.reg, t, v, ve, c, d.rep) {
			valid = false
		}
	}
	if !valid {
		return nil, false
	}
	return e, true
}

// resolveTypeKeys returns the type's key enumeration, creating it at most
// once. A declared enumeration that violates the key contract is not
// cached; the violation is re-reported on each request.
func (d *Deriver) resolveTypeKeys(t *schema.Type, c schema.Capability) (*KeyEnumeration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.typeKeys[t.ID]; ok {
		return e, true
	}

	var e *KeyEnumeration
	if t.DeclaredKeys != nil {
		if !checkKeyContract(t.DeclaredKeys, t.Name, c, d.rep) {
			return nil, false
		}
		e = declaredTypeKeys(t)
	} else {
		e = synthesizeTypeKeys(t)
	}
	d.typeKeys[t.ID] = e
	return e, true
}

// resolveVariantKeys returns one variant's key enumeration, creating it at
// most once. Only called for variants present in the type-level
// enumeration.
func (d *Deriver) resolveVariantKeys(t *schema.Type, v schema.Variant, c schema.Capability) (*VariantKeyEnumeration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byVariant := d.variantKeys[t.ID]
	if byVariant == nil {
		byVariant = make(map[string]*VariantKeyEnumeration)
		d.variantKeys[t.ID] = byVariant
	}
	if e, ok := byVariant[v.Name]; ok {
		return e, true
	}

	var e *VariantKeyEnumeration
	if v.DeclaredKeys != nil {
		if !checkKeyContract(v.DeclaredKeys, t.Name, c, d.rep) {
			return nil, false
		}
		e = declaredVariantKeys(v)
	} else {
		e = synthesizeVariantKeys(v)
	}
	byVariant[v.Name] = e
	return e, true
}

// variantKeysFn exposes the memoized variant enumerations to the body
// generators. By the time a generator runs, canSynthesize has resolved
// every keyed variant.
func (d *Deriver) variantKeysFn(t *schema.Type) func(schema.Variant) *VariantKeyEnumeration {
	return func(v schema.Variant) *VariantKeyEnumeration {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.variantKeys[t.ID][v.Name]
	}
}

// KeyEnumerationFor resolves (synthesizing if needed) the key enumeration
// for a type without running capability validation. Used by inspection
// surfaces such as the CLI.
func (d *Deriver) KeyEnumerationFor(id schema.TypeID) (*KeyEnumeration, error) {
	t := d.reg.Lookup(id)
	if t == nil {
		return nil, fmt.Errorf("keys: unknown type handle %d", id)
	}
	e, ok := d.resolveTypeKeys(t, schema.CapabilityEncode)
	if !ok {
		return nil, &AbortError{TypeName: t.Name, Capability: schema.CapabilityEncode}
	}
	return e, nil
}

// VariantKeyEnumerationFor resolves one variant's key enumeration,
// provided the variant is present in the type-level enumeration.
func (d *Deriver) VariantKeyEnumerationFor(id schema.TypeID, variant string) (*VariantKeyEnumeration, error) {
	t := d.reg.Lookup(id)
	if t == nil {
		return nil, fmt.Errorf("keys: unknown type handle %d", id)
	}
	v, ok := t.VariantNamed(variant)
	if !ok {
		return nil, fmt.Errorf("keys: type %s has no variant %q", t.Name, variant)
	}
	e, err := d.KeyEnumerationFor(id)
	if err != nil {
		return nil, err
	}
	if _, keyed := e.Lookup(v.Name); !keyed {
		return nil, fmt.Errorf("keys: variant %q is not present in the key enumeration of %s", variant, t.Name)
	}
	ve, ok := d.resolveVariantKeys(t, v, schema.CapabilityEncode)
	if !ok {
		return nil, &AbortError{TypeName: t.Name, Capability: schema.CapabilityEncode}
	}
	return ve, nil
}
