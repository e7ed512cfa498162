package typedef

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/keyplan/keyplan/internal/schema"
)

// Compile parses the top-level "types" struct of a CUE value and registers
// every type into a fresh registry. Registration happens in declaration
// order; ancestor links are resolved in a second pass so a parent may be
// declared after its child.
func Compile(v cue.Value) (*schema.Registry, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, &CompileError{
			Field:   "types",
			Message: "top-level types struct is required",
			Pos:     v.Pos(),
		}
	}

	reg := schema.NewRegistry()

	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		typ, err := compileType(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		if _, err := reg.Register(typ); err != nil {
			return nil, &CompileError{
				Field:   "types." + typ.Name,
				Message: err.Error(),
				Pos:     cuePos(iter.Value()),
			}
		}
	}

	if err := linkAncestors(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// CompileSource compiles a CUE source string. Used by tests and the
// single-file CLI path.
func CompileSource(src string) (*schema.Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	return Compile(v)
}

func compileType(name string, v cue.Value) (*schema.Type, error) {
	typ := &schema.Type{Name: name, Pos: schemaPos(v)}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return nil, &CompileError{
			Field:   "types." + name + ".kind",
			Message: "kind is required",
			Pos:     cuePos(v),
		}
	}
	kind, err := kindVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	switch kind {
	case "record":
		typ.Kind = schema.KindRecord
	case "union":
		typ.Kind = schema.KindUnion
	default:
		return nil, &CompileError{
			Field:   "types." + name + ".kind",
			Message: fmt.Sprintf("kind must be \"record\" or \"union\", got %q", kind),
			Pos:     cuePos(kindVal),
		}
	}

	typ.Derives, err = parseDerives(name, v)
	if err != nil {
		return nil, err
	}

	switch typ.Kind {
	case schema.KindRecord:
		typ.Members, err = parseMembers(name, v)
		if err != nil {
			return nil, err
		}
		typ.Ancestor, err = parseAncestor(name, v)
		if err != nil {
			return nil, err
		}
		if v.LookupPath(cue.ParsePath("variants")).Exists() {
			return nil, &CompileError{
				Field:   "types." + name + ".variants",
				Message: "a record has members, not variants",
				Pos:     cuePos(v),
			}
		}
	case schema.KindUnion:
		typ.Variants, err = parseVariants(name, v)
		if err != nil {
			return nil, err
		}
		if v.LookupPath(cue.ParsePath("members")).Exists() {
			return nil, &CompileError{
				Field:   "types." + name + ".members",
				Message: "a union has variants, not members",
				Pos:     cuePos(v),
			}
		}
		if v.LookupPath(cue.ParsePath("ancestor")).Exists() {
			return nil, &CompileError{
				Field:   "types." + name + ".ancestor",
				Message: "unions have no ancestor",
				Pos:     cuePos(v),
			}
		}
	}

	typ.DeclaredKeys, err = parseDeclaredKeys("types."+name, v)
	if err != nil {
		return nil, err
	}
	return typ, nil
}

// parseDerives reads the capability list. Absent means both capabilities;
// an empty list is rejected since such a type has no reason to exist.
func parseDerives(name string, v cue.Value) (schema.Caps, error) {
	dVal := v.LookupPath(cue.ParsePath("derives"))
	if !dVal.Exists() {
		return schema.CapsBoth, nil
	}

	iter, err := dVal.List()
	if err != nil {
		return schema.CapsNone, formatCUEError(err)
	}

	caps := schema.CapsNone
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return schema.CapsNone, formatCUEError(err)
		}
		switch s {
		case "encode":
			caps = caps.With(schema.CapabilityEncode)
		case "decode":
			caps = caps.With(schema.CapabilityDecode)
		default:
			return schema.CapsNone, &CompileError{
				Field:   "types." + name + ".derives",
				Message: fmt.Sprintf("unknown capability %q", s),
				Pos:     cuePos(dVal),
			}
		}
	}
	if caps == schema.CapsNone {
		return schema.CapsNone, &CompileError{
			Field:   "types." + name + ".derives",
			Message: "derives must name at least one capability",
			Pos:     cuePos(dVal),
		}
	}
	return caps, nil
}

func parseMembers(name string, v cue.Value) ([]schema.Member, error) {
	mVal := v.LookupPath(cue.ParsePath("members"))
	if !mVal.Exists() {
		return nil, nil
	}

	iter, err := mVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var members []schema.Member
	for iter.Next() {
		field := "types." + name + ".members." + iter.Label()
		mv := iter.Value()

		typeName, err := requiredString(field+".type", mv, "type")
		if err != nil {
			return nil, err
		}
		m := schema.Member{
			Name:     iter.Label(),
			TypeName: typeName,
			Pos:      schemaPos(mv),
		}
		if m.Optional, err = optionalBool(mv, "optional"); err != nil {
			return nil, err
		}
		if m.HasDefault, err = optionalBool(mv, "default"); err != nil {
			return nil, err
		}
		if m.HasInitialValue, err = optionalBool(mv, "initial"); err != nil {
			return nil, err
		}
		if m.Immutable, err = optionalBool(mv, "immutable"); err != nil {
			return nil, err
		}
		if m.Hidden, err = optionalBool(mv, "hidden"); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func parseVariants(name string, v cue.Value) ([]schema.Variant, error) {
	vVal := v.LookupPath(cue.ParsePath("variants"))
	if !vVal.Exists() {
		return nil, nil
	}

	iter, err := vVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var variants []schema.Variant
	for iter.Next() {
		field := "types." + name + ".variants." + iter.Label()
		vv := iter.Value()

		variant := schema.Variant{Name: iter.Label(), Pos: schemaPos(vv)}
		variant.Payload, err = parsePayload(field, vv)
		if err != nil {
			return nil, err
		}
		variant.DeclaredKeys, err = parseDeclaredKeys(field, vv)
		if err != nil {
			return nil, err
		}
		variants = append(variants, variant)
	}
	return variants, nil
}

// parsePayload reads a variant's ordered parameter list. Payload is a CUE
// list, not a struct, so positional parameters keep their order and may
// omit the label entirely.
func parsePayload(field string, v cue.Value) ([]schema.Param, error) {
	pVal := v.LookupPath(cue.ParsePath("payload"))
	if !pVal.Exists() {
		return nil, nil
	}

	iter, err := pVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var params []schema.Param
	for i := 0; iter.Next(); i++ {
		pv := iter.Value()
		typeName, err := requiredString(fmt.Sprintf("%s.payload[%d].type", field, i), pv, "type")
		if err != nil {
			return nil, err
		}
		p := schema.Param{TypeName: typeName, Pos: schemaPos(pv)}

		labelVal := pv.LookupPath(cue.ParsePath("label"))
		if labelVal.Exists() {
			if p.Label, err = labelVal.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if p.Optional, err = optionalBool(pv, "optional"); err != nil {
			return nil, err
		}
		if p.HasDefault, err = optionalBool(pv, "default"); err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

// parseDeclaredKeys reads an explicit key enumeration. The "keys" field is
// passed through structurally: contract violations (duplicates and the
// like) are derivation diagnostics, not compile errors, so the engine can
// report them per capability.
func parseDeclaredKeys(field string, v cue.Value) (*schema.DeclaredKeys, error) {
	kVal := v.LookupPath(cue.ParsePath("keys"))
	if !kVal.Exists() {
		return nil, nil
	}

	dk := &schema.DeclaredKeys{Pos: schemaPos(kVal)}

	if kVal.IncompleteKind() != cue.ListKind {
		dk.NotAnEnum = true
		return dk, nil
	}
	iter, err := kVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field + ".keys",
				Message: "keys must be a list of identifiers",
				Pos:     cuePos(iter.Value()),
			}
		}
		dk.Names = append(dk.Names, s)
	}
	return dk, nil
}

func parseAncestor(name string, v cue.Value) (*schema.Ancestor, error) {
	aVal := v.LookupPath(cue.ParsePath("ancestor"))
	if !aVal.Exists() {
		return nil, nil
	}

	typeName, err := requiredString("types."+name+".ancestor.type", aVal, "type")
	if err != nil {
		return nil, err
	}
	a := &schema.Ancestor{Name: typeName}

	// Explicit capability flags describe an ancestor external to the
	// compilation unit; for in-unit ancestors linkAncestors derives them
	// from the parent's declaration.
	if a.Encodes, err = optionalBool(aVal, "encodes"); err != nil {
		return nil, err
	}
	if a.Decodes, err = optionalBool(aVal, "decodes"); err != nil {
		return nil, err
	}

	initVal := aVal.LookupPath(cue.ParsePath("init"))
	if initVal.Exists() {
		a.Init.Exists = true
		if a.Init.Designated, err = optionalBool(initVal, "designated"); err != nil {
			return nil, err
		}
		if a.Init.Accessible, err = optionalBool(initVal, "accessible"); err != nil {
			return nil, err
		}
		if a.Init.Failable, err = optionalBool(initVal, "failable"); err != nil {
			return nil, err
		}
		if a.Init.Throws, err = optionalBool(initVal, "throws"); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// linkAncestors resolves ancestor names to registry handles. An in-unit
// ancestor contributes its derived capabilities and a plain reachable
// initializer; an unknown name stays an external ancestor with whatever
// the declaration stated.
func linkAncestors(reg *schema.Registry) error {
	for _, t := range reg.Types() {
		a := t.Ancestor
		if a == nil {
			continue
		}
		parent, ok := reg.LookupName(a.Name)
		if !ok {
			continue
		}
		if parent.Kind != schema.KindRecord {
			return &CompileError{
				Field:   "types." + t.Name + ".ancestor",
				Message: fmt.Sprintf("ancestor %s is not a record", a.Name),
				Pos:     token.NoPos,
			}
		}
		a.Type = parent.ID
		a.Encodes = parent.Derives.Has(schema.CapabilityEncode)
		a.Decodes = parent.Derives.Has(schema.CapabilityDecode)
		a.Init = schema.AncestorInit{Exists: true, Designated: true, Accessible: true}
	}
	return nil
}

func requiredString(field string, v cue.Value, path string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: path + " is required",
			Pos:     cuePos(v),
		}
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, path string) (bool, error) {
	bv := v.LookupPath(cue.ParsePath(path))
	if !bv.Exists() {
		return false, nil
	}
	b, err := bv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func cuePos(v cue.Value) token.Pos { return v.Pos() }

func schemaPos(v cue.Value) schema.Pos {
	p := v.Pos()
	if !p.IsValid() {
		return schema.Pos{}
	}
	return schema.Pos{File: p.Filename(), Line: p.Line(), Col: p.Column()}
}

// CompileError is a definition-file error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
