package schema

import "fmt"

// TypeID is a stable handle into a Registry. Handles start at 1; the zero
// value is InvalidType.
type TypeID int32

// InvalidType is the zero TypeID.
const InvalidType TypeID = 0

// primitiveCaps lists the built-in serializable types. Primitives conform
// to both capabilities.
var primitiveCaps = map[string]Caps{
	"string": CapsBoth,
	"int":    CapsBoth,
	"bool":   CapsBoth,
	"bytes":  CapsBoth,
	"array":  CapsBoth,
	"object": CapsBoth,
}

// Registry is the arena owning every Type of one compilation unit. Types
// are registered once, addressed by TypeID afterwards, and never mutated.
type Registry struct {
	types  []*Type
	byName map[string]TypeID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]TypeID)}
}

// Register adds a type and assigns its TypeID. Duplicate names are an
// error; registration order is preserved.
func (r *Registry) Register(t *Type) (TypeID, error) {
	if t.Name == "" {
		return InvalidType, fmt.Errorf("register: type has no name")
	}
	if _, ok := r.byName[t.Name]; ok {
		return InvalidType, fmt.Errorf("register: duplicate type name %q", t.Name)
	}
	id := TypeID(len(r.types) + 1)
	t.ID = id
	r.types = append(r.types, t)
	r.byName[t.Name] = id
	return id, nil
}

// Lookup returns the type for a handle, or nil for InvalidType or an
// out-of-range handle.
func (r *Registry) Lookup(id TypeID) *Type {
	if id <= 0 || int(id) > len(r.types) {
		return nil
	}
	return r.types[id-1]
}

// LookupName returns the type registered under the given name.
func (r *Registry) LookupName(name string) (*Type, bool) {
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.Lookup(id), true
}

// Types returns all registered types in registration order.
func (r *Registry) Types() []*Type {
	return r.types
}

// Conforms reports whether a type name supports the given capability:
// primitives support both; a registered type supports what it derives; an
// unknown name supports nothing.
func (r *Registry) Conforms(typeName string, c Capability) bool {
	if caps, ok := primitiveCaps[typeName]; ok {
		return caps.Has(c)
	}
	if t, ok := r.LookupName(typeName); ok {
		return t.Derives.Has(c)
	}
	return false
}

// AncestorOf returns the ancestor link of a Record, or nil.
func (r *Registry) AncestorOf(id TypeID) *Ancestor {
	t := r.Lookup(id)
	if t == nil {
		return nil
	}
	return t.Ancestor
}
