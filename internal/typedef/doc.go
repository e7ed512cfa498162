// Package typedef compiles CUE type definitions into the structural model
// of internal/schema.
//
// A definition file declares its types under a top-level "types" struct:
//
//	types: Person: {
//		kind: "record"
//		derives: ["encode", "decode"]
//		members: {
//			name: {type: "string"}
//			age:  {type: "int", optional: true}
//		}
//	}
//
// The compiler is a thin structural frontend: it resolves names, shapes,
// and positions, and leaves every derivation rule to internal/derive.
package typedef
