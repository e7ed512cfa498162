// Package schema provides the structural model of user-defined types that
// keyplan derives keyed-codec plans for.
//
// This package contains type definitions and the read-only accessor surface
// only. All other internal packages import schema; schema imports nothing
// internal. This ensures the model remains the foundational layer with no
// circular dependencies.
//
// Key design constraints:
//   - Types are immutable once registered; derivation never mutates them
//   - Cross-references (ancestor links) are TypeID handles into a Registry,
//     never raw pointers
//   - Positional payload parameters are addressed by synthesized _0, _1, ...
//     identifiers
package schema
