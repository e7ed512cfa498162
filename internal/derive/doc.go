// Package derive synthesizes encode and decode plans for types described by
// internal/schema.
//
// Derivation for one (type, capability) pair runs in three stages: resolve
// the type's key enumeration (synthesizing one when none is declared,
// memoized per type so encode and decode agree on one key set), validate it
// against the member or variant set under capability-specific rules, then
// generate the plan body. Any rule violation is reported through the
// Reporter and aborts derivation for that pair only; a body is either fully
// emitted or not emitted at all.
package derive
