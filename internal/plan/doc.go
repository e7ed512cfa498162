// Package plan defines the backend-agnostic intermediate form produced by
// derivation: an ordered sequence of bind/call/branch steps that a code
// emission backend lowers to executable code.
//
// This package contains step definitions, deterministic text rendering, and
// canonical serialization only. Every derivation package imports plan; plan
// imports only internal/schema. A Body is immutable once published: the
// deriver either returns a fully built Body or nothing at all.
package plan
