// Package store provides durable storage for derivation runs: the plans a
// run produced, content-addressed by their canonical form, and every
// diagnostic the run reported, in report order.
//
// The store is SQLite in WAL mode with a single writer. Plan rows are
// idempotent (ON CONFLICT DO NOTHING on the content hash); re-deriving an
// unchanged definition file adds a run row but no new plan rows.
package store
