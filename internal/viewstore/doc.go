// Package viewstore implements the View Store (spec.md §4.4): a derived,
// read-optimised store for events and action transition history. Persist
// operations are idempotent on their natural key so replays of the same
// event or action transition never duplicate a row, mirroring
// original_source/store/view/src/store/persist.rs.
//
// The view store is deliberately narrower than the Primary Store: it
// only ever receives data, never originates mark-stale or lock-adjacent
// semantics. Two backends are provided: an in-memory backend for tests,
// and a MongoDB backend sharing the driver wiring of internal/store.
package viewstore
