// Package rcmodel defines the persistent data model shared by every
// component of the cluster-refresh pipeline: the coordinator, the primary
// and view stores, the event stream, the task queue, and the fetch/
// aggregate/refresh pipeline itself.
//
// Types in this package are plain data carriers. They carry JSON tags
// because every backend (the in-memory stores, the MongoDB stores, the
// Kafka task payloads) round-trips them through JSON, but the package
// itself has no storage or transport opinions: those live one layer up,
// in internal/store, internal/viewstore, internal/eventstream and
// internal/tasks.
//
// # Identifiers
//
// All identifiers (ClusterID, Host, NodeID, ShardID) are opaque strings.
// Timestamps are instants with nanosecond resolution and compare totally
// (time.Time). The constructors store the instant the caller passes in
// unchanged; they do not convert it to UTC.
package rcmodel
