// Package aggregator implements the Aggregator (spec.md §4.8): once a
// refresh has persisted fresh Node/Shard data for a cluster, it rebuilds
// that cluster's ClusterMeta{cluster_id, display_name, kinds, nodes} via
// an upsert on cluster_id, checking the coordinator lock watcher between
// the expensive steps so a lost lock aborts the rollup cleanly.
//
// Grounded on original_source/data/models/src/events/builder/cluster.rs
// for the ClusterMeta shape, and on internal/fetcher's lock-watcher
// polling pattern for the abort-on-lost-lock behaviour.
package aggregator
