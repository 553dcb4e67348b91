// Package fetcher implements the Cluster Fetcher (spec.md §4.7): given a
// ClusterDiscovery and a coordinator.LockWatcher, it probes every
// discovered agent and persists Agent/AgentInfo/Node/Shard records,
// emitting events as state changes, and aborts cleanly (no error) the
// moment the lock is observed lost.
//
// Grounded on original_source/data/fetcher/src/{lib.rs,shard.rs}: the
// per-node sequence (agent info → node identity → shards → persist
// agent last), the never-abort-on-remote-error policy, and the
// identity-checker set-once/verify-after pattern are all carried over.
package fetcher
