// Package store implements the Primary Store (spec.md §4.3): typed CRUD
// access to cluster/agent/node/shard/action state, exposed as a set of
// narrow sub-interfaces rather than one flat API, mirroring
// original_source/store/primary/src/backend/mod.rs.
//
// # Handles
//
//	Store
//	 ├─ Cluster(ns, clusterID)   -> Discovery / MarkStale / Settings
//	 ├─ Agent(clusterID, host)   -> Get / Info
//	 ├─ Agents(clusterID)        -> Iter / IterInfo / Counts
//	 ├─ Node(clusterID, nodeID)  -> Get
//	 ├─ Nodes(clusterID)         -> Iter / Kinds
//	 ├─ Shard(clusterID,node,id) -> Get
//	 ├─ Shards(clusterID)        -> Iter / Counts (deduplicated by shard_id)
//	 ├─ Persist()                -> Agent / AgentInfo / ClusterDiscovery / Node / Shard / Action
//	 ├─ Legacy()                 -> cluster meta find/top, event scan/append
//	 ├─ GlobalSearch()           -> DiscoveriesToRun cursor
//	 └─ Actions()                -> IterLost / MarkLost
//
// Persist.* is upsert-by-natural-key: replace if present, insert
// otherwise. Cluster.MarkStale sets a boolean on every AgentInfo/Node/
// Shard record of the cluster; any subsequent Persist.* call on a
// matching natural key clears the flag for that record only (spec.md
// §4.3, §3 Lifecycle).
//
// Two backends are provided: an in-memory backend (memory.go) used by
// tests and as the default store when storage.primary.backend is
// "memory" or unset, and a
// MongoDB backend (mongo.go, go.mongodb.org/mongo-driver) matching
// original_source/store/primary/src/backend/mongo/*.
package store
