// Package coordinator implements the distributed coordination primitives
// the refresh pipeline is built on: non-blocking named locks with
// liveness watchers, a membership registry of control-plane nodes, and
// the lazy admin iterators repliadm validate drives (spec.md §4.1).
//
// # Architecture
//
//	┌────────────────────────────────────────────┐
//	│                Coordinator                   │
//	├────────────────────────────────────────────┤
//	│  RegisterNode(NodeID) -> Session             │
//	│    /nodes/<prefix2>/<uuid>  (ephemeral)      │
//	│                                              │
//	│  NonBlockingLock(name, owner) -> Lock         │
//	│    /locks/<prefix2>/<name>  (ephemeral)       │
//	│    Lock.Acquire / Watch / Release             │
//	│                                              │
//	│  Admin                                       │
//	│    NonBlockingLocks() -> iterator of Lock     │
//	│    Nodes() -> iterator of NodeID              │
//	│    ForceRelease(name) -> Unimplemented        │
//	└────────────────────────────────────────────┘
//
// Two backends are provided: a ZooKeeper-backed implementation
// (zookeeper.go, using github.com/samuel/go-zookeeper/zk — the
// reference backend per spec.md §4.1) and an in-memory implementation
// (memory.go) used by tests and single-node dev mode. Both implement
// the Coordinator interface, so the rest of the pipeline (fetcher,
// aggregator, refresh handler) never imports a concrete backend.
//
// # Key layout
//
// Both the lock namespace and the node namespace fan out into 256
// two-hex-character prefix buckets (spec.md §4.1: "two-level prefix
// fan-out to prevent flat directory growth"): a znode's path is
// /<root>/<prefix2(name)>/<name>, where prefix2 is a deterministic,
// back-end-independent function of name (hash.go). This mirrors
// original_source/coordinator/src/backend/zookeeper/admin/lock.rs,
// which fixes the prefix to the first two hex characters of a hash of
// the lock name.
//
// # Cleaner
//
// A background goroutine (Cleaner, in cleaner.go) scans the node
// registry on a jittered interval and removes ephemeral registrations
// whose znode has no remaining children and whose version has not
// changed since it was listed (i.e. nothing registered a reservation
// against it between list and delete). It is bounded by a per-cycle
// deletion limit and treats NoNode/NotEmpty errors as races to be
// ignored, bumping a counter only on OperationTimeout.
package coordinator
