package store

import (
	"context"
	"iter"
	"time"

	"github.com/replicante-io/replicore/internal/eventstream"
	"github.com/replicante-io/replicore/internal/rcmodel"
)

// AgentCounts tallies Agent records of a cluster by status kind.
type AgentCounts struct {
	Up        int
	AgentDown int
	NodeDown  int
}

// ShardCounts is the deduplicated-by-shard_id tally spec.md §4.3
// describes: Shards is the number of distinct shard_id values in the
// cluster, and Primaries is how many of those shard_id values have at
// least one replica in the Primary role.
type ShardCounts struct {
	Shards    int
	Primaries int
}

// ClusterHandle scopes cluster-level operations to one namespace and
// cluster_id.
type ClusterHandle interface {
	Discovery(ctx context.Context) (rcmodel.ClusterDiscovery, error)
	MarkStale(ctx context.Context) error
	Settings(ctx context.Context) (rcmodel.ClusterSettings, error)
}

// AgentHandle scopes operations to one (cluster_id, host) agent.
type AgentHandle interface {
	Get(ctx context.Context) (rcmodel.Agent, error)
	Info(ctx context.Context) (rcmodel.AgentInfo, error)
}

// AgentsHandle scopes collection operations to all agents of a cluster.
type AgentsHandle interface {
	Iter(ctx context.Context) iter.Seq2[rcmodel.Agent, error]
	IterInfo(ctx context.Context) iter.Seq2[rcmodel.AgentInfo, error]
	Counts(ctx context.Context) (AgentCounts, error)
}

// NodeHandle scopes operations to one (cluster_id, node_id) node.
type NodeHandle interface {
	Get(ctx context.Context) (rcmodel.Node, error)
}

// NodesHandle scopes collection operations to all nodes of a cluster.
type NodesHandle interface {
	Iter(ctx context.Context) iter.Seq2[rcmodel.Node, error]
	Kinds(ctx context.Context) ([]string, error)
}

// ShardHandle scopes operations to one (cluster_id, node_id, shard_id)
// shard.
type ShardHandle interface {
	Get(ctx context.Context) (rcmodel.Shard, error)
}

// ShardsHandle scopes collection operations to all shards of a cluster.
type ShardsHandle interface {
	Iter(ctx context.Context) iter.Seq2[rcmodel.Shard, error]
	Counts(ctx context.Context) (ShardCounts, error)
}

// PersistHandle is the upsert-by-natural-key write surface.
type PersistHandle interface {
	Agent(ctx context.Context, agent rcmodel.Agent) error
	AgentInfo(ctx context.Context, info rcmodel.AgentInfo) error
	ClusterDiscovery(ctx context.Context, discovery rcmodel.ClusterDiscovery) error
	Node(ctx context.Context, node rcmodel.Node) error
	Shard(ctx context.Context, shard rcmodel.Shard) error
	Action(ctx context.Context, action rcmodel.ActionSyncState) error
	ClusterMeta(ctx context.Context, meta rcmodel.ClusterMeta) error
}

// LegacyHandle groups the pre-refactor operations spec.md §4.3 still
// requires a home for: cluster meta lookups and the store-backed event
// log's append/scan, which also makes LegacyHandle satisfy
// eventstream.Backend directly.
type LegacyHandle interface {
	eventstream.Backend

	ClusterMetaFind(ctx context.Context, clusterID string) (rcmodel.ClusterMeta, error)
	ClusterMetaTop(ctx context.Context, limit int) ([]rcmodel.ClusterMeta, error)
}

// GlobalSearchHandle exposes cross-cluster cursors.
type GlobalSearchHandle interface {
	// DiscoveriesToRun lazily yields DiscoverySettings whose NextRun is
	// due as of now.
	DiscoveriesToRun(ctx context.Context, now time.Time) iter.Seq2[rcmodel.DiscoverySettings, error]
}

// ActionsHandle manages action lifecycle transitions.
type ActionsHandle interface {
	// IterLost lists actions belonging to nodeID that refreshID did not
	// touch and that finished before the given instant.
	IterLost(ctx context.Context, nodeID string, refreshID int64, finishedBefore time.Time) iter.Seq2[rcmodel.ActionSyncState, error]
	// MarkLost transitions an action to its terminal Lost state.
	MarkLost(ctx context.Context, action rcmodel.ActionSyncState) error
}

// Store is the Primary Store (spec.md §4.3).
type Store interface {
	Cluster(ns, clusterID string) ClusterHandle
	Agent(clusterID, host string) AgentHandle
	Agents(clusterID string) AgentsHandle
	Node(clusterID, nodeID string) NodeHandle
	Nodes(clusterID string) NodesHandle
	Shard(clusterID, nodeID, shardID string) ShardHandle
	Shards(clusterID string) ShardsHandle
	Persist() PersistHandle
	Legacy() LegacyHandle
	GlobalSearch() GlobalSearchHandle
	Actions() ActionsHandle

	Close(ctx context.Context) error
}
