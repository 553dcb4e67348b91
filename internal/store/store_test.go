package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/replicante-io/replicore/internal/rcmodel"
	"github.com/replicante-io/replicore/internal/store"
)

func TestPersistAgentThenGet(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	agent := rcmodel.Agent{ClusterID: "c1", Host: "h1", Status: rcmodel.AgentStatusUpValue}
	require.NoError(t, s.Persist().Agent(ctx, agent))

	got, err := s.Agent("c1", "h1").Get(ctx)
	require.NoError(t, err)
	require.Equal(t, agent, got)
}

func TestMarkStaleThenPersistClearsFlag(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	node := rcmodel.Node{ClusterID: "c1", NodeID: "n1", Kind: "mongodb"}
	require.NoError(t, s.Persist().Node(ctx, node))

	require.NoError(t, s.Cluster("ns", "c1").MarkStale(ctx))
	staleNode, err := s.Node("c1", "n1").Get(ctx)
	require.NoError(t, err)
	require.True(t, staleNode.Stale)

	require.NoError(t, s.Persist().Node(ctx, node))
	freshNode, err := s.Node("c1", "n1").Get(ctx)
	require.NoError(t, err)
	require.False(t, freshNode.Stale)
}

func TestMarkStaleDoesNotTouchOtherClusters(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.Persist().Node(ctx, rcmodel.Node{ClusterID: "c1", NodeID: "n1"}))
	require.NoError(t, s.Persist().Node(ctx, rcmodel.Node{ClusterID: "c2", NodeID: "n1"}))

	require.NoError(t, s.Cluster("ns", "c1").MarkStale(ctx))

	c1, err := s.Node("c1", "n1").Get(ctx)
	require.NoError(t, err)
	require.True(t, c1.Stale)

	c2, err := s.Node("c2", "n1").Get(ctx)
	require.NoError(t, err)
	require.False(t, c2.Stale)
}

func TestShardsCountsDeduplicatesByShardID(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	shards := []rcmodel.Shard{
		{ClusterID: "c1", NodeID: "n1", ShardID: "s1", Role: rcmodel.ShardRolePrimary},
		{ClusterID: "c1", NodeID: "n2", ShardID: "s1", Role: rcmodel.ShardRoleSecondary},
		{ClusterID: "c1", NodeID: "n1", ShardID: "s2", Role: rcmodel.ShardRoleSecondary},
		{ClusterID: "c1", NodeID: "n2", ShardID: "s2", Role: rcmodel.ShardRolePrimary},
	}
	for _, sh := range shards {
		require.NoError(t, s.Persist().Shard(ctx, sh))
	}

	counts, err := s.Shards("c1").Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, store.ShardCounts{Shards: 2, Primaries: 2}, counts)
}

func TestAgentsCountsByStatusKind(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.Persist().Agent(ctx, rcmodel.Agent{ClusterID: "c1", Host: "h1", Status: rcmodel.AgentStatusUpValue}))
	require.NoError(t, s.Persist().Agent(ctx, rcmodel.Agent{ClusterID: "c1", Host: "h2", Status: rcmodel.AgentDown("connection refused")}))
	require.NoError(t, s.Persist().Agent(ctx, rcmodel.Agent{ClusterID: "c1", Host: "h3", Status: rcmodel.NodeDown("timeout")}))

	counts, err := s.Agents("c1").Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, store.AgentCounts{Up: 1, AgentDown: 1, NodeDown: 1}, counts)
}

func TestActionsIterLostExcludesCurrentRefreshAndUnfinished(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	now := time.Now().UTC()
	require.NoError(t, s.Persist().Action(ctx, rcmodel.ActionSyncState{NodeID: "n1", ActionID: "a-current", RefreshID: 2, Finished: now.Add(-time.Hour)}))
	require.NoError(t, s.Persist().Action(ctx, rcmodel.ActionSyncState{NodeID: "n1", ActionID: "a-lost", RefreshID: 1, Finished: now.Add(-time.Hour)}))
	require.NoError(t, s.Persist().Action(ctx, rcmodel.ActionSyncState{NodeID: "n1", ActionID: "a-unfinished", RefreshID: 1}))

	var ids []string
	for a, err := range s.Actions().IterLost(ctx, "n1", 2, now) {
		require.NoError(t, err)
		ids = append(ids, a.ActionID)
	}
	require.Equal(t, []string{"a-lost"}, ids)
}

func TestActionsMarkLostRemovesFromIterLost(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	now := time.Now().UTC()
	action := rcmodel.ActionSyncState{NodeID: "n1", ActionID: "a-lost", RefreshID: 1, Finished: now.Add(-time.Hour)}
	require.NoError(t, s.Persist().Action(ctx, action))
	require.NoError(t, s.Actions().MarkLost(ctx, action))

	var ids []string
	for a, err := range s.Actions().IterLost(ctx, "n1", 2, now) {
		require.NoError(t, err)
		ids = append(ids, a.ActionID)
	}
	require.Empty(t, ids)
}

func TestGlobalSearchDiscoveriesToRun(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore().(interface {
		store.Store
		PutDiscoverySettings(rcmodel.DiscoverySettings)
	})

	now := time.Now().UTC()
	s.PutDiscoverySettings(rcmodel.DiscoverySettings{Namespace: "due", NextRun: now.Add(-time.Minute)})
	s.PutDiscoverySettings(rcmodel.DiscoverySettings{Namespace: "future", NextRun: now.Add(time.Hour)})

	var namespaces []string
	for d, err := range s.GlobalSearch().DiscoveriesToRun(ctx, now) {
		require.NoError(t, err)
		namespaces = append(namespaces, d.Namespace)
	}
	require.Equal(t, []string{"due"}, namespaces)
}

func TestClusterMetaTopOrdersByNodeCountDescending(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.Persist().ClusterMeta(ctx, rcmodel.ClusterMeta{ClusterID: "small", Nodes: 3}))
	require.NoError(t, s.Persist().ClusterMeta(ctx, rcmodel.ClusterMeta{ClusterID: "big", Nodes: 9}))

	top, err := s.Legacy().ClusterMetaTop(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.Equal(t, "big", top[0].ClusterID)
}
