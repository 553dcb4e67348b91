package aggregator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/aggregator"
	"github.com/replicante-io/replicore/internal/coordinator"
	"github.com/replicante-io/replicore/internal/rcmodel"
	"github.com/replicante-io/replicore/internal/store"
)

func TestAggregateCountsDistinctNodesAndKinds(t *testing.T) {
	ctx := context.Background()
	primary := store.NewMemoryStore()

	discovery := rcmodel.ClusterDiscovery{ClusterID: "c1", DisplayName: "Cluster One"}
	require.NoError(t, primary.Persist().ClusterDiscovery(ctx, discovery))
	require.NoError(t, primary.Persist().Node(ctx, rcmodel.Node{ClusterID: "c1", NodeID: "n1", Kind: "mongodb"}))
	require.NoError(t, primary.Persist().Node(ctx, rcmodel.Node{ClusterID: "c1", NodeID: "n2", Kind: "mongodb"}))
	require.NoError(t, primary.Persist().Node(ctx, rcmodel.Node{ClusterID: "c1", NodeID: "n3", Kind: "postgresql"}))

	lock := coordinator.NewMemoryCoordinator("/replicante").NonBlockingLock("c1", rcmodel.NewNodeID("test-node"))
	_, err := lock.Acquire(ctx)
	require.NoError(t, err)

	agg := aggregator.New(zap.NewNop(), primary)
	require.NoError(t, agg.Aggregate(ctx, discovery, lock.Watch()))

	meta, err := primary.Legacy().ClusterMetaFind(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "Cluster One", meta.DisplayName)
	require.Equal(t, 3, meta.Nodes)
	require.Equal(t, []string{"mongodb", "postgresql"}, meta.Kinds)
}

func TestAggregateSkipsWriteWhenLockLost(t *testing.T) {
	ctx := context.Background()
	primary := store.NewMemoryStore()
	require.NoError(t, primary.Persist().ClusterDiscovery(ctx, rcmodel.ClusterDiscovery{ClusterID: "c2"}))

	lock := coordinator.NewMemoryCoordinator("/replicante").NonBlockingLock("c2", rcmodel.NewNodeID("test-node"))
	watcher := lock.Watch() // never acquired

	agg := aggregator.New(zap.NewNop(), primary)
	require.NoError(t, agg.Aggregate(ctx, rcmodel.ClusterDiscovery{ClusterID: "c2"}, watcher))

	_, err := primary.Legacy().ClusterMetaFind(ctx, "c2")
	require.Error(t, err)
}
