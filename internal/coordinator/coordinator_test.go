package coordinator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/replicante-io/replicore/internal/coordinator"
	"github.com/replicante-io/replicore/internal/rcmodel"
)

func TestAcquireThenHeldByAnotherCaller(t *testing.T) {
	ctx := context.Background()
	coord := coordinator.NewMemoryCoordinator("/replicante")

	owner := rcmodel.NewNodeID("node-a")
	first := coord.NonBlockingLock("cluster_refresh/c1", owner)
	res, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, res.Acquired)

	second := coord.NonBlockingLock("cluster_refresh/c1", rcmodel.NewNodeID("node-b"))
	res2, err := second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, res2.Acquired)
	require.True(t, res2.Held)
	require.Equal(t, owner.UUID, res2.Owner.UUID)
}

func TestWatchMonotonicallyFalseAfterRelease(t *testing.T) {
	ctx := context.Background()
	coord := coordinator.NewMemoryCoordinator("/replicante")

	lock := coord.NonBlockingLock("cluster_refresh/c1", rcmodel.NewNodeID("node-a"))
	_, err := lock.Acquire(ctx)
	require.NoError(t, err)

	watcher := lock.Watch()
	require.True(t, watcher.Inspect())

	require.NoError(t, lock.Release(ctx))
	require.False(t, watcher.Inspect())
	// Never flips back to true.
	require.False(t, watcher.Inspect())
}

func TestReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	coord := coordinator.NewMemoryCoordinator("/replicante")
	lock := coord.NonBlockingLock("cluster_refresh/c1", rcmodel.NewNodeID("node-a"))
	_, err := lock.Acquire(ctx)
	require.NoError(t, err)

	require.NoError(t, lock.Release(ctx))
	require.NoError(t, lock.Release(ctx))
}

func TestRegisterNodeAppearsInAdminNodes(t *testing.T) {
	ctx := context.Background()
	coord := coordinator.NewMemoryCoordinator("/replicante")

	id := rcmodel.NewNodeID("test-node")
	session, err := coord.RegisterNode(ctx, id)
	require.NoError(t, err)

	found := false
	for got, err := range coord.Admin().Nodes(ctx) {
		require.NoError(t, err)
		if got.UUID == id.UUID {
			found = true
		}
	}
	require.True(t, found)

	require.NoError(t, session.Close(ctx))

	for got := range coord.Admin().Nodes(ctx) {
		require.NotEqual(t, id.UUID, got.UUID)
	}
}

func TestForceReleaseIsUnimplemented(t *testing.T) {
	ctx := context.Background()
	coord := coordinator.NewMemoryCoordinator("/replicante")
	err := coord.Admin().ForceRelease(ctx, "cluster_refresh/c1")
	require.Error(t, err)
}
