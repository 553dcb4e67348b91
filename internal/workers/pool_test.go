package workers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/coordinator"
	"github.com/replicante-io/replicore/internal/eventstream"
	"github.com/replicante-io/replicore/internal/rcmodel"
	"github.com/replicante-io/replicore/internal/refresh"
	"github.com/replicante-io/replicore/internal/store"
	"github.com/replicante-io/replicore/internal/tasks"
	"github.com/replicante-io/replicore/internal/upkeep"
	"github.com/replicante-io/replicore/internal/workers"
)

func TestPoolRunsRegisteredQueueAndStopsOnShutdown(t *testing.T) {
	producer, workerSet := tasks.NewMemoryBroker(zap.NewNop())
	primary := store.NewMemoryStore()
	events := eventstream.NewStoreBacked(eventstream.NewMemoryBackend())
	coord := coordinator.NewMemoryCoordinator("/replicante")
	handler := refresh.NewHandler(zap.NewNop(), coord, rcmodel.NewNodeID("test-node"), primary, events, time.Second, refresh.SnapshotSettings{}, "default")

	pool, err := workers.New(zap.NewNop(), workerSet, workers.Config{ClusterRefresh: true}, handler)
	require.NoError(t, err)

	up := upkeep.New(zap.NewNop())
	pool.Run(up)

	req, payload, err := tasks.NewClusterRefreshRequest(
		workers.ClusterRefreshQueue{},
		rcmodel.ClusterRefreshPayload{Cluster: rcmodel.ClusterDiscovery{ClusterID: "c1"}},
		nil,
	)
	require.NoError(t, err)
	require.NoError(t, producer.Request(context.Background(), req, payload))

	time.Sleep(50 * time.Millisecond)
	up.Shutdown()

	done := make(chan struct{})
	go func() { up.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool did not stop after shutdown")
	}
}

func TestPoolSkipsUnregisteredQueue(t *testing.T) {
	_, workerSet := tasks.NewMemoryBroker(zap.NewNop())
	primary := store.NewMemoryStore()
	events := eventstream.NewStoreBacked(eventstream.NewMemoryBackend())
	coord := coordinator.NewMemoryCoordinator("/replicante")
	handler := refresh.NewHandler(zap.NewNop(), coord, rcmodel.NewNodeID("test-node"), primary, events, time.Second, refresh.SnapshotSettings{}, "default")

	pool, err := workers.New(zap.NewNop(), workerSet, workers.Config{ClusterRefresh: false}, handler)
	require.NoError(t, err)
	require.NotNil(t, pool)
}
