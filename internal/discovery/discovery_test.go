package discovery_test

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/discovery"
	"github.com/replicante-io/replicore/internal/rcmodel"
	"github.com/replicante-io/replicore/internal/store"
	"github.com/replicante-io/replicore/internal/tasks"
	"github.com/replicante-io/replicore/internal/upkeep"
)

type testQueue struct{}

func (testQueue) Name() string             { return "cluster_refresh" }
func (testQueue) MaxRetryCount() int       { return 3 }
func (testQueue) RetryDelay() time.Duration { return 10 * time.Second }

type fakeBackend struct {
	discoveries map[string]rcmodel.ClusterDiscovery
}

func (b fakeBackend) Discover(_ context.Context, settings rcmodel.DiscoverySettings) iter.Seq2[rcmodel.ClusterDiscovery, error] {
	return func(yield func(rcmodel.ClusterDiscovery, error) bool) {
		disc, ok := b.discoveries[settings.Namespace]
		if !ok {
			return
		}
		yield(disc, nil)
	}
}

func TestComponentEnqueuesRefreshForDueNamespace(t *testing.T) {
	ctx := context.Background()
	primary := store.NewMemoryStore().(interface {
		store.Store
		PutDiscoverySettings(rcmodel.DiscoverySettings)
	})
	primary.PutDiscoverySettings(rcmodel.DiscoverySettings{
		Namespace: "ns1",
		NextRun:   time.Now().Add(-time.Minute),
		Interval:  time.Hour,
	})

	backend := fakeBackend{discoveries: map[string]rcmodel.ClusterDiscovery{
		"ns1": {ClusterID: "c1", DisplayName: "C1", Nodes: []string{"http://agent-1"}},
	}}

	producer, workers := tasks.NewMemoryBroker(zap.NewNop())
	queue := testQueue{}

	received := make(chan rcmodel.ClusterRefreshPayload, 1)
	require.NoError(t, workers.Worker(queue, 1, func(ctx context.Context, task tasks.Task) {
		var payload rcmodel.ClusterRefreshPayload
		require.NoError(t, task.Deserialize(&payload))
		require.NoError(t, task.Success(ctx))
		received <- payload
	}))

	workersCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	go func() { _ = workers.Run(workersCtx) }()

	comp := discovery.New(zap.NewNop(), backend, primary, producer, queue, time.Hour)
	up := upkeep.New(zap.NewNop())
	comp.Run(up)
	defer up.Shutdown()

	select {
	case payload := <-received:
		require.Equal(t, "c1", payload.Cluster.ClusterID)
	case <-time.After(time.Second):
		t.Fatal("expected ClusterRefresh task to be enqueued")
	}

	stored, err := primary.Cluster("", "c1").Discovery(ctx)
	require.NoError(t, err)
	require.Equal(t, "C1", stored.DisplayName)
}

func TestComponentSkipsNamespacesNotYetDue(t *testing.T) {
	primary := store.NewMemoryStore().(interface {
		store.Store
		PutDiscoverySettings(rcmodel.DiscoverySettings)
	})
	primary.PutDiscoverySettings(rcmodel.DiscoverySettings{
		Namespace: "ns1",
		NextRun:   time.Now().Add(time.Hour),
		Interval:  time.Hour,
	})

	backend := fakeBackend{discoveries: map[string]rcmodel.ClusterDiscovery{
		"ns1": {ClusterID: "c1", Nodes: []string{"http://agent-1"}},
	}}
	producer, _ := tasks.NewMemoryBroker(zap.NewNop())
	queue := testQueue{}

	comp := discovery.New(zap.NewNop(), backend, primary, producer, queue, time.Hour)
	up := upkeep.New(zap.NewNop())
	comp.Run(up)
	defer up.Shutdown()

	time.Sleep(50 * time.Millisecond)
	_, err := primary.Cluster("", "c1").Discovery(context.Background())
	require.Error(t, err)
}
