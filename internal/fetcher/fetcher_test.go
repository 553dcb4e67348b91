package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/coordinator"
	"github.com/replicante-io/replicore/internal/eventstream"
	"github.com/replicante-io/replicore/internal/fetcher"
	"github.com/replicante-io/replicore/internal/rcmodel"
	"github.com/replicante-io/replicore/internal/store"
)

func fakeAgent(t *testing.T, clusterID, nodeID string, shards []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/info", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version_info": "6.0.1", "checkout": "abc123"}`))
	})
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cluster_id": "` + clusterID + `", "display_name": "demo", "kind": "mongodb", "node_id": "` + nodeID + `", "version": "6.0.1"}`))
	})
	mux.HandleFunc("/api/v1/shards", func(w http.ResponseWriter, r *http.Request) {
		body := `{"shards": [`
		for i, id := range shards {
			if i > 0 {
				body += ","
			}
			role := "SECONDARY"
			if i == 0 {
				role = "PRIMARY"
			}
			body += `{"shard_id": "` + id + `", "role": "` + role + `", "commit_offset": 10}`
		}
		body += `]}`
		_, _ = w.Write([]byte(body))
	})
	return httptest.NewServer(mux)
}

func TestFetchPersistsAgentNodeAndShards(t *testing.T) {
	ctx := context.Background()
	primary := store.NewMemoryStore()
	events := eventstream.NewStoreBacked(eventstream.NewMemoryBackend())
	f := fetcher.New(zap.NewNop(), primary, events, time.Second)

	server := fakeAgent(t, "cluster-1", "node-1", []string{"shard-0", "shard-1"})
	defer server.Close()

	discovery := rcmodel.ClusterDiscovery{
		ClusterID:   "cluster-1",
		DisplayName: "demo",
		Nodes:       []rcmodel.AgentTarget{server.URL},
	}

	lock := coordinator.NewMemoryCoordinator("/replicante").NonBlockingLock("cluster-1", rcmodel.NewNodeID("test-node"))
	_, err := lock.Acquire(ctx)
	require.NoError(t, err)

	require.NoError(t, f.Fetch(ctx, "default", discovery, lock.Watch()))

	agent, err := primary.Agent("cluster-1", server.URL).Get(ctx)
	require.NoError(t, err)
	require.True(t, agent.Status.IsUp())

	node, err := primary.Node("cluster-1", "node-1").Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "mongodb", node.Kind)
	require.False(t, node.Stale)

	counts, err := primary.Shards("cluster-1").Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, counts.Shards)
	require.Equal(t, 1, counts.Primaries)
}

func TestFetchStopsWhenLockIsLost(t *testing.T) {
	ctx := context.Background()
	primary := store.NewMemoryStore()
	events := eventstream.NewStoreBacked(eventstream.NewMemoryBackend())
	f := fetcher.New(zap.NewNop(), primary, events, time.Second)

	server := fakeAgent(t, "cluster-2", "node-1", []string{"shard-0"})
	defer server.Close()

	discovery := rcmodel.ClusterDiscovery{
		ClusterID: "cluster-2",
		Nodes:     []rcmodel.AgentTarget{server.URL, server.URL},
	}

	lockA := coordinator.NewMemoryCoordinator("/replicante").NonBlockingLock("cluster-2", rcmodel.NewNodeID("test-node"))
	watcher := lockA.Watch() // never acquired: Inspect() is false from the start

	require.NoError(t, f.Fetch(ctx, "default", discovery, watcher))

	_, err := primary.Node("cluster-2", "node-1").Get(ctx)
	require.Error(t, err)
}

func TestFetchClassifiesUnreachableAgentAsDown(t *testing.T) {
	ctx := context.Background()
	primary := store.NewMemoryStore()
	events := eventstream.NewStoreBacked(eventstream.NewMemoryBackend())
	f := fetcher.New(zap.NewNop(), primary, events, 100*time.Millisecond)

	discovery := rcmodel.ClusterDiscovery{
		ClusterID: "cluster-3",
		Nodes:     []rcmodel.AgentTarget{"http://127.0.0.1:1"},
	}

	lock := coordinator.NewMemoryCoordinator("/replicante").NonBlockingLock("cluster-3", rcmodel.NewNodeID("test-node"))
	_, err := lock.Acquire(ctx)
	require.NoError(t, err)

	require.NoError(t, f.Fetch(ctx, "default", discovery, lock.Watch()))

	agent, err := primary.Agent("cluster-3", "http://127.0.0.1:1").Get(ctx)
	require.NoError(t, err)
	require.Equal(t, rcmodel.AgentStatusAgentDown, agent.Status.Kind)
}
