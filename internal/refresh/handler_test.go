package refresh_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/coordinator"
	"github.com/replicante-io/replicore/internal/eventstream"
	"github.com/replicante-io/replicore/internal/rcmodel"
	"github.com/replicante-io/replicore/internal/refresh"
	"github.com/replicante-io/replicore/internal/store"
)

// failingClusterHandle always fails MarkStale, simulating a primary
// store outage hit at the very start of FETCHING.
type failingClusterHandle struct{ store.ClusterHandle }

func (failingClusterHandle) MarkStale(context.Context) error {
	return errors.New("store unavailable")
}

// storeWithFailingCluster wraps a real Store but forces Cluster() to
// return a handle whose MarkStale always errors.
type storeWithFailingCluster struct{ store.Store }

func (s storeWithFailingCluster) Cluster(ns, clusterID string) store.ClusterHandle {
	return failingClusterHandle{s.Store.Cluster(ns, clusterID)}
}

type fakeTask struct {
	payload []byte
	headers map[string]string

	succeeded bool
	failed    bool
}

func (t *fakeTask) Deserialize(v interface{}) error { return json.Unmarshal(t.payload, v) }
func (t *fakeTask) Headers() map[string]string      { return t.headers }
func (t *fakeTask) Attempt() int                    { return 1 }
func (t *fakeTask) Success(context.Context) error   { t.succeeded = true; return nil }
func (t *fakeTask) Fail(context.Context) error       { t.failed = true; return nil }

func fakeAgent(t *testing.T, clusterID, nodeID string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/info", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version_info": "6.0.1", "checkout": "abc123"}`))
	})
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cluster_id": "` + clusterID + `", "display_name": "demo", "kind": "mongodb", "node_id": "` + nodeID + `", "version": "6.0.1"}`))
	})
	mux.HandleFunc("/api/v1/shards", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"shards": [{"shard_id": "s1", "role": "PRIMARY", "commit_offset": 1}]}`))
	})
	return httptest.NewServer(mux)
}

func TestHandleSuccessfulRefreshAcksSuccess(t *testing.T) {
	ctx := context.Background()
	primary := store.NewMemoryStore()
	events := eventstream.NewStoreBacked(eventstream.NewMemoryBackend())
	coord := coordinator.NewMemoryCoordinator("/replicante")

	server := fakeAgent(t, "cluster-1", "node-1")
	defer server.Close()

	handler := refresh.NewHandler(zap.NewNop(), coord, rcmodel.NewNodeID("test-node"), primary, events, time.Second, refresh.SnapshotSettings{}, "default")

	payload, err := json.Marshal(rcmodel.ClusterRefreshPayload{
		Cluster: rcmodel.ClusterDiscovery{ClusterID: "cluster-1", DisplayName: "demo", Nodes: []rcmodel.AgentTarget{server.URL}},
	})
	require.NoError(t, err)
	task := &fakeTask{payload: payload, headers: map[string]string{}}

	handler.Handle(ctx, task)

	require.True(t, task.succeeded)
	require.False(t, task.failed)

	meta, err := primary.Legacy().ClusterMetaFind(ctx, "cluster-1")
	require.NoError(t, err)
	require.Equal(t, 1, meta.Nodes)
}

func TestHandleSkipsWhenLockAlreadyHeld(t *testing.T) {
	ctx := context.Background()
	primary := store.NewMemoryStore()
	events := eventstream.NewStoreBacked(eventstream.NewMemoryBackend())
	coord := coordinator.NewMemoryCoordinator("/replicante")

	held := coord.NonBlockingLock("cluster_refresh/cluster-2", rcmodel.NewNodeID("other-node"))
	_, err := held.Acquire(ctx)
	require.NoError(t, err)

	handler := refresh.NewHandler(zap.NewNop(), coord, rcmodel.NewNodeID("test-node"), primary, events, time.Second, refresh.SnapshotSettings{}, "default")

	payload, err := json.Marshal(rcmodel.ClusterRefreshPayload{
		Cluster: rcmodel.ClusterDiscovery{ClusterID: "cluster-2"},
	})
	require.NoError(t, err)
	task := &fakeTask{payload: payload, headers: map[string]string{}}

	handler.Handle(ctx, task)

	require.True(t, task.succeeded)
	require.False(t, task.failed)
}

func TestHandleFailsTaskOnMalformedPayload(t *testing.T) {
	ctx := context.Background()
	primary := store.NewMemoryStore()
	events := eventstream.NewStoreBacked(eventstream.NewMemoryBackend())
	coord := coordinator.NewMemoryCoordinator("/replicante")

	handler := refresh.NewHandler(zap.NewNop(), coord, rcmodel.NewNodeID("test-node"), primary, events, time.Second, refresh.SnapshotSettings{}, "default")

	// Malformed payload is a deserialize failure, which must fail the task.
	task := &fakeTask{payload: []byte("not json"), headers: map[string]string{}}
	handler.Handle(ctx, task)

	require.False(t, task.succeeded)
	require.True(t, task.failed)
}

// TestHandleLeavesLockHeldOnStoreErrorDuringFetching is spec.md §8
// scenario 6: a core error out of FETCHING fails the task without ever
// attempting to release the lock, leaving it held for the session to
// expire rather than releasing it for a concurrent retry to race.
func TestHandleLeavesLockHeldOnStoreErrorDuringFetching(t *testing.T) {
	ctx := context.Background()
	primary := storeWithFailingCluster{store.NewMemoryStore()}
	events := eventstream.NewStoreBacked(eventstream.NewMemoryBackend())
	coord := coordinator.NewMemoryCoordinator("/replicante")

	handler := refresh.NewHandler(zap.NewNop(), coord, rcmodel.NewNodeID("test-node"), primary, events, time.Second, refresh.SnapshotSettings{}, "default")

	payload, err := json.Marshal(rcmodel.ClusterRefreshPayload{
		Cluster: rcmodel.ClusterDiscovery{ClusterID: "cluster-3", Nodes: []rcmodel.AgentTarget{"http://127.0.0.1:1"}},
	})
	require.NoError(t, err)
	task := &fakeTask{payload: payload, headers: map[string]string{}}

	handler.Handle(ctx, task)

	require.False(t, task.succeeded)
	require.True(t, task.failed)

	// The lock taken during LOCK_REQUEST is still held: a second
	// acquire attempt must see it as Held, not Acquired.
	res, err := coord.NonBlockingLock("cluster_refresh/cluster-3", rcmodel.NewNodeID("other-node")).Acquire(ctx)
	require.NoError(t, err)
	require.False(t, res.Acquired)
	require.True(t, res.Held)
}
