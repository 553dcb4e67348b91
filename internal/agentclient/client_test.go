package agentclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/replicante-io/replicore/internal/agentclient"
	"github.com/replicante-io/replicore/internal/rcerror"
)

func TestInfoDecodesSuccessfulResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/info", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version_info": "6.0.1", "checkout": "abc123"}`))
	}))
	defer server.Close()

	client := agentclient.New(server.URL, time.Second)
	info, err := client.Info(context.Background())
	require.NoError(t, err)
	require.Equal(t, "6.0.1", info.VersionInfo)
	require.Equal(t, "abc123", info.Checkout)
}

func TestStatusInvalidJSONClassifiesAsAgentDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := agentclient.New(server.URL, time.Second)
	_, err := client.Status(context.Background())
	require.Error(t, err)
	kind, ok := rcerror.KindOf(err)
	require.True(t, ok)
	require.Equal(t, rcerror.AgentDown, kind)
}

func TestShardsUnreachableClassifiesAsAgentConnect(t *testing.T) {
	client := agentclient.New("http://127.0.0.1:1", 100*time.Millisecond)
	_, err := client.Shards(context.Background())
	require.Error(t, err)
	kind, ok := rcerror.KindOf(err)
	require.True(t, ok)
	require.Equal(t, rcerror.AgentConnect, kind)
}
