package rcerror_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/replicante-io/replicore/internal/rcerror"
)

func TestWrapPreservesKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := rcerror.Wrap(rcerror.AgentConnect, cause, "dial %s", "http://node1")

	require.Error(t, err)
	kind, ok := rcerror.KindOf(err)
	require.True(t, ok)
	require.Equal(t, rcerror.AgentConnect, kind)
}

func TestRetryableClassification(t *testing.T) {
	require.True(t, rcerror.Retryable(rcerror.New(rcerror.Coordination, "zk session lost")))
	require.True(t, rcerror.Retryable(rcerror.New(rcerror.PrimaryStoreWrite, "write failed")))
	require.False(t, rcerror.Retryable(rcerror.New(rcerror.Deserialize, "bad json")))
	require.False(t, rcerror.Retryable(rcerror.New(rcerror.Unimplemented, "force_release")))
}

func TestRetryableDefaultsTrueForForeignErrors(t *testing.T) {
	require.True(t, rcerror.Retryable(errors.New("not an rcerror")))
}

func TestKindSentinelMatchesByKindOnly(t *testing.T) {
	err := rcerror.Wrap(rcerror.Coordination, errors.New("boom"), "lock acquire failed")
	require.True(t, errors.Is(err, rcerror.KindSentinel(rcerror.Coordination)))
	require.False(t, errors.Is(err, rcerror.KindSentinel(rcerror.AgentDown)))
}
