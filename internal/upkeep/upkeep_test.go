package upkeep_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/upkeep"
)

func TestSpawnedThreadStopsOnShutdown(t *testing.T) {
	u := upkeep.New(zap.NewNop())
	stopped := make(chan struct{})
	u.Spawn("test-thread", func(shutdown <-chan struct{}) {
		<-shutdown
		close(stopped)
	})

	u.Shutdown()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("thread did not observe shutdown")
	}
	u.Wait()
}

func TestShutdownIsIdempotent(t *testing.T) {
	u := upkeep.New(zap.NewNop())
	require.NotPanics(t, func() {
		u.Shutdown()
		u.Shutdown()
	})
}

func TestFatalSetsNonZeroExitCode(t *testing.T) {
	u := upkeep.New(zap.NewNop())
	require.Equal(t, 0, u.ExitCode())
	u.Fatal("poisoned mutex")
	require.Equal(t, 1, u.ExitCode())

	select {
	case <-u.Keepalive():
	default:
		t.Fatal("Fatal did not trigger shutdown")
	}
}
