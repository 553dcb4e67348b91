package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/replicante-io/replicore/internal/config"
)

func TestDefaultsMatchSpecValues(t *testing.T) {
	cfg := config.Defaults()
	require.Equal(t, uint32(60), cfg.Events.Snapshots.Frequency)
	require.Equal(t, 3, cfg.Tasks.ClusterRefresh.Retries)
	require.Equal(t, 10*time.Second, cfg.Tasks.ClusterRefresh.RetryDelay)
	require.Equal(t, 10*time.Second, cfg.Timeouts.AgentsAPI)
	require.True(t, cfg.TaskWorkers.ClusterRefresh)
}

func TestLoadOverridesDefaultsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "replicante.yaml")
	contents := []byte("discovery:\n  interval: 5\ntasks:\n  backend: kafka\n  brokers: [\"kafka-1:9092\"]\n")
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, uint32(5), cfg.Discovery.Interval)
	require.Equal(t, "kafka", cfg.Tasks.Backend)
	require.Equal(t, []string{"kafka-1:9092"}, cfg.Tasks.Brokers)
	// Untouched keys keep their defaults.
	require.Equal(t, uint32(60), cfg.Events.Snapshots.Frequency)
}
