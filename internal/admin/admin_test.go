package admin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/admin"
	"github.com/replicante-io/replicore/internal/config"
	"github.com/replicante-io/replicore/internal/coordinator"
	"github.com/replicante-io/replicore/internal/rcmodel"
	"github.com/replicante-io/replicore/internal/store"
	"github.com/replicante-io/replicore/internal/viewstore"
)

func TestValidateConfigWarnsOnLowDiscoveryInterval(t *testing.T) {
	cfg := config.Defaults()
	cfg.Discovery.Interval = 5
	outcomes := admin.ValidateConfig(cfg)
	require.False(t, outcomes.HasErrors())
	require.Len(t, outcomes.Warnings, 1)
}

func TestValidateConfigErrorsOnUnknownBackend(t *testing.T) {
	cfg := config.Defaults()
	cfg.Coordinator.Backend = "not-a-backend"
	outcomes := admin.ValidateConfig(cfg)
	require.True(t, outcomes.HasErrors())
}

func TestValidateCoordinatorNBlocksIsCleanOnEmptyRegistry(t *testing.T) {
	coord := coordinator.NewMemoryCoordinator("/replicante")
	outcomes := admin.ValidateCoordinatorNBlocks(context.Background(), coord.Admin())
	require.False(t, outcomes.HasErrors())
	require.Empty(t, outcomes.Errors)
}

func TestRunAllAggregatesEveryStep(t *testing.T) {
	ctx := context.Background()
	primary := store.NewMemoryStore()
	view := viewstore.NewMemoryStore()
	coord := coordinator.NewMemoryCoordinator("/replicante")
	require.NoError(t, primary.Persist().ClusterMeta(ctx, rcmodel.ClusterMeta{ClusterID: "c1", Nodes: 2}))

	outcomes := admin.RunAll(ctx, zap.NewNop(), config.Defaults(), coord, primary, view)
	require.False(t, outcomes.HasErrors())
}
