package admin

import (
	"context"

	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/config"
	"github.com/replicante-io/replicore/internal/coordinator"
	"github.com/replicante-io/replicore/internal/store"
	"github.com/replicante-io/replicore/internal/viewstore"
)

// RunAll drives every validator in spec.md §4.10's order, logging an
// intermediate report after each step (mirroring the teacher-adjacent
// Rust reference's outcomes.report(&logger) calls between sub-steps).
func RunAll(ctx context.Context, log *zap.Logger, cfg config.Config, coord coordinator.Coordinator, primary store.Store, view viewstore.ViewStore) Outcomes {
	var outcomes Outcomes

	step := func(name string, o Outcomes) {
		outcomes.Extend(o)
		log.Info("validator step complete", zap.String("check", name),
			zap.Int("errors", len(o.Errors)), zap.Int("warnings", len(o.Warnings)))
	}

	step("config", ValidateConfig(cfg))

	admin := coord.Admin()
	step("coordinator-elections", ValidateCoordinatorElections(ctx, admin))
	step("coordinator-nblocks", ValidateCoordinatorNBlocks(ctx, admin))
	step("coordinator-nodes", ValidateCoordinatorNodes(ctx, admin))

	step("primary_store_schema", ValidatePrimaryStoreSchema(ctx, primary))
	clusters, err := primary.Legacy().ClusterMetaTop(ctx, 0)
	if err != nil {
		outcomes.Error(Outcome{Check: "primary_store_data", Message: "GenericError: " + err.Error()})
	} else {
		clusterIDs := make([]string, 0, len(clusters))
		for _, meta := range clusters {
			clusterIDs = append(clusterIDs, meta.ClusterID)
		}
		step("primary_store_data", ValidatePrimaryStoreData(ctx, primary, clusterIDs))
	}

	step("view_store_schema", ValidateViewStoreSchema(ctx, view))
	step("view_store_data", ValidateViewStoreData(ctx, view))

	return outcomes
}
