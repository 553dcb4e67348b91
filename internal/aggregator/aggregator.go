package aggregator

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/coordinator"
	"github.com/replicante-io/replicore/internal/rcerror"
	"github.com/replicante-io/replicore/internal/rcmodel"
	"github.com/replicante-io/replicore/internal/store"
)

// Aggregator rolls up a cluster's ClusterMeta from its persisted nodes.
type Aggregator struct {
	log   *zap.Logger
	store store.Store
}

// New builds an Aggregator backed by primary.
func New(log *zap.Logger, primary store.Store) *Aggregator {
	return &Aggregator{log: log, store: primary}
}

// Aggregate rebuilds discovery's ClusterMeta from the nodes currently on
// record, checking lock between the scan and the write. Returns nil
// without writing anything if the lock is lost mid-aggregation. discovery
// is the same record the fetcher was given for this refresh, carried
// straight through rather than re-read from the store.
func (a *Aggregator) Aggregate(ctx context.Context, discovery rcmodel.ClusterDiscovery, lock coordinator.LockWatcher) error {
	clusterID := discovery.ClusterID

	if !lock.Inspect() {
		a.log.Warn("aggregator lock lost before scanning nodes", zap.String("cluster_id", clusterID))
		return nil
	}

	kindSet := make(map[string]struct{})
	nodeCount := 0
	for node, err := range a.store.Nodes(clusterID).Iter(ctx) {
		if err != nil {
			return rcerror.Wrap(rcerror.PrimaryStoreRead, err, "scan nodes for cluster %s", clusterID)
		}
		nodeCount++
		if node.Kind != "" {
			kindSet[node.Kind] = struct{}{}
		}
	}

	kinds := make([]string, 0, len(kindSet))
	for kind := range kindSet {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	if !lock.Inspect() {
		a.log.Warn("aggregator lock lost before persisting cluster meta", zap.String("cluster_id", clusterID))
		return nil
	}

	meta := rcmodel.ClusterMeta{
		ClusterID:   clusterID,
		DisplayName: discovery.DisplayName,
		Kinds:       kinds,
		Nodes:       nodeCount,
	}
	if err := a.store.Persist().ClusterMeta(ctx, meta); err != nil {
		return err
	}
	return nil
}
