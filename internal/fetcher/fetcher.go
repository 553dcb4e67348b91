package fetcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/agentclient"
	"github.com/replicante-io/replicore/internal/coordinator"
	"github.com/replicante-io/replicore/internal/eventstream"
	"github.com/replicante-io/replicore/internal/rcmodel"
	"github.com/replicante-io/replicore/internal/store"
)

func newEventID() string { return uuid.NewString() }

func now() time.Time { return time.Now() }

// Fetcher probes every agent of a discovered cluster and persists the
// resulting Agent/AgentInfo/Node/Shard records.
type Fetcher struct {
	log     *zap.Logger
	store   store.Store
	events  eventstream.Stream
	timeout time.Duration
}

// New builds a Fetcher. timeout bounds every individual agent probe.
func New(log *zap.Logger, primary store.Store, events eventstream.Stream, timeout time.Duration) *Fetcher {
	return &Fetcher{log: log, store: primary, events: events, timeout: timeout}
}

// Fetch refreshes every node of discovery, stopping cleanly (nil error)
// the moment lock reports it is no longer held. Only store/coordinator
// failures are returned as errors; agent-side failures are recorded on
// the Agent record and do not abort the refresh.
func (f *Fetcher) Fetch(ctx context.Context, ns string, discovery rcmodel.ClusterDiscovery, lock coordinator.LockWatcher) error {
	clusterID := discovery.ClusterID
	if err := f.store.Cluster(ns, clusterID).MarkStale(ctx); err != nil {
		return err
	}

	idChecker := NewIdentityChecker(clusterID, discovery.DisplayName)
	for _, target := range discovery.Nodes {
		if !lock.Inspect() {
			f.log.Warn("cluster fetcher lock lost, skipping further nodes", zap.String("cluster_id", clusterID))
			return nil
		}
		if err := f.processTarget(ctx, ns, clusterID, target, idChecker); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fetcher) processTarget(ctx context.Context, ns, clusterID, target string, idChecker *IdentityChecker) error {
	agent := rcmodel.Agent{ClusterID: clusterID, Host: target, Status: rcmodel.AgentStatusUpValue}
	client := agentclient.New(target, f.timeout)

	info, err := client.Info(ctx)
	if err != nil {
		agent.Status = rcmodel.AgentDown(err.Error())
		return f.persistAgent(ctx, agent)
	}
	if err := f.store.Persist().AgentInfo(ctx, rcmodel.AgentInfo{
		ClusterID: clusterID, Host: target, VersionInfo: info.VersionInfo, Checkout: info.Checkout,
	}); err != nil {
		return err
	}

	status, err := client.Status(ctx)
	if err != nil {
		agent.Status = rcmodel.NodeDown(err.Error())
		return f.persistAgent(ctx, agent)
	}
	if err := idChecker.CheckID(status.ClusterID, status.NodeID); err != nil {
		agent.Status = rcmodel.AgentDown(err.Error())
		return f.persistAgent(ctx, agent)
	}
	if err := idChecker.CheckOrSetDisplayName(status.DisplayName, status.NodeID); err != nil {
		agent.Status = rcmodel.AgentDown(err.Error())
		return f.persistAgent(ctx, agent)
	}

	node := rcmodel.Node{
		ClusterID:          clusterID,
		ClusterDisplayName: idChecker.DisplayName(),
		Kind:               status.Kind,
		NodeID:             status.NodeID,
		Version:            status.Version,
	}
	if err := f.processNode(ctx, node); err != nil {
		return err
	}

	shards, err := client.Shards(ctx)
	if err != nil {
		agent.Status = rcmodel.NodeDown(err.Error())
		return f.persistAgent(ctx, agent)
	}
	for _, wire := range shards.Shards {
		shard := rcmodel.Shard{
			ClusterID:    clusterID,
			NodeID:       status.NodeID,
			ShardID:      wire.ShardID,
			Role:         shardRoleFromWire(wire.Role),
			CommitOffset: wire.CommitOffset,
			Lag:          wire.Lag,
		}
		if err := f.processShard(ctx, shard); err != nil {
			return err
		}
	}

	return f.persistAgent(ctx, agent)
}

func (f *Fetcher) persistAgent(ctx context.Context, agent rcmodel.Agent) error {
	return f.store.Persist().Agent(ctx, agent)
}

func (f *Fetcher) processNode(ctx context.Context, node rcmodel.Node) error {
	existing, err := f.store.Node(node.ClusterID, node.NodeID).Get(ctx)
	isNew := err != nil

	if !isNew && existing.Equal(node) {
		return f.store.Persist().Node(ctx, node)
	}

	var event rcmodel.Event
	if isNew {
		event = rcmodel.NewNodeEvent(newEventID(), rcmodel.EventNodeNew, nil, node, now())
	} else {
		before := existing
		event = rcmodel.NewNodeEvent(newEventID(), rcmodel.EventNodeChanged, &before, node, now())
	}
	if err := f.events.Emit(ctx, event); err != nil {
		return err
	}
	return f.store.Persist().Node(ctx, node)
}

func (f *Fetcher) processShard(ctx context.Context, shard rcmodel.Shard) error {
	existing, err := f.store.Shard(shard.ClusterID, shard.NodeID, shard.ShardID).Get(ctx)
	isNew := err != nil

	if isNew {
		event := rcmodel.NewShardEvent(newEventID(), rcmodel.EventShardAllocationNew, nil, shard, now())
		if err := f.events.Emit(ctx, event); err != nil {
			return err
		}
		return f.store.Persist().Shard(ctx, shard)
	}

	if shard.FullyEqual(existing) {
		return nil
	}
	if !shard.StableEqual(existing) {
		before := existing
		event := rcmodel.NewShardEvent(newEventID(), rcmodel.EventShardAllocationChanged, &before, shard, now())
		if err := f.events.Emit(ctx, event); err != nil {
			return err
		}
	}
	return f.store.Persist().Shard(ctx, shard)
}

func shardRoleFromWire(role string) rcmodel.ShardRole {
	switch rcmodel.ShardRole(role) {
	case rcmodel.ShardRolePrimary:
		return rcmodel.ShardRolePrimary
	case rcmodel.ShardRoleSecondary:
		return rcmodel.ShardRoleSecondary
	default:
		return rcmodel.ShardRoleUnknown
	}
}
