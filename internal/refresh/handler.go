package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/aggregator"
	"github.com/replicante-io/replicore/internal/coordinator"
	"github.com/replicante-io/replicore/internal/eventstream"
	"github.com/replicante-io/replicore/internal/fetcher"
	"github.com/replicante-io/replicore/internal/rcmodel"
	"github.com/replicante-io/replicore/internal/store"
	"github.com/replicante-io/replicore/internal/tasks"
)

var tracer = otel.Tracer("replicore/refresh")

func newEventID() string { return uuid.NewString() }

// SnapshotSettings controls how often a refresh emits a point-in-time
// snapshot event family, per spec.md §6's events.snapshots config.
type SnapshotSettings struct {
	Enabled   bool
	Frequency uint32 // refreshes between snapshots; 0 is treated as 60.
}

// Handler is the ClusterRefresh task handler (spec.md §4.9): it drives
// one cluster through LOCK_REQUEST → FETCHING → AGGREGATING → RELEASE.
type Handler struct {
	log         *zap.Logger
	coord       coordinator.Coordinator
	nodeID      rcmodel.NodeID
	fetch       *fetcher.Fetcher
	aggregate   *aggregator.Aggregator
	events      eventstream.Stream
	snapshot    SnapshotSettings
	namespace   string

	mu        sync.Mutex
	refreshes map[string]uint32 // cluster_id -> refreshes since last snapshot
}

// NewHandler builds a Handler. nodeID identifies this process instance
// and is recorded as the owner of every cluster_refresh lock it takes
// (spec.md §3/§4.1). namespace is the fixed namespace this core instance
// serves (spec.md's tmp_namespace_settings placeholder, carried until
// namespaces are modelled properly in the primary store).
func NewHandler(
	log *zap.Logger,
	coord coordinator.Coordinator,
	nodeID rcmodel.NodeID,
	primary store.Store,
	events eventstream.Stream,
	agentTimeout time.Duration,
	snapshot SnapshotSettings,
	namespace string,
) *Handler {
	return &Handler{
		log:       log,
		coord:     coord,
		nodeID:    nodeID,
		fetch:     fetcher.New(log, primary, events, agentTimeout),
		aggregate: aggregator.New(log, primary),
		events:    events,
		snapshot:  snapshot,
		namespace: namespace,
		refreshes: make(map[string]uint32),
	}
}

// Handle implements tasks.Handler for the ClusterRefresh queue.
func (h *Handler) Handle(ctx context.Context, task tasks.Task) {
	ctx = h.extractTraceContext(ctx, task.Headers())
	ctx, span := tracer.Start(ctx, "tasks.cluster_refresh")
	defer span.End()

	if err := h.doHandle(ctx, task, span); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.log.Error("cluster refresh task failed", zap.Error(err))
		if failErr := task.Fail(ctx); failErr != nil {
			h.log.Error("error acknowledging failed refresh task", zap.Error(failErr))
		}
		return
	}
	if err := task.Success(ctx); err != nil {
		h.log.Error("error acknowledging successful refresh task", zap.Error(err))
	}
}

func (h *Handler) extractTraceContext(ctx context.Context, headers map[string]string) context.Context {
	if traceparent, ok := headers[rcmodel.TraceHeaderKey]; ok && traceparent != "" {
		carrier := propagation.MapCarrier{"traceparent": traceparent}
		ctx = propagation.TraceContext{}.Extract(ctx, carrier)
	}
	return ctx
}

func (h *Handler) doHandle(ctx context.Context, task tasks.Task, span trace.Span) error {
	var payload rcmodel.ClusterRefreshPayload
	if err := task.Deserialize(&payload); err != nil {
		return fmt.Errorf("deserialize ClusterRefreshPayload: %w", err)
	}
	discovery := payload.Cluster
	clusterID := discovery.ClusterID
	span.SetName("tasks.cluster_refresh " + clusterID)

	lock := h.coord.NonBlockingLock("cluster_refresh/"+clusterID, h.nodeID)
	result, err := lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire cluster_refresh lock for %s: %w", clusterID, err)
	}
	if result.Held {
		refreshLocked.Inc()
		h.log.Info("skipped cluster refresh, another task holds the lock",
			zap.String("cluster_id", clusterID), zap.String("owner", result.Owner.UUID))
		return nil
	}

	timer := time.Now()
	watcher := lock.Watch()
	fetchErr := h.fetch.Fetch(ctx, h.namespace, discovery, watcher)
	var aggregateErr error
	if fetchErr == nil {
		aggregateErr = h.aggregate.Aggregate(ctx, discovery, watcher)
	}
	refreshDuration.Observe(time.Since(timer).Seconds())

	if fetchErr != nil {
		// Left held: a core error from FETCHING goes straight to the
		// task retrying, not through RELEASE (spec.md §4.9). The lock
		// expires with the session if this node is actually gone.
		return fmt.Errorf("fetch cluster %s: %w", clusterID, fetchErr)
	}
	if aggregateErr != nil {
		// Same as above, but from AGGREGATING.
		return fmt.Errorf("aggregate cluster %s: %w", clusterID, aggregateErr)
	}

	if payload.Snapshot && h.snapshot.Enabled {
		if err := h.maybeEmitSnapshot(ctx, clusterID); err != nil {
			_ = lock.Release(ctx)
			return fmt.Errorf("emit snapshot for cluster %s: %w", clusterID, err)
		}
	}

	if err := lock.Release(ctx); err != nil {
		return fmt.Errorf("release cluster_refresh lock for %s: %w", clusterID, err)
	}
	h.log.Info("cluster state refresh completed", zap.String("cluster_id", clusterID))
	return nil
}

func (h *Handler) maybeEmitSnapshot(ctx context.Context, clusterID string) error {
	frequency := h.snapshot.Frequency
	if frequency == 0 {
		frequency = 60
	}

	h.mu.Lock()
	h.refreshes[clusterID]++
	due := h.refreshes[clusterID] >= frequency
	if due {
		h.refreshes[clusterID] = 0
	}
	h.mu.Unlock()

	if !due {
		return nil
	}
	event := rcmodel.NewSnapshotEvent(newEventID(), rcmodel.EventSnapshotCluster, clusterID, "cluster", nil, time.Now())
	return h.events.Emit(ctx, event)
}
