package discovery

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/rcmodel"
	"github.com/replicante-io/replicore/internal/store"
	"github.com/replicante-io/replicore/internal/tasks"
	"github.com/replicante-io/replicore/internal/upkeep"
)

// Backend probes whatever external inventory a DiscoverySettings entry
// names (DNS, a static file, a service registry — spec.md never commits
// to one) and yields the clusters it finds. No implementation ships with
// this core; callers that need real discovery supply their own, the way
// original_source/cluster/discovery/src/backend/* enumerates several
// behind one trait.
type Backend interface {
	Discover(ctx context.Context, settings rcmodel.DiscoverySettings) iter.Seq2[rcmodel.ClusterDiscovery, error]
}

// Component periodically asks the primary store which namespaces are due
// for a discovery run, asks Backend to discover each, and turns every
// result into a persisted ClusterDiscovery plus an enqueued ClusterRefresh
// task — the two hand-off points spec.md §1/§2 assign to this core.
type Component struct {
	log      *zap.Logger
	backend  Backend
	store    store.Store
	producer tasks.Producer
	queue    tasks.Queue
	interval time.Duration
}

// NoopBackend discovers nothing. It is the default Backend wired by
// cmd/replicore: running the scheduling loop with it is harmless (no
// DiscoverySettings ever come due without something else populating
// them), and it keeps `components.discovery: true` from requiring a
// concrete backend choice this core does not make on anyone's behalf.
type NoopBackend struct{}

// Discover implements Backend by yielding nothing.
func (NoopBackend) Discover(context.Context, rcmodel.DiscoverySettings) iter.Seq2[rcmodel.ClusterDiscovery, error] {
	return func(func(rcmodel.ClusterDiscovery, error) bool) {}
}

// New builds a Component. interval bounds how often DiscoveriesToRun is
// polled; it does not change how often any one namespace is due, which
// is governed entirely by that namespace's own DiscoverySettings.Interval.
func New(log *zap.Logger, backend Backend, primary store.Store, producer tasks.Producer, queue tasks.Queue, interval time.Duration) *Component {
	return &Component{log: log, backend: backend, store: primary, producer: producer, queue: queue, interval: interval}
}

// Run registers the polling loop as an upkeep thread.
func (c *Component) Run(up *upkeep.Upkeep) {
	up.Spawn("discovery", func(shutdown <-chan struct{}) {
		c.runOnce(context.Background())

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-shutdown:
				return
			case <-ticker.C:
				c.runOnce(context.Background())
			}
		}
	})
}

// runOnce drives a single discovery sweep across every due namespace,
// logging and continuing past failures rather than aborting the sweep —
// one bad namespace should never block the rest.
func (c *Component) runOnce(ctx context.Context) {
	discoveryLoops.Inc()
	start := time.Now()
	defer func() { discoveryDuration.Observe(time.Since(start).Seconds()) }()

	c.log.Debug("discovering agents")
	for settings, err := range c.store.GlobalSearch().DiscoveriesToRun(ctx, time.Now()) {
		if err != nil {
			discoveryErrors.Inc()
			c.log.Error("failed to read due discovery settings", zap.Error(err))
			continue
		}
		c.runNamespace(ctx, settings)
	}
	c.log.Debug("agents discovery complete")
}

func (c *Component) runNamespace(ctx context.Context, settings rcmodel.DiscoverySettings) {
	for disc, err := range c.backend.Discover(ctx, settings) {
		if err != nil {
			discoveryErrors.Inc()
			c.log.Error("failed to discover cluster", zap.String("namespace", settings.Namespace), zap.Error(err))
			continue
		}
		if err := c.process(ctx, disc); err != nil {
			discoveryErrors.Inc()
			c.log.Error("failed to process discovered cluster", zap.String("cluster_id", disc.ClusterID), zap.Error(err))
		}
	}
}

// process persists the discovered cluster and enqueues a ClusterRefresh
// task for it. Probing agents for state belongs to the Fetcher, invoked
// later by the Refresh Handler — not here.
func (c *Component) process(ctx context.Context, disc rcmodel.ClusterDiscovery) error {
	if err := c.store.Persist().ClusterDiscovery(ctx, disc); err != nil {
		return err
	}
	req, payload, err := tasks.NewClusterRefreshRequest(c.queue, rcmodel.ClusterRefreshPayload{Cluster: disc}, nil)
	if err != nil {
		return err
	}
	return c.producer.Request(ctx, req, payload)
}
