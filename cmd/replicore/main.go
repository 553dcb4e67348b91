// Command replicore is the control-plane daemon: it loads
// replicante.yaml, wires the coordinator/store/task-queue backends it
// names, and runs the cluster refresh pipeline (discovery → workers →
// fetcher → aggregator → event stream) until asked to stop.
//
// Configuration:
//   - REPLICORE_CONFIG: path to replicante.yaml (default: "replicante.yaml")
//
// Exit codes (spec.md §6): 0 on a clean shutdown, 1 if any upkeep thread
// called Fatal or startup failed outright.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/config"
	"github.com/replicante-io/replicore/internal/coordinator"
	"github.com/replicante-io/replicore/internal/discovery"
	"github.com/replicante-io/replicore/internal/eventstream"
	"github.com/replicante-io/replicore/internal/rcerror"
	"github.com/replicante-io/replicore/internal/rcmodel"
	"github.com/replicante-io/replicore/internal/refresh"
	"github.com/replicante-io/replicore/internal/store"
	"github.com/replicante-io/replicore/internal/tasks"
	"github.com/replicante-io/replicore/internal/telemetry"
	"github.com/replicante-io/replicore/internal/upkeep"
	"github.com/replicante-io/replicore/internal/viewstore"
	"github.com/replicante-io/replicore/internal/workers"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := getenv("REPLICORE_CONFIG", "replicante.yaml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", cfgPath, err)
		return 1
	}

	log, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		return 1
	}
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	tracingShutdown, err := telemetry.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		log.Error("failed to initialise tracing", zap.Error(err))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingShutdown(shutdownCtx); err != nil {
			log.Warn("tracing shutdown error", zap.Error(err))
		}
	}()

	coord, err := buildCoordinator(cfg.Coordinator, log)
	if err != nil {
		log.Error("failed to build coordinator", zap.Error(err))
		return 1
	}
	defer coord.Close(context.Background()) //nolint:errcheck

	primary, err := buildPrimaryStore(ctx, cfg.Storage.Primary)
	if err != nil {
		log.Error("failed to build primary store", zap.Error(err))
		return 1
	}
	defer primary.Close(context.Background()) //nolint:errcheck

	view, err := buildViewStore(ctx, cfg.Storage.View)
	if err != nil {
		log.Error("failed to build view store", zap.Error(err))
		return 1
	}
	defer view.Close(context.Background()) //nolint:errcheck

	events := eventstream.NewStoreBacked(primary.Legacy())

	producer, workerSet, err := buildTaskBroker(cfg.Tasks, log)
	if err != nil {
		log.Error("failed to build task broker", zap.Error(err))
		return 1
	}
	defer workerSet.Close(context.Background()) //nolint:errcheck

	up := upkeep.New(log)
	up.HandleSignals()

	hostname, _ := os.Hostname()
	nodeID := rcmodel.NewNodeID(hostname)
	session, err := coord.RegisterNode(ctx, nodeID)
	if err != nil {
		log.Error("failed to register node", zap.Error(err))
		return 1
	}
	defer session.Close(context.Background()) //nolint:errcheck

	refreshHandler := refresh.NewHandler(
		log, coord, nodeID, primary, events, cfg.Timeouts.AgentsAPI,
		refresh.SnapshotSettings{Enabled: cfg.Events.Snapshots.Enabled, Frequency: cfg.Events.Snapshots.Frequency},
		cfg.TmpNamespace.ID,
	)

	if cfg.Components.Workers {
		pool, err := workers.New(log, workerSet, workers.Config{
			ClusterRefresh: cfg.TaskWorkers.ClusterRefresh,
		}, refreshHandler)
		if err != nil {
			log.Error("failed to register task workers", zap.Error(err))
			return 1
		}
		pool.Run(up)
	}

	if cfg.Components.Discovery {
		queue := workers.ClusterRefreshQueue{}
		interval := time.Duration(cfg.Discovery.Interval) * time.Second
		disc := discovery.New(log, discovery.NoopBackend{}, primary, producer, queue, interval)
		disc.Run(up)
	}

	log.Info("replicore started")
	up.Wait()
	log.Info("replicore stopped")
	return up.ExitCode()
}

func buildCoordinator(cfg config.CoordinatorConfig, log *zap.Logger) (coordinator.Coordinator, error) {
	switch cfg.Backend {
	case "", "memory":
		return coordinator.NewMemoryCoordinator(cfg.Namespace), nil
	case "zookeeper":
		return coordinator.NewZookeeperCoordinator(coordinator.ZookeeperConfig{
			Ensemble:           cfg.Ensembles,
			SessionTimeout:     10 * time.Second,
			Root:               cfg.Namespace,
			CleanerIntervalMin: 30 * time.Second,
			CleanerIntervalMax: 90 * time.Second,
			CleanerLimit:       100,
		}, log)
	default:
		return nil, rcerror.New(rcerror.Deserialize, "unknown coordinator.backend %q", cfg.Backend)
	}
}

func buildPrimaryStore(ctx context.Context, cfg config.StoreBackendConfig) (store.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "mongo":
		return store.NewMongoStore(ctx, store.MongoConfig{URI: cfg.URI, DB: cfg.DB})
	default:
		return nil, rcerror.New(rcerror.Deserialize, "unknown storage.primary.backend %q", cfg.Backend)
	}
}

func buildViewStore(ctx context.Context, cfg config.StoreBackendConfig) (viewstore.ViewStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return viewstore.NewMemoryStore(), nil
	case "mongo":
		return viewstore.NewMongoStore(ctx, viewstore.MongoConfig{URI: cfg.URI, DB: cfg.DB})
	default:
		return nil, rcerror.New(rcerror.Deserialize, "unknown storage.view.backend %q", cfg.Backend)
	}
}

func buildTaskBroker(cfg config.TasksConfig, log *zap.Logger) (tasks.Producer, tasks.WorkerSet, error) {
	switch cfg.Backend {
	case "", "memory":
		producer, workerSet := tasks.NewMemoryBroker(log)
		return producer, workerSet, nil
	case "kafka":
		kafkaCfg := tasks.KafkaConfig{Brokers: cfg.Brokers, ConsumerGroupPrefix: "replicore", ClientID: "replicore"}
		producer, err := tasks.NewKafkaProducer(kafkaCfg)
		if err != nil {
			return nil, nil, err
		}
		return producer, tasks.NewKafkaWorkerSet(kafkaCfg, log), nil
	default:
		return nil, nil, rcerror.New(rcerror.Deserialize, "unknown tasks.backend %q", cfg.Backend)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
