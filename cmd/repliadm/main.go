// Command repliadm is the one CLI surface this core owns directly
// (spec.md §6 Non-goals: no replictl/replidev tooling, no concrete HTTP
// API handlers — only the admin validators of spec.md §4.10 need a home).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/replicante-io/replicore/internal/admin"
	"github.com/replicante-io/replicore/internal/config"
	"github.com/replicante-io/replicore/internal/coordinator"
	"github.com/replicante-io/replicore/internal/rcerror"
	"github.com/replicante-io/replicore/internal/store"
	"github.com/replicante-io/replicore/internal/viewstore"
)

var cfgPath string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "repliadm",
		Short: "Replicante Core administrative tools",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "replicante.yaml", "path to replicante.yaml")
	root.AddCommand(newValidateCommand())
	root.AddCommand(newConfigDumpCommand())
	return root
}

// newConfigDumpCommand prints the fully-defaulted, effective configuration
// viper resolved from replicante.yaml, env overrides and built-in
// defaults — useful when a validator complains about a value the operator
// never set explicitly.
func newConfigDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config-dump",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "load config %s: %v\n", cfgPath, err)
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

// newValidateCommand groups the validate-all command and one subcommand
// per step named in spec.md §4.10, matching
// original_source/bin/repliadm/src/commands/validate/all.rs's step list.
func newValidateCommand() *cobra.Command {
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Run admin validators against this core's configuration and backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(func(ctx context.Context, log *zap.Logger, cfg config.Config, coord coordinator.Coordinator, primary store.Store, view viewstore.ViewStore) admin.Outcomes {
				return admin.RunAll(ctx, log, cfg, coord, primary, view)
			})
		},
	}

	steps := []struct {
		use  string
		desc string
		run  func(ctx context.Context, log *zap.Logger, cfg config.Config, coord coordinator.Coordinator, primary store.Store, view viewstore.ViewStore) admin.Outcomes
	}{
		{"config", "check replicante.yaml for threshold/schema issues", func(_ context.Context, _ *zap.Logger, cfg config.Config, _ coordinator.Coordinator, _ store.Store, _ viewstore.ViewStore) admin.Outcomes {
			return admin.ValidateConfig(cfg)
		}},
		{"coordinator-elections", "check the coordinator election keyspace", func(ctx context.Context, _ *zap.Logger, _ config.Config, coord coordinator.Coordinator, _ store.Store, _ viewstore.ViewStore) admin.Outcomes {
			return admin.ValidateCoordinatorElections(ctx, coord.Admin())
		}},
		{"coordinator-nblocks", "check every registered non-blocking lock", func(ctx context.Context, _ *zap.Logger, _ config.Config, coord coordinator.Coordinator, _ store.Store, _ viewstore.ViewStore) admin.Outcomes {
			return admin.ValidateCoordinatorNBlocks(ctx, coord.Admin())
		}},
		{"coordinator-nodes", "check every registered control-plane node", func(ctx context.Context, _ *zap.Logger, _ config.Config, coord coordinator.Coordinator, _ store.Store, _ viewstore.ViewStore) admin.Outcomes {
			return admin.ValidateCoordinatorNodes(ctx, coord.Admin())
		}},
		{"primary-store-schema", "check the primary store is reachable", func(ctx context.Context, _ *zap.Logger, _ config.Config, _ coordinator.Coordinator, primary store.Store, _ viewstore.ViewStore) admin.Outcomes {
			return admin.ValidatePrimaryStoreSchema(ctx, primary)
		}},
		{"primary-store-data", "check every cluster's agents/nodes/shards decode cleanly", func(ctx context.Context, _ *zap.Logger, _ config.Config, _ coordinator.Coordinator, primary store.Store, _ viewstore.ViewStore) admin.Outcomes {
			clusters, err := primary.Legacy().ClusterMetaTop(ctx, 0)
			if err != nil {
				var outcomes admin.Outcomes
				outcomes.Error(admin.Outcome{Check: "primary-store-data", Message: "GenericError: " + err.Error()})
				return outcomes
			}
			clusterIDs := make([]string, 0, len(clusters))
			for _, meta := range clusters {
				clusterIDs = append(clusterIDs, meta.ClusterID)
			}
			return admin.ValidatePrimaryStoreData(ctx, primary, clusterIDs)
		}},
		{"view-store-schema", "check the view store is reachable", func(ctx context.Context, _ *zap.Logger, _ config.Config, _ coordinator.Coordinator, _ store.Store, view viewstore.ViewStore) admin.Outcomes {
			return admin.ValidateViewStoreSchema(ctx, view)
		}},
		{"view-store-data", "check view store records decode cleanly", func(ctx context.Context, _ *zap.Logger, _ config.Config, _ coordinator.Coordinator, _ store.Store, view viewstore.ViewStore) admin.Outcomes {
			return admin.ValidateViewStoreData(ctx, view)
		}},
	}
	for _, step := range steps {
		step := step
		validate.AddCommand(&cobra.Command{
			Use:   step.use,
			Short: step.desc,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runStep(step.run)
			},
		})
	}
	return validate
}

// runStep loads config and builds the backends it names, runs fn, prints
// every outcome, and returns a non-nil error iff fn reported an
// error-level outcome (spec.md §6: warnings exit 0, errors exit 1).
func runStep(fn func(ctx context.Context, log *zap.Logger, cfg config.Config, coord coordinator.Coordinator, primary store.Store, view viewstore.ViewStore) admin.Outcomes) error {
	ctx := context.Background()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", cfgPath, err)
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	coord, err := buildCoordinator(cfg.Coordinator, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build coordinator: %v\n", err)
		return err
	}
	defer coord.Close(ctx) //nolint:errcheck

	primary, err := buildPrimaryStore(ctx, cfg.Storage.Primary)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build primary store: %v\n", err)
		return err
	}
	defer primary.Close(ctx) //nolint:errcheck

	view, err := buildViewStore(ctx, cfg.Storage.View)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build view store: %v\n", err)
		return err
	}
	defer view.Close(ctx) //nolint:errcheck

	outcomes := fn(ctx, log, cfg, coord, primary, view)
	for _, w := range outcomes.Warnings {
		fmt.Printf("WARN  %s\n", w.String())
	}
	for _, e := range outcomes.Errors {
		fmt.Printf("ERROR %s\n", e.String())
	}
	if outcomes.HasErrors() {
		return fmt.Errorf("%d validator error(s)", len(outcomes.Errors))
	}
	fmt.Println("OK")
	return nil
}

func buildCoordinator(cfg config.CoordinatorConfig, log *zap.Logger) (coordinator.Coordinator, error) {
	switch cfg.Backend {
	case "", "memory":
		return coordinator.NewMemoryCoordinator(cfg.Namespace), nil
	case "zookeeper":
		return coordinator.NewZookeeperCoordinator(coordinator.ZookeeperConfig{
			Ensemble: cfg.Ensembles,
			Root:     cfg.Namespace,
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
