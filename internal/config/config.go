package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/replicante-io/replicore/internal/rcerror"
)

// Config is the top-level replicante.yaml shape (spec.md §6).
type Config struct {
	API          APIConfig          `mapstructure:"api"`
	Components   ComponentsConfig   `mapstructure:"components"`
	Coordinator  CoordinatorConfig  `mapstructure:"coordinator"`
	Discovery    DiscoveryConfig    `mapstructure:"discovery"`
	Events       EventsConfig       `mapstructure:"events"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Sentry       SentryConfig       `mapstructure:"sentry"`
	Storage      StorageConfig      `mapstructure:"storage"`
	TaskWorkers  TaskWorkersConfig  `mapstructure:"task_workers"`
	Tasks        TasksConfig        `mapstructure:"tasks"`
	Timeouts     TimeoutsConfig     `mapstructure:"timeouts"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	TmpNamespace TmpNamespaceConfig `mapstructure:"tmp_namespace_settings"`
}

// APIConfig configures the out-of-scope HTTP surface the core still
// publishes data through (spec.md §6).
type APIConfig struct {
	Bind string `mapstructure:"bind"`
}

// ComponentsConfig toggles which long-running components this process
// instance runs.
type ComponentsConfig struct {
	Discovery bool `mapstructure:"discovery"`
	Workers   bool `mapstructure:"workers"`
}

// CoordinatorConfig selects and configures the coordinator backend.
type CoordinatorConfig struct {
	Backend   string   `mapstructure:"backend"` // "memory" or "zookeeper"
	Ensembles []string `mapstructure:"ensembles"`
	Namespace string   `mapstructure:"namespace"`
}

// DiscoveryConfig configures the discovery loop (spec.md §6:
// discovery.interval below 15s is a warning-level misconfiguration).
type DiscoveryConfig struct {
	Interval uint32 `mapstructure:"interval"`
}

// EventsConfig groups snapshot and stream-backend configuration.
type EventsConfig struct {
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	Stream    StreamConfig    `mapstructure:"stream"`
}

// SnapshotsConfig controls periodic state-snapshot events.
type SnapshotsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Frequency uint32 `mapstructure:"frequency"`
}

// StreamConfig selects the event stream backend.
type StreamConfig struct {
	Backend string `mapstructure:"backend"` // "memory" or "store"
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Mode  string `mapstructure:"mode"` // "json" or "console"
}

// SentryConfig configures optional error reporting.
type SentryConfig struct {
	DSN     string `mapstructure:"dsn"`
	Enabled bool   `mapstructure:"enabled"`
}

// StorageConfig selects and configures the primary/view store backends.
type StorageConfig struct {
	Primary StoreBackendConfig `mapstructure:"primary"`
	View    StoreBackendConfig `mapstructure:"view"`
}

// StoreBackendConfig is shared shape for both store backends.
type StoreBackendConfig struct {
	Backend string `mapstructure:"backend"` // "memory" or "mongo"
	URI     string `mapstructure:"uri"`
	DB      string `mapstructure:"db"`
}

// TaskWorkersConfig toggles which queues this node consumes (spec.md §6:
// task_workers.cluster_refresh).
type TaskWorkersConfig struct {
	ClusterRefresh bool `mapstructure:"cluster_refresh"`
}

// TasksConfig configures the task queue backend and per-queue policy.
type TasksConfig struct {
	Backend       string              `mapstructure:"backend"` // "memory" or "kafka"
	Brokers       []string            `mapstructure:"brokers"`
	ClusterRefresh ClusterRefreshTasks `mapstructure:"cluster_refresh"`
}

// ClusterRefreshTasks configures the ClusterRefresh queue's retry policy.
type ClusterRefreshTasks struct {
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// TimeoutsConfig bounds blocking operations across the pipeline.
type TimeoutsConfig struct {
	AgentsAPI time.Duration `mapstructure:"agents_api"`
}

// TracingConfig configures the otel tracer/exporter.
type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	JaegerAgent  string `mapstructure:"jaeger_agent"`
	ServiceName  string `mapstructure:"service_name"`
}

// TmpNamespaceConfig is the placeholder namespace this core serves until
// namespaces are modelled properly in the primary store (carried over
// from the teacher's tmp_global_namespace TODO).
type TmpNamespaceConfig struct {
	ID          string `mapstructure:"id"`
	DisplayName string `mapstructure:"display_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.bind", "127.0.0.1:16016")
	v.SetDefault("components.discovery", true)
	v.SetDefault("components.workers", true)
	v.SetDefault("coordinator.backend", "memory")
	v.SetDefault("coordinator.namespace", "/replicante")
	v.SetDefault("discovery.interval", 60)
	v.SetDefault("events.snapshots.enabled", true)
	v.SetDefault("events.snapshots.frequency", 60)
	v.SetDefault("events.stream.backend", "store")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.mode", "json")
	v.SetDefault("storage.primary.backend", "memory")
	v.SetDefault("storage.view.backend", "memory")
	v.SetDefault("task_workers.cluster_refresh", true)
	v.SetDefault("tasks.backend", "memory")
	v.SetDefault("tasks.cluster_refresh.retries", 3)
	v.SetDefault("tasks.cluster_refresh.retry_delay", 10*time.Second)
	v.SetDefault("timeouts.agents_api", 10*time.Second)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "replicore")
	v.SetDefault("tmp_namespace_settings.id", "default")
}

// Load reads path (YAML) through viper, applies defaults, and
// unmarshals into a Config.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, rcerror.Wrap(rcerror.Deserialize, err, "read config file %s", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, rcerror.Wrap(rcerror.Deserialize, err, "unmarshal config file %s", path)
	}
	return cfg, nil
}

// Defaults returns a Config populated only with the SetDefault values
// above, without reading any file; the tests use it.
func Defaults() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}
