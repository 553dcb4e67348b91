package admin

import (
	"time"

	"github.com/replicante-io/replicore/internal/config"
)

// ValidateConfig applies schema/default checks and flags below-threshold
// values as warnings (spec.md §4.10: e.g. discovery.interval < 15).
func ValidateConfig(cfg config.Config) Outcomes {
	var outcomes Outcomes

	if cfg.Discovery.Interval < 15 {
		outcomes.Warning(Outcome{
			Check:   "config",
			Message: "discovery.interval is below 15 seconds, agent discovery will run very frequently",
		})
	}
	if cfg.Events.Snapshots.Enabled && cfg.Events.Snapshots.Frequency == 0 {
		outcomes.Warning(Outcome{
			Check:   "config",
			Message: "events.snapshots.frequency is 0 with snapshots enabled, a snapshot will be emitted on every refresh",
		})
	}
	if cfg.Timeouts.AgentsAPI <= 0 {
		outcomes.Error(Outcome{
			Check:   "config",
			Message: "timeouts.agents_api must be a positive duration",
		})
	}
	if cfg.Timeouts.AgentsAPI > 0 && cfg.Timeouts.AgentsAPI < time.Second {
		outcomes.Warning(Outcome{
			Check:   "config",
			Message: "timeouts.agents_api is below one second, agent probes may time out under normal load",
		})
	}
	if cfg.Tasks.ClusterRefresh.Retries < 0 {
		outcomes.Error(Outcome{
			Check:   "config",
			Message: "tasks.cluster_refresh.retries must not be negative",
		})
	}
	switch cfg.Coordinator.Backend {
	case "memory", "zookeeper":
	default:
		outcomes.Error(Outcome{
			Check:   "config",
			Message: "coordinator.backend must be one of memory, zookeeper, got " + cfg.Coordinator.Backend,
		})
	}
	switch cfg.Tasks.Backend {
	case "memory", "kafka":
	default:
		outcomes.Error(Outcome{
			Check:   "config",
			Message: "tasks.backend must be one of memory, kafka, got " + cfg.Tasks.Backend,
		})
	}

	return outcomes
}
