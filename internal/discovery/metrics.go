package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names and histogram buckets match spec.md §6 and
// original_source/replicante/src/components/discovery/metrics.rs exactly.
var (
	discoveryLoops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replicore_discovery_loops",
		Help: "Number of discovery runs started",
	})

	discoveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "replicore_discovery_duration",
		Help:    "Duration (in seconds) of agent discovery runs",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
	})

	discoveryErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replicore_discovery_errors",
		Help: "Number of errors during agent discovery",
	})
)
