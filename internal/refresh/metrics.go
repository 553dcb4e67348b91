package refresh

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "replicore_cluster_refresh_duration",
	Help:    "Duration in seconds of a cluster refresh task.",
	Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
})

var refreshLocked = promauto.NewCounter(prometheus.CounterOpts{
	Name: "replicore_cluster_refresh_locked",
	Help: "Number of cluster refresh tasks skipped because the cluster lock was already held.",
})
