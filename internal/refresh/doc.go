// Package refresh implements the Refresh Handler (spec.md §4.9): the
// ClusterRefresh task's PENDING → LOCK_REQUEST → {SKIP|FETCHING →
// AGGREGATING → RELEASE → DONE} state machine, with PARTIAL on lock loss
// and FAIL (task retry) on any core error from the fetcher or
// aggregator.
//
// Grounded on original_source/bin/replicante/src/tasks/cluster_refresh/
// {mod.rs,metrics.rs} for the transition shape and the
// replicore_cluster_refresh_duration/replicore_cluster_refresh_locked
// metric names, which this package preserves verbatim.
package refresh
