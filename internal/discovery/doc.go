// Package discovery is a thin supplement around the Discovery subsystem,
// which spec.md §1 places outside this core: agent probing and cluster
// composition are somebody else's job. What the core does own is the
// consumer side of two things Discovery hands it — a due-run cursor
// (store.GlobalSearch().DiscoveriesToRun) and a place to enqueue the
// ClusterRefresh tasks that follow from a discovery run.
//
// Component below is that consumer: a scheduled loop, grounded on
// original_source/src/components/discovery.rs's DiscoveryComponent (a
// named background thread polling on an interval, one iteration logging
// and continuing past errors rather than aborting the loop). Backend is
// the seam where an actual discovery implementation (DNS, file, Consul,
// whatever original_source/cluster/discovery/src/backend/* enumerates)
// would plug in; none is implemented here, matching spec.md's scoping.
package discovery
