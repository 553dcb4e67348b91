// Package workers wires a tasks.WorkerSet into the process's upkeep
// registry (spec.md §4.5/§5): one Go routine per configured queue,
// toggled individually by task_workers.<queue> config, each running
// until upkeep's shutdown channel closes.
//
// Grounded on original_source/bin/replicante/src/components/workers.rs
// for the per-queue enable/register shape, and on
// johnjansen-torua/internal/coordinator/health_monitor.go for the
// ctx-cancellation-aware run loop this generalizes.
package workers
