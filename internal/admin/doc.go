// Package admin implements the stateless validation passes repliadm
// validate drives (spec.md §4.10): config defaults/thresholds,
// coordinator lock/node registry iteration, and primary/view store data
// decoding. Findings accumulate into an Outcomes{Errors, Warnings}
// collector; the CLI's exit code is non-zero only if Outcomes has any
// error.
//
// Grounded on original_source/bin/repliadm/src/commands/validate/
// {all.rs,coordinator_nblocks.rs} for the outcome-collector/iterate
// shape, and original_source/data/store/src/admin/data.rs for the
// per-entity data cursor surface.
package admin
