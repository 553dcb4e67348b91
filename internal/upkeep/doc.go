// Package upkeep implements the process-wide shutdown supervisor spec.md
// §5 describes: a registry of background threads sharing one shutdown
// channel. SIGINT/SIGTERM (or an internal fatal condition, such as the
// poisoned-mutex policy in §5) close the channel; registered threads are
// expected to finish their current unit of work and return rather than
// being forcibly aborted, and the process joins them before exiting.
//
// Grounded on johnjansen-torua/cmd/coordinator/main.go's
// signal.Notify(os.Interrupt, syscall.SIGTERM) + context-based shutdown
// shape, generalized from one HTTP server into a registry any number of
// background threads can join.
package upkeep
