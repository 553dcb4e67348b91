// Package eventstream implements the append-only domain event log
// (spec.md §4.2): emitting events and scanning them back out with a
// kind-prefix filter, time bounds, an optional reverse order, and an
// optional limit.
//
// Ordering is best-effort across emitters and totally ordered only
// within a single emitter (spec.md §3 invariant): the fetcher and the
// refresh handler stamp each event with time.Now() at the moment they
// build it, and one refresh builds its events one after another, so its
// events carry timestamps in emission order.
//
// The reference backend (stream.go's NewStoreBacked) simply writes through to the primary
// store, matching spec.md §4.2 ("a store-backed implementation that
// simply writes events to the primary store"); a broker-backed
// implementation is permitted by the interface but not provided here, as
// nothing in this core's scope requires it.
package eventstream
