// Package tasks implements the Task Queue (spec.md §4.5): a typed,
// at-least-once queue abstraction over a pluggable message broker, with
// bounded per-queue retries, fixed retry delay, and trace context
// propagation through message headers.
//
// The shape mirrors original_source/tasks/src/request/mod.rs (a
// Producer-style request type carrying headers) and
// original_source/bin/replicante/src/tasks/mod.rs (a handler bound per
// queue, invoked with deserialize/trace/success/fail operations). Two
// backends are provided: an in-memory backend for tests, and a Kafka
// backend built on github.com/twmb/franz-go.
package tasks
