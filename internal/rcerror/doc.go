// Package rcerror implements the closed error-kind taxonomy of spec.md §7.
//
// Every error the refresh pipeline produces is classified into one of a
// fixed set of Kinds. The Kind determines propagation: agent/remote
// errors are recorded on an Agent record and the refresh continues;
// storage/coordinator/event errors abort the current refresh and become
// a task fail() (the queue retries); deserialize errors on the task
// payload itself are terminal (the task is dropped, since retrying a
// malformed payload can never succeed).
//
// Every *Error carries a cause chain (via github.com/pkg/errors) so the
// CLI and the server logger can print the full chain, and Sentry
// reporting (out of scope for this core) has something to report.
package rcerror
