package rcerror

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the closed set of error kinds the core produces (spec.md §7).
type Kind string

const (
	// AgentConnect: the agent sidecar could not be reached at all.
	AgentConnect Kind = "AgentConnect"
	// AgentDown: transport succeeded but the payload was invalid or
	// missing.
	AgentDown Kind = "AgentDown"
	// ClusterIDDoesNotMatch: a node reported a cluster_id different from
	// the one discovery gave for the cluster being refreshed.
	ClusterIDDoesNotMatch Kind = "ClusterIdDoesNotMatch"
	// ClusterDisplayNameDoesNotMatch: a node reported a display_name
	// different from the one discovery gave or, when discovery gave none,
	// from the first node of the same refresh.
	ClusterDisplayNameDoesNotMatch Kind = "ClusterDisplayNameDoesNotMatch"
	// DatastoreDown: the datastore itself is unreachable, per the agent.
	DatastoreDown Kind = "DatastoreDown"
	// PrimaryStoreRead/Write: primary store operation failed.
	PrimaryStoreRead  Kind = "PrimaryStoreRead"
	PrimaryStoreWrite Kind = "PrimaryStoreWrite"
	// ViewStoreRead/Write: view store operation failed.
	ViewStoreRead  Kind = "ViewStoreRead"
	ViewStoreWrite Kind = "ViewStoreWrite"
	// Coordination: coordinator RPC failed.
	Coordination Kind = "Coordination"
	// EventEmit: event stream publish failed.
	EventEmit Kind = "EventEmit"
	// Deserialize: a payload or stored record could not be decoded.
	Deserialize Kind = "Deserialize"
	// TaskWorkerRegistration: fatal, cannot start a worker pool.
	TaskWorkerRegistration Kind = "TaskWorkerRegistration"
	// ComponentAlreadyRunning: a component was started twice.
	ComponentAlreadyRunning Kind = "ComponentAlreadyRunning"
	// Backend: coordinator back-end transient failure.
	Backend Kind = "Backend"
	// Unimplemented: an operation that is deliberately not implemented
	// (e.g. force_release) was invoked. Never returned by accident: a
	// caller must have explicitly coded "this is not implemented yet".
	Unimplemented Kind = "Unimplemented"
	// Internal: a recovered panic or other unexpected condition.
	Internal Kind = "Internal"
)

// Error is the concrete error type returned by every core operation that
// can fail. It always carries a Kind and, via github.com/pkg/errors,
// a cause chain and a captured stack trace.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// New builds a new *Error with a fresh stack trace and no further cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Message: msg, cause: errors.New(msg)}
}

// Wrap builds a new *Error of the given kind wrapping an existing error
// as its cause, preserving cause's own chain and stack trace if it has
// one.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Message: msg, cause: errors.Wrap(cause, msg)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.cause.Error()
}

// Unwrap exposes the underlying cause chain to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return errors.Cause(e.cause)
}

// Is reports whether this error (or any error in its chain) has the
// given Kind, allowing errors.Is(err, rcerror.Coordination) style checks
// against a sentinel built with KindSentinel.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	if other.Message == "" {
		// A bare kind sentinel built with KindSentinel: match on kind only.
		return e.Kind == other.Kind
	}
	return e.Kind == other.Kind && e.Message == other.Message
}

// KindSentinel returns a comparison-only *Error carrying just a Kind, for
// use with errors.Is(err, rcerror.KindSentinel(rcerror.Coordination)).
func KindSentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}

// KindOf extracts the Kind of err if it is (or wraps) an *rcerror.Error,
// and reports false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Retryable reports whether a task handler encountering this error
// should fail() (queue retries) as opposed to treating the task as
// terminally unprocessable.
func Retryable(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return true
	}
	switch kind {
	case Deserialize, Unimplemented, ComponentAlreadyRunning:
		return false
	default:
		return true
	}
}

// StackTrace exposes the captured stack trace, if the underlying cause
// chain carries one (it does, since every *Error is constructed through
// New/Wrap which route through github.com/pkg/errors).
func (e *Error) StackTrace() errors.StackTrace {
	type tracer interface {
		StackTrace() errors.StackTrace
	}
	if t, ok := e.cause.(tracer); ok {
		return t.StackTrace()
	}
	return nil
}
