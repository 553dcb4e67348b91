package coordinator

import (
	"context"
	"iter"

	"github.com/replicante-io/replicore/internal/rcmodel"
)

// Session represents a live registration of this process's NodeID with
// the coordinator. The registration is tied to the session's lifetime:
// when the session closes (process shutdown, or the back-end detects the
// connection is gone), the registration disappears on its own.
type Session interface {
	// NodeID returns the identity this session registered.
	NodeID() rcmodel.NodeID

	// Close ends the session, releasing the node registration. Close is
	// idempotent.
	Close(ctx context.Context) error
}

// LockResult is the outcome of a Lock.Acquire call.
type LockResult struct {
	// Acquired is true if this call obtained the lock.
	Acquired bool
	// Owner is populated when Acquired is false and another owner holds
	// the lock (LockResult.Held).
	Owner rcmodel.NodeID
	// Held is true when the lock was not acquired because someone else
	// already holds it. A caller seeing Held must not retry within the
	// same task (spec.md §4.1): the task should skip and rely on the
	// next scheduled refresh.
	Held bool
}

// LockWatcher is a cheap, lock-free reader of whether a lock is still
// held by its original owner. Inspect must return false as soon as the
// owning session detects loss, without blocking, and must never flip
// back from false to true (spec.md §8 testable property).
type LockWatcher interface {
	Inspect() bool
}

// Lock is a handle to one named non-blocking lock.
type Lock interface {
	// Name is the lock's name, as passed to NonBlockingLock.
	Name() string

	// Acquire attempts to take the lock. It does not block or retry: it
	// either succeeds, reports the current owner (LockResult.Held), or
	// returns a Backend error for the caller to decide whether to retry.
	Acquire(ctx context.Context) (LockResult, error)

	// Watch returns a LockWatcher that may be inspected from any
	// goroutine, including ones other than the one that called Acquire.
	// Only the acquiring owner may Release.
	Watch() LockWatcher

	// Release idempotently deletes the lock's znode. Calling Release
	// twice is not an error (spec.md §8: "Lock.release called twice
	// succeeds twice").
	Release(ctx context.Context) error
}

// Admin exposes the lazy, best-effort scans repliadm validate drives
// (spec.md §4.1/§4.10). A record that disappears between list and read
// (the backend's NoNode race) is skipped silently, matching the Rust
// reference's NoNode handling. Any other error reading one prefix bucket
// or record is yielded, and iteration then goes on with the next one;
// only a failure to list the top-level directory ends the iteration.
type Admin interface {
	// NonBlockingLocks lazily enumerates every currently-registered
	// lock, yielding errors as described on Admin.
	NonBlockingLocks(ctx context.Context) iter.Seq2[rcmodel.NonBlockingLockInfo, error]

	// Nodes lazily enumerates every currently-registered control-plane
	// node.
	Nodes(ctx context.Context) iter.Seq2[rcmodel.NodeID, error]

	// ForceRelease deletes a lock by admin decision. The ZooKeeper
	// backend does not implement this (spec.md §9 Open Questions): it
	// always returns an rcerror.Unimplemented error rather than guessing
	// at semantics.
	ForceRelease(ctx context.Context, name string) error
}

// Coordinator is the top-level distributed coordination facility
// (spec.md §4.1).
type Coordinator interface {
	// RegisterNode publishes this NodeID into the registry and returns a
	// Session tied to the registration's lifetime.
	RegisterNode(ctx context.Context, id rcmodel.NodeID) (Session, error)

	// NonBlockingLock returns a handle to the named lock. owner is
	// recorded as the znode payload if and when Acquire succeeds, so
	// every active lock has exactly one NodeID on record as owner
	// (spec.md §3). It does not contact the backend; call Lock.Acquire
	// to actually attempt the lock.
	NonBlockingLock(name string, owner rcmodel.NodeID) Lock

	// Admin exposes the validator-facing lazy scans.
	Admin() Admin

	// Close releases any resources held by the coordinator client
	// itself (connection pools, background goroutines). It does not
	// close sessions obtained via RegisterNode; callers are responsible
	// for closing those.
	Close(ctx context.Context) error
}
