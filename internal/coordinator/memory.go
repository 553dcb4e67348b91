package coordinator

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/replicante-io/replicore/internal/rcerror"
	"github.com/replicante-io/replicore/internal/rcmodel"
)

// memoryCoordinator is an in-memory Coordinator used by tests and
// single-node development setups. It implements the same Coordinator
// contract as the ZooKeeper backend, but keeps all state in two maps
// guarded by one RWMutex instead of talking to a consensus store. It
// does not use the ZooKeeper path fan-out: locks are keyed by name and
// nodes by UUID, and admin iteration follows Go map order.
//
// Thread-safety model mirrors the teacher's ShardRegistry: reads take
// RLock, writes take Lock, and no lock is held across a caller-supplied
// callback.
type memoryCoordinator struct {
	mu    sync.RWMutex
	locks map[string]*memoryLockEntry
	nodes map[string]rcmodel.NodeID

	root string
}

type memoryLockEntry struct {
	info    rcmodel.NonBlockingLockInfo
	version int64
}

// NewMemoryCoordinator constructs an in-memory Coordinator rooted at the
// given logical root path. The root is stored but not used by this
// backend: lock names and node UUIDs are not prefixed with it.
func NewMemoryCoordinator(root string) Coordinator {
	return &memoryCoordinator{
		locks: make(map[string]*memoryLockEntry),
		nodes: make(map[string]rcmodel.NodeID),
		root:  root,
	}
}

func (c *memoryCoordinator) RegisterNode(_ context.Context, id rcmodel.NodeID) (Session, error) {
	c.mu.Lock()
	c.nodes[id.UUID] = id
	c.mu.Unlock()
	return &memorySession{coord: c, id: id}, nil
}

func (c *memoryCoordinator) NonBlockingLock(name string, owner rcmodel.NodeID) Lock {
	return &memoryLock{coord: c, name: name, owner: owner}
}

func (c *memoryCoordinator) Admin() Admin {
	return &memoryAdmin{coord: c}
}

func (c *memoryCoordinator) Close(context.Context) error { return nil }

func (c *memoryCoordinator) removeNode(uuid string) {
	c.mu.Lock()
	delete(c.nodes, uuid)
	c.mu.Unlock()
}

type memorySession struct {
	coord  *memoryCoordinator
	id     rcmodel.NodeID
	closed atomic.Bool
}

func (s *memorySession) NodeID() rcmodel.NodeID { return s.id }

func (s *memorySession) Close(context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.coord.removeNode(s.id.UUID)
	return nil
}

type memoryLock struct {
	coord *memoryCoordinator
	name  string
	owner rcmodel.NodeID

	mu      sync.Mutex
	held    bool
	version int64
}

func (l *memoryLock) Name() string { return l.name }

func (l *memoryLock) Acquire(_ context.Context) (LockResult, error) {
	l.coord.mu.Lock()
	defer l.coord.mu.Unlock()

	if existing, ok := l.coord.locks[l.name]; ok {
		return LockResult{Held: true, Owner: existing.info.Owner}, nil
	}

	l.mu.Lock()
	l.held = true
	l.version++
	version := l.version
	l.mu.Unlock()

	l.coord.locks[l.name] = &memoryLockEntry{
		info:    rcmodel.NonBlockingLockInfo{Name: l.name, Owner: l.owner},
		version: version,
	}
	return LockResult{Acquired: true}, nil
}

func (l *memoryLock) Watch() LockWatcher {
	return &memoryLockWatcher{lock: l, version: l.currentVersion()}
}

func (l *memoryLock) currentVersion() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

func (l *memoryLock) Release(_ context.Context) error {
	l.coord.mu.Lock()
	delete(l.coord.locks, l.name)
	l.coord.mu.Unlock()

	l.mu.Lock()
	l.held = false
	l.mu.Unlock()
	return nil
}

type memoryLockWatcher struct {
	lock    *memoryLock
	version int64
}

func (w *memoryLockWatcher) Inspect() bool {
	w.lock.mu.Lock()
	defer w.lock.mu.Unlock()
	return w.lock.held && w.lock.version == w.version
}

type memoryAdmin struct {
	coord *memoryCoordinator
}

func (a *memoryAdmin) NonBlockingLocks(context.Context) iter.Seq2[rcmodel.NonBlockingLockInfo, error] {
	return func(yield func(rcmodel.NonBlockingLockInfo, error) bool) {
		a.coord.mu.RLock()
		snapshot := make([]rcmodel.NonBlockingLockInfo, 0, len(a.coord.locks))
		for _, entry := range a.coord.locks {
			snapshot = append(snapshot, entry.info)
		}
		a.coord.mu.RUnlock()

		for _, info := range snapshot {
			if !yield(info, nil) {
				return
			}
		}
	}
}

func (a *memoryAdmin) Nodes(context.Context) iter.Seq2[rcmodel.NodeID, error] {
	return func(yield func(rcmodel.NodeID, error) bool) {
		a.coord.mu.RLock()
		snapshot := make([]rcmodel.NodeID, 0, len(a.coord.nodes))
		for _, id := range a.coord.nodes {
			snapshot = append(snapshot, id)
		}
		a.coord.mu.RUnlock()

		for _, id := range snapshot {
			if !yield(id, nil) {
				return
			}
		}
	}
}

func (a *memoryAdmin) ForceRelease(context.Context, string) error {
	return rcerror.New(rcerror.Unimplemented, "force_release is not implemented by any coordinator backend")
}
