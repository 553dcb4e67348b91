package coordinator

import (
	"context"
	"encoding/json"
	"iter"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/samuel/go-zookeeper/zk"
	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/rcerror"
	"github.com/replicante-io/replicore/internal/rcmodel"
)

// ZookeeperConfig configures the ZooKeeper-backed Coordinator, the
// reference backend named by spec.md §4.1.
type ZookeeperConfig struct {
	Ensemble      []string
	SessionTimeout time.Duration
	Root          string

	// CleanerIntervalMin/Max bound the uniform-random interval between
	// Cleaner sweeps of the node registry.
	CleanerIntervalMin time.Duration
	CleanerIntervalMax time.Duration
	// CleanerLimit is the maximum number of deletions per sweep.
	CleanerLimit int
}

// zookeeperCoordinator is the ZooKeeper-backed Coordinator.
type zookeeperCoordinator struct {
	conn    *zk.Conn
	cfg     ZookeeperConfig
	log     *zap.Logger
	cleaner *Cleaner
}

// NewZookeeperCoordinator dials the configured ZooKeeper ensemble and
// starts the background Cleaner. The returned Coordinator owns the
// connection and the Cleaner goroutine; Close stops both.
func NewZookeeperCoordinator(cfg ZookeeperConfig, log *zap.Logger) (Coordinator, error) {
	conn, _, err := zk.Connect(cfg.Ensemble, cfg.SessionTimeout)
	if err != nil {
		return nil, rcerror.Wrap(rcerror.Coordination, err, "connect to zookeeper ensemble %v", cfg.Ensemble)
	}

	c := &zookeeperCoordinator{conn: conn, cfg: cfg, log: log}
	c.cleaner = NewCleaner(c, cfg.CleanerIntervalMin, cfg.CleanerIntervalMax, cfg.CleanerLimit, log)
	c.cleaner.Start()
	return c, nil
}

// ensurePath creates every missing parent of path as a persistent znode.
// The last component is left for the caller to create with its own flags
// and payload.
func (c *zookeeperCoordinator) ensurePath(path string) error {
	parts := splitPath(path)
	if len(parts) > 0 {
		parts = parts[:len(parts)-1]
	}
	cur := ""
	for _, part := range parts {
		cur += "/" + part

		var exists bool
		if err := retryTransient(func() error {
			var existsErr error
			exists, _, existsErr = c.conn.Exists(cur)
			return existsErr
		}); err != nil {
			return err
		}
		if !exists {
			if err := retryTransient(func() error {
				_, createErr := c.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll))
				if createErr != nil && createErr != zk.ErrNodeExists {
					return createErr
				}
				return nil
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// retryTransient retries op against a short exponential backoff when it
// fails with zk.ErrConnectionClosed (a session blip the client reconnects
// from on its own); any other error is permanent and returned immediately.
func retryTransient(op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 2 * time.Second
	return backoff.Retry(func() error {
		err := op()
		if err == nil || err != zk.ErrConnectionClosed {
			if err != nil {
				return backoff.Permanent(err)
			}
			return nil
		}
		return err
	}, policy)
}

func splitPath(path string) []string {
	var parts []string
	cur := ""
	for _, r := range path {
		if r == '/' {
			if cur != "" {
				parts = append(parts, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		parts = append(parts, cur)
	}
	return parts
}

func (c *zookeeperCoordinator) RegisterNode(ctx context.Context, id rcmodel.NodeID) (Session, error) {
	payload, err := json.Marshal(id)
	if err != nil {
		return nil, rcerror.Wrap(rcerror.Deserialize, err, "encode node id")
	}

	path := nodePath(c.cfg.Root, id.UUID)
	if err := c.ensurePath(path); err != nil {
		return nil, rcerror.Wrap(rcerror.Backend, err, "create node registry path %s", path)
	}

	_, err = c.conn.Create(path, payload, zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		return nil, rcerror.Wrap(rcerror.Coordination, err, "register node %s", id.UUID)
	}
	return &zookeeperSession{coord: c, id: id, path: path}, nil
}

func (c *zookeeperCoordinator) NonBlockingLock(name string, owner rcmodel.NodeID) Lock {
	return &zookeeperLock{coord: c, name: name, path: lockPath(c.cfg.Root, name), owner: owner}
}

func (c *zookeeperCoordinator) Admin() Admin {
	return &zookeeperAdmin{coord: c}
}

func (c *zookeeperCoordinator) Close(context.Context) error {
	c.cleaner.Stop()
	c.conn.Close()
	return nil
}

type zookeeperSession struct {
	coord *zookeeperCoordinator
	id    rcmodel.NodeID
	path  string
}

func (s *zookeeperSession) NodeID() rcmodel.NodeID { return s.id }

func (s *zookeeperSession) Close(context.Context) error {
	err := s.coord.conn.Delete(s.path, -1)
	if err != nil && err != zk.ErrNoNode {
		return rcerror.Wrap(rcerror.Coordination, err, "close node session %s", s.id.UUID)
	}
	return nil
}

type zookeeperLock struct {
	coord *zookeeperCoordinator
	name  string
	path  string

	owner rcmodel.NodeID
}

func (l *zookeeperLock) Name() string { return l.name }

func (l *zookeeperLock) Acquire(ctx context.Context) (LockResult, error) {
	if err := l.coord.ensurePath(l.path); err != nil {
		return LockResult{}, rcerror.Wrap(rcerror.Backend, err, "create lock path %s", l.path)
	}

	payload, err := json.Marshal(rcmodel.NonBlockingLockInfo{Name: l.name, Owner: l.owner})
	if err != nil {
		return LockResult{}, rcerror.Wrap(rcerror.Deserialize, err, "encode lock info")
	}

	_, err = l.coord.conn.Create(l.path, payload, zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	switch err {
	case nil:
		return LockResult{Acquired: true}, nil
	case zk.ErrNodeExists:
		data, _, getErr := l.coord.conn.Get(l.path)
		if getErr != nil {
			return LockResult{}, rcerror.Wrap(rcerror.Backend, getErr, "read lock owner %s", l.name)
		}
		var info rcmodel.NonBlockingLockInfo
		if decodeErr := json.Unmarshal(data, &info); decodeErr != nil {
			return LockResult{}, rcerror.Wrap(rcerror.Deserialize, decodeErr, "decode lock owner %s", l.name)
		}
		return LockResult{Held: true, Owner: info.Owner}, nil
	default:
		return LockResult{}, rcerror.Wrap(rcerror.Backend, err, "acquire lock %s", l.name)
	}
}

func (l *zookeeperLock) Watch() LockWatcher {
	return &zookeeperLockWatcher{coord: l.coord, path: l.path, owner: l.owner.UUID}
}

func (l *zookeeperLock) Release(ctx context.Context) error {
	err := l.coord.conn.Delete(l.path, -1)
	if err != nil && err != zk.ErrNoNode {
		return rcerror.Wrap(rcerror.Coordination, err, "release lock %s", l.name)
	}
	return nil
}

// zookeeperLockWatcher implements LockWatcher by reading the lock znode
// and checking that the owner recorded in it is the owner this lock
// handle was built for. This is a plain read rather than a blocking
// ZooKeeper watch: spec.md §4.1 requires Inspect to "return false as soon
// as the session detects loss, without blocking", which a read satisfies
// without requiring the watcher to hold a live event channel open. Once
// a read fails, the znode is gone, or it names another owner, the
// watcher reports false from then on.
type zookeeperLockWatcher struct {
	coord *zookeeperCoordinator
	path  string
	owner string
	lost  atomic.Bool
}

func (w *zookeeperLockWatcher) Inspect() bool {
	if w.lost.Load() {
		return false
	}
	data, _, err := w.coord.conn.Get(w.path)
	var info rcmodel.NonBlockingLockInfo
	if err != nil || json.Unmarshal(data, &info) != nil || info.Owner.UUID != w.owner {
		w.lost.Store(true)
		return false
	}
	return true
}

type zookeeperAdmin struct {
	coord *zookeeperCoordinator
}

func (a *zookeeperAdmin) NonBlockingLocks(ctx context.Context) iter.Seq2[rcmodel.NonBlockingLockInfo, error] {
	return func(yield func(rcmodel.NonBlockingLockInfo, error) bool) {
		prefixes, _, err := a.coord.conn.Children(a.coord.cfg.Root + "/locks")
		if err != nil {
			if err != zk.ErrNoNode {
				yield(rcmodel.NonBlockingLockInfo{}, rcerror.Wrap(rcerror.Backend, err, "list lock prefixes"))
			}
			return
		}

		for _, prefix := range prefixes {
			names, _, err := a.coord.conn.Children(a.coord.cfg.Root + "/locks/" + prefix)
			if err != nil {
				if err == zk.ErrNoNode {
					// The prefix bucket disappeared between listing the
					// parent and listing this child: the lock ended
					// between list and read. Skip silently.
					continue
				}
				if !yield(rcmodel.NonBlockingLockInfo{}, rcerror.Wrap(rcerror.Backend, err, "list locks under %s", prefix)) {
					return
				}
				continue
			}
			for _, name := range names {
				path := a.coord.cfg.Root + "/locks/" + prefix + "/" + name
				data, _, err := a.coord.conn.Get(path)
				if err != nil {
					if err == zk.ErrNoNode {
						continue
					}
					if !yield(rcmodel.NonBlockingLockInfo{}, rcerror.Wrap(rcerror.Backend, err, "read lock %s", name)) {
						return
					}
					continue
				}
				var info rcmodel.NonBlockingLockInfo
				if err := json.Unmarshal(data, &info); err != nil {
					if !yield(rcmodel.NonBlockingLockInfo{}, rcerror.Wrap(rcerror.Deserialize, err, "decode lock %s", name)) {
						return
					}
					continue
				}
				if !yield(info, nil) {
					return
				}
			}
		}
	}
}

func (a *zookeeperAdmin) Nodes(ctx context.Context) iter.Seq2[rcmodel.NodeID, error] {
	return func(yield func(rcmodel.NodeID, error) bool) {
		prefixes, _, err := a.coord.conn.Children(a.coord.cfg.Root + "/nodes")
		if err != nil {
			if err != zk.ErrNoNode {
				yield(rcmodel.NodeID{}, rcerror.Wrap(rcerror.Backend, err, "list node prefixes"))
			}
			return
		}

		for _, prefix := range prefixes {
			ids, _, err := a.coord.conn.Children(a.coord.cfg.Root + "/nodes/" + prefix)
			if err != nil {
				if err == zk.ErrNoNode {
					continue
				}
				if !yield(rcmodel.NodeID{}, rcerror.Wrap(rcerror.Backend, err, "list nodes under %s", prefix)) {
					return
				}
				continue
			}
			for _, uuid := range ids {
				path := a.coord.cfg.Root + "/nodes/" + prefix + "/" + uuid
				data, _, err := a.coord.conn.Get(path)
				if err != nil {
					if err == zk.ErrNoNode {
						continue
					}
					if !yield(rcmodel.NodeID{}, rcerror.Wrap(rcerror.Backend, err, "read node %s", uuid)) {
						return
					}
					continue
				}
				var id rcmodel.NodeID
				if err := json.Unmarshal(data, &id); err != nil {
					if !yield(rcmodel.NodeID{}, rcerror.Wrap(rcerror.Deserialize, err, "decode node %s", uuid)) {
						return
					}
					continue
				}
				if !yield(id, nil) {
					return
				}
			}
		}
	}
}

// ForceRelease is a deliberate placeholder (spec.md §9 Open Questions):
// the ZooKeeper backend does not implement admin-initiated lock release.
// Rather than guess at safe semantics (what happens to a task holding the
// lock mid-refresh?), it always reports Unimplemented.
func (a *zookeeperAdmin) ForceRelease(context.Context, string) error {
	return rcerror.New(rcerror.Unimplemented, "force_release: not implemented by the zookeeper coordinator backend")
}
