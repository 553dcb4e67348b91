package coordinator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/samuel/go-zookeeper/zk"
	"go.uber.org/zap"
)

// Cleaner periodically scans the node registry and removes znodes that
// have no children and whose version has not changed since they were
// listed, matching
// original_source/coordinator/src/backend/zookeeper/backend/cleaner.rs.
//
// It exists because an ephemeral znode can, in rare back-end-specific
// circumstances, outlive the session that created it (e.g. a session
// re-established under a new ID before the old ephemeral node expired).
// The Cleaner is a belt-and-suspenders sweep, not the primary mechanism
// for registration lifecycle.
type Cleaner struct {
	coord *zookeeperCoordinator
	min   time.Duration
	max   time.Duration
	limit int
	log   *zap.Logger

	timeouts int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCleaner builds a Cleaner. Call Start to begin the background sweep
// loop; it does nothing until Start is called.
func NewCleaner(coord *zookeeperCoordinator, min, max time.Duration, limit int, log *zap.Logger) *Cleaner {
	if min <= 0 {
		min = 30 * time.Second
	}
	if max <= min {
		max = min + 30*time.Second
	}
	if limit <= 0 {
		limit = 50
	}
	return &Cleaner{coord: coord, min: min, max: max, limit: limit, log: log}
}

// Start launches the sweep loop in a background goroutine. It is safe to
// call Start at most once per Cleaner.
func (c *Cleaner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.loop(ctx)
}

// Stop signals the sweep loop to exit and blocks until it has.
func (c *Cleaner) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Timeouts reports how many OperationTimeout errors the cleaner has
// observed on delete attempts across its lifetime.
func (c *Cleaner) Timeouts() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeouts
}

func (c *Cleaner) loop(ctx context.Context) {
	defer close(c.done)

	for {
		interval := c.jitteredInterval()
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			c.sweep(ctx)
		}
	}
}

func (c *Cleaner) jitteredInterval() time.Duration {
	span := c.max - c.min
	if span <= 0 {
		return c.min
	}
	return c.min + time.Duration(rand.Int63n(int64(span)))
}

func (c *Cleaner) sweep(ctx context.Context) {
	root := c.coord.cfg.Root + "/nodes"
	prefixes, _, err := c.coord.conn.Children(root)
	if err != nil {
		if err != zk.ErrNoNode {
			c.log.Warn("node registry cleaner: failed to list prefixes", zap.Error(err))
		}
		return
	}

	deleted := 0
	for _, prefix := range prefixes {
		if deleted >= c.limit {
			return
		}
		children, _, err := c.coord.conn.Children(root + "/" + prefix)
		if err != nil {
			if err == zk.ErrNoNode {
				continue
			}
			c.log.Warn("node registry cleaner: failed to list nodes", zap.String("prefix", prefix), zap.Error(err))
			continue
		}

		for _, child := range children {
			if deleted >= c.limit {
				return
			}
			path := root + "/" + prefix + "/" + child
			_, stat, err := c.coord.conn.Children(path)
			if err != nil {
				if err == zk.ErrNoNode {
					continue
				}
				continue
			}
			if stat.NumChildren != 0 {
				continue
			}

			if err := c.coord.conn.Delete(path, stat.Version); err != nil {
				switch err {
				case zk.ErrNoNode, zk.ErrNotEmpty:
					// Raced with a concurrent registration or deletion;
					// not our problem.
				case zk.ErrOperationTimeout:
					c.mu.Lock()
					c.timeouts++
					c.mu.Unlock()
					c.log.Warn("node registry cleaner: delete timed out", zap.String("path", path), zap.Error(err))
				default:
					c.log.Warn("node registry cleaner: delete failed", zap.String("path", path), zap.Error(err))
				}
				continue
			}
			deleted++
		}
	}
}
