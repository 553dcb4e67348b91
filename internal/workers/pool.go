package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/rcerror"
	"github.com/replicante-io/replicore/internal/refresh"
	"github.com/replicante-io/replicore/internal/tasks"
	"github.com/replicante-io/replicore/internal/upkeep"
)

// ClusterRefreshQueue describes the ClusterRefresh queue's retry policy
// (spec.md §7: max_retry_count=3, retry_delay=10s).
type ClusterRefreshQueue struct{}

func (ClusterRefreshQueue) Name() string              { return "cluster_refresh" }
func (ClusterRefreshQueue) MaxRetryCount() int         { return 3 }
func (ClusterRefreshQueue) RetryDelay() time.Duration  { return 10 * time.Second }

// Config toggles which queues this process consumes from, mirroring
// spec.md §6's task_workers.* keys.
type Config struct {
	ClusterRefresh bool
	Concurrency    int // workers per queue; 0 defaults to 1.
}

// Pool binds configured handlers onto a tasks.WorkerSet and runs it for
// the lifetime of an upkeep.Upkeep registration.
type Pool struct {
	log       *zap.Logger
	workerSet tasks.WorkerSet
	config    Config
}

// New configures pool's workers. Registration failures are surfaced
// immediately as rcerror.TaskWorkerRegistration(queue) — spec.md §7 marks
// this kind fatal: the process should exit rather than start degraded.
func New(log *zap.Logger, workerSet tasks.WorkerSet, config Config, refreshHandler *refresh.Handler) (*Pool, error) {
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	if config.ClusterRefresh {
		queue := ClusterRefreshQueue{}
		if err := workerSet.Worker(queue, concurrency, refreshHandler.Handle); err != nil {
			return nil, rcerror.Wrap(rcerror.TaskWorkerRegistration, err, "register worker for queue %s", queue.Name())
		}
	}

	return &Pool{log: log, workerSet: workerSet, config: config}, nil
}

// Run registers pool as an upkeep thread: it runs the WorkerSet until
// shutdown closes, then closes the WorkerSet's own resources.
func (p *Pool) Run(up *upkeep.Upkeep) {
	up.Spawn("task-workers", func(shutdown <-chan struct{}) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-shutdown
			cancel()
		}()

		if err := p.workerSet.Run(ctx); err != nil && ctx.Err() == nil {
			p.log.Error("task worker pool exited unexpectedly", zap.Error(err))
			up.Fatal("task worker pool exited unexpectedly", zap.Error(err))
		}
		if err := p.workerSet.Close(context.Background()); err != nil {
			p.log.Error("error closing task worker pool", zap.Error(err))
		}
	})
}
