package upkeep

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

// Upkeep is a registry of background threads sharing one shutdown
// channel. Spawn registers a thread; Shutdown closes the channel once;
// Wait blocks until every spawned thread has returned.
type Upkeep struct {
	log *zap.Logger

	wg        sync.WaitGroup
	shutdown  chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	exitCode int
}

// New builds an empty Upkeep.
func New(log *zap.Logger) *Upkeep {
	return &Upkeep{log: log, shutdown: make(chan struct{})}
}

// Keepalive returns the shutdown channel. It is closed exactly once, by
// Shutdown; threads select on it to notice they should wind down.
func (u *Upkeep) Keepalive() <-chan struct{} {
	return u.shutdown
}

// Spawn runs fn in a tracked goroutine, passing it the shutdown channel.
// Wait does not return until fn has returned.
func (u *Upkeep) Spawn(name string, fn func(shutdown <-chan struct{})) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.log.Debug("upkeep thread started", zap.String("thread", name))
		fn(u.shutdown)
		u.log.Debug("upkeep thread stopped", zap.String("thread", name))
	}()
}

// Shutdown closes the shutdown channel. Safe to call more than once or
// concurrently; only the first call has effect.
func (u *Upkeep) Shutdown() {
	u.closeOnce.Do(func() { close(u.shutdown) })
}

// Fatal records a non-zero process exit code and triggers Shutdown. Used
// by the poisoned-mutex policy (spec.md §5): a panic recovered mid
// critical section is unrecoverable, so the whole process winds down
// rather than continuing with corrupted state.
func (u *Upkeep) Fatal(reason string, fields ...zap.Field) {
	u.log.Error("fatal condition, shutting down", append(fields, zap.String("reason", reason))...)
	u.mu.Lock()
	u.exitCode = 1
	u.mu.Unlock()
	u.Shutdown()
}

// ExitCode returns the process exit code Wait's caller should use: 0
// unless Fatal was ever called.
func (u *Upkeep) ExitCode() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.exitCode
}

// Wait blocks until every thread spawned via Spawn has returned.
func (u *Upkeep) Wait() {
	u.wg.Wait()
}

// HandleSignals spawns a goroutine that calls Shutdown on receipt of any
// of sig (SIGINT/SIGTERM by default when none given).
func (u *Upkeep) HandleSignals(sig ...os.Signal) {
	if len(sig) == 0 {
		sig = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig...)
	go func() {
		received := <-ch
		u.log.Info("received shutdown signal", zap.String("signal", received.String()))
		u.Shutdown()
	}()
}
