package tasks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/rcerror"
)

type memoryMessage struct {
	queue   Queue
	headers map[string]string
	payload []byte
	attempt int
	readyAt time.Time
}

// memoryBroker is a single-process Producer+WorkerSet pair used by tests
// and single-node dev mode. It does not persist across restarts.
type memoryBroker struct {
	log *zap.Logger

	mu       sync.Mutex
	messages map[string][]*memoryMessage
	workers  map[string]registeredWorker
	cond     *sync.Cond
}

type registeredWorker struct {
	queue       Queue
	concurrency int
	handler     Handler
}

// NewMemoryBroker builds an in-memory Producer+WorkerSet pair sharing
// the same backing queues.
func NewMemoryBroker(log *zap.Logger) (Producer, WorkerSet) {
	b := &memoryBroker{
		log:      log,
		messages: make(map[string][]*memoryMessage),
		workers:  make(map[string]registeredWorker),
	}
	b.cond = sync.NewCond(&b.mu)
	return b, b
}

func (b *memoryBroker) Request(_ context.Context, req TaskRequest, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	name := req.Queue.Name()
	b.messages[name] = append(b.messages[name], &memoryMessage{
		queue:   req.Queue,
		headers: cloneHeaders(req.Headers),
		payload: payload,
		attempt: 1,
		readyAt: time.Now(),
	})
	b.cond.Broadcast()
	return nil
}

func (b *memoryBroker) Worker(queue Queue, concurrency int, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if concurrency <= 0 {
		concurrency = 1
	}
	b.workers[queue.Name()] = registeredWorker{queue: queue, concurrency: concurrency, handler: handler}
	return nil
}

func (b *memoryBroker) Run(ctx context.Context) error {
	b.mu.Lock()
	workers := make([]registeredWorker, 0, len(b.workers))
	for _, w := range b.workers {
		workers = append(workers, w)
	}
	b.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range workers {
		for i := 0; i < w.concurrency; i++ {
			wg.Add(1)
			go func(w registeredWorker) {
				defer wg.Done()
				b.runWorker(ctx, w)
			}(w)
		}
	}

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	}()

	wg.Wait()
	return nil
}

func (b *memoryBroker) runWorker(ctx context.Context, w registeredWorker) {
	for {
		msg := b.pop(ctx, w.queue.Name())
		if msg == nil {
			return
		}
		b.deliver(ctx, w, msg)
	}
}

func (b *memoryBroker) pop(ctx context.Context, queueName string) *memoryMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return nil
		}
		queue := b.messages[queueName]
		now := time.Now()
		for i, m := range queue {
			if m.readyAt.After(now) {
				continue
			}
			b.messages[queueName] = append(append([]*memoryMessage{}, queue[:i]...), queue[i+1:]...)
			return m
		}
		b.cond.Wait()
	}
}

func (b *memoryBroker) deliver(ctx context.Context, w registeredWorker, msg *memoryMessage) {
	task := &memoryTask{broker: b, worker: w, msg: msg}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("worker handler panicked, treating as fail", zap.String("queue", w.queue.Name()), zap.Any("panic", r))
			_ = task.Fail(ctx)
		}
	}()
	w.handler(ctx, task)
}

func (b *memoryBroker) requeue(msg *memoryMessage, delay time.Duration) {
	b.mu.Lock()
	msg.attempt++
	msg.readyAt = time.Now().Add(delay)
	name := msg.queue.Name()
	b.messages[name] = append(b.messages[name], msg)
	b.mu.Unlock()

	// A delayed message's readiness change has no other waker, so a timer
	// re-broadcasts once it elapses to pull any sleeping worker out of
	// pop's cond.Wait.
	if delay <= 0 {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	time.AfterFunc(delay, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
}

func (b *memoryBroker) Close(context.Context) error { return nil }

func cloneHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

type memoryTask struct {
	broker *memoryBroker
	worker registeredWorker
	msg    *memoryMessage
}

func (t *memoryTask) Deserialize(v interface{}) error {
	if err := json.Unmarshal(t.msg.payload, v); err != nil {
		return rcerror.Wrap(rcerror.Deserialize, err, "decode task payload")
	}
	return nil
}

func (t *memoryTask) Headers() map[string]string { return t.msg.headers }

func (t *memoryTask) Attempt() int { return t.msg.attempt }

func (t *memoryTask) Success(context.Context) error { return nil }

func (t *memoryTask) Fail(context.Context) error {
	if t.msg.attempt >= t.worker.queue.MaxRetryCount() {
		t.broker.log.Warn("task exhausted retries, dropping",
			zap.String("queue", t.worker.queue.Name()), zap.Int("attempt", t.msg.attempt))
		return nil
	}
	t.broker.requeue(t.msg, t.worker.queue.RetryDelay())
	return nil
}
