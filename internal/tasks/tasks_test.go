package tasks_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/tasks"
)

type testQueue struct {
	name       string
	maxRetries int
	retryDelay time.Duration
}

func (q testQueue) Name() string                 { return q.name }
func (q testQueue) MaxRetryCount() int            { return q.maxRetries }
func (q testQueue) RetryDelay() time.Duration     { return q.retryDelay }

func TestRequestThenHandlerReceivesPayload(t *testing.T) {
	producer, workers := tasks.NewMemoryBroker(zap.NewNop())
	queue := testQueue{name: "q1", maxRetries: 3, retryDelay: time.Millisecond}

	var got string
	done := make(chan struct{})
	require.NoError(t, workers.Worker(queue, 1, func(ctx context.Context, task tasks.Task) {
		var payload string
		require.NoError(t, task.Deserialize(&payload))
		got = payload
		require.NoError(t, task.Success(ctx))
		close(done)
	}))

	payload, err := tasks.EncodePayload("hello")
	require.NoError(t, err)
	req := tasks.NewTaskRequest(queue)
	require.NoError(t, producer.Request(context.Background(), req, payload))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go workers.Run(ctx)

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("handler never ran")
	}
	require.Equal(t, "hello", got)
}

func TestFailRetriesUpToMaxThenDrops(t *testing.T) {
	producer, workers := tasks.NewMemoryBroker(zap.NewNop())
	queue := testQueue{name: "q2", maxRetries: 2, retryDelay: time.Millisecond}

	var attempts int32
	require.NoError(t, workers.Worker(queue, 1, func(ctx context.Context, task tasks.Task) {
		atomic.AddInt32(&attempts, 1)
		require.NoError(t, task.Fail(ctx))
	}))

	payload, err := tasks.EncodePayload("x")
	require.NoError(t, err)
	require.NoError(t, producer.Request(context.Background(), tasks.NewTaskRequest(queue), payload))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	workers.Run(ctx)

	require.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}
