package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/replicante-io/replicore/internal/rcerror"
	"github.com/replicante-io/replicore/internal/rcmodel"
)

// Queue is implemented by the caller for each distinct task type. Name
// identifies the underlying topic/queue; MaxRetryCount and RetryDelay
// bound the at-least-once retry policy applied by WorkerSet.
type Queue interface {
	Name() string
	MaxRetryCount() int
	RetryDelay() time.Duration
}

// TaskRequest describes one task to enqueue: which Queue it belongs to,
// plus headers (including the trace context) carried as message
// metadata.
type TaskRequest struct {
	Queue   Queue
	Headers map[string]string
}

// NewTaskRequest builds a TaskRequest with an empty header set.
func NewTaskRequest(queue Queue) TaskRequest {
	return TaskRequest{Queue: queue, Headers: map[string]string{}}
}

// Header attaches or updates a single header.
func (r *TaskRequest) Header(key, value string) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	r.Headers[key] = value
}

// WithHeaders merges the given headers into the request.
func (r *TaskRequest) WithHeaders(headers map[string]string) {
	for k, v := range headers {
		r.Header(k, v)
	}
}

// Producer enqueues task requests.
type Producer interface {
	Request(ctx context.Context, req TaskRequest, payload []byte) error
}

// Task is handed to a registered handler on delivery. Exactly one of
// Success/Fail must be called before the handler returns.
type Task interface {
	// Deserialize decodes the task payload (JSON-encoded) into v.
	Deserialize(v interface{}) error
	// Headers returns the message headers, including the trace context
	// under rcmodel.TraceHeaderKey if the producer set one.
	Headers() map[string]string
	// Attempt is the 1-based delivery attempt count.
	Attempt() int
	// Success acknowledges the task; it will not be redelivered.
	Success(ctx context.Context) error
	// Fail negative-acknowledges the task; the backend re-enqueues it up
	// to the owning Queue's MaxRetryCount after RetryDelay, then drops it
	// (or routes it to a dead-letter queue, backend's choice).
	Fail(ctx context.Context) error
}

// Handler processes one Task. A handler that panics is treated by
// WorkerSet as equivalent to calling Fail.
type Handler func(ctx context.Context, task Task)

// WorkerSet binds one handler per queue and runs a pool of workers
// concurrently consuming each queue, honouring cooperative cancellation
// through ctx.
type WorkerSet interface {
	// Worker registers handler for queue, to be run with concurrency
	// parallel workers once Run starts.
	Worker(queue Queue, concurrency int, handler Handler) error
	// Run starts all registered workers and blocks until ctx is cancelled
	// or an unrecoverable backend error occurs.
	Run(ctx context.Context) error
	Close(ctx context.Context) error
}

// EncodePayload JSON-encodes a task payload for Producer.Request.
func EncodePayload(v interface{}) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, rcerror.Wrap(rcerror.Deserialize, err, "encode task payload")
	}
	return payload, nil
}

// NewClusterRefreshRequest builds the TaskRequest/payload pair for the
// ClusterRefresh queue, copying traceHeaders (if any) onto the request.
func NewClusterRefreshRequest(queue Queue, payload rcmodel.ClusterRefreshPayload, traceHeaders map[string]string) (TaskRequest, []byte, error) {
	req := NewTaskRequest(queue)
	req.WithHeaders(traceHeaders)
	body, err := EncodePayload(payload)
	if err != nil {
		return TaskRequest{}, nil, err
	}
	return req, body, nil
}
