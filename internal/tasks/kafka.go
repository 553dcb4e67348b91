package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/replicante-io/replicore/internal/rcerror"
)

const attemptHeader = "x-replicore-attempt"

// KafkaConfig configures the Kafka-backed task queue.
type KafkaConfig struct {
	Brokers             []string
	ConsumerGroupPrefix string
	ClientID            string
}

type kafkaProducer struct {
	client  *kgo.Client
	metrics *kafkaMetrics
}

// NewKafkaProducer builds a Producer over the given Kafka brokers.
func NewKafkaProducer(cfg KafkaConfig) (Producer, error) {
	metrics := newKafkaMetrics("producer")
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.WithHooks(metrics),
	)
	if err != nil {
		return nil, rcerror.Wrap(rcerror.Backend, err, "create kafka producer client")
	}

	go metrics.pollBrokers(context.Background(), client, 30*time.Second)
	return &kafkaProducer{client: client, metrics: metrics}, nil
}

func headersToKafka(headers map[string]string) []kgo.RecordHeader {
	out := make([]kgo.RecordHeader, 0, len(headers))
	for k, v := range headers {
		out = append(out, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	return out
}

func headersFromKafka(headers []kgo.RecordHeader) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func (p *kafkaProducer) Request(ctx context.Context, req TaskRequest, payload []byte) error {
	record := &kgo.Record{
		Topic:   req.Queue.Name(),
		Value:   payload,
		Headers: headersToKafka(req.Headers),
	}
	result := p.client.ProduceSync(ctx, record)
	if err := result.FirstErr(); err != nil {
		return rcerror.Wrap(rcerror.Backend, err, "produce to queue %s", req.Queue.Name())
	}
	return nil
}

// kafkaWorkerSet runs one dedicated consumer client per queue, matching
// the reference implementation's one-consumer-group-per-queue topology.
type kafkaWorkerSet struct {
	cfg KafkaConfig
	log *zap.Logger

	mu      sync.Mutex
	workers map[string]registeredWorker
}

// NewKafkaWorkerSet builds a WorkerSet over the given Kafka brokers.
func NewKafkaWorkerSet(cfg KafkaConfig, log *zap.Logger) WorkerSet {
	return &kafkaWorkerSet{cfg: cfg, log: log, workers: make(map[string]registeredWorker)}
}

func (w *kafkaWorkerSet) Worker(queue Queue, concurrency int, handler Handler) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if concurrency <= 0 {
		concurrency = 1
	}
	w.workers[queue.Name()] = registeredWorker{queue: queue, concurrency: concurrency, handler: handler}
	return nil
}

func (w *kafkaWorkerSet) Run(ctx context.Context) error {
	w.mu.Lock()
	workers := make([]registeredWorker, 0, len(w.workers))
	for _, rw := range w.workers {
		workers = append(workers, rw)
	}
	w.mu.Unlock()

	var wg sync.WaitGroup
	errs := make(chan error, len(workers))
	for _, rw := range workers {
		wg.Add(1)
		go func(rw registeredWorker) {
			defer wg.Done()
			if err := w.runQueue(ctx, rw); err != nil {
				errs <- err
			}
		}(rw)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		return err
	}
	return nil
}

func (w *kafkaWorkerSet) runQueue(ctx context.Context, rw registeredWorker) error {
	group := fmt.Sprintf("%s%s", w.cfg.ConsumerGroupPrefix, rw.queue.Name())
	metrics := newKafkaMetrics("consumer")
	client, err := kgo.NewClient(
		kgo.SeedBrokers(w.cfg.Brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(rw.queue.Name()),
		kgo.AutoCommitMarks(),
		kgo.WithHooks(metrics),
	)
	if err != nil {
		return rcerror.Wrap(rcerror.Backend, err, "create kafka consumer for queue %s", rw.queue.Name())
	}
	defer client.Close()

	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()
	go metrics.pollBrokers(pollCtx, client, 30*time.Second)

	sem := make(chan struct{}, rw.concurrency)
	var inflight sync.WaitGroup

	for {
		if ctx.Err() != nil {
			inflight.Wait()
			return nil
		}
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			inflight.Wait()
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			w.log.Error("kafka fetch error", zap.String("topic", topic), zap.Int32("partition", partition), zap.Error(err))
		})

		fetches.EachRecord(func(record *kgo.Record) {
			sem <- struct{}{}
			inflight.Add(1)
			go func(record *kgo.Record) {
				defer inflight.Done()
				defer func() { <-sem }()
				w.deliver(ctx, client, rw, record)
			}(record)
		})
	}
}

func (w *kafkaWorkerSet) deliver(ctx context.Context, client *kgo.Client, rw registeredWorker, record *kgo.Record) {
	task := &kafkaTask{workerSet: w, client: client, rw: rw, record: record}
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("worker handler panicked, treating as fail",
				zap.String("queue", rw.queue.Name()), zap.Any("panic", r))
			_ = task.Fail(ctx)
		}
	}()
	rw.handler(ctx, task)
}

type kafkaTask struct {
	workerSet *kafkaWorkerSet
	client    *kgo.Client
	rw        registeredWorker
	record    *kgo.Record
}

func (t *kafkaTask) Deserialize(v interface{}) error {
	if err := json.Unmarshal(t.record.Value, v); err != nil {
		return rcerror.Wrap(rcerror.Deserialize, err, "decode task payload")
	}
	return nil
}

func (t *kafkaTask) Headers() map[string]string { return headersFromKafka(t.record.Headers) }

func (t *kafkaTask) Attempt() int {
	for _, h := range t.record.Headers {
		if h.Key == attemptHeader {
			if n, err := strconv.Atoi(string(h.Value)); err == nil {
				return n
			}
		}
	}
	return 1
}

func (t *kafkaTask) Success(ctx context.Context) error {
	t.client.MarkCommitRecords(t.record)
	return nil
}

// Fail re-produces the task onto its own queue after RetryDelay, bumping
// the attempt header, unless MaxRetryCount has been reached — in which
// case the record is dropped (committed without redelivery).
func (t *kafkaTask) Fail(ctx context.Context) error {
	t.client.MarkCommitRecords(t.record)

	attempt := t.Attempt()
	if attempt >= t.rw.queue.MaxRetryCount() {
		t.workerSet.log.Warn("task exhausted retries, dropping",
			zap.String("queue", t.rw.queue.Name()), zap.Int("attempt", attempt))
		return nil
	}

	delay := t.rw.queue.RetryDelay()
	headers := headersFromKafka(t.record.Headers)
	headers[attemptHeader] = strconv.Itoa(attempt + 1)

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		record := &kgo.Record{Topic: t.rw.queue.Name(), Value: t.record.Value, Headers: headersToKafka(headers)}
		result := t.client.ProduceSync(context.Background(), record)
		if err := result.FirstErr(); err != nil {
			t.workerSet.log.Error("failed to requeue task", zap.String("queue", t.rw.queue.Name()), zap.Error(err))
		}
	}()
	return nil
}
