// Package collector batches the indexer's flush events on their way to
// Kafka. Projects sharing a flush tick finish together, so events arrive in
// bursts and are cheaper to publish as one write.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// BatchPublisher is satisfied by *kafka.Producer.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Stats reports delivery counters since start.
type Stats struct {
	Buffered  int   `json:"buffered"`
	Published int64 `json:"published"`
	Dropped   int64 `json:"dropped"`
	Failures  int64 `json:"failures"`
}

// BatchCollector publishes when batchSize events are pending or every
// flushInterval. After a failed publish the events stay pending; beyond
// three batches the oldest are dropped.
type BatchCollector struct {
	producer  BatchPublisher
	batchSize int
	interval  time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	pending []analytics.IndexEvent

	published atomic.Int64
	dropped   atomic.Int64
	failures  atomic.Int64

	kick chan struct{}
	done chan struct{}
}

func NewBatchCollector(producer BatchPublisher, batchSize int, interval time.Duration) *BatchCollector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &BatchCollector{
		producer:  producer,
		batchSize: batchSize,
		interval:  interval,
		logger:    slog.Default().With("component", "flush-event-batcher"),
		pending:   make([]analytics.IndexEvent, 0, batchSize),
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start runs the publish loop until ctx is cancelled, then publishes what
// is still pending once more.
func (bc *BatchCollector) Start(ctx context.Context) {
	go bc.run(ctx)
	bc.logger.Info("flush event batcher started",
		"batch_size", bc.batchSize,
		"interval", bc.interval,
	)
}

func (bc *BatchCollector) run(ctx context.Context) {
	defer close(bc.done)
	ticker := time.NewTicker(bc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bc.flush(ctx)
		case <-bc.kick:
			bc.flush(ctx)
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			bc.flush(final)
			cancel()
			return
		}
	}
}

// Track queues ev for publishing, keyed by project.
func (bc *BatchCollector) Track(ev analytics.IndexEvent) {
	bc.mu.Lock()
	bc.pending = append(bc.pending, ev)
	full := len(bc.pending) >= bc.batchSize
	bc.mu.Unlock()

	if full {
		select {
		case bc.kick <- struct{}{}:
		default:
		}
	}
}

// Close waits for the loop started by Start; cancel its context first.
func (bc *BatchCollector) Close() {
	<-bc.done
}

func (bc *BatchCollector) Stats() Stats {
	bc.mu.Lock()
	buffered := len(bc.pending)
	bc.mu.Unlock()
	return Stats{
		Buffered:  buffered,
		Published: bc.published.Load(),
		Dropped:   bc.dropped.Load(),
		Failures:  bc.failures.Load(),
	}
}

func (bc *BatchCollector) flush(ctx context.Context) {
	bc.mu.Lock()
	batch := bc.pending
	bc.pending = make([]analytics.IndexEvent, 0, bc.batchSize)
	bc.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	msgs := make([]kafka.Event, len(batch))
	for i, ev := range batch {
		msgs[i] = kafka.Event{Key: ev.Project, Value: ev}
	}
	if err := bc.producer.PublishBatch(ctx, msgs); err != nil {
		bc.failures.Add(1)
		bc.logger.Error("publishing flush events failed", "events", len(batch), "error", err)
		bc.requeue(batch)
		return
	}
	bc.published.Add(int64(len(batch)))
	bc.logger.Debug("flush events published", "events", len(batch))
}

// requeue puts a failed batch back in front of anything tracked since.
func (bc *BatchCollector) requeue(batch []analytics.IndexEvent) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.pending = append(batch, bc.pending...)
	if limit := bc.batchSize * 3; len(bc.pending) > limit {
		over := len(bc.pending) - limit
		bc.pending = append([]analytics.IndexEvent(nil), bc.pending[over:]...)
		bc.dropped.Add(int64(over))
		bc.logger.Warn("flush event backlog full, oldest dropped", "dropped", over)
	}
}
