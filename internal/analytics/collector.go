package analytics

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector hands search events to a background publisher. Track never
// blocks: when the queue is full the event is counted as dropped.
type Collector struct {
	producer Publisher
	queue    chan SearchEvent
	logger   *slog.Logger
	done     chan struct{}
	dropped  atomic.Int64

	mu     sync.RWMutex
	closed bool
}

func NewCollector(producer Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		queue:    make(chan SearchEvent, bufferSize),
		logger:   slog.Default().With("component", "search-event-collector"),
		done:     make(chan struct{}),
	}
}

// Start publishes queued events until ctx is cancelled or Close is called.
// Whatever is still queued at that point is published before returning.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case ev, ok := <-c.queue:
				if !ok {
					return
				}
				c.publish(ctx, ev)
			case <-ctx.Done():
				c.drain()
				return
			}
		}
	}()
	c.logger.Info("search event collector started", "queue_size", cap(c.queue))
}

func (c *Collector) Track(ev SearchEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.queue <- ev:
	default:
		if n := c.dropped.Add(1); n == 1 || n%1000 == 0 {
			c.logger.Warn("search event queue full, dropping events", "dropped_total", n)
		}
	}
}

// Dropped reports how many events Track discarded.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and waits for the queue to drain. Start
// must have been called.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
	c.mu.Unlock()
	<-c.done
}

// publish keys events by their index set so one index's stream stays on a
// single partition.
func (c *Collector) publish(ctx context.Context, ev SearchEvent) {
	key := strings.Join(ev.Indexes, ",")
	if key == "" {
		key = string(ev.Type)
	}
	if err := c.producer.Publish(ctx, kafka.Event{Key: key, Value: ev}); err != nil {
		c.logger.Error("publishing search event failed", "query", ev.Query, "error", err)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case ev, ok := <-c.queue:
			if !ok {
				return
			}
			c.publish(context.Background(), ev)
		default:
			return
		}
	}
}
