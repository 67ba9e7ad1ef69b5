package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    bool
}

func (r *recorder) PublishBatch(_ context.Context, events []kafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.batches = append(r.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (r *recorder) events() []kafka.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []kafka.Event
	for _, b := range r.batches {
		all = append(all, b...)
	}
	return all
}

func flushed(project string, docs int) analytics.IndexEvent {
	return analytics.IndexEvent{Type: analytics.EventIndexFlush, Project: project, Documents: docs}
}

func TestPublishesFullBatchKeyedByProject(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	bc := NewBatchCollector(rec, 3, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	bc.Start(ctx)

	bc.Track(flushed("qnetvo", 19))
	bc.Track(flushed("pennylane", 4))
	bc.Track(flushed("qnetvo", 20))
	require.Eventually(t, func() bool { return len(rec.events()) == 3 }, 2*time.Second, 5*time.Millisecond)

	got := rec.events()
	assert.Equal(t, "qnetvo", got[0].Key)
	assert.Equal(t, "pennylane", got[1].Key)
	assert.Equal(t, 20, got[2].Value.(analytics.IndexEvent).Documents)

	cancel()
	bc.Close()
	assert.Equal(t, int64(3), bc.Stats().Published)
}

func TestFinalPublishOnShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	bc := NewBatchCollector(rec, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	bc.Start(ctx)
	bc.Track(flushed("qnetvo", 19))
	assert.Equal(t, 1, bc.Stats().Buffered)

	cancel()
	bc.Close()
	assert.Len(t, rec.events(), 1)
	assert.Zero(t, bc.Stats().Buffered)
}

func TestFailedPublishKeepsNewestThreeBatches(t *testing.T) {
	rec := &recorder{fail: true}
	bc := NewBatchCollector(rec, 2, time.Hour)
	for i := 0; i < 10; i++ {
		bc.Track(flushed("qnetvo", i))
	}
	bc.flush(context.Background())

	stats := bc.Stats()
	assert.Equal(t, 6, stats.Buffered)
	assert.Equal(t, int64(4), stats.Dropped)
	assert.Equal(t, int64(1), stats.Failures)

	rec.mu.Lock()
	rec.fail = false
	rec.mu.Unlock()
	bc.flush(context.Background())
	got := rec.events()
	require.Len(t, got, 6)
	assert.Equal(t, 4, got[0].Value.(analytics.IndexEvent).Documents, "oldest events were dropped")
	assert.Equal(t, int64(6), bc.Stats().Published)
}
