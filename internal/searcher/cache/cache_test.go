package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
	gets atomic.Int32
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.gets.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, false, errors.New("connection refused")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("connection refused")
	}
	m.data[key] = value
	return nil
}

func (m *memStore) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func sample(query string) *executor.SearchResult {
	return &executor.SearchResult{
		Query:     query,
		TotalHits: 1,
		Results:   []ranker.Result{{Index: "qnetvo", DocName: "optimization", Title: "Optimization", Score: 101}},
	}
}

func TestKeyNormalization(t *testing.T) {
	assert.Equal(t, Key("CHSH  inequality", 10, []string{"b", "a"}), Key(" chsh inequality ", 10, []string{"a", "b"}))
	assert.NotEqual(t, Key("chsh", 10, nil), Key("chsh", 20, nil))
	assert.NotEqual(t, Key("chsh", 10, []string{"a"}), Key("chsh", 10, nil))
	assert.NotEqual(t, Key("chsh inequality", 10, nil), Key("inequality chsh", 10, nil))
}

func TestGetOrCompute(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := New(newMemStore(), time.Minute, m)
	ctx := context.Background()
	var calls int
	compute := func(context.Context) (*executor.SearchResult, error) {
		calls++
		return sample("optimization"), nil
	}

	res, hit, err := c.GetOrCompute(ctx, "optimization", 10, nil, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, res.TotalHits)

	res, hit, err = c.GetOrCompute(ctx, "Optimization", 10, nil, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Optimization", res.Query)
	assert.Equal(t, 1, calls)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
	st := c.Stats()
	assert.Equal(t, 0.5, st.HitRate)
	assert.Equal(t, "closed", st.Breaker)
}

func TestPartialResultsNotCached(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	_, _, err := c.GetOrCompute(context.Background(), "q", 10, nil, func(context.Context) (*executor.SearchResult, error) {
		r := sample("q")
		r.Failed = map[string]string{"other": "timeout"}
		return r, nil
	})
	require.NoError(t, err)
	assert.Empty(t, store.data)
}

func TestComputeErrorPropagates(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	_, _, err := c.GetOrCompute(context.Background(), "q", 10, nil, func(context.Context) (*executor.SearchResult, error) {
		return nil, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestBreakerOpensOnStoreFailures(t *testing.T) {
	store := newMemStore()
	store.fail = true
	m := metrics.New(prometheus.NewRegistry())
	c := New(store, time.Minute, m)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		res, hit, err := c.GetOrCompute(ctx, "q", 10, nil, func(context.Context) (*executor.SearchResult, error) {
			return sample("q"), nil
		})
		require.NoError(t, err, "store outage degrades to uncached search")
		assert.False(t, hit)
		assert.NotNil(t, res)
	}
	assert.Equal(t, "open", c.Stats().Breaker)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("redis-cache")))
	assert.Less(t, store.gets.Load(), int32(10), "open breaker stops calling the store")
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	store.data["unrelated"] = []byte("x")
	c := New(store, time.Minute, nil)
	ctx := context.Background()
	c.Set(ctx, Key("a", 10, nil), sample("a"))
	c.Set(ctx, Key("b", 10, nil), sample("b"))

	n, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, store.data, "unrelated")
}

func TestSingleflightCollapsesConcurrentMisses(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), "network", 10, nil, func(context.Context) (*executor.SearchResult, error) {
				calls.Add(1)
				<-release
				return sample("network"), nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestSharedComputeOutlivesFirstCaller(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	var once sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return sample("network"), nil
	}

	type outcome struct {
		res *executor.SearchResult
		err error
	}
	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan outcome, 1)
	go func() {
		res, _, err := c.GetOrCompute(firstCtx, "network", 10, nil, compute)
		first <- outcome{res, err}
	}()
	<-started

	second := make(chan outcome, 1)
	go func() {
		res, _, err := c.GetOrCompute(context.Background(), "NETWORK", 10, nil, compute)
		second <- outcome{res, err}
	}()
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(release)

	a, b := <-first, <-second
	require.NoError(t, a.err, "cancelling the first caller does not fail the flight")
	require.NoError(t, b.err)
	assert.Equal(t, "network", a.res.Query)
	assert.Equal(t, "NETWORK", b.res.Query)
	assert.NotSame(t, a.res, b.res)
}
