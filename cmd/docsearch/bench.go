package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var defaultBenchQueries = []string{
	"CHSH inequality",
	"network ansatz",
	"optimization",
	"nonlocality witnesses",
	"quantum networks",
	"gradient descent",
	"network -tomography",
	"qnetvo.NetworkAnsatz",
}

type benchConfig struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	limit       int
	queries     []string
}

type benchStats struct {
	total   atomic.Int64
	success atomic.Int64
	errors  atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func (s *benchStats) record(d time.Duration, code int, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if code >= 200 && code < 300 {
		s.success.Add(1)
	} else {
		s.errors.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.codes[code]++
	s.mu.Unlock()
}

func newBenchCmd() *cobra.Command {
	cfg := benchConfig{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load-test a running search service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.concurrency < 1 {
				return fmt.Errorf("concurrency must be positive")
			}
			if len(cfg.queries) == 0 {
				cfg.queries = defaultBenchQueries
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "target %s, %d workers, %s, %d queries\n",
				cfg.baseURL, cfg.concurrency, cfg.duration, len(cfg.queries))
			stats := runBench(cmd.Context(), cfg)
			printBenchReport(out, stats, cfg.duration)
			if stats.total.Load() == 0 {
				return fmt.Errorf("no requests completed; is the service running at %s?", cfg.baseURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.baseURL, "url", "http://localhost:8080", "base URL of the search service")
	cmd.Flags().IntVarP(&cfg.concurrency, "concurrency", "c", 10, "concurrent workers")
	cmd.Flags().DurationVarP(&cfg.duration, "duration", "d", 30*time.Second, "test duration")
	cmd.Flags().IntVar(&cfg.limit, "limit", 10, "limit parameter sent with each query")
	cmd.Flags().StringArrayVarP(&cfg.queries, "query", "q", nil, "query to send (repeatable)")
	return cmd
}

// runBench cycles each worker through the queries, offset by its id, until
// the duration elapses.
func runBench(ctx context.Context, cfg benchConfig) *benchStats {
	stats := &benchStats{codes: make(map[int]int64)}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.concurrency * 2,
			MaxIdleConnsPerHost: cfg.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	defer client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, cfg.duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				q := cfg.queries[i%len(cfg.queries)]
				target := cfg.baseURL + "/api/v1/search?q=" + url.QueryEscape(q) + "&limit=" + strconv.Itoa(cfg.limit)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				d := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					stats.record(d, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(d, resp.StatusCode, nil)
			}
			return nil
		})
	}
	_ = g.Wait()
	return stats
}

func printBenchReport(w io.Writer, stats *benchStats, duration time.Duration) {
	total := stats.total.Load()
	errs := stats.errors.Load()
	summary := newTable("METRIC", "VALUE")
	summary.Row("requests", strconv.FormatInt(total, 10))
	summary.Row("successful", strconv.FormatInt(stats.success.Load(), 10))
	summary.Row("errors", strconv.FormatInt(errs, 10))
	if total > 0 {
		summary.Row("error rate", fmt.Sprintf("%.2f%%", float64(errs)/float64(total)*100))
		summary.Row("requests/sec", fmt.Sprintf("%.2f", float64(total)/duration.Seconds()))
	}

	stats.mu.Lock()
	latencies := append([]time.Duration(nil), stats.latencies...)
	codes := make([]int, 0, len(stats.codes))
	for code := range stats.codes {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(stats.codes))
	for code, n := range stats.codes {
		counts[code] = n
	}
	stats.mu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))
		var sq float64
		for _, l := range latencies {
			diff := float64(l - avg)
			sq += diff * diff
		}
		summary.Row("latency min", latencies[0].String())
		summary.Row("latency avg", avg.String())
		summary.Row("latency p50", benchPercentile(latencies, 50).String())
		summary.Row("latency p90", benchPercentile(latencies, 90).String())
		summary.Row("latency p95", benchPercentile(latencies, 95).String())
		summary.Row("latency p99", benchPercentile(latencies, 99).String())
		summary.Row("latency max", latencies[len(latencies)-1].String())
		summary.Row("latency stddev", time.Duration(math.Sqrt(sq/float64(len(latencies)))).String())
	}
	sort.Ints(codes)
	for _, code := range codes {
		summary.Row("status "+strconv.Itoa(code), strconv.FormatInt(counts[code], 10))
	}
	fmt.Fprintln(w, summary)
}

// benchPercentile uses the nearest-rank method.
func benchPercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
