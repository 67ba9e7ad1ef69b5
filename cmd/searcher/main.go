package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/registry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "indexes", len(cfg.Search.Indexes))

	adminKeys, err := apikey.NewKeyring(cfg.Auth.AdminKeyHashes)
	if err != nil {
		slog.Error("invalid admin keys", "error", err)
		os.Exit(1)
	}
	if !adminKeys.Enabled() {
		slog.Warn("no admin keys configured, mutating endpoints are open")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	reg := registry.New(cfg.Search.Indexes,
		registry.WithMetrics(m),
		registry.WithOnReload(func(ctx context.Context, name string) {
			if queryCache == nil {
				return
			}
			if _, err := queryCache.Invalidate(ctx); err != nil {
				slog.Warn("cache invalidation after reload failed", "index", name, "error", err)
			}
		}),
	)
	if err := reg.Load(ctx); err != nil {
		slog.Error("some indexes failed to load", "error", err)
	}
	slog.Info("indexes loaded", "names", reg.Names())

	var wg sync.WaitGroup
	if cfg.Search.Watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := reg.Watch(ctx, cfg.Search.WatchDebounce); err != nil {
				slog.Error("index watcher stopped", "error", err)
			}
		}()
	}

	// Every replica must see every index-complete event, so each uses its
	// own consumer group.
	host, _ := os.Hostname()
	group := fmt.Sprintf("%s-searcher-%s-%d", cfg.Kafka.ConsumerGroup, host, os.Getpid())
	reloadConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete,
		reg.ReloadHandler(cfg.Search.ProjectTemplate), kafka.WithGroupID(group))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := reloadConsumer.Start(ctx); err != nil {
			slog.Error("reload consumer error", "error", err)
		}
	}()

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	collector := analytics.NewCollector(analyticsProducer, cfg.Analytics.BufferSize)
	collector.Start(ctx)

	checker := health.NewChecker()
	checker.Register("indexes", func(ctx context.Context) health.ComponentHealth {
		loaded, configured := len(reg.Names()), len(reg.Configured())
		switch {
		case loaded == 0:
			return health.ComponentHealth{Status: health.StatusDown, Message: "no indexes loaded"}
		case loaded < configured:
			return health.ComponentHealth{Status: health.StatusDegraded, Message: fmt.Sprintf("%d of %d indexes loaded", loaded, configured)}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d indexes loaded", loaded)}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		return health.Ping(false, redisClient.Ping)(ctx)
	})

	exec := executor.NewMulti(reg, ranker.FromConfig(cfg.Search.Scorer), cfg.Search.TimeoutPerIndex)
	opts := []handler.Option{handler.WithMetrics(m), handler.WithCollector(collector)}
	if queryCache != nil {
		opts = append(opts, handler.WithCache(queryCache))
	}
	h := handler.New(exec, reg, cfg.Search.DefaultLimit, cfg.Search.MaxResults, opts...)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = apikey.RequireForWrites(adminKeys)(chain)
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		limiter.StartCleanup(ctx, time.Minute)
		chain = middleware.RateLimit(limiter, m)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(cfg.CORS)(chain)
	chain = middleware.RequestID(chain)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer shutdownMetrics(context.Background())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	stop()
	collector.Close()
	wg.Wait()
	slog.Info("search service stopped")
}
