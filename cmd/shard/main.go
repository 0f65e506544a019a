package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/kestrelsearch/shardquery/internal/cache"
	"github.com/kestrelsearch/shardquery/internal/ranker"
	"github.com/kestrelsearch/shardquery/internal/segment"
	"github.com/kestrelsearch/shardquery/internal/shard"
	"github.com/kestrelsearch/shardquery/pkg/config"
	"github.com/kestrelsearch/shardquery/pkg/health"
	"github.com/kestrelsearch/shardquery/pkg/logger"
	"github.com/kestrelsearch/shardquery/pkg/metrics"
	pkgredis "github.com/kestrelsearch/shardquery/pkg/redis"
)

// exit codes per spec §6.4.
const (
	exitOK              = 0
	exitBadArgs         = 1
	exitDirEnumeration  = 2
	exitEmptySegmentSet = 3
	exitAllSegmentsDead = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: shard <segment-directory> [port]")
		return exitBadArgs
	}
	dataDir := args[0]

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return exitBadArgs
	}
	cfg.Segment.DataDir = dataDir
	if len(args) >= 2 {
		port, err := parsePort(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid port %q: %v\n", args[1], err)
			return exitBadArgs
		}
		cfg.Server.Port = port
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting shard", "data_dir", cfg.Segment.DataDir, "port", cfg.Server.Port)

	paths, err := shard.DiscoverSegmentPaths(cfg.Segment.DataDir)
	if err != nil {
		slog.Error("segment directory enumeration failed", "error", err)
		return exitDirEnumeration
	}
	if len(paths) == 0 {
		slog.Error("no .bin segment files found", "dir", cfg.Segment.DataDir)
		return exitEmptySegmentSet
	}

	m := metrics.New()
	budget := segment.NewMlockBudget(cfg.Segment.MlockCapBytes)
	set, err := shard.OpenSet(paths, budget, cfg.Segment.MadviseWill, m)
	if err != nil {
		slog.Error("every segment failed to open", "dir", cfg.Segment.DataDir, "error", err)
		return exitAllSegmentsDead
	}
	defer set.Close()
	slog.Info("segment set ready", "segments", len(set.Segments()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var resultCache *cache.ResultCache
	var redisClient *pkgredis.Client
	if cfg.Cache.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Cache)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			resultCache = cache.New(redisClient, cfg.Cache)
			slog.Info("result cache enabled", "addr", cfg.Cache.Addr, "ttl", cfg.Cache.TTL)
		}
	}

	checker := health.NewChecker()
	checker.Register("segments", func(ctx context.Context) health.ComponentHealth {
		n := len(set.Segments())
		if n > 0 {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d segments loaded", n)}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "no segments"}
	})
	checker.Register("cache", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	params := ranker.Params{Workers: cfg.Ranker.Workers, MaxDocs: cfg.Ranker.MaxDocs}
	srv := shard.NewServer(set, params, resultCache, m)

	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port, checker)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		if err := srv.Serve(ctx, addr); err != nil {
			slog.Error("accept loop error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")
	if metricsShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		metricsShutdown(shutdownCtx)
		cancel()
	}
	slog.Info("shard stopped")
	return exitOK
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("out of range")
	}
	return port, nil
}
