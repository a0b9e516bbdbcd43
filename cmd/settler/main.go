// Command settler runs the settlement scheduler. With -once it performs a
// single pass, prints a report and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/muhvmmv/Tyche-Betting/internal/config"
	"github.com/muhvmmv/Tyche-Betting/internal/feed"
	"github.com/muhvmmv/Tyche-Betting/internal/infra"
	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/logging"
	"github.com/muhvmmv/Tyche-Betting/internal/metrics"
	"github.com/muhvmmv/Tyche-Betting/internal/notification"
	"github.com/muhvmmv/Tyche-Betting/internal/settlement"
)

const leaseKey = "settlement:lease"

func main() {
	once := flag.Bool("once", false, "run a single settlement pass and print a report")
	runMigrations := flag.Bool("migrate", false, "apply database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", "settler")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *once, *runMigrations); err != nil {
		logger.Error("settler failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, once, runMigrations bool) error {
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		if runMigrations {
			version, err := infra.MigrateUp(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("migrations applied", "version", version)
		}
		pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		db = pool
	} else {
		logger.Warn("DATABASE_URL not set, settling an empty in-memory ledger")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL, cfg.AppName+"-settler")
		if err != nil {
			return err
		}
		defer client.Close()
		cache = client
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	store, journal := ledger.Open(db)
	notifier, closeNotifier := buildNotifier(cfg, logger)
	defer closeNotifier()

	svc := settlement.NewService(store, journal, buildFeed(cfg, cache, logger), notifier, m, logger, settlement.Options{
		Workers:   cfg.Settlement.Workers,
		BatchSize: cfg.Settlement.BatchSize,
	})

	if once {
		rep, err := svc.Run(ctx)
		if err != nil {
			return err
		}
		printReport(os.Stdout, rep)
		return nil
	}

	metricsSrv := metrics.NewServer(cfg.MetricsPort, reg, nil)
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	var lease settlement.Lease
	if cache != nil {
		lease = settlement.NewRedisLease(cache, leaseKey, cfg.Settlement.LeaseTTL)
	}
	logger.Info("settlement scheduler started", "interval", cfg.Settlement.Interval, "workers", cfg.Settlement.Workers)
	return settlement.NewScheduler(svc, lease, cfg.Settlement.Interval, logger).Start(ctx)
}

func buildFeed(cfg config.Config, cache *redis.Client, logger *slog.Logger) feed.Feed {
	if cfg.Feed.APIKey == "" {
		logger.Warn("FEED_API_KEY not set, using an empty static feed")
		return feed.NewStatic()
	}
	var f feed.Feed = feed.NewAPIFootball(cfg.Feed.BaseURL, cfg.Feed.APIKey, cfg.Feed.RatePerSec, logger)
	if cache != nil {
		f = feed.NewCached(f, cache, cfg.Feed.CacheTTL, logger)
	}
	return f
}

func buildNotifier(cfg config.Config, logger *slog.Logger) (notification.Notifier, func()) {
	if !cfg.Kafka.Enabled() {
		return notification.NewLoggerNotifier(logger), func() {}
	}
	writer := infra.NewKafkaWriter(infra.SplitBrokers(cfg.Kafka.Brokers), cfg.Kafka.LedgerTopic)
	return notification.NewKafkaNotifier(writer), func() {
		if err := writer.Close(); err != nil {
			logger.Warn("close kafka writer", "error", err)
		}
	}
}
