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
	"github.com/segmentio/kafka-go"

	"github.com/muhvmmv/Tyche-Betting/internal/config"
	"github.com/muhvmmv/Tyche-Betting/internal/deposit"
	"github.com/muhvmmv/Tyche-Betting/internal/infra"
	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/logging"
	"github.com/muhvmmv/Tyche-Betting/internal/metrics"
	"github.com/muhvmmv/Tyche-Betting/internal/notification"
	"github.com/muhvmmv/Tyche-Betting/internal/routes"
	"github.com/muhvmmv/Tyche-Betting/internal/server"
)

func main() {
	runMigrations := flag.Bool("migrate", false, "apply database migrations before serving")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", "api")
	slog.SetDefault(logger)

	if err := run(context.Background(), cfg, logger, *runMigrations); err != nil {
		logger.Error("api failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, runMigrations bool) error {
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
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		db = pool
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory ledger")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL, cfg.AppName+"-api")
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		cache = client
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, journal := ledger.Open(db)

	var notifier notification.Notifier = notification.NewLoggerNotifier(logger)
	var reader *kafka.Reader
	if cfg.Kafka.Enabled() {
		brokers := infra.SplitBrokers(cfg.Kafka.Brokers)
		writer := infra.NewKafkaWriter(brokers, cfg.Kafka.LedgerTopic)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Warn("close kafka writer", "error", err)
			}
		}()
		notifier = notification.NewKafkaNotifier(writer)
		reader = infra.NewKafkaReader(brokers, cfg.Kafka.PaymentsTopic, cfg.Kafka.GroupID)
		defer reader.Close()
	}

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		DB:       db,
		Cache:    cache,
		Store:    store,
		Journal:  journal,
		Notifier: notifier,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	consumerDone := make(chan struct{})
	if reader != nil {
		consumer := deposit.NewConsumer(reader, deposit.NewService(store, journal, notifier, m, logger), m, logger)
		go func() {
			defer close(consumerDone)
			logger.Info("payment consumer started", "topic", cfg.Kafka.PaymentsTopic, "group", cfg.Kafka.GroupID)
			if err := consumer.Run(runCtx); err != nil {
				logger.Error("payment consumer stopped", "error", err)
			}
		}()
	} else {
		close(consumerDone)
	}

	metricsSrv := metrics.NewServer(cfg.MetricsPort, reg, func(ctx context.Context) error {
		if db != nil {
			return db.Ping(ctx)
		}
		return nil
	})
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case serveErr = <-srvErrCh:
		if serveErr != nil {
			serveErr = fmt.Errorf("serve: %w", serveErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown", "error", err)
	}
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Warn("payment consumer did not stop in time")
	}

	if serveErr != nil {
		return serveErr
	}
	logger.Info("server exited cleanly")
	return nil
}
