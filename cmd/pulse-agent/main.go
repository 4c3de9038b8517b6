package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caduceuspress/pulse/pkg/agent"
	"github.com/caduceuspress/pulse/pkg/clientinfo"
	"github.com/caduceuspress/pulse/pkg/clock"
	"github.com/caduceuspress/pulse/pkg/collector"
	"github.com/caduceuspress/pulse/pkg/config"
	"github.com/caduceuspress/pulse/pkg/delivery"
	"github.com/caduceuspress/pulse/pkg/event"
	"github.com/caduceuspress/pulse/pkg/notify"
	"github.com/caduceuspress/pulse/pkg/observability"
	"github.com/caduceuspress/pulse/pkg/queue"
	"github.com/caduceuspress/pulse/pkg/session"
	"github.com/caduceuspress/pulse/pkg/stats"
	"github.com/caduceuspress/pulse/pkg/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file (environment variables override)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "pulse-agent: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadConfigFile(configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Observability.LogLevel), os.Stdout)

	// With metrics disabled every consumer sees a nil *Metrics and the
	// /metrics route is never registered.
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}
	clk := clock.Real()

	conns, err := postgres.NewConnectionManager(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conns.Close()

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conns.StartHealthCheckRoutine(rootCtx, 30*time.Second)

	// Redis is optional: without it, sessions live in process memory and
	// the change feed rides Postgres LISTEN/NOTIFY.
	var (
		store    session.Store = session.NewMemoryStore()
		notifier notify.Notifier
	)
	var health *observability.HealthChecker
	if cfg.Redis.URL != "" {
		redisClient, err := postgres.NewRedisClient(cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		store = session.NewRedisStore(redisClient, cfg.Pipeline.SessionTTL)
		notifier, err = notify.NewRedisNotifier(rootCtx, redisClient, logger, metrics)
		if err != nil {
			return err
		}
		health = observability.NewHealthChecker(conns.Primary(), redisClient)
	} else {
		notifier, err = notify.NewPostgresNotifier(rootCtx, cfg.Database.URL, logger, metrics)
		if err != nil {
			return err
		}
		health = observability.NewHealthChecker(conns.Primary(), nil)
	}

	sessions := session.NewManager(store, cfg.Pipeline.SessionTTL, clk, logger)

	deliveryClient := delivery.NewClient(conns.Primary(), logger,
		delivery.WithTimeout(cfg.Pipeline.DeliveryTimeout),
		delivery.WithMetrics(metrics),
	)

	backup, err := queue.NewSQLiteBackup(cfg.Pipeline.BackupPath, cfg.Pipeline.BackupLimit)
	if err != nil {
		return err
	}
	defer backup.Close()

	batch := queue.New(deliveryClient, clk, logger,
		queue.WithMaxSize(cfg.Pipeline.MaxQueueSize),
		queue.WithFlushInterval(cfg.Pipeline.FlushInterval),
		queue.WithBackup(backup),
		queue.WithMetrics(metrics),
	)
	batch.Restore(rootCtx)

	coll := collector.New(sessions, clientinfo.Static{Info: event.ClientInfo{UserAgent: "pulse-agent"}}, batch, deliveryClient, logger,
		collector.WithMetrics(metrics),
		collector.WithClock(clk),
	)

	statsService := stats.NewService(conns.Replica())
	cachedStats, err := stats.NewCachedService(statsService, cfg.Pipeline.StatsCacheSize, notifier, logger)
	if err != nil {
		return err
	}
	defer cachedStats.Close()

	scheduler, err := stats.NewScheduler(stats.NewAggregator(conns.Primary()), cfg.Pipeline.RollupSchedule, 5*time.Minute, logger)
	if err != nil {
		return err
	}
	scheduler.Start()

	server := agent.NewServer(
		agent.NewTrackHandlers(coll, logger),
		agent.NewStatsHandlers(cachedStats),
		health,
		metrics,
		logger,
	)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		// Final best-effort flush so buffered records are not stranded in
		// the backup file across a clean shutdown.
		batch.ForceFlush(ctx)
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return scheduler.Stop(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return notifier.Close()
	})

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("pulse agent listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http server failed")
		}
	}()

	return shutdown.WaitForShutdown()
}
