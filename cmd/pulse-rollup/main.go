package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caduceuspress/pulse/pkg/config"
	"github.com/caduceuspress/pulse/pkg/observability"
	"github.com/caduceuspress/pulse/pkg/stats"
	"github.com/caduceuspress/pulse/pkg/storage/postgres"
)

var (
	configPath = flag.String("config", "", "Path to YAML configuration file (environment variables override)")
	runOnce    = flag.Bool("run-once", false, "Run one rollup and exit")
	date       = flag.String("date", "", "Date to roll up (YYYY-MM-DD, defaults to yesterday). Only used with --run-once")
	backfill   = flag.Int("backfill", 0, "Recompute the last N days before starting. Only used with --run-once")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pulse-rollup: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadConfigFile(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Observability.LogLevel), os.Stdout)

	conns, err := postgres.NewConnectionManager(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conns.Close()

	aggregator := stats.NewAggregator(conns.Primary())

	if *runOnce {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if *backfill > 0 {
			logger.WithField("days", *backfill).Info("backfilling daily rollups")
			if err := aggregator.Backfill(ctx, *backfill, time.Now().UTC()); err != nil {
				return err
			}
		}

		day := time.Now().UTC().AddDate(0, 0, -1)
		if *date != "" {
			day, err = time.Parse("2006-01-02", *date)
			if err != nil {
				return fmt.Errorf("invalid date: %w", err)
			}
		}

		logger.WithField("date", day.Format("2006-01-02")).Info("running rollup")
		return aggregator.AggregateDaily(ctx, day)
	}

	scheduler, err := stats.NewScheduler(aggregator, cfg.Pipeline.RollupSchedule, 10*time.Minute, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	logger.WithField("schedule", cfg.Pipeline.RollupSchedule).Info("rollup scheduler started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return scheduler.Stop(ctx)
}
