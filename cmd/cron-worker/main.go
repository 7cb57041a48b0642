package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/artvault-backend/internal/cron"
	"github.com/angelmondragon/artvault-backend/internal/platform"
	"github.com/angelmondragon/artvault-backend/pkg/config"
	"github.com/angelmondragon/artvault-backend/pkg/db"
	"github.com/angelmondragon/artvault-backend/pkg/instance"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
	"github.com/angelmondragon/artvault-backend/pkg/metrics"
	"github.com/angelmondragon/artvault-backend/pkg/migrate"
	"github.com/angelmondragon/artvault-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	services, err := platform.NewServices(context.Background(), platform.Params{
		Config:   cfg,
		Logger:   logg,
		Tx:       dbClient,
		DB:       dbClient.DB(),
		Registry: prometheus.DefaultRegisterer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	// A crashed holder must not block more than a couple of cycles.
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), 2*cfg.Cron.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, services)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.GetID(),
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")
	metrics.Serve(ctx, cfg.Service.MetricsAddr, logg)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, services *platform.Services) (*cron.Registry, error) {
	integrity, err := cron.NewIntegrityJob(cron.IntegrityJobParams{Logger: logg, Banking: services.Banking})
	if err != nil {
		return nil, err
	}
	credits, err := cron.NewSubscriptionCreditsJob(cron.SubscriptionCreditsJobParams{
		Logger:        logg,
		Subscriptions: services.Subscriptions,
		Recorder:      services.Transactions,
	})
	if err != nil {
		return nil, err
	}
	poll, err := cron.NewPayoutPollJob(cron.PayoutPollJobParams{
		Logger:  logg,
		Payouts: services.Payouts,
		Limit:   cfg.Payouts.PollBatch,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: services.Outbox,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(credits, poll, integrity, retention)
}
