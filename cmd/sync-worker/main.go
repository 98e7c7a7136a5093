package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/caiomonteiro/imovia-backend/internal/brokers"
	"github.com/caiomonteiro/imovia-backend/internal/cron"
	"github.com/caiomonteiro/imovia-backend/internal/events"
	"github.com/caiomonteiro/imovia-backend/internal/payments"
	"github.com/caiomonteiro/imovia-backend/pkg/asaas"
	"github.com/caiomonteiro/imovia-backend/pkg/config"
	"github.com/caiomonteiro/imovia-backend/pkg/db"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
	"github.com/caiomonteiro/imovia-backend/pkg/metrics"
	"github.com/caiomonteiro/imovia-backend/pkg/migrate"
	"github.com/caiomonteiro/imovia-backend/pkg/pubsub"
	"github.com/caiomonteiro/imovia-backend/pkg/redis"
)

const lockKeyFormat = "imovia:sync-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sync-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
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

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.GCP.ProjectID != "" && cfg.PubSub.EntitlementTopic != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP.ProjectID, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher, err = events.NewPubSubPublisher(pubsubClient, cfg.PubSub.EntitlementTopic, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create entitlement publisher", err)
			os.Exit(1)
		}
	}

	gateway, err := asaas.NewClient(cfg.Asaas.APIKey, cfg.Asaas.Environment())
	if err != nil {
		logg.Error(context.Background(), "failed to create asaas client", err)
		os.Exit(1)
	}

	brokerRepo := brokers.NewRepository(dbClient.DB())
	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:              payments.NewRepository(dbClient.DB()),
		BrokerRepo:        brokerRepo,
		TransactionRunner: dbClient,
		Events:            publisher,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	syncJob, err := cron.NewPaymentSyncJob(cron.PaymentSyncJobParams{
		BrokerRepo:   brokerRepo,
		Payments:     paymentService,
		Gateway:      gateway,
		Logger:       logg,
		PageSize:     cfg.Sync.BrokerPageSize,
		PaymentLimit: cfg.Sync.PaymentLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment sync job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(syncJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Sync.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting sync worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sync worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
