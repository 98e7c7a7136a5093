package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/caiomonteiro/imovia-backend/api/routes"
	"github.com/caiomonteiro/imovia-backend/internal/brokers"
	"github.com/caiomonteiro/imovia-backend/internal/events"
	"github.com/caiomonteiro/imovia-backend/internal/feed"
	"github.com/caiomonteiro/imovia-backend/internal/payments"
	"github.com/caiomonteiro/imovia-backend/internal/properties"
	asaaswebhook "github.com/caiomonteiro/imovia-backend/internal/webhooks/asaas"
	"github.com/caiomonteiro/imovia-backend/pkg/config"
	"github.com/caiomonteiro/imovia-backend/pkg/db"
	"github.com/caiomonteiro/imovia-backend/pkg/logger"
	"github.com/caiomonteiro/imovia-backend/pkg/metrics"
	"github.com/caiomonteiro/imovia-backend/pkg/migrate"
	"github.com/caiomonteiro/imovia-backend/pkg/pubsub"
	"github.com/caiomonteiro/imovia-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	webhookService, err := asaaswebhook.NewService(asaaswebhook.ServiceParams{
		Repo:       asaaswebhook.NewRepository(dbClient.DB()),
		BrokerRepo: brokerRepo,
		Payments:   paymentService,
		Metrics:    metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	feedService, err := feed.NewService(feed.ServiceParams{
		PropertyRepo:  properties.NewRepository(dbClient.DB()),
		BrokerRepo:    brokerRepo,
		Logger:        logg,
		Metrics:       metrics.NewFeedMetrics(prometheus.DefaultRegisterer),
		PublisherName: cfg.Feed.PublisherName,
		ContactEmail:  cfg.Feed.ContactEmail,
		MaxImages:     cfg.Feed.MaxImages,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create feed service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Gatherer:       prometheus.DefaultGatherer,
		WebhookService: webhookService,
		FeedGenerator:  feedService,
		PaymentLister:  paymentService,
		WebhookMonitor: webhookService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
