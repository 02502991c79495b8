package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dcrespo-dev/orderstream/api/ops"
	"github.com/dcrespo-dev/orderstream/internal/alerts"
	"github.com/dcrespo-dev/orderstream/internal/ingest"
	"github.com/dcrespo-dev/orderstream/internal/queue"
	"github.com/dcrespo-dev/orderstream/internal/records"
	"github.com/dcrespo-dev/orderstream/pkg/config"
	"github.com/dcrespo-dev/orderstream/pkg/db"
	dbmodels "github.com/dcrespo-dev/orderstream/pkg/db/models"
	"github.com/dcrespo-dev/orderstream/pkg/logger"
	"github.com/dcrespo-dev/orderstream/pkg/metrics"
	"github.com/dcrespo-dev/orderstream/pkg/pubsub"
	"github.com/dcrespo-dev/orderstream/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "ingest-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "ingest-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if cfg.FeatureFlags.AutoMigrate {
		if err := dbClient.DB().AutoMigrate(&dbmodels.OrderRecord{}); err != nil {
			logg.Error(ctx, "failed to run dev migrations", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	sink, err := alerts.NewPubSubSink(pubsubClient.AlertsPublisher())
	if err != nil {
		logg.Error(ctx, "failed to create alert sink", err)
		os.Exit(1)
	}
	dedupe, err := alerts.NewDedupe(redisClient, cfg.Alerts.DedupeTTL)
	if err != nil {
		logg.Error(ctx, "failed to create alert dedupe", err)
		os.Exit(1)
	}
	alertService, err := alerts.NewService(alerts.ServiceParams{
		Sink:            sink,
		Dedupe:          dedupe,
		AmountThreshold: cfg.Alerts.AmountThreshold,
		Logger:          logg,
		Metrics:         pipelineMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create alert service", err)
		os.Exit(1)
	}

	enricher, err := ingest.NewEnricher(cfg.Ingest.RecordByteBudget, nil)
	if err != nil {
		logg.Error(ctx, "failed to create enricher", err)
		os.Exit(1)
	}

	processor, err := ingest.NewProcessor(ingest.ProcessorParams{
		Enricher: enricher,
		Store:    records.NewRepository(dbClient.DB()),
		Alerts:   alertService,
		Workers:  cfg.Ingest.Workers,
		Logger:   logg,
		Metrics:  pipelineMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create processor", err)
		os.Exit(1)
	}

	source, err := queue.NewPubSubSource(
		pubsubClient.OrdersSubscription(),
		cfg.Ingest.MaxBatchSize,
		cfg.Ingest.BatchWait,
		logg,
	)
	if err != nil {
		logg.Error(ctx, "failed to create queue source", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Redis:     redisClient,
		PubSub:    pubsubClient,
		Source:    source,
		Processor: processor,
	})
	if err != nil {
		logg.Error(ctx, "failed to create worker service", err)
		os.Exit(1)
	}

	opsServer := &http.Server{
		Addr:    ":" + cfg.App.MetricsPort,
		Handler: ops.NewRouter(cfg, logg, registry),
	}
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "ops server stopped unexpectedly", err)
		}
	}()
	defer func() {
		if err := opsServer.Shutdown(context.Background()); err != nil {
			logg.Error(ctx, "error shutting down ops server", err)
		}
	}()

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"subscription": cfg.PubSub.OrdersSubscription,
	})
	logg.Info(logCtx, "starting ingest worker")

	if err := service.Run(ctx); err != nil && err != context.Canceled {
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}
