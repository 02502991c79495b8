package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dcrespo-dev/orderstream/internal/ingest"
	"github.com/dcrespo-dev/orderstream/internal/queue"
	"github.com/dcrespo-dev/orderstream/pkg/config"
	"github.com/dcrespo-dev/orderstream/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

type batchProcessor interface {
	ProcessBatch(ctx context.Context, messages []ingest.RawMessage) ingest.BatchResult
}

type ServiceParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        pinger
	Redis     pinger
	PubSub    pinger
	Source    queue.Source
	Processor batchProcessor
}

// Service ties the queue source to the batch processor and owns the worker
// lifecycle.
type Service struct {
	cfg       *config.Config
	logg      *logger.Logger
	db        pinger
	redis     pinger
	pubsub    pinger
	source    queue.Source
	processor batchProcessor
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Source == nil {
		return nil, errors.New("queue source is required")
	}
	if params.Processor == nil {
		return nil, errors.New("batch processor is required")
	}

	return &Service{
		cfg:       params.Config,
		logg:      params.Logger,
		db:        params.DB,
		redis:     params.Redis,
		pubsub:    params.PubSub,
		source:    params.Source,
		processor: params.Processor,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run consumes batches until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	err := s.source.Run(ctx, s.handleBatch)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logg.Error(ctx, "queue source stopped unexpectedly", err)
		return err
	}
	s.logg.Info(ctx, "worker context canceled")
	return err
}

func (s *Service) handleBatch(ctx context.Context, batch queue.Batch) queue.Result {
	messages := make([]ingest.RawMessage, 0, len(batch.Deliveries))
	for _, delivery := range batch.Deliveries {
		messages = append(messages, ingest.RawMessage{
			DeliveryID: delivery.ID,
			Body:       delivery.Body,
		})
	}

	logCtx := s.logg.WithBatchID(ctx, batch.ID)
	result := s.processor.ProcessBatch(logCtx, messages)

	if failures := result.FailureCount(); failures > 0 {
		s.logg.Warn(s.logg.WithField(logCtx, "failures", failures), "batch completed with failures")
	}
	return queue.Result{FailedDeliveryIDs: result.FailedDeliveryIDs()}
}
