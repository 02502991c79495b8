package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dcrespo-dev/orderstream/pkg/db/models"
	pkgerrors "github.com/dcrespo-dev/orderstream/pkg/errors"
	"github.com/dcrespo-dev/orderstream/pkg/logger"
	"github.com/dcrespo-dev/orderstream/pkg/metrics"
)

// StoreWriter is the persistence capability the processor depends on.
type StoreWriter interface {
	Upsert(ctx context.Context, record *models.OrderRecord) error
}

// AlertEvaluator applies the notification rules. Implementations are
// best-effort and must never propagate failures back into the pipeline.
type AlertEvaluator interface {
	EvaluateOrder(ctx context.Context, record *models.OrderRecord)
	EvaluateInvalid(ctx context.Context, orderID string, reasons []string)
}

// Processor runs the per-message pipeline and aggregates batch outcomes.
// Messages are processed independently: a failure in one never aborts its
// siblings.
type Processor struct {
	enricher *Enricher
	store    StoreWriter
	alerts   AlertEvaluator
	workers  int
	logg     *logger.Logger
	metrics  *metrics.PipelineMetrics
}

type ProcessorParams struct {
	Enricher *Enricher
	Store    StoreWriter
	Alerts   AlertEvaluator
	Workers  int
	Logger   *logger.Logger
	Metrics  *metrics.PipelineMetrics
}

func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.Enricher == nil {
		return nil, errors.New("enricher is required")
	}
	if params.Store == nil {
		return nil, errors.New("store writer is required")
	}
	if params.Alerts == nil {
		return nil, errors.New("alert evaluator is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	workers := params.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		enricher: params.Enricher,
		store:    params.Store,
		alerts:   params.Alerts,
		workers:  workers,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// ProcessBatch runs every message through the pipeline with bounded
// concurrency and returns the aggregated outcomes. Outcomes land in a
// per-index slot, so no shared mutable state crosses messages.
func (p *Processor) ProcessBatch(ctx context.Context, messages []RawMessage) BatchResult {
	started := time.Now()
	outcomes := make([]Outcome, len(messages))

	var group errgroup.Group
	group.SetLimit(p.workers)
	for i, msg := range messages {
		group.Go(func() error {
			outcomes[i] = p.processMessage(ctx, msg)
			return nil
		})
	}
	_ = group.Wait()

	for _, outcome := range outcomes {
		p.metrics.IncMessage(string(outcome.Status))
	}
	p.metrics.ObserveBatch("ingest", time.Since(started))

	return BatchResult{Outcomes: outcomes}
}

func (p *Processor) processMessage(ctx context.Context, msg RawMessage) (outcome Outcome) {
	logCtx := p.logg.WithDeliveryID(ctx, msg.DeliveryID)

	defer func() {
		if r := recover(); r != nil {
			p.logg.Error(logCtx, "message pipeline panicked", fmt.Errorf("%v", r))
			outcome = Outcome{
				DeliveryID: msg.DeliveryID,
				Status:     StatusFailed,
				Reason:     "internal panic",
			}
		}
	}()

	event, err := ParseEvent(msg.Body)
	if err != nil {
		p.logg.Error(logCtx, "failed to parse message", err)
		return p.classify(msg.DeliveryID, err)
	}
	logCtx = p.logg.WithOrderID(logCtx, event.OrderID)

	result := ValidateEvent(event)
	if !result.Valid {
		// Permanent data defect: acknowledge so the queue stops
		// redelivering, alert instead of persisting.
		p.logg.Warn(p.logg.WithField(logCtx, "reasons", strings.Join(result.Reasons, "; ")), "event failed validation")
		p.alerts.EvaluateInvalid(logCtx, event.OrderID, result.Reasons)
		return Outcome{DeliveryID: msg.DeliveryID, Status: StatusSuccess}
	}

	record, err := p.enricher.Enrich(event)
	if err != nil {
		p.logg.Error(logCtx, "failed to enrich event", err)
		return p.classify(msg.DeliveryID, err)
	}
	if record.Truncated {
		p.metrics.IncTruncation()
		p.logg.Warn(logCtx, "record compacted to fit byte budget")
	}

	if err := p.store.Upsert(ctx, record); err != nil {
		p.logg.Error(logCtx, "failed to persist record", err)
		return p.classify(msg.DeliveryID, err)
	}

	p.alerts.EvaluateOrder(logCtx, record)

	p.logg.Info(logCtx, "message processed")
	return Outcome{DeliveryID: msg.DeliveryID, Status: StatusSuccess}
}

// classify maps a pipeline error to the outcome contract: retryable errors
// report Failed so the queue redelivers, terminal ones are acknowledged.
func (p *Processor) classify(deliveryID string, err error) Outcome {
	if !pkgerrors.IsRetryable(err) {
		return Outcome{DeliveryID: deliveryID, Status: StatusSuccess}
	}
	reason := err.Error()
	if typed := pkgerrors.As(err); typed != nil {
		reason = typed.Message()
	}
	return Outcome{DeliveryID: deliveryID, Status: StatusFailed, Reason: reason}
}
