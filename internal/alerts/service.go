package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dcrespo-dev/orderstream/pkg/db/models"
	"github.com/dcrespo-dev/orderstream/pkg/logger"
	"github.com/dcrespo-dev/orderstream/pkg/metrics"
	"github.com/shopspring/decimal"
)

type deduper interface {
	CheckAndMark(ctx context.Context, kind Kind, orderID string) (bool, error)
	Release(ctx context.Context, kind Kind, orderID string) error
}

// Service evaluates the alert rules and dispatches notifications. Every path
// through it is best-effort: failures are logged and counted, never returned,
// so alerting can never block a record's durability.
type Service struct {
	sink      Sink
	dedupe    deduper
	threshold decimal.Decimal
	logg      *logger.Logger
	metrics   *metrics.PipelineMetrics
}

type ServiceParams struct {
	Sink            Sink
	Dedupe          *Dedupe
	AmountThreshold float64
	Logger          *logger.Logger
	Metrics         *metrics.PipelineMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Sink == nil {
		return nil, errors.New("alert sink is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	svc := &Service{
		sink:      params.Sink,
		threshold: decimal.NewFromFloat(params.AmountThreshold),
		logg:      params.Logger,
		metrics:   params.Metrics,
	}
	if params.Dedupe != nil {
		svc.dedupe = params.Dedupe
	}
	return svc, nil
}

// EvaluateOrder publishes a LargeOrder alert when the persisted amount is
// strictly above the configured threshold.
func (s *Service) EvaluateOrder(ctx context.Context, record *models.OrderRecord) {
	if record == nil {
		return
	}
	if record.Amount.Cmp(s.threshold) <= 0 {
		return
	}
	detail := fmt.Sprintf("amount %s %s for customer %s", record.Amount.StringFixed(2), record.Currency, record.CustomerRef)
	s.publish(ctx, Alert{Kind: KindLargeOrder, OrderID: record.OrderID, Detail: detail})
}

// EvaluateInvalid publishes an InvalidData alert carrying the validation
// reasons for a permanently defective event.
func (s *Service) EvaluateInvalid(ctx context.Context, orderID string, reasons []string) {
	detail := strings.Join(reasons, "; ")
	if detail == "" {
		detail = "validation failed"
	}
	s.publish(ctx, Alert{Kind: KindInvalidData, OrderID: orderID, Detail: detail})
}

func (s *Service) publish(ctx context.Context, alert Alert) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"alert_kind": string(alert.Kind),
		"order_id":   alert.OrderID,
	})

	if s.dedupe != nil && alert.OrderID != "" {
		already, err := s.dedupe.CheckAndMark(ctx, alert.Kind, alert.OrderID)
		if err != nil {
			// Dedupe is an optimization; publish anyway.
			s.logg.Warn(logCtx, "alert dedupe check failed")
		} else if already {
			s.logg.Info(logCtx, "alert already published")
			return
		}
	}

	if err := s.sink.Publish(ctx, alert); err != nil {
		s.logg.Error(logCtx, "alert publish failed", err)
		if s.dedupe != nil && alert.OrderID != "" {
			if relErr := s.dedupe.Release(ctx, alert.Kind, alert.OrderID); relErr != nil {
				s.logg.Warn(logCtx, "alert dedupe release failed")
			}
		}
		return
	}

	s.metrics.IncAlert(string(alert.Kind))
	s.logg.Info(logCtx, "alert published")
}
