package ingest

import (
	"time"

	"github.com/dcrespo-dev/orderstream/pkg/types"
)

// RawMessage is one queue delivery as handed to the pipeline. The delivery
// identifier is opaque: it is only ever echoed back in the batch outcome so
// the queue can redeliver the right messages.
type RawMessage struct {
	DeliveryID string
	Body       []byte
}

// ParsedEvent is the decoded form of one order event. Immutable once parsed.
type ParsedEvent struct {
	OrderID     string           `json:"order_id" validate:"required"`
	CustomerRef string           `json:"customer_ref" validate:"required"`
	Amount      float64          `json:"amount" validate:"gte=0"`
	Currency    string           `json:"currency"`
	Items       types.OrderItems `json:"items" validate:"required,min=1"`
	OccurredAt  *time.Time       `json:"occurred_at"`
}

// ValidationResult classifies a parsed event, carrying the reasons in a
// deterministic order.
type ValidationResult struct {
	Valid   bool
	Reasons []string
}

// Status is the terminal classification of one message.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Outcome is the per-message result handed to the batch reporter. Failed
// means retryable work remains outstanding; permanent data defects are
// reported as success so the queue stops redelivering them.
type Outcome struct {
	DeliveryID string
	Status     Status
	Reason     string
}
