package alerts

import "context"

// Kind enumerates the alert categories published by the pipeline.
type Kind string

const (
	KindLargeOrder  Kind = "LargeOrder"
	KindInvalidData Kind = "InvalidData"
)

// Alert is the published notification payload.
type Alert struct {
	Kind    Kind   `json:"kind"`
	OrderID string `json:"order_id"`
	Detail  string `json:"detail"`
}

// Sink is the notification channel capability. Implementations must treat
// publishing as best-effort: the pipeline never retries a message because an
// alert failed to send.
type Sink interface {
	Publish(ctx context.Context, alert Alert) error
}
