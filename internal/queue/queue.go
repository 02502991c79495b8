package queue

import "context"

// Delivery is one leased message. The identifier is opaque to consumers; it
// only flows back through Result so the source can settle the right lease.
type Delivery struct {
	ID   string
	Body []byte
}

// Batch is a bounded group of deliveries handed to one handler invocation.
type Batch struct {
	ID         string
	Deliveries []Delivery
}

// Result names the deliveries whose processing did not complete. Absence
// from the list means success: the source acknowledges those deliveries and
// makes the failed ones eligible for redelivery.
type Result struct {
	FailedDeliveryIDs []string
}

func (r Result) failedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.FailedDeliveryIDs))
	for _, id := range r.FailedDeliveryIDs {
		set[id] = struct{}{}
	}
	return set
}

// Handler processes one batch and reports which deliveries failed.
type Handler func(ctx context.Context, batch Batch) Result

// Source delivers batches to a handler until the context is canceled. The
// source owns lease settlement: it acks successes and nacks failures based
// on the handler's result.
type Source interface {
	Run(ctx context.Context, handle Handler) error
}
