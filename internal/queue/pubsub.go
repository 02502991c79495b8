package queue

import (
	"context"
	"errors"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/dcrespo-dev/orderstream/pkg/logger"
)

// PubSubSource assembles batches from a streaming Pub/Sub subscription.
// Receive pushes messages one at a time, so the source buffers them and cuts
// a batch when it reaches MaxBatchSize or the wait window elapses, then acks
// or nacks each message from the handler's result.
type PubSubSource struct {
	subscription *pubsub.Subscriber
	maxBatchSize int
	batchWait    time.Duration
	logg         *logger.Logger
}

func NewPubSubSource(subscription *pubsub.Subscriber, maxBatchSize int, batchWait time.Duration, logg *logger.Logger) (*PubSubSource, error) {
	if subscription == nil {
		return nil, errors.New("subscription is required")
	}
	if maxBatchSize <= 0 {
		return nil, errors.New("max batch size must be positive")
	}
	if batchWait <= 0 {
		return nil, errors.New("batch wait must be positive")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &PubSubSource{
		subscription: subscription,
		maxBatchSize: maxBatchSize,
		batchWait:    batchWait,
		logg:         logg,
	}, nil
}

type leasedMessage struct {
	id  string
	msg *pubsub.Message
}

// Run consumes the subscription until the context is canceled or the
// subscription errors.
func (s *PubSubSource) Run(ctx context.Context, handle Handler) error {
	incoming := make(chan leasedMessage)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	receiveErr := make(chan error, 1)
	go func() {
		err := s.subscription.Receive(runCtx, func(ctx context.Context, msg *pubsub.Message) {
			select {
			case incoming <- leasedMessage{id: msg.ID, msg: msg}:
			case <-ctx.Done():
				msg.Nack()
			}
		})
		// Stops the dispatch loop if the stream dies on its own.
		cancel()
		receiveErr <- err
	}()

	s.dispatchLoop(runCtx, incoming, handle)

	return <-receiveErr
}

func (s *PubSubSource) dispatchLoop(ctx context.Context, incoming <-chan leasedMessage, handle Handler) {
	var pending []leasedMessage
	var window <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			window = nil
			return
		}
		s.dispatch(ctx, pending, handle)
		pending = nil
		window = nil
	}

	for {
		select {
		case <-ctx.Done():
			// Unflushed leases are nacked so another worker picks them up.
			for _, lease := range pending {
				lease.msg.Nack()
			}
			return
		case lease := <-incoming:
			pending = append(pending, lease)
			if len(pending) == 1 {
				window = time.After(s.batchWait)
			}
			if len(pending) >= s.maxBatchSize {
				flush()
			}
		case <-window:
			flush()
		}
	}
}

func (s *PubSubSource) dispatch(ctx context.Context, leases []leasedMessage, handle Handler) {
	batch := Batch{ID: uuid.NewString()}
	for _, lease := range leases {
		batch.Deliveries = append(batch.Deliveries, Delivery{ID: lease.id, Body: lease.msg.Data})
	}

	logCtx := s.logg.WithBatchID(ctx, batch.ID)
	s.logg.Info(s.logg.WithField(logCtx, "size", len(batch.Deliveries)), "dispatching batch")

	result := handle(ctx, batch)
	failed := result.failedSet()

	for _, lease := range leases {
		if _, ok := failed[lease.id]; ok {
			lease.msg.Nack()
			continue
		}
		lease.msg.Ack()
	}
}
