package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryConfig tunes the in-memory source. It mirrors the knobs an external
// queue would own: batch assembly bounds, the lease (visibility) window, and
// the redelivery cap before a message is dead-lettered.
type MemoryConfig struct {
	MaxBatchSize    int
	BatchWait       time.Duration
	Visibility      time.Duration
	MaxReceiveCount int
}

type memoryMessage struct {
	id           string
	body         []byte
	receiveCount int
	visibleAt    time.Time
}

// MemorySource is a queue with at-least-once semantics for tests and local
// runs: leased messages stay hidden for the visibility window, failed or
// unsettled messages become visible again, and messages that exhaust their
// receive count move to the dead-letter list.
type MemorySource struct {
	cfg MemoryConfig

	mu          sync.Mutex
	pending     []*memoryMessage
	deadLetters []Delivery
	now         func() time.Time
}

func NewMemorySource(cfg MemoryConfig) (*MemorySource, error) {
	if cfg.MaxBatchSize <= 0 {
		return nil, errors.New("max batch size must be positive")
	}
	if cfg.Visibility <= 0 {
		return nil, errors.New("visibility window must be positive")
	}
	if cfg.MaxReceiveCount <= 0 {
		return nil, errors.New("max receive count must be positive")
	}
	if cfg.BatchWait <= 0 {
		cfg.BatchWait = 5 * time.Second
	}
	return &MemorySource{cfg: cfg, now: time.Now}, nil
}

// Enqueue adds a message and returns its delivery identifier.
func (s *MemorySource) Enqueue(body []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &memoryMessage{
		id:   uuid.NewString(),
		body: append([]byte(nil), body...),
	}
	s.pending = append(s.pending, msg)
	return msg.id
}

// Run delivers batches until the context is canceled.
func (s *MemorySource) Run(ctx context.Context, handle Handler) error {
	for {
		batch, leased := s.collect(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(batch.Deliveries) == 0 {
			continue
		}

		result := handle(ctx, batch)
		s.settle(leased, result)
	}
}

// collect leases up to MaxBatchSize visible messages, waiting at most
// BatchWait after the first message arrives to fill the batch.
func (s *MemorySource) collect(ctx context.Context) (Batch, []*memoryMessage) {
	var leased []*memoryMessage
	deadline := time.Time{}

	for {
		if ctx.Err() != nil {
			break
		}

		s.mu.Lock()
		now := s.now()
		for _, msg := range s.pending {
			if len(leased) >= s.cfg.MaxBatchSize {
				break
			}
			if msg.visibleAt.After(now) {
				continue
			}
			if alreadyLeased(leased, msg) {
				continue
			}
			msg.receiveCount++
			msg.visibleAt = now.Add(s.cfg.Visibility)
			leased = append(leased, msg)
		}
		s.mu.Unlock()

		if len(leased) >= s.cfg.MaxBatchSize {
			break
		}
		if len(leased) > 0 {
			if deadline.IsZero() {
				deadline = s.now().Add(s.cfg.BatchWait)
			}
			if !s.now().Before(deadline) {
				break
			}
		}

		select {
		case <-ctx.Done():
		case <-time.After(time.Millisecond):
		}
		if ctx.Err() != nil {
			break
		}
	}

	batch := Batch{ID: uuid.NewString()}
	for _, msg := range leased {
		batch.Deliveries = append(batch.Deliveries, Delivery{ID: msg.id, Body: msg.body})
	}
	return batch, leased
}

func alreadyLeased(leased []*memoryMessage, msg *memoryMessage) bool {
	for _, m := range leased {
		if m == msg {
			return true
		}
	}
	return false
}

// settle acknowledges successful deliveries and handles failures: a failed
// message becomes visible immediately, or dead-letters once it has been
// received MaxReceiveCount times.
func (s *MemorySource) settle(leased []*memoryMessage, result Result) {
	failed := result.failedSet()

	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := s.pending[:0]
	for _, msg := range s.pending {
		if !containsMessage(leased, msg) {
			remaining = append(remaining, msg)
			continue
		}
		if _, ok := failed[msg.id]; !ok {
			continue // acknowledged, drop from the queue
		}
		if msg.receiveCount >= s.cfg.MaxReceiveCount {
			s.deadLetters = append(s.deadLetters, Delivery{ID: msg.id, Body: msg.body})
			continue
		}
		msg.visibleAt = s.now()
		remaining = append(remaining, msg)
	}
	s.pending = remaining
}

func containsMessage(leased []*memoryMessage, msg *memoryMessage) bool {
	for _, m := range leased {
		if m == msg {
			return true
		}
	}
	return false
}

// Len reports how many messages remain in the live queue.
func (s *MemorySource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// DeadLetters returns the messages removed after exhausting redelivery.
func (s *MemorySource) DeadLetters() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivery(nil), s.deadLetters...)
}

// ReceiveCount reports how many times the given delivery has been leased.
func (s *MemorySource) ReceiveCount(deliveryID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.pending {
		if msg.id == deliveryID {
			return msg.receiveCount
		}
	}
	for _, dl := range s.deadLetters {
		if dl.ID == deliveryID {
			return s.cfg.MaxReceiveCount
		}
	}
	return 0
}
