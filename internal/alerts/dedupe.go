package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dcrespo-dev/orderstream/pkg/redis"
)

// Dedupe tracks published alerts per {kind, order} using Redis SETNX with a
// TTL so redelivered messages do not re-alert. Keys follow the
// `os:idempotency:alert:<kind>:<order_id>` pattern.
type Dedupe struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewDedupe builds a guard that marks alerts as published for the given TTL.
func NewDedupe(store redis.IdempotencyStore, ttl time.Duration) (*Dedupe, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Dedupe{store: store, ttl: ttl}, nil
}

// CheckAndMark returns true if an alert of this kind was already published
// for the order and otherwise marks it as published.
func (d *Dedupe) CheckAndMark(ctx context.Context, kind Kind, orderID string) (bool, error) {
	key, err := d.publishedKey(kind, orderID)
	if err != nil {
		return false, err
	}
	set, err := d.store.SetNX(ctx, key, "1", d.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release clears the mark so a failed publish can be attempted again on a
// later delivery.
func (d *Dedupe) Release(ctx context.Context, kind Kind, orderID string) error {
	key, err := d.publishedKey(kind, orderID)
	if err != nil {
		return err
	}
	return d.store.Del(ctx, key)
}

func (d *Dedupe) publishedKey(kind Kind, orderID string) (string, error) {
	if strings.TrimSpace(string(kind)) == "" {
		return "", errors.New("alert kind is required")
	}
	if strings.TrimSpace(orderID) == "" {
		return "", errors.New("order id is required")
	}
	scope := fmt.Sprintf("alert:%s", kind)
	return d.store.IdempotencyKey(scope, orderID), nil
}
