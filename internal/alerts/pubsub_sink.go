package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// PubSubSink publishes alerts to the configured Pub/Sub topic.
type PubSubSink struct {
	publisher *pubsub.Publisher
}

func NewPubSubSink(publisher *pubsub.Publisher) (*PubSubSink, error) {
	if publisher == nil {
		return nil, errors.New("alert publisher is required")
	}
	return &PubSubSink{publisher: publisher}, nil
}

// Publish sends the alert and waits for the server acknowledgment so callers
// can log a definitive outcome.
func (s *PubSubSink) Publish(ctx context.Context, alert Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	result := s.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"kind": string(alert.Kind),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing alert: %w", err)
	}
	return nil
}
