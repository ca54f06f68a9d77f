package alert

import (
	"context"
	"fmt"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
)

// Publisher is the part of pkg/kafka.Producer the sink needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaSink publishes alerts as JSON keyed by symbol.
type KafkaSink struct {
	pub   Publisher
	topic string
}

func NewKafkaSink(pub Publisher, topic string) *KafkaSink {
	return &KafkaSink{pub: pub, topic: topic}
}

func (s *KafkaSink) Send(ctx context.Context, a models.Alert) error {
	key := a.Symbol
	if key == "" {
		key = a.ID
	}
	if err := s.pub.Publish(ctx, s.topic, []byte(key), a); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

var _ drepo.AlertSink = (*KafkaSink)(nil)
