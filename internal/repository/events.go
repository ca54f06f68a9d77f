package repository

import (
	"context"
	"fmt"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	pkgkafka "TradePilot/pkg/kafka"
)

// Event types carried in the envelope.
const (
	EventOrder = "order"
	EventTrade = "trade"
)

// Event is the envelope published for every order and closed trade.
type Event struct {
	Type  string              `json:"type"`
	Order *models.Order       `json:"order,omitempty"`
	Trade *models.TradeRecord `json:"trade,omitempty"`
}

// KafkaEventPublisher implements EventPublisher for Kafka, keyed by symbol
// so that all events of one symbol stay ordered in one partition.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishOrder(ctx context.Context, o models.Order) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(o.Symbol), Event{Type: EventOrder, Order: &o}); err != nil {
		return fmt.Errorf("publish order %s: %w", o.ID, err)
	}
	return nil
}

func (p *KafkaEventPublisher) PublishTrade(ctx context.Context, t models.TradeRecord) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(t.Symbol), Event{Type: EventTrade, Trade: &t}); err != nil {
		return fmt.Errorf("publish trade %s: %w", t.Symbol, err)
	}
	return nil
}

// Close is a no-op; the producer is shared with the alert sink and closed by its owner.
func (p *KafkaEventPublisher) Close() error {
	return nil
}

// NopPublisher is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishOrder(context.Context, models.Order) error       { return nil }
func (NopPublisher) PublishTrade(context.Context, models.TradeRecord) error { return nil }
func (NopPublisher) Close() error                                           { return nil }

var (
	_ drepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ drepo.EventPublisher = NopPublisher{}
)
