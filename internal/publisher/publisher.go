// Package publisher emits cart domain events to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/segmentio/kafka-go"
)

const (
	TopicCartItemsAdded = "cart-items-added"
	EventTypeItemsAdded = "cart_items_added"
)

// ItemsAdded is published after a commit that changed a cart's items.
type ItemsAdded struct {
	CartID     string    `json:"cart_id"`
	ItemIDs    []string  `json:"item_ids"`
	Version    int64     `json:"version"`
	OccurredAt time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicCartItemsAdded,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w, now: time.Now}
}

// PublishItemsAdded keys the message by cart id so events of one cart stay ordered.
func (p *KafkaPublisher) PublishItemsAdded(ctx context.Context, cart *domain.Cart, itemIDs []string) error {
	payload, err := json.Marshal(ItemsAdded{
		CartID:     cart.ID,
		ItemIDs:    itemIDs,
		Version:    cart.Version,
		OccurredAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(cart.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeItemsAdded)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s for cart %s: %w", EventTypeItemsAdded, cart.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
