// Package poller evicts cached carts when checkout completes.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_cart/cartmutation/internal/cache"
	"github.com/segmentio/kafka-go"
)

const (
	TopicCheckoutOutbox = "checkout-outbox"
	consumerGroup       = "cart-mutation-consumer"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Poller struct {
	reader messageReader
	cache  cache.CartCache
	log    *slog.Logger
}

func NewPoller(cartCache cache.CartCache, log *slog.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    TopicCheckoutOutbox,
		GroupID:  consumerGroup,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{reader: reader, cache: cartCache, log: log}
}

// Run consumes until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.handleNext(ctx); err != nil && ctx.Err() == nil {
			p.log.Warn("checkout event not handled", "error", err)
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error("error closing reader", "error", err)
	}
}

type checkoutEvent struct {
	CheckoutID string `json:"checkout_id"`
	CartID     string `json:"cart_id"`
}

func (p *Poller) handleNext(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		return fmt.Errorf("error reading message: %w", err)
	}

	var ev checkoutEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		return fmt.Errorf("error parsing message at offset %d: %w", m.Offset, err)
	}
	if ev.CartID == "" {
		return errors.New("missing or invalid cart_id")
	}

	if err := p.cache.Delete(ctx, ev.CartID); err != nil {
		return fmt.Errorf("failed to evict cart %s: %w", ev.CartID, err)
	}
	p.log.Debug("cart evicted after checkout", "cart_id", ev.CartID, "checkout_id", ev.CheckoutID)
	return nil
}
