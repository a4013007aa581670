package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, cartID string) (*domain.Cart, error)
	// Set stores a read view. It is skipped when a newer version has been
	// invalidated.
	Set(ctx context.Context, cart *domain.Cart) error
	Invalidate(ctx context.Context, cartID string, version int64) error
	Delete(ctx context.Context, cartID string) error
}

var ErrCacheMiss = errors.New("cache miss")
