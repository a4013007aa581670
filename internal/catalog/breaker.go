package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned while the breaker rejects calls.
var ErrUnavailable = errors.New("catalog unavailable")

type BreakerSettings struct {
	MaxFailures uint32        // consecutive failures before opening
	OpenTimeout time.Duration // time spent open before probing again
}

var DefaultBreakerSettings = BreakerSettings{MaxFailures: 5, OpenTimeout: 10 * time.Second}

// BreakerStore guards catalog reads so an unhealthy catalog fails fast
// instead of holding cart leases for the full I/O timeout.
type BreakerStore struct {
	next     Store
	products *gobreaker.CircuitBreaker[[]domain.CatalogProduct]
	variants *gobreaker.CircuitBreaker[[]domain.CatalogVariant]
}

func NewBreakerStore(next Store, s BreakerSettings, log *slog.Logger) *BreakerStore {
	return &BreakerStore{
		next:     next,
		products: gobreaker.NewCircuitBreaker[[]domain.CatalogProduct](breakerSettings("catalog-products", s, log)),
		variants: gobreaker.NewCircuitBreaker[[]domain.CatalogVariant](breakerSettings("catalog-variants", s, log)),
	}
}

func (b *BreakerStore) FindByProductIDs(ctx context.Context, productIDs []string) ([]domain.CatalogProduct, error) {
	products, err := b.products.Execute(func() ([]domain.CatalogProduct, error) {
		return b.next.FindByProductIDs(ctx, productIDs)
	})
	return products, breakerError(err)
}

func (b *BreakerStore) FindVariants(ctx context.Context, keys []domain.ItemKey) ([]domain.CatalogVariant, error) {
	variants, err := b.variants.Execute(func() ([]domain.CatalogVariant, error) {
		return b.next.FindVariants(ctx, keys)
	})
	return variants, breakerError(err)
}

func breakerSettings(name string, s BreakerSettings, log *slog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:    name,
		Timeout: s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// the caller giving up says nothing about catalog health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
