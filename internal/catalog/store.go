package catalog

import (
	"context"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
)

// Store reads catalog records. The catalog is owned by the ingestion
// pipeline; this service never writes it.
type Store interface {
	FindByProductIDs(ctx context.Context, productIDs []string) ([]domain.CatalogProduct, error)
	FindVariants(ctx context.Context, keys []domain.ItemKey) ([]domain.CatalogVariant, error)
}
