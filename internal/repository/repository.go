package repository

import (
	"context"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
)

// Selector scopes a cart lookup to its owner.
type Selector struct {
	CartID string
	Owner  domain.Owner
}

// CartRepository defines the interface for cart data operations
// Consumers define this interface, not the MongoDB implementation
type CartRepository interface {
	Fetch(ctx context.Context, sel Selector) (*domain.Cart, error)
	// FetchByID ignores ownership; it backs read-only status queries.
	FetchByID(ctx context.Context, cartID string) (*domain.Cart, error)
	Create(ctx context.Context, cart *domain.Cart) (*domain.Cart, error)
	// Save replaces the mutable part of the document only if the stored
	// version still equals expectedVersion, and returns the stored result.
	Save(ctx context.Context, cart *domain.Cart, expectedVersion int64) (*domain.Cart, error)
}
