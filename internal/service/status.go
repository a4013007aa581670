package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
)

// CheckSoldOutProducts reports products that cannot be bought. An empty
// list is rejected before any store is read.
func (s *CartService) CheckSoldOutProducts(ctx context.Context, productIDs []string) ([]domain.ProductStatus, error) {
	if len(productIDs) == 0 {
		return nil, fmt.Errorf("product ids are required: %w", domain.ErrInvalidArgument)
	}
	return s.validator.CheckSoldOut(ctx, productIDs)
}

// CheckCartProductStatus returns one entry per problematic item; an empty
// result means every item can be bought.
func (s *CartService) CheckCartProductStatus(ctx context.Context, cartID string) ([]domain.ItemStatus, error) {
	if cartID == "" {
		return nil, fmt.Errorf("cart id is required: %w", domain.ErrInvalidArgument)
	}
	return s.validator.CheckCartStatus(ctx, cartID)
}
