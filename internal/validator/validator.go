// Package validator derives purchase-blocking status for products from the
// catalog and inventory stores.
package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"golang.org/x/sync/errgroup"
)

type CatalogReader interface {
	FindByProductIDs(ctx context.Context, productIDs []string) ([]domain.CatalogProduct, error)
}

type InventoryReader interface {
	FindByProductIDs(ctx context.Context, productIDs []string) ([]domain.InventoryRecord, error)
}

type CartReader interface {
	FetchByID(ctx context.Context, cartID string) (*domain.Cart, error)
}

type Validator struct {
	catalog   CatalogReader
	inventory InventoryReader
	carts     CartReader
}

func New(catalog CatalogReader, inventory InventoryReader, carts CartReader) *Validator {
	return &Validator{
		catalog:   catalog,
		inventory: inventory,
		carts:     carts,
	}
}

// Statuses returns a status for every distinct product id, healthy or not.
// A product missing from the catalog is reported visible and not sold out;
// a product missing from inventory has a nil InventoryInStock.
func (v *Validator) Statuses(ctx context.Context, productIDs []string) (map[string]domain.ProductStatus, error) {
	ids := distinct(productIDs)
	if len(ids) == 0 {
		return map[string]domain.ProductStatus{}, nil
	}

	var (
		products []domain.CatalogProduct
		stock    []domain.InventoryRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = v.catalog.FindByProductIDs(gctx, ids)
		if err != nil {
			return fmt.Errorf("failed to read catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		stock, err = v.inventory.FindByProductIDs(gctx, ids)
		if err != nil {
			return fmt.Errorf("failed to read inventory: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	statuses := make(map[string]domain.ProductStatus, len(ids))
	for _, id := range ids {
		statuses[id] = domain.ProductStatus{ProductID: id, IsVisible: true}
	}
	for _, p := range products {
		s, ok := statuses[p.ProductID]
		if !ok {
			continue
		}
		s.Title = p.Title
		s.IsSoldOut = p.IsSoldOut
		s.IsVisible = p.IsVisible
		statuses[p.ProductID] = s
	}
	for _, rec := range stock {
		s, ok := statuses[rec.ProductID]
		if !ok {
			continue
		}
		inStock := rec.InStock
		s.InventoryInStock = &inStock
		statuses[rec.ProductID] = s
	}
	for id, s := range statuses {
		s.Message = Message(s)
		statuses[id] = s
	}

	return statuses, nil
}

// CheckSoldOut returns the adverse statuses among productIDs in request order.
func (v *Validator) CheckSoldOut(ctx context.Context, productIDs []string) ([]domain.ProductStatus, error) {
	if len(productIDs) == 0 {
		return nil, fmt.Errorf("product ids are required: %w", domain.ErrInvalidArgument)
	}

	statuses, err := v.Statuses(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	result := []domain.ProductStatus{}
	for _, id := range distinct(productIDs) {
		if s := statuses[id]; s.Adverse() {
			result = append(result, s)
		}
	}
	return result, nil
}

// CheckCartStatus returns one entry per cart item whose product has an
// adverse condition, in cart order.
func (v *Validator) CheckCartStatus(ctx context.Context, cartID string) ([]domain.ItemStatus, error) {
	cart, err := v.carts.FetchByID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}

	statuses, err := v.Statuses(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := []domain.ItemStatus{}
	for _, item := range cart.Items {
		s := statuses[item.ProductID]
		if !s.Adverse() {
			continue
		}
		if s.Title == "" {
			s.Title = item.Title
			s.Message = Message(s)
		}
		result = append(result, domain.ItemStatus{ItemID: item.ID, ProductStatus: s})
	}
	return result, nil
}

// Message lists every adverse condition of s, or returns "" when there is none.
func Message(s domain.ProductStatus) string {
	if !s.Adverse() {
		return ""
	}

	title := s.Title
	if title == "" {
		title = s.ProductID
	}

	var reasons []string
	if s.IsSoldOut {
		reasons = append(reasons, fmt.Sprintf("The product %q is sold out.", title))
	}
	if !s.IsVisible {
		reasons = append(reasons, fmt.Sprintf("The product %q is no longer available.", title))
	}
	if s.InventoryInStock != nil && *s.InventoryInStock <= 0 {
		reasons = append(reasons, fmt.Sprintf("The product %q is out of stock.", title))
	}
	reasons = append(reasons, "Please remove it from your cart.")

	return strings.Join(reasons, " ")
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
