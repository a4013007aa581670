package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/fjod/go_cart/cartmutation/internal/lease"
	"github.com/fjod/go_cart/cartmutation/internal/logger"
	"github.com/fjod/go_cart/cartmutation/internal/reconcile"
	"github.com/fjod/go_cart/cartmutation/internal/repository"
	"github.com/shopspring/decimal"
)

type AddItemsOptions struct {
	SkipPriceCheck bool
	// CheckInventory reverts lines whose product cannot be bought in the
	// resulting quantity.
	CheckInventory bool
	// LockWait overrides Config.LockWait for this call.
	LockWait time.Duration
}

type AddItemsResult struct {
	Cart             *domain.Cart
	PriceFailures    []domain.PriceFailure
	QuantityFailures []domain.QuantityFailure
}

// AddCartItems merges items into the cart under its lease. Per-item
// failures are returned in the result; NotFound, Unauthorized, LockTimeout
// and VersionConflict abort with the cart untouched.
func (s *CartService) AddCartItems(ctx context.Context, cartID string, cred Credential, items []domain.RequestedItem, opts AddItemsOptions) (*AddItemsResult, error) {
	log := logger.FromContext(ctx, s.log).With("cart_id", cartID, "op", "add_items")

	if err := validateAddItems(cartID, items, opts); err != nil {
		return nil, err
	}
	owner, err := s.owner(cred)
	if err != nil {
		log.Warn("cart mutation aborted", "phase", "idle", "error", err)
		return nil, err
	}

	wait := opts.LockWait
	if wait <= 0 {
		wait = s.cfg.LockWait
	}

	log.Debug("cart mutation phase", "phase", "locking", "wait", wait)
	l, err := s.guard.Acquire(ctx, cartID, wait)
	if err != nil {
		log.Warn("cart mutation aborted", "phase", "locking", "error", err)
		return nil, err
	}
	defer s.release(ctx, log, l)

	res, err := s.addLocked(ctx, log, cartID, owner, items, opts)
	if err != nil {
		log.Warn("cart mutation aborted", "error", err)
		return nil, err
	}
	return res, nil
}

func (s *CartService) addLocked(ctx context.Context, log *slog.Logger, cartID string, owner domain.Owner, items []domain.RequestedItem, opts AddItemsOptions) (*AddItemsResult, error) {
	log.Debug("cart mutation phase", "phase", "fetching")
	cart, err := s.carts.Fetch(ctx, repository.Selector{CartID: cartID, Owner: owner})
	if err != nil {
		return nil, err
	}

	log.Debug("cart mutation phase", "phase", "reconciling", "version", cart.Version)
	variants, err := s.catalog.FindVariants(ctx, requestedKeys(items))
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog offers: %w", err)
	}

	merged := s.reconciler.Merge(cart.Items, items, reconcile.NewOffers(variants), reconcile.Options{
		SkipPriceCheck: opts.SkipPriceCheck,
	})
	if len(merged.Unknown) > 0 {
		return nil, fmt.Errorf("product %s: %w", merged.Unknown[0], domain.ErrNotFound)
	}

	if opts.CheckInventory && merged.Changed() {
		log.Debug("cart mutation phase", "phase", "validating")
		if err := s.enforceStock(ctx, &merged); err != nil {
			return nil, err
		}
	}

	result := &AddItemsResult{
		Cart:             cart,
		PriceFailures:    merged.PriceFailures,
		QuantityFailures: merged.QuantityFailures,
	}
	if !merged.Changed() {
		log.Debug("cart mutation phase", "phase", "released", "changed", false)
		return result, nil
	}

	next := cart.Clone()
	next.Items = merged.Items
	// totals computed for the previous item list no longer apply
	next.Billing = nil
	next.Discount = decimal.Zero

	log.Debug("cart mutation phase", "phase", "committing", "expected_version", cart.Version)
	saved, err := s.carts.Save(ctx, next, cart.Version)
	if err != nil {
		return nil, err
	}
	result.Cart = saved

	itemIDs := make([]string, 0, len(merged.Changes))
	for _, c := range merged.Changes {
		itemIDs = append(itemIDs, c.Current.ID)
	}
	s.invalidateCache(ctx, log, saved)
	s.publishItemsAdded(ctx, log, saved, itemIDs)

	log.Info("cart items added",
		"version", saved.Version,
		"changed_items", len(itemIDs),
		"price_failures", len(result.PriceFailures),
		"quantity_failures", len(result.QuantityFailures),
	)
	return result, nil
}

// enforceStock reverts every changed line of a product that is sold out,
// unpublished, or whose lines together exceed the product's stock. Stock is
// kept per product, so all variants of a product count against it.
func (s *CartService) enforceStock(ctx context.Context, merged *reconcile.Result) error {
	ids := make([]string, 0, len(merged.Changes))
	for _, c := range merged.Changes {
		ids = append(ids, c.Key.ProductID)
	}

	statuses, err := s.validator.Statuses(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to check inventory: %w", err)
	}

	totals := make(map[string]int, len(ids))
	for _, it := range merged.Items {
		totals[it.ProductID] += it.Quantity
	}

	changes := append([]reconcile.Change(nil), merged.Changes...)
	for _, c := range changes {
		st, ok := statuses[c.Key.ProductID]
		if !ok {
			continue
		}

		var available int
		switch {
		case st.IsSoldOut || !st.IsVisible:
			available = 0
		case st.InventoryInStock != nil && totals[c.Key.ProductID] > *st.InventoryInStock:
			available = max(*st.InventoryInStock, 0)
		default:
			continue
		}

		merged.Revert(c.Key)
		merged.QuantityFailures = append(merged.QuantityFailures, domain.QuantityFailure{
			ItemKey:  c.Key,
			Reason:   domain.QuantityUnavailable,
			Expected: available,
			Actual:   c.Current.Quantity,
		})
	}
	return nil
}

func (s *CartService) release(ctx context.Context, log *slog.Logger, l *lease.Lease) {
	ctx, cancel := s.sideEffectContext(ctx)
	defer cancel()
	if err := s.guard.Release(ctx, l); err != nil {
		// the lease TTL frees the cart eventually
		log.Error("cart lease release failed", "error", err)
		return
	}
	log.Debug("cart mutation phase", "phase", "released")
}

func (s *CartService) publishItemsAdded(ctx context.Context, log *slog.Logger, cart *domain.Cart, itemIDs []string) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := s.sideEffectContext(ctx)
	defer cancel()
	if err := s.publisher.PublishItemsAdded(ctx, cart, itemIDs); err != nil {
		log.Error("cart items added event not published", "error", err)
	}
}

func validateAddItems(cartID string, items []domain.RequestedItem, opts AddItemsOptions) error {
	if cartID == "" {
		return fmt.Errorf("cart id is required: %w", domain.ErrInvalidArgument)
	}
	if len(items) == 0 {
		return fmt.Errorf("at least one item is required: %w", domain.ErrInvalidArgument)
	}
	for i, it := range items {
		if it.ProductID == "" || it.VariantID == "" {
			return fmt.Errorf("item %d: product and variant ids are required: %w", i, domain.ErrInvalidArgument)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("item %d: quantity must be positive: %w", i, domain.ErrInvalidArgument)
		}
		if !opts.SkipPriceCheck && it.Price.CurrencyCode == "" {
			return fmt.Errorf("item %d: price is required: %w", i, domain.ErrInvalidArgument)
		}
		if it.Price.Amount.IsNegative() {
			return fmt.Errorf("item %d: price must not be negative: %w", i, domain.ErrInvalidArgument)
		}
	}
	return nil
}

func requestedKeys(items []domain.RequestedItem) []domain.ItemKey {
	seen := make(map[domain.ItemKey]struct{}, len(items))
	keys := make([]domain.ItemKey, 0, len(items))
	for _, it := range items {
		k := it.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}
