package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_cart/cartmutation/internal/cache"
	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/fjod/go_cart/cartmutation/internal/logger"
	"github.com/shopspring/decimal"
)

type CreatedCart struct {
	Cart *domain.Cart
	// CartToken is set only for anonymous carts. It is not stored and
	// cannot be recovered later.
	CartToken string
}

func (s *CartService) CreateCart(ctx context.Context, cred Credential) (*CreatedCart, error) {
	log := logger.FromContext(ctx, s.log)

	created := &CreatedCart{}
	var owner domain.Owner
	if cred.AccountID != "" {
		owner = domain.AccountOwner{AccountID: cred.AccountID}
	} else {
		created.CartToken = s.newToken()
		owner = domain.AnonymousOwner{TokenHash: s.hasher.Hash(created.CartToken)}
	}

	cart, err := s.carts.Create(ctx, &domain.Cart{Owner: owner, Discount: decimal.Zero})
	if err != nil {
		log.Error("cart create failed", "error", err)
		return nil, err
	}
	created.Cart = cart

	log.Info("cart created", "cart_id", cart.ID, "anonymous", created.CartToken != "")
	return created, nil
}

// GetCart serves the cart from cache when possible. A cart owned by someone
// else is reported as not found.
func (s *CartService) GetCart(ctx context.Context, cartID string, cred Credential) (*domain.Cart, error) {
	if cartID == "" {
		return nil, fmt.Errorf("cart id is required: %w", domain.ErrInvalidArgument)
	}
	owner, err := s.owner(cred)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, s.log).With("cart_id", cartID)

	// joined callers must not inherit the first caller's cancellation
	ch := s.sfg.DoChan(cartID, func() (interface{}, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ReadTimeout)
		defer cancel()
		return s.loadCart(readCtx, log, cartID)
	})

	var v interface{}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		v = res.Val
	}

	cart := v.(*domain.Cart)
	if !cart.OwnedBy(owner) {
		return nil, fmt.Errorf("cart %s: %w", cartID, domain.ErrNotFound)
	}
	return cart, nil
}

func (s *CartService) loadCart(ctx context.Context, log *slog.Logger, cartID string) (*domain.Cart, error) {
	if s.cache != nil {
		cart, err := s.cache.Get(ctx, cartID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn("cache get error", "error", err)
		}
	}

	cart, err := s.carts.FetchByID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		// a commit landing after the read leaves a version floor that
		// makes this fill a no-op
		go func() {
			setCtx, cancel := s.sideEffectContext(ctx)
			defer cancel()
			if err := s.cache.Set(setCtx, cart); err != nil {
				log.Warn("cache set error", "error", err)
			}
		}()
	}
	return cart, nil
}
