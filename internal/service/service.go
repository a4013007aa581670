// Package service coordinates cart mutations: lease, fetch, merge,
// optional stock check, commit and release.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/cache"
	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/fjod/go_cart/cartmutation/internal/lease"
	"github.com/fjod/go_cart/cartmutation/internal/reconcile"
	"github.com/fjod/go_cart/cartmutation/internal/repository"
	"golang.org/x/sync/singleflight"
)

type CatalogStore interface {
	FindVariants(ctx context.Context, keys []domain.ItemKey) ([]domain.CatalogVariant, error)
}

type StatusValidator interface {
	Statuses(ctx context.Context, productIDs []string) (map[string]domain.ProductStatus, error)
	CheckSoldOut(ctx context.Context, productIDs []string) ([]domain.ProductStatus, error)
	CheckCartStatus(ctx context.Context, cartID string) ([]domain.ItemStatus, error)
}

type TokenHasher interface {
	Hash(raw string) string
}

type EventPublisher interface {
	PublishItemsAdded(ctx context.Context, cart *domain.Cart, itemIDs []string) error
}

type Config struct {
	// LockWait bounds lease acquisition when a call does not set its own.
	LockWait time.Duration
	// SideEffectTimeout bounds lease release, cache eviction and event
	// publishing, which run even after the caller's context is done.
	SideEffectTimeout time.Duration
	// ReadTimeout bounds a cart read shared by concurrent GetCart callers.
	ReadTimeout time.Duration
}

var DefaultConfig = Config{
	LockWait:          3 * time.Second,
	SideEffectTimeout: 2 * time.Second,
	ReadTimeout:       5 * time.Second,
}

type CartService struct {
	guard      lease.Guard
	carts      repository.CartRepository
	catalog    CatalogStore
	validator  StatusValidator
	hasher     TokenHasher
	cache      cache.CartCache
	publisher  EventPublisher
	reconciler *reconcile.Reconciler
	cfg        Config
	log        *slog.Logger
	sfg        singleflight.Group // collapses concurrent cache misses per cart
	newToken   func() string
}

type Deps struct {
	Guard     lease.Guard
	Carts     repository.CartRepository
	Catalog   CatalogStore
	Validator StatusValidator
	Hasher    TokenHasher
	Cache     cache.CartCache
	Publisher EventPublisher
	Logger    *slog.Logger
}

func NewCartService(d Deps, cfg Config) *CartService {
	if cfg.LockWait <= 0 {
		cfg.LockWait = DefaultConfig.LockWait
	}
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = DefaultConfig.SideEffectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultConfig.ReadTimeout
	}
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &CartService{
		guard:      d.Guard,
		carts:      d.Carts,
		catalog:    d.Catalog,
		validator:  d.Validator,
		hasher:     d.Hasher,
		cache:      d.Cache,
		publisher:  d.Publisher,
		reconciler: reconcile.New(),
		cfg:        cfg,
		log:        log,
		newToken:   defaultTokenSource,
	}
}

// sideEffectContext detaches from ctx's cancellation but keeps its values.
func (s *CartService) sideEffectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SideEffectTimeout)
}

func (s *CartService) invalidateCache(ctx context.Context, log *slog.Logger, committed *domain.Cart) {
	if s.cache == nil {
		return
	}
	ctx, cancel := s.sideEffectContext(ctx)
	defer cancel()
	if err := s.cache.Invalidate(ctx, committed.ID, committed.Version); err != nil {
		log.Warn("cache invalidate error", "error", err)
	}
}
