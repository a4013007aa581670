package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/cartmutation/internal/cache"
	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/fjod/go_cart/cartmutation/internal/lease"
	"github.com/fjod/go_cart/cartmutation/internal/repository"
	"github.com/fjod/go_cart/cartmutation/internal/token"
	"github.com/fjod/go_cart/cartmutation/internal/validator"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memRepository is a compare-and-swap cart store kept in memory.
type memRepository struct {
	m         sync.Mutex
	carts     map[string]*domain.Cart
	fetchErr  error
	saveErr   error
	saveCalls int
	// committed records the expected version of every successful save
	committed []int64
}

func newMemRepository() *memRepository {
	return &memRepository{carts: make(map[string]*domain.Cart)}
}

func (r *memRepository) put(c *domain.Cart) {
	r.m.Lock()
	defer r.m.Unlock()
	r.carts[c.ID] = c.Clone()
}

func (r *memRepository) get(id string) *domain.Cart {
	r.m.Lock()
	defer r.m.Unlock()
	c, ok := r.carts[id]
	if !ok {
		return nil
	}
	return c.Clone()
}

func (r *memRepository) saves() (int, []int64) {
	r.m.Lock()
	defer r.m.Unlock()
	return r.saveCalls, append([]int64(nil), r.committed...)
}

func (r *memRepository) Fetch(_ context.Context, sel repository.Selector) (*domain.Cart, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if sel.Owner == nil {
		return nil, domain.ErrUnauthorized
	}
	c, ok := r.carts[sel.CartID]
	if !ok || !c.OwnedBy(sel.Owner) {
		return nil, repository.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (r *memRepository) FetchByID(_ context.Context, cartID string) (*domain.Cart, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	c, ok := r.carts[cartID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (r *memRepository) Create(_ context.Context, cart *domain.Cart) (*domain.Cart, error) {
	r.m.Lock()
	defer r.m.Unlock()
	c := cart.Clone()
	if c.ID == "" {
		c.ID = fmt.Sprintf("cart-%d", len(r.carts)+1)
	}
	c.Version = 1
	r.carts[c.ID] = c
	return c.Clone(), nil
}

func (r *memRepository) Save(_ context.Context, cart *domain.Cart, expectedVersion int64) (*domain.Cart, error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.saveCalls++
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	stored, ok := r.carts[cart.ID]
	if !ok || stored.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	next := cart.Clone()
	next.Owner = stored.Owner
	next.CreatedAt = stored.CreatedAt
	next.Version = expectedVersion + 1
	r.carts[cart.ID] = next
	r.committed = append(r.committed, expectedVersion)
	return next.Clone(), nil
}

type mockCatalog struct {
	m        sync.RWMutex
	products map[string]domain.CatalogProduct
	variants map[domain.ItemKey]domain.CatalogVariant
	err      error
	calls    int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		products: make(map[string]domain.CatalogProduct),
		variants: make(map[domain.ItemKey]domain.CatalogVariant),
	}
}

func (m *mockCatalog) addVariant(productID, variantID, title, price string, minQty int) {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.products[productID]; !ok {
		m.products[productID] = domain.CatalogProduct{ProductID: productID, Title: title, IsVisible: true}
	}
	key := domain.ItemKey{ProductID: productID, VariantID: variantID}
	m.variants[key] = domain.CatalogVariant{
		ProductID:        productID,
		VariantID:        variantID,
		Title:            title,
		Price:            usd(price),
		MinOrderQuantity: minQty,
	}
}

func (m *mockCatalog) setProduct(p domain.CatalogProduct) {
	m.m.Lock()
	defer m.m.Unlock()
	m.products[p.ProductID] = p
}

func (m *mockCatalog) callCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.calls
}

func (m *mockCatalog) FindByProductIDs(_ context.Context, ids []string) ([]domain.CatalogProduct, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.CatalogProduct
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) FindVariants(_ context.Context, keys []domain.ItemKey) ([]domain.CatalogVariant, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.CatalogVariant
	for _, k := range keys {
		if v, ok := m.variants[k]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

type mockInventory struct {
	m     sync.RWMutex
	stock map[string]int
	calls int
}

func (m *mockInventory) set(productID string, n int) {
	m.m.Lock()
	defer m.m.Unlock()
	m.stock[productID] = n
}

func (m *mockInventory) callCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.calls
}

func (m *mockInventory) FindByProductIDs(_ context.Context, ids []string) ([]domain.InventoryRecord, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	var out []domain.InventoryRecord
	for _, id := range ids {
		if n, ok := m.stock[id]; ok {
			out = append(out, domain.InventoryRecord{ProductID: id, InStock: n})
		}
	}
	return out, nil
}

type mockCache struct {
	m       sync.RWMutex
	carts   map[string]*domain.Cart
	floors  map[string]int64
	deleted []string
	err     error
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]*domain.Cart), floors: make(map[string]int64)}
}

func (m *mockCache) Get(_ context.Context, cartID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[cartID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c.Clone(), nil
}

func (m *mockCache) Set(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.floors[cart.ID] > cart.Version {
		return m.err
	}
	m.carts[cart.ID] = cart.Clone()
	return m.err
}

func (m *mockCache) Invalidate(_ context.Context, cartID string, version int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, cartID)
	m.floors[cartID] = max(m.floors[cartID], version)
	m.deleted = append(m.deleted, cartID)
	return m.err
}

func (m *mockCache) Delete(_ context.Context, cartID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, cartID)
	m.deleted = append(m.deleted, cartID)
	return m.err
}

func (m *mockCache) has(cartID string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.carts[cartID]
	return ok
}

func (m *mockCache) deletedIDs() []string {
	m.m.RLock()
	defer m.m.RUnlock()
	return append([]string(nil), m.deleted...)
}

type publishedEvent struct {
	cartID  string
	version int64
	itemIDs []string
}

type mockPublisher struct {
	m      sync.Mutex
	events []publishedEvent
	err    error
}

func (m *mockPublisher) PublishItemsAdded(_ context.Context, cart *domain.Cart, itemIDs []string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, publishedEvent{cartID: cart.ID, version: cart.Version, itemIDs: itemIDs})
	return nil
}

func (m *mockPublisher) published() []publishedEvent {
	m.m.Lock()
	defer m.m.Unlock()
	return append([]publishedEvent(nil), m.events...)
}

// countingGuard records how many leases were taken and given back.
type countingGuard struct {
	inner    lease.Guard
	m        sync.Mutex
	acquired int
	released int
}

func (g *countingGuard) Acquire(ctx context.Context, cartID string, wait time.Duration) (*lease.Lease, error) {
	l, err := g.inner.Acquire(ctx, cartID, wait)
	if err == nil {
		g.m.Lock()
		g.acquired++
		g.m.Unlock()
	}
	return l, err
}

func (g *countingGuard) Release(ctx context.Context, l *lease.Lease) error {
	g.m.Lock()
	g.released++
	g.m.Unlock()
	return g.inner.Release(ctx, l)
}

func (g *countingGuard) counts() (int, int) {
	g.m.Lock()
	defer g.m.Unlock()
	return g.acquired, g.released
}

// noopGuard grants every lease immediately, leaving the repository's
// version check as the only protection.
type noopGuard struct{}

func (noopGuard) Acquire(_ context.Context, cartID string, _ time.Duration) (*lease.Lease, error) {
	return &lease.Lease{CartID: cartID, Token: "noop"}, nil
}

func (noopGuard) Release(context.Context, *lease.Lease) error { return nil }

type testEnv struct {
	svc       *CartService
	repo      *memRepository
	catalog   *mockCatalog
	inventory *mockInventory
	cache     *mockCache
	publisher *mockPublisher
	guard     *countingGuard
	redis     *miniredis.Miniredis
	hasher    *token.Hasher
}

func newTestEnv(t *testing.T) *testEnv {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return newTestEnvWithGuard(t, lease.NewRedisGuard(client, 5*time.Second), mr)
}

func newTestEnvWithGuard(t *testing.T, g lease.Guard, mr *miniredis.Miniredis) *testEnv {
	hasher, err := token.NewHasher("test-secret")
	require.NoError(t, err)

	env := &testEnv{
		repo:      newMemRepository(),
		catalog:   newMockCatalog(),
		inventory: &mockInventory{stock: make(map[string]int)},
		cache:     newMockCache(),
		publisher: &mockPublisher{},
		guard:     &countingGuard{inner: g},
		redis:     mr,
		hasher:    hasher,
	}
	env.svc = NewCartService(Deps{
		Guard:     env.guard,
		Carts:     env.repo,
		Catalog:   env.catalog,
		Validator: validator.New(env.catalog, env.inventory, env.repo),
		Hasher:    hasher,
		Cache:     env.cache,
		Publisher: env.publisher,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, Config{LockWait: 5 * time.Second, SideEffectTimeout: time.Second})

	env.catalog.addVariant("A", "a1", "Product A", "10.00", 1)
	env.catalog.addVariant("B", "b1", "Product B", "5.50", 1)
	return env
}

var testTime = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func usd(amount string) domain.Money {
	return domain.Money{Amount: decimal.RequireFromString(amount), CurrencyCode: "USD"}
}

func accountCart(id, accountID string, items ...domain.CartItem) *domain.Cart {
	return &domain.Cart{
		ID:        id,
		Owner:     domain.AccountOwner{AccountID: accountID},
		Items:     items,
		Discount:  decimal.Zero,
		Version:   1,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

func line(id, productID, variantID string, qty int, price string) domain.CartItem {
	return domain.CartItem{
		ID:        id,
		ProductID: productID,
		VariantID: variantID,
		Title:     "Product " + productID,
		Quantity:  qty,
		Price:     usd(price),
		AddedAt:   testTime,
		UpdatedAt: testTime,
	}
}

func req(productID, variantID string, qty int, price string) domain.RequestedItem {
	return domain.RequestedItem{ProductID: productID, VariantID: variantID, Quantity: qty, Price: usd(price)}
}

func quantities(c *domain.Cart) map[string]int {
	out := make(map[string]int, len(c.Items))
	for _, it := range c.Items {
		out[it.ProductID+"/"+it.VariantID] += it.Quantity
	}
	return out
}

// gatedRepository holds the first FetchByID after it has read the cart,
// until proceed is closed.
type gatedRepository struct {
	*memRepository
	once    sync.Once
	fetched chan struct{}
	proceed chan struct{}
}

func newGatedRepository(inner *memRepository) *gatedRepository {
	return &gatedRepository{
		memRepository: inner,
		fetched:       make(chan struct{}),
		proceed:       make(chan struct{}),
	}
}

func (g *gatedRepository) FetchByID(ctx context.Context, cartID string) (*domain.Cart, error) {
	c, err := g.memRepository.FetchByID(ctx, cartID)
	g.once.Do(func() {
		close(g.fetched)
		<-g.proceed
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return c, err
}

// signallingCache reports every finished Set.
type signallingCache struct {
	cache.CartCache
	sets chan error
}

func (c signallingCache) Set(ctx context.Context, cart *domain.Cart) error {
	err := c.CartCache.Set(ctx, cart)
	c.sets <- err
	return err
}
