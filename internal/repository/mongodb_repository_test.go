package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestDB(t *testing.T) (*MongoRepository, func()) {
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	repo := NewMongoRepository(db)
	err = repo.CreateIndexes(ctx)
	require.NoError(t, err)

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func usd(amount string) domain.Money {
	return domain.Money{Amount: decimal.RequireFromString(amount), CurrencyCode: "USD"}
}

func TestFetch_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	cart, err := repo.Fetch(context.Background(), Selector{
		CartID: "nonexistent",
		Owner:  domain.AccountOwner{AccountID: "acc-1"},
	})

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, cart)
}

func TestCreate_AccountCart(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	created, err := repo.Create(ctx, &domain.Cart{Owner: domain.AccountOwner{AccountID: "acc-1"}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Version)

	cart, err := repo.Fetch(ctx, Selector{CartID: created.ID, Owner: domain.AccountOwner{AccountID: "acc-1"}})
	require.NoError(t, err)
	assert.Equal(t, domain.AccountOwner{AccountID: "acc-1"}, cart.Owner)
	assert.Empty(t, cart.Items)

	_, err = repo.Fetch(ctx, Selector{CartID: created.ID, Owner: domain.AccountOwner{AccountID: "acc-2"}})
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestFetch_AnonymousSelector(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	created, err := repo.Create(ctx, &domain.Cart{Owner: domain.AnonymousOwner{TokenHash: "hash-1"}})
	require.NoError(t, err)

	cart, err := repo.Fetch(ctx, Selector{CartID: created.ID, Owner: domain.AnonymousOwner{TokenHash: "hash-1"}})
	require.NoError(t, err)
	assert.Equal(t, created.ID, cart.ID)

	_, err = repo.Fetch(ctx, Selector{CartID: created.ID, Owner: domain.AnonymousOwner{TokenHash: "wrong"}})
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = repo.Fetch(ctx, Selector{CartID: created.ID, Owner: domain.AnonymousOwner{}})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = repo.Fetch(ctx, Selector{CartID: created.ID})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSave_IncrementsVersionAndReturnsStoredCart(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	created, err := repo.Create(ctx, &domain.Cart{
		Owner:   domain.AccountOwner{AccountID: "acc-1"},
		Billing: []domain.BillingEntry{{Method: "card", Amount: usd("5.00")}},
	})
	require.NoError(t, err)

	updated := created.Clone()
	updated.Items = []domain.CartItem{{
		ID:        "item-1",
		ProductID: "p1",
		VariantID: "v1",
		Title:     "Shirt",
		Quantity:  2,
		Price:     usd("19.99"),
	}}
	updated.Billing = nil
	updated.Discount = decimal.Zero

	saved, err := repo.Save(ctx, updated, created.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)
	require.Len(t, saved.Items, 1)
	assert.Equal(t, 2, saved.Items[0].Quantity)
	assert.True(t, saved.Items[0].Price.Equal(usd("19.99")))
	assert.Empty(t, saved.Billing)
	assert.False(t, saved.UpdatedAt.Before(created.UpdatedAt))

	fetched, err := repo.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Version, fetched.Version)
	assert.Equal(t, saved.Items, fetched.Items)
}

func TestSave_StaleVersionConflicts(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	created, err := repo.Create(ctx, &domain.Cart{Owner: domain.AccountOwner{AccountID: "acc-1"}})
	require.NoError(t, err)

	_, err = repo.Save(ctx, created, created.Version)
	require.NoError(t, err)

	stale := created.Clone()
	stale.Items = []domain.CartItem{{ID: "x", ProductID: "p", VariantID: "v", Quantity: 1, Price: usd("1")}}
	_, err = repo.Save(ctx, stale, created.Version)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	fetched, err := repo.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, fetched.Items, "conflicting save must not write")
}

func TestSave_ConcurrentWritersOnlyOneWins(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	created, err := repo.Create(ctx, &domain.Cart{Owner: domain.AccountOwner{AccountID: "acc-1"}})
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errSave := repo.Save(ctx, created, created.Version)
			if errSave == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, errSave, ErrVersionConflict)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestContextCancellation(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	time.Sleep(10 * time.Millisecond) // Ensure context is cancelled

	_, err := repo.FetchByID(ctx, "cart-1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context")
}
