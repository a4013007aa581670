package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOwnedBy(t *testing.T) {
	account := &Cart{Owner: AccountOwner{AccountID: "acc-1"}}
	anon := &Cart{Owner: AnonymousOwner{TokenHash: "h1"}}

	assert.True(t, account.OwnedBy(AccountOwner{AccountID: "acc-1"}))
	assert.False(t, account.OwnedBy(AccountOwner{AccountID: "acc-2"}))
	assert.False(t, account.OwnedBy(AnonymousOwner{TokenHash: "acc-1"}))

	assert.True(t, anon.OwnedBy(AnonymousOwner{TokenHash: "h1"}))
	assert.False(t, anon.OwnedBy(AnonymousOwner{TokenHash: "h2"}))
	assert.False(t, anon.OwnedBy(AccountOwner{AccountID: "h1"}))
	assert.False(t, anon.OwnedBy(nil))
}

func TestOwnedBy_EmptyValuesNeverMatch(t *testing.T) {
	assert.False(t, (&Cart{Owner: AccountOwner{}}).OwnedBy(AccountOwner{}))
	assert.False(t, (&Cart{Owner: AnonymousOwner{}}).OwnedBy(AnonymousOwner{}))
}

func TestClone_IsIndependent(t *testing.T) {
	c := &Cart{
		ID:      "c1",
		Items:   []CartItem{{ID: "i1", Quantity: 1}},
		Billing: []BillingEntry{{Method: "card"}},
	}
	cp := c.Clone()
	cp.Items[0].Quantity = 5
	cp.Items = append(cp.Items, CartItem{ID: "i2"})
	cp.Billing = nil

	assert.Equal(t, 1, c.Items[0].Quantity)
	assert.Len(t, c.Items, 1)
	assert.Len(t, c.Billing, 1)
}

func TestMoney_Equal(t *testing.T) {
	a := Money{Amount: decimal.RequireFromString("10.5"), CurrencyCode: "USD"}
	b := Money{Amount: decimal.RequireFromString("10.50"), CurrencyCode: "USD"}
	c := Money{Amount: decimal.RequireFromString("10.50"), CurrencyCode: "EUR"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, "10.50 USD", a.String())
}

func TestProductStatus_Adverse(t *testing.T) {
	zero, three := 0, 3

	assert.False(t, ProductStatus{IsVisible: true}.Adverse())
	assert.False(t, ProductStatus{IsVisible: true, InventoryInStock: &three}.Adverse())
	assert.True(t, ProductStatus{IsVisible: true, IsSoldOut: true}.Adverse())
	assert.True(t, ProductStatus{IsVisible: false}.Adverse())
	assert.True(t, ProductStatus{IsVisible: true, InventoryInStock: &zero}.Adverse())
}
