package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Owner identifies who may mutate a cart. It is either an AccountOwner or an
// AnonymousOwner and never changes after the cart is created.
type Owner interface {
	isOwner()
}

type AccountOwner struct {
	AccountID string
}

// AnonymousOwner holds the keyed hash of the anonymous access token, never the raw token.
type AnonymousOwner struct {
	TokenHash string
}

func (AccountOwner) isOwner()   {}
func (AnonymousOwner) isOwner() {}

type Money struct {
	Amount       decimal.Decimal
	CurrencyCode string
}

func (m Money) Equal(other Money) bool {
	return m.CurrencyCode == other.CurrencyCode && m.Amount.Equal(other.Amount)
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.CurrencyCode
}

// ItemKey is the identity of a line in a cart: one line per product variant.
type ItemKey struct {
	ProductID string
	VariantID string
}

func (k ItemKey) String() string {
	return k.ProductID + "/" + k.VariantID
}

type CartItem struct {
	ID        string
	ProductID string
	VariantID string
	Title     string
	Quantity  int
	// Price is the unit price the item was last validated against.
	Price     Money
	AddedAt   time.Time
	UpdatedAt time.Time
}

func (i CartItem) Key() ItemKey {
	return ItemKey{ProductID: i.ProductID, VariantID: i.VariantID}
}

type BillingEntry struct {
	Method string
	Amount Money
}

type Cart struct {
	ID        string
	Owner     Owner
	Items     []CartItem
	Billing   []BillingEntry
	Discount  decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnedBy reports whether o is the cart's owner.
func (c *Cart) OwnedBy(o Owner) bool {
	switch want := o.(type) {
	case AccountOwner:
		got, ok := c.Owner.(AccountOwner)
		return ok && want.AccountID != "" && got.AccountID == want.AccountID
	case AnonymousOwner:
		got, ok := c.Owner.(AnonymousOwner)
		return ok && want.TokenHash != "" && got.TokenHash == want.TokenHash
	default:
		return false
	}
}

// Clone returns a copy whose slices can be modified without touching c.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = append([]CartItem(nil), c.Items...)
	cp.Billing = append([]BillingEntry(nil), c.Billing...)
	return &cp
}

// RequestedItem is one entry of an add-items request.
type RequestedItem struct {
	ProductID string
	VariantID string
	Quantity  int
	Price     Money
}

func (r RequestedItem) Key() ItemKey {
	return ItemKey{ProductID: r.ProductID, VariantID: r.VariantID}
}
