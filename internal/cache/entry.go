package cache

import (
	"fmt"
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	ownerAccount   = "account"
	ownerAnonymous = "anonymous"
)

// entry is the JSON form of a cached cart; the owner union is flattened
// into a kind and a value.
type entry struct {
	ID         string          `json:"id"`
	OwnerKind  string          `json:"owner_kind"`
	OwnerValue string          `json:"owner_value"`
	Items      []entryItem     `json:"items"`
	Billing    []entryBilling  `json:"billing,omitempty"`
	Discount   decimal.Decimal `json:"discount"`
	Version    int64           `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type entryItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	AddedAt   time.Time       `json:"added_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type entryBilling struct {
	Method   string          `json:"method"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func entryFromCart(c *domain.Cart) (entry, error) {
	e := entry{
		ID:        c.ID,
		Discount:  c.Discount,
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}

	switch o := c.Owner.(type) {
	case domain.AccountOwner:
		e.OwnerKind, e.OwnerValue = ownerAccount, o.AccountID
	case domain.AnonymousOwner:
		e.OwnerKind, e.OwnerValue = ownerAnonymous, o.TokenHash
	default:
		return entry{}, fmt.Errorf("cart %s has no owner", c.ID)
	}

	for _, it := range c.Items {
		e.Items = append(e.Items, entryItem{
			ID:        it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			Price:     it.Price.Amount,
			Currency:  it.Price.CurrencyCode,
			AddedAt:   it.AddedAt,
			UpdatedAt: it.UpdatedAt,
		})
	}
	for _, b := range c.Billing {
		e.Billing = append(e.Billing, entryBilling{Method: b.Method, Amount: b.Amount.Amount, Currency: b.Amount.CurrencyCode})
	}
	return e, nil
}

func (e entry) toCart() (*domain.Cart, error) {
	c := &domain.Cart{
		ID:        e.ID,
		Discount:  e.Discount,
		Version:   e.Version,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}

	switch e.OwnerKind {
	case ownerAccount:
		c.Owner = domain.AccountOwner{AccountID: e.OwnerValue}
	case ownerAnonymous:
		c.Owner = domain.AnonymousOwner{TokenHash: e.OwnerValue}
	default:
		return nil, fmt.Errorf("unknown owner kind %q", e.OwnerKind)
	}

	for _, it := range e.Items {
		c.Items = append(c.Items, domain.CartItem{
			ID:        it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			Price:     domain.Money{Amount: it.Price, CurrencyCode: it.Currency},
			AddedAt:   it.AddedAt,
			UpdatedAt: it.UpdatedAt,
		})
	}
	for _, b := range e.Billing {
		c.Billing = append(c.Billing, domain.BillingEntry{
			Method: b.Method,
			Amount: domain.Money{Amount: b.Amount, CurrencyCode: b.Currency},
		})
	}
	return c, nil
}
