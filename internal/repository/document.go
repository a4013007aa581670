package repository

import (
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/shopspring/decimal"
)

// cartDoc is the stored shape; the domain struct is never written directly.
type cartDoc struct {
	ID                   string        `bson:"_id"`
	AccountID            string        `bson:"account_id,omitempty"`
	AnonymousAccessToken string        `bson:"anonymous_access_token,omitempty"`
	Items                []cartItemDoc `bson:"items"`
	Billing              []billingDoc  `bson:"billing"`
	Discount             string        `bson:"discount"`
	Version              int64         `bson:"version"`
	CreatedAt            time.Time     `bson:"created_at"`
	UpdatedAt            time.Time     `bson:"updated_at"`
}

type cartItemDoc struct {
	ID        string    `bson:"_id"`
	ProductID string    `bson:"product_id"`
	VariantID string    `bson:"variant_id"`
	Title     string    `bson:"title"`
	Quantity  int       `bson:"quantity"`
	Price     moneyDoc  `bson:"price"`
	AddedAt   time.Time `bson:"added_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type billingDoc struct {
	Method string   `bson:"method"`
	Amount moneyDoc `bson:"amount"`
}

type moneyDoc struct {
	Amount       string `bson:"amount"`
	CurrencyCode string `bson:"currency_code"`
}

func cartDocFromDomain(c *domain.Cart) cartDoc {
	doc := cartDoc{
		ID:        c.ID,
		Items:     make([]cartItemDoc, len(c.Items)),
		Billing:   make([]billingDoc, len(c.Billing)),
		Discount:  c.Discount.String(),
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}

	switch o := c.Owner.(type) {
	case domain.AccountOwner:
		doc.AccountID = o.AccountID
	case domain.AnonymousOwner:
		doc.AnonymousAccessToken = o.TokenHash
	}

	for i, item := range c.Items {
		doc.Items[i] = cartItemDoc{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     moneyDocFromDomain(item.Price),
			AddedAt:   item.AddedAt,
			UpdatedAt: item.UpdatedAt,
		}
	}
	for i, b := range c.Billing {
		doc.Billing[i] = billingDoc{Method: b.Method, Amount: moneyDocFromDomain(b.Amount)}
	}
	return doc
}

func (d cartDoc) toDomain() (*domain.Cart, error) {
	discount, err := parseAmount(d.Discount)
	if err != nil {
		return nil, err
	}

	c := &domain.Cart{
		ID:        d.ID,
		Items:     make([]domain.CartItem, len(d.Items)),
		Billing:   make([]domain.BillingEntry, len(d.Billing)),
		Discount:  discount,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.AccountID != "" {
		c.Owner = domain.AccountOwner{AccountID: d.AccountID}
	} else {
		c.Owner = domain.AnonymousOwner{TokenHash: d.AnonymousAccessToken}
	}

	for i, item := range d.Items {
		price, err := item.Price.toDomain()
		if err != nil {
			return nil, err
		}
		c.Items[i] = domain.CartItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     price,
			AddedAt:   item.AddedAt,
			UpdatedAt: item.UpdatedAt,
		}
	}
	for i, b := range d.Billing {
		amount, err := b.Amount.toDomain()
		if err != nil {
			return nil, err
		}
		c.Billing[i] = domain.BillingEntry{Method: b.Method, Amount: amount}
	}
	return c, nil
}

func moneyDocFromDomain(m domain.Money) moneyDoc {
	return moneyDoc{Amount: m.Amount.String(), CurrencyCode: m.CurrencyCode}
}

func (m moneyDoc) toDomain() (domain.Money, error) {
	amount, err := parseAmount(m.Amount)
	if err != nil {
		return domain.Money{}, err
	}
	return domain.Money{Amount: amount, CurrencyCode: m.CurrencyCode}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
