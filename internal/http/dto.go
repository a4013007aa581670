package http

import (
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/shopspring/decimal"
)

type MoneyDTO struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
}

type AddItemDTO struct {
	ProductID string   `json:"product_id"`
	VariantID string   `json:"variant_id"`
	Quantity  int      `json:"quantity"`
	Price     MoneyDTO `json:"price"`
}

type AddItemsRequestDTO struct {
	Items          []AddItemDTO `json:"items"`
	SkipPriceCheck bool         `json:"skip_price_check"`
	CheckInventory bool         `json:"check_inventory"`
}

type SoldOutRequestDTO struct {
	ProductIDs []string `json:"product_ids"`
}

type CartItemDTO struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	VariantID string    `json:"variant_id"`
	Title     string    `json:"title"`
	Quantity  int       `json:"quantity"`
	Price     MoneyDTO  `json:"price"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BillingDTO struct {
	Method string   `json:"method"`
	Amount MoneyDTO `json:"amount"`
}

type CartDTO struct {
	ID        string          `json:"id"`
	Items     []CartItemDTO   `json:"items"`
	Billing   []BillingDTO    `json:"billing"`
	Discount  decimal.Decimal `json:"discount"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CreateCartResponseDTO struct {
	Cart      CartDTO `json:"cart"`
	CartToken string  `json:"cart_token,omitempty"`
}

type PriceFailureDTO struct {
	ProductID string   `json:"product_id"`
	VariantID string   `json:"variant_id"`
	Expected  MoneyDTO `json:"expected"`
	Actual    MoneyDTO `json:"actual"`
}

type QuantityFailureDTO struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Reason    string `json:"reason"`
	Expected  int    `json:"expected"`
	Actual    int    `json:"actual"`
}

type AddItemsResponseDTO struct {
	Cart             CartDTO              `json:"cart"`
	PriceFailures    []PriceFailureDTO    `json:"price_failures"`
	QuantityFailures []QuantityFailureDTO `json:"quantity_failures"`
}

type SoldOutProductDTO struct {
	ProductID string `json:"product_id"`
	IsSoldOut bool   `json:"is_sold_out"`
	Message   string `json:"message"`
}

type ItemStatusDTO struct {
	ItemID           string `json:"item_id"`
	ProductID        string `json:"product_id"`
	ProductTitle     string `json:"product_title"`
	InventoryInStock *int   `json:"inventory_in_stock"`
	IsSoldOut        bool   `json:"is_sold_out"`
	IsVisible        bool   `json:"is_visible"`
	Message          string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func moneyDTO(m domain.Money) MoneyDTO {
	return MoneyDTO{Amount: m.Amount, CurrencyCode: m.CurrencyCode}
}

func (m MoneyDTO) toDomain() domain.Money {
	return domain.Money{Amount: m.Amount, CurrencyCode: m.CurrencyCode}
}

func cartDTO(c *domain.Cart) CartDTO {
	dto := CartDTO{
		ID:        EncodeID(NamespaceCart, c.ID),
		Items:     make([]CartItemDTO, 0, len(c.Items)),
		Billing:   make([]BillingDTO, 0, len(c.Billing)),
		Discount:  c.Discount,
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for _, it := range c.Items {
		dto.Items = append(dto.Items, CartItemDTO{
			ID:        EncodeID(NamespaceCartItem, it.ID),
			ProductID: EncodeID(NamespaceProduct, it.ProductID),
			VariantID: it.VariantID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			Price:     moneyDTO(it.Price),
			AddedAt:   it.AddedAt,
			UpdatedAt: it.UpdatedAt,
		})
	}
	for _, b := range c.Billing {
		dto.Billing = append(dto.Billing, BillingDTO{Method: b.Method, Amount: moneyDTO(b.Amount)})
	}
	return dto
}
