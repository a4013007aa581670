package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/fjod/go_cart/cartmutation/internal/service"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	CreateCart(ctx context.Context, cred service.Credential) (*service.CreatedCart, error)
	GetCart(ctx context.Context, cartID string, cred service.Credential) (*domain.Cart, error)
	AddCartItems(ctx context.Context, cartID string, cred service.Credential, items []domain.RequestedItem, opts service.AddItemsOptions) (*service.AddItemsResult, error)
	CheckSoldOutProducts(ctx context.Context, productIDs []string) ([]domain.ProductStatus, error)
	CheckCartProductStatus(ctx context.Context, cartID string) ([]domain.ItemStatus, error)
}

type CartHandler struct {
	svc     CartService
	timeout time.Duration
}

func NewCartHandler(svc CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		svc:     svc,
		timeout: timeout,
	}
}

func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	created, err := h.svc.CreateCart(ctx, credentialFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CreateCartResponseDTO{
		Cart:      cartDTO(created.Cart),
		CartToken: created.CartToken,
	})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, err := DecodeID(NamespaceCart, chi.URLParam(r, "cartID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	cart, err := h.svc.GetCart(ctx, cartID, credentialFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartDTO(cart))
}

func (h *CartHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, err := DecodeID(NamespaceCart, chi.URLParam(r, "cartID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req AddItemsRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_items", "at least one item is required")
		return
	}

	items := make([]domain.RequestedItem, 0, len(req.Items))
	for _, it := range req.Items {
		productID, err := DecodeID(NamespaceProduct, it.ProductID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		items = append(items, domain.RequestedItem{
			ProductID: productID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Price:     it.Price.toDomain(),
		})
	}

	res, err := h.svc.AddCartItems(ctx, cartID, credentialFromContext(r.Context()), items, service.AddItemsOptions{
		SkipPriceCheck: req.SkipPriceCheck,
		CheckInventory: req.CheckInventory,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := AddItemsResponseDTO{
		Cart:             cartDTO(res.Cart),
		PriceFailures:    make([]PriceFailureDTO, 0, len(res.PriceFailures)),
		QuantityFailures: make([]QuantityFailureDTO, 0, len(res.QuantityFailures)),
	}
	for _, f := range res.PriceFailures {
		resp.PriceFailures = append(resp.PriceFailures, PriceFailureDTO{
			ProductID: EncodeID(NamespaceProduct, f.ProductID),
			VariantID: f.VariantID,
			Expected:  moneyDTO(f.Expected),
			Actual:    moneyDTO(f.Actual),
		})
	}
	for _, f := range res.QuantityFailures {
		resp.QuantityFailures = append(resp.QuantityFailures, QuantityFailureDTO{
			ProductID: EncodeID(NamespaceProduct, f.ProductID),
			VariantID: f.VariantID,
			Reason:    string(f.Reason),
			Expected:  f.Expected,
			Actual:    f.Actual,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *CartHandler) ProductStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, err := DecodeID(NamespaceCart, chi.URLParam(r, "cartID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	statuses, err := h.svc.CheckCartProductStatus(ctx, cartID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]ItemStatusDTO, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, ItemStatusDTO{
			ItemID:           EncodeID(NamespaceCartItem, s.ItemID),
			ProductID:        EncodeID(NamespaceProduct, s.ProductID),
			ProductTitle:     s.Title,
			InventoryInStock: s.InventoryInStock,
			IsSoldOut:        s.IsSoldOut,
			IsVisible:        s.IsVisible,
			Message:          s.Message,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": out})
}

func (h *CartHandler) SoldOutProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SoldOutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ids := make([]string, 0, len(req.ProductIDs))
	for _, opaque := range req.ProductIDs {
		id, err := DecodeID(NamespaceProduct, opaque)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		ids = append(ids, id)
	}

	statuses, err := h.svc.CheckSoldOutProducts(ctx, ids)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]SoldOutProductDTO, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, SoldOutProductDTO{
			ProductID: EncodeID(NamespaceProduct, s.ProductID),
			IsSoldOut: s.IsSoldOut,
			Message:   s.Message,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"products": out})
}
