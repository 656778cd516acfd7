package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blackcave0/ecommerc-memonto/internal/catalog"
	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	"github.com/blackcave0/ecommerc-memonto/internal/service"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
	"github.com/blackcave0/ecommerc-memonto/pkg/httputil"
)

// CartHandler exposes the session cart.
type CartHandler struct {
	sessions *service.Sessions
	catalog  *catalog.Catalog
	logger   *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(sessions *service.Sessions, c *catalog.Catalog, logger *slog.Logger) *CartHandler {
	return &CartHandler{sessions: sessions, catalog: c, logger: logger}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a product to the cart.
// A zero quantity adds one.
type AddItemRequest struct {
	ProductID int64   `json:"productId" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"gte=0,lte=99"`
	Size      *string `json:"size" validate:"omitempty,max=20"`
	Color     *string `json:"color" validate:"omitempty,max=40"`
}

// UpdateQuantityRequest is the JSON request body for changing a line's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"lte=99"`
}

// SetOpenRequest is the JSON request body for showing or hiding the cart drawer.
type SetOpenRequest struct {
	Open *bool `json:"open" validate:"required"`
}

// CartResponse is the cart with its drawer state.
type CartResponse struct {
	domain.Cart
	IsOpen bool `json:"isOpen"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.store(r))
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.catalog.GetByID(req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if req.Size != nil && len(product.Sizes) > 0 && !product.HasSize(*req.Size) {
		httputil.WriteError(w, r, apperrors.InvalidInput("size "+*req.Size+" is not offered for "+product.Name), h.logger)
		return
	}
	if req.Color != nil && len(product.Colors) > 0 && !product.HasColor(*req.Color) {
		httputil.WriteError(w, r, apperrors.InvalidInput("color "+*req.Color+" is not offered for "+product.Name), h.logger)
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	store := h.store(r)
	store.AddItem(r.Context(), product, quantity, req.Size, req.Color)
	h.respond(w, r, store)
}

// UpdateQuantity handles PUT /api/v1/cart/items/{itemId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	store := h.store(r)
	store.UpdateQuantity(r.Context(), chi.URLParam(r, "itemId"), req.Quantity)
	h.respond(w, r, store)
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	store.RemoveItem(r.Context(), chi.URLParam(r, "itemId"))
	h.respond(w, r, store)
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	store.Clear(r.Context())
	h.respond(w, r, store)
}

// SetOpen handles PUT /api/v1/cart/open
func (h *CartHandler) SetOpen(w http.ResponseWriter, r *http.Request) {
	var req SetOpenRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	store := h.store(r)
	store.SetOpen(r.Context(), *req.Open)
	h.respond(w, r, store)
}

// --- Helpers ---

func (h *CartHandler) store(r *http.Request) *service.CartStore {
	return h.sessions.Get(cartSessionFromContext(r.Context()))
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, store *service.CartStore) {
	httputil.WriteData(w, http.StatusOK, CartResponse{
		Cart:   store.Cart(r.Context()),
		IsOpen: store.IsOpen(),
	})
}
