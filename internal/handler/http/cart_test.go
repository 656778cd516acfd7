package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcave0/ecommerc-memonto/pkg/middleware"
)

// ============================================================================
// Cart session
// ============================================================================

func TestCart_NewSessionIsIssued(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/cart", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(middleware.CartSessionHeader)
	assert.Regexp(t, sessionIDPattern, id)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var cart CartResponse
	decodeData(t, rec, &cart)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalItems)
	assert.Equal(t, "$0.00", cart.TotalPrice)
	assert.False(t, cart.IsOpen)
}

func TestCart_MalformedSessionIsReplaced(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/cart", nil, withSession("bad id!"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "bad id!", rec.Header().Get(middleware.CartSessionHeader))
}

func TestCart_SessionsAreIsolated(t *testing.T) {
	s := newTestServer(t)

	addToCart(t, s, testSession, AddItemRequest{ProductID: 1, Quantity: 2})

	rec := s.do(t, http.MethodGet, "/api/v1/cart", nil, withSession("other-session-01"))
	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	decodeData(t, rec, &cart)
	assert.Empty(t, cart.Items)
}

// ============================================================================
// AddItem
// ============================================================================

func TestAddItem_MergesSameVariant(t *testing.T) {
	s := newTestServer(t)

	addToCart(t, s, testSession, AddItemRequest{ProductID: 1, Quantity: 1, Size: strPtr("M"), Color: strPtr("Black")})
	cart := addToCart(t, s, testSession, AddItemRequest{ProductID: 1, Quantity: 2, Size: strPtr("M"), Color: strPtr("Black")})

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 3, cart.TotalItems)
	assert.Equal(t, "$567.00", cart.TotalPrice)
	assert.Equal(t, "minimalist-jacket", cart.Items[0].Slug)
}

func TestAddItem_DistinctVariantsAreSeparateLines(t *testing.T) {
	s := newTestServer(t)

	addToCart(t, s, testSession, AddItemRequest{ProductID: 1, Size: strPtr("S")})
	cart := addToCart(t, s, testSession, AddItemRequest{ProductID: 1, Size: strPtr("M")})

	assert.Len(t, cart.Items, 2)
	assert.Equal(t, 2, cart.TotalItems)
}

func TestAddItem_DefaultsQuantityToOne(t *testing.T) {
	s := newTestServer(t)

	cart := addToCart(t, s, testSession, AddItemRequest{ProductID: 2})

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, "$245.00", cart.TotalPrice)
}

func TestAddItem_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"unknown product", AddItemRequest{ProductID: 999}, http.StatusNotFound, "NOT_FOUND"},
		{"size not offered", AddItemRequest{ProductID: 1, Size: strPtr("XXXL")}, http.StatusBadRequest, "INVALID_INPUT"},
		{"color not offered", AddItemRequest{ProductID: 1, Color: strPtr("Pink")}, http.StatusBadRequest, "INVALID_INPUT"},
		{"missing product", map[string]any{"quantity": 1}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"quantity too large", AddItemRequest{ProductID: 1, Quantity: 100}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown field", map[string]any{"productId": 1, "coupon": "FREE"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"malformed json", `{"productId":`, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.do(t, http.MethodPost, "/api/v1/cart/items", tt.body, withSession(testSession))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)
		})
	}
}

func TestAddItem_RejectsNonJSONContentType(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequest{ProductID: 1}, withSession(testSession),
		func(r *http.Request) { r.Header.Set("Content-Type", "text/plain") })

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// ============================================================================
// UpdateQuantity / RemoveItem / ClearCart
// ============================================================================

func TestUpdateQuantity(t *testing.T) {
	s := newTestServer(t)
	cart := addToCart(t, s, testSession, AddItemRequest{ProductID: 1, Quantity: 1})
	itemID := cart.Items[0].ID

	rec := s.do(t, http.MethodPut, "/api/v1/cart/items/"+itemID, UpdateQuantityRequest{Quantity: 4}, withSession(testSession))

	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &cart)
	assert.Equal(t, 4, cart.Items[0].Quantity)
	assert.Equal(t, "$756.00", cart.TotalPrice)
}

func TestUpdateQuantity_BelowOneIsIgnored(t *testing.T) {
	s := newTestServer(t)
	cart := addToCart(t, s, testSession, AddItemRequest{ProductID: 1, Quantity: 2})
	itemID := cart.Items[0].ID

	rec := s.do(t, http.MethodPut, "/api/v1/cart/items/"+itemID, UpdateQuantityRequest{Quantity: 0}, withSession(testSession))

	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestUpdateQuantity_UnknownItemIsNoop(t *testing.T) {
	s := newTestServer(t)
	addToCart(t, s, testSession, AddItemRequest{ProductID: 1, Quantity: 2})

	rec := s.do(t, http.MethodPut, "/api/v1/cart/items/missing", UpdateQuantityRequest{Quantity: 5}, withSession(testSession))

	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	decodeData(t, rec, &cart)
	assert.Equal(t, 2, cart.TotalItems)
}

func TestRemoveItem(t *testing.T) {
	s := newTestServer(t)
	addToCart(t, s, testSession, AddItemRequest{ProductID: 1})
	cart := addToCart(t, s, testSession, AddItemRequest{ProductID: 2})

	rec := s.do(t, http.MethodDelete, "/api/v1/cart/items/"+cart.Items[0].ID, nil, withSession(testSession))

	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].ProductID)
}

func TestClearCart(t *testing.T) {
	s := newTestServer(t)
	addToCart(t, s, testSession, AddItemRequest{ProductID: 1, Quantity: 3})

	rec := s.do(t, http.MethodDelete, "/api/v1/cart", nil, withSession(testSession))

	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	decodeData(t, rec, &cart)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "$0.00", cart.TotalPrice)
}

// ============================================================================
// SetOpen
// ============================================================================

func TestSetOpen(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/v1/cart/open", SetOpenRequest{Open: boolPtr(true)}, withSession(testSession))
	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	decodeData(t, rec, &cart)
	assert.True(t, cart.IsOpen)

	rec = s.do(t, http.MethodGet, "/api/v1/cart", nil, withSession(testSession))
	decodeData(t, rec, &cart)
	assert.True(t, cart.IsOpen)
}

func TestSetOpen_RequiresFlag(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/v1/cart/open", map[string]any{}, withSession(testSession))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}
