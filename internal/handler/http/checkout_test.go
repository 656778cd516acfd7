package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	"github.com/blackcave0/ecommerc-memonto/internal/payment"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
)

func startCheckout(t *testing.T, s *testServer) CheckoutSessionResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/checkout/sessions", nil, withSession(testSession))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp CheckoutSessionResponse
	decodeData(t, rec, &resp)
	return resp
}

func completeRequest(sessionID string) CompleteCheckoutRequest {
	return CompleteCheckoutRequest{
		SessionID:       sessionID,
		ShippingAddress: "12 Linen Lane, Pune",
		ShippingPincode: "411001",
	}
}

// ============================================================================
// StartCheckout
// ============================================================================

func TestStartCheckout(t *testing.T) {
	s := newTestServer(t)
	addToCart(t, s, testSession, AddItemRequest{ProductID: 1, Quantity: 2})

	resp := startCheckout(t, s)

	assert.True(t, strings.HasPrefix(resp.SessionID, "cs_mock_"))
	assert.Equal(t, testPublicURL+"/checkout/success?session_id="+resp.SessionID, resp.URL)
}

func TestStartCheckout_EmptyCart(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/checkout/sessions", nil, withSession(testSession))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cart is empty", decodeError(t, rec).Message)
}

func TestStartCheckout_InvalidEmail(t *testing.T) {
	s := newTestServer(t)
	addToCart(t, s, testSession, AddItemRequest{ProductID: 1})

	rec := s.do(t, http.MethodPost, "/api/v1/checkout/sessions", StartCheckoutRequest{Email: "not-an-email"}, withSession(testSession))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}

// ============================================================================
// VerifyPayment
// ============================================================================

func TestVerifyPayment(t *testing.T) {
	s := newTestServer(t)
	addToCart(t, s, testSession, AddItemRequest{ProductID: 1})
	session := startCheckout(t, s)

	rec := s.do(t, http.MethodGet, "/api/v1/checkout/verify?session_id="+session.SessionID, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp PaymentStatusResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, payment.StatusPaid, resp.PaymentStatus)
}

func TestVerifyPayment_Errors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/checkout/verify", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/checkout/verify?session_id=cs_unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// CompleteCheckout
// ============================================================================

func TestCompleteCheckout(t *testing.T) {
	s := newTestServer(t)
	addToCart(t, s, testSession, AddItemRequest{ProductID: 1, Quantity: 1, Size: strPtr("S")})
	addToCart(t, s, testSession, AddItemRequest{ProductID: 1, Quantity: 1, Size: strPtr("M")})
	session := startCheckout(t, s)

	s.orders.On("GetByCheckoutSession", mock.Anything, session.SessionID).
		Return(nil, apperrors.NotFound("order", session.SessionID))
	s.orders.On("Create", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.UserID == "user-1" && o.CheckoutSessionID == session.SessionID
	})).Return(nil)

	rec := s.do(t, http.MethodPost, "/api/v1/checkout/complete", completeRequest(session.SessionID),
		withSession(testSession), withToken(customerToken))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order domain.Order
	decodeData(t, rec, &order)
	assert.Equal(t, int64(37800), order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, domain.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "411001", order.ShippingPincode)

	rec = s.do(t, http.MethodGet, "/api/v1/cart", nil, withSession(testSession))
	var cart CartResponse
	decodeData(t, rec, &cart)
	assert.Empty(t, cart.Items)
	s.orders.AssertExpectations(t)
}

func TestCompleteCheckout_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/checkout/complete", completeRequest("cs_x"), withSession(testSession))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	s.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCompleteCheckout_Unpaid(t *testing.T) {
	s := newTestServer(t)
	addToCart(t, s, testSession, AddItemRequest{ProductID: 1})
	session := startCheckout(t, s)
	require.True(t, s.gateway.SetPaymentStatus(session.SessionID, payment.StatusUnpaid))

	rec := s.do(t, http.MethodPost, "/api/v1/checkout/complete", completeRequest(session.SessionID),
		withSession(testSession), withToken(customerToken))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "PAYMENT_FAILED", decodeError(t, rec).Code)
	s.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCompleteCheckout_OtherCartSession(t *testing.T) {
	s := newTestServer(t)
	addToCart(t, s, testSession, AddItemRequest{ProductID: 1})
	session := startCheckout(t, s)
	addToCart(t, s, "other-cart", AddItemRequest{ProductID: 2, Quantity: 3})

	rec := s.do(t, http.MethodPost, "/api/v1/checkout/complete", completeRequest(session.SessionID),
		withSession("other-cart"), withToken(customerToken))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "PAYMENT_FAILED", decodeError(t, rec).Code)
	s.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCompleteCheckout_Validation(t *testing.T) {
	tests := []struct {
		name string
		body CompleteCheckoutRequest
	}{
		{"missing session", CompleteCheckoutRequest{ShippingAddress: "12 Linen Lane", ShippingPincode: "411001"}},
		{"short address", CompleteCheckoutRequest{SessionID: "cs_x", ShippingAddress: "12", ShippingPincode: "411001"}},
		{"bad pincode", CompleteCheckoutRequest{SessionID: "cs_x", ShippingAddress: "12 Linen Lane", ShippingPincode: "4!1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.do(t, http.MethodPost, "/api/v1/checkout/complete", tt.body,
				withSession(testSession), withToken(customerToken))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
		})
	}
}
