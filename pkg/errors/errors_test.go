package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// AppError
// ============================================================================

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: order with id 42 not found: resource not found",
		NotFound("order", "42").Error())

	bare := &AppError{Code: "TIMEOUT", Message: "gateway slow"}
	assert.Equal(t, "TIMEOUT: gateway slow", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
		message  string
	}{
		{"not found", NotFound("product", "7"), "NOT_FOUND", http.StatusNotFound, ErrNotFound, "product with id 7 not found"},
		{"already exists", AlreadyExists("order", "checkout_session_id", "cs_1"), "ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists, `order with checkout_session_id "cs_1" already exists`},
		{"invalid input", InvalidInput("cart is empty"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput, "cart is empty"},
		{"unauthorized", Unauthorized("missing token"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized, "missing token"},
		{"forbidden", Forbidden("admin only"), "FORBIDDEN", http.StatusForbidden, ErrForbidden, "admin only"},
		{"payment failed", PaymentFailed("payment not confirmed"), "PAYMENT_FAILED", http.StatusUnprocessableEntity, ErrPaymentFailed, "payment not confirmed"},
		{"conflict", Conflict("order already shipped"), "CONFLICT", http.StatusConflict, ErrConflict, "order already shipped"},
		{"unavailable", ServiceUnavailable("payment gateway down"), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail, "payment gateway down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.message, tt.err.Message)
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

// ============================================================================
// HTTPStatus and Code
// ============================================================================

func TestHTTPStatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"app error", InvalidInput("bad"), http.StatusBadRequest, "INVALID_INPUT"},
		{"wrapped app error", fmt.Errorf("save order: %w", AlreadyExists("order", "id", "1")), http.StatusConflict, "ALREADY_EXISTS"},
		{"bare sentinel", ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"wrapped sentinel", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"custom status", &AppError{Code: "RATE_LIMITED", Status: http.StatusTooManyRequests}, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.Equal(t, tt.code, Code(tt.err))
		})
	}
}

func TestNewError_UnknownSentinel(t *testing.T) {
	err := newError(errors.New("quota"), "over quota")
	assert.Equal(t, "INTERNAL_ERROR", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}
