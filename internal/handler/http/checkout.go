package http

import (
	"log/slog"
	"net/http"

	"github.com/blackcave0/ecommerc-memonto/internal/service"
	"github.com/blackcave0/ecommerc-memonto/pkg/httputil"
	"github.com/blackcave0/ecommerc-memonto/pkg/middleware"
)

// CheckoutHandler handles the hosted checkout flow.
type CheckoutHandler struct {
	service   *service.CheckoutService
	publicURL string
	logger    *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler. publicURL is the
// storefront origin the payment gateway redirects back to; when empty the
// request's Origin header is used.
func NewCheckoutHandler(svc *service.CheckoutService, publicURL string, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, publicURL: publicURL, logger: logger}
}

// --- Request DTOs ---

// StartCheckoutRequest is the optional JSON body for starting a checkout.
type StartCheckoutRequest struct {
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// CompleteCheckoutRequest is the JSON body for recording a paid checkout.
type CompleteCheckoutRequest struct {
	SessionID       string `json:"session_id" validate:"required,max=255"`
	ShippingAddress string `json:"shipping_address" validate:"required,min=5,max=500"`
	ShippingPincode string `json:"shipping_pincode" validate:"required,pincode"`
	PaymentMethod   string `json:"payment_method,omitempty" validate:"omitempty,max=40"`
}

// CheckoutSessionResponse tells the client where to send the buyer.
type CheckoutSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// PaymentStatusResponse is the payment state of a checkout session.
type PaymentStatusResponse struct {
	PaymentStatus string `json:"payment_status"`
}

// --- Handlers ---

// StartCheckout handles POST /api/v1/checkout/sessions
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req StartCheckoutRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(w, r, &req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
	}

	email := req.Email
	if claims := middleware.ClaimsFromContext(r.Context()); email == "" && claims != nil {
		email = claims.Email
	}
	origin := h.publicURL
	if origin == "" {
		origin = r.Header.Get("Origin")
	}

	session, err := h.service.StartCheckout(r.Context(), service.StartCheckoutInput{
		CartSession:   cartSessionFromContext(r.Context()),
		Origin:        origin,
		CustomerEmail: email,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, CheckoutSessionResponse{SessionID: session.ID, URL: session.URL})
}

// VerifyPayment handles GET /api/v1/checkout/verify?session_id=
func (h *CheckoutHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.VerifyPayment(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, PaymentStatusResponse{PaymentStatus: status})
}

// CompleteCheckout handles POST /api/v1/checkout/complete
func (h *CheckoutHandler) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	var req CompleteCheckoutRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.service.CompleteCheckout(r.Context(), service.CompleteCheckoutInput{
		UserID:            middleware.UserIDFromContext(r.Context()),
		CartSession:       cartSessionFromContext(r.Context()),
		CheckoutSessionID: req.SessionID,
		ShippingAddress:   req.ShippingAddress,
		ShippingPincode:   req.ShippingPincode,
		PaymentMethod:     req.PaymentMethod,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, order)
}
