package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/blackcave0/ecommerc-memonto/internal/payment"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
)

// Gateway is an in-memory payment gateway for development and tests. Sessions
// are paid as soon as they are created unless the gateway was built with
// NewUnpaidGateway.
type Gateway struct {
	mu       sync.Mutex
	sessions map[string]*payment.Session
	status   string
}

// NewGateway creates a mock gateway whose sessions are immediately paid.
func NewGateway() *Gateway {
	return &Gateway{sessions: make(map[string]*payment.Session), status: payment.StatusPaid}
}

// NewUnpaidGateway creates a mock gateway whose sessions stay unpaid until
// SetPaymentStatus is called.
func NewUnpaidGateway() *Gateway {
	return &Gateway{sessions: make(map[string]*payment.Session), status: payment.StatusUnpaid}
}

// Name returns the gateway name.
func (g *Gateway) Name() string {
	return "mock"
}

// CreateSession records a session. The redirect URL points straight at the
// success URL.
func (g *Gateway) CreateSession(_ context.Context, input *payment.SessionInput) (*payment.Session, error) {
	items, err := payment.PriceItems(input.Items)
	if err != nil {
		return nil, err
	}
	currency := input.Currency
	if currency == "" {
		currency = payment.DefaultCurrency
	}

	id := "cs_mock_" + uuid.New().String()
	s := &payment.Session{
		ID:            id,
		URL:           strings.ReplaceAll(input.SuccessURL, payment.CheckoutSessionPlaceholder, id),
		Status:        "open",
		PaymentStatus: g.status,
		AmountTotal:   payment.Total(items),
		Currency:      currency,
		CustomerEmail: input.CustomerEmail,
		PaymentMethod: "card",
		Metadata:      input.Metadata,
	}
	if s.PaymentStatus == payment.StatusPaid {
		s.Status = "complete"
	}

	g.mu.Lock()
	g.sessions[id] = s
	g.mu.Unlock()

	out := *s
	return &out, nil
}

// RetrieveSession returns a recorded session.
func (g *Gateway) RetrieveSession(_ context.Context, id string) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[id]
	if !ok {
		return nil, apperrors.NotFound("checkout session", id)
	}
	out := *s
	return &out, nil
}

// SetPaymentStatus changes the payment status of a recorded session.
func (g *Gateway) SetPaymentStatus(id, status string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[id]
	if !ok {
		return false
	}
	s.PaymentStatus = status
	if status == payment.StatusPaid {
		s.Status = "complete"
	}
	return true
}
