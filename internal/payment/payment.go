package payment

import (
	"context"
	"fmt"
	"math"
	"strings"

	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
	"github.com/blackcave0/ecommerc-memonto/pkg/money"
)

// Payment status values reported by a gateway for a checkout session.
const (
	StatusPaid              = "paid"
	StatusUnpaid            = "unpaid"
	StatusNoPaymentRequired = "no_payment_required"
)

// CheckoutSessionPlaceholder is substituted by the gateway with the session id
// when it redirects to the success URL.
const CheckoutSessionPlaceholder = "{CHECKOUT_SESSION_ID}"

// DefaultCurrency is used when SessionInput.Currency is empty.
const DefaultCurrency = "usd"

// LineItem is an item to be paid for, priced with a display price.
type LineItem struct {
	Name     string
	Image    string
	Price    string
	Quantity int
}

// PricedItem is a validated line item with its unit amount in minor units.
type PricedItem struct {
	Name       string
	Image      string
	UnitAmount int64
	Quantity   int
}

// SessionInput holds the parameters for creating a hosted checkout session.
type SessionInput struct {
	Items          []LineItem
	Currency       string
	SuccessURL     string
	CancelURL      string
	CustomerEmail  string
	IdempotencyKey string
	Metadata       map[string]string
}

// Session is a hosted checkout session as reported by the gateway.
type Session struct {
	ID            string
	URL           string
	Status        string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	CustomerEmail string
	PaymentMethod string
	Metadata      map[string]string
}

// Paid reports whether the session has been paid.
func (s *Session) Paid() bool {
	return s.PaymentStatus == StatusPaid
}

// Gateway defines the interface for hosted checkout integrations.
type Gateway interface {
	// Name returns the gateway name (e.g., "mock", "hosted").
	Name() string

	// CreateSession creates a hosted checkout session to redirect the buyer to.
	CreateSession(ctx context.Context, input *SessionInput) (*Session, error)

	// RetrieveSession fetches a checkout session by id.
	RetrieveSession(ctx context.Context, id string) (*Session, error)
}

// SuccessURL is where the gateway sends the buyer after paying.
func SuccessURL(origin string) string {
	return strings.TrimRight(origin, "/") + "/checkout/success?session_id=" + CheckoutSessionPlaceholder
}

// CancelURL is where the gateway sends the buyer after abandoning payment.
func CancelURL(origin string) string {
	return strings.TrimRight(origin, "/") + "/checkout?canceled=true"
}

// PriceItems validates items and converts their display prices to minor units.
// Every item needs a name, an image, a price and a quantity, and the unit
// amount must be positive.
func PriceItems(items []LineItem) ([]PricedItem, error) {
	if len(items) == 0 {
		return nil, apperrors.InvalidInput("items must be a non-empty list")
	}

	priced := make([]PricedItem, len(items))
	for i, item := range items {
		if item.Name == "" || item.Image == "" || item.Price == "" || item.Quantity <= 0 {
			return nil, apperrors.InvalidInput(`each item must have "name", "image", "price" and "quantity"`)
		}
		v := money.ParseAmount(item.Price)
		if math.IsNaN(v) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid price for item %q: price must be a positive number", item.Name))
		}
		unit := money.FromFloat(v)
		if unit <= 0 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid price for item %q: price must be a positive number", item.Name))
		}
		priced[i] = PricedItem{
			Name:       item.Name,
			Image:      item.Image,
			UnitAmount: int64(unit),
			Quantity:   item.Quantity,
		}
	}
	return priced, nil
}

// Total sums unit amount × quantity over priced items.
func Total(items []PricedItem) int64 {
	var total int64
	for _, item := range items {
		total += item.UnitAmount * int64(item.Quantity)
	}
	return total
}
