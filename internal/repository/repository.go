package repository

import (
	"context"
	"time"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
)

// KVStore is a string-keyed blob store holding serialized carts.
type KVStore interface {
	// Get returns the value stored under key. A missing key yields an error
	// wrapping apperrors.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	UserID  *string
	Status  *string
	Page    int
	PerPage int
}

// OrderCounts holds the order aggregates shown on the admin dashboard.
type OrderCounts struct {
	Total   int
	Pending int
	Revenue int64
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts a new order and its items into the store atomically.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its unique identifier, including items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByCheckoutSession retrieves the order created for a hosted checkout session.
	GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Order, error)

	// List returns order summaries matching the filter, newest first, with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.OrderSummary, int, error)

	// UpdateStatus changes the fulfilment status of an order.
	UpdateStatus(ctx context.Context, id, status string) error

	// UpdatePaymentStatus changes the payment status of an order.
	UpdatePaymentStatus(ctx context.Context, id, status string) error

	// SetTrackingNumber records the shipment tracking number of an order.
	SetTrackingNumber(ctx context.Context, id, number string) error

	// Counts returns order totals for the dashboard.
	Counts(ctx context.Context) (OrderCounts, error)

	// PaymentMethodStats returns order counts grouped by payment method.
	PaymentMethodStats(ctx context.Context) ([]domain.PaymentMethodCount, error)

	// SalesByDate returns paid revenue per day for orders created at or after since.
	SalesByDate(ctx context.Context, since time.Time) ([]domain.SalesPoint, error)
}

// ProfileRepository defines the interface for customer profile persistence.
type ProfileRepository interface {
	// Get retrieves a profile by user id.
	Get(ctx context.Context, id string) (*domain.Profile, error)

	// Upsert inserts or updates a profile keyed by id.
	Upsert(ctx context.Context, profile *domain.Profile) error

	// CountCustomers returns the number of non-admin profiles.
	CountCustomers(ctx context.Context) (int, error)
}
