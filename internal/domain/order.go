package domain

import "time"

// Order status constants.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment status constants.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Order is a placed storefront order. Amounts are in minor units.
type Order struct {
	ID                string      `json:"id"`
	UserID            string      `json:"user_id"`
	UserEmail         string      `json:"user_email,omitempty"`
	Status            string      `json:"status"`
	PaymentStatus     string      `json:"payment_status"`
	PaymentMethod     string      `json:"payment_method"`
	TotalAmount       int64       `json:"total_amount"`
	Currency          string      `json:"currency"`
	ShippingAddress   string      `json:"shipping_address"`
	ShippingPincode   string      `json:"shipping_pincode"`
	CheckoutSessionID string      `json:"checkout_session_id"`
	TrackingNumber    string      `json:"tracking_number,omitempty"`
	Items             []OrderItem `json:"items,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// OrderItem is a line of a placed order.
type OrderItem struct {
	ID           string `json:"id"`
	OrderID      string `json:"order_id"`
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	ProductImage string `json:"product_image,omitempty"`
	Quantity     int    `json:"quantity"`
	Price        int64  `json:"price"`
}

// LineTotal returns the total price for this line item.
func (i *OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// OrderSummary is the list view of an order.
type OrderSummary struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id,omitempty"`
	UserEmail      string    `json:"user_email,omitempty"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"payment_status"`
	TotalAmount    int64     `json:"total_amount"`
	ItemCount      int       `json:"item_count"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidStatuses returns all valid order statuses.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidPaymentStatus checks if a payment status string is valid.
func IsValidPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

// AllowedTransitions defines which status transitions are valid.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:    {OrderStatusDelivered},
		OrderStatusDelivered:  {},
		OrderStatusCancelled:  {},
	}
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// MergeByProduct folds items sharing a product id into one line with the
// quantities summed. The first occurrence keeps its name, image and price.
func MergeByProduct(items []OrderItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out
}

// TrackingEvent is one step of a shipment's history.
type TrackingEvent struct {
	Status    string    `json:"status"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// TrackingInfo describes where an order's shipment is.
type TrackingInfo struct {
	TrackingNumber    string          `json:"tracking_number"`
	Status            string          `json:"status"`
	EstimatedDelivery time.Time       `json:"estimated_delivery"`
	History           []TrackingEvent `json:"tracking_history"`
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalOrders    int            `json:"total_orders"`
	TotalRevenue   int64          `json:"total_revenue"`
	TotalCustomers int            `json:"total_customers"`
	PendingOrders  int            `json:"pending_orders"`
	RecentOrders   []OrderSummary `json:"recent_orders"`
}

// SalesPoint is the paid revenue of a single day.
type SalesPoint struct {
	Date   string `json:"date"`
	Amount int64  `json:"amount"`
}

// PaymentMethodCount is the number of orders paid with a method.
type PaymentMethodCount struct {
	Method string `json:"method"`
	Count  int    `json:"count"`
}
