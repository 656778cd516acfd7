package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	pkgkafka "github.com/blackcave0/ecommerc-memonto/pkg/kafka"
	"github.com/blackcave0/ecommerc-memonto/pkg/logger"
)

// Kafka topic constants for storefront domain events.
const (
	TopicCartUpdated = "storefront.cart.updated"
	TopicCartCleared = "storefront.cart.cleared"
	TopicOrderPlaced = "storefront.order.placed"
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	SessionID  string         `json:"session_id"`
	Items      []CartItemData `json:"items"`
	TotalItems int            `json:"total_items"`
	TotalPrice string         `json:"total_price"`
	// TotalAmount is TotalPrice in minor units.
	TotalAmount int64 `json:"total_amount"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ItemID    string  `json:"item_id"`
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     string  `json:"price"`
	Quantity  int     `json:"quantity"`
	Size      *string `json:"size"`
	Color     *string `json:"color"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	SessionID string `json:"session_id"`
}

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	OrderID           string          `json:"order_id"`
	UserID            string          `json:"user_id"`
	CheckoutSessionID string          `json:"checkout_session_id"`
	TotalAmount       int64           `json:"total_amount"`
	Currency          string          `json:"currency"`
	PaymentMethod     string          `json:"payment_method"`
	Items             []OrderItemData `json:"items"`
}

// OrderItemData is the item payload within order events.
type OrderItemData struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	Price     int64 `json:"price"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishCartUpdated publishes a cart.updated event keyed by the cart session.
func (p *Producer) PublishCartUpdated(ctx context.Context, sessionID string, cart domain.Cart) error {
	items := make([]CartItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemData{
			ItemID:    item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
		}
	}

	data := CartUpdatedData{
		SessionID:   sessionID,
		Items:       items,
		TotalItems:  cart.TotalItems,
		TotalPrice:  cart.TotalPrice,
		TotalAmount: int64(cart.Total()),
	}

	if err := p.publish(ctx, TopicCartUpdated, sessionID, AggregateTypeCart, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("cart_session", sessionID),
		slog.Int("total_items", cart.TotalItems),
	)
	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID string) error {
	if err := p.publish(ctx, TopicCartCleared, sessionID, AggregateTypeCart, CartClearedData{SessionID: sessionID}); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("cart_session", sessionID),
	)
	return nil
}

// PublishOrderPlaced publishes an order.placed event keyed by the order id.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	data := OrderPlacedData{
		OrderID:           order.ID,
		UserID:            order.UserID,
		CheckoutSessionID: order.CheckoutSessionID,
		TotalAmount:       order.TotalAmount,
		Currency:          order.Currency,
		PaymentMethod:     order.PaymentMethod,
		Items:             items,
	}

	if err := p.publish(ctx, TopicOrderPlaced, order.ID, AggregateTypeOrder, data); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "published order.placed event",
		slog.String("order_id", order.ID),
		slog.Int64("total_amount", order.TotalAmount),
	)
	return nil
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	if id := logger.UserIDFromContext(ctx); id != "" {
		event.WithMetadata("user_id", id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
