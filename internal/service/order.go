package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	"github.com/blackcave0/ecommerc-memonto/internal/repository"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
)

// Tracking statuses reported for a shipment.
const (
	TrackingOrderPlaced = "order_placed"
	TrackingProcessing  = "processing"
	TrackingShipped     = "shipped"
	TrackingInTransit   = "in_transit"
	TrackingDelivered   = "delivered"
)

// Caller identifies the authenticated user making a request.
type Caller struct {
	UserID  string
	IsAdmin bool
}

// OrderService implements the customer-facing order operations.
type OrderService struct {
	repo   repository.OrderRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(repo repository.OrderRepository, logger *slog.Logger) *OrderService {
	return &OrderService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// ListForUser returns the user's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID string, page, perPage int) ([]domain.OrderSummary, int, error) {
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("user id is required")
	}
	orders, total, err := s.repo.List(ctx, repository.OrderFilter{
		UserID:  &userID,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list orders for user: %w", err)
	}
	return orders, total, nil
}

// Get returns an order with its items. Only the owner or an admin may read it;
// anyone else gets a not-found error so order ids cannot be probed.
func (s *OrderService) Get(ctx context.Context, caller Caller, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin && order.UserID != caller.UserID {
		s.logger.WarnContext(ctx, "order access denied",
			slog.String("order_id", orderID),
			slog.String("user_id", caller.UserID),
		)
		return nil, apperrors.NotFound("order", orderID)
	}
	return order, nil
}

// Tracking returns the shipment history of an order. Orders that have not
// been given a tracking number have no tracking information.
func (s *OrderService) Tracking(ctx context.Context, caller Caller, orderID string) (*domain.TrackingInfo, error) {
	order, err := s.Get(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}
	if order.TrackingNumber == "" {
		return nil, apperrors.NotFound("tracking information", orderID)
	}
	return BuildTracking(order, s.now()), nil
}

// BuildTracking derives a shipment history from the order's status. Events
// are spaced back from now so the latest one is half a day old.
func BuildTracking(order *domain.Order, now time.Time) *domain.TrackingInfo {
	day := 24 * time.Hour
	steps := []domain.TrackingEvent{
		{Status: TrackingOrderPlaced, Location: "Online", Timestamp: now.Add(-2 * day)},
		{Status: TrackingProcessing, Location: "Warehouse", Timestamp: now.Add(-36 * time.Hour)},
		{Status: TrackingShipped, Location: "Distribution Center", Timestamp: now.Add(-day)},
		{Status: TrackingInTransit, Location: "In Transit", Timestamp: now.Add(-12 * time.Hour)},
	}

	info := &domain.TrackingInfo{
		TrackingNumber:    order.TrackingNumber,
		Status:            TrackingInTransit,
		EstimatedDelivery: now.Add(3 * day),
		History:           steps,
	}

	switch order.Status {
	case domain.OrderStatusPending:
		info.Status, info.History = TrackingOrderPlaced, steps[:1]
	case domain.OrderStatusProcessing:
		info.Status, info.History = TrackingProcessing, steps[:2]
	case domain.OrderStatusDelivered:
		info.Status = TrackingDelivered
		info.EstimatedDelivery = now
		info.History = append(steps, domain.TrackingEvent{Status: TrackingDelivered, Location: "Delivered", Timestamp: now})
	}
	return info
}

// NewTrackingNumber derives a carrier-style tracking number from an order id.
func NewTrackingNumber(orderID string) string {
	compact := strings.ToUpper(strings.ReplaceAll(orderID, "-", ""))
	if len(compact) > 10 {
		compact = compact[:10]
	}
	return "MEM" + compact
}
