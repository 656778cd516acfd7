package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	"github.com/blackcave0/ecommerc-memonto/internal/repository"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
)

// Sales report periods.
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

const recentOrdersLimit = 5

// AdminService implements the back-office operations.
type AdminService struct {
	orders   repository.OrderRepository
	profiles repository.ProfileRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewAdminService creates a new admin service.
func NewAdminService(orders repository.OrderRepository, profiles repository.ProfileRepository, logger *slog.Logger) *AdminService {
	return &AdminService{
		orders:   orders,
		profiles: profiles,
		logger:   logger,
		now:      time.Now,
	}
}

// Dashboard returns order, revenue and customer totals with the most recent
// orders.
func (s *AdminService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	counts, err := s.orders.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard order counts: %w", err)
	}
	customers, err := s.profiles.CountCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard customer count: %w", err)
	}
	recent, _, err := s.orders.List(ctx, repository.OrderFilter{Page: 1, PerPage: recentOrdersLimit})
	if err != nil {
		return nil, fmt.Errorf("dashboard recent orders: %w", err)
	}
	if recent == nil {
		recent = []domain.OrderSummary{}
	}

	return &domain.DashboardStats{
		TotalOrders:    counts.Total,
		TotalRevenue:   counts.Revenue,
		TotalCustomers: customers,
		PendingOrders:  counts.Pending,
		RecentOrders:   recent,
	}, nil
}

// ListOrders returns a page of all orders, optionally filtered by status.
func (s *AdminService) ListOrders(ctx context.Context, status string, page, perPage int) ([]domain.OrderSummary, int, error) {
	filter := repository.OrderFilter{Page: page, PerPage: perPage}
	if status != "" {
		if !domain.IsValidStatus(status) {
			return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid order status: %s", status))
		}
		filter.Status = &status
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// GetOrder returns any order with its items.
func (s *AdminService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// UpdateOrderStatus moves an order to a new fulfilment status. Only the
// transitions in domain.AllowedTransitions are accepted. Shipping an order
// assigns it a tracking number.
func (s *AdminService) UpdateOrderStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	if !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid order status: %s", status))
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanTransitionTo(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot transition order from %s to %s", order.Status, status))
	}

	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	previous := order.Status
	order.Status = status

	if status == domain.OrderStatusShipped && order.TrackingNumber == "" {
		number := NewTrackingNumber(order.ID)
		if err := s.orders.SetTrackingNumber(ctx, orderID, number); err != nil {
			return nil, fmt.Errorf("set tracking number: %w", err)
		}
		order.TrackingNumber = number
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", orderID),
		slog.String("from", previous),
		slog.String("to", status),
	)
	return order, nil
}

// UpdatePaymentStatus sets the payment status of an order.
func (s *AdminService) UpdatePaymentStatus(ctx context.Context, orderID, status string) error {
	if !domain.IsValidPaymentStatus(status) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid payment status: %s", status))
	}
	if err := s.orders.UpdatePaymentStatus(ctx, orderID, status); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "order payment status updated",
		slog.String("order_id", orderID),
		slog.String("payment_status", status),
	)
	return nil
}

// PaymentMethodStats returns order counts per payment method.
func (s *AdminService) PaymentMethodStats(ctx context.Context) ([]domain.PaymentMethodCount, error) {
	stats, err := s.orders.PaymentMethodStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("payment method stats: %w", err)
	}
	if stats == nil {
		stats = []domain.PaymentMethodCount{}
	}
	return stats, nil
}

// SalesByDate returns daily paid revenue over the last week, month or year.
func (s *AdminService) SalesByDate(ctx context.Context, period string) ([]domain.SalesPoint, error) {
	now := s.now().UTC()
	var since time.Time
	switch period {
	case PeriodWeek, "":
		since = now.AddDate(0, 0, -7)
	case PeriodMonth:
		since = now.AddDate(0, -1, 0)
	case PeriodYear:
		since = now.AddDate(-1, 0, 0)
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid period: %s", period))
	}

	points, err := s.orders.SalesByDate(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("sales by date: %w", err)
	}
	if points == nil {
		points = []domain.SalesPoint{}
	}
	return points, nil
}
