package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	"github.com/blackcave0/ecommerc-memonto/internal/payment"
	"github.com/blackcave0/ecommerc-memonto/internal/repository"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
	"github.com/blackcave0/ecommerc-memonto/pkg/money"
)

// CheckoutOutcomes counts checkout completions by result.
var CheckoutOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_checkout_completions_total",
		Help: "Total number of checkout completion attempts, by result",
	},
	[]string{"result"},
)

const cartSessionMetadataKey = "cart_session"

// CheckoutService turns a session cart into a hosted payment session and,
// once paid, into an order.
type CheckoutService struct {
	sessions  *Sessions
	gateway   payment.Gateway
	orders    repository.OrderRepository
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	sessions *Sessions,
	gateway payment.Gateway,
	orders repository.OrderRepository,
	publisher EventPublisher,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		sessions:  sessions,
		gateway:   gateway,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// StartCheckoutInput holds the parameters for starting a checkout.
type StartCheckoutInput struct {
	CartSession   string
	Origin        string
	CustomerEmail string
}

// StartCheckout creates a hosted payment session for the session cart and
// returns it. The buyer is redirected to Session.URL.
func (s *CheckoutService) StartCheckout(ctx context.Context, input StartCheckoutInput) (*payment.Session, error) {
	if input.CartSession == "" {
		return nil, apperrors.InvalidInput("cart session is required")
	}
	if input.Origin == "" {
		return nil, apperrors.InvalidInput("origin is required")
	}

	cart := s.sessions.Get(input.CartSession).Cart(ctx)
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	items := make([]payment.LineItem, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = payment.LineItem{
			Name:     item.Name,
			Image:    item.Image,
			Price:    item.Price,
			Quantity: item.Quantity,
		}
	}

	session, err := s.gateway.CreateSession(ctx, &payment.SessionInput{
		Items:         items,
		SuccessURL:    payment.SuccessURL(input.Origin),
		CancelURL:     payment.CancelURL(input.Origin),
		CustomerEmail: input.CustomerEmail,
		Metadata:      map[string]string{cartSessionMetadataKey: input.CartSession},
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	s.logger.InfoContext(ctx, "checkout started",
		slog.String("cart_session", input.CartSession),
		slog.String("checkout_session_id", session.ID),
		slog.Int("total_items", cart.TotalItems),
		slog.String("total_price", cart.TotalPrice),
	)
	return session, nil
}

// VerifyPayment returns the payment status of a checkout session.
func (s *CheckoutService) VerifyPayment(ctx context.Context, checkoutSessionID string) (string, error) {
	if checkoutSessionID == "" {
		return "", apperrors.InvalidInput("missing session_id")
	}

	session, err := s.gateway.RetrieveSession(ctx, checkoutSessionID)
	if err != nil {
		return "", fmt.Errorf("verify payment session: %w", err)
	}
	return session.PaymentStatus, nil
}

// CompleteCheckoutInput holds the parameters for completing a paid checkout.
type CompleteCheckoutInput struct {
	UserID            string
	CartSession       string
	CheckoutSessionID string
	ShippingAddress   string
	ShippingPincode   string
	PaymentMethod     string
}

// CompleteCheckout records the order for a paid checkout session and clears
// the cart. Completing the same checkout session again returns the order
// created the first time.
func (s *CheckoutService) CompleteCheckout(ctx context.Context, input CompleteCheckoutInput) (*domain.Order, error) {
	if input.UserID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if input.CartSession == "" || input.CheckoutSessionID == "" {
		return nil, apperrors.InvalidInput("cart session and checkout session id are required")
	}

	session, err := s.gateway.RetrieveSession(ctx, input.CheckoutSessionID)
	if err != nil {
		CheckoutOutcomes.WithLabelValues("gateway_error").Inc()
		return nil, fmt.Errorf("verify payment session: %w", err)
	}
	if !session.Paid() {
		CheckoutOutcomes.WithLabelValues("unpaid").Inc()
		return nil, apperrors.PaymentFailed("payment not confirmed")
	}
	if session.Metadata[cartSessionMetadataKey] != input.CartSession {
		CheckoutOutcomes.WithLabelValues("mismatch").Inc()
		s.logger.WarnContext(ctx, "checkout session belongs to another cart",
			slog.String("checkout_session_id", input.CheckoutSessionID),
			slog.String("cart_session", input.CartSession),
		)
		return nil, apperrors.PaymentFailed("checkout session does not belong to this cart")
	}

	existing, err := s.existingOrder(ctx, input.CheckoutSessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		CheckoutOutcomes.WithLabelValues("duplicate").Inc()
		s.logger.InfoContext(ctx, "order already exists for checkout session",
			slog.String("checkout_session_id", input.CheckoutSessionID),
			slog.String("order_id", existing.ID),
		)
		return existing, nil
	}

	store := s.sessions.Get(input.CartSession)
	order := s.buildOrder(input, session, store.Cart(ctx))
	if order.TotalAmount <= 0 {
		CheckoutOutcomes.WithLabelValues("invalid").Inc()
		return nil, apperrors.InvalidInput("invalid total amount")
	}
	if order.TotalAmount != session.AmountTotal {
		CheckoutOutcomes.WithLabelValues("mismatch").Inc()
		s.logger.WarnContext(ctx, "cart total differs from paid amount",
			slog.String("checkout_session_id", input.CheckoutSessionID),
			slog.Int64("paid", session.AmountTotal),
			slog.Int64("cart_total", order.TotalAmount),
		)
		return nil, apperrors.PaymentFailed("cart changed after payment")
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			// A concurrent completion won the insert.
			existing, getErr := s.existingOrder(ctx, input.CheckoutSessionID)
			if getErr == nil && existing != nil {
				CheckoutOutcomes.WithLabelValues("duplicate").Inc()
				return existing, nil
			}
		}
		CheckoutOutcomes.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("save order: %w", err)
	}
	CheckoutOutcomes.WithLabelValues("created").Inc()

	if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.WarnContext(ctx, "failed to publish order placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	store.Clear(ctx)
	if err := store.Flush(ctx); err != nil {
		s.logger.WarnContext(ctx, "cart flush after checkout did not finish",
			slog.String("cart_session", input.CartSession),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
		slog.Int64("total_amount", order.TotalAmount),
		slog.Int("items", len(order.Items)),
	)
	return order, nil
}

func (s *CheckoutService) existingOrder(ctx context.Context, checkoutSessionID string) (*domain.Order, error) {
	order, err := s.orders.GetByCheckoutSession(ctx, checkoutSessionID)
	if err == nil {
		return order, nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("look up order by checkout session: %w", err)
}

func (s *CheckoutService) buildOrder(input CompleteCheckoutInput, session *payment.Session, cart domain.Cart) *domain.Order {
	now := s.now().UTC()
	orderID := uuid.New().String()

	items := make([]domain.OrderItem, len(cart.Items))
	for i, line := range cart.Items {
		items[i] = domain.OrderItem{
			ProductID:    line.ProductID,
			ProductName:  line.Name,
			ProductImage: line.Image,
			Quantity:     line.Quantity,
			Price:        int64(money.FromDisplay(line.Price)),
		}
	}
	items = domain.MergeByProduct(items)

	var total int64
	for i := range items {
		items[i].ID = uuid.New().String()
		items[i].OrderID = orderID
		total += items[i].LineTotal()
	}

	method := input.PaymentMethod
	if method == "" {
		method = session.PaymentMethod
	}
	if method == "" {
		method = "card"
	}
	currency := session.Currency
	if currency == "" {
		currency = payment.DefaultCurrency
	}

	return &domain.Order{
		ID:                orderID,
		UserID:            input.UserID,
		Status:            domain.OrderStatusPending,
		PaymentStatus:     domain.PaymentStatusPaid,
		PaymentMethod:     method,
		TotalAmount:       total,
		Currency:          currency,
		ShippingAddress:   input.ShippingAddress,
		ShippingPincode:   input.ShippingPincode,
		CheckoutSessionID: input.CheckoutSessionID,
		Items:             items,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
