package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	"github.com/blackcave0/ecommerc-memonto/internal/repository"
	"github.com/blackcave0/ecommerc-memonto/pkg/database"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts a new order and its items atomically within a transaction.
// A second order for the same checkout session is rejected with a conflict.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateOrder", "INSERT INTO orders")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	orderQuery := `
		INSERT INTO orders (id, user_id, status, payment_status, payment_method, total_amount, currency, shipping_address, shipping_pincode, checkout_session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (checkout_session_id) DO NOTHING`

	ct, err := tx.Exec(ctx, orderQuery,
		o.ID,
		o.UserID,
		o.Status,
		o.PaymentStatus,
		o.PaymentMethod,
		o.TotalAmount,
		o.Currency,
		o.ShippingAddress,
		o.ShippingPincode,
		o.CheckoutSessionID,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.AlreadyExists("order", "checkout_session_id", o.CheckoutSessionID)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, product_name, product_image, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.ProductImage,
			item.Quantity,
			item.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

const orderSelect = `
		SELECT
			o.id, o.user_id, COALESCE(p.email, ''), o.status, o.payment_status, o.payment_method,
			o.total_amount, o.currency, o.shipping_address, o.shipping_pincode,
			o.checkout_session_id, COALESCE(o.tracking_number, ''), o.created_at, o.updated_at,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', oi.id,
						'order_id', oi.order_id,
						'product_id', oi.product_id,
						'product_name', oi.product_name,
						'product_image', oi.product_image,
						'quantity', oi.quantity,
						'price', oi.price
					) ORDER BY oi.created_at
				) FILTER (WHERE oi.id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN profiles p ON p.id = o.user_id
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE %s = $1
		GROUP BY o.id, p.email`

// GetByID retrieves an order by its ID, eagerly loading its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, "o.id", id)
}

// GetByCheckoutSession retrieves the order placed for a checkout session.
func (r *OrderRepository) GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Order, error) {
	return r.getOne(ctx, "o.checkout_session_id", sessionID)
}

func (r *OrderRepository) getOne(ctx context.Context, column, value string) (_ *domain.Order, err error) {
	ctx, end := database.TraceQuery(ctx, "GetOrder", "SELECT FROM orders WHERE "+column)
	defer func() { end(ignoreNoRows(err)) }()

	var (
		o         domain.Order
		itemsJSON []byte
	)

	err = r.pool.QueryRow(ctx, fmt.Sprintf(orderSelect, column), value).Scan(
		&o.ID,
		&o.UserID,
		&o.UserEmail,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentMethod,
		&o.TotalAmount,
		&o.Currency,
		&o.ShippingAddress,
		&o.ShippingPincode,
		&o.CheckoutSessionID,
		&o.TrackingNumber,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", value)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 && string(itemsJSON) != "null" && string(itemsJSON) != "[]" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}

	return &o, nil
}

// List returns order summaries matching the given filter with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) (_ []domain.OrderSummary, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, "ListOrders", "SELECT FROM orders")
	defer func() { end(err) }()

	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("o.user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT o.id, o.user_id, COALESCE(p.email, ''), o.status, o.payment_status, o.total_amount,
			   (SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = o.id) AS item_count,
			   COALESCE(o.tracking_number, ''), o.created_at,
			   count(*) OVER() AS total_count
		FROM orders o
		LEFT JOIN profiles p ON p.id = o.user_id
		%s
		ORDER BY o.created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.OrderSummary, 0)

	for rows.Next() {
		var o domain.OrderSummary
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.UserEmail,
			&o.Status,
			&o.PaymentStatus,
			&o.TotalAmount,
			&o.ItemCount,
			&o.TrackingNumber,
			&o.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, totalCount, nil
}

// UpdateStatus changes the fulfilment status of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.updateColumn(ctx, "status", id, status)
}

// UpdatePaymentStatus changes the payment status of an order.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	return r.updateColumn(ctx, "payment_status", id, status)
}

// SetTrackingNumber records the shipment tracking number of an order.
func (r *OrderRepository) SetTrackingNumber(ctx context.Context, id, number string) error {
	return r.updateColumn(ctx, "tracking_number", id, number)
}

func (r *OrderRepository) updateColumn(ctx context.Context, column, id, value string) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpdateOrder", "UPDATE orders SET "+column)
	defer func() { end(ignoreNoRows(err)) }()

	query := fmt.Sprintf(`
		UPDATE orders
		SET %s = $1, updated_at = $2
		WHERE id = $3`, column)

	ct, err := r.pool.Exec(ctx, query, value, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update order %s: %w", column, err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

// Counts returns the total order count, pending order count and the revenue
// of paid orders.
func (r *OrderRepository) Counts(ctx context.Context) (repository.OrderCounts, error) {
	query := `
		SELECT COUNT(*),
			   COUNT(*) FILTER (WHERE status = 'pending'),
			   COALESCE(SUM(total_amount) FILTER (WHERE payment_status = 'paid'), 0)::BIGINT
		FROM orders`

	var c repository.OrderCounts
	if err := r.pool.QueryRow(ctx, query).Scan(&c.Total, &c.Pending, &c.Revenue); err != nil {
		return repository.OrderCounts{}, fmt.Errorf("count orders: %w", err)
	}
	return c, nil
}

// PaymentMethodStats returns order counts grouped by payment method, most used first.
func (r *OrderRepository) PaymentMethodStats(ctx context.Context) ([]domain.PaymentMethodCount, error) {
	query := `
		SELECT payment_method, COUNT(*)
		FROM orders
		GROUP BY payment_method
		ORDER BY COUNT(*) DESC, payment_method`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("payment method stats: %w", err)
	}
	defer rows.Close()

	stats := make([]domain.PaymentMethodCount, 0)
	for rows.Next() {
		var s domain.PaymentMethodCount
		if err := rows.Scan(&s.Method, &s.Count); err != nil {
			return nil, fmt.Errorf("scan payment method row: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment method rows: %w", err)
	}
	return stats, nil
}

// SalesByDate returns the paid revenue per calendar day (UTC) since the given time.
func (r *OrderRepository) SalesByDate(ctx context.Context, since time.Time) ([]domain.SalesPoint, error) {
	query := `
		SELECT TO_CHAR(DATE_TRUNC('day', created_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD') AS day,
			   COALESCE(SUM(total_amount), 0)::BIGINT
		FROM orders
		WHERE payment_status = 'paid' AND created_at >= $1
		GROUP BY day
		ORDER BY day`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("sales by date: %w", err)
	}
	defer rows.Close()

	points := make([]domain.SalesPoint, 0)
	for rows.Next() {
		var p domain.SalesPoint
		if err := rows.Scan(&p.Date, &p.Amount); err != nil {
			return nil, fmt.Errorf("scan sales row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales rows: %w", err)
	}
	return points, nil
}

// ignoreNoRows keeps lookups that found nothing from marking spans as failed.
func ignoreNoRows(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return err
}
