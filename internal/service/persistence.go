package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	"github.com/blackcave0/ecommerc-memonto/internal/repository"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
)

// DefaultCartKey is the well-known key of a single-cart deployment.
const DefaultCartKey = "cart"

// CartKey returns the store key of a cart session.
func CartKey(sessionID string) string {
	return DefaultCartKey + ":" + sessionID
}

var (
	// CartPersistFailures counts cart snapshots that could not be written.
	CartPersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cart_persist_failures_total",
			Help: "Total number of cart snapshots that failed to persist",
		},
	)

	// CartLoadFallbacks counts loads that fell back to the empty cart, by reason.
	CartLoadFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_load_fallbacks_total",
			Help: "Total number of cart loads that returned the empty cart instead of stored data",
		},
		[]string{"reason"},
	)
)

// persistedCart is the stored document. Items is a pointer so a document
// without an items key can be told apart from an empty cart.
type persistedCart struct {
	Items      *[]domain.LineItem `json:"items"`
	TotalItems int                `json:"totalItems"`
	TotalPrice string             `json:"totalPrice"`
}

// CartPersistence reads and writes one serialized cart in a key-value store.
// It never returns errors: unreadable data loads as the empty cart and write
// failures are logged and counted.
type CartPersistence struct {
	store  repository.KVStore
	key    string
	logger *slog.Logger
}

// NewCartPersistence creates a persistence adapter for the cart stored under key.
func NewCartPersistence(store repository.KVStore, key string, logger *slog.Logger) *CartPersistence {
	return &CartPersistence{
		store:  store,
		key:    key,
		logger: logger,
	}
}

// Key returns the store key this adapter reads and writes.
func (p *CartPersistence) Key() string {
	return p.key
}

// Load reads the stored cart. A missing key, a store error, corrupt JSON or a
// document of the wrong shape all yield the canonical empty cart. Aggregates
// are always recomputed from the stored items.
func (p *CartPersistence) Load(ctx context.Context) domain.Cart {
	cart, err := p.Read(ctx)
	if err != nil {
		return p.fallback(ctx, "store_error", err)
	}
	return cart
}

// Read is Load without the store error fallback: a missing key or unusable
// data still yields the empty cart, but a failing store is reported so the
// caller can retry instead of overwriting the stored cart.
func (p *CartPersistence) Read(ctx context.Context) (domain.Cart, error) {
	data, err := p.store.Get(ctx, p.key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.EmptyCart(), nil
		}
		return domain.Cart{}, fmt.Errorf("read cart %s: %w", p.key, err)
	}

	var doc persistedCart
	if err := json.Unmarshal(data, &doc); err != nil {
		return p.fallback(ctx, "corrupt", err), nil
	}
	if doc.Items == nil {
		return p.fallback(ctx, "wrong_shape", errors.New("missing items")), nil
	}

	cart := domain.Recompute(*doc.Items)
	if !cart.Valid() {
		return p.fallback(ctx, "wrong_shape", errors.New("invalid line items")), nil
	}
	return cart, nil
}

func (p *CartPersistence) fallback(ctx context.Context, reason string, err error) domain.Cart {
	CartLoadFallbacks.WithLabelValues(reason).Inc()
	p.logger.WarnContext(ctx, "discarding stored cart",
		slog.String("key", p.key),
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
	return domain.EmptyCart()
}

// Save serializes cart and overwrites the stored value.
func (p *CartPersistence) Save(ctx context.Context, cart domain.Cart) {
	data, err := encodeCart(cart)
	if err != nil {
		p.saveFailed(ctx, err)
		return
	}
	p.SaveRaw(ctx, data)
}

// SaveRaw writes an already serialized cart.
func (p *CartPersistence) SaveRaw(ctx context.Context, data []byte) {
	if err := p.store.Set(ctx, p.key, data); err != nil {
		p.saveFailed(ctx, err)
	}
}

func (p *CartPersistence) saveFailed(ctx context.Context, err error) {
	CartPersistFailures.Inc()
	p.logger.ErrorContext(ctx, "failed to persist cart",
		slog.String("key", p.key),
		slog.String("error", err.Error()),
	)
}

func encodeCart(cart domain.Cart) ([]byte, error) {
	items := cart.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	return json.Marshal(persistedCart{
		Items:      &items,
		TotalItems: cart.TotalItems,
		TotalPrice: cart.TotalPrice,
	})
}

// NewItemID returns a fresh line item id.
func NewItemID() string {
	return uuid.New().String()
}
