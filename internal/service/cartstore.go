package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
)

// Cart store operations reported to subscribers.
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpUpdate = "update"
	OpClear  = "clear"
	OpOpen   = "open"
)

// CartMutations counts applied cart mutations by operation.
var CartMutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Total number of cart mutations applied, by operation",
	},
	[]string{"op"},
)

// Change describes a state change delivered to subscribers.
type Change struct {
	Op   string
	Cart domain.Cart
	Open bool
}

// Subscriber receives changes in mutation order. It runs outside the store's
// state lock and may read the store, but must not mutate it synchronously.
type Subscriber func(ctx context.Context, change Change)

// CartStore is the authoritative in-memory cart. Mutations are serialized,
// notify subscribers and hand a snapshot to a background persister. None of
// them return errors: bad arguments are clamped or ignored.
type CartStore struct {
	persistence *CartPersistence
	logger      *slog.Logger
	newID       func() string

	initMu sync.Mutex
	loaded atomic.Bool

	// inflight counts operations currently running against the store.
	inflight atomic.Int32

	mu   sync.Mutex
	cart domain.Cart
	open bool

	// notifyMu is taken before mu is released so deliveries keep mutation order.
	notifyMu sync.Mutex
	subsMu   sync.RWMutex
	subs     map[uint64]Subscriber
	nextSub  uint64

	pmu        sync.Mutex
	pending    []byte
	pendingCtx context.Context
	submitted  uint64
	written    uint64
	waiters    []flushWaiter
	closed     bool
	wake       chan struct{}
	quit       chan struct{}
	done       chan struct{}
}

type flushWaiter struct {
	seq uint64
	ch  chan struct{}
}

// CartStoreOption configures a CartStore.
type CartStoreOption func(*CartStore)

// WithIDGenerator replaces the line item id generator.
func WithIDGenerator(fn func() string) CartStoreOption {
	return func(s *CartStore) { s.newID = fn }
}

// NewCartStore creates a store backed by persistence and starts its persister.
// Close must be called to stop it.
func NewCartStore(persistence *CartPersistence, logger *slog.Logger, opts ...CartStoreOption) *CartStore {
	s := &CartStore{
		persistence: persistence,
		logger:      logger,
		newID:       NewItemID,
		cart:        domain.EmptyCart(),
		subs:        make(map[uint64]Subscriber),
		wake:        make(chan struct{}, 1),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.persistLoop()
	return s
}

// Initialize loads the persisted cart. Once a load succeeds further calls
// have no effect; every other operation calls it implicitly. When the store
// fails the cart stays unloaded and the next call tries again.
func (s *CartStore) Initialize(ctx context.Context) {
	s.load(ctx)
}

func (s *CartStore) load(ctx context.Context) bool {
	if s.loaded.Load() {
		return true
	}
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.loaded.Load() {
		return true
	}

	cart, err := s.persistence.Read(context.WithoutCancel(ctx))
	if err != nil {
		CartLoadFallbacks.WithLabelValues("store_error").Inc()
		s.logger.WarnContext(ctx, "cart not loaded, will retry",
			slog.String("key", s.persistence.Key()),
			slog.String("error", err.Error()),
		)
		return false
	}

	s.mu.Lock()
	s.cart = cart
	s.mu.Unlock()
	s.loaded.Store(true)
	return true
}

// enter marks an operation in flight until the returned func is called.
func (s *CartStore) enter() func() {
	s.inflight.Add(1)
	return func() { s.inflight.Add(-1) }
}

// busy reports whether an operation is running against the store.
func (s *CartStore) busy() bool {
	return s.inflight.Load() > 0
}

// Cart returns a deep copy of the current cart.
func (s *CartStore) Cart(ctx context.Context) domain.Cart {
	defer s.enter()()
	s.Initialize(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// IsOpen reports whether the cart drawer is open.
func (s *CartStore) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// SetOpen changes the drawer visibility. It is presentation state and is not
// persisted.
func (s *CartStore) SetOpen(ctx context.Context, open bool) {
	defer s.enter()()
	s.Initialize(ctx)
	s.mu.Lock()
	if s.open == open {
		s.mu.Unlock()
		return
	}
	s.open = open
	change := Change{Op: OpOpen, Cart: s.cart.Clone(), Open: open}
	s.notifyMu.Lock()
	s.mu.Unlock()
	s.notify(ctx, change)
}

// AddItem adds quantity units of the product variant, merging into an existing
// line with the same product, size and color. A quantity below 1 counts as 1.
func (s *CartStore) AddItem(ctx context.Context, product domain.Product, quantity int, size, color *string) {
	if quantity < 1 {
		quantity = 1
	}
	s.mutate(ctx, OpAdd, func(items []domain.LineItem) ([]domain.LineItem, bool) {
		return domain.AddOrMerge(items, product.Snapshot(size, color), quantity, s.newID), true
	})
}

// RemoveItem drops the line item with the given id. Unknown ids are ignored.
func (s *CartStore) RemoveItem(ctx context.Context, itemID string) {
	s.mutate(ctx, OpRemove, func(items []domain.LineItem) ([]domain.LineItem, bool) {
		idx := domain.IndexOf(items, itemID)
		if idx < 0 {
			return nil, false
		}
		out := make([]domain.LineItem, 0, len(items)-1)
		out = append(out, items[:idx]...)
		return append(out, items[idx+1:]...), true
	})
}

// UpdateQuantity sets the quantity of a line item. Quantities below 1 and
// unknown ids are ignored; removal is always an explicit RemoveItem.
func (s *CartStore) UpdateQuantity(ctx context.Context, itemID string, quantity int) {
	if quantity < 1 {
		return
	}
	s.mutate(ctx, OpUpdate, func(items []domain.LineItem) ([]domain.LineItem, bool) {
		idx := domain.IndexOf(items, itemID)
		if idx < 0 {
			return nil, false
		}
		out := make([]domain.LineItem, len(items))
		copy(out, items)
		out[idx].Quantity = quantity
		return out, true
	})
}

// Clear empties the cart. The empty cart is always persisted so a stale
// stored cart cannot come back on the next load.
func (s *CartStore) Clear(ctx context.Context) {
	s.mutate(ctx, OpClear, func([]domain.LineItem) ([]domain.LineItem, bool) {
		return []domain.LineItem{}, true
	})
}

// mutate applies fn to the current items. When fn reports a change the new
// state is installed, its snapshot is queued for persistence and subscribers
// are notified. Mutations are dropped while the stored cart cannot be read.
func (s *CartStore) mutate(ctx context.Context, op string, fn func([]domain.LineItem) ([]domain.LineItem, bool)) {
	defer s.enter()()
	if !s.load(ctx) {
		s.logger.WarnContext(ctx, "cart mutation dropped", slog.String("op", op))
		return
	}

	s.mu.Lock()
	items, changed := fn(s.cart.Items)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.cart = domain.Recompute(items)
	CartMutations.WithLabelValues(op).Inc()

	data, err := encodeCart(s.cart)
	if err != nil {
		s.persistence.saveFailed(ctx, err)
	} else {
		s.submit(ctx, data)
	}

	change := Change{Op: op, Cart: s.cart.Clone(), Open: s.open}
	s.notifyMu.Lock()
	s.mu.Unlock()
	s.notify(ctx, change)
}

// notify delivers change to every subscriber and releases notifyMu.
func (s *CartStore) notify(ctx context.Context, change Change) {
	defer s.notifyMu.Unlock()

	s.subsMu.RLock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subsMu.RUnlock()

	for _, fn := range subs {
		fn(ctx, change)
	}
}

// Subscribe registers fn for future changes and returns a function that
// removes it.
func (s *CartStore) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

// submit queues a snapshot for the persister. Only the newest pending snapshot
// is kept. After Close the snapshot is written inline.
func (s *CartStore) submit(ctx context.Context, data []byte) {
	s.pmu.Lock()
	if s.closed {
		s.pmu.Unlock()
		s.persistence.SaveRaw(context.WithoutCancel(ctx), data)
		return
	}
	s.submitted++
	s.pending = data
	s.pendingCtx = context.WithoutCancel(ctx)
	s.pmu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *CartStore) persistLoop() {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
		case <-s.quit:
		}
		s.drain()

		select {
		case <-s.quit:
			s.drain()
			return
		default:
		}
	}
}

// drain writes pending snapshots until none is left.
func (s *CartStore) drain() {
	for {
		s.pmu.Lock()
		data, ctx, seq := s.pending, s.pendingCtx, s.submitted
		s.pending, s.pendingCtx = nil, nil
		s.pmu.Unlock()

		if data == nil {
			return
		}

		s.persistence.SaveRaw(ctx, data)

		s.pmu.Lock()
		s.written = seq
		remaining := s.waiters[:0]
		for _, w := range s.waiters {
			if w.seq <= seq {
				close(w.ch)
				continue
			}
			remaining = append(remaining, w)
		}
		s.waiters = remaining
		s.pmu.Unlock()
	}
}

// Flush blocks until every snapshot queued before the call has been written,
// or ctx is done.
func (s *CartStore) Flush(ctx context.Context) error {
	s.pmu.Lock()
	if s.written >= s.submitted {
		s.pmu.Unlock()
		return nil
	}
	w := flushWaiter{seq: s.submitted, ch: make(chan struct{})}
	s.waiters = append(s.waiters, w)
	s.pmu.Unlock()

	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes any pending snapshot and stops the persister. Mutations after
// Close persist synchronously.
func (s *CartStore) Close() {
	s.pmu.Lock()
	if s.closed {
		s.pmu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	s.pmu.Unlock()

	close(s.quit)
	<-s.done
}
