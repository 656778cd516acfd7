package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blackcave0/ecommerc-memonto/internal/repository"
)

// ActiveCartSessions reports the number of cart stores held in memory.
var ActiveCartSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "storefront_cart_sessions_active",
		Help: "Number of cart sessions currently held in memory",
	},
)

// StoreHook is called once for every newly created store, before first use.
type StoreHook func(sessionID string, store *CartStore)

type session struct {
	store    *CartStore
	lastUsed time.Time
}

// Sessions maps cart session ids to lazily created cart stores, each persisted
// under its own key. Stores idle for longer than the idle timeout are flushed
// and dropped from memory; their persisted carts stay in the key-value store.
type Sessions struct {
	kv     repository.KVStore
	logger *slog.Logger
	idle   time.Duration
	hooks  []StoreHook
	opts   []CartStoreOption
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessions creates an empty session registry.
func NewSessions(kv repository.KVStore, logger *slog.Logger, idle time.Duration, opts ...CartStoreOption) *Sessions {
	return &Sessions{
		kv:       kv,
		logger:   logger,
		idle:     idle,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// OnCreate registers a hook run for every store created after the call.
func (r *Sessions) OnCreate(hook StoreHook) {
	r.mu.Lock()
	r.hooks = append(r.hooks, hook)
	r.mu.Unlock()
}

// NewSessionID returns a fresh cart session id.
func NewSessionID() string {
	return uuid.New().String()
}

// Get returns the store of a session, creating it on first use.
func (r *Sessions) Get(sessionID string) *CartStore {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[sessionID]; ok {
		s.lastUsed = r.now()
		return s.store
	}

	persistence := NewCartPersistence(r.kv, CartKey(sessionID), r.logger)
	store := NewCartStore(persistence, r.logger.With(slog.String("cart_session", sessionID)), r.opts...)
	for _, hook := range r.hooks {
		hook(sessionID, store)
	}
	r.sessions[sessionID] = &session{store: store, lastUsed: r.now()}
	ActiveCartSessions.Set(float64(len(r.sessions)))
	return store
}

// Len returns the number of sessions in memory.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict closes and drops every session unused for longer than the idle
// timeout. Sessions with an operation still in flight are kept until a later
// pass. It returns the number of sessions evicted.
func (r *Sessions) Evict() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*CartStore
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) && !s.store.busy() {
			stale = append(stale, s.store)
			delete(r.sessions, id)
		}
	}
	ActiveCartSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	for _, store := range stale {
		store.Close()
	}
	if len(stale) > 0 {
		r.logger.Debug("evicted idle cart sessions", slog.Int("count", len(stale)))
	}
	return len(stale)
}

// Run evicts idle sessions periodically until ctx is done.
func (r *Sessions) Run(ctx context.Context) {
	interval := r.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict()
		}
	}
}

// CloseAll flushes and closes every store.
func (r *Sessions) CloseAll() {
	r.mu.Lock()
	stores := make([]*CartStore, 0, len(r.sessions))
	for id, s := range r.sessions {
		stores = append(stores, s.store)
		delete(r.sessions, id)
	}
	ActiveCartSessions.Set(0)
	r.mu.Unlock()

	for _, store := range stores {
		store.Close()
	}
}
