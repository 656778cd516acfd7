package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/blackcave0/ecommerc-memonto/internal/catalog"
	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	paymentmock "github.com/blackcave0/ecommerc-memonto/internal/payment/mock"
	"github.com/blackcave0/ecommerc-memonto/internal/repository"
	"github.com/blackcave0/ecommerc-memonto/internal/repository/memory"
	"github.com/blackcave0/ecommerc-memonto/internal/service"
	"github.com/blackcave0/ecommerc-memonto/pkg/health"
	"github.com/blackcave0/ecommerc-memonto/pkg/httputil"
	"github.com/blackcave0/ecommerc-memonto/pkg/middleware"
)

// ============================================================================
// Mock repositories
// ============================================================================

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Order, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.OrderSummary, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.OrderSummary), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockOrderRepository) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockOrderRepository) SetTrackingNumber(ctx context.Context, id, number string) error {
	args := m.Called(ctx, id, number)
	return args.Error(0)
}

func (m *mockOrderRepository) Counts(ctx context.Context) (repository.OrderCounts, error) {
	args := m.Called(ctx)
	return args.Get(0).(repository.OrderCounts), args.Error(1)
}

func (m *mockOrderRepository) PaymentMethodStats(ctx context.Context) ([]domain.PaymentMethodCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentMethodCount), args.Error(1)
}

func (m *mockOrderRepository) SalesByDate(ctx context.Context, since time.Time) ([]domain.SalesPoint, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SalesPoint), args.Error(1)
}

type mockProfileRepository struct {
	mock.Mock
}

func (m *mockProfileRepository) Get(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockProfileRepository) CountCustomers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type nopPublisher struct{}

func (nopPublisher) PublishCartUpdated(context.Context, string, domain.Cart) error { return nil }
func (nopPublisher) PublishCartCleared(context.Context, string) error              { return nil }
func (nopPublisher) PublishOrderPlaced(context.Context, *domain.Order) error       { return nil }

// ============================================================================
// Test helpers
// ============================================================================

const (
	testSession     = "test-session-0001"
	customerToken   = "customer-token"
	adminToken      = "admin-token"
	testOrderID     = "3f2b9c1e-0000-4000-8000-000000000001"
	testPublicURL   = "https://shop.example.com"
	catalogCacheTTL = 5 * time.Minute
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testTokens(raw string) (*middleware.Claims, error) {
	switch raw {
	case customerToken:
		return &middleware.Claims{UserID: "user-1", Email: "ada@example.com"}, nil
	case adminToken:
		return &middleware.Claims{UserID: "admin-1", Email: "ops@example.com", Role: middleware.RoleAdmin}, nil
	}
	return nil, errors.New("unknown token")
}

type testServer struct {
	handler  http.Handler
	sessions *service.Sessions
	gateway  *paymentmock.Gateway
	orders   *mockOrderRepository
	profiles *mockProfileRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := testLogger()

	cat, err := catalog.New()
	require.NoError(t, err)

	sessions := service.NewSessions(memory.NewKVStore(), logger, time.Hour)
	t.Cleanup(sessions.CloseAll)

	orders := new(mockOrderRepository)
	profiles := new(mockProfileRepository)
	gateway := paymentmock.NewGateway()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := NewRouter(ctx, Services{
		Catalog:  cat,
		Sessions: sessions,
		Checkout: service.NewCheckoutService(sessions, gateway, orders, nopPublisher{}, logger),
		Orders:   service.NewOrderService(orders, logger),
		Profiles: service.NewProfileService(profiles, logger),
		Admin:    service.NewAdminService(orders, profiles, logger),
	}, RouterConfig{
		PublicURL:       testPublicURL,
		CORS:            middleware.CORSConfig{AllowedOrigins: []string{testPublicURL}},
		ValidateToken:   testTokens,
		CheckoutRPS:     100,
		CheckoutBurst:   100,
		CatalogCacheTTL: catalogCacheTTL,
	}, health.NewHandler(), logger)

	return &testServer{
		handler:  h,
		sessions: sessions,
		gateway:  gateway,
		orders:   orders,
		profiles: profiles,
	}
}

type requestOption func(*http.Request)

func withSession(id string) requestOption {
	return func(r *http.Request) { r.Header.Set(middleware.CartSessionHeader, id) }
}

func withToken(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (s *testServer) do(t *testing.T, method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Nil(t, env.Error, "unexpected error: %+v", env.Error)
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	return env.Error
}

func addToCart(t *testing.T, s *testServer, session string, body AddItemRequest) CartResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/cart/items", body, withSession(session))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cart CartResponse
	decodeData(t, rec, &cart)
	return cart
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
