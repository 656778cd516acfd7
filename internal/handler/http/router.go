package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blackcave0/ecommerc-memonto/internal/catalog"
	"github.com/blackcave0/ecommerc-memonto/internal/service"
	"github.com/blackcave0/ecommerc-memonto/pkg/health"
	"github.com/blackcave0/ecommerc-memonto/pkg/middleware"
)

// Services holds everything the routes call into.
type Services struct {
	Catalog  *catalog.Catalog
	Sessions *service.Sessions
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	Profiles *service.ProfileService
	Admin    *service.AdminService
}

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	PublicURL        string
	CORS             middleware.CORSConfig
	ValidateToken    middleware.TokenValidator
	CheckoutRPS      float64
	CheckoutBurst    int
	CatalogCacheTTL  time.Duration
	RequestTimeout   time.Duration
	PprofAllowedCIDR []string
}

// NewRouter creates a chi router with all storefront routes registered. ctx
// bounds background work owned by the router, such as rate limiter cleanup.
func NewRouter(
	ctx context.Context,
	svc Services,
	cfg RouterConfig,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.Tracing)
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofAllowedCIDR, logger)

	catalogHandler := NewCatalogHandler(svc.Catalog, logger)
	cartHandler := NewCartHandler(svc.Sessions, svc.Catalog, logger)
	checkoutHandler := NewCheckoutHandler(svc.Checkout, cfg.PublicURL, logger)
	orderHandler := NewOrderHandler(svc.Orders, logger)
	profileHandler := NewProfileHandler(svc.Profiles, logger)
	adminHandler := NewAdminHandler(svc.Admin, logger)

	// Re-deriving the request logger after Auth adds the user id.
	auth := chi.Chain(middleware.Auth(cfg.ValidateToken, logger), middleware.RequestLogger(logger)).Handler

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Catalog
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.CatalogCacheTTL))
			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/{slug}", catalogHandler.GetProduct)
			r.Get("/categories", catalogHandler.ListCategories)
		})

		// Cart
		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(CartSession)

			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Put("/open", cartHandler.SetOpen)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{itemId}", cartHandler.UpdateQuantity)
			r.Delete("/items/{itemId}", cartHandler.RemoveItem)
		})

		// Checkout
		r.Route("/checkout", func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Get("/verify", checkoutHandler.VerifyPayment)
			r.With(
				middleware.RateLimit(ctx, cfg.CheckoutRPS, cfg.CheckoutBurst, logger),
				CartSession,
			).Post("/sessions", checkoutHandler.StartCheckout)
			r.With(auth, CartSession).Post("/complete", checkoutHandler.CompleteCheckout)
		})

		// Signed-in customer
		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(auth)

			r.Get("/orders", orderHandler.ListOrders)
			r.Get("/orders/{id}", orderHandler.GetOrder)
			r.Get("/orders/{id}/tracking", orderHandler.GetTracking)

			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpdateProfile)
		})

		// Back office
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(auth)
			r.Use(middleware.RequireRole(middleware.RoleAdmin))

			r.Get("/dashboard", adminHandler.Dashboard)
			r.Get("/orders", adminHandler.ListOrders)
			r.Get("/orders/{id}", adminHandler.GetOrder)
			r.Put("/orders/{id}/status", adminHandler.UpdateOrderStatus)
			r.Put("/orders/{id}/payment-status", adminHandler.UpdatePaymentStatus)
			r.Get("/stats/payment-methods", adminHandler.PaymentMethodStats)
			r.Get("/stats/sales", adminHandler.SalesByDate)
		})
	})

	return r
}
