package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/blackcave0/ecommerc-memonto/internal/catalog"
	"github.com/blackcave0/ecommerc-memonto/internal/config"
	"github.com/blackcave0/ecommerc-memonto/internal/event"
	handler "github.com/blackcave0/ecommerc-memonto/internal/handler/http"
	"github.com/blackcave0/ecommerc-memonto/internal/payment"
	paymentmock "github.com/blackcave0/ecommerc-memonto/internal/payment/mock"
	"github.com/blackcave0/ecommerc-memonto/internal/repository"
	"github.com/blackcave0/ecommerc-memonto/internal/repository/memory"
	"github.com/blackcave0/ecommerc-memonto/internal/repository/postgres"
	"github.com/blackcave0/ecommerc-memonto/internal/repository/postgres/migrations"
	redisrepo "github.com/blackcave0/ecommerc-memonto/internal/repository/redis"
	"github.com/blackcave0/ecommerc-memonto/internal/service"
	"github.com/blackcave0/ecommerc-memonto/pkg/database"
	"github.com/blackcave0/ecommerc-memonto/pkg/health"
	"github.com/blackcave0/ecommerc-memonto/pkg/httpclient"
	pkgkafka "github.com/blackcave0/ecommerc-memonto/pkg/kafka"
	"github.com/blackcave0/ecommerc-memonto/pkg/middleware"
	"github.com/blackcave0/ecommerc-memonto/pkg/tracing"
)

const startupTimeout = 30 * time.Second

// App wires together all dependencies and runs the storefront server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	sessions       *service.Sessions
	health         *health.Handler
	services       handler.Services
	tracerShutdown tracing.ShutdownFunc
}

// NewApp connects to the backing stores and builds the service graph. On
// error, anything already opened is closed.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	a := &App{cfg: cfg, logger: logger, health: health.NewHandler()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if a.tracerShutdown, err = tracing.InitTracer(ctx, cfg.Tracing()); err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	kv, err := a.cartStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.openPostgres(ctx); err != nil {
		return nil, err
	}

	publisher := pkgkafka.Discard
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.health.Register("kafka", a.producer.Ping)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("kafka disabled, storefront events are discarded")
	}
	events := event.NewProducer(publisher, logger)

	gateway, err := a.paymentGateway()
	if err != nil {
		return nil, err
	}

	products, err := catalog.New()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	a.sessions = service.NewSessions(kv, logger, cfg.CartSessionIdle)
	a.sessions.OnCreate(service.CartEventsHook(events, logger))

	orders := postgres.NewOrderRepository(a.pool)
	profiles := postgres.NewProfileRepository(a.pool)

	a.services = handler.Services{
		Catalog:  products,
		Sessions: a.sessions,
		Checkout: service.NewCheckoutService(a.sessions, gateway, orders, events, logger),
		Orders:   service.NewOrderService(orders, logger),
		Profiles: service.NewProfileService(profiles, logger),
		Admin:    service.NewAdminService(orders, profiles, logger),
	}
	return a, nil
}

func (a *App) cartStore(ctx context.Context) (repository.KVStore, error) {
	if a.cfg.CartStore == config.CartStoreMemory {
		a.logger.Warn("carts are kept in memory and lost on restart")
		return memory.NewKVStore(), nil
	}

	rdb, err := database.NewRedisClient(ctx, a.cfg.Redis(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	a.health.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	a.logger.Info("connected to redis",
		slog.String("addr", a.cfg.Redis().Addr()),
		slog.Duration("cart_ttl", a.cfg.CartTTL),
	)
	return redisrepo.NewKVStore(rdb, a.cfg.CartTTL), nil
}

func (a *App) openPostgres(ctx context.Context) error {
	pgCfg := a.cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, pgCfg, a.logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to postgres",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, a.cfg.ServiceName); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}
	database.SetSlowQueryLogging(a.cfg.SlowQueryThreshold, a.logger)
	a.health.Register("postgres", pool.Ping)

	if !a.cfg.RunMigrations {
		return nil
	}
	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (a *App) paymentGateway() (payment.Gateway, error) {
	switch a.cfg.PaymentGateway {
	case config.GatewayMock:
		a.logger.Warn("using the mock payment gateway, every checkout is paid")
		return paymentmock.NewGateway(), nil
	case config.GatewayHosted:
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("payment-gateway"),
			a.logger,
		)
		return payment.NewHostedGateway(payment.HostedConfig{
			BaseURL:   a.cfg.PaymentAPIURL,
			SecretKey: a.cfg.PaymentSecretKey,
			Currency:  a.cfg.PaymentCurrency,
		}, client, a.logger), nil
	}
	return nil, fmt.Errorf("unknown payment gateway %q", a.cfg.PaymentGateway)
}

// Run serves HTTP until ctx is canceled or the server fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	go a.sessions.Run(runCtx)

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler: handler.NewRouter(runCtx, a.services, handler.RouterConfig{
			PublicURL:        a.cfg.PublicURL,
			CORS:             middleware.CORSConfig{AllowedOrigins: a.cfg.CORSOrigins, AllowCredentials: true, MaxAge: 600},
			ValidateToken:    middleware.JWTValidator(a.cfg.JWTSecret),
			CheckoutRPS:      a.cfg.CheckoutRPS,
			CheckoutBurst:    a.cfg.CheckoutBurst,
			CatalogCacheTTL:  a.cfg.CatalogCacheTTL,
			RequestTimeout:   a.cfg.RequestTimeout,
			PprofAllowedCIDR: a.cfg.PprofAllowedCIDRs,
		}, a.health, a.logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      a.cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	stop()

	// Carts are flushed before the stores they write to close.
	a.sessions.CloseAll()
	a.close()
	a.logger.Info("storefront stopped")
	return runErr
}

// close releases backing stores in reverse order of opening.
func (a *App) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
