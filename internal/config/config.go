package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	pkgconfig "github.com/blackcave0/ecommerc-memonto/pkg/config"
	"github.com/blackcave0/ecommerc-memonto/pkg/database"
	"github.com/blackcave0/ecommerc-memonto/pkg/tracing"
)

// Cart store backends.
const (
	CartStoreRedis  = "redis"
	CartStoreMemory = "memory"
)

// Payment gateways.
const (
	GatewayMock   = "mock"
	GatewayHosted = "hosted"
)

const minJWTSecretLen = 32

// Config holds all configuration for the storefront server.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"storefront"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	PublicURL       string        `env:"PUBLIC_URL"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`

	// Checkout session rate limit per client IP
	CheckoutRPS   float64 `env:"CHECKOUT_RATE_LIMIT_RPS" envDefault:"1"`
	CheckoutBurst int     `env:"CHECKOUT_RATE_LIMIT_BURST" envDefault:"5"`

	// Cart
	CartStore       string        `env:"CART_STORE" envDefault:"redis"`
	CartTTL         time.Duration `env:"CART_TTL" envDefault:"168h"`
	CartSessionIdle time.Duration `env:"CART_SESSION_IDLE" envDefault:"30m"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// PostgreSQL
	PostgresHost       string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort       int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser       string        `env:"POSTGRES_USER" envDefault:"memonto"`
	PostgresPass       string        `env:"POSTGRES_PASSWORD" envDefault:"memonto_secret"`
	PostgresDB         string        `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSL        string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns   int32         `env:"POSTGRES_MAX_CONNS" envDefault:"25"`
	RunMigrations      bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Auth
	JWTSecret string `env:"JWT_SECRET"`

	// Payment gateway
	PaymentGateway   string `env:"PAYMENT_GATEWAY" envDefault:"mock"`
	PaymentAPIURL    string `env:"PAYMENT_API_URL"`
	PaymentSecretKey string `env:"PAYMENT_SECRET_KEY"`
	PaymentCurrency  string `env:"PAYMENT_CURRENCY" envDefault:"usd"`

	// Observability
	OTELEnabled       bool     `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint      string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate    float64  `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load(opts ...pkgconfig.Option) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}
	if c.PublicURL != "" {
		if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PUBLIC_URL must be an absolute URL: %q", c.PublicURL))
		}
	}
	if !slices.Contains([]string{CartStoreRedis, CartStoreMemory}, c.CartStore) {
		errs = append(errs, fmt.Errorf("CART_STORE must be %q or %q, got %q", CartStoreRedis, CartStoreMemory, c.CartStore))
	}
	if c.CartSessionIdle <= 0 {
		errs = append(errs, errors.New("CART_SESSION_IDLE must be positive"))
	} else if c.CartSessionIdle <= c.RequestTimeout {
		errs = append(errs, errors.New("CART_SESSION_IDLE must be longer than HTTP_REQUEST_TIMEOUT"))
	}
	if c.CheckoutRPS <= 0 || c.CheckoutBurst < 1 {
		errs = append(errs, errors.New("checkout rate limit must allow at least one request"))
	}
	if len(c.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLen))
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set"))
	}
	switch c.PaymentGateway {
	case GatewayMock:
		if c.Environment == "production" {
			errs = append(errs, errors.New("the mock payment gateway cannot run in production"))
		}
	case GatewayHosted:
		if c.PaymentAPIURL == "" || c.PaymentSecretKey == "" {
			errs = append(errs, errors.New("PAYMENT_API_URL and PAYMENT_SECRET_KEY are required for the hosted gateway"))
		}
	default:
		errs = append(errs, fmt.Errorf("PAYMENT_GATEWAY must be %q or %q, got %q", GatewayMock, GatewayHosted, c.PaymentGateway))
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate))
	}

	return errors.Join(errs...)
}

// Postgres returns the connection pool settings.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	pg.MaxConns = c.PostgresMaxConns
	if pg.MinConns > pg.MaxConns {
		pg.MinConns = pg.MaxConns
	}
	return pg
}

// Redis returns the Redis client settings.
func (c *Config) Redis() database.RedisConfig {
	r := database.DefaultRedisConfig()
	r.Host = c.RedisHost
	r.Port = c.RedisPort
	r.Password = c.RedisPass
	r.DB = c.RedisDB
	return r
}

// Tracing returns the OpenTelemetry settings.
func (c *Config) Tracing() tracing.Config {
	t := tracing.DefaultConfig(c.ServiceName)
	t.Environment = c.Environment
	t.OTLPEndpoint = c.OTELEndpoint
	t.SampleRate = c.OTELSampleRate
	t.Enabled = c.OTELEnabled
	return t
}
