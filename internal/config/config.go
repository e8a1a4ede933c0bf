package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/Catalina-leal/Huertohogarapp/pkg/config"
	"github.com/Catalina-leal/Huertohogarapp/pkg/database"
	"github.com/Catalina-leal/Huertohogarapp/pkg/tracing"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds all configuration for the storefront.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort        int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Catalog and orders live in StoreDriver; cart and preferences in SessionDriver.
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"sqlite"`
	SessionDriver string `env:"SESSION_DRIVER" envDefault:"sqlite"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"huertohogar.db"`

	SlowQueryThreshold time.Duration `env:"DB_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// PostgreSQL
	PostgresURL  string `env:"POSTGRES_URL"`
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"huertohogar"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"huertohogar_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis
	RedisAddr string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string        `env:"REDIS_PASSWORD"`
	RedisDB   int           `env:"REDIS_DB" envDefault:"0"`
	SessionID string        `env:"STOREFRONT_SESSION_ID" envDefault:"device"`
	CartTTL   time.Duration `env:"CART_TTL" envDefault:"720h"`

	// Kafka; empty disables event publishing and the Kafka notification sink.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Remote order API; empty runs fully local.
	RemoteAPIURL  string        `env:"REMOTE_API_URL"`
	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"10s"`

	// Orders
	StrictTransitions bool `env:"ORDER_STRICT_TRANSITIONS" envDefault:"false"`

	// Notifications
	NotifyQueueSize   int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"64"`
	NotifySendTimeout time.Duration `env:"NOTIFY_SEND_TIMEOUT" envDefault:"5s"`

	// Admin endpoints are disabled when the secret is empty.
	AdminJWTSecret string `env:"ADMIN_JWT_SECRET"`

	// Tracing
	OTLPEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TraceSampleRate float64 `env:"OTEL_TRACE_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from the environment, after applying any .env
// file in the working directory.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadWithDotenv(cfg, ".env"); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.SessionDriver = strings.ToLower(strings.TrimSpace(c.SessionDriver))
	c.RemoteAPIURL = strings.TrimSpace(c.RemoteAPIURL)

	brokers := c.KafkaBrokers[:0]
	for _, b := range c.KafkaBrokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.KafkaBrokers = brokers
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.StoreDriver != DriverSQLite && c.StoreDriver != DriverPostgres {
		return fmt.Errorf("invalid STORE_DRIVER %q: want sqlite or postgres", c.StoreDriver)
	}
	if c.SessionDriver != DriverSQLite && c.SessionDriver != DriverRedis {
		return fmt.Errorf("invalid SESSION_DRIVER %q: want sqlite or redis", c.SessionDriver)
	}
	if c.UsesSQLite() && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("invalid rate limit: %v rps, burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		return fmt.Errorf("invalid trace sample rate: %v", c.TraceSampleRate)
	}
	if c.NotifyQueueSize < 1 {
		return fmt.Errorf("invalid notification queue size: %d", c.NotifyQueueSize)
	}
	if c.CartTTL < 0 {
		return fmt.Errorf("invalid cart TTL: %s", c.CartTTL)
	}
	return nil
}

// UsesSQLite reports whether any repository is backed by the embedded store.
func (c *Config) UsesSQLite() bool {
	return c.StoreDriver == DriverSQLite || c.SessionDriver == DriverSQLite
}

// RemoteEnabled reports whether a backend order API is configured.
func (c *Config) RemoteEnabled() bool { return c.RemoteAPIURL != "" }

// KafkaEnabled reports whether Kafka brokers are configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// AdminEnabled reports whether the admin endpoints are mounted.
func (c *Config) AdminEnabled() bool { return c.AdminJWTSecret != "" }

// PostgresConfig returns the pool settings for the Postgres store.
func (c *Config) PostgresConfig() *database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.URL = c.PostgresURL
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	return &pg
}

// RedisConfig returns the client settings for the Redis session store.
func (c *Config) RedisConfig() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Addr = c.RedisAddr
	rc.Password = c.RedisPass
	rc.DB = c.RedisDB
	return rc
}

// TracingConfig returns the OpenTelemetry settings. Export is enabled when
// an OTLP endpoint is set.
func (c *Config) TracingConfig(serviceName string) tracing.Config {
	tc := tracing.DefaultConfig(serviceName)
	tc.Environment = c.Environment
	tc.SampleRate = c.TraceSampleRate
	if c.OTLPEndpoint != "" {
		tc.OTLPEndpoint = c.OTLPEndpoint
		tc.Enabled = true
	}
	return tc
}
