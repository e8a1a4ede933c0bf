package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, DriverSQLite, cfg.SessionDriver)
	assert.Equal(t, 720*time.Hour, cfg.CartTTL)
	assert.False(t, cfg.RemoteEnabled())
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.AdminEnabled())
	assert.True(t, cfg.UsesSQLite())
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("STOREFRONT_HTTP_PORT", "9090")
	t.Setenv("STORE_DRIVER", " Postgres ")
	t.Setenv("SESSION_DRIVER", "redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("REMOTE_API_URL", "http://api.local/api/")
	t.Setenv("ADMIN_JWT_SECRET", "s3cret")
	t.Setenv("ORDER_STRICT_TRANSITIONS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, DriverRedis, cfg.SessionDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.RemoteEnabled())
	assert.True(t, cfg.AdminEnabled())
	assert.True(t, cfg.StrictTransitions)
	assert.False(t, cfg.UsesSQLite())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "STOREFRONT_HTTP_PORT", "70000"},
		{"unknown store driver", "STORE_DRIVER", "mongo"},
		{"unknown session driver", "SESSION_DRIVER", "postgres"},
		{"zero rate", "RATE_LIMIT_RPS", "0"},
		{"sample rate above one", "OTEL_TRACE_SAMPLE_RATE", "1.5"},
		{"empty queue", "NOTIFY_QUEUE_SIZE", "0"},
		{"not a number", "STOREFRONT_HTTP_PORT", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestPostgresConfig(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db",
		PostgresPort: 5433,
		PostgresUser: "u",
		PostgresPass: "p",
		PostgresDB:   "shop",
		PostgresSSL:  "disable",
	}
	assert.Equal(t, "postgres://u:p@db:5433/shop?sslmode=disable", cfg.PostgresConfig().DSN())

	cfg.PostgresURL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.PostgresConfig().DSN())
}

func TestTracingConfig_EnabledByEndpoint(t *testing.T) {
	cfg := &Config{Environment: "staging", TraceSampleRate: 0.25}
	tc := cfg.TracingConfig("storefront")
	assert.False(t, tc.Enabled)
	assert.Equal(t, "staging", tc.Environment)

	cfg.OTLPEndpoint = "otel:4318"
	tc = cfg.TracingConfig("storefront")
	assert.True(t, tc.Enabled)
	assert.Equal(t, "otel:4318", tc.OTLPEndpoint)
	assert.Equal(t, 0.25, tc.SampleRate)
}
