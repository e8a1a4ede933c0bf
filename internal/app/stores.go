package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Catalina-leal/Huertohogarapp/internal/config"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository/postgres"
	redisrepo "github.com/Catalina-leal/Huertohogarapp/internal/repository/redis"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository/sqlite"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository/watch"
	"github.com/Catalina-leal/Huertohogarapp/pkg/database"
	"github.com/Catalina-leal/Huertohogarapp/pkg/health"
)

// stores holds the open connections and the repositories built on them.
// Connections that the configuration does not use stay nil.
type stores struct {
	sqlite *sql.DB
	pool   *pgxpool.Pool
	rdb    *redis.Client

	cart     *watch.CartRepository
	products *watch.ProductRepository
	orders   *watch.OrderRepository
	prefs    repository.PreferencesRepository
}

// openStores connects the configured backends, runs migrations and
// registers their health checks and pool metrics.
func openStores(ctx context.Context, cfg *config.Config, hh *health.Handler, logger *slog.Logger) (_ *stores, err error) {
	s := &stores{}
	defer func() {
		if err != nil {
			s.close(logger)
		}
	}()

	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

	if cfg.UsesSQLite() {
		s.sqlite, err = sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("opened embedded store", slog.String("path", cfg.SQLitePath))
		registerPoolMetrics(database.SQLStats(s.sqlite), config.DriverSQLite, logger)
		hh.Register("sqlite", func(ctx context.Context) error {
			return s.sqlite.PingContext(ctx)
		})
	}

	var (
		products repository.ProductRepository
		orders   repository.OrderRepository
	)
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		s.pool, err = database.NewPostgresPool(ctx, cfg.PostgresConfig(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err = database.RunMigrations(ctx, s.pool, postgres.Migrations(), logger); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		registerPoolMetrics(database.PgxStats(s.pool), config.DriverPostgres, logger)
		hh.Register("postgres", func(ctx context.Context) error {
			return s.pool.Ping(ctx)
		})
		products = postgres.NewProductRepository(s.pool)
		orders = postgres.NewOrderRepository(s.pool)
	default:
		products = sqlite.NewProductRepository(s.sqlite)
		orders = sqlite.NewOrderRepository(s.sqlite)
	}

	var cart repository.CartRepository
	switch cfg.SessionDriver {
	case config.DriverRedis:
		s.rdb, err = database.NewRedisClient(ctx, cfg.RedisConfig(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		hh.Register("redis", func(ctx context.Context) error {
			return s.rdb.Ping(ctx).Err()
		})
		cart = redisrepo.NewCartRepository(s.rdb, cfg.SessionID, cfg.CartTTL)
		s.prefs = redisrepo.NewPreferencesRepository(s.rdb, cfg.SessionID)
	default:
		cart = sqlite.NewCartRepository(s.sqlite)
		s.prefs = sqlite.NewPreferencesRepository(s.sqlite)
	}

	s.cart = watch.NewCartRepository(cart, logger)
	s.products = watch.NewProductRepository(products, logger)
	s.orders = watch.NewOrderRepository(orders, logger)

	logger.Info("stores ready",
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("session_driver", cfg.SessionDriver),
	)
	return s, nil
}

func registerPoolMetrics(stats func() database.PoolStats, driver string, logger *slog.Logger) {
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, stats, driver); err != nil {
		logger.Warn("failed to register pool metrics",
			slog.String("driver", driver),
			slog.String("error", err.Error()),
		)
	}
}

// close stops the watchers and closes every open connection.
func (s *stores) close(logger *slog.Logger) {
	if s.cart != nil {
		s.cart.Close()
	}
	if s.products != nil {
		s.products.Close()
	}
	if s.orders != nil {
		s.orders.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if s.sqlite != nil {
		if err := s.sqlite.Close(); err != nil {
			logger.Error("sqlite close error", slog.String("error", err.Error()))
		}
	}
}
