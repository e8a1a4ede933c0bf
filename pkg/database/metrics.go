package database

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats is the engine-neutral view of a connection pool.
type PoolStats struct {
	InUse    int64
	Idle     int64
	Total    int64
	Max      int64
	Waits    int64
	WaitSecs float64
}

// PgxStats reads PoolStats from a pgx pool.
func PgxStats(pool *pgxpool.Pool) func() PoolStats {
	return func() PoolStats {
		s := pool.Stat()
		return PoolStats{
			InUse:    int64(s.AcquiredConns()),
			Idle:     int64(s.IdleConns()),
			Total:    int64(s.TotalConns()),
			Max:      int64(s.MaxConns()),
			Waits:    s.EmptyAcquireCount(),
			WaitSecs: s.AcquireDuration().Seconds(),
		}
	}
}

// SQLStats reads PoolStats from a database/sql handle.
func SQLStats(db *sql.DB) func() PoolStats {
	return func() PoolStats {
		s := db.Stats()
		return PoolStats{
			InUse:    int64(s.InUse),
			Idle:     int64(s.Idle),
			Total:    int64(s.OpenConnections),
			Max:      int64(s.MaxOpenConnections),
			Waits:    s.WaitCount,
			WaitSecs: s.WaitDuration.Seconds(),
		}
	}
}

// PoolStatsCollector implements prometheus.Collector for connection pool metrics.
type PoolStatsCollector struct {
	stats  func() PoolStats
	driver string

	inUse    *prometheus.Desc
	idle     *prometheus.Desc
	total    *prometheus.Desc
	max      *prometheus.Desc
	waits    *prometheus.Desc
	waitSecs *prometheus.Desc
}

// NewPoolStatsCollector creates a collector labelled with the storage driver
// name ("postgres", "sqlite").
func NewPoolStatsCollector(stats func() PoolStats, driver string) *PoolStatsCollector {
	labels := []string{"driver"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("storefront_db_pool_"+name, help, labels, nil)
	}
	return &PoolStatsCollector{
		stats:    stats,
		driver:   driver,
		inUse:    desc("in_use_connections", "Number of connections currently in use"),
		idle:     desc("idle_connections", "Number of idle connections"),
		total:    desc("total_connections", "Number of open connections"),
		max:      desc("max_connections", "Maximum number of open connections"),
		waits:    desc("wait_count_total", "Total number of waits for a free connection"),
		waitSecs: desc("wait_duration_seconds_total", "Total time spent waiting for a connection"),
	}
}

// Describe sends the descriptors of all metrics to the provided channel.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inUse
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.waits
	ch <- c.waitSecs
}

// Collect reads current pool statistics and sends them as Prometheus metrics.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(s.InUse), c.driver)
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle), c.driver)
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.Total), c.driver)
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.Max), c.driver)
	ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(s.Waits), c.driver)
	ch <- prometheus.MustNewConstMetric(c.waitSecs, prometheus.CounterValue, s.WaitSecs, c.driver)
}

// RegisterPoolMetrics registers a pool collector with reg.
func RegisterPoolMetrics(reg prometheus.Registerer, stats func() PoolStats, driver string) error {
	return reg.Register(NewPoolStatsCollector(stats, driver))
}
