package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// poolConnections exposes the pool's connection gauges per state.
	// Metric: skuld_database_pool_connections{state="total|idle|in_use|max"}
	poolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "skuld",
		Subsystem: "database",
		Name:      "pool_connections",
		Help:      "Connection pool gauges by state",
	}, []string{"state"})

	// poolAcquireCount mirrors pgx's cumulative acquire counter.
	// Metric: skuld_database_pool_acquire_count_total
	poolAcquireCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skuld",
		Subsystem: "database",
		Name:      "pool_acquire_count_total",
		Help:      "Cumulative number of successful connection acquisitions",
	})

	// poolAcquireDuration mirrors pgx's cumulative time spent acquiring.
	// Metric: skuld_database_pool_acquire_duration_seconds_total
	poolAcquireDuration = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skuld",
		Subsystem: "database",
		Name:      "pool_acquire_duration_seconds_total",
		Help:      "Cumulative time spent acquiring connections",
	})

	// poolWaitCount counts acquisitions that had to wait for a free slot.
	// A growing rate means the pool is undersized for the load.
	// Metric: skuld_database_pool_wait_count_total
	poolWaitCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skuld",
		Subsystem: "database",
		Name:      "pool_wait_count_total",
		Help:      "Cumulative number of acquisitions that blocked on an exhausted pool",
	})
)

// RunPoolMonitor periodically samples pgxpool stats and publishes them as
// Prometheus metrics. pgx exposes stats only via polling, so this runs as a
// small sidecar goroutine; it exits when ctx is cancelled.
func RunPoolMonitor(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// pgx counters are cumulative; we publish deltas so the Prometheus
	// counters survive monitor restarts without going backwards.
	var (
		lastAcquireCount    int64
		lastAcquireDuration time.Duration
		lastEmptyAcquire    int64
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := pool.Stat()

			poolConnections.WithLabelValues("total").Set(float64(stats.TotalConns()))
			poolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns()))
			poolConnections.WithLabelValues("in_use").Set(float64(stats.AcquiredConns()))
			poolConnections.WithLabelValues("max").Set(float64(stats.MaxConns()))

			if d := stats.AcquireCount() - lastAcquireCount; d > 0 {
				poolAcquireCount.Add(float64(d))
				lastAcquireCount = stats.AcquireCount()
			}
			if d := stats.AcquireDuration() - lastAcquireDuration; d > 0 {
				poolAcquireDuration.Add(d.Seconds())
				lastAcquireDuration = stats.AcquireDuration()
			}
			if d := stats.EmptyAcquireCount() - lastEmptyAcquire; d > 0 {
				poolWaitCount.Add(float64(d))
				lastEmptyAcquire = stats.EmptyAcquireCount()
			}
		}
	}
}
