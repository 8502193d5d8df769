package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	// redisPoolConnections exposes the go-redis pool gauges per state.
	// Metric: skuld_redis_pool_connections{state="total|idle|stale"}
	redisPoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "skuld",
		Subsystem: "redis",
		Name:      "pool_connections",
		Help:      "Redis connection pool gauges by state",
	}, []string{"state"})

	// redisPoolHits counts acquisitions served by an existing connection.
	// Metric: skuld_redis_pool_hits_total
	redisPoolHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skuld",
		Subsystem: "redis",
		Name:      "pool_hits_total",
		Help:      "Cumulative pool acquisitions served without a new dial",
	})

	// redisPoolMisses counts acquisitions that required a new dial.
	// Metric: skuld_redis_pool_misses_total
	redisPoolMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skuld",
		Subsystem: "redis",
		Name:      "pool_misses_total",
		Help:      "Cumulative pool acquisitions that dialed a new connection",
	})

	// redisPoolTimeouts counts acquisitions that timed out waiting.
	// Metric: skuld_redis_pool_timeouts_total
	redisPoolTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skuld",
		Subsystem: "redis",
		Name:      "pool_timeouts_total",
		Help:      "Cumulative pool acquisitions that timed out",
	})
)

// RunPoolMonitor periodically samples go-redis pool stats and publishes them
// as Prometheus metrics. go-redis exposes stats only via polling, so this
// runs as a small sidecar goroutine; it exits when ctx is cancelled.
func RunPoolMonitor(ctx context.Context, client *redis.Client, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// go-redis counters are cumulative; publish deltas so the Prometheus
	// counters survive monitor restarts without going backwards.
	var lastHits, lastMisses, lastTimeouts uint32

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := client.PoolStats()

			redisPoolConnections.WithLabelValues("total").Set(float64(stats.TotalConns))
			redisPoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns))
			redisPoolConnections.WithLabelValues("stale").Set(float64(stats.StaleConns))

			if d := stats.Hits - lastHits; d > 0 {
				redisPoolHits.Add(float64(d))
				lastHits = stats.Hits
			}
			if d := stats.Misses - lastMisses; d > 0 {
				redisPoolMisses.Add(float64(d))
				lastMisses = stats.Misses
			}
			if d := stats.Timeouts - lastTimeouts; d > 0 {
				redisPoolTimeouts.Add(float64(d))
				lastTimeouts = stats.Timeouts
			}
		}
	}
}
