package cache

import (
	"context"
	"time"

	"github.com/maypok86/otter"

	"github.com/skuld-io/skuld/internal/flag"
	"github.com/skuld-io/skuld/internal/observability"
)

const backendMemory = "memory"

// Compile-time check to verify that MemoryCache implements Service.
var _ Service = (*MemoryCache)(nil)

// MemoryCache implements Service in-process using a high-performance,
// contention-free algorithm (S3-FIFO) provided by the 'otter' library.
// Suitable for single-replica deployments and tests only: invalidations
// never cross process borders.
type MemoryCache struct {
	store otter.Cache[string, *flag.Record]
}

// NewMemoryCache initializes the in-memory cache with strict limits.
// capacity: Max number of items (hard cap to prevent OOM).
// ttl: Time-To-Live for items (safety net for eventual consistency).
func NewMemoryCache(capacity int, ttl time.Duration) (*MemoryCache, error) {
	cache, err := otter.MustBuilder[string, *flag.Record](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}

	return &MemoryCache{store: cache}, nil
}

// Get retrieves a flag from memory. This operation is virtually lock-free.
func (c *MemoryCache) Get(_ context.Context, code string) (*flag.Record, bool) {
	rec, ok := c.store.Get(code)
	if ok {
		observability.CacheHits.WithLabelValues(backendMemory).Inc()
	} else {
		observability.CacheMisses.WithLabelValues(backendMemory).Inc()
	}
	return rec, ok
}

// Set adds or updates a flag in memory. The configured TTL is applied
// automatically. Returns false when the write was rejected by the
// admission policy; the entry simply stays uncached.
func (c *MemoryCache) Set(_ context.Context, rec *flag.Record) bool {
	if !c.store.Set(rec.Code, rec) {
		observability.CacheErrors.WithLabelValues(backendMemory, "set").Inc()
		return false
	}
	return true
}

// Delete removes a flag from memory.
func (c *MemoryCache) Delete(_ context.Context, code string) bool {
	c.store.Delete(code)
	return true
}

// Clear removes every flag from memory.
func (c *MemoryCache) Clear(_ context.Context) bool {
	c.store.Clear()
	return true
}

// HealthCheck always succeeds; the backend lives in the same process.
func (c *MemoryCache) HealthCheck(_ context.Context) error {
	return nil
}

// Close gracefully shuts down the cache and its background cleanup
// goroutines.
func (c *MemoryCache) Close() error {
	c.store.Close()
	return nil
}

// RunMetricsCollector periodically publishes the entry count gauge. otter
// exposes size only via polling, so this runs as a small sidecar goroutine;
// it exits when ctx is cancelled.
func (c *MemoryCache) RunMetricsCollector(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.CacheItemsCount.Set(float64(c.store.Size()))
		}
	}
}
