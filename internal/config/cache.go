package config

import (
	"fmt"
	"time"
)

// CacheBackend selects which cache implementation backs flag lookups.
type CacheBackend string

const (
	// CacheBackendRedis stores flags in a shared Redis instance. This is
	// the right choice whenever more than one replica serves traffic.
	CacheBackendRedis CacheBackend = "redis"

	// CacheBackendMemory keeps flags in-process. Single-replica and test
	// deployments only, since invalidation never crosses process borders.
	CacheBackendMemory CacheBackend = "memory"
)

// CacheConfig controls the flag cache layer.
type CacheConfig struct {
	Backend CacheBackend `envconfig:"BACKEND" default:"redis" validate:"oneof=redis memory"`

	// TTL bounds staleness when an invalidation is lost. Zero disables
	// expiry entirely for the redis backend.
	TTL time.Duration `envconfig:"TTL" default:"1h"`

	// KeyPrefix namespaces flag keys so several environments can share one
	// Redis instance. Example key: "skuld:flag:new-checkout".
	KeyPrefix string `envconfig:"KEY_PREFIX" default:"skuld:flag"`

	// MemoryCapacity caps the entry count of the in-memory backend.
	MemoryCapacity int `envconfig:"MEMORY_CAPACITY" default:"10000" validate:"min=1"`
}

// Validate checks CacheConfig fields for correctness.
func (c *CacheConfig) Validate() error {
	if c.TTL < 0 {
		return fmt.Errorf("cache TTL cannot be negative")
	}
	if err := validateNoWhitespace(c.KeyPrefix, "cache key prefix"); err != nil {
		return err
	}
	if c.Backend == CacheBackendMemory && c.TTL == 0 {
		// otter requires a positive TTL, there is no "never expire" mode.
		return fmt.Errorf("cache TTL must be positive for the memory backend")
	}
	return nil
}
