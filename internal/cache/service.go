// Package cache provides the flag cache layer. It sits in front of the
// store in a cache-aside arrangement: the registry consults it before the
// store on reads and keeps it fresh after mutations.
//
// The cache is strictly an optimization. Every operation reports success as
// a boolean instead of an error, and implementations log and absorb backend
// failures so the caller can always fall through to the store.
package cache

import (
	"context"

	"github.com/skuld-io/skuld/internal/flag"
)

// Service defines the interface for flag cache operations.
type Service interface {
	// Get returns the cached flag for a code. The boolean is false on a
	// miss or any backend failure.
	Get(ctx context.Context, code string) (*flag.Record, bool)

	// Set caches a flag under its code. Returns false when the write was
	// absorbed by a backend failure.
	Set(ctx context.Context, rec *flag.Record) bool

	// Delete drops a single flag from the cache.
	Delete(ctx context.Context, code string) bool

	// Clear drops every flag in this cache's namespace.
	Clear(ctx context.Context) bool

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
