// Package cache stores generated architectures, relaxed layouts and rendered
// artifacts behind a small key/value interface.
//
// Backends implementing [Cache]:
//   - [FileCache]: one JSON file per entry, the CLI default
//   - [NullCache]: stores nothing, for --no-cache
//   - [RedisCache]: shared cache for the HTTP API with native TTLs
//   - [MongoCache]: shared persistent cache with a TTL index
//   - [SQLCache]: one table in SQLite (pure Go driver) or PostgreSQL
//
// [Open] picks one from [Options].
//
// Keys come from a [Keyer] so that every component agrees on how an idea,
// a layout or an artifact is addressed. [GetJSON] and [SetJSON] wrap a Cache
// with JSON encoding and fire the cache hooks from the observability package.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss
	// (false, nil), not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A non-positive ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default time-to-live per entry kind.
const (
	// TTLIdea bounds how long a generated architecture is reused for the
	// same idea text.
	TTLIdea = 24 * time.Hour

	// TTLLayout applies to relaxed layouts. They are a pure function of
	// their key, so they are kept longer.
	TTLLayout = 7 * 24 * time.Hour

	// TTLArtifact applies to rendered SVG/DOT/PDF/PNG output.
	TTLArtifact = 7 * 24 * time.Hour
)

// Key types reported to cache hooks.
const (
	KeyTypeIdea     = "idea"
	KeyTypeLayout   = "layout"
	KeyTypeArtifact = "artifact"
)
