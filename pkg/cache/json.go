package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/archflow/pkg/observability"
)

// GetBytes looks key up in c. Backend errors count as misses: a cache must
// never fail a request.
func GetBytes(ctx context.Context, c Cache, keyType, key string) ([]byte, bool) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return data, true
}

// SetBytes stores data under key.
func SetBytes(ctx context.Context, c Cache, keyType, key string, data []byte, ttl time.Duration) error {
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
	return nil
}

// GetJSON looks key up in c and decodes a hit into v. Undecodable entries
// are deleted and count as misses.
func GetJSON(ctx context.Context, c Cache, keyType, key string, v any) bool {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(ctx, key)
		observability.Cache().OnCacheMiss(ctx, keyType)
		return false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return true
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, keyType, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return SetBytes(ctx, c, keyType, key, data, ttl)
}
