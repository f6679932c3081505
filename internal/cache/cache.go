package cache

import (
	"context"
	"time"
)

// BytesCache is the key-value store behind the tracking snapshots. Every Set
// refreshes the TTL; Get reports (value, found, error) with a clean miss when
// the key is absent or expired.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
