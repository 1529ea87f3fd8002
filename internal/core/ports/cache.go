package ports

import (
	"context"
	"time"
)

// Cache is an advisory key/value store with per-entry TTL. Its content is
// always derived from the primary store and may vanish at any time.
// Patterns use glob syntax (`*`, `?`, `[...]`).
type Cache interface {
	// Get reports found=false on a miss. An error means the cache itself failed.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	KeysMatching(ctx context.Context, pattern string) ([]string, error)
	DeleteMatching(ctx context.Context, pattern string) (int, error)
	Ping(ctx context.Context) error
}
