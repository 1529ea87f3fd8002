// Package memory is the in-process cache backend, used when no Redis server
// is configured. Entries live in a sharded sturdyc client.
package memory

import (
	"context"
	"path"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/sirpyerre/task-tracker/internal/core/ports"
)

// Config sizes the underlying sturdyc client. TTL is the upper bound for any
// entry; shorter per-entry TTLs passed to Set are honored on read.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
}

func DefaultConfig() Config {
	return Config{
		Capacity:           10_000,
		NumShards:          16,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

type entry struct {
	data    []byte
	expires time.Time
}

// Cache implements ports.Cache in process memory. It never fails.
type Cache struct {
	client *sturdyc.Client[entry]
	now    func() time.Time
}

var _ ports.Cache = (*Cache)(nil)

func New(cfg Config) *Cache {
	def := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.NumShards <= 0 {
		cfg.NumShards = def.NumShards
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.EvictionPercentage <= 0 || cfg.EvictionPercentage > 100 {
		cfg.EvictionPercentage = def.EvictionPercentage
	}
	return &Cache{
		client: sturdyc.New[entry](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage),
		now:    time.Now,
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := c.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.client.Delete(key)
		return nil, false, nil
	}
	return e.data, true, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{data: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.client.Set(key, e)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.client.Delete(key)
	return nil
}

// KeysMatching uses glob syntax. Keys never contain '/', so path.Match
// behaves like Redis MATCH for them.
func (c *Cache) KeysMatching(_ context.Context, pattern string) ([]string, error) {
	var keys []string
	for _, key := range c.client.ScanKeys() {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (c *Cache) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	keys, _ := c.KeysMatching(ctx, pattern)
	for _, key := range keys {
		c.client.Delete(key)
	}
	return len(keys), nil
}

func (c *Cache) Ping(context.Context) error { return nil }
