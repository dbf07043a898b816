package generate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/syssam/graphdl"

	"github.com/vmihailenco/msgpack/v5"
)

// entry is the msgpack form of a cached GeneratedValue.
type entry struct {
	Value    any            `msgpack:"v"`
	Metadata map[string]any `msgpack:"m,omitempty"`
}

// Cached memoizes a generator in a graphdl.Cache, keyed by a digest of the
// request. Cache failures are logged and bypassed.
type Cached struct {
	gen    graphdl.ValueGenerator
	cache  graphdl.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps gen. A zero ttl keeps entries until the cache evicts them.
func NewCached(gen graphdl.ValueGenerator, cache graphdl.Cache, ttl time.Duration) *Cached {
	return &Cached{gen: gen, cache: cache, ttl: ttl, logger: slog.Default()}
}

// Key returns the cache key of a request.
func Key(req graphdl.GenerateRequest) graphdl.CacheKey {
	h := sha256.New()
	for _, s := range []string{req.Type, req.FieldName, req.Hint, req.FullContext} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return graphdl.CacheKey{Entity: req.Type, Field: req.FieldName, Digest: hex.EncodeToString(h.Sum(nil))}
}

// Generate implements graphdl.ValueGenerator.
func (c *Cached) Generate(ctx context.Context, req graphdl.GenerateRequest) (graphdl.GeneratedValue, error) {
	key := Key(req).String()
	data, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.WarnContext(ctx, "generation cache read failed", "key", key, "error", err)
	case data != nil:
		var e entry
		if err := msgpack.Unmarshal(data, &e); err == nil {
			return graphdl.GeneratedValue{Value: e.Value, Metadata: e.Metadata}, nil
		}
		c.logger.WarnContext(ctx, "generation cache entry is corrupt", "key", key)
	}
	v, err := c.gen.Generate(ctx, req)
	if err != nil {
		return v, err
	}
	data, err = msgpack.Marshal(entry{Value: v.Value, Metadata: v.Metadata})
	if err == nil {
		err = c.cache.Set(ctx, key, data, c.ttl)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "generation cache write failed", "key", key, "error", err)
	}
	return v, nil
}

// SupportsSync reports whether the wrapped generator is synchronous.
func (c *Cached) SupportsSync() bool {
	return c.gen.SupportsSync()
}

// MemoryCache is an in-process graphdl.Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry), now: time.Now}
}

// Get implements graphdl.Cache.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, nil
	}
	return e.value, nil
}

// Set implements graphdl.Cache.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := cacheEntry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Delete implements graphdl.Cache.
func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

var (
	_ graphdl.ValueGenerator = (*Cached)(nil)
	_ graphdl.Cache          = (*MemoryCache)(nil)
)
