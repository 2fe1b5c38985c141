package data

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Cache is an in-memory TTL cache used by the API for loaded datasets and
// finished runs. Every entry costs 1, so MaxEntries bounds the entry count.
//
// Stored values are shared between callers and must be treated as read-only.
type Cache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

// NewCache creates a cache holding up to maxEntries values for ttl each.
// A zero ttl keeps entries until they are evicted.
func NewCache(maxEntries int64, ttl time.Duration) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		// Costs are entry counts, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Cache{c: c, ttl: ttl}, nil
}

// Get retrieves a value if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.c.Get(key)
}

// Set stores a value and waits until it is visible to Get.
func (c *Cache) Set(key string, val any) {
	if c == nil {
		return
	}
	c.c.SetWithTTL(key, val, 1, c.ttl)
	c.c.Wait()
}

// Del removes a value.
func (c *Cache) Del(key string) {
	if c == nil {
		return
	}
	c.c.Del(key)
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.c.Close()
}

// Dataset returns a cached dataset for key.
func (c *Cache) Dataset(key string) (*Dataset, bool) {
	v, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	ds, ok := v.(*Dataset)
	return ds, ok
}

// GenerateCacheKey creates a deterministic key from its parts.
func GenerateCacheKey(parts ...string) string {
	// Hash the key to keep it reasonably sized
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])
}
