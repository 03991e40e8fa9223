package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultTTL = time.Hour
	maxEntries = 100
	keyPrefix  = 100
)

// Store is a bounded TTL cache for generated content.
// When full, the oldest entry by insertion order is evicted.
type Store struct {
	lock  sync.Mutex
	cache *gocache.Cache
	order []string
}

// NewStore creates content cache
func NewStore() *Store {
	return &Store{cache: gocache.New(defaultTTL, defaultTTL/2)}
}

// Key builds the cache key from the transcript prefix and request shape.
// Platform order must not matter.
func Key(transcript string, platforms []string, tone string) string {
	pr := transcript
	if len(pr) > keyPrefix {
		pr = pr[:keyPrefix]
	}
	ps := make([]string, len(platforms))
	copy(ps, platforms)
	sort.Strings(ps)
	h := sha256.Sum256([]byte(pr + "|" + strings.Join(ps, ",") + "|" + tone))
	return hex.EncodeToString(h[:])
}

// Get returns the cached value or false
func (c *Store) Get(key string) (map[string]string, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	res, ok := v.(map[string]string)
	return res, ok
}

// Put stores the value, evicting the oldest entry when at capacity
func (c *Store) Put(key string, value map[string]string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, ok := c.cache.Get(key); ok {
		c.cache.Set(key, value, gocache.DefaultExpiration)
		return
	}
	kept := c.order[:0]
	for _, k := range c.order {
		if _, ok := c.cache.Get(k); ok {
			kept = append(kept, k)
		}
	}
	c.order = kept
	for len(c.order) >= maxEntries {
		c.cache.Delete(c.order[0])
		c.order = c.order[1:]
	}
	c.cache.Set(key, value, gocache.DefaultExpiration)
	c.order = append(c.order, key)
}
