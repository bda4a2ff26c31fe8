package ephemeris

import (
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// DefaultCacheEntries bounds a Cache created with a non-positive size.
const DefaultCacheEntries = 1 << 20

type cacheKey struct {
	body  dynamo.BodyID
	epoch uint64 // float bits, so lookups are exact
}

// Cache is a read-through cache in front of another provider. Workers
// propagating different bodies tend to ask for the same (body, epoch)
// pairs, so hits are served under a read lock and concurrent misses for
// one key reach the source only once. Errors are not cached.
//
// When the entry count reaches the bound the cache is cleared; propagation
// sweeps epochs monotonically so older entries are rarely needed again.
type Cache struct {
	src     dynamo.EphemerisProvider
	max     int
	mu      sync.RWMutex
	entries map[cacheKey]dynamo.Vector3
	group   singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewCache(src dynamo.EphemerisProvider, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &Cache{
		src:     src,
		max:     maxEntries,
		entries: make(map[cacheKey]dynamo.Vector3),
	}
}

func (c *Cache) Coverage() (float64, float64) { return c.src.Coverage() }

func (c *Cache) Position(id dynamo.BodyID, epoch float64) (dynamo.Vector3, error) {
	key := cacheKey{body: id, epoch: math.Float64bits(epoch)}

	c.mu.RLock()
	r, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return r, nil
	}

	v, err, _ := c.group.Do(string(id)+"@"+strconv.FormatUint(key.epoch, 16), func() (interface{}, error) {
		c.misses.Add(1)
		r, err := c.src.Position(id, epoch)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if len(c.entries) >= c.max {
			c.entries = make(map[cacheKey]dynamo.Vector3)
		}
		c.entries[key] = r
		c.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return dynamo.Vector3{}, err
	}
	return v.(dynamo.Vector3), nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
