package aggregator

import (
	"sync"
	"time"

	"github.com/skywatch-oss/fusion-engine/internal/aircraft"
	"github.com/skywatch-oss/fusion-engine/internal/timeutil"
)

// hexCache is the aggregator-owned per-hex merge cache ("cache
// per-hex lookups for 60s"). It is mutated exclusively by the
// aggregator's own tick loop; no other component writes to it.
type hexCache struct {
	mu      sync.Mutex
	clock   timeutil.Clock
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	record    aircraft.UpstreamRecord
	expiresAt time.Time
}

func newHexCache(clock timeutil.Clock, ttl time.Duration) *hexCache {
	return &hexCache{clock: clock, ttl: ttl, entries: make(map[string]cacheEntry)}
}

func (c *hexCache) get(hex string) (aircraft.UpstreamRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[hex]
	if !ok || c.clock.Now().After(entry.expiresAt) {
		return aircraft.UpstreamRecord{}, false
	}
	return entry.record, true
}

func (c *hexCache) put(hex string, rec aircraft.UpstreamRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hex] = cacheEntry{record: rec, expiresAt: c.clock.Now().Add(c.ttl)}
}
