// Package dedup implements the at-most-once response cache: a time-bounded
// mapping from a client's MessageID to the response the server already
// computed for it, so that retransmitted datagrams replay the exact same
// reply instead of re-executing a mutating command.
package dedup

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/kuiwang02/kvstore/internal/wire"
)

// TTL is the fixed duplicate-suppression window required by the wire
// contract.
const TTL = 1 * time.Second

// capacity additionally bounds cardinality per spec 4.4's allowance for an
// LRU-style cap; ttlcache only evicts expired or over-capacity entries, so a
// live entry within TTL is never evicted early under normal load.
const capacity = 10000

// Cache is a TTL-indexed map from wire.MessageID to wire.Response.
type Cache struct {
	inner *ttlcache.Cache[wire.MessageID, wire.Response]
}

// New creates a cache with the fixed 1s TTL and starts its background
// expiry sweeper. Callers must call Close when done.
func New() *Cache {
	inner := ttlcache.New[wire.MessageID, wire.Response](
		ttlcache.WithTTL[wire.MessageID, wire.Response](TTL),
		ttlcache.WithCapacity[wire.MessageID, wire.Response](capacity),
	)
	go inner.Start()
	return &Cache{inner: inner}
}

// Close stops the background expiry sweeper.
func (c *Cache) Close() {
	c.inner.Stop()
}

// Lookup returns the cached response for id and refreshes its TTL, or
// ok=false if id is unknown or its entry has expired.
func (c *Cache) Lookup(id wire.MessageID) (resp wire.Response, ok bool) {
	item := c.inner.Get(id)
	if item == nil {
		return wire.Response{}, false
	}
	return item.Value(), true
}

// Insert replaces any existing entry for id with resp and resets its TTL to
// the full duplicate-suppression window.
func (c *Cache) Insert(id wire.MessageID, resp wire.Response) {
	c.inner.Set(id, resp, ttlcache.DefaultTTL)
}
