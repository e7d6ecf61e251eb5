// Package cache holds process-lifetime search and image results so repeated
// requests for the same title do not hit the upstream providers again.
package cache

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"bannerforge/models"
)

const (
	// DefaultTTL is how long an entry lives after insertion.
	DefaultTTL = time.Hour
	// DefaultSweepInterval is how often the janitor evicts expired entries.
	// Reads past expiry report a miss even before the sweep runs.
	DefaultSweepInterval = 2 * time.Minute
)

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Keys   int   `json:"keys"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Cache is a TTL key/value store for search results and unfiltered verified
// image sets. Keys are scoped by provider so numerically overlapping title
// IDs from different providers never collide. Values are stored without
// cloning; callers must treat returned slices as read-only.
type Cache struct {
	store  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache with the given entry TTL and sweep interval.
// Non-positive values fall back to the defaults.
func New(ttl, sweep time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweep <= 0 {
		sweep = DefaultSweepInterval
	}
	return &Cache{store: gocache.New(ttl, sweep)}
}

func searchKey(provider, query string) string {
	return fmt.Sprintf("search:%s:%s", provider, strings.ToLower(strings.TrimSpace(query)))
}

func imageSetKey(provider, titleID string) string {
	return fmt.Sprintf("banners:%s:%s", provider, strings.TrimSpace(titleID))
}

// GetSearch returns the cached search results for a query, if present.
func (c *Cache) GetSearch(provider, query string) ([]models.SearchResult, bool) {
	v, ok := c.store.Get(searchKey(provider, query))
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	results, ok := v.([]models.SearchResult)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return results, true
}

// PutSearch stores search results for a query, replacing any previous entry.
func (c *Cache) PutSearch(provider, query string, results []models.SearchResult) {
	c.store.Set(searchKey(provider, query), results, gocache.DefaultExpiration)
}

// GetImageSet returns the cached unfiltered verified image set for a title.
func (c *Cache) GetImageSet(provider, titleID string) ([]models.BannerImage, bool) {
	v, ok := c.store.Get(imageSetKey(provider, titleID))
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	images, ok := v.([]models.BannerImage)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return images, true
}

// PutImageSet stores the unfiltered verified image set for a title. Size
// filtering is applied on read, never before storage, so one entry serves
// every preset.
func (c *Cache) PutImageSet(provider, titleID string, images []models.BannerImage) {
	c.store.Set(imageSetKey(provider, titleID), images, gocache.DefaultExpiration)
}

// DeleteImageSet removes a single title's image set.
func (c *Cache) DeleteImageSet(provider, titleID string) {
	c.store.Delete(imageSetKey(provider, titleID))
}

// Flush removes every entry.
func (c *Cache) Flush() {
	c.store.Flush()
}

// Keys returns the live cache keys.
func (c *Cache) Keys() []string {
	items := c.store.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	return keys
}

// Stats returns the current key count and hit/miss counters. Counters
// survive a Flush; only entries are dropped.
func (c *Cache) Stats() Stats {
	return Stats{
		Keys:   c.store.ItemCount(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}
