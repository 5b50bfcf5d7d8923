package enrich

import (
	"sync"

	"github.com/sells-group/similar-cli/internal/metrics"
	"github.com/sells-group/similar-cli/internal/model"
)

// Cache holds reference rows and link lists fetched by the single-item path.
// Misses are cached too, so an id without a reference row or links is only
// queried once. A nil *Cache disables caching. Cache is safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	refs   map[string]refEntry
	links  map[linkKey][]string
	hits   int
	misses int
}

type refEntry struct {
	attrs model.ReferenceAttrs
	found bool
}

type linkKey struct {
	cat model.Catalog
	id  string
}

// CacheStats is a point-in-time view of a Cache.
type CacheStats struct {
	References int `json:"references"`
	Links      int `json:"links"`
	Hits       int `json:"hits"`
	Misses     int `json:"misses"`
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		refs:  make(map[string]refEntry),
		links: make(map[linkKey][]string),
	}
}

// references splits ids into cached rows and ids that must be queried.
func (c *Cache) references(ids []string) (map[string]model.ReferenceAttrs, []string) {
	found := make(map[string]model.ReferenceAttrs)
	if c == nil {
		return found, ids
	}

	c.mu.RLock()
	var missing []string
	for _, id := range ids {
		e, ok := c.refs[id]
		switch {
		case !ok:
			missing = append(missing, id)
		case e.found:
			found[id] = e.attrs
		}
	}
	c.mu.RUnlock()

	c.count(len(ids)-len(missing), len(missing))
	return found, missing
}

// storeReferences records the rows fetched for requested. Requested ids
// without a row are cached as misses.
func (c *Cache) storeReferences(requested []string, got map[string]model.ReferenceAttrs) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range requested {
		r, ok := got[id]
		c.refs[id] = refEntry{attrs: r, found: ok}
	}
}

// linksFor splits ids into cached link lists and ids that must be queried.
func (c *Cache) linksFor(cat model.Catalog, ids []string) (map[string][]string, []string) {
	found := make(map[string][]string)
	if c == nil {
		return found, ids
	}

	c.mu.RLock()
	var missing []string
	for _, id := range ids {
		l, ok := c.links[linkKey{cat, id}]
		switch {
		case !ok:
			missing = append(missing, id)
		case len(l) > 0:
			found[id] = l
		}
	}
	c.mu.RUnlock()

	c.count(len(ids)-len(missing), len(missing))
	return found, missing
}

func (c *Cache) storeLinks(cat model.Catalog, requested []string, got map[string][]string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range requested {
		c.links[linkKey{cat, id}] = append([]string{}, got[id]...)
	}
}

func (c *Cache) count(hits, misses int) {
	c.mu.Lock()
	c.hits += hits
	c.misses += misses
	c.mu.Unlock()
	metrics.RecordCache(hits, misses)
}

// Clear drops every cached entry and resets the counters.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs = make(map[string]refEntry)
	c.links = make(map[linkKey][]string)
	c.hits, c.misses = 0, 0
}

// Invalidate drops the reference rows and link lists of ids in every catalog.
func (c *Cache) Invalidate(ids ...string) {
	if c == nil {
		return
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range drop {
		delete(c.refs, id)
	}
	for k := range c.links {
		if drop[k.id] {
			delete(c.links, k)
		}
	}
}

// Stats returns the cache size and hit counters.
func (c *Cache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		References: len(c.refs),
		Links:      len(c.links),
		Hits:       c.hits,
		Misses:     c.misses,
	}
}
