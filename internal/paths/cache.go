package paths

import (
	"sync"

	"github.com/solatis/geokeeper/internal/types"
)

// Cache holds built catalogs keyed by (source, target).
//
// Entries are written once and never mutated. Two requests racing on the same
// uncached pair may both build it; the first Store wins and the second result
// is discarded. One Cache per service lifetime; tests construct a fresh one.
type Cache struct {
	mu      sync.RWMutex
	entries map[pairKey][]types.PathDescriptor
}

type pairKey struct {
	source string
	target string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[pairKey][]types.PathDescriptor)}
}

// Load returns a copy of the cached catalog for a pair.
func (c *Cache) Load(source, target string) ([]types.PathDescriptor, bool) {
	c.mu.RLock()
	entry, ok := c.entries[pairKey{source, target}]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneCatalog(entry), true
}

// Store inserts a catalog unless the pair is already present and returns the
// catalog that is cached afterwards, as a copy.
func (c *Cache) Store(source, target string, catalog []types.PathDescriptor) []types.PathDescriptor {
	k := pairKey{source, target}

	c.mu.Lock()
	entry, ok := c.entries[k]
	if !ok {
		entry = cloneCatalog(catalog)
		c.entries[k] = entry
	}
	c.mu.Unlock()

	return cloneCatalog(entry)
}

// Len returns the number of cached pairs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cloneCatalog(in []types.PathDescriptor) []types.PathDescriptor {
	out := make([]types.PathDescriptor, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
