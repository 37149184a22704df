package cache

import (
	"strings"
	"sync"

	"github.com/OCAP2/tactical/pkg/core"
)

// NameCache maps entity names to their ids so commands can address units by
// name. Lookups ignore case.
type NameCache struct {
	mu    sync.RWMutex
	names map[string]core.EntityID
}

// NewNameCache creates a new NameCache
func NewNameCache() *NameCache {
	return &NameCache{
		names: make(map[string]core.EntityID),
	}
}

// Get retrieves an entity id by name
func (c *NameCache) Get(name string) (core.EntityID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.names[strings.ToLower(name)]
	return id, ok
}

// Set stores an entity id by name. Empty names are ignored.
func (c *NameCache) Set(name string, id core.EntityID) {
	if name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[strings.ToLower(name)] = id
}

// Delete removes a name
func (c *NameCache) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.names, strings.ToLower(name))
}

// Reset clears all names from the cache
func (c *NameCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = make(map[string]core.EntityID)
}
