// Package cache keeps what the command intake needs to know about spawned
// entities without asking the simulation goroutine.
package cache

import (
	"sync"

	"github.com/OCAP2/tactical/pkg/core"
)

// EntityCache records every accepted spawn and whether the entity is still alive.
type EntityCache struct {
	mu       sync.RWMutex
	entities map[core.EntityID]core.Spawned
	dead     map[core.EntityID]struct{}
}

func NewEntityCache() *EntityCache {
	return &EntityCache{
		entities: make(map[core.EntityID]core.Spawned),
		dead:     make(map[core.EntityID]struct{}),
	}
}

func (c *EntityCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities = make(map[core.EntityID]core.Spawned)
	c.dead = make(map[core.EntityID]struct{})
}

// Add records s. It reports false if the id is already taken.
func (c *EntityCache) Add(s core.Spawned) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entities[s.EntityID]; ok {
		return false
	}
	c.entities[s.EntityID] = s
	return true
}

func (c *EntityCache) Get(id core.EntityID) (core.Spawned, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entities[id]
	return s, ok
}

// MarkDead records that id was killed.
func (c *EntityCache) MarkDead(id core.EntityID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entities[id]; ok {
		c.dead[id] = struct{}{}
	}
}

// Alive reports whether id was spawned and has not been killed.
func (c *EntityCache) Alive(id core.EntityID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, known := c.entities[id]
	_, dead := c.dead[id]
	return known && !dead
}

func (c *EntityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}
