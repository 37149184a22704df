package battle

import (
	"sync"

	"github.com/OCAP2/tactical/pkg/core"
)

// Context holds the battle currently being fought and the last tick stepped.
type Context struct {
	mu     sync.RWMutex
	battle *core.Battle
	tick   uint64
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		battle: &core.Battle{Name: "No battle loaded"},
	}
}

// GetBattle returns the current battle
func (c *Context) GetBattle() *core.Battle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.battle
}

// SetBattle sets the current battle and resets the tick
func (c *Context) SetBattle(b *core.Battle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.battle = b
	c.tick = 0
}

// Tick returns the last tick stepped
func (c *Context) Tick() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tick
}

// SetTick records the last tick stepped
func (c *Context) SetTick(tick uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = tick
}
