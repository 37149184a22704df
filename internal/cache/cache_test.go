package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/tactical/pkg/core"
)

func TestEntityCache_AddAndGet(t *testing.T) {
	cache := NewEntityCache()

	require.True(t, cache.Add(core.Spawned{EntityID: 42, Name: "Miller", Kind: core.KindSoldier}))
	assert.False(t, cache.Add(core.Spawned{EntityID: 42, Name: "Other"}), "ids are unique")

	got, ok := cache.Get(42)
	require.True(t, ok)
	assert.Equal(t, "Miller", got.Name)
	assert.Equal(t, 1, cache.Len())

	_, ok = cache.Get(7)
	assert.False(t, ok)
}

func TestEntityCache_Alive(t *testing.T) {
	cache := NewEntityCache()
	cache.Add(core.Spawned{EntityID: 1})

	assert.True(t, cache.Alive(1))
	assert.False(t, cache.Alive(2))

	cache.MarkDead(1)
	cache.MarkDead(2)
	assert.False(t, cache.Alive(1))

	// still known after death
	_, ok := cache.Get(1)
	assert.True(t, ok)
}

func TestEntityCache_Reset(t *testing.T) {
	cache := NewEntityCache()
	cache.Add(core.Spawned{EntityID: 1})
	cache.MarkDead(1)

	cache.Reset()

	assert.Equal(t, 0, cache.Len())
	assert.True(t, cache.Add(core.Spawned{EntityID: 1}))
	assert.True(t, cache.Alive(1))
}

func TestEntityCache_ConcurrentAccess(t *testing.T) {
	cache := NewEntityCache()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(id core.EntityID) {
			defer wg.Done()
			cache.Add(core.Spawned{EntityID: id})
		}(core.EntityID(i))
		go func(id core.EntityID) {
			defer wg.Done()
			cache.Alive(id)
		}(core.EntityID(i))
	}
	wg.Wait()

	assert.Equal(t, 100, cache.Len())
}

func TestNameCache(t *testing.T) {
	cache := NewNameCache()

	cache.Set("Sgt. Miller", 3)
	cache.Set("", 9)

	id, ok := cache.Get("sgt. miller")
	require.True(t, ok)
	assert.Equal(t, core.EntityID(3), id)

	_, ok = cache.Get("")
	assert.False(t, ok)

	cache.Delete("SGT. MILLER")
	_, ok = cache.Get("Sgt. Miller")
	assert.False(t, ok)

	cache.Set("Tiger", 7)
	cache.Reset()
	_, ok = cache.Get("Tiger")
	assert.False(t, ok)
}
