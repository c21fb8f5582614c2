package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/combatsim/pkg/core"
)

func TestOutcomeCache_NewOutcomeCache(t *testing.T) {
	cache := NewOutcomeCache()

	require.NotNil(t, cache)
	assert.NotNil(t, cache.Outcomes)
	assert.Equal(t, 0, cache.Len())
}

func TestOutcomeCache_AddAndGet(t *testing.T) {
	cache := NewOutcomeCache()

	winner := 1
	cache.Add(core.Outcome{EngagementID: 42, Name: "hydras", Frames: 310, Winner: &winner})

	got, ok := cache.Get(42)
	require.True(t, ok, "expected to find outcome 42")
	assert.Equal(t, 310, got.Frames)
	require.NotNil(t, got.Winner)
	assert.Equal(t, 1, *got.Winner)
}

func TestOutcomeCache_Get_NotFound(t *testing.T) {
	cache := NewOutcomeCache()

	_, ok := cache.Get(999)
	assert.False(t, ok, "expected not to find outcome 999")
}

func TestOutcomeCache_GetByName_LatestWins(t *testing.T) {
	cache := NewOutcomeCache()

	cache.Add(core.Outcome{EngagementID: 1, Name: "marines", Frames: 10})
	cache.Add(core.Outcome{EngagementID: 2, Name: "marines", Frames: 20})
	cache.Add(core.Outcome{EngagementID: 3, Frames: 30})

	got, ok := cache.GetByName("marines")
	require.True(t, ok)
	assert.Equal(t, uint(2), got.EngagementID)
	assert.Equal(t, 20, got.Frames)

	_, ok = cache.GetByName("")
	assert.False(t, ok, "unnamed outcomes are not indexed")
}

func TestOutcomeCache_All_SortedByID(t *testing.T) {
	cache := NewOutcomeCache()
	for _, id := range []uint{5, 1, 3} {
		cache.Add(core.Outcome{EngagementID: id})
	}

	all := cache.All()
	require.Len(t, all, 3)
	assert.Equal(t, uint(1), all[0].EngagementID)
	assert.Equal(t, uint(3), all[1].EngagementID)
	assert.Equal(t, uint(5), all[2].EngagementID)
}

func TestOutcomeCache_Reset(t *testing.T) {
	cache := NewOutcomeCache()

	cache.Add(core.Outcome{EngagementID: 1, Name: "a"})
	cache.Add(core.Outcome{EngagementID: 2, Name: "b"})
	assert.Equal(t, 2, cache.Len())

	cache.Reset()

	assert.Equal(t, 0, cache.Len())
	_, ok := cache.GetByName("a")
	assert.False(t, ok)

	// Verify we can still add data after reset
	cache.Add(core.Outcome{EngagementID: 3})
	_, ok = cache.Get(3)
	assert.True(t, ok, "expected to find outcome added after reset")
}

func TestOutcomeCache_Concurrent(t *testing.T) {
	cache := NewOutcomeCache()
	var wg sync.WaitGroup

	for i := uint(0); i < 100; i++ {
		wg.Add(2)
		go func(id uint) {
			defer wg.Done()
			cache.Add(core.Outcome{EngagementID: id, Name: fmt.Sprintf("e%d", id)})
		}(i)
		go func(id uint) {
			defer wg.Done()
			cache.Get(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, cache.Len())
}

func TestNameIndex_SetGetDelete(t *testing.T) {
	idx := NewNameIndex()

	idx.Set("zealots", 7)
	id, ok := idx.Get("zealots")
	require.True(t, ok)
	assert.Equal(t, uint(7), id)

	idx.Delete("zealots")
	_, ok = idx.Get("zealots")
	assert.False(t, ok)

	// Delete non-existent should not panic
	idx.Delete("nonexistent")
}

// SafeCounter tests

func TestSafeCounter_InitialValue(t *testing.T) {
	c := &SafeCounter{}
	assert.Equal(t, int(0), c.Value())
}

func TestSafeCounter_Set(t *testing.T) {
	c := &SafeCounter{}

	c.Set(42)
	assert.Equal(t, int(42), c.Value())

	c.Set(0)
	assert.Equal(t, int(0), c.Value())
}

func TestSafeCounter_IncDec(t *testing.T) {
	c := &SafeCounter{}

	c.Inc()
	c.Inc()
	c.Inc()
	assert.Equal(t, int(3), c.Value())

	c.Dec()
	assert.Equal(t, int(2), c.Value())
}

func TestSafeCounter_Concurrent(t *testing.T) {
	c := &SafeCounter{}
	var wg sync.WaitGroup

	for i := 0; i < 1000; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
		go func() {
			defer wg.Done()
			c.Dec()
		}()
	}
	wg.Wait()

	assert.Equal(t, int(0), c.Value())
}
