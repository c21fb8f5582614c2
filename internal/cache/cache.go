package cache

import (
	"sort"
	"sync"

	"github.com/OCAP2/combatsim/pkg/core"
)

// OutcomeCache keeps finished engagement outcomes so repeated queries from the
// dispatcher or the monitor don't hit the storage backend.
type OutcomeCache struct {
	m        sync.Mutex
	Outcomes map[uint]core.Outcome
	names    *NameIndex
}

func NewOutcomeCache() *OutcomeCache {
	return &OutcomeCache{
		m:        sync.Mutex{},
		Outcomes: make(map[uint]core.Outcome),
		names:    NewNameIndex(),
	}
}

func (c *OutcomeCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Outcomes = make(map[uint]core.Outcome)
	c.names.Reset()
}

func (c *OutcomeCache) Add(o core.Outcome) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Outcomes[o.EngagementID] = o
	if o.Name != "" {
		c.names.Set(o.Name, o.EngagementID)
	}
}

func (c *OutcomeCache) Get(id uint) (core.Outcome, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if o, ok := c.Outcomes[id]; ok {
		return o, true
	}
	return core.Outcome{}, false
}

// GetByName returns the latest outcome recorded under an engagement name.
func (c *OutcomeCache) GetByName(name string) (core.Outcome, bool) {
	id, ok := c.names.Get(name)
	if !ok {
		return core.Outcome{}, false
	}
	return c.Get(id)
}

func (c *OutcomeCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Outcomes)
}

// All returns the cached outcomes ordered by engagement id.
func (c *OutcomeCache) All() []core.Outcome {
	c.m.Lock()
	defer c.m.Unlock()
	out := make([]core.Outcome, 0, len(c.Outcomes))
	for _, o := range c.Outcomes {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EngagementID < out[j].EngagementID })
	return out
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}

func (c *SafeCounter) Dec() {
	c.mu.Lock()
	c.v--
	c.mu.Unlock()
}
