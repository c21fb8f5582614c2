package cache

import "sync"

// NameIndex maps engagement names to the id of their most recent run
type NameIndex struct {
	mu    sync.RWMutex
	names map[string]uint
}

// NewNameIndex creates a new NameIndex
func NewNameIndex() *NameIndex {
	return &NameIndex{
		names: make(map[string]uint),
	}
}

// Get retrieves an engagement ID by name
func (c *NameIndex) Get(name string) (uint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.names[name]
	return id, ok
}

// Set stores an engagement ID by name
func (c *NameIndex) Set(name string, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[name] = id
}

// Delete removes a name
func (c *NameIndex) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.names, name)
}

// Reset clears all names from the index
func (c *NameIndex) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = make(map[string]uint)
}
