package loader

import "sort"

// VirtualPrefix marks cache keys of host-provided modules.
const VirtualPrefix = "*"

// VirtualKey returns the cache key of the virtual module id.
func VirtualKey(id string) string {
	return VirtualPrefix + id
}

// Cache maps canonical ids to modules. A Cache belongs to one environment
// and is not safe for concurrent use; require runs on a single thread.
type Cache struct {
	modules map[string]*Module
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{modules: make(map[string]*Module)}
}

// Get looks up a module by canonical id.
func (c *Cache) Get(id string) (*Module, bool) {
	m, ok := c.modules[id]
	return m, ok
}

// Put inserts m under m.ID, replacing any previous entry.
func (c *Cache) Put(m *Module) {
	c.modules[m.ID] = m
}

// Delete removes id. It is a no-op for unknown ids.
func (c *Cache) Delete(id string) {
	delete(c.modules, id)
}

// Len returns the number of entries, virtual modules included.
func (c *Cache) Len() int {
	return len(c.modules)
}

// Keys returns all cache keys in sorted order.
func (c *Cache) Keys() []string {
	keys := make([]string, 0, len(c.modules))
	for k := range c.modules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PutVirtual registers a host module whose exports are fixed by the host.
// It overwrites an existing virtual module with the same id.
func (c *Cache) PutVirtual(id string, exports any) *Module {
	m := &Module{
		ID:       VirtualKey(id),
		Segments: []string{id},
		State:    Settled,
		binding:  &valueBinding{v: exports},
	}
	c.Put(m)
	return m
}

// GetVirtual looks up a host module by its plain id.
func (c *Cache) GetVirtual(id string) (*Module, bool) {
	return c.Get(VirtualKey(id))
}
