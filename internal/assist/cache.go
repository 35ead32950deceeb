package assist

import "sync/atomic"

// ModelCache remembers the last backend model that produced a reply, so the
// next synthesis tries it first instead of walking the preference list from
// the top.
type ModelCache interface {
	// Get returns the cached model name, or "" when nothing is cached.
	Get() string
	// Set records name as the last working model.
	Set(name string)
}

// MemoryModelCache is a process-local ModelCache. Reads and writes are
// lock-free; a briefly stale value only costs one extra backend attempt.
type MemoryModelCache struct {
	v atomic.Value
}

// NewMemoryModelCache returns an empty in-process model cache.
func NewMemoryModelCache() *MemoryModelCache {
	return &MemoryModelCache{}
}

func (c *MemoryModelCache) Get() string {
	if s, ok := c.v.Load().(string); ok {
		return s
	}
	return ""
}

func (c *MemoryModelCache) Set(name string) {
	c.v.Store(name)
}
