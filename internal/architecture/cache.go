package architecture

import (
	"sync"
	"time"
)

// CachedArchitecture represents a cached architecture view
type CachedArchitecture struct {
	View         *View
	GenerationID string
	ComputedAt   time.Time
}

// ArchitectureCache keeps architecture views keyed by Blueprint generation
// id. A Blueprint never changes after generation, so entries never go stale;
// they are only dropped when the engine swaps Blueprints.
type ArchitectureCache struct {
	mu    sync.RWMutex
	cache map[string]*CachedArchitecture
}

// NewArchitectureCache creates a new architecture cache
func NewArchitectureCache() *ArchitectureCache {
	return &ArchitectureCache{
		cache: make(map[string]*CachedArchitecture),
	}
}

// Get retrieves a cached architecture view
func (c *ArchitectureCache) Get(generationID string) (*CachedArchitecture, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, found := c.cache[generationID]
	return cached, found
}

// GetOrCompute returns the cached view for generationID, computing and
// storing it on a miss.
func (c *ArchitectureCache) GetOrCompute(generationID string, compute func() *View) *View {
	if cached, ok := c.Get(generationID); ok {
		return cached.View
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.cache[generationID]; ok {
		return cached.View
	}
	view := compute()
	c.cache[generationID] = &CachedArchitecture{
		View:         view,
		GenerationID: generationID,
		ComputedAt:   time.Now(),
	}
	return view
}

// Clear removes all cached entries
func (c *ArchitectureCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*CachedArchitecture)
}
