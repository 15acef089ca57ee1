package recovery

import "sync"

// memoryCache holds full file content keyed by session record ID. It is the
// cheapest recovery tier; an entry is consumed by its first use so stale
// content never outlives a run.
type memoryCache struct {
	mu      sync.Mutex
	content map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{content: make(map[string]string)}
}

func (c *memoryCache) put(recordID, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content[recordID] = content
}

// take returns and removes the cached content for a record.
func (c *memoryCache) take(recordID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	content, ok := c.content[recordID]
	if ok {
		delete(c.content, recordID)
	}
	return content, ok
}

func (c *memoryCache) drop(recordID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.content, recordID)
}
