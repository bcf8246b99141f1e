package service

import (
	"sync"

	"github.com/signalsfoundry/emfield/core"
)

// resultCache is an in-memory, thread-safe store of compute results keyed by
// job ID. It keeps at most capacity entries, evicting the oldest job, and
// remembers the most recent job so queries can omit the ID.
type resultCache struct {
	mu sync.RWMutex

	capacity int
	results  map[string]*core.Result
	order    []string
	lastID   string
}

func newResultCache(capacity int) *resultCache {
	if capacity < 1 {
		capacity = 1
	}
	return &resultCache{
		capacity: capacity,
		results:  make(map[string]*core.Result, capacity),
	}
}

// Put stores a result under jobID and marks it the most recent.
func (c *resultCache) Put(jobID string, res *core.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.results[jobID]; !exists {
		c.order = append(c.order, jobID)
		for len(c.order) > c.capacity {
			evict := c.order[0]
			c.order = c.order[1:]
			delete(c.results, evict)
		}
	}
	c.results[jobID] = res
	c.lastID = jobID
}

// Get returns the result for jobID. An empty jobID resolves to the most
// recent job.
func (c *resultCache) Get(jobID string) (*core.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if jobID == "" {
		jobID = c.lastID
	}
	res, ok := c.results[jobID]
	return res, ok
}

// Len returns the number of cached results.
func (c *resultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}
