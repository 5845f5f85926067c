package registry

import "sync"

// Result is a memoized lookup outcome: either a taxonomy entry or a
// recorded absence. Absences are cached too, so a slug the registry does
// not know is still asked about only once per run.
type Result struct {
	// Category is the decoded taxonomy entry, nil when Found is false.
	Category *Category

	// Found reports whether the registry knows the slug.
	Found bool
}

// Cache memoizes lookup results by full request URL for the lifetime of
// one run. Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the memoized result for url, and whether one exists.
	Get(url string) (Result, bool)

	// Put records the result for url.
	Put(url string, res Result)
}

// Compile-time interface compliance checks
var _ Cache = NoopCache{}
var _ Cache = (*MemoryCache)(nil)

// NoopCache discards all writes and always misses. Useful for tests that
// want every lookup to hit the server.
type NoopCache struct{}

// Get always returns a cache miss.
func (NoopCache) Get(string) (Result, bool) { return Result{}, false }

// Put discards the result.
func (NoopCache) Put(string, Result) {}

// MemoryCache is a thread-safe in-memory cache. It is the default cache
// for a Client and is also handy in tests.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]Result
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]Result)}
}

// Get retrieves a memoized result.
func (c *MemoryCache) Get(url string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.items[url]
	return res, ok
}

// Put stores a result.
func (c *MemoryCache) Put(url string, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[url] = res
}

// Len returns the number of memoized URLs.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
