package cache

import (
	"sync"
	"sync/atomic"

	"github.com/born-ml/elwise/internal/device"
	"github.com/born-ml/elwise/internal/emit"
	"github.com/born-ml/elwise/internal/plan"
)

// Generated is one fully specialized kernel: the traversal plan (nil on the
// fast path), the emitted source, the launch convention, and the compiled
// entry point. Entries are immutable once published.
type Generated struct {
	Plan       *plan.Plan
	Source     string
	Convention emit.Convention
	Launch     device.Launchable
}

type entry struct {
	once sync.Once
	done atomic.Bool
	gen  *Generated
	err  error
}

// Cache memoizes Generated kernels by signature key. It is an explicit
// service rather than hidden static state so tests can reset it and
// concurrent access is easy to reason about: the per-entry once guarantees
// at most one plan/emit/compile per key even under races; losers block on
// the winner's build and share its result.
//
// Entries live until process exit; there is no eviction. A failed build is
// also retained: generated source is deterministic, so retrying a
// compilation failure cannot succeed.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// GetOrCreate returns the Generated kernel for key, invoking build at most
// once per key for the cache's lifetime.
func (c *Cache) GetOrCreate(key string, build func() (*Generated, error)) (*Generated, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.gen, e.err = build()
		e.done.Store(true)
	})
	return e.gen, e.err
}

// Lookup returns the Generated kernel for key if a completed build exists.
// Readers observe either "not yet present" or a fully formed entry.
func (c *Cache) Lookup(key string) (*Generated, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok || !e.done.Load() || e.gen == nil {
		return nil, false
	}
	return e.gen, true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset discards all entries.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

var defaultCache = New()

// Default returns the process-wide cache used when a kernel is not given an
// explicit one.
func Default() *Cache {
	return defaultCache
}
