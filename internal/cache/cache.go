// Package cache provides the in-memory compilation cache for parse outcomes.
//
// The cache solves two problems for the orchestrator:
//
//  1. It remembers the last successful parse outcome per file, keyed by the
//     exact source text that produced it. Content matching is deliberately
//     byte-exact — no hashing or normalization — so a lenient cache key can
//     never mask a re-parse bug. A one-character difference is a miss.
//  2. It registers in-flight compile jobs so concurrent requests for the
//     same file coalesce onto one backend invocation instead of racing.
//
// Both maps are plain mutex-guarded map operations; no call here blocks on
// anything but the lock.
package cache

import (
	"sync"

	"github.com/groovy-tools/gls/internal/parse"
	"github.com/groovy-tools/gls/internal/source"
)

// Job is an in-flight compile registered with the cache. The concrete type
// lives in the compile package; the cache only needs identity and the
// completion signal.
type Job interface {
	Done() <-chan struct{}
}

// Statistics is a point-in-time snapshot of cache occupancy.
type Statistics struct {
	CachedResults      int `json:"cached_results"`
	ActiveCompilations int `json:"active_compilations"`
}

// CompilationCache stores parse outcomes and tracks active compile jobs.
// Safe for concurrent use.
type CompilationCache struct {
	mu      sync.RWMutex
	results map[source.Key]*Entry
	jobs    map[source.Key]Job
}

// New creates an empty compilation cache.
func New() *CompilationCache {
	return &CompilationCache{
		results: make(map[source.Key]*Entry),
		jobs:    make(map[source.Key]Job),
	}
}

// Lookup returns the cached outcome for key only when content matches the
// stored text exactly. Returns nil on miss.
func (c *CompilationCache) Lookup(key source.Key, content string) *parse.Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.results[key]
	if !ok || entry.Content != content {
		return nil
	}

	return entry.Outcome
}

// LookupAny returns whatever outcome is cached for key, ignoring content.
// Used for "whatever we have" reads where staleness is acceptable.
func (c *CompilationCache) LookupAny(key source.Key) *parse.Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if entry, ok := c.results[key]; ok {
		return entry.Outcome
	}

	return nil
}

// LookupEntry returns the cached content and outcome together so callers
// never observe an inconsistent pair.
func (c *CompilationCache) LookupEntry(key source.Key) (string, *parse.Outcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.results[key]
	if !ok {
		return "", nil, false
	}

	return entry.Content, entry.Outcome, true
}

// Store replaces any existing entry for key unconditionally.
func (c *CompilationCache) Store(key source.Key, content string, outcome *parse.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results[key] = &Entry{Key: key, Content: content, Outcome: outcome}
}

// Invalidate removes both the cached result and any active job for key.
func (c *CompilationCache) Invalidate(key source.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.results, key)
	delete(c.jobs, key)
}

// Clear removes all cached results and all active jobs.
func (c *CompilationCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results = make(map[source.Key]*Entry)
	c.jobs = make(map[source.Key]Job)
}

// TrackJob registers job as the active compilation for key, replacing any
// previous registration.
func (c *CompilationCache) TrackJob(key source.Key, job Job) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.jobs[key] = job
}

// ActiveJob returns the in-flight job for key, or nil.
func (c *CompilationCache) ActiveJob(key source.Key) Job {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.jobs[key]
}

// UntrackJob removes the active-job registration for key, but only while it
// still belongs to job. A job that was displaced by an Invalidate finishes
// later and must not remove its successor's registration. Called from the
// job's guaranteed cleanup on every exit path.
func (c *CompilationCache) UntrackJob(key source.Key, job Job) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.jobs[key] == job {
		delete(c.jobs, key)
	}
}

// Stats returns cache statistics.
func (c *CompilationCache) Stats() Statistics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Statistics{
		CachedResults:      len(c.results),
		ActiveCompilations: len(c.jobs),
	}
}

// Keys returns a snapshot of all keys with cached results.
func (c *CompilationCache) Keys() []source.Key {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]source.Key, 0, len(c.results))
	for key := range c.results {
		keys = append(keys, key)
	}

	return keys
}
