package matching

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/profile"
)

type cacheKey struct {
	profileVersion string
	jobKey         string
	jobVersion     string
}

// Cache memoizes results by profile version and posting identity. A changed profile
// or a re-ingested posting with different content yields a new key, so stale results
// are never served.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*Result
	hits    int
	misses  int
}

func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]*Result)}
}

// Score returns a cached result or computes and stores a new one. Callers always
// get their own copy.
func (c *Cache) Score(e *Engine, p *profile.Profile, job *jobs.Posting) (*Result, error) {
	if p == nil || job == nil {
		return e.Score(p, job)
	}

	key := cacheKey{
		profileVersion: p.VersionHash(),
		jobKey:         job.Key(),
		jobVersion:     postingVersion(job),
	}

	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return cached.Clone(), nil
	}

	r, err := e.Score(p, job)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.misses++
	c.entries[key] = r
	c.mu.Unlock()

	return r.Clone(), nil
}

// Stats returns the number of cache hits and misses.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func postingVersion(job *jobs.Posting) string {
	data, err := json.Marshal(job)
	if err != nil {
		data = []byte(fmt.Sprintf("%+v", *job))
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:8])
}
