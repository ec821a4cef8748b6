// Package cache is an in-memory, TTL-checked cache for render responses.
// Rendering is expensive (a browser session or a worker process per call),
// so repeat requests for the same url+options within the caller's maxAge
// window are served from memory.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/renderbridge/models"
)

// entry holds a cached response with its creation timestamp.
type entry struct {
	response  *models.RenderAPIResponse
	createdAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
}

// New creates a Cache with the given maximum number of entries. A
// background goroutine evicts entries older than 1 hour every 5 minutes.
func New(maxEntries int) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
	}
	go c.cleanupLoop()
	return c
}

// Key generates a cache key from the URL, render options, and output
// format. Options are part of the key: the same URL rendered with a
// different script or selector is a different result.
func Key(url string, opts *models.RenderOptions, outputFormat string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte{'|'})
	if opts != nil {
		h.Write([]byte(opts.WaitFor))
		h.Write([]byte{'|'})
		h.Write([]byte(opts.Selector))
		h.Write([]byte{'|'})
		h.Write([]byte(opts.Script))
		h.Write([]byte{'|'})
	}
	h.Write([]byte(outputFormat))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached response if it exists and is younger than maxAgeMs
// milliseconds. maxAgeMs <= 0 disables the lookup.
func (c *Cache) Get(key string, maxAgeMs int) (*models.RenderAPIResponse, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if time.Since(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return nil, false
	}

	// Return a copy so callers can mutate timing/cache fields freely.
	resp := *e.response
	return &resp, true
}

// Set stores a response. When the cache is full, one arbitrary entry is
// evicted; real pressure is handled by the TTL sweep.
func (c *Cache) Set(key string, resp *models.RenderAPIResponse) {
	stored := *resp

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{response: &stored, createdAt: time.Now()}
}

// Len returns the current number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
