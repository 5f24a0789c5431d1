// Package cache keeps per-URL source summaries so repeated research runs skip
// extraction and summarization for pages already processed.
//
// The cache is write-through: Set and Clear persist the full contents to the
// backing Store before returning, and roll the in-memory state back if the
// write fails.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/DeafMist/deep-research/internal/logger"
	"github.com/DeafMist/deep-research/internal/metrics"
)

// Store persists the whole cache as one unit.
type Store interface {
	Load() (map[string]Entry, error)
	Save(entries map[string]Entry) error
}

// Cache maps source URLs to their summaries. URLs are used verbatim as keys.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	store   Store
	log     *slog.Logger
	now     func() time.Time
}

// Open loads prior state from store. An unreadable or corrupt store is logged,
// counted, and replaced by an empty cache rather than returned as an error.
func Open(store Store, log *slog.Logger, m *metrics.Metrics) *Cache {
	log = logger.OrDiscard(log)
	entries, err := store.Load()
	if err != nil {
		log.Warn("cache load failed, starting empty", slog.Any("err", err))
		m.CacheLoadFailure()
		entries = nil
	}
	if entries == nil {
		entries = make(map[string]Entry)
	}
	log.Info("cache loaded", slog.Int("entries", len(entries)))
	return &Cache{entries: entries, store: store, log: log, now: time.Now}
}

// Exists reports whether url has an entry.
func (c *Cache) Exists(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[url]
	return ok
}

// Get returns the entry for url. Reads never change the entry.
func (c *Cache) Get(url string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	if !ok {
		return Entry{}, false
	}
	return cloneEntry(e), true
}

// Set inserts or overwrites the entry for url, stamps it with the current time
// and persists the cache.
func (c *Cache) Set(url string, summary []string, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, existed := c.entries[url]
	c.entries[url] = Entry{
		Title:    title,
		Summary:  append([]string{}, summary...),
		CachedAt: Timestamp{Time: c.now()},
	}

	if err := c.store.Save(c.entries); err != nil {
		if existed {
			c.entries[url] = prev
		} else {
			delete(c.entries, url)
		}
		return err
	}
	return nil
}

// Clear drops every entry and persists the empty cache.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	empty := make(map[string]Entry)
	if err := c.store.Save(empty); err != nil {
		return err
	}
	c.entries = empty
	return nil
}

// Len returns the number of cached URLs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Snapshot returns a copy of every entry.
func (c *Cache) Snapshot() map[string]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Entry, len(c.entries))
	for url, e := range c.entries {
		out[url] = cloneEntry(e)
	}
	return out
}
