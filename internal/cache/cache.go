// Package cache holds verified articles keyed by URL, with pluggable
// persistence.
package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-verify/internal/model"
)

// ErrNotVerified is returned by Put for articles below the verified threshold.
var ErrNotVerified = eris.New("cache: article is not verified")

// PersistError reports that the in-memory state changed but could not be
// written to the backing store.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string { return "cache: persist: " + e.Err.Error() }
func (e *PersistError) Unwrap() error { return e.Err }

// Persister loads and saves the full set of cached articles.
type Persister interface {
	Load(ctx context.Context) ([]model.Article, error)
	Save(ctx context.Context, articles []model.Article) error
}

// Cache is an in-memory URL → Article map. Reads never touch the
// persister; every mutation saves a snapshot.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]model.Article

	// persistMu orders snapshots so an older one never overwrites a newer one.
	persistMu sync.Mutex
	persister Persister
}

// New creates an empty Cache. A nil persister keeps the cache in memory only.
func New(p Persister) *Cache {
	if p == nil {
		p = MemoryPersister{}
	}
	return &Cache{
		entries:   make(map[string]model.Article),
		persister: p,
	}
}

// Load replaces the in-memory state with the persisted one. Stored entries
// that are not verified are skipped.
func (c *Cache) Load(ctx context.Context) error {
	articles, err := c.persister.Load(ctx)
	if err != nil {
		return eris.Wrap(err, "cache: load")
	}

	entries := make(map[string]model.Article, len(articles))
	for _, a := range articles {
		if a.URL == "" || !a.IsVerified() {
			zap.L().Warn("cache: skipping invalid persisted entry",
				zap.String("url", a.URL),
				zap.Float64("credibility_score", a.CredibilityScore),
			)
			continue
		}
		entries[a.URL] = a
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// Contains reports whether url is cached.
func (c *Cache) Contains(url string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[url]
	return ok
}

// Get returns the cached article for url.
func (c *Cache) Get(url string) (model.Article, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.entries[url]
	return a, ok
}

// Len returns the number of cached articles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// All returns every cached article ordered by URL.
func (c *Cache) All() []model.Article {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Put stores a verified article, replacing any entry for the same URL.
// A *PersistError means the article is cached in memory but not saved.
func (c *Cache) Put(ctx context.Context, a model.Article) error {
	if !a.IsVerified() {
		return eris.Wrapf(ErrNotVerified, "url %s score %.3f", a.URL, a.CredibilityScore)
	}
	if a.URL == "" {
		return eris.New("cache: article has no url")
	}
	return c.mutate(ctx, func(m map[string]model.Article) {
		m[a.URL] = a
	})
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	return c.mutate(ctx, func(m map[string]model.Article) {
		clear(m)
	})
}

func (c *Cache) mutate(ctx context.Context, fn func(map[string]model.Article)) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	fn(c.entries)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.persister.Save(ctx, snapshot); err != nil {
		return &PersistError{Err: err}
	}
	return nil
}

func (c *Cache) snapshotLocked() []model.Article {
	out := make([]model.Article, 0, len(c.entries))
	for _, a := range c.entries {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// MemoryPersister persists nothing.
type MemoryPersister struct{}

func (MemoryPersister) Load(context.Context) ([]model.Article, error) { return nil, nil }
func (MemoryPersister) Save(context.Context, []model.Article) error   { return nil }
