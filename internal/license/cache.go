package license

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dagucloud/licensor/internal/cmn/logger/tag"
)

// DefaultSyncTTL is how long a remote validation result is trusted before
// the next validation reconciles with the server again.
const DefaultSyncTTL = 6 * time.Hour

// CachedResult is the last known validation state of a product.
type CachedResult struct {
	Verdict        Result    `json:"verdict"`
	Detail         string    `json:"detail,omitempty"`
	VerdictAt      time.Time `json:"verdictAt"`
	LastRemoteSync time.Time `json:"lastRemoteSync"`
}

// IsZero reports whether nothing has been recorded.
func (r CachedResult) IsZero() bool {
	return r.VerdictAt.IsZero() && r.LastRemoteSync.IsZero()
}

// CacheStore persists cached results across processes.
type CacheStore interface {
	// Load returns nil, nil when nothing is stored under key.
	Load(key string) (*CachedResult, error)
	Save(key string, result *CachedResult) error
	Remove(key string) error
}

type cacheEntry struct {
	result     CachedResult
	generation uint64
	syncing    bool
}

// ValidationCache tracks the last verdict and remote sync time per product
// and coalesces remote syncs. All updates are applied under one lock, so a
// sync result is never partially visible.
type ValidationCache struct {
	mu      sync.Mutex
	entries map[ProductIdentity]*cacheEntry
	store   CacheStore
	logger  *slog.Logger
}

// NewValidationCache creates a cache. store may be nil.
func NewValidationCache(store CacheStore, logger *slog.Logger) *ValidationCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidationCache{
		entries: make(map[ProductIdentity]*cacheEntry),
		store:   store,
		logger:  logger,
	}
}

// entry must be called with c.mu held.
func (c *ValidationCache) entry(id ProductIdentity) *cacheEntry {
	if e, ok := c.entries[id]; ok {
		return e
	}
	e := &cacheEntry{}
	if c.store != nil {
		stored, err := c.store.Load(id.NativeKey())
		if err != nil {
			c.logger.Warn("Failed to load cached validation result", tag.Product(id.String()), tag.Error(err))
		} else if stored != nil {
			e.result = *stored
		}
	}
	c.entries[id] = e
	return e
}

// persist must be called with c.mu held.
func (c *ValidationCache) persist(id ProductIdentity, e *cacheEntry) {
	if c.store == nil {
		return
	}
	var err error
	if e.result.IsZero() {
		err = c.store.Remove(id.NativeKey())
	} else {
		result := e.result
		err = c.store.Save(id.NativeKey(), &result)
	}
	if err != nil {
		c.logger.Warn("Failed to persist validation result", tag.Product(id.String()), tag.Error(err))
	}
}

// Get returns a snapshot of the cached result.
func (c *ValidationCache) Get(id ProductIdentity) CachedResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry(id).result
}

// NeedsSync reports whether the last successful remote sync is older than
// ttl. A sync time in the future, left by a clock rollback, is never trusted.
func (c *ValidationCache) NeedsSync(id ProductIdentity, now time.Time, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return syncDue(c.entry(id).result.LastRemoteSync, now, ttl)
}

func syncDue(last, now time.Time, ttl time.Duration) bool {
	return last.IsZero() || last.After(now) || now.Sub(last) > ttl
}

// TryBeginSync marks a sync as in flight when the last remote sync is older
// than ttl and no sync is running. The returned generation must be passed to
// RecordSync.
func (c *ValidationCache) TryBeginSync(id ProductIdentity, now time.Time, ttl time.Duration) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(id)
	if e.syncing {
		return 0, false
	}
	if !syncDue(e.result.LastRemoteSync, now, ttl) {
		return 0, false
	}
	e.syncing = true
	return e.generation, true
}

// EndSync clears the in-flight flag.
func (c *ValidationCache) EndSync(id ProductIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(id).syncing = false
}

// Current reports whether no reset happened since generation was issued.
func (c *ValidationCache) Current(id ProductIdentity, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry(id).generation == generation
}

// RecordOffline stores an offline verdict without touching the sync time.
func (c *ValidationCache) RecordOffline(id ProductIdentity, v Verdict, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(id)
	changed := e.result.Verdict != v.Result || e.result.VerdictAt.IsZero()
	e.result.Verdict = v.Result
	e.result.Detail = v.Detail
	e.result.VerdictAt = now
	if changed {
		c.persist(id, e)
	}
}

// RecordSync stores a server verdict and marks now as the last remote sync.
// It returns false, recording nothing, when the cache was reset after the
// sync began.
func (c *ValidationCache) RecordSync(id ProductIdentity, generation uint64, v Verdict, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(id)
	if e.generation != generation {
		return false
	}
	e.result = CachedResult{
		Verdict:        v.Result,
		Detail:         v.Detail,
		VerdictAt:      now,
		LastRemoteSync: now,
	}
	c.persist(id, e)
	return true
}

// Reset replaces the cached result and discards results of in-flight syncs.
func (c *ValidationCache) Reset(id ProductIdentity, v Verdict, now, lastSync time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(id)
	e.generation++
	e.result = CachedResult{
		Verdict:        v.Result,
		Detail:         v.Detail,
		VerdictAt:      now,
		LastRemoteSync: lastSync,
	}
	c.persist(id, e)
}

// Invalidate forgets the cached result so that the next validation syncs.
func (c *ValidationCache) Invalidate(id ProductIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(id)
	e.generation++
	e.result = CachedResult{}
	c.persist(id, e)
}
