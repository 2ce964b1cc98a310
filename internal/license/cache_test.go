package license

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCacheStore is an in-memory CacheStore that counts writes.
type memCacheStore struct {
	mu     sync.Mutex
	data   map[string]CachedResult
	writes int
}

func newMemCacheStore() *memCacheStore {
	return &memCacheStore{data: map[string]CachedResult{}}
}

func (s *memCacheStore) Load(key string) (*CachedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *memCacheStore) Save(key string, r *CachedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.data[key] = *r
	return nil
}

func (s *memCacheStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	delete(s.data, key)
	return nil
}

func TestValidationCache_Sync(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ttl := time.Hour

	t.Run("fresh cache needs a sync", func(t *testing.T) {
		t.Parallel()

		c := NewValidationCache(nil, nil)
		assert.True(t, c.NeedsSync(testIdentity, now, ttl))
		assert.True(t, c.Get(testIdentity).IsZero())
	})

	t.Run("only one sync can be in flight", func(t *testing.T) {
		t.Parallel()

		c := NewValidationCache(nil, nil)
		_, ok := c.TryBeginSync(testIdentity, now, ttl)
		require.True(t, ok)
		_, ok = c.TryBeginSync(testIdentity, now, ttl)
		assert.False(t, ok)

		c.EndSync(testIdentity)
		_, ok = c.TryBeginSync(testIdentity, now, ttl)
		assert.True(t, ok)
	})

	t.Run("recorded sync is trusted until the TTL elapses", func(t *testing.T) {
		t.Parallel()

		c := NewValidationCache(nil, nil)
		gen, ok := c.TryBeginSync(testIdentity, now, ttl)
		require.True(t, ok)
		require.True(t, c.RecordSync(testIdentity, gen, verdict(ResultValid, ""), now))
		c.EndSync(testIdentity)

		_, ok = c.TryBeginSync(testIdentity, now.Add(ttl), ttl)
		assert.False(t, ok)
		assert.False(t, c.NeedsSync(testIdentity, now.Add(30*time.Minute), ttl))

		_, ok = c.TryBeginSync(testIdentity, now.Add(ttl+time.Second), ttl)
		assert.True(t, ok)
	})

	t.Run("sync time in the future is not trusted", func(t *testing.T) {
		t.Parallel()

		store := newMemCacheStore()
		require.NoError(t, store.Save(testIdentity.NativeKey(), &CachedResult{
			Verdict:        ResultValid,
			VerdictAt:      now,
			LastRemoteSync: now.AddDate(5, 0, 0),
		}))
		c := NewValidationCache(store, nil)

		assert.True(t, c.NeedsSync(testIdentity, now, ttl))
		_, ok := c.TryBeginSync(testIdentity, now.Add(72*time.Hour), ttl)
		assert.True(t, ok)
	})

	t.Run("reset discards the result of a sync in flight", func(t *testing.T) {
		t.Parallel()

		c := NewValidationCache(nil, nil)
		gen, ok := c.TryBeginSync(testIdentity, now, ttl)
		require.True(t, ok)

		c.Reset(testIdentity, verdict(ResultValid, ""), now, now)

		assert.False(t, c.Current(testIdentity, gen))
		assert.False(t, c.RecordSync(testIdentity, gen, verdict(ResultDisabled, ""), now.Add(time.Minute)))
		assert.Equal(t, ResultValid, c.Get(testIdentity).Verdict)
	})

	t.Run("invalidate forces a new sync", func(t *testing.T) {
		t.Parallel()

		c := NewValidationCache(nil, nil)
		c.Reset(testIdentity, verdict(ResultValid, ""), now, now)
		require.False(t, c.NeedsSync(testIdentity, now, ttl))

		c.Invalidate(testIdentity)

		assert.True(t, c.NeedsSync(testIdentity, now, ttl))
		assert.True(t, c.Get(testIdentity).IsZero())
	})
}

func TestValidationCache_RecordOffline(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("keeps the last remote sync time", func(t *testing.T) {
		t.Parallel()

		c := NewValidationCache(nil, nil)
		c.Reset(testIdentity, verdict(ResultValid, ""), now, now)
		c.RecordOffline(testIdentity, verdict(ResultExpired, "expired"), now.Add(time.Hour))

		got := c.Get(testIdentity)
		assert.Equal(t, ResultExpired, got.Verdict)
		assert.Equal(t, "expired", got.Detail)
		assert.Equal(t, now, got.LastRemoteSync)
		assert.Equal(t, now.Add(time.Hour), got.VerdictAt)
	})

	t.Run("unchanged verdicts are not persisted again", func(t *testing.T) {
		t.Parallel()

		store := newMemCacheStore()
		c := NewValidationCache(store, nil)
		c.RecordOffline(testIdentity, verdict(ResultValid, ""), now)
		c.RecordOffline(testIdentity, verdict(ResultValid, ""), now.Add(time.Minute))
		c.RecordOffline(testIdentity, verdict(ResultValid, ""), now.Add(2*time.Minute))

		assert.Equal(t, 1, store.writes)
	})
}

func TestValidationCache_Persistence(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newMemCacheStore()

	first := NewValidationCache(store, nil)
	gen, ok := first.TryBeginSync(testIdentity, now, time.Hour)
	require.True(t, ok)
	require.True(t, first.RecordSync(testIdentity, gen, verdict(ResultValid, ""), now))

	second := NewValidationCache(store, nil)
	got := second.Get(testIdentity)
	assert.Equal(t, ResultValid, got.Verdict)
	assert.True(t, now.Equal(got.LastRemoteSync))
	assert.False(t, second.NeedsSync(testIdentity, now.Add(time.Minute), time.Hour))

	second.Invalidate(testIdentity)
	stored, err := store.Load(testIdentity.NativeKey())
	require.NoError(t, err)
	assert.Nil(t, stored)
}
