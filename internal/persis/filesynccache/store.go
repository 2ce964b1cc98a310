package filesynccache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/dagucloud/licensor/internal/cmn/fileutil"
	"github.com/dagucloud/licensor/internal/license"
)

const (
	syncCacheDirName = "sync-cache"
	fileExt          = ".json"
	dirPerm          = 0700
	filePerm         = 0600
)

var _ license.CacheStore = (*Store)(nil)

// Store persists validation results so that a fresh process does not contact
// the license server before the sync TTL has elapsed.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates a store below dataDir.
func New(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, errors.New("data directory is required")
	}
	dir := filepath.Join(dataDir, syncCacheDirName)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create sync cache directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+fileExt)
}

// Load returns nil when nothing is cached or the cache file is unreadable.
func (s *Store) Load(key string) (*license.CachedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync cache: %w", err)
	}

	var result license.CachedResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, nil
	}
	return &result, nil
}

// Save writes result atomically.
func (s *Store) Save(key string, result *license.CachedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync cache: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path(key), data, filePerm); err != nil {
		return fmt.Errorf("failed to write sync cache: %w", err)
	}
	return nil
}

// Remove deletes the cached result. Removing a missing entry is not an error.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove sync cache: %w", err)
	}
	return nil
}
