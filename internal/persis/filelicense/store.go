package filelicense

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"

	"github.com/dagucloud/licensor/internal/cmn/fileutil"
	"github.com/dagucloud/licensor/internal/license"
)

const (
	licenseFile = "license"
	dirPerm     = 0700
	filePerm    = 0600

	cacheCapacity = 64
	cacheTTL      = 10 * time.Minute

	lockRetryDelay = 50 * time.Millisecond
)

// Store implements license.FileBackend. Licenses are kept in
// <baseDir>/<store>/<product>_<variant>_<version>/license unless a path was
// set for the product.
type Store struct {
	baseDir string
	cache   *fileutil.Cache[string]

	mu        sync.RWMutex
	overrides map[license.ProductIdentity]string
}

var _ license.FileBackend = (*Store)(nil)

// New creates a file license store rooted at baseDir. An empty baseDir
// selects the user data directory.
func New(baseDir string) *Store {
	if baseDir == "" {
		baseDir = xdg.DataHome
	}
	return &Store{
		baseDir:   baseDir,
		cache:     fileutil.NewCache[string]("license", cacheCapacity, cacheTTL),
		overrides: make(map[license.ProductIdentity]string),
	}
}

// Kind implements license.Backend.
func (s *Store) Kind() license.BackendKind { return license.BackendFile }

// Path implements license.FileBackend.
func (s *Store) Path(id license.ProductIdentity) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.overrides[id]; ok {
		return p
	}
	return filepath.Join(s.baseDir, id.StoreDir(), id.StorageKey(), licenseFile)
}

// SetPath implements license.FileBackend. The path is accepted when an
// existing file there can be opened for writing, or when its directory can be
// created and written to.
func (s *Store) SetPath(id license.ProductIdentity, path string) error {
	path = filepath.Clean(path)
	if err := probe(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[id] = path
	return nil
}

func probe(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return fmt.Errorf("license path %s is a directory", path)
	case err == nil:
		f, err := os.OpenFile(path, os.O_RDWR, 0) //nolint:gosec // path is supplied by the operator
		if err != nil {
			return fmt.Errorf("license file %s is not writable: %w", path, err)
		}
		return f.Close()
	case errors.Is(err, fs.ErrNotExist):
		if err := fileutil.CheckWritableDir(filepath.Dir(path), dirPerm); err != nil {
			return fmt.Errorf("license directory for %s is not usable: %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("failed to check license path %s: %w", path, err)
	}
}

// Load implements license.Backend.
func (s *Store) Load(_ context.Context, id license.ProductIdentity) (string, error) {
	path := s.Path(id)
	encoded, err := s.cache.LoadLatest(path, func() (string, error) {
		data, err := os.ReadFile(path) //nolint:gosec // path is derived from the data dir or set by the operator
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return "", license.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read license file: %w", err)
	}
	if encoded == "" {
		return "", license.ErrNotFound
	}
	return encoded, nil
}

// Save implements license.Backend.
func (s *Store) Save(ctx context.Context, id license.ProductIdentity, encoded string) error {
	path := s.Path(id)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("failed to create license directory: %w", err)
	}
	unlock, err := lockFile(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	err = fileutil.WriteFileAtomic(path, []byte(strings.TrimSpace(encoded)+"\n"), filePerm)
	s.cache.Invalidate(path)
	if err != nil {
		return fmt.Errorf("failed to write license file: %w", err)
	}
	return nil
}

// Delete implements license.Backend.
func (s *Store) Delete(ctx context.Context, id license.ProductIdentity) error {
	path := s.Path(id)
	s.cache.Invalidate(path)
	if _, err := os.Stat(filepath.Dir(path)); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	unlock, err := lockFile(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove license file: %w", err)
	}
	return nil
}

// lockFile takes the inter-process lock guarding writes to path. Another
// process running the same product may be writing the file concurrently.
func lockFile(ctx context.Context, path string) (func(), error) {
	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock license file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock license file %s", path)
	}
	return func() { _ = fl.Unlock() }, nil
}
