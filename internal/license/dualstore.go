package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dagucloud/licensor/internal/cmn/logger/tag"
)

type fileMode int

const (
	// fileFallback writes the file when the native store fails and keeps an
	// existing file copy current.
	fileFallback fileMode = iota
	// fileMirror keeps a file copy of every saved license.
	fileMirror
	// fileDisabled never touches the file backend.
	fileDisabled
)

// DualStore stores licenses in the OS native store and falls back to a file
// when the native store is unavailable. Access is serialized per identity.
type DualStore struct {
	native Backend
	file   FileBackend
	logger *slog.Logger

	locks sync.Map // map[ProductIdentity]*sync.Mutex

	mu    sync.RWMutex
	modes map[ProductIdentity]fileMode
}

var _ LicenseStore = (*DualStore)(nil)

// NewDualStore composes the given backends. Either may be nil.
func NewDualStore(native Backend, file FileBackend, logger *slog.Logger) *DualStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DualStore{
		native: native,
		file:   file,
		logger: logger,
		modes:  make(map[ProductIdentity]fileMode),
	}
}

func (s *DualStore) lock(id ProductIdentity) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *DualStore) mode(id ProductIdentity) fileMode {
	if s.file == nil {
		return fileDisabled
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modes[id]
}

// Load implements LicenseStore.
func (s *DualStore) Load(ctx context.Context, id ProductIdentity) (string, error) {
	defer s.lock(id)()

	nativeErr := ErrUnavailable
	if s.native != nil {
		encoded, err := s.native.Load(ctx, id)
		if err == nil {
			return encoded, nil
		}
		nativeErr = err
		if !errors.Is(err, ErrNotFound) {
			s.logger.Debug("Native license store unavailable", tag.Product(id.String()), tag.Error(err))
		}
	}

	if s.mode(id) == fileDisabled {
		if errors.Is(nativeErr, ErrUnavailable) {
			return "", ErrNotFound
		}
		return "", nativeErr
	}

	encoded, err := s.file.Load(ctx, id)
	if err != nil {
		return "", err
	}
	return encoded, nil
}

// Save implements LicenseStore.
func (s *DualStore) Save(ctx context.Context, id ProductIdentity, encoded string) error {
	defer s.lock(id)()

	mode := s.mode(id)

	nativeErr := ErrUnavailable
	if s.native != nil {
		nativeErr = s.native.Save(ctx, id, encoded)
	}
	if nativeErr == nil {
		if s.needsFileCopy(ctx, id, mode) {
			if err := s.file.Save(ctx, id, encoded); err != nil {
				s.logger.Warn("Failed to keep license file copy in sync",
					tag.Product(id.String()),
					tag.Path(s.file.Path(id)),
					tag.Error(err),
				)
			}
		}
		return nil
	}

	if mode == fileDisabled {
		return fmt.Errorf("failed to save license: %w", nativeErr)
	}
	if err := s.file.Save(ctx, id, encoded); err != nil {
		return fmt.Errorf("failed to save license: %w", errors.Join(nativeErr, err))
	}
	s.logger.Debug("License saved to file store",
		tag.Product(id.String()),
		tag.Backend(BackendFile.String()),
		tag.Path(s.file.Path(id)),
		tag.Reason(nativeErr.Error()),
	)
	return nil
}

// needsFileCopy reports whether a license saved to the native store must also
// be written to the file. In fallback mode only an existing copy is updated,
// since a stale one would be loaded whenever the native store is unavailable.
func (s *DualStore) needsFileCopy(ctx context.Context, id ProductIdentity, mode fileMode) bool {
	switch mode {
	case fileMirror:
		return true
	case fileFallback:
		_, err := s.file.Load(ctx, id)
		return !errors.Is(err, ErrNotFound)
	default:
		return false
	}
}

// Delete implements LicenseStore. It removes the license from both backends.
func (s *DualStore) Delete(ctx context.Context, id ProductIdentity) error {
	defer s.lock(id)()

	var errs []error
	if s.native != nil {
		if err := s.native.Delete(ctx, id); err != nil && !ignorable(err) {
			errs = append(errs, err)
		}
	}
	if s.file != nil {
		if err := s.file.Delete(ctx, id); err != nil && !ignorable(err) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to delete license: %w", errors.Join(errs...))
	}
	return nil
}

func ignorable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable)
}

// FilePath returns the license file path for id, or an empty string when
// file usage is disabled.
func (s *DualStore) FilePath(id ProductIdentity) string {
	if s.mode(id) == fileDisabled {
		return ""
	}
	return s.file.Path(id)
}

// SetFilePath points the file backend for id at path and keeps a file copy
// of every saved license there. An empty path disables file usage. It returns
// false, leaving the configuration unchanged, when path cannot be used.
func (s *DualStore) SetFilePath(id ProductIdentity, path string) bool {
	if s.file == nil {
		return false
	}
	defer s.lock(id)()

	if path == "" {
		s.setMode(id, fileDisabled)
		return true
	}
	if err := s.file.SetPath(id, path); err != nil {
		s.logger.Warn("License file path rejected", tag.Path(path), tag.Error(err))
		return false
	}
	s.setMode(id, fileMirror)
	return true
}

func (s *DualStore) setMode(id ProductIdentity, mode fileMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[id] = mode
}
