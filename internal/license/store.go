package license

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by a LicenseStore when no license is stored.
	ErrNotFound = errors.New("license not found")
	// ErrUnavailable is returned by a backend that cannot operate on this host.
	ErrUnavailable = errors.New("license store unavailable")
)

// BackendKind tags the implementation of a license store backend.
type BackendKind int

const (
	BackendNative BackendKind = iota
	BackendFile
)

func (k BackendKind) String() string {
	switch k {
	case BackendNative:
		return "native"
	case BackendFile:
		return "file"
	default:
		return "unknown"
	}
}

// LicenseStore persists one encoded license per product identity.
type LicenseStore interface {
	// Load returns the stored license or ErrNotFound.
	Load(ctx context.Context, id ProductIdentity) (string, error)
	// Save replaces the stored license.
	Save(ctx context.Context, id ProductIdentity, encoded string) error
	// Delete removes the stored license. Deleting a missing license is not an error.
	Delete(ctx context.Context, id ProductIdentity) error
}

// Backend is a LicenseStore that reports its kind.
type Backend interface {
	LicenseStore
	Kind() BackendKind
}

// FileBackend is a file based Backend whose location can be changed.
type FileBackend interface {
	Backend
	// Path returns the license file path for id.
	Path(id ProductIdentity) string
	// SetPath overrides the license file path for id. It returns an error,
	// leaving the previous path in place, when path is not usable.
	SetPath(id ProductIdentity, path string) error
}
