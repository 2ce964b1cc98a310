// Package keyringlicense stores licenses in the operating system's secure
// credential store (Keychain, Windows Credential Manager or the Secret Service).
package keyringlicense

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/dagucloud/licensor/internal/license"
)

// Store implements license.Backend on top of the OS keyring. Each license is
// one secret whose service is the store directory name and whose user is the
// product storage key.
type Store struct {
	servicePrefix string
}

var _ license.Backend = (*Store)(nil)

// New creates a keyring store. servicePrefix, when set, namespaces the
// service names, e.g. "licensor" yields "licensor/Acme_Inc".
func New(servicePrefix string) *Store {
	return &Store{servicePrefix: strings.Trim(servicePrefix, "/ ")}
}

// Kind implements license.Backend.
func (s *Store) Kind() license.BackendKind { return license.BackendNative }

func (s *Store) service(id license.ProductIdentity) string {
	if s.servicePrefix == "" {
		return id.StoreDir()
	}
	return s.servicePrefix + "/" + id.StoreDir()
}

// Load implements license.Backend.
func (s *Store) Load(_ context.Context, id license.ProductIdentity) (string, error) {
	secret, err := keyring.Get(s.service(id), id.StorageKey())
	if err != nil {
		return "", mapError(err)
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", license.ErrNotFound
	}
	return secret, nil
}

// Save implements license.Backend.
func (s *Store) Save(_ context.Context, id license.ProductIdentity, encoded string) error {
	if err := keyring.Set(s.service(id), id.StorageKey(), strings.TrimSpace(encoded)); err != nil {
		return mapError(err)
	}
	return nil
}

// Delete implements license.Backend.
func (s *Store) Delete(_ context.Context, id license.ProductIdentity) error {
	err := keyring.Delete(s.service(id), id.StorageKey())
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return mapError(err)
}

func mapError(err error) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return license.ErrNotFound
	}
	return fmt.Errorf("%w: %w", license.ErrUnavailable, err)
}
