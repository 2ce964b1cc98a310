package license

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/host"
	psnet "github.com/shirou/gopsutil/v4/net"

	"github.com/dagucloud/licensor/internal/cmn/fileutil"
)

const (
	machineIDFile      = "machine_id"
	machineIDLockDelay = 20 * time.Millisecond
)

// HardwareIDProvider supplies a fingerprint of the current machine that is
// stable across reboots.
type HardwareIDProvider interface {
	HardwareID() (string, error)
}

// StaticHardwareID is a fixed fingerprint, mostly useful in tests.
type StaticHardwareID string

// HardwareID implements HardwareIDProvider.
func (s StaticHardwareID) HardwareID() (string, error) {
	if s == "" {
		return "", errors.New("hardware ID is empty")
	}
	return string(s), nil
}

// HostHardwareID derives the fingerprint from the host ID reported by the OS,
// falling back to the first hardware address and then to a generated machine
// ID persisted under FallbackDir. The result is computed once.
type HostHardwareID struct {
	FallbackDir string

	once sync.Once
	id   string
	err  error
}

var _ HardwareIDProvider = (*HostHardwareID)(nil)

// HardwareID implements HardwareIDProvider.
func (h *HostHardwareID) HardwareID() (string, error) {
	h.once.Do(func() {
		h.id, h.err = h.compute(context.Background())
	})
	return h.id, h.err
}

func (h *HostHardwareID) compute(ctx context.Context) (string, error) {
	if id, err := host.HostIDWithContext(ctx); err == nil && strings.TrimSpace(id) != "" {
		return fingerprint("host", id), nil
	}
	if mac := firstHardwareAddr(ctx); mac != "" {
		return fingerprint("mac", mac), nil
	}
	if h.FallbackDir != "" {
		id, err := generatedMachineID(ctx, h.FallbackDir)
		if err != nil {
			return "", fmt.Errorf("failed to resolve hardware ID: %w", err)
		}
		return fingerprint("generated", id), nil
	}
	return "", errors.New("failed to resolve hardware ID: no host ID or hardware address available")
}

func firstHardwareAddr(ctx context.Context) string {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return ""
	}
	var addrs []string
	for _, iface := range ifaces {
		if iface.HardwareAddr == "" || slices.Contains(iface.Flags, "loopback") {
			continue
		}
		addrs = append(addrs, strings.ToLower(iface.HardwareAddr))
	}
	if len(addrs) == 0 {
		return ""
	}
	sort.Strings(addrs)
	return addrs[0]
}

func fingerprint(source, value string) string {
	sum := sha256.Sum256([]byte(source + ":" + strings.ToLower(strings.TrimSpace(value))))
	return hex.EncodeToString(sum[:])
}

// generatedMachineID returns the random machine ID kept in dir, generating it
// on first use. Processes sharing dir agree on one ID.
func generatedMachineID(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create machine ID directory: %w", err)
	}
	path := filepath.Join(dir, machineIDFile)

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, machineIDLockDelay)
	if err != nil {
		return "", fmt.Errorf("failed to lock machine ID: %w", err)
	}
	if !locked {
		return "", errors.New("failed to lock machine ID")
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path) //nolint:gosec // path is below the data dir
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("failed to read machine ID: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate machine ID: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, []byte(id.String()), 0600); err != nil {
		return "", fmt.Errorf("failed to write machine ID: %w", err)
	}
	return id.String(), nil
}
