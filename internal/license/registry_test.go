package license

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("one manager per product", func(t *testing.T) {
		t.Parallel()

		var built atomic.Int32
		r := NewRegistry(func(p Product) (*Manager, error) {
			built.Add(1)
			return NewManager(ManagerConfig{Hardware: StaticHardwareID(TestHardwareID)}, p, Components{Store: newMemBackend(BackendNative), Remote: &fakeRemote{}}, nil)
		})
		a, b := NewTestIssuer(), NewTestIssuer()
		b.Product.ID = 43

		var wg sync.WaitGroup
		managers := make([]*Manager, 10)
		for i := range managers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m, err := r.Manager(a.Product)
				assert.NoError(t, err)
				managers[i] = m
			}()
		}
		wg.Wait()
		other, err := r.Manager(b.Product)
		require.NoError(t, err)

		for _, m := range managers {
			assert.Same(t, managers[0], m)
		}
		assert.NotSame(t, managers[0], other)
		assert.Equal(t, int32(2), built.Load())
		r.Wait()
	})

	t.Run("factory errors are not cached", func(t *testing.T) {
		t.Parallel()

		fail := true
		r := NewRegistry(func(p Product) (*Manager, error) {
			if fail {
				return nil, errors.New("keyring locked")
			}
			return NewManager(ManagerConfig{}, p, Components{Store: newMemBackend(BackendNative), Remote: &fakeRemote{}}, nil)
		})
		p := NewTestIssuer().Product

		_, err := r.Manager(p)
		require.Error(t, err)

		fail = false
		m, err := r.Manager(p)
		require.NoError(t, err)
		assert.NotNil(t, m)
	})
}
