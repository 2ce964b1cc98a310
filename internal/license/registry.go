package license

import (
	"fmt"
	"sync"
)

// ManagerFactory builds the Manager of a product.
type ManagerFactory func(product Product) (*Manager, error)

// Registry hands out one Manager per product identity so that all callers in
// a process share the same cache and sync coalescing.
type Registry struct {
	mu       sync.Mutex
	managers map[ProductIdentity]*Manager
	factory  ManagerFactory
}

// NewRegistry creates a Registry that builds managers with factory.
func NewRegistry(factory ManagerFactory) *Registry {
	return &Registry{
		managers: make(map[ProductIdentity]*Manager),
		factory:  factory,
	}
}

// Manager returns the Manager for product, creating it on first use.
func (r *Registry) Manager(product Product) (*Manager, error) {
	id := product.Identity()

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.managers[id]; ok {
		return m, nil
	}
	m, err := r.factory(product)
	if err != nil {
		return nil, fmt.Errorf("failed to create license manager for %s: %w", id, err)
	}
	r.managers[id] = m
	return m, nil
}

// Wait blocks until the background syncs of every manager have completed.
func (r *Registry) Wait() {
	r.mu.Lock()
	managers := make([]*Manager, 0, len(r.managers))
	for _, m := range r.managers {
		managers = append(managers, m)
	}
	r.mu.Unlock()

	for _, m := range managers {
		m.Wait()
	}
}
