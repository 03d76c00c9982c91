package cache

import (
	"context"
	"sync"

	"github.com/dropship/backend/internal/domain/catalog"
)

// InMemorySnapshotStore implements catalog.SnapshotStore using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string][]catalog.UnifiedProduct
}

// NewInMemorySnapshotStore creates an empty in-memory snapshot store
func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{
		snapshots: make(map[string][]catalog.UnifiedProduct),
	}
}

// Load returns a copy of the stored products of a dataset
func (s *InMemorySnapshotStore) Load(_ context.Context, datasetID string) ([]catalog.UnifiedProduct, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products, ok := s.snapshots[datasetID]
	if !ok {
		return nil, false, nil
	}
	return cloneProducts(products), true, nil
}

// Save replaces the stored products of a dataset
func (s *InMemorySnapshotStore) Save(_ context.Context, datasetID string, products []catalog.UnifiedProduct) error {
	c := cloneProducts(products)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[datasetID] = c
	return nil
}

// Close releases resources; the in-memory store holds none
func (s *InMemorySnapshotStore) Close() error {
	return nil
}

// Size returns the number of stored snapshots (for testing/monitoring)
func (s *InMemorySnapshotStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

func cloneProducts(products []catalog.UnifiedProduct) []catalog.UnifiedProduct {
	out := make([]catalog.UnifiedProduct, len(products))
	for i, p := range products {
		out[i] = p.Clone()
	}
	return out
}

// Ensure InMemorySnapshotStore implements catalog.SnapshotStore
var _ catalog.SnapshotStore = (*InMemorySnapshotStore)(nil)
