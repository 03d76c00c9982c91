package catalog

import "context"

// SnapshotStore keeps the last synchronized flat product list of each dataset.
// Implementations store copies; callers may mutate what they pass in or get back.
type SnapshotStore interface {
	// Load returns the stored products of a dataset; ok is false when none was saved yet
	Load(ctx context.Context, datasetID string) (products []UnifiedProduct, ok bool, err error)

	// Save replaces the stored products of a dataset
	Save(ctx context.Context, datasetID string, products []UnifiedProduct) error

	// Close releases resources held by the store
	Close() error
}
