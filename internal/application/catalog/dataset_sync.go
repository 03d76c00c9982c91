package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/catalog"
	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/domain/syncjob"
	"github.com/dropship/backend/internal/infrastructure/config"
	"github.com/dropship/backend/internal/infrastructure/logger"
	"github.com/dropship/backend/internal/infrastructure/scheduler"
)

// EntityTypeDataset is the entity type of dataset-sync jobs
const EntityTypeDataset = "dataset"

// Dataset sync errors
var (
	ErrUnknownDataset    = errors.New("catalog: unknown dataset")
	ErrInvalidEntityType = errors.New("catalog: dataset sync requires a dataset entity")
)

// CatalogAggregator builds catalogs from data sources
type CatalogAggregator interface {
	Aggregate(ctx context.Context, sources []integration.DataSourceConfig) (*Catalog, error)
}

// FreshAggregator builds catalogs from data sources, bypassing any catalog cache
type FreshAggregator interface {
	AggregateFresh(ctx context.Context, sources []integration.DataSourceConfig) (*Catalog, error)
}

// DatasetResolver looks up configured datasets
type DatasetResolver interface {
	Dataset(id string) (config.DatasetConfig, bool)
}

// DatasetSyncExecutor runs dataset-sync jobs: it aggregates the dataset's sources,
// diffs the products against the previous snapshot by (ExternalID, SourceType)
// and stores the new snapshot
type DatasetSyncExecutor struct {
	aggregator FreshAggregator
	datasets   DatasetResolver
	snapshots  catalog.SnapshotStore
	logger     *zap.Logger
}

var (
	_ scheduler.Executor = (*DatasetSyncExecutor)(nil)
	_ CatalogAggregator  = (*Aggregator)(nil)
	_ FreshAggregator    = (*Aggregator)(nil)
)

// NewDatasetSyncExecutor creates a new dataset sync executor
func NewDatasetSyncExecutor(aggregator FreshAggregator, datasets DatasetResolver, snapshots catalog.SnapshotStore, log *zap.Logger) *DatasetSyncExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	return &DatasetSyncExecutor{
		aggregator: aggregator,
		datasets:   datasets,
		snapshots:  snapshots,
		logger:     log,
	}
}

// Execute implements scheduler.Executor.
// When some sources failed the new products are merged into the previous
// snapshot instead of replacing it, so a flaky feed does not read as removals.
func (e *DatasetSyncExecutor) Execute(ctx context.Context, job *syncjob.SyncJob) (syncjob.SummaryCounts, error) {
	var counts syncjob.SummaryCounts

	if job.EntityType != EntityTypeDataset {
		return counts, syncjob.Permanent(fmt.Errorf("%w: %q", ErrInvalidEntityType, job.EntityType))
	}
	dataset, ok := e.datasets.Dataset(job.EntityID)
	if !ok {
		return counts, syncjob.Permanent(fmt.Errorf("%w: %s", ErrUnknownDataset, job.EntityID))
	}

	result, err := e.aggregator.AggregateFresh(ctx, dataset.Sources)
	if err != nil {
		return counts, fmt.Errorf("aggregate dataset %s: %w", dataset.ID, err)
	}
	current := result.Products()

	previous, _, err := e.snapshots.Load(ctx, dataset.ID)
	if err != nil {
		return counts, fmt.Errorf("load snapshot of dataset %s: %w", dataset.ID, err)
	}

	failed := result.FailedSources()
	next := current
	if failed > 0 {
		next = catalog.MergeProducts(previous, current)
	}
	diff := catalog.DiffProducts(previous, next)

	if err := e.snapshots.Save(ctx, dataset.ID, next); err != nil {
		return counts, fmt.Errorf("save snapshot of dataset %s: %w", dataset.ID, err)
	}

	itemErrors := 0
	for _, s := range result.Sources {
		itemErrors += s.ItemErrors
	}
	counts = syncjob.SummaryCounts{
		ProductsAdded:     len(diff.Added),
		ProductsUpdated:   len(diff.Updated),
		ProductsRemoved:   len(diff.Removed),
		ErrorsEncountered: itemErrors + failed,
		Metadata: map[string]any{
			"dataset_id":     dataset.ID,
			"sources":        len(result.Sources),
			"failed_sources": failed,
			"groups":         len(result.Groups),
			"products":       len(next),
		},
	}

	logger.WithLogger(ctx, e.logger).Info("Dataset synchronized",
		zap.String("dataset_id", dataset.ID),
		zap.Int("products", len(next)),
		zap.Int("added", counts.ProductsAdded),
		zap.Int("updated", counts.ProductsUpdated),
		zap.Int("removed", counts.ProductsRemoved),
		zap.Int("failed_sources", failed),
	)
	return counts, nil
}
