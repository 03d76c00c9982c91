package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dropship/backend/internal/domain/catalog"
	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/domain/syncjob"
	"github.com/dropship/backend/internal/infrastructure/cache"
	"github.com/dropship/backend/internal/infrastructure/config"
)

// MockCatalogAggregator is a mock implementation of FreshAggregator
type MockCatalogAggregator struct {
	mock.Mock
}

func (m *MockCatalogAggregator) AggregateFresh(ctx context.Context, sources []integration.DataSourceConfig) (*Catalog, error) {
	args := m.Called(ctx, sources)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Catalog), args.Error(1)
}

func shoesConfig() *config.Config {
	return &config.Config{
		Datasets: []config.DatasetConfig{{
			ID:   "shoes",
			Name: "Shoes",
			Sources: []integration.DataSourceConfig{
				{Platform: catalog.SourceTypeEasyDrop, URL: easyDropURL},
				{Platform: catalog.SourceTypeMyDrop, URL: myDropURL},
			},
		}},
	}
}

func product(source catalog.SourceType, id string, price int64) catalog.UnifiedProduct {
	p := catalog.NewUnifiedProduct(source)
	p.ExternalID = id
	p.Name = "Product " + id
	p.Price = decimal.NewFromInt(price)
	p.Available = true
	return p
}

func catalogOf(reports []SourceReport, products ...catalog.UnifiedProduct) *Catalog {
	return &Catalog{
		Groups:      catalog.GroupVariants(products, aggregatorNow),
		Categories:  []catalog.Category{},
		Sources:     reports,
		GeneratedAt: aggregatorNow,
	}
}

func healthyReports(itemErrors int) []SourceReport {
	return []SourceReport{
		{Index: 0, Platform: catalog.SourceTypeEasyDrop, URL: easyDropURL, ItemErrors: itemErrors},
		{Index: 1, Platform: catalog.SourceTypeMyDrop, URL: myDropURL},
	}
}

func datasetJob(entityType, entityID string) *syncjob.SyncJob {
	return &syncjob.SyncJob{
		ID:         uuid.New(),
		JobType:    syncjob.JobTypeDatasetSync,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     syncjob.JobStatusRunning,
	}
}

func TestDatasetSyncExecutor_DiffsAgainstPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	cfg := shoesConfig()
	snapshots := cache.NewInMemorySnapshotStore()
	agg := new(MockCatalogAggregator)
	exec := NewDatasetSyncExecutor(agg, cfg, snapshots, nil)

	first := catalogOf(healthyReports(1),
		product(catalog.SourceTypeEasyDrop, "A-1", 100),
		product(catalog.SourceTypeEasyDrop, "A-2", 200),
		product(catalog.SourceTypeMyDrop, "A-1", 300),
	)
	second := catalogOf(healthyReports(0),
		product(catalog.SourceTypeEasyDrop, "A-1", 150),
		product(catalog.SourceTypeMyDrop, "A-1", 300),
		product(catalog.SourceTypeMyDrop, "B-9", 90),
	)
	agg.On("AggregateFresh", mock.Anything, cfg.Datasets[0].Sources).Return(first, nil).Once()
	agg.On("AggregateFresh", mock.Anything, cfg.Datasets[0].Sources).Return(second, nil).Once()

	counts, err := exec.Execute(ctx, datasetJob(EntityTypeDataset, "shoes"))
	require.NoError(t, err)
	assert.Equal(t, 3, counts.ProductsAdded, "empty snapshot means everything is new")
	assert.Zero(t, counts.ProductsUpdated)
	assert.Zero(t, counts.ProductsRemoved)
	assert.Equal(t, 1, counts.ErrorsEncountered)
	assert.Equal(t, "shoes", counts.Metadata["dataset_id"])
	assert.Equal(t, 3, counts.Metadata["products"])

	counts, err = exec.Execute(ctx, datasetJob(EntityTypeDataset, "shoes"))
	require.NoError(t, err)
	assert.Equal(t, 1, counts.ProductsAdded)
	assert.Equal(t, 1, counts.ProductsUpdated)
	assert.Equal(t, 1, counts.ProductsRemoved)
	assert.Zero(t, counts.ErrorsEncountered)

	stored, ok, err := snapshots.Load(ctx, "shoes")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, stored, 3)
	agg.AssertExpectations(t)
}

func TestDatasetSyncExecutor_RefetchesDespiteCachedCatalog(t *testing.T) {
	ctx := context.Background()
	store := cache.NewInMemoryTTLCache()
	defer store.Close()

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, easyDropURL, mock.Anything).Return(document(easyDropURL, easyDropG1Feed), nil)
	fetcher.On("Fetch", mock.Anything, myDropURL, mock.Anything).Return(document(myDropURL, myDropG1Feed), nil)
	agg := newTestAggregator(fetcher, AggregatorConfig{MaxConcurrentSources: 2, CacheTTL: time.Hour}, WithCache(store))

	cfg := shoesConfig()
	_, err := agg.Aggregate(ctx, cfg.Datasets[0].Sources)
	require.NoError(t, err)
	fetcher.AssertNumberOfCalls(t, "Fetch", 2)

	exec := NewDatasetSyncExecutor(agg, cfg, cache.NewInMemorySnapshotStore(), nil)
	counts, err := exec.Execute(ctx, datasetJob(EntityTypeDataset, "shoes"))
	require.NoError(t, err)
	assert.Positive(t, counts.ProductsAdded)
	fetcher.AssertNumberOfCalls(t, "Fetch", 4)
}

func TestDatasetSyncExecutor_PartialFailureKeepsPreviousProducts(t *testing.T) {
	ctx := context.Background()
	cfg := shoesConfig()
	snapshots := cache.NewInMemorySnapshotStore()
	require.NoError(t, snapshots.Save(ctx, "shoes", []catalog.UnifiedProduct{
		product(catalog.SourceTypeEasyDrop, "A-1", 100),
		product(catalog.SourceTypeMyDrop, "B-1", 300),
	}))

	reports := []SourceReport{
		{Index: 0, Platform: catalog.SourceTypeEasyDrop, URL: easyDropURL, Products: 1},
		{Index: 1, Platform: catalog.SourceTypeMyDrop, URL: myDropURL, Err: errors.New("503"), Error: "503"},
	}
	agg := new(MockCatalogAggregator)
	agg.On("AggregateFresh", mock.Anything, mock.Anything).
		Return(catalogOf(reports, product(catalog.SourceTypeEasyDrop, "A-1", 120)), nil)

	exec := NewDatasetSyncExecutor(agg, cfg, snapshots, nil)
	counts, err := exec.Execute(ctx, datasetJob(EntityTypeDataset, "shoes"))
	require.NoError(t, err)
	assert.Zero(t, counts.ProductsRemoved, "products of the failed source are kept")
	assert.Equal(t, 1, counts.ProductsUpdated)
	assert.Equal(t, 1, counts.ErrorsEncountered)
	assert.Equal(t, 1, counts.Metadata["failed_sources"])

	stored, _, err := snapshots.Load(ctx, "shoes")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.True(t, stored[0].Price.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, "B-1", stored[1].ExternalID)
}

func TestDatasetSyncExecutor_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown dataset is permanent", func(t *testing.T) {
		exec := NewDatasetSyncExecutor(new(MockCatalogAggregator), shoesConfig(), cache.NewInMemorySnapshotStore(), nil)
		_, err := exec.Execute(ctx, datasetJob(EntityTypeDataset, "bags"))
		assert.ErrorIs(t, err, ErrUnknownDataset)
		assert.True(t, syncjob.IsPermanent(err))
	})

	t.Run("wrong entity type is permanent", func(t *testing.T) {
		exec := NewDatasetSyncExecutor(new(MockCatalogAggregator), shoesConfig(), cache.NewInMemorySnapshotStore(), nil)
		_, err := exec.Execute(ctx, datasetJob("product", "shoes"))
		assert.ErrorIs(t, err, ErrInvalidEntityType)
		assert.True(t, syncjob.IsPermanent(err))
	})

	t.Run("aggregation failure is retryable and leaves the snapshot", func(t *testing.T) {
		snapshots := cache.NewInMemorySnapshotStore()
		agg := new(MockCatalogAggregator)
		agg.On("AggregateFresh", mock.Anything, mock.Anything).Return(nil, ErrAllSourcesFailed)

		exec := NewDatasetSyncExecutor(agg, shoesConfig(), snapshots, nil)
		_, err := exec.Execute(ctx, datasetJob(EntityTypeDataset, "shoes"))
		assert.ErrorIs(t, err, ErrAllSourcesFailed)
		assert.False(t, syncjob.IsPermanent(err))

		_, ok, err := snapshots.Load(ctx, "shoes")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
