package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	catalogapp "github.com/dropship/backend/internal/application/catalog"
	"github.com/dropship/backend/internal/domain/catalog"
	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/infrastructure/config"
	"github.com/dropship/backend/internal/interfaces/http/dto"
)

type MockCatalogAggregator struct {
	mock.Mock
}

func (m *MockCatalogAggregator) Aggregate(ctx context.Context, sources []integration.DataSourceConfig) (*catalogapp.Catalog, error) {
	args := m.Called(ctx, sources)
	if c := args.Get(0); c != nil {
		return c.(*catalogapp.Catalog), args.Error(1)
	}
	return nil, args.Error(1)
}

type stubDatasets map[string]config.DatasetConfig

func (s stubDatasets) Dataset(id string) (config.DatasetConfig, bool) {
	ds, ok := s[id]
	return ds, ok
}

var generatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func variant(source catalog.SourceType, id, name, categoryID string, price string) catalog.UnifiedProduct {
	return catalog.UnifiedProduct{
		ExternalID: id,
		SourceType: source,
		Name:       name,
		CategoryID: categoryID,
		Price:      decimal.RequireFromString(price),
		Available:  true,
	}
}

func sampleCatalog() *catalogapp.Catalog {
	runner := catalog.ProductVariantGroup{
		GroupID:    "runner",
		Name:       "Trail Runner",
		CategoryID: "7",
		Variants: []catalog.UnifiedProduct{
			variant(catalog.SourceTypeEasyDrop, "e1", "Trail Runner 42", "7", "100"),
			variant(catalog.SourceTypeMyDrop, "m1", "Trail Runner 43", "7", "120"),
		},
		SourcePlatforms: []catalog.SourceType{catalog.SourceTypeEasyDrop, catalog.SourceTypeMyDrop},
	}
	boot := catalog.ProductVariantGroup{
		GroupID:    "boot",
		Name:       "Winter Boot",
		CategoryID: "9",
		Variants: []catalog.UnifiedProduct{
			variant(catalog.SourceTypeEasyDrop, "e2", "Winter Boot", "9", "80"),
		},
		SourcePlatforms: []catalog.SourceType{catalog.SourceTypeEasyDrop},
	}
	return &catalogapp.Catalog{
		Groups:     []catalog.ProductVariantGroup{runner, boot},
		Categories: []catalog.Category{{ID: "7", Name: "Sneakers", SourceType: catalog.SourceTypeEasyDrop}},
		Sources: []catalogapp.SourceReport{
			{Index: 0, Platform: catalog.SourceTypeEasyDrop, URL: "http://easydrop/feed", Products: 2},
			{Index: 1, Platform: catalog.SourceTypeMyDrop, URL: "http://mydrop/feed", Products: 1},
		},
		GeneratedAt: generatedAt,
	}
}

var explicitSources = map[string]any{
	"sources": []map[string]any{
		{"platform": "EASYDROP", "url": "http://easydrop/feed", "headers": map[string]string{"Authorization": "Bearer x"}},
		{"platform": "MYDROP", "url": "http://mydrop/feed", "export_unavailable": false},
	},
}

func TestCatalogHandler_Aggregate(t *testing.T) {
	agg := new(MockCatalogAggregator)
	agg.On("Aggregate", mock.Anything, mock.MatchedBy(func(src []integration.DataSourceConfig) bool {
		return len(src) == 2 &&
			src[0].Platform == catalog.SourceTypeEasyDrop &&
			src[0].Headers["Authorization"] == "Bearer x" &&
			src[0].ExportUnavailable == nil &&
			src[1].ExportUnavailable != nil && !*src[1].ExportUnavailable
	})).Return(sampleCatalog(), nil)

	engine := newTestEngine(NewCatalogHandler(agg, nil))
	w := performRequest(engine, http.MethodPost, "/api/v1/catalog/aggregate", explicitSources)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[CatalogResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Data.TotalGroups)
	assert.Equal(t, 3, resp.Data.TotalProducts)
	assert.Len(t, resp.Data.Sources, 2)
	assert.Equal(t, "2026-03-01T12:00:00Z", resp.Data.GeneratedAt)
	assert.False(t, resp.Data.Cached)
	agg.AssertExpectations(t)
}

func TestCatalogHandler_AggregateDataset(t *testing.T) {
	sources := []integration.DataSourceConfig{{Platform: catalog.SourceTypeEasyDrop, URL: "http://easydrop/shoes"}}
	agg := new(MockCatalogAggregator)
	agg.On("Aggregate", mock.Anything, sources).Return(sampleCatalog(), nil)

	engine := newTestEngine(NewCatalogHandler(agg, stubDatasets{
		"shoes": {ID: "shoes", Sources: sources},
	}))

	w := performRequest(engine, http.MethodPost, "/api/v1/catalog/aggregate", map[string]any{"dataset_id": "shoes"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(engine, http.MethodPost, "/api/v1/catalog/aggregate", map[string]any{"dataset_id": "hats"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Dataset not found", decode[any](t, w).Error.Message)

	agg.AssertNumberOfCalls(t, "Aggregate", 1)
}

func TestCatalogHandler_AggregateErrors(t *testing.T) {
	t.Run("all sources failed is a bad gateway", func(t *testing.T) {
		agg := new(MockCatalogAggregator)
		agg.On("Aggregate", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: 2 of 2", catalogapp.ErrAllSourcesFailed))

		w := performRequest(newTestEngine(NewCatalogHandler(agg, nil)),
			http.MethodPost, "/api/v1/catalog/aggregate", explicitSources)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, dto.ErrCodeUpstreamFailed, decode[any](t, w).Error.Code)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		agg := new(MockCatalogAggregator)
		w := performRequest(newTestEngine(NewCatalogHandler(agg, nil)),
			http.MethodPost, "/api/v1/catalog/aggregate", `{"sources": [`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decode[any](t, w).Error.Code)
		agg.AssertNotCalled(t, "Aggregate", mock.Anything, mock.Anything)
	})

	t.Run("neither sources nor dataset", func(t *testing.T) {
		agg := new(MockCatalogAggregator)
		w := performRequest(newTestEngine(NewCatalogHandler(agg, nil)),
			http.MethodPost, "/api/v1/catalog/aggregate", map[string]any{})

		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[any](t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "sources", resp.Error.Details[0].Field)
	})

	t.Run("source without url", func(t *testing.T) {
		agg := new(MockCatalogAggregator)
		w := performRequest(newTestEngine(NewCatalogHandler(agg, nil)),
			http.MethodPost, "/api/v1/catalog/aggregate",
			map[string]any{"sources": []map[string]any{{"platform": "EASYDROP"}}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.True(t, strings.Contains(w.Body.String(), `"field":"url"`), w.Body.String())
	})
}

func TestCatalogHandler_Search(t *testing.T) {
	agg := new(MockCatalogAggregator)
	agg.On("Aggregate", mock.Anything, mock.Anything).Return(sampleCatalog(), nil)
	engine := newTestEngine(NewCatalogHandler(agg, nil))

	search := func(query, category string) CatalogResponse {
		body := map[string]any{"sources": explicitSources["sources"], "query": query, "category_id": category}
		w := performRequest(engine, http.MethodPost, "/api/v1/catalog/search", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[CatalogResponse](t, w).Data
	}

	got := search("runner", "")
	require.Len(t, got.Groups, 1)
	assert.Equal(t, "runner", got.Groups[0].GroupID)
	assert.Equal(t, 2, got.TotalProducts)

	assert.Equal(t, 2, search("", "").TotalGroups)
	assert.Equal(t, 0, search("runner", "9").TotalGroups)

	got = search("", "9")
	require.Len(t, got.Groups, 1)
	assert.Equal(t, "boot", got.Groups[0].GroupID)
}

func TestCatalogHandler_Statistics(t *testing.T) {
	agg := new(MockCatalogAggregator)
	agg.On("Aggregate", mock.Anything, mock.Anything).Return(sampleCatalog(), nil)

	w := performRequest(newTestEngine(NewCatalogHandler(agg, nil)),
		http.MethodPost, "/api/v1/catalog/statistics", explicitSources)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[StatisticsResponse](t, w)
	assert.Equal(t, 2, resp.Data.TotalGroups)
	assert.Equal(t, 3, resp.Data.TotalProducts)
	assert.Equal(t, 2, resp.Data.ByPlatform[catalog.SourceTypeEasyDrop])
	assert.True(t, resp.Data.AveragePrice.Equal(decimal.NewFromInt(100)))
	assert.Len(t, resp.Data.Sources, 2)
}
