package handler

import (
	catalogapp "github.com/dropship/backend/internal/application/catalog"
	"github.com/dropship/backend/internal/domain/catalog"
	"github.com/dropship/backend/internal/domain/integration"
)

// DataSourceRequest describes one feed to aggregate.
// Platform and URL values are checked per source so that one bad entry is
// reported in the source list instead of rejecting the request.
// @Name HandlerDataSourceRequest
type DataSourceRequest struct {
	Platform          string            `json:"platform" binding:"required" example:"EASYDROP"`
	URL               string            `json:"url" binding:"required,max=2048" example:"https://easydrop.example/feed.yml"`
	Headers           map[string]string `json:"headers"`
	ExportUnavailable *bool             `json:"export_unavailable" example:"true"`
}

// AggregateRequest selects the sources of a catalog: either an explicit list
// or a configured dataset
// @Name HandlerAggregateRequest
type AggregateRequest struct {
	DatasetID string              `json:"dataset_id" binding:"max=100" example:"shoes"`
	Sources   []DataSourceRequest `json:"sources" binding:"required_without=DatasetID,max=50,dive"`
}

// SearchRequest filters an aggregated catalog
// @Name HandlerSearchRequest
type SearchRequest struct {
	AggregateRequest
	Query      string `json:"query" binding:"max=200" example:"runner"`
	CategoryID string `json:"category_id" binding:"max=100" example:"7"`
}

// CatalogResponse represents an aggregated catalog
// @Name HandlerCatalogResponse
type CatalogResponse struct {
	Groups        []catalog.ProductVariantGroup `json:"groups"`
	Categories    []catalog.Category            `json:"categories"`
	Sources       []catalogapp.SourceReport     `json:"sources"`
	TotalGroups   int                           `json:"total_groups"`
	TotalProducts int                           `json:"total_products"`
	GeneratedAt   string                        `json:"generated_at" example:"2026-03-01T12:00:00Z"`
	Cached        bool                          `json:"cached"`
}

// StatisticsResponse represents catalog statistics with the per-source outcome
// @Name HandlerStatisticsResponse
type StatisticsResponse struct {
	catalogapp.Statistics
	Sources []catalogapp.SourceReport `json:"sources"`
}

func (r DataSourceRequest) toConfig() integration.DataSourceConfig {
	return integration.DataSourceConfig{
		Platform:          catalog.SourceType(r.Platform),
		URL:               r.URL,
		Headers:           r.Headers,
		ExportUnavailable: r.ExportUnavailable,
	}
}

func toSourceConfigs(reqs []DataSourceRequest) []integration.DataSourceConfig {
	out := make([]integration.DataSourceConfig, len(reqs))
	for i, r := range reqs {
		out[i] = r.toConfig()
	}
	return out
}

func toCatalogResponse(c *catalogapp.Catalog, groups []catalog.ProductVariantGroup) CatalogResponse {
	products := 0
	for _, g := range groups {
		products += len(g.Variants)
	}
	return CatalogResponse{
		Groups:        groups,
		Categories:    c.Categories,
		Sources:       c.Sources,
		TotalGroups:   len(groups),
		TotalProducts: products,
		GeneratedAt:   c.GeneratedAt.Format(timeLayout),
		Cached:        c.Cached,
	}
}
