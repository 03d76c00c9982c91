package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	catalogapp "github.com/dropship/backend/internal/application/catalog"
	"github.com/dropship/backend/internal/domain/integration"
)

const timeLayout = time.RFC3339

// CatalogHandler handles catalog aggregation API endpoints
type CatalogHandler struct {
	BaseHandler
	aggregator catalogapp.CatalogAggregator
	datasets   catalogapp.DatasetResolver
}

// NewCatalogHandler creates a new CatalogHandler. datasets may be nil when
// requests always carry explicit sources.
func NewCatalogHandler(aggregator catalogapp.CatalogAggregator, datasets catalogapp.DatasetResolver) *CatalogHandler {
	return &CatalogHandler{
		aggregator: aggregator,
		datasets:   datasets,
	}
}

// Aggregate godoc
// @ID           aggregateCatalog
// @Summary      Aggregate feeds into a catalog
// @Description  Fetches and parses every source concurrently and groups the variants across sources
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        request body AggregateRequest true "Sources to aggregate"
// @Success      200 {object} APIResponse[CatalogResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Router       /catalog/aggregate [post]
func (h *CatalogHandler) Aggregate(c *gin.Context) {
	var req AggregateRequest
	if !bindJSON(c, &req) {
		return
	}

	result, ok := h.aggregate(c, req)
	if !ok {
		return
	}
	h.Success(c, toCatalogResponse(result, result.Groups))
}

// Search godoc
// @ID           searchCatalog
// @Summary      Search an aggregated catalog
// @Description  Aggregates the sources and returns the groups with a variant whose name contains the query, optionally restricted to a category
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        request body SearchRequest true "Sources and filters"
// @Success      200 {object} APIResponse[CatalogResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Router       /catalog/search [post]
func (h *CatalogHandler) Search(c *gin.Context) {
	var req SearchRequest
	if !bindJSON(c, &req) {
		return
	}

	result, ok := h.aggregate(c, req.AggregateRequest)
	if !ok {
		return
	}

	groups := result.Search(req.Query)
	if req.CategoryID != "" {
		filtered := &catalogapp.Catalog{Groups: groups}
		groups = filtered.FilterByCategory(req.CategoryID)
	}
	h.Success(c, toCatalogResponse(result, groups))
}

// Statistics godoc
// @ID           catalogStatistics
// @Summary      Summarize an aggregated catalog
// @Description  Aggregates the sources and returns product counts by platform and category with the average price
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        request body AggregateRequest true "Sources to aggregate"
// @Success      200 {object} APIResponse[StatisticsResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Router       /catalog/statistics [post]
func (h *CatalogHandler) Statistics(c *gin.Context) {
	var req AggregateRequest
	if !bindJSON(c, &req) {
		return
	}

	result, ok := h.aggregate(c, req)
	if !ok {
		return
	}
	h.Success(c, StatisticsResponse{
		Statistics: result.Statistics(),
		Sources:    result.Sources,
	})
}

func (h *CatalogHandler) aggregate(c *gin.Context, req AggregateRequest) (*catalogapp.Catalog, bool) {
	sources, err := h.resolveSources(req)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}

	result, err := h.aggregator.Aggregate(c.Request.Context(), sources)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return result, true
}

func (h *CatalogHandler) resolveSources(req AggregateRequest) ([]integration.DataSourceConfig, error) {
	if req.DatasetID == "" {
		return toSourceConfigs(req.Sources), nil
	}
	if h.datasets == nil {
		return nil, fmt.Errorf("%w: %s", catalogapp.ErrUnknownDataset, req.DatasetID)
	}
	ds, ok := h.datasets.Dataset(req.DatasetID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalogapp.ErrUnknownDataset, req.DatasetID)
	}
	return ds.Sources, nil
}

// RegisterRoutes registers the catalog routes
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/catalog")
	g.POST("/aggregate", h.Aggregate)
	g.POST("/search", h.Search)
	g.POST("/statistics", h.Statistics)
}
