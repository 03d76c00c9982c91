package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropship/backend/internal/domain/catalog"
	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/infrastructure/feed"
)

// Fetcher retrieves raw feed documents
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (*feed.Document, error)
}

// ParserProvider selects the parser for a platform identity
type ParserProvider interface {
	Get(platform catalog.SourceType) (integration.FeedParser, error)
}

// Cache stores encoded catalogs by key
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Recorder observes finished aggregations
type Recorder interface {
	RecordAggregation(success bool, failedSources int, duration time.Duration)
}

// AggregatorConfig holds aggregator configuration
type AggregatorConfig struct {
	MaxConcurrentSources int
	// CacheTTL is how long a catalog built without source failures is reused; 0 disables caching
	CacheTTL time.Duration
}

// DefaultAggregatorConfig returns the default aggregator configuration
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		MaxConcurrentSources: 4,
		CacheTTL:             10 * time.Minute,
	}
}

// Aggregator fans out fetch and parse over the configured sources, merges every
// product into one pool in configuration order and groups the variants
type Aggregator struct {
	fetcher  Fetcher
	parsers  ParserProvider
	config   AggregatorConfig
	logger   *zap.Logger
	cache    Cache
	recorder Recorder
	now      func() time.Time
}

// AggregatorOption is a functional option for configuring the aggregator
type AggregatorOption func(*Aggregator)

// WithCache enables catalog caching
func WithCache(c Cache) AggregatorOption {
	return func(a *Aggregator) {
		a.cache = c
	}
}

// WithRecorder sets the aggregation metrics recorder
func WithRecorder(r Recorder) AggregatorOption {
	return func(a *Aggregator) {
		a.recorder = r
	}
}

// WithClock overrides the time source used for GeneratedAt and LastUpdated
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates a new aggregator
func NewAggregator(fetcher Fetcher, parsers ParserProvider, cfg AggregatorConfig, logger *zap.Logger, opts ...AggregatorOption) *Aggregator {
	if cfg.MaxConcurrentSources < 1 {
		cfg.MaxConcurrentSources = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{
		fetcher: fetcher,
		parsers: parsers,
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// sourceResult is the slot written by the goroutine handling one source
type sourceResult struct {
	report     SourceReport
	products   []catalog.UnifiedProduct
	categories []catalog.Category
}

// Aggregate builds a catalog from the given sources. A failing source only removes
// its own contribution; an error is returned only when every source failed.
// Zero sources yield an empty catalog. When ctx is cancelled, sources not yet
// fetched are reported as failed and the results already collected are kept.
func (a *Aggregator) Aggregate(ctx context.Context, sources []integration.DataSourceConfig) (*Catalog, error) {
	return a.aggregate(ctx, sources, true)
}

// AggregateFresh is Aggregate without the cache lookup: every source is
// fetched, and a complete result still refreshes the cached catalog.
func (a *Aggregator) AggregateFresh(ctx context.Context, sources []integration.DataSourceConfig) (*Catalog, error) {
	return a.aggregate(ctx, sources, false)
}

func (a *Aggregator) aggregate(ctx context.Context, sources []integration.DataSourceConfig, useCache bool) (*Catalog, error) {
	started := a.now()

	if len(sources) == 0 {
		return &Catalog{
			Groups:      make([]catalog.ProductVariantGroup, 0),
			Categories:  make([]catalog.Category, 0),
			Sources:     make([]SourceReport, 0),
			GeneratedAt: started,
		}, nil
	}

	key := cacheKey(sources)
	if useCache {
		if cached, ok := a.lookup(ctx, key); ok {
			return cached, nil
		}
	}

	results := make([]sourceResult, len(sources))
	var g errgroup.Group
	g.SetLimit(a.config.MaxConcurrentSources)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = a.collect(ctx, i, src)
			return nil
		})
	}
	_ = g.Wait()

	products := make([]catalog.UnifiedProduct, 0)
	categories := make([]catalog.Category, 0)
	reports := make([]SourceReport, 0, len(results))
	causes := make([]error, 0)
	for _, r := range results {
		reports = append(reports, r.report)
		if r.report.Err != nil {
			causes = append(causes, fmt.Errorf("source %d (%s): %w", r.report.Index, r.report.URL, r.report.Err))
			continue
		}
		products = append(products, r.products...)
		categories = append(categories, r.categories...)
	}

	if len(causes) == len(sources) {
		a.record(false, len(causes), started)
		a.logger.Error("Aggregation failed: every data source failed", zap.Int("sources", len(sources)))
		return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(causes...))
	}

	generatedAt := a.now()
	result := &Catalog{
		Groups:      catalog.GroupVariants(products, generatedAt),
		Categories:  categories,
		Sources:     reports,
		GeneratedAt: generatedAt,
	}

	a.record(true, len(causes), started)
	a.logger.Info("Aggregation completed",
		zap.Int("sources", len(sources)),
		zap.Int("failed_sources", len(causes)),
		zap.Int("products", len(products)),
		zap.Int("groups", len(result.Groups)),
		zap.Duration("duration", generatedAt.Sub(started)),
	)

	if len(causes) == 0 {
		a.store(ctx, key, result)
	}
	return result, nil
}

// collect fetches and parses one source
func (a *Aggregator) collect(ctx context.Context, index int, src integration.DataSourceConfig) sourceResult {
	started := a.now()
	res := sourceResult{report: SourceReport{
		Index:    index,
		Platform: src.Platform,
		URL:      src.URL,
	}}
	log := a.logger.With(
		zap.Int("source_index", index),
		zap.String("platform", src.Platform.String()),
		zap.String("source_url", src.URL),
	)

	fail := func(err error) sourceResult {
		res.report.Err = err
		res.report.Error = err.Error()
		res.report.Duration = a.now().Sub(started)
		log.Warn("Data source skipped", zap.Error(err))
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := src.Validate(); err != nil {
		return fail(err)
	}
	parser, err := a.parsers.Get(src.Platform)
	if err != nil {
		return fail(err)
	}
	doc, err := a.fetcher.Fetch(ctx, src.URL, src.RequestHeaders())
	if err != nil {
		return fail(err)
	}

	parsed := parser.Parse(ctx, doc.Body)
	res.products = make([]catalog.UnifiedProduct, 0, len(parsed.Products))
	for _, p := range parsed.Products {
		if !p.Available && !src.IncludeUnavailable() {
			res.report.Dropped++
			continue
		}
		res.products = append(res.products, p)
	}
	res.categories = parsed.Categories
	if res.categories == nil {
		res.categories = make([]catalog.Category, 0)
	}

	res.report.Products = len(res.products)
	res.report.Categories = len(res.categories)
	res.report.ItemErrors = len(parsed.Errors)
	res.report.Duration = a.now().Sub(started)
	log.Debug("Data source collected",
		zap.Int("products", res.report.Products),
		zap.Int("dropped", res.report.Dropped),
		zap.Int("item_errors", res.report.ItemErrors),
	)
	return res
}

func (a *Aggregator) lookup(ctx context.Context, key string) (*Catalog, bool) {
	if a.cache == nil || a.config.CacheTTL <= 0 {
		return nil, false
	}
	data, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn("Catalog cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var cached Catalog
	if err := json.Unmarshal(data, &cached); err != nil {
		a.logger.Warn("Discarding undecodable cached catalog", zap.Error(err))
		return nil, false
	}
	cached.Cached = true
	return &cached, true
}

func (a *Aggregator) store(ctx context.Context, key string, c *Catalog) {
	if a.cache == nil || a.config.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		a.logger.Warn("Failed to encode catalog for cache", zap.Error(err))
		return
	}
	if err := a.cache.Set(ctx, key, data, a.config.CacheTTL); err != nil {
		a.logger.Warn("Catalog cache write failed", zap.Error(err))
	}
}

func (a *Aggregator) record(success bool, failed int, started time.Time) {
	if a.recorder != nil {
		a.recorder.RecordAggregation(success, failed, a.now().Sub(started))
	}
}

// cacheKey identifies a source list; order matters because it decides representative metadata
func cacheKey(sources []integration.DataSourceConfig) string {
	// Maps encode with sorted keys, so equal configurations hash equally
	data, _ := json.Marshal(sources)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
