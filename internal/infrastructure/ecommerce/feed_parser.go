package ecommerce

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/catalog"
	"github.com/dropship/backend/internal/domain/integration"
)

// ParseRecorder observes parse outcomes
type ParseRecorder interface {
	RecordParse(platform string, products, itemErrors int, duration time.Duration)
}

type nopParseRecorder struct{}

func (nopParseRecorder) RecordParse(string, int, int, time.Duration) {}

// ParserOption configures a SchemaParser
type ParserOption func(*SchemaParser)

// WithParseRecorder sets the metrics recorder
func WithParseRecorder(r ParseRecorder) ParserOption {
	return func(p *SchemaParser) {
		if r != nil {
			p.recorder = r
		}
	}
}

// SchemaParser implements integration.FeedParser for any platform described by a FeedSchema
type SchemaParser struct {
	schema     FeedSchema
	markupTags map[string]bool
	sizes      integration.SizeNormalizer
	recorder   ParseRecorder
	logger     *zap.Logger
}

var _ integration.FeedParser = (*SchemaParser)(nil)

// NewSchemaParser creates a parser for the given schema. A nil size normalizer
// classifies every size as unknown.
func NewSchemaParser(schema FeedSchema, sizes integration.SizeNormalizer, logger *zap.Logger, opts ...ParserOption) *SchemaParser {
	if sizes == nil {
		sizes = integration.SizeNormalizerFunc(func(raw, _, _ string) catalog.ProductSize {
			return catalog.UnknownSize(raw)
		})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	schema = schema.normalized()
	p := &SchemaParser{
		schema:     schema,
		markupTags: schema.markupTags(),
		sizes:      sizes,
		recorder:   nopParseRecorder{},
		logger:     logger.With(zap.String("platform", schema.Platform.String())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Platform returns the platform identity this parser handles
func (p *SchemaParser) Platform() catalog.SourceType {
	return p.schema.Platform
}

// Parse parses a feed document. It never fails: malformed input yields an empty
// result, and a defective item, including one with broken markup, is reported
// in Errors and skipped.
// Cancellation stops the parse after the current item.
func (p *SchemaParser) Parse(ctx context.Context, document []byte) integration.ParseResult {
	start := time.Now()
	result := integration.EmptyParseResult()

	root := parseDocument(document, p.markupTags, p.schema.ItemTag)

	result.Categories = p.parseCategories(root)
	index := catalog.NewCategoryIndex(result.Categories)

	for i, item := range root.find(p.schema.ItemTag) {
		if ctx.Err() != nil {
			p.logger.Warn("Feed parse interrupted", zap.Int("items_parsed", i), zap.Error(ctx.Err()))
			break
		}
		product, err := p.parseItemSafely(item, index)
		if item.broken != nil {
			err = fmt.Errorf("%w: %v", integration.ErrMalformedItem, item.broken)
		}
		if err != nil {
			itemErr := integration.ItemError{
				Index:      i,
				ExternalID: item.field(p.schema.IDField),
				Message:    err.Error(),
				Err:        err,
			}
			result.Errors = append(result.Errors, itemErr)
			p.logger.Warn("Skipping feed item", zap.Int("item_index", i), zap.Error(itemErr))
			continue
		}
		result.Products = append(result.Products, product)
	}

	p.recorder.RecordParse(p.schema.Platform.String(), len(result.Products), len(result.Errors), time.Since(start))
	p.logger.Debug("Feed parsed",
		zap.Int("products", len(result.Products)),
		zap.Int("categories", len(result.Categories)),
		zap.Int("item_errors", len(result.Errors)),
	)
	return result
}

// parseCategories reads every category element that carries an id
func (p *SchemaParser) parseCategories(root *element) []catalog.Category {
	categories := make([]catalog.Category, 0)
	for _, el := range root.find(p.schema.CategoryTag) {
		id := strings.TrimSpace(el.attr(p.schema.CategoryIDAttr))
		if id == "" {
			continue
		}
		c := catalog.Category{
			ID:         id,
			Name:       collapseSpace(el.value()),
			SourceType: p.schema.Platform,
		}
		if parent := strings.TrimSpace(el.attr(p.schema.CategoryParentAttr)); parent != "" {
			c.ParentID = &parent
		}
		categories = append(categories, c)
	}
	return categories
}

// parseItemSafely converts a panic inside one item into an item error
func (p *SchemaParser) parseItemSafely(item *element, index catalog.CategoryIndex) (product catalog.UnifiedProduct, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", integration.ErrItemPanicked, r)
		}
	}()
	return p.parseItem(item, index)
}

// parseItem extracts one product in a fixed order: identity, name and brand,
// category, description and hints, commerce fields, images, attributes, passthrough
func (p *SchemaParser) parseItem(item *element, index catalog.CategoryIndex) (catalog.UnifiedProduct, error) {
	s := p.schema
	product := catalog.NewUnifiedProduct(s.Platform)

	// Identity
	if id := item.field(s.IDField); id != "" {
		product.ExternalID = id
	}
	product.GroupID = firstField(item, s.GroupIDField)

	// Name and brand
	product.Name = collapseSpace(firstChildValue(item, s.NameTags))
	if vendor := firstChildValue(item, s.VendorTags); vendor != "" {
		product.Brand = normalizeBrand(vendor)
	} else {
		product.Brand = extractBrand(product.Name)
	}

	// Category
	product.CategoryID = firstChildValue(item, s.CategoryIDTags)
	product.CategoryName = index.Name(product.CategoryID)

	// Description and hints
	product.Description = cleanHTML(firstChildValue(item, s.DescriptionTags), s.PreserveLineBreaks)
	if s.ExtractDescriptionHints {
		product.Material = extractHint(materialHintPattern, product.Description)
		if m := extractHint(manufacturerHintPattern, product.Description); m != "" {
			product.PlatformSpecificData["manufacturer"] = m
			if product.Brand == "" {
				product.Brand = normalizeBrand(m)
			}
		}
	}

	// Commerce
	price, err := parsePrice(firstChildValue(item, s.PriceTags))
	if err != nil {
		return catalog.UnifiedProduct{}, err
	}
	product.Price = price
	product.Stock = parseStock(firstChildValue(item, s.StockTags))
	product.Available = item.field(s.AvailableTag) == "true" && product.Stock > 0

	// Images
	cells := make([]string, 0, 4)
	for _, tag := range s.ImageTags {
		for _, el := range item.childrenNamed(tag) {
			cells = append(cells, el.value())
			for _, nested := range el.children {
				cells = append(cells, nested.value())
			}
		}
	}
	product.ImageURLs = collectImageURLs(cells)

	// Attributes
	for _, attr := range item.childrenNamed(s.AttributeTag) {
		name := collapseSpace(attr.attr(s.AttributeNameAttr))
		value := collapseSpace(attr.value())
		if name == "" || value == "" {
			continue
		}
		key := strings.ToLower(name)
		switch {
		case sizeAttributeNames[key]:
			size := p.sizes.Normalize(value, product.Name, product.CategoryName)
			product.Size = &size
		case colorAttributeNames[key]:
			product.Color = value
			product.Attributes[name] = value
		case materialAttributeNames[key]:
			if product.Material == "" {
				product.Material = value
			}
			product.Attributes[name] = value
		default:
			product.Attributes[name] = value
		}
	}
	if product.Color == "" {
		product.Color = extractColor(product.Name)
	}

	// Platform-specific passthrough
	for _, f := range s.Passthrough {
		if v := collapseSpace(item.child(f.Tag).value()); v != "" {
			product.PlatformSpecificData[f.Key] = v
		}
	}

	return product, nil
}

// parsePrice parses a non-negative decimal price; comma decimal separators and
// spaces are accepted. An empty price is zero.
func parsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	cleaned := strings.ReplaceAll(strings.ReplaceAll(raw, " ", ""), ",", ".")
	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", integration.ErrInvalidPrice, raw)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative value %q", integration.ErrInvalidPrice, raw)
	}
	return price, nil
}

// maxStock caps quantities that overflow the feed's integer range
const maxStock = math.MaxInt32

// parseStock parses a stock quantity; missing, malformed or negative values are
// zero and oversized values are capped at maxStock
func parseStock(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	switch {
	case err == nil:
		return int(min(max(n, 0), maxStock))
	case errors.Is(err, strconv.ErrRange):
		if strings.HasPrefix(raw, "-") {
			return 0
		}
		return maxStock
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= maxStock {
		return maxStock
	}
	return int(f)
}

func firstChildValue(item *element, tags []string) string {
	for _, tag := range tags {
		if v := item.child(tag).value(); v != "" {
			return v
		}
	}
	return ""
}

func firstField(item *element, names []string) string {
	for _, name := range names {
		if v := item.field(name); v != "" {
			return v
		}
	}
	return ""
}
