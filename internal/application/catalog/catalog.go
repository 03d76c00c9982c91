package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/dropship/backend/internal/domain/catalog"
)

// UncategorizedKey is the Statistics.ByCategory key for products without a category
const UncategorizedKey = "uncategorized"

// SourceReport describes the contribution of one configured source
type SourceReport struct {
	Index      int                `json:"index"`
	Platform   catalog.SourceType `json:"platform"`
	URL        string             `json:"url"`
	Products   int                `json:"products"`
	Dropped    int                `json:"dropped"`
	Categories int                `json:"categories"`
	ItemErrors int                `json:"item_errors"`
	Duration   time.Duration      `json:"duration"`
	Err        error              `json:"-"`
	Error      string             `json:"error,omitempty"`
}

// Failed returns true if the source contributed nothing because it failed
func (r SourceReport) Failed() bool {
	return r.Err != nil || r.Error != ""
}

// Catalog is the result of one aggregation. It is read-only once returned.
type Catalog struct {
	Groups      []catalog.ProductVariantGroup `json:"groups"`
	Categories  []catalog.Category            `json:"categories"`
	Sources     []SourceReport                `json:"sources"`
	GeneratedAt time.Time                     `json:"generated_at"`
	Cached      bool                          `json:"cached"`
}

// Statistics summarizes a catalog
type Statistics struct {
	TotalGroups         int                        `json:"total_groups"`
	TotalProducts       int                        `json:"total_products"`
	AvailableProducts   int                        `json:"available_products"`
	UnavailableProducts int                        `json:"unavailable_products"`
	ByPlatform          map[catalog.SourceType]int `json:"by_platform"`
	ByCategory          map[string]int             `json:"by_category"`
	AveragePrice        decimal.Decimal            `json:"average_price"`
	FailedSources       int                        `json:"failed_sources"`
}

// Products returns every variant of every group in group order
func (c *Catalog) Products() []catalog.UnifiedProduct {
	return catalog.Flatten(c.Groups)
}

// FailedSources returns the number of sources that failed
func (c *Catalog) FailedSources() int {
	n := 0
	for _, r := range c.Sources {
		if r.Failed() {
			n++
		}
	}
	return n
}

// Search returns the groups with at least one variant whose name contains query,
// compared case-insensitively. An empty query matches every group.
func (c *Catalog) Search(query string) []catalog.ProductVariantGroup {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))
	return c.filter(func(p catalog.UnifiedProduct) bool {
		return strings.Contains(fold.String(p.Name), needle)
	})
}

// FilterByCategory returns the groups with at least one variant in the category
func (c *Catalog) FilterByCategory(categoryID string) []catalog.ProductVariantGroup {
	return c.filter(func(p catalog.UnifiedProduct) bool {
		return p.CategoryID == categoryID
	})
}

func (c *Catalog) filter(match func(catalog.UnifiedProduct) bool) []catalog.ProductVariantGroup {
	out := make([]catalog.ProductVariantGroup, 0)
	for _, g := range c.Groups {
		for _, v := range g.Variants {
			if match(v) {
				out = append(out, g)
				break
			}
		}
	}
	return out
}

// Statistics computes summary counts over all variants
func (c *Catalog) Statistics() Statistics {
	stats := Statistics{
		TotalGroups:   len(c.Groups),
		ByPlatform:    make(map[catalog.SourceType]int),
		ByCategory:    make(map[string]int),
		AveragePrice:  decimal.Zero,
		FailedSources: c.FailedSources(),
	}

	total := decimal.Zero
	for _, p := range c.Products() {
		stats.TotalProducts++
		if p.Available {
			stats.AvailableProducts++
		} else {
			stats.UnavailableProducts++
		}
		stats.ByPlatform[p.SourceType]++
		stats.ByCategory[categoryKey(p)]++
		total = total.Add(p.Price)
	}

	if stats.TotalProducts > 0 {
		stats.AveragePrice = total.Div(decimal.NewFromInt(int64(stats.TotalProducts))).Round(2)
	}
	return stats
}

// CategoryNames returns the distinct category keys of the catalog, sorted
func (s Statistics) CategoryNames() []string {
	names := make([]string, 0, len(s.ByCategory))
	for name := range s.ByCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func categoryKey(p catalog.UnifiedProduct) string {
	switch {
	case p.CategoryName != "":
		return p.CategoryName
	case p.CategoryID != "":
		return p.CategoryID
	default:
		return UncategorizedKey
	}
}
