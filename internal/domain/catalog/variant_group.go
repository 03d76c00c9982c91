package catalog

import (
	"slices"
	"time"
)

// ProductVariantGroup groups products that share a group identity.
// Representative fields come from the first variant added; AddVariant is the only
// mutation allowed after construction.
type ProductVariantGroup struct {
	GroupID      string   `json:"group_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	CategoryID   string   `json:"category_id,omitempty"`
	CategoryName string   `json:"category_name,omitempty"`
	ImageURLs    []string `json:"image_urls"`

	Variants        []UnifiedProduct `json:"variants"`
	SourcePlatforms []SourceType     `json:"source_platforms"`
	LastUpdated     time.Time        `json:"last_updated"`

	index map[VariantKey]int
}

// NewProductVariantGroup creates a group whose representative fields are taken from rep.
// rep itself is added as the first variant.
func NewProductVariantGroup(rep UnifiedProduct, now time.Time) *ProductVariantGroup {
	g := &ProductVariantGroup{
		GroupID:         rep.GroupKey(),
		Name:            rep.Name,
		Description:     rep.Description,
		CategoryID:      rep.CategoryID,
		CategoryName:    rep.CategoryName,
		ImageURLs:       slices.Clone(rep.ImageURLs),
		Variants:        make([]UnifiedProduct, 0, 1),
		SourcePlatforms: make([]SourceType, 0, 1),
		index:           make(map[VariantKey]int),
	}
	if g.ImageURLs == nil {
		g.ImageURLs = make([]string, 0)
	}
	g.AddVariant(rep, now)
	return g
}

// AddVariant adds a product as a variant of the group. A product whose
// (ExternalID, SourceType) is already present is not added again.
// Returns true if the variant was added.
func (g *ProductVariantGroup) AddVariant(p UnifiedProduct, now time.Time) bool {
	if g.index == nil {
		g.reindex()
	}
	key := p.Key()
	if _, exists := g.index[key]; exists {
		return false
	}
	g.index[key] = len(g.Variants)
	g.Variants = append(g.Variants, p.Clone())
	if !slices.Contains(g.SourcePlatforms, p.SourceType) {
		g.SourcePlatforms = append(g.SourcePlatforms, p.SourceType)
	}
	g.LastUpdated = now
	return true
}

// HasPlatform returns true if a variant from the given platform is in the group
func (g *ProductVariantGroup) HasPlatform(s SourceType) bool {
	return slices.Contains(g.SourcePlatforms, s)
}

// VariantCount returns the number of distinct variants
func (g *ProductVariantGroup) VariantCount() int {
	return len(g.Variants)
}

// AvailableVariants returns the variants that can currently be sold
func (g *ProductVariantGroup) AvailableVariants() []UnifiedProduct {
	out := make([]UnifiedProduct, 0, len(g.Variants))
	for _, v := range g.Variants {
		if v.Available {
			out = append(out, v)
		}
	}
	return out
}

// reindex rebuilds the dedup index, used for groups decoded from JSON
func (g *ProductVariantGroup) reindex() {
	g.index = make(map[VariantKey]int, len(g.Variants))
	for i, v := range g.Variants {
		g.index[v.Key()] = i
	}
}
