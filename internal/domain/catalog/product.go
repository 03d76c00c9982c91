package catalog

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// UnknownExternalID is the identity assigned to feed items that carry no id
const UnknownExternalID = "unknown"

// UnifiedProduct is the canonical, platform-agnostic record produced from one feed item.
// It is built once by a feed parser and never mutated afterwards; every collection field
// is non-nil (empty rather than absent).
type UnifiedProduct struct {
	// Identity
	ExternalID string     `json:"external_id"`
	GroupID    string     `json:"group_id,omitempty"`
	SourceType SourceType `json:"source_type"`

	// Commerce
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Available bool            `json:"available"`

	// Content
	Name         string `json:"name"`
	Description  string `json:"description"`
	CategoryID   string `json:"category_id,omitempty"`
	CategoryName string `json:"category_name,omitempty"`

	// Media and open attribute bags
	ImageURLs            []string          `json:"image_urls"`
	Attributes           map[string]string `json:"attributes"`
	PlatformSpecificData map[string]string `json:"platform_specific_data"`

	// Heuristic fields
	Brand    string       `json:"brand,omitempty"`
	Color    string       `json:"color,omitempty"`
	Material string       `json:"material,omitempty"`
	Size     *ProductSize `json:"size,omitempty"`
}

// NewUnifiedProduct creates an empty product for the given source with all
// collections initialized and the unknown-id sentinel as identity
func NewUnifiedProduct(sourceType SourceType) UnifiedProduct {
	return UnifiedProduct{
		ExternalID:           UnknownExternalID,
		SourceType:           sourceType,
		Price:                decimal.Zero,
		ImageURLs:            make([]string, 0),
		Attributes:           make(map[string]string),
		PlatformSpecificData: make(map[string]string),
	}
}

// GroupKey returns the partition key used for variant grouping:
// the group id when present, otherwise the product's own external id
func (p UnifiedProduct) GroupKey() string {
	if p.GroupID != "" {
		return p.GroupID
	}
	return p.ExternalID
}

// VariantKey identifies a logical variant across feeds
type VariantKey struct {
	ExternalID string
	SourceType SourceType
}

// Key returns the (externalId, sourceType) identity of the product
func (p UnifiedProduct) Key() VariantKey {
	return VariantKey{ExternalID: p.ExternalID, SourceType: p.SourceType}
}

// Equal reports whether two products carry the same values
func (p UnifiedProduct) Equal(o UnifiedProduct) bool {
	if p.ExternalID != o.ExternalID || p.GroupID != o.GroupID || p.SourceType != o.SourceType {
		return false
	}
	if !p.Price.Equal(o.Price) || p.Stock != o.Stock || p.Available != o.Available {
		return false
	}
	if p.Name != o.Name || p.Description != o.Description ||
		p.CategoryID != o.CategoryID || p.CategoryName != o.CategoryName {
		return false
	}
	if p.Brand != o.Brand || p.Color != o.Color || p.Material != o.Material {
		return false
	}
	if !slices.Equal(p.ImageURLs, o.ImageURLs) ||
		!maps.Equal(p.Attributes, o.Attributes) ||
		!maps.Equal(p.PlatformSpecificData, o.PlatformSpecificData) {
		return false
	}
	return p.Size.Equal(o.Size)
}

// Clone returns a deep copy so that groups never share collections with their input
func (p UnifiedProduct) Clone() UnifiedProduct {
	c := p
	c.ImageURLs = slices.Clone(p.ImageURLs)
	if c.ImageURLs == nil {
		c.ImageURLs = make([]string, 0)
	}
	c.Attributes = cloneBag(p.Attributes)
	c.PlatformSpecificData = cloneBag(p.PlatformSpecificData)
	if p.Size != nil {
		size := p.Size.Clone()
		c.Size = &size
	}
	return c
}

func cloneBag(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	maps.Copy(out, m)
	return out
}
