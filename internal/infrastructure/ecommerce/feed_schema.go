package ecommerce

import (
	"strings"

	"github.com/dropship/backend/internal/domain/catalog"
)

// PassthroughField copies a feed field into PlatformSpecificData under Key
type PassthroughField struct {
	Tag string
	Key string
}

// FeedSchema describes where a platform's feed keeps each canonical field.
// Tag and attribute names are matched case-insensitively. Lists are tried in
// order; the first non-empty value wins unless stated otherwise.
type FeedSchema struct {
	Platform catalog.SourceType

	// Categories
	CategoryTag        string
	CategoryIDAttr     string
	CategoryParentAttr string

	// Items; identity fields are read from an attribute or a child tag of the same name
	ItemTag      string
	IDField      string
	GroupIDField []string
	AvailableTag string

	NameTags        []string
	VendorTags      []string
	CategoryIDTags  []string
	DescriptionTags []string
	PriceTags       []string
	StockTags       []string
	ImageTags       []string // every occurrence of every tag is collected

	AttributeTag      string
	AttributeNameAttr string

	Passthrough []PassthroughField

	// PreserveLineBreaks turns <br> into newlines in descriptions
	PreserveLineBreaks bool
	// ExtractDescriptionHints enables the material and manufacturer description hints
	ExtractDescriptionHints bool
}

// normalized returns a copy with every tag and attribute name lower-cased
func (s FeedSchema) normalized() FeedSchema {
	s.CategoryTag = strings.ToLower(s.CategoryTag)
	s.CategoryIDAttr = strings.ToLower(s.CategoryIDAttr)
	s.CategoryParentAttr = strings.ToLower(s.CategoryParentAttr)
	s.ItemTag = strings.ToLower(s.ItemTag)
	s.IDField = strings.ToLower(s.IDField)
	s.GroupIDField = lowerAll(s.GroupIDField)
	s.AvailableTag = strings.ToLower(s.AvailableTag)
	s.NameTags = lowerAll(s.NameTags)
	s.VendorTags = lowerAll(s.VendorTags)
	s.CategoryIDTags = lowerAll(s.CategoryIDTags)
	s.DescriptionTags = lowerAll(s.DescriptionTags)
	s.PriceTags = lowerAll(s.PriceTags)
	s.StockTags = lowerAll(s.StockTags)
	s.ImageTags = lowerAll(s.ImageTags)
	s.AttributeTag = strings.ToLower(s.AttributeTag)
	s.AttributeNameAttr = strings.ToLower(s.AttributeNameAttr)
	passthrough := make([]PassthroughField, len(s.Passthrough))
	for i, p := range s.Passthrough {
		passthrough[i] = PassthroughField{Tag: strings.ToLower(p.Tag), Key: p.Key}
	}
	s.Passthrough = passthrough
	return s
}

// markupTags returns the elements whose nested HTML is kept as markup
func (s FeedSchema) markupTags() map[string]bool {
	tags := make(map[string]bool, len(s.DescriptionTags))
	for _, t := range s.DescriptionTags {
		tags[t] = true
	}
	return tags
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.ToLower(v)
	}
	return out
}
