package catalog

import "maps"

// SizeType classifies a normalized size value
type SizeType string

const (
	SizeTypeClothingAlpha   SizeType = "CLOTHING_ALPHA"
	SizeTypeClothingNumeric SizeType = "CLOTHING_NUMERIC"
	SizeTypeShoeEU          SizeType = "SHOE_EU"
	SizeTypeShoeUS          SizeType = "SHOE_US"
	SizeTypePantsWaist      SizeType = "PANTS_WAIST"
	SizeTypeCombined        SizeType = "COMBINED"
	SizeTypeAccessories     SizeType = "ACCESSORIES"
	SizeTypeUnknown         SizeType = "UNKNOWN"
)

// ProductSize is the output of the size-normalization collaborator
type ProductSize struct {
	OriginalValue   string            `json:"original_value"`
	Type            SizeType          `json:"type"`
	NormalizedValue string            `json:"normalized_value"`
	Unit            string            `json:"unit,omitempty"`
	AdditionalSizes map[string]string `json:"additional_sizes"`
}

// UnknownSize returns a size that could not be classified; the raw value is kept as-is
func UnknownSize(raw string) ProductSize {
	return ProductSize{
		OriginalValue:   raw,
		Type:            SizeTypeUnknown,
		NormalizedValue: raw,
		AdditionalSizes: make(map[string]string),
	}
}

// Equal compares two optional sizes by value
func (s *ProductSize) Equal(o *ProductSize) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.OriginalValue == o.OriginalValue &&
		s.Type == o.Type &&
		s.NormalizedValue == o.NormalizedValue &&
		s.Unit == o.Unit &&
		maps.Equal(s.AdditionalSizes, o.AdditionalSizes)
}

// Clone returns a deep copy of the size
func (s ProductSize) Clone() ProductSize {
	c := s
	c.AdditionalSizes = make(map[string]string, len(s.AdditionalSizes))
	maps.Copy(c.AdditionalSizes, s.AdditionalSizes)
	return c
}
