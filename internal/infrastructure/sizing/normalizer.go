// Package sizing provides the default heuristic size normalizer for feed products.
package sizing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dropship/backend/internal/domain/catalog"
	"github.com/dropship/backend/internal/domain/integration"
)

// alphaToEU maps letter sizes to EU clothing sizes
var alphaToEU = map[string]string{
	"XXS": "40", "XS": "42", "S": "44", "M": "46", "L": "48",
	"XL": "50", "XXL": "52", "XXXL": "54", "4XL": "56", "5XL": "58",
}

// alphaAliases rewrites numeric-prefixed letter sizes
var alphaAliases = map[string]string{"2XL": "XXL", "3XL": "XXXL", "XXXXL": "4XL", "XXXXXL": "5XL"}

var oneSizeTokens = map[string]bool{
	"ONE SIZE": true, "ONESIZE": true, "OS": true, "UNI": true, "UNIVERSAL": true,
	"ЄДИНИЙ": true, "ЕДИНЫЙ": true, "УНІВЕРСАЛЬНИЙ": true, "УНИВЕРСАЛЬНЫЙ": true,
}

// Context keywords found in product or category names
var (
	shoeKeywords = []string{
		"shoe", "sneaker", "boot", "sandal", "взутт", "обув", "кросівк", "кроссовк",
		"черевик", "ботин", "туфл", "чоботи", "сапог", "босоніжк", "босоножк", "кеди", "кеды",
	}
	pantsKeywords = []string{
		"jeans", "pants", "trousers", "джинс", "штани", "штаны", "брюки",
	}
	accessoryKeywords = []string{
		"bag", "belt", "glove", "scarf", "сумк", "ремін", "ремен", "пояс",
		"шапк", "кепк", "рукавич", "перчат", "шарф",
	}
)

var (
	numberPattern   = regexp.MustCompile(`^\d{1,3}([.,]5)?$`)
	waistPattern    = regexp.MustCompile(`^W\s*(\d{2})(?:\s*[/ ]?\s*L\s*(\d{2}))?$`)
	combinedPattern = regexp.MustCompile(`^([A-Z0-9.,]+)\s*[/\-–]\s*([A-Z0-9.,]+)$`)
)

// Normalizer classifies raw size tokens using the product and category names as hints.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct{}

var _ integration.SizeNormalizer = Normalizer{}

// NewNormalizer creates the default size normalizer
func NewNormalizer() Normalizer {
	return Normalizer{}
}

// Normalize implements integration.SizeNormalizer
func (Normalizer) Normalize(raw, productName, categoryName string) catalog.ProductSize {
	token := strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	if token == "" {
		return catalog.UnknownSize(raw)
	}
	hints := strings.ToLower(productName + " " + categoryName)

	if oneSizeTokens[token] {
		return newSize(raw, catalog.SizeTypeAccessories, "ONE SIZE", "")
	}
	if alpha, ok := normalizeAlpha(token); ok {
		size := newSize(raw, catalog.SizeTypeClothingAlpha, alpha, "")
		size.AdditionalSizes["eu"] = alphaToEU[alpha]
		return size
	}
	if m := waistPattern.FindStringSubmatch(token); m != nil {
		size := newSize(raw, catalog.SizeTypePantsWaist, m[1], "W")
		if m[2] != "" {
			size.AdditionalSizes["length"] = m[2]
		}
		return size
	}
	if numberPattern.MatchString(token) {
		return classifyNumeric(raw, strings.ReplaceAll(token, ",", "."), hints)
	}
	if m := combinedPattern.FindStringSubmatch(token); m != nil {
		return combined(raw, m[1], m[2], hints)
	}
	if containsAny(hints, accessoryKeywords) {
		return newSize(raw, catalog.SizeTypeAccessories, token, "")
	}
	return catalog.UnknownSize(raw)
}

// classifyNumeric decides between shoe, waist and clothing scales
func classifyNumeric(raw, value, hints string) catalog.ProductSize {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return catalog.UnknownSize(raw)
	}
	switch {
	case containsAny(hints, shoeKeywords):
		if n >= 33 && n <= 50 {
			return newSize(raw, catalog.SizeTypeShoeEU, value, "EU")
		}
		if n >= 3 && n <= 16 {
			return newSize(raw, catalog.SizeTypeShoeUS, value, "US")
		}
	case containsAny(hints, pantsKeywords):
		if n >= 23 && n <= 44 {
			return newSize(raw, catalog.SizeTypePantsWaist, value, "W")
		}
	}
	if n >= 36 && n <= 70 {
		return newSize(raw, catalog.SizeTypeClothingNumeric, value, "EU")
	}
	if containsAny(hints, accessoryKeywords) {
		return newSize(raw, catalog.SizeTypeAccessories, value, "")
	}
	return catalog.UnknownSize(raw)
}

// combined handles tokens such as "M/46", "S-M" or "44-46"
func combined(raw, left, right, hints string) catalog.ProductSize {
	first := normalizePart(left, hints)
	second := normalizePart(right, hints)
	if first.Type == catalog.SizeTypeUnknown || second.Type == catalog.SizeTypeUnknown {
		return catalog.UnknownSize(raw)
	}
	size := newSize(raw, catalog.SizeTypeCombined, first.NormalizedValue+"/"+second.NormalizedValue, "")
	size.AdditionalSizes["primary"] = first.NormalizedValue
	size.AdditionalSizes["secondary"] = second.NormalizedValue
	size.AdditionalSizes["primary_type"] = string(first.Type)
	size.AdditionalSizes["secondary_type"] = string(second.Type)
	return size
}

func normalizePart(part, hints string) catalog.ProductSize {
	if alpha, ok := normalizeAlpha(part); ok {
		return newSize(part, catalog.SizeTypeClothingAlpha, alpha, "")
	}
	if numberPattern.MatchString(part) {
		return classifyNumeric(part, strings.ReplaceAll(part, ",", "."), hints)
	}
	return catalog.UnknownSize(part)
}

func normalizeAlpha(token string) (string, bool) {
	if alias, ok := alphaAliases[token]; ok {
		token = alias
	}
	_, ok := alphaToEU[token]
	return token, ok
}

func newSize(raw string, t catalog.SizeType, normalized, unit string) catalog.ProductSize {
	return catalog.ProductSize{
		OriginalValue:   raw,
		Type:            t,
		NormalizedValue: normalized,
		Unit:            unit,
		AdditionalSizes: make(map[string]string),
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
