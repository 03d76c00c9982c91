package ecommerce

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lookup tables below are read-only after package initialization and shared by all parsers.

// knownBrands is matched as a case-insensitive substring of the product name
var knownBrands = []string{
	"Adidas", "Armani", "Asics", "Calvin Klein", "Champion", "Columbia", "Converse",
	"Diesel", "Fila", "Guess", "Gucci", "H&M", "Hugo Boss", "Lacoste", "Levi's",
	"Mango", "Michael Kors", "New Balance", "Nike", "Prada", "Puma", "Ralph Lauren",
	"Reebok", "Skechers", "The North Face", "Timberland", "Tommy Hilfiger",
	"Under Armour", "Vans", "Versace", "Zara",
}

// colorWords maps English color words to a canonical color
var colorWords = map[string]string{
	"black": "black", "white": "white", "red": "red", "blue": "blue", "navy": "navy",
	"green": "green", "yellow": "yellow", "grey": "grey", "gray": "grey", "pink": "pink",
	"brown": "brown", "beige": "beige", "purple": "purple", "orange": "orange",
}

// colorStems maps Ukrainian and Russian adjective stems to a canonical color
var colorStems = []struct {
	stem  string
	color string
}{
	{"чорн", "black"}, {"черн", "black"},
	{"білий", "white"}, {"біла", "white"}, {"біле", "white"}, {"білі", "white"},
	{"белы", "white"}, {"бела", "white"}, {"бело", "white"},
	{"червон", "red"}, {"красн", "red"},
	{"синій", "blue"}, {"синя", "blue"}, {"синє", "blue"}, {"сині", "blue"},
	{"синий", "blue"}, {"синяя", "blue"}, {"синее", "blue"}, {"синие", "blue"},
	{"блакит", "blue"}, {"голуб", "blue"},
	{"зелен", "green"},
	{"жовт", "yellow"}, {"желт", "yellow"},
	{"сірий", "grey"}, {"сіра", "grey"}, {"сіре", "grey"}, {"сірі", "grey"},
	{"серы", "grey"}, {"сера", "grey"}, {"серо", "grey"},
	{"рожев", "pink"}, {"розов", "pink"},
	{"коричнев", "brown"},
	{"бежев", "beige"},
	{"фіолетов", "purple"}, {"фиолетов", "purple"},
	{"помаранчев", "orange"}, {"оранжев", "orange"},
}

// Attribute names (lower-case) routed to canonical product fields
var (
	sizeAttributeNames     = map[string]bool{"size": true, "розмір": true, "размер": true}
	colorAttributeNames    = map[string]bool{"color": true, "colour": true, "колір": true, "цвет": true}
	materialAttributeNames = map[string]bool{
		"material": true, "матеріал": true, "материал": true, "склад": true, "состав": true,
	}
)

// Description hints; captures are bounded to avoid runaway matches
var (
	materialHintPattern     = regexp.MustCompile(`(?i)(?:матеріал|материал|material|склад|состав)\s*[:\-–]\s*([^\n.;]{1,100})`)
	manufacturerHintPattern = regexp.MustCompile(`(?i)(?:виробник|производитель|manufacturer)\s*[:\-–]\s*([^\n.;,]{1,50})`)
)

var (
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
	}
	imageKeywords = []string{"image", "img", "photo", "picture"}
)

var (
	horizontalSpace = regexp.MustCompile(`[^\S\n]+`)
	blankLines      = regexp.MustCompile(`\s*\n\s*`)
	anyWhitespace   = regexp.MustCompile(`\s+`)
)

// ---------------------------------------------------------------------------
// Text cleanup
// ---------------------------------------------------------------------------

// cleanHTML strips tags, unescapes entities and collapses whitespace.
// With preserveBreaks, <br> variants become newlines and line structure is kept.
func cleanHTML(raw string, preserveBreaks bool) string {
	text := raw
	if strings.ContainsAny(raw, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
		if err == nil {
			breaks := " "
			if preserveBreaks {
				breaks = "\n"
			}
			doc.Find("br").Each(func(_ int, s *goquery.Selection) {
				s.ReplaceWithHtml(breaks)
			})
			doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
				s.AppendHtml(breaks)
			})
			text = doc.Text()
		}
	}
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")

	if !preserveBreaks {
		return strings.TrimSpace(anyWhitespace.ReplaceAllString(text, " "))
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// collapseSpace collapses whitespace runs and trims
func collapseSpace(s string) string {
	return strings.TrimSpace(anyWhitespace.ReplaceAllString(s, " "))
}

// ---------------------------------------------------------------------------
// Heuristic extraction
// ---------------------------------------------------------------------------

// extractBrand returns the longest known brand contained in name, or ""
func extractBrand(name string) string {
	lower := strings.ToLower(name)
	best := ""
	for _, b := range knownBrands {
		if len(b) > len(best) && strings.Contains(lower, strings.ToLower(b)) {
			best = b
		}
	}
	return best
}

// normalizeBrand maps an explicit vendor value to its canonical known-brand
// spelling, or title-cases it
func normalizeBrand(vendor string) string {
	vendor = collapseSpace(vendor)
	if vendor == "" {
		return ""
	}
	for _, b := range knownBrands {
		if strings.EqualFold(b, vendor) {
			return b
		}
	}
	// Casers are stateful; one per call
	return cases.Title(language.Und).String(strings.ToLower(vendor))
}

// extractColor returns the canonical color of the first word that is a known
// color word or starts with a known color stem
func extractColor(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if c, ok := colorWords[w]; ok {
			return c
		}
		for _, c := range colorStems {
			if strings.HasPrefix(w, c.stem) {
				return c.color
			}
		}
	}
	return ""
}

// extractHint returns the first bounded capture of pattern in text
func extractHint(pattern *regexp.Regexp, text string) string {
	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return collapseSpace(m[1])
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

// splitImageURLs splits multi-URL cells on , ; |
func splitImageURLs(cell string) []string {
	parts := strings.FieldsFunc(cell, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// isImageURL reports whether raw is an absolute http(s) URL that looks like an
// image by extension or keyword
func isImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if imageExtensions[strings.ToLower(path.Ext(u.Path))] {
		return true
	}
	lower := strings.ToLower(raw)
	for _, k := range imageKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// collectImageURLs splits, validates and de-duplicates image cells preserving order
func collectImageURLs(cells []string) []string {
	out := make([]string, 0, len(cells))
	seen := make(map[string]struct{}, len(cells))
	for _, cell := range cells {
		for _, u := range splitImageURLs(cell) {
			if !isImageURL(u) {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}
