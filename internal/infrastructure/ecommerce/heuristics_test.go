package ecommerce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropship/backend/internal/domain/catalog"
)

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		preserve bool
		want     string
	}{
		{name: "plain text", raw: "  simple   text ", want: "simple text"},
		{name: "tags stripped", raw: "<b>Bold</b> and <i>italic</i>", want: "Bold and italic"},
		{name: "entities", raw: "Tom &amp; Jerry&nbsp;show", want: "Tom & Jerry show"},
		{name: "breaks collapsed", raw: "one<br>two<br/>three", want: "one two three"},
		{name: "breaks preserved", raw: "one<br>two<BR />three", preserve: true, want: "one\ntwo\nthree"},
		{name: "paragraphs preserved", raw: "<p>first</p><p>second</p>", preserve: true, want: "first\nsecond"},
		{name: "blank lines squeezed", raw: "a<br><br><br>b", preserve: true, want: "a\nb"},
		{name: "empty", raw: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanHTML(tt.raw, tt.preserve))
		})
	}
}

func TestExtractBrand(t *testing.T) {
	assert.Equal(t, "Nike", extractBrand("Кросівки NIKE Air"))
	assert.Equal(t, "Tommy Hilfiger", extractBrand("Сорочка tommy hilfiger slim"))
	assert.Equal(t, "The North Face", extractBrand("Куртка The North Face"), "longest match wins")
	assert.Empty(t, extractBrand("Сукня літня"))
}

func TestNormalizeBrand(t *testing.T) {
	assert.Equal(t, "Adidas", normalizeBrand("ADIDAS"))
	assert.Equal(t, "Levi's", normalizeBrand(" levi's "))
	assert.Equal(t, "Local Atelier", normalizeBrand("local   ATELIER"))
	assert.Empty(t, normalizeBrand("  "))
}

func TestExtractColor(t *testing.T) {
	assert.Equal(t, "black", extractColor("Футболка чорна"))
	assert.Equal(t, "red", extractColor("Платье красное"))
	assert.Equal(t, "grey", extractColor("Hoodie GRAY oversize"))
	assert.Equal(t, "blue", extractColor("Сукня синя"))
	assert.Empty(t, extractColor("Сумка шкіряна"))
	assert.Empty(t, extractColor("Grayson bag"), "partial English words do not match")
}

func TestExtractHint(t *testing.T) {
	text := "Опис. Склад: 95% бавовна, 5% еластан. Виробник - Туреччина, Стамбул"
	assert.Equal(t, "95% бавовна, 5% еластан", extractHint(materialHintPattern, text))
	assert.Equal(t, "Туреччина", extractHint(manufacturerHintPattern, text))
	assert.Empty(t, extractHint(materialHintPattern, "no hints here"))
}

func TestCollectImageURLs(t *testing.T) {
	cells := []string{
		"https://cdn.example.com/a.jpg",
		" https://cdn.example.com/b.PNG ; https://cdn.example.com/a.jpg | https://cdn.example.com/photos/123",
		"/relative/c.jpg,data:image/png;base64,AAAA",
		"https://cdn.example.com/manual.pdf",
		"",
	}
	got := collectImageURLs(cells)
	assert.Equal(t, []string{
		"https://cdn.example.com/a.jpg",
		"https://cdn.example.com/b.PNG",
		"https://cdn.example.com/photos/123",
	}, got)

	assert.NotNil(t, collectImageURLs(nil))
}

func TestParsePrice(t *testing.T) {
	valid := map[string]string{
		"":          "0",
		"100":       "100",
		" 12.50 ":   "12.5",
		"1 299,99":  "1299.99",
		"0":         "0",
		"0000042.1": "42.1",
	}
	for raw, want := range valid {
		price, err := parsePrice(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, price.String(), raw)
	}
	for _, raw := range []string{"abc", "-1", "12,5,0", "$10"} {
		_, err := parsePrice(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseStock(t *testing.T) {
	tests := map[string]int{
		"":                      0,
		" 7 ":                   7,
		"3.0":                   3,
		"4,9":                   4,
		"-2":                    0,
		"many":                  0,
		"NaN":                   0,
		"-Inf":                  0,
		"Inf":                   maxStock,
		"1e30":                  maxStock,
		"3000000000":            maxStock,
		"99999999999999999999":  maxStock,
		"-99999999999999999999": 0,
	}
	for raw, want := range tests {
		assert.Equal(t, want, parseStock(raw), "stock %q", raw)
	}
}

func TestParseDocument_MarkupAndNesting(t *testing.T) {
	doc := `<Root><Item ID="1"><Description>Hello <b>world</b><br>bye</Description><Name>x</Name></Item></Root>`
	root := parseDocument([]byte(doc), map[string]bool{"description": true}, "item")

	items := root.find("item")
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].attr("id"))
	assert.Equal(t, "Hello <b>world</b><br>bye", items[0].child("description").value())
	assert.Equal(t, "x", items[0].field("name"))
	assert.Nil(t, items[0].child("b"), "markup children are not elements")
}

func TestParseDocument_ResumesAfterBrokenItem(t *testing.T) {
	doc := `<root><item id="1"><name>ok</name></item><item id="2"><name>a < b</name></item><item id="3"><name>fine</name></item></root>`
	root := parseDocument([]byte(doc), nil, "item")

	items := root.find("item")
	require.Len(t, items, 3)
	assert.Nil(t, items[0].broken)
	assert.Error(t, items[1].broken)
	assert.Equal(t, "2", items[1].attr("id"))
	assert.Nil(t, items[2].broken)
	assert.Equal(t, "fine", items[2].field("name"))
}

func TestNextStartTag(t *testing.T) {
	data := []byte(`<offers><offer-list/><OFFER id="1"></offer><offer>`)
	assert.Equal(t, 21, nextStartTag(data, 0, "offer"))
	assert.Equal(t, 43, nextStartTag(data, 22, "offer"))
	assert.Equal(t, -1, nextStartTag(data, 44, "offer"))
	assert.Equal(t, -1, nextStartTag(data, 0, ""))
}

func TestNewDefaultRegistry(t *testing.T) {
	registry := NewDefaultRegistry(nil, nil)
	assert.ElementsMatch(t, catalog.AllSourceTypes(), registry.Platforms())

	parser, err := registry.Get(catalog.SourceTypeMyDrop)
	require.NoError(t, err)
	assert.Equal(t, catalog.SourceTypeMyDrop, parser.Platform())
}
