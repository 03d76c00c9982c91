package ecommerce

import (
	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/catalog"
	"github.com/dropship/backend/internal/domain/integration"
)

// MyDropSchema returns the schema of the MyDrop XML export:
//
//	<catalog>
//	  <categories><category id="1" parent_id="">Name</category></categories>
//	  <products><product id="501" group_id="G1" available="true">
//	    <title/> <category_id/> <description/> <price/> <stock/>
//	    <image/>... <images>a.jpg;b.jpg</images> <attribute name="Розмір">M</attribute>
//	    <sku/> <barcode/> <currency/> <selling_type/>
//	  </product></products>
//	</catalog>
func MyDropSchema() FeedSchema {
	return FeedSchema{
		Platform:           catalog.SourceTypeMyDrop,
		CategoryTag:        "category",
		CategoryIDAttr:     "id",
		CategoryParentAttr: "parent_id",

		ItemTag:      "product",
		IDField:      "id",
		GroupIDField: []string{"group_id", "model_id"},
		AvailableTag: "available",

		NameTags:        []string{"title", "name"},
		VendorTags:      []string{"brand", "vendor"},
		CategoryIDTags:  []string{"category_id", "categoryId"},
		DescriptionTags: []string{"description"},
		PriceTags:       []string{"price", "retail_price"},
		StockTags:       []string{"stock", "quantity"},
		ImageTags:       []string{"image", "images", "picture"},

		AttributeTag:      "attribute",
		AttributeNameAttr: "name",

		Passthrough: []PassthroughField{
			{Tag: "sku", Key: "vendor_code"},
			{Tag: "barcode", Key: "barcode"},
			{Tag: "currency", Key: "currency"},
			{Tag: "selling_type", Key: "selling_type"},
		},

		ExtractDescriptionHints: true,
	}
}

// NewMyDropParser creates the MyDrop feed parser
func NewMyDropParser(sizes integration.SizeNormalizer, logger *zap.Logger, opts ...ParserOption) *SchemaParser {
	return NewSchemaParser(MyDropSchema(), sizes, logger, opts...)
}
