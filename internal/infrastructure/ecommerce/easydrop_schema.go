package ecommerce

import (
	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/catalog"
	"github.com/dropship/backend/internal/domain/integration"
)

// EasyDropSchema returns the schema of the EasyDrop YML export:
//
//	<yml_catalog><shop>
//	  <categories><category id="1" parentId="">Name</category></categories>
//	  <offers><offer id="101" group_id="G1" available="true">
//	    <name/> <vendor/> <categoryId/> <description/> <price/> <quantity_in_stock/>
//	    <picture/>... <param name="Size">M</param> <barcode/> <vendorCode/> <currencyId/>
//	  </offer></offers>
//	</shop></yml_catalog>
func EasyDropSchema() FeedSchema {
	return FeedSchema{
		Platform:           catalog.SourceTypeEasyDrop,
		CategoryTag:        "category",
		CategoryIDAttr:     "id",
		CategoryParentAttr: "parentId",

		ItemTag:      "offer",
		IDField:      "id",
		GroupIDField: []string{"group_id"},
		AvailableTag: "available",

		NameTags:        []string{"name", "model"},
		VendorTags:      []string{"vendor"},
		CategoryIDTags:  []string{"categoryId"},
		DescriptionTags: []string{"description"},
		PriceTags:       []string{"price"},
		StockTags:       []string{"quantity_in_stock", "stock_quantity"},
		ImageTags:       []string{"picture"},

		AttributeTag:      "param",
		AttributeNameAttr: "name",

		Passthrough: []PassthroughField{
			{Tag: "barcode", Key: "barcode"},
			{Tag: "vendorCode", Key: "vendor_code"},
			{Tag: "currencyId", Key: "currency"},
			{Tag: "oldprice", Key: "old_price"},
			{Tag: "url", Key: "product_url"},
		},

		PreserveLineBreaks: true,
	}
}

// NewEasyDropParser creates the EasyDrop feed parser
func NewEasyDropParser(sizes integration.SizeNormalizer, logger *zap.Logger, opts ...ParserOption) *SchemaParser {
	return NewSchemaParser(EasyDropSchema(), sizes, logger, opts...)
}
