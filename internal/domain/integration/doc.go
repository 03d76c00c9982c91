// Package integration describes how supplier feeds plug into the catalog.
//
// A DataSourceConfig names one feed: its platform, URL, export_unavailable
// flag and request headers. A FeedParser turns a platform document into
// canonical products and reports per-item failures as ItemError values
// instead of aborting the feed. ParserRegistry picks the parser from the
// platform; SizeNormalizer is the port parsers use for raw size labels.
//
// Adapters live in infrastructure/ecommerce (parsers) and
// infrastructure/sizing (normalizer).
package integration
