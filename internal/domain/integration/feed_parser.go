package integration

import (
	"context"
	"fmt"
	"sync"

	"github.com/dropship/backend/internal/domain/catalog"
)

// ---------------------------------------------------------------------------
// FeedParser Port Interface
// ---------------------------------------------------------------------------

// FeedParser parses one platform-specific feed document into canonical records.
// Implementations never fail: malformed or empty documents yield an empty result
// and per-item defects are reported in ParseResult.Errors.
type FeedParser interface {
	// Platform returns the platform identity this parser handles
	Platform() catalog.SourceType

	// Parse parses a raw feed document
	Parse(ctx context.Context, document []byte) ParseResult
}

// ParseResult is the output of one parse cycle
type ParseResult struct {
	Products   []catalog.UnifiedProduct `json:"products"`
	Categories []catalog.Category       `json:"categories"`
	Errors     []ItemError              `json:"errors,omitempty"`
}

// EmptyParseResult returns a result with non-nil empty collections
func EmptyParseResult() ParseResult {
	return ParseResult{
		Products:   make([]catalog.UnifiedProduct, 0),
		Categories: make([]catalog.Category, 0),
		Errors:     make([]ItemError, 0),
	}
}

// ItemError describes one skipped feed item
type ItemError struct {
	Index      int    `json:"index"`
	ExternalID string `json:"external_id,omitempty"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e ItemError) Error() string {
	if e.ExternalID != "" {
		return fmt.Sprintf("item %d (%s): %s", e.Index, e.ExternalID, e.Message)
	}
	return fmt.Sprintf("item %d: %s", e.Index, e.Message)
}

// Unwrap returns the underlying cause
func (e ItemError) Unwrap() error {
	return e.Err
}

// ---------------------------------------------------------------------------
// SizeNormalizer Port Interface
// ---------------------------------------------------------------------------

// SizeNormalizer is the size-normalization collaborator. The product name and
// category name are disambiguating context only.
type SizeNormalizer interface {
	Normalize(raw, productName, categoryName string) catalog.ProductSize
}

// SizeNormalizerFunc adapts a function to SizeNormalizer
type SizeNormalizerFunc func(raw, productName, categoryName string) catalog.ProductSize

// Normalize implements SizeNormalizer
func (f SizeNormalizerFunc) Normalize(raw, productName, categoryName string) catalog.ProductSize {
	return f(raw, productName, categoryName)
}

// ---------------------------------------------------------------------------
// ParserRegistry
// ---------------------------------------------------------------------------

// ParserRegistry selects parser variants by platform identity
type ParserRegistry struct {
	mu      sync.RWMutex
	parsers map[catalog.SourceType]FeedParser
}

// NewParserRegistry creates a registry with the given parsers
func NewParserRegistry(parsers ...FeedParser) (*ParserRegistry, error) {
	r := &ParserRegistry{parsers: make(map[catalog.SourceType]FeedParser, len(parsers))}
	for _, p := range parsers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a parser; registering a platform twice is an error
func (r *ParserRegistry) Register(p FeedParser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.parsers[p.Platform()]; exists {
		return fmt.Errorf("%w: %s", ErrParserDuplicate, p.Platform())
	}
	r.parsers[p.Platform()] = p
	return nil
}

// Get returns the parser for a platform
func (r *ParserRegistry) Get(platform catalog.SourceType) (FeedParser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrParserNotRegistered, platform)
	}
	return p, nil
}

// Platforms returns the registered platforms in AllSourceTypes order
func (r *ParserRegistry) Platforms() []catalog.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]catalog.SourceType, 0, len(r.parsers))
	for _, s := range catalog.AllSourceTypes() {
		if _, ok := r.parsers[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
