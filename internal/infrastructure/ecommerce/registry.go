package ecommerce

import (
	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/integration"
)

// NewDefaultRegistry returns a registry holding the parsers of every supported platform
func NewDefaultRegistry(sizes integration.SizeNormalizer, logger *zap.Logger, opts ...ParserOption) *integration.ParserRegistry {
	registry, err := integration.NewParserRegistry(
		NewEasyDropParser(sizes, logger, opts...),
		NewMyDropParser(sizes, logger, opts...),
	)
	if err != nil {
		// Platforms above are distinct
		panic(err)
	}
	return registry
}
