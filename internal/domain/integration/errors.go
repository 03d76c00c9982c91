package integration

import "errors"

// Integration domain errors
var (
	// Source configuration errors
	ErrSourceInvalidPlatform = errors.New("integration: invalid source platform")
	ErrSourceInvalidURL      = errors.New("integration: invalid source URL")

	// Parser errors
	ErrParserNotRegistered = errors.New("integration: no parser registered for platform")
	ErrParserDuplicate     = errors.New("integration: parser already registered for platform")

	// Feed item errors
	ErrInvalidPrice  = errors.New("integration: invalid item price")
	ErrItemPanicked  = errors.New("integration: item parsing panicked")
	ErrMalformedItem = errors.New("integration: malformed item markup")
)
