package integration

import (
	"fmt"
	"maps"
	"net/url"

	"github.com/dropship/backend/internal/domain/catalog"
)

// DataSourceConfig describes one feed to ingest
type DataSourceConfig struct {
	Platform catalog.SourceType `json:"platform" mapstructure:"platform"`
	URL      string             `json:"url" mapstructure:"url"`
	Headers  map[string]string  `json:"headers,omitempty" mapstructure:"headers"`
	// ExportUnavailable controls whether unavailable products of this source are kept.
	// nil means keep them.
	ExportUnavailable *bool `json:"export_unavailable,omitempty" mapstructure:"export_unavailable"`
}

// Validate validates the source configuration
func (c DataSourceConfig) Validate() error {
	if !c.Platform.IsValid() {
		return fmt.Errorf("%w: %q", ErrSourceInvalidPlatform, c.Platform)
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrSourceInvalidURL, c.URL)
	}
	return nil
}

// IncludeUnavailable returns true if unavailable products should be kept
func (c DataSourceConfig) IncludeUnavailable() bool {
	return c.ExportUnavailable == nil || *c.ExportUnavailable
}

// RequestHeaders returns a copy of the configured headers; never nil
func (c DataSourceConfig) RequestHeaders() map[string]string {
	out := make(map[string]string, len(c.Headers))
	maps.Copy(out, c.Headers)
	return out
}
