// Package middleware provides HTTP middleware for the dropship API.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dropship/backend/internal/infrastructure/telemetry"
)

// unmatchedRoute labels requests that matched no route, keeping label cardinality bounded
const unmatchedRoute = "unmatched"

// HTTPMetrics records request count, latency and in-flight requests.
// A nil metrics set disables the middleware. Paths in skip are not recorded.
func HTTPMetrics(m *telemetry.HTTPMetrics, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		m.Begin()
		c.Next()
		m.End(c.Request.Method, routePattern(c), strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// routePattern returns the matched route template, not the raw path
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}
