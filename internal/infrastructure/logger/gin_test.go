package logger

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newLoggedEngine mimics the server chain: a request ID setter ahead of the logging middleware
func newLoggedEngine(level zapcore.Level, opts ...GinOption) (*gin.Engine, *observer.ObservedLogs) {
	core, recorded := observer.New(level)
	log := zap.New(core)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Request-ID"); id != "" {
			c.Set(ginRequestIDKey, id)
		}
		c.Next()
	})
	engine.Use(GinMiddleware(log, opts...), Recovery(log))
	return engine, recorded
}

func serve(engine *gin.Engine, method, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func requestEntries(recorded *observer.ObservedLogs) []observer.LoggedEntry {
	return recorded.FilterMessage("HTTP request").All()
}

func TestGinMiddleware_LogsRequest(t *testing.T) {
	engine, recorded := newLoggedEngine(zapcore.DebugLevel)
	engine.GET("/api/v1/jobs/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	serve(engine, http.MethodGet, "/api/v1/jobs/42?verbose=1",
		"X-Request-ID", "req-1", "X-User-ID", "user-9", "User-Agent", "feed-test")

	entries := requestEntries(recorded)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, zapcore.InfoLevel, e.Level)

	fields := e.ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/v1/jobs/42", fields["path"])
	assert.Equal(t, "/api/v1/jobs/:id", fields["route"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, int64(2), fields["bytes"])
	assert.Equal(t, "verbose=1", fields["query"])
	assert.Equal(t, "feed-test", fields["user_agent"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "user-9", fields["user_id"])
	assert.Contains(t, fields, "latency")
	assert.NotContains(t, fields, "errors")
}

func TestGinMiddleware_Levels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   zapcore.Level
	}{
		{name: "ok", status: http.StatusOK, want: zapcore.InfoLevel},
		{name: "client error", status: http.StatusNotFound, want: zapcore.WarnLevel},
		{name: "server error", status: http.StatusBadGateway, want: zapcore.ErrorLevel},
		{name: "ok with attached error", status: http.StatusOK, err: errors.New("history write failed"), want: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, recorded := newLoggedEngine(zapcore.DebugLevel)
			engine.GET("/x", func(c *gin.Context) {
				if tt.err != nil {
					_ = c.Error(tt.err)
				}
				c.Status(tt.status)
			})

			serve(engine, http.MethodGet, "/x")

			entries := requestEntries(recorded)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0].Level)
			if tt.err != nil {
				assert.Equal(t, []any{tt.err.Error()}, entries[0].ContextMap()["errors"])
			}
		})
	}
}

func TestGinMiddleware_UnmatchedRoute(t *testing.T) {
	engine, recorded := newLoggedEngine(zapcore.InfoLevel)

	serve(engine, http.MethodGet, "/nope")

	entries := requestEntries(recorded)
	require.Len(t, entries, 1)
	assert.Equal(t, "unmatched", entries[0].ContextMap()["route"])
}

func TestGinMiddleware_QuietPaths(t *testing.T) {
	engine, recorded := newLoggedEngine(zapcore.InfoLevel, WithQuietPaths("/health"))
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/down", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	serve(engine, http.MethodGet, "/health")
	assert.Empty(t, requestEntries(recorded), "healthy check is logged at debug")

	serve(engine, http.MethodGet, "/down")
	require.Len(t, requestEntries(recorded), 1)
}

func TestGinMiddleware_QuietPathFailureStillLogged(t *testing.T) {
	engine, recorded := newLoggedEngine(zapcore.InfoLevel, WithQuietPaths("/health"))
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	serve(engine, http.MethodGet, "/health")

	entries := requestEntries(recorded)
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestGinMiddleware_UserIDHeaderDisabled(t *testing.T) {
	engine, recorded := newLoggedEngine(zapcore.InfoLevel, WithUserIDHeader(""))
	engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(engine, http.MethodGet, "/x", "X-User-ID", "user-9")

	entries := requestEntries(recorded)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "user_id")
}

func TestGinMiddleware_PropagatesScopedLogger(t *testing.T) {
	engine, recorded := newLoggedEngine(zapcore.InfoLevel)
	engine.GET("/x", func(c *gin.Context) {
		ctx := c.Request.Context()
		assert.Equal(t, "req-7", GetRequestID(ctx))
		assert.Same(t, GetGinLogger(c, nil), FromContext(ctx))
		FromContext(ctx).Info("inside handler")
		c.Status(http.StatusOK)
	})

	serve(engine, http.MethodGet, "/x", "X-Request-ID", "req-7")

	inside := recorded.FilterMessage("inside handler").All()
	require.Len(t, inside, 1)
	assert.Equal(t, "req-7", inside[0].ContextMap()["request_id"])
	assert.Equal(t, "/x", inside[0].ContextMap()["path"])
}

func TestRecovery_WritesErrorEnvelope(t *testing.T) {
	engine, recorded := newLoggedEngine(zapcore.InfoLevel)
	engine.GET("/boom", func(c *gin.Context) { panic("parser exploded") })

	w := serve(engine, http.MethodGet, "/boom", "X-Request-ID", "req-500")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "ERR_INTERNAL", body.Error.Code)
	assert.Equal(t, "req-500", body.Error.RequestID)

	panics := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "parser exploded", panics[0].ContextMap()["panic"])
	assert.Equal(t, "req-500", panics[0].ContextMap()["request_id"])

	entries := requestEntries(recorded)
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestRecovery_WithoutRequestLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	engine := gin.New()
	engine.Use(Recovery(zap.New(core)))
	engine.GET("/boom", func(c *gin.Context) { panic(errors.New("nil catalog")) })

	w := serve(engine, http.MethodGet, "/boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"ERR_INTERNAL"`)
	assert.NotContains(t, w.Body.String(), "request_id")

	panics := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "/boom", panics[0].ContextMap()["path"])
}

func TestGetGinLogger_Fallbacks(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	fallback := zap.NewExample()

	assert.Same(t, fallback, GetGinLogger(c, fallback))
	assert.NotNil(t, GetGinLogger(c, nil))

	c.Set(ginLoggerKey, "not a logger")
	assert.Same(t, fallback, GetGinLogger(c, fallback))
}
