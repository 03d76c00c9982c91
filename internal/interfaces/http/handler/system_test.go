package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthEngine(h *SystemHandler) *gin.Engine {
	engine := newTestEngine(h)
	engine.GET("/health", h.Health)
	return engine
}

func TestSystemHandler_Health(t *testing.T) {
	t.Run("ok when every check passes", func(t *testing.T) {
		h := NewSystemHandler("dropship-backend", "1.0.0").
			AddCheck("database", func(context.Context) error { return nil }).
			AddCheck("cache", func(context.Context) error { return nil })

		w := performRequest(healthEngine(h), http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp HealthResponse
		require.NoError(t, jsonUnmarshal(w, &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, map[string]string{"database": "ok", "cache": "ok"}, resp.Checks)
	})

	t.Run("degraded when a check fails", func(t *testing.T) {
		h := NewSystemHandler("dropship-backend", "1.0.0").
			AddCheck("database", func(context.Context) error { return errors.New("connection refused") }).
			AddCheck("cache", func(context.Context) error { return nil })

		w := performRequest(healthEngine(h), http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp HealthResponse
		require.NoError(t, jsonUnmarshal(w, &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "connection refused", resp.Checks["database"])
		assert.Equal(t, "ok", resp.Checks["cache"])
	})

	t.Run("checks receive a deadline", func(t *testing.T) {
		var hasDeadline bool
		h := NewSystemHandler("dropship-backend", "1.0.0").
			AddCheck("database", func(ctx context.Context) error {
				_, hasDeadline = ctx.Deadline()
				return nil
			})

		performRequest(healthEngine(h), http.MethodGet, "/health", nil)
		assert.True(t, hasDeadline)
	})
}

func TestSystemHandler_Info(t *testing.T) {
	engine := newTestEngine(NewSystemHandler("dropship-backend", "1.2.3"))

	w := performRequest(engine, http.MethodGet, "/api/v1/system/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[SystemInfoResponse](t, w).Data
	assert.Equal(t, "dropship-backend", info.Name)
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)

	w = performRequest(engine, http.MethodGet, "/api/v1/system/ping", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", decode[PingResponse](t, w).Data.Message)
}

func jsonUnmarshal(w *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}
