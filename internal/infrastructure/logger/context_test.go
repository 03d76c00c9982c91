package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newBufferLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	return zap.New(core), &buf
}

func TestWithContext(t *testing.T) {
	base := zap.NewExample()
	ctx := WithContext(context.Background(), base)
	assert.Same(t, base, FromContext(ctx))
}

func TestFromContext_NotFound(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.NotPanics(t, func() { l.Info("dropped") })
}

func TestFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
	assert.NotNil(t, FromContext(ctx))
}

func TestContextFieldSetters(t *testing.T) {
	tests := []struct {
		name  string
		set   func(context.Context, *zap.Logger, string) (context.Context, *zap.Logger)
		get   func(context.Context) string
		field string
	}{
		{"request id", WithRequestID, GetRequestID, "request_id"},
		{"user id", WithUserID, GetUserID, "user_id"},
		{"job id", WithJobID, GetJobID, "job_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.InfoLevel)
			ctx, enriched := tt.set(context.Background(), zap.New(core), "value-1")

			assert.Equal(t, "value-1", tt.get(ctx))
			assert.Same(t, enriched, FromContext(ctx))

			enriched.Info("hello")
			entries := recorded.All()
			require.Len(t, entries, 1)
			assert.Equal(t, "value-1", entries[0].ContextMap()[tt.field])
		})
	}

	t.Run("getters return empty when unset", func(t *testing.T) {
		ctx := context.Background()
		assert.Empty(t, GetRequestID(ctx))
		assert.Empty(t, GetUserID(ctx))
		assert.Empty(t, GetJobID(ctx))
	})
}

func TestContextChaining(t *testing.T) {
	base := zap.NewNop()
	ctx := context.Background()
	ctx, _ = WithRequestID(ctx, base, "req-1")
	ctx, _ = WithUserID(ctx, FromContext(ctx), "user-1")
	ctx, _ = WithJobID(ctx, FromContext(ctx), "job-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.Equal(t, "job-1", GetJobID(ctx))
}

func TestContextLogger_EnrichesWithContextFields(t *testing.T) {
	baseLogger, buf := newBufferLogger()

	ctx := context.Background()
	ctx, _ = WithRequestID(ctx, baseLogger, "req-123")
	ctx, _ = WithUserID(ctx, baseLogger, "user-789")
	ctx, _ = WithJobID(ctx, baseLogger, "job-456")
	ctx = WithContext(ctx, baseLogger)

	L(ctx).Info("test message", zap.String("extra_field", "extra_value"))

	output := buf.String()
	assert.Contains(t, output, `"request_id":"req-123"`)
	assert.Contains(t, output, `"user_id":"user-789"`)
	assert.Contains(t, output, `"job_id":"job-456"`)
	assert.Contains(t, output, `"extra_field":"extra_value"`)
	assert.Contains(t, output, `"msg":"test message"`)
}

func TestContextLogger_EmptyContextFields(t *testing.T) {
	baseLogger, buf := newBufferLogger()

	WithLogger(context.Background(), baseLogger).Warn("plain")

	output := buf.String()
	assert.Contains(t, output, `"msg":"plain"`)
	assert.NotContains(t, output, "request_id")
	assert.NotContains(t, output, "job_id")
}

func TestContextLogger_With(t *testing.T) {
	baseLogger, buf := newBufferLogger()
	ctx, _ := WithJobID(context.Background(), zap.NewNop(), "job-1")

	cl := WithLogger(ctx, baseLogger).With(zap.String("dataset", "shoes"))
	cl.Debug("child")

	output := buf.String()
	assert.Contains(t, output, `"dataset":"shoes"`)
	assert.Contains(t, output, `"job_id":"job-1"`)
}

func TestContextLogger_LogLevels(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	cl := WithLogger(context.Background(), zap.New(core))

	cl.Debug("d")
	cl.Info("i")
	cl.Warn("w")
	cl.Error("e")

	entries := recorded.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestContextLogger_ZapAndSugar(t *testing.T) {
	baseLogger, buf := newBufferLogger()
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-9")
	cl := WithLogger(ctx, baseLogger)

	cl.Zap().Info("zap")
	cl.Sugar().Infof("sugar %d", 1)

	output := buf.String()
	assert.Contains(t, output, `"msg":"zap"`)
	assert.Contains(t, output, `"msg":"sugar 1"`)
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte(`"request_id":"req-9"`)))
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}
	assert.NotPanics(t, func() { cl.Info("test") })
}
