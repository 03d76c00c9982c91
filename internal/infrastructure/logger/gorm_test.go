package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGorm(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func stmt(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

var _ gormlogger.Interface = (*GormLogger)(nil)
var _ gorm.ParamsFilter = (*GormLogger)(nil)

func TestNewGormLogger_Defaults(t *testing.T) {
	gl, _ := newObservedGorm(gormlogger.Warn)

	assert.Equal(t, gormlogger.Warn, gl.level)
	assert.Equal(t, DefaultSlowQuery, gl.slowThreshold)
	assert.False(t, gl.logNotFound)
	assert.False(t, gl.parameterizedSQL)
}

func TestGormLogger_LogModeClones(t *testing.T) {
	gl, _ := newObservedGorm(gormlogger.Warn, WithSlowThreshold(time.Second))

	clone, ok := gl.LogMode(gormlogger.Info).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Warn, gl.level)
	assert.Equal(t, gormlogger.Info, clone.level)
	assert.Equal(t, time.Second, clone.slowThreshold)
}

func TestGormLogger_Messages(t *testing.T) {
	gl, recorded := newObservedGorm(gormlogger.Warn)
	ctx := context.WithValue(context.Background(), JobIDKey, "job-7")

	gl.Info(ctx, "dropped %d", 1)
	gl.Warn(ctx, "replacing callback %s", "sync_jobs:create")
	gl.Error(ctx, "failed to parse %s", "sync_histories")

	logs := recorded.All()
	require.Len(t, logs, 2)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	assert.Equal(t, "replacing callback sync_jobs:create", logs[0].Message)
	assert.Equal(t, "job-7", logs[0].ContextMap()["job_id"])
	assert.Equal(t, zapcore.ErrorLevel, logs[1].Level)
	assert.Equal(t, "gorm", logs[1].LoggerName)
}

func TestGormLogger_Trace(t *testing.T) {
	failure := errors.New("relation \"sync_jobs\" does not exist")

	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		opts      []GormLoggerOption
		elapsed   time.Duration
		err       error
		wantLevel zapcore.Level
		wantMsg   string
		wantNone  bool
	}{
		{name: "query at info level", level: gormlogger.Info, wantLevel: zapcore.DebugLevel, wantMsg: "SQL"},
		{name: "query at warn level is quiet", level: gormlogger.Warn, wantNone: true},
		{name: "silent", level: gormlogger.Silent, err: failure, wantNone: true},
		{name: "error", level: gormlogger.Error, err: failure, wantLevel: zapcore.ErrorLevel, wantMsg: "SQL failed"},
		{name: "slow", level: gormlogger.Warn, elapsed: time.Second, wantLevel: zapcore.WarnLevel, wantMsg: "Slow SQL"},
		{name: "slow disabled", level: gormlogger.Warn, opts: []GormLoggerOption{WithSlowThreshold(0)}, elapsed: time.Second, wantNone: true},
		{name: "not found is quiet", level: gormlogger.Warn, err: gorm.ErrRecordNotFound, wantNone: true},
		{name: "not found logged on request", level: gormlogger.Warn, opts: []GormLoggerOption{WithRecordNotFound()}, err: gorm.ErrRecordNotFound, wantLevel: zapcore.ErrorLevel, wantMsg: "SQL failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl, recorded := newObservedGorm(tt.level, tt.opts...)

			gl.Trace(context.Background(), time.Now().Add(-tt.elapsed), stmt("SELECT * FROM sync_jobs", 3), tt.err)

			if tt.wantNone {
				assert.Zero(t, recorded.Len())
				return
			}
			logs := recorded.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.wantLevel, logs[0].Level)
			assert.Equal(t, tt.wantMsg, logs[0].Message)

			fields := logs[0].ContextMap()
			assert.Equal(t, "SELECT * FROM sync_jobs", fields["sql"])
			assert.Equal(t, int64(3), fields["rows"])
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), fields["error"])
			}
		})
	}
}

func TestGormLogger_TraceSkipsStatementRendering(t *testing.T) {
	gl, _ := newObservedGorm(gormlogger.Warn)

	called := false
	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		called = true
		return "", 0
	}, nil)

	assert.False(t, called)
}

func TestGormLogger_TraceCorrelation(t *testing.T) {
	gl, recorded := newObservedGorm(gormlogger.Info)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx, _ = WithJobID(ctx, zap.NewNop(), "job-1")
	gl.Trace(ctx, time.Now(), stmt("UPDATE sync_jobs SET status = 'RUNNING'", 1), nil)

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "job-1", fields["job_id"])
}

func TestGormLogger_TraceTruncatesLongStatements(t *testing.T) {
	gl, recorded := newObservedGorm(gormlogger.Info)

	long := "INSERT INTO sync_jobs (payload) VALUES ('" + strings.Repeat("x", maxLoggedSQL) + "')"
	gl.Trace(context.Background(), time.Now(), stmt(long, 1), nil)

	sql, _ := recorded.All()[0].ContextMap()["sql"].(string)
	assert.True(t, strings.HasSuffix(sql, "...(truncated)"))
	assert.Len(t, sql, maxLoggedSQL+len("...(truncated)"))
}

func TestGormLogger_ParamsFilter(t *testing.T) {
	plain, _ := newObservedGorm(gormlogger.Info)
	sql, params := plain.ParamsFilter(context.Background(), "SELECT * FROM sync_jobs WHERE id = ?", "abc")
	assert.Equal(t, "SELECT * FROM sync_jobs WHERE id = ?", sql)
	assert.Equal(t, []any{"abc"}, params)

	redacted, _ := newObservedGorm(gormlogger.Info, WithParameterizedSQL())
	_, params = redacted.ParamsFilter(context.Background(), "SELECT * FROM sync_jobs WHERE id = ?", "abc")
	assert.Nil(t, params)
}

func TestMapGormLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"debug":   gormlogger.Info,
		" DEBUG ": gormlogger.Info,
		"info":    gormlogger.Warn,
		"warn":    gormlogger.Warn,
		"error":   gormlogger.Error,
		"":        gormlogger.Warn,
		"bogus":   gormlogger.Warn,
	}
	for in, want := range tests {
		assert.Equal(t, want, MapGormLogLevel(in), "level %q", in)
	}
}
