package logger

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ginLoggerKey is the gin context key of the request-scoped logger
	ginLoggerKey = "logger"
	// ginRequestIDKey is the gin context key set by the RequestID middleware
	ginRequestIDKey = "request_id"
	// DefaultUserIDHeader identifies the caller when an upstream gateway sets it
	DefaultUserIDHeader = "X-User-ID"
)

type ginOptions struct {
	quietPaths   []string
	userIDHeader string
}

// GinOption configures GinMiddleware
type GinOption func(*ginOptions)

// WithQuietPaths logs successful requests for the given paths at debug,
// keeping health checks and scrapes out of the info stream.
func WithQuietPaths(paths ...string) GinOption {
	return func(o *ginOptions) {
		o.quietPaths = append(o.quietPaths, paths...)
	}
}

// WithUserIDHeader sets the header carrying the caller's user ID; empty disables it
func WithUserIDHeader(header string) GinOption {
	return func(o *ginOptions) {
		o.userIDHeader = header
	}
}

// GinMiddleware logs one entry per HTTP request and attaches a request-scoped
// logger to both the gin context and the request context.
func GinMiddleware(base *zap.Logger, opts ...GinOption) gin.HandlerFunc {
	o := ginOptions{userIDHeader: DefaultUserIDHeader}
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		ctx := c.Request.Context()
		reqLogger := base.With(zap.String("method", c.Request.Method), zap.String("path", path))
		if requestID := c.GetString(ginRequestIDKey); requestID != "" {
			ctx, reqLogger = WithRequestID(ctx, reqLogger, requestID)
		}
		if o.userIDHeader != "" {
			if userID := c.GetHeader(o.userIDHeader); userID != "" {
				ctx, reqLogger = WithUserID(ctx, reqLogger, userID)
			}
		}
		c.Set(ginLoggerKey, reqLogger)
		c.Request = c.Request.WithContext(WithContext(ctx, reqLogger))

		c.Next()

		status := c.Writer.Status()
		lvl := requestLevel(status, len(c.Errors) > 0)
		if lvl == zapcore.InfoLevel && slices.Contains(o.quietPaths, path) {
			lvl = zapcore.DebugLevel
		}

		ce := reqLogger.Check(lvl, "HTTP request")
		if ce == nil {
			return
		}
		fields := []zap.Field{
			zap.String("route", routeOf(c)),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("bytes", c.Writer.Size()),
		}
		if ua := c.Request.UserAgent(); ua != "" {
			fields = append(fields, zap.String("user_agent", ua))
		}
		if query := c.Request.URL.RawQuery; query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}
		ce.Write(fields...)
	}
}

// requestLevel picks the entry level from the response; handler errors on a
// 2xx/3xx response are still worth a warning.
func requestLevel(status int, hasErrors bool) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest || hasErrors:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// Recovery turns a handler panic into a logged 500 with the API's error envelope
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			requestID := c.GetString(ginRequestIDKey)
			l, scoped := requestLogger(c)
			if !scoped {
				l = base.With(zap.String("request_id", requestID), zap.String("path", c.Request.URL.Path))
			}
			l.Error("Panic recovered", zap.Any("panic", rec), zap.Stack("stacktrace"))

			if c.Writer.Written() {
				c.Abort()
				return
			}
			errBody := gin.H{
				"code":    "ERR_INTERNAL",
				"message": "Internal server error",
			}
			if requestID != "" {
				errBody["request_id"] = requestID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": errBody})
		}()
		c.Next()
	}
}

// GetGinLogger returns the request-scoped logger, or fallback when none is
// set. A nil fallback yields a no-op logger.
func GetGinLogger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := requestLogger(c); ok {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}

func requestLogger(c *gin.Context) (*zap.Logger, bool) {
	v, ok := c.Get(ginLoggerKey)
	if !ok {
		return nil, false
	}
	l, ok := v.(*zap.Logger)
	return l, ok
}
