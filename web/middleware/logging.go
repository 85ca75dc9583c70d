package middleware

import (
	"bytes"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/util"
)

const maxLoggedBody = 1024

type loggingMiddlewareOptions struct {
	lg           *zap.Logger
	debugEnabled bool
	excludePaths []string
}

type LoggingMiddlewareOption func(*loggingMiddlewareOptions)

func WithLogger(lg *zap.Logger) LoggingMiddlewareOption {
	return func(o *loggingMiddlewareOptions) {
		o.lg = lg
	}
}

// WithDebugEnabled adds headers and the response body to the log line.
func WithDebugEnabled(debugEnabled bool) LoggingMiddlewareOption {
	return func(o *loggingMiddlewareOptions) {
		o.debugEnabled = debugEnabled
	}
}

func WithExcludePaths(excludePaths []string) LoggingMiddlewareOption {
	return func(o *loggingMiddlewareOptions) {
		o.excludePaths = excludePaths
	}
}

func defaultLoggingMiddlewareOptions() *loggingMiddlewareOptions {
	return &loggingMiddlewareOptions{
		lg: zap.L(),
	}
}

func LoggingMiddleware(opts ...LoggingMiddlewareOption) gin.HandlerFunc {
	cfg := defaultLoggingMiddlewareOptions()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if lo.Contains(cfg.excludePaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		correlationId, _ := util.CorrelationIdFromCtx(c.Request.Context())

		startTime := time.Now()
		var rw *responseWriter
		if cfg.debugEnabled {
			rw = &responseWriter{ResponseWriter: c.Writer, body: bytes.NewBuffer(nil)}
			c.Writer = rw
		}

		c.Next()

		fields := []zap.Field{
			zap.String("correlationId", correlationId),
			zap.String("method", c.Request.Method),
			zap.String("url", c.Request.URL.String()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(startTime)),
		}
		if rw == nil {
			cfg.lg.Info("[Logging]", fields...)
			return
		}

		responseBody := rw.body.Bytes()
		if len(responseBody) > maxLoggedBody {
			responseBody = responseBody[:maxLoggedBody]
		}
		cfg.lg.Debug("[Logging]", append(fields,
			zap.Any("requestHeaders", c.Request.Header),
			zap.ByteString("responseBody", responseBody),
		)...)
	}
}
