package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// EchoContextKey is where the request middlewares stash the request-scoped
// logger on the echo context.
const EchoContextKey = "logger"

type contextKey struct{}

var loggerKey contextKey

// FromContext returns the request-scoped logger, or the global one when the
// context carries none.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return GetLogger()
}

// WithContext attaches a logger to the context for downstream callers.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromEcho returns the logger attached under EchoContextKey, falling back to
// the global logger for routes outside the middleware chain.
func FromEcho(c echo.Context) *zap.Logger {
	if l, ok := c.Get(EchoContextKey).(*zap.Logger); ok {
		return l
	}
	return GetLogger()
}
