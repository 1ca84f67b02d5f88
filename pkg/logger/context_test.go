package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestFromContextRoundTrip(t *testing.T) {
	l := zap.NewNop().With(zap.String("request_id", "r-1"))

	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))

	// bare context falls back to the global logger
	assert.NotNil(t, FromContext(context.Background()))
}

func TestFromEcho(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	// no middleware ran: fall back instead of returning nil
	assert.NotNil(t, FromEcho(c))

	l := zap.NewNop().With(zap.String("request_id", "r-2"))
	c.Set(EchoContextKey, l)
	assert.Same(t, l, FromEcho(c))
}
