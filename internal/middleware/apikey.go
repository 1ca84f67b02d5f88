package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/laribacloud/lariba-cloud/internal/apperr"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"github.com/laribacloud/lariba-cloud/internal/service"
	"github.com/laribacloud/lariba-cloud/pkg/logger"
	"github.com/laribacloud/lariba-cloud/prometheus"
	"go.uber.org/zap"
)

// Context keys set by the api-key middleware.
const (
	ContextAPIKey  = "api_key"
	ContextProject = "project"

	apiKeyHeader = "X-API-Key"
)

// APIKeyAuth authenticates machine requests via the X-API-Key header.
func APIKeyAuth(keys *service.APIKeyService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			raw := c.Request().Header.Get(apiKeyHeader)
			if raw == "" {
				prometheus.RecordAuthError("missing_api_key")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing X-API-Key"})
			}

			key, project, err := keys.Authenticate(c.Request().Context(), raw)
			if err != nil {
				log.Warn("API key authentication failed", zap.Error(err))
				prometheus.RecordAuthError("invalid_api_key")
				var ae *apperr.Error
				if errors.As(err, &ae) {
					return c.JSON(ae.HTTPStatus(), echo.Map{"error": ae.Message})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}

			c.Set(ContextAPIKey, key)
			c.Set(ContextProject, project)
			return next(c)
		}
	}
}

// RequireScope gates a machine route on an exact key scope match.
func RequireScope(keys *service.APIKeyService, scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, ok := c.Get(ContextAPIKey).(*model.ApiKey)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing X-API-Key"})
			}
			if err := keys.RequireScope(key, scope); err != nil {
				prometheus.RecordAuthError("insufficient_scope")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "requires scope: " + scope})
			}
			return next(c)
		}
	}
}
