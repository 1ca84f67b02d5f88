package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/laribacloud/lariba-cloud/internal/apperr"
	"github.com/laribacloud/lariba-cloud/internal/middleware"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"github.com/laribacloud/lariba-cloud/pkg/logger"
	"go.uber.org/zap"
)

// writeError maps a core error to its HTTP status and JSON body.
func writeError(c echo.Context, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Kind == apperr.KindInternal {
			logger.FromEcho(c).Error("internal error", zap.Error(err))
		}
		return c.JSON(ae.HTTPStatus(), echo.Map{"error": ae.Message})
	}
	logger.FromEcho(c).Error("unclassified error", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// currentUser returns the user resolved by the JWT middleware. The error is
// always non-nil when no user is present so callers bail out instead of
// dereferencing a nil user.
func currentUser(c echo.Context) (*model.User, error) {
	user, ok := c.Get(middleware.ContextUser).(*model.User)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return user, nil
}
