package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/laribacloud/lariba-cloud/internal/middleware"
	"github.com/laribacloud/lariba-cloud/internal/model"
)

// ServiceHandler exposes the machine-authenticated surface.
type ServiceHandler struct{}

// NewServiceHandler creates a ServiceHandler.
func NewServiceHandler() *ServiceHandler {
	return &ServiceHandler{}
}

func machinePrincipal(c echo.Context) (*model.ApiKey, *model.Project, bool) {
	key, ok := c.Get(middleware.ContextAPIKey).(*model.ApiKey)
	if !ok {
		return nil, nil, false
	}
	project, ok := c.Get(middleware.ContextProject).(*model.Project)
	if !ok {
		return nil, nil, false
	}
	return key, project, true
}

// Ping confirms the key authenticates
func (h *ServiceHandler) Ping(c echo.Context) error {
	_, project, ok := machinePrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing X-API-Key"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":           true,
		"project_id":   project.ID,
		"project_slug": project.Slug,
		"message":      "API key authenticated successfully",
	})
}

// Whoami returns the machine principal's identity
func (h *ServiceHandler) Whoami(c echo.Context) error {
	key, project, ok := machinePrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing X-API-Key"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"project_id":   project.ID,
		"project_slug": project.Slug,
		"project_name": project.Name,
		"api_key_id":   key.ID,
		"scope":        key.Scope,
	})
}

// AdminOnly requires the admin scope (enforced by middleware)
func (h *ServiceHandler) AdminOnly(c echo.Context) error {
	_, project, ok := machinePrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing X-API-Key"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":      "admin access granted",
		"project_slug": project.Slug,
	})
}
