package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/laribacloud/lariba-cloud/internal/service"
	"github.com/laribacloud/lariba-cloud/pkg/logger"
	"go.uber.org/zap"
)

// ProjectHandler exposes project CRUD under organizations.
type ProjectHandler struct {
	projects *service.ProjectService
}

// NewProjectHandler creates a ProjectHandler.
func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// Create handles project creation under an organization
func (h *ProjectHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	project, err := h.projects.Create(c.Request().Context(), c.Param("id"), user.ID, req.Name, req.Slug)
	if err != nil {
		return writeError(c, err)
	}

	log.Info("Project created",
		zap.String("project_id", project.ID),
		zap.String("org_id", project.OrganizationID),
		zap.String("slug", project.Slug))
	return c.JSON(http.StatusCreated, project)
}

// List returns the organization's projects
func (h *ProjectHandler) List(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	projects, err := h.projects.List(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, projects)
}

// Get returns a single project
func (h *ProjectHandler) Get(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	project, err := h.projects.Get(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, project)
}
