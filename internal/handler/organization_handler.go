package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"github.com/laribacloud/lariba-cloud/internal/service"
	"github.com/laribacloud/lariba-cloud/pkg/logger"
	"github.com/laribacloud/lariba-cloud/prometheus"
	"go.uber.org/zap"
)

// OrganizationHandler exposes organization CRUD and member management.
type OrganizationHandler struct {
	orgs *service.OrganizationService
}

// NewOrganizationHandler creates an OrganizationHandler.
func NewOrganizationHandler(orgs *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs}
}

// Create handles organization creation
func (h *OrganizationHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOrgOperation("create")

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

	org, err := h.orgs.Create(c.Request().Context(), user.ID, req.Name, req.Slug)
	if err != nil {
		return writeError(c, err)
	}

	log.Info("Organization created",
		zap.String("org_id", org.ID),
		zap.String("slug", org.Slug),
		zap.String("owner_id", org.OwnerID))
	return c.JSON(http.StatusCreated, org)
}

// List returns the caller's organizations
func (h *OrganizationHandler) List(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	orgs, err := h.orgs.ListMine(c.Request().Context(), user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orgs)
}

// Get returns a single organization
func (h *OrganizationHandler) Get(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	org, err := h.orgs.Get(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, org)
}

// AddMember adds a user to the organization
func (h *OrganizationHandler) AddMember(c echo.Context) error {
	prometheus.RecordOrgOperation("add_member")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Role == "" {
		req.Role = string(model.OrgRoleMember)
	}

	role, err := model.ParseOrgRole(req.Role)
	if err != nil {
		return writeError(c, err)
	}

	member, err := h.orgs.AddMember(c.Request().Context(), c.Param("id"), user.ID, req.UserID, role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, member)
}

// ListMembers returns the organization's members
func (h *OrganizationHandler) ListMembers(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	members, err := h.orgs.ListMembers(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, members)
}
