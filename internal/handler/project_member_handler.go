package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/laribacloud/lariba-cloud/internal/model"
	"github.com/laribacloud/lariba-cloud/internal/service"
)

// ProjectMemberHandler exposes project member management.
type ProjectMemberHandler struct {
	members *service.MemberService
}

// NewProjectMemberHandler creates a ProjectMemberHandler.
func NewProjectMemberHandler(members *service.MemberService) *ProjectMemberHandler {
	return &ProjectMemberHandler{members: members}
}

// Add adds a user to the project (or updates their role)
func (h *ProjectMemberHandler) Add(c echo.Context) error {
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
		req.Role = string(model.ProjectRoleMember)
	}

	role, err := model.ParseProjectRole(req.Role)
	if err != nil {
		return writeError(c, err)
	}

	member, err := h.members.Add(c.Request().Context(), c.Param("id"), user.ID, req.UserID, role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, member)
}

// UpdateRole changes an existing member's role
func (h *ProjectMemberHandler) UpdateRole(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	role, err := model.ParseProjectRole(req.Role)
	if err != nil {
		return writeError(c, err)
	}

	member, err := h.members.UpdateRole(c.Request().Context(), c.Param("id"), user.ID, c.Param("user_id"), role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, member)
}

// Remove deletes a membership row
func (h *ProjectMemberHandler) Remove(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	if err := h.members.Remove(c.Request().Context(), c.Param("id"), user.ID, c.Param("user_id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "project member removed"})
}

// List returns the project's members
func (h *ProjectMemberHandler) List(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	members, err := h.members.List(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, members)
}

// My returns the caller's own membership
func (h *ProjectMemberHandler) My(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	member, err := h.members.My(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, member)
}
