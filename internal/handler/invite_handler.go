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

// InviteHandler exposes the organization invite lifecycle.
type InviteHandler struct {
	invites *service.InviteService
}

// NewInviteHandler creates an InviteHandler.
func NewInviteHandler(invites *service.InviteService) *InviteHandler {
	return &InviteHandler{invites: invites}
}

// Create issues a pending invite. The token and accept link are returned
// once.
func (h *InviteHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordInviteOperation("create")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Role == "" {
		req.Role = string(model.InviteRoleMember)
	}

	role, err := model.ParseInviteRole(req.Role)
	if err != nil {
		return writeError(c, err)
	}

	issued, err := h.invites.Create(c.Request().Context(), c.Param("id"), user.ID, req.Email, role)
	if err != nil {
		return writeError(c, err)
	}

	log.Info("Invite created",
		zap.String("invite_id", issued.Invite.ID),
		zap.String("org_id", issued.Invite.OrganizationID),
		zap.String("email", issued.Invite.Email))
	return c.JSON(http.StatusCreated, inviteWithToken(issued))
}

// List returns all invites for the organization
func (h *InviteHandler) List(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	invites, err := h.invites.List(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, invites)
}

// Resend rotates the token of a pending invite. The new token is returned
// once; the old one is dead on commit.
func (h *InviteHandler) Resend(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordInviteOperation("resend")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	issued, err := h.invites.Resend(c.Request().Context(), c.Param("invite_id"), user.ID)
	if err != nil {
		return writeError(c, err)
	}

	log.Info("Invite token rotated", zap.String("invite_id", issued.Invite.ID))
	return c.JSON(http.StatusOK, inviteWithToken(issued))
}

// Accept consumes a pending invite
func (h *InviteHandler) Accept(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordInviteOperation("accept")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}

	invite, err := h.invites.Accept(c.Request().Context(), c.Param("invite_id"), token, user)
	if err != nil {
		return writeError(c, err)
	}

	log.Info("Invite accepted",
		zap.String("invite_id", invite.ID),
		zap.String("org_id", invite.OrganizationID),
		zap.String("user_id", user.ID))
	return c.JSON(http.StatusOK, invite)
}

// Revoke terminates a pending invite
func (h *InviteHandler) Revoke(c echo.Context) error {
	prometheus.RecordInviteOperation("revoke")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	invite, err := h.invites.Revoke(c.Request().Context(), c.Param("invite_id"), user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, invite)
}

func inviteWithToken(issued *service.IssuedInvite) echo.Map {
	return echo.Map{
		"invite":      issued.Invite,
		"token":       issued.Token, // only returned on create/resend
		"invite_link": issued.AcceptLink,
	}
}
