package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/laribacloud/lariba-cloud/internal/apperr"
	"github.com/laribacloud/lariba-cloud/internal/service"
	"github.com/laribacloud/lariba-cloud/pkg/logger"
	"github.com/laribacloud/lariba-cloud/prometheus"
	"go.uber.org/zap"
)

// APIKeyHandler exposes the API key lifecycle for a project.
type APIKeyHandler struct {
	keys *service.APIKeyService
}

// NewAPIKeyHandler creates an APIKeyHandler.
func NewAPIKeyHandler(keys *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

// Create issues a new key. The plaintext is returned once.
func (h *APIKeyHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordKeyOperation("issue")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		Name      string     `json:"name"`
		Scope     string     `json:"scope"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now().UTC()) {
		return writeError(c, apperr.New(apperr.KindInvalid, "expires_at must be in the future"))
	}

	issued, err := h.keys.Issue(c.Request().Context(), c.Param("id"), user.ID, req.Name, req.Scope, req.ExpiresAt)
	if err != nil {
		return writeError(c, err)
	}

	log.Info("API key issued",
		zap.String("key_id", issued.Key.ID),
		zap.String("project_id", issued.Key.ProjectID),
		zap.String("scope", issued.Key.Scope))
	return c.JSON(http.StatusCreated, echo.Map{
		"id":         issued.Key.ID,
		"name":       issued.Key.Name,
		"key_prefix": issued.Key.KeyPrefix,
		"scope":      issued.Key.Scope,
		"expires_at": issued.Key.ExpiresAt,
		"api_key":    issued.Plaintext, // only returned once
	})
}

// CreateBootstrap issues the first admin key for a fresh project
func (h *APIKeyHandler) CreateBootstrap(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordKeyOperation("bootstrap")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	issued, err := h.keys.IssueBootstrap(c.Request().Context(), c.Param("id"), user.ID, req.Name)
	if err != nil {
		return writeError(c, err)
	}

	log.Info("Bootstrap API key issued",
		zap.String("key_id", issued.Key.ID),
		zap.String("project_id", issued.Key.ProjectID))
	return c.JSON(http.StatusCreated, echo.Map{
		"id":         issued.Key.ID,
		"name":       issued.Key.Name,
		"key_prefix": issued.Key.KeyPrefix,
		"scope":      issued.Key.Scope,
		"api_key":    issued.Plaintext, // only returned once
	})
}

// List returns the project's keys (no secrets)
func (h *APIKeyHandler) List(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	keys, err := h.keys.List(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, keys)
}

// Revoke marks a key revoked (idempotent)
func (h *APIKeyHandler) Revoke(c echo.Context) error {
	prometheus.RecordKeyOperation("revoke")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	key, err := h.keys.Revoke(c.Request().Context(), c.Param("id"), c.Param("key_id"), user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, key)
}

// Delete hard-deletes a key
func (h *APIKeyHandler) Delete(c echo.Context) error {
	prometheus.RecordKeyOperation("delete")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	if err := h.keys.Delete(c.Request().Context(), c.Param("id"), c.Param("key_id"), user.ID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
