package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gaming_lounge_backend/internal/middleware"
	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/services"
)

type SettingsHandler struct {
	settings services.SettingsService
	lounge   models.LoungeSettings
}

func NewSettingsHandler(s services.SettingsService, lounge models.LoungeSettings) *SettingsHandler {
	return &SettingsHandler{settings: s, lounge: lounge}
}

// GetLounge returns the device categories and seats the lounge runs with.
func (h *SettingsHandler) GetLounge(c *gin.Context) {
	c.JSON(http.StatusOK, h.lounge)
}

// GetAdminSettings reports whether a PIN is set and its lock state, never the hash.
func (h *SettingsHandler) GetAdminSettings(c *gin.Context) {
	s, err := h.settings.GetAdminSettings(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "GetAdminSettings", "Failed to fetch settings.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pin_set":         s.AdminDeletePinHash != nil,
		"failed_attempts": s.FailedAttempts,
		"lock_until":      s.LockUntil,
	})
}

func (h *SettingsHandler) SetAdminPin(c *gin.Context) {
	var req services.SetAdminPinRequest
	if !bindJSON(c, "SetAdminPin", &req) {
		return
	}
	if err := h.settings.SetAdminPin(c.Request.Context(), middleware.ActorFromContext(c), req); err != nil {
		respondServiceError(c, err, "SetAdminPin", "Failed to set admin pin.")
		return
	}
	c.Status(http.StatusNoContent)
}

// PurgeHistory deletes archived sessions older than the cutoff after a PIN check.
func (h *SettingsHandler) PurgeHistory(c *gin.Context) {
	var req services.PurgeHistoryRequest
	if !bindJSON(c, "PurgeHistory", &req) {
		return
	}
	result, err := h.settings.PurgeHistory(c.Request.Context(), middleware.ActorFromContext(c), req)
	if err != nil {
		respondServiceError(c, err, "PurgeHistory", "Failed to purge history.")
		return
	}
	c.JSON(http.StatusOK, result)
}
