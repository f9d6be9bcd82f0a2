package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gaming_lounge_backend/internal/middleware"
	"gaming_lounge_backend/internal/services"
)

// StaffHandler manages staff accounts (Admin only).
type StaffHandler struct {
	authService services.AuthService
}

func NewStaffHandler(as services.AuthService) *StaffHandler {
	return &StaffHandler{authService: as}
}

func (h *StaffHandler) CreateStaff(c *gin.Context) {
	var req services.RegisterStaffRequest
	if !bindJSON(c, "CreateStaff", &req) {
		return
	}
	user, err := h.authService.RegisterStaff(c.Request.Context(), middleware.ActorFromContext(c), req)
	if err != nil {
		respondServiceError(c, err, "CreateStaff", "Failed to create staff account.")
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *StaffHandler) GetStaff(c *gin.Context) {
	users, err := h.authService.ListStaff(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "GetStaff", "Failed to fetch staff.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *StaffHandler) UpdateStaff(c *gin.Context) {
	var req services.UpdateStaffRequest
	if !bindJSON(c, "UpdateStaff", &req) {
		return
	}
	user, err := h.authService.UpdateStaff(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err, "UpdateStaff", "Failed to update staff account.")
		return
	}
	c.JSON(http.StatusOK, user)
}
