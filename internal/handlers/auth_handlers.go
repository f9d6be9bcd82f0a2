package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gaming_lounge_backend/internal/middleware"
	"gaming_lounge_backend/internal/services"
	"gaming_lounge_backend/pkg/utils"
)

// AuthHandler holds the authentication service.
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// LoginUser handles staff login and returns an access token.
func (h *AuthHandler) LoginUser(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, "LoginUser", &req) {
		return
	}
	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		// generic message so usernames cannot be enumerated
		respondServiceError(c, err, "LoginUser", "Login failed. Please try again.")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetUserProfile returns the account behind the current token.
func (h *AuthHandler) GetUserProfile(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	user, err := h.authService.GetProfile(c.Request.Context(), actor.UserID)
	if err != nil {
		if actor.UserID == "" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
			return
		}
		respondServiceError(c, err, "GetUserProfile", "Failed to fetch profile.")
		return
	}
	c.JSON(http.StatusOK, user)
}
