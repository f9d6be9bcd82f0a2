package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/pkg/utils"
)

const actorKey = "actor"

// AuthMiddleware validates the bearer token and stores the staff member
// behind it on the context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := bearerToken(c.GetHeader("Authorization"))
		if problem != "" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, problem, ""))
			return
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid or expired token", err.Error()))
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("userRole", claims.Role)
		c.Set(actorKey, models.Actor{UserID: claims.UserID, Username: claims.Username, Role: claims.Role})

		c.Next()
	}
}

func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "Authorization header required"
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", "Invalid authorization header format. Use Bearer <token>"
	}
	return parts[1], ""
}

// RoleAuthMiddleware lets the request through only for the listed roles.
// Must run after AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("userRole")
		if role == "" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "User role not found in token claims", ""))
			return
		}
		for _, r := range allowedRoles {
			if strings.EqualFold(role, r) {
				c.Next()
				return
			}
		}
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden,
			"You do not have permission to access this resource", "Required roles: "+strings.Join(allowedRoles, ", ")))
	}
}

// ActorFromContext returns the authenticated staff member, or the system
// actor when the route is not behind AuthMiddleware.
func ActorFromContext(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.SystemActor()
}
