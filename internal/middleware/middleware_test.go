package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming_lounge_backend/internal/config"
	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/pkg/utils"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/whoami", append(handlers, func(c *gin.Context) {
		actor := ActorFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID, "role": actor.Role})
	})...)
	return engine
}

func get(engine *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	engine := newEngine(AuthMiddleware())
	token, err := utils.GenerateAccessToken("u-1", "desk", models.RoleStaff)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(engine, tt.header)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w := get(engine, "Bearer "+token)
	assert.JSONEq(t, `{"user_id":"u-1","role":"Staff"}`, w.Body.String())
}

func TestRoleAuthMiddleware(t *testing.T) {
	engine := newEngine(AuthMiddleware(), RoleAuthMiddleware(models.RoleAdmin))

	staff, err := utils.GenerateAccessToken("u-1", "desk", models.RoleStaff)
	require.NoError(t, err)
	admin, err := utils.GenerateAccessToken("u-2", "owner", "admin")
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, get(engine, "Bearer "+staff).Code)
	assert.Equal(t, http.StatusOK, get(engine, "Bearer "+admin).Code, "role names compare case-insensitively")

	// without AuthMiddleware there is no role to check
	bare := newEngine(RoleAuthMiddleware(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, get(bare, "").Code)
}

func TestActorFromContextFallsBackToSystem(t *testing.T) {
	w := get(newEngine(), "")
	require.Equal(t, http.StatusOK, w.Code)
	system := models.SystemActor()
	assert.JSONEq(t, `{"user_id":"`+system.UserID+`","role":"`+system.Role+`"}`, w.Body.String())
}

func TestRateLimitPassesThroughWithoutRedis(t *testing.T) {
	enabled := config.RateLimitConfig{Enabled: true, Prefix: "rl", Capacity: 1, RefillTokens: 1}
	for _, mw := range []gin.HandlerFunc{
		RateLimit(enabled, nil),
		RateLimit(config.RateLimitConfig{}, nil),
	} {
		engine := newEngine(mw)
		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, get(engine, "").Code)
		}
	}
}
