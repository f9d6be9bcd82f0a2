package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDIsEchoedIntoErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/fail", func(c *gin.Context) {
		RespondWithError(c, NewAPIError(http.StatusConflict, ErrCodeConflict, "seat taken", ""))
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	var body struct {
		Error APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "req-42", body.Error.RequestID)
	assert.Equal(t, ErrCodeConflict, body.Error.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36, "a fresh uuid is generated")
}

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("u-1", "desk", "Staff")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "Staff", claims.Role)
	assert.WithinDuration(t, time.Now().Add(AccessTokenTTL), claims.ExpiresAt.Time, time.Minute)

	old := string(secretKey())
	t.Cleanup(func() { SetJWTSecret(old) })
	SetJWTSecret("rotated")
	_, err = ValidateToken(token)
	assert.Error(t, err, "a token signed with the old key is rejected")
}

func TestGetenvHelpers(t *testing.T) {
	t.Setenv("LOUNGE_TEST_INT", "12")
	t.Setenv("LOUNGE_TEST_BAD_INT", "twelve")
	t.Setenv("LOUNGE_TEST_BOOL", "Yes")
	t.Setenv("LOUNGE_TEST_DUR", "45s")
	t.Setenv("LOUNGE_TEST_NEG_DUR", "-1s")

	assert.Equal(t, "fallback", Getenv("LOUNGE_TEST_UNSET", "fallback"))
	assert.Equal(t, 12, GetenvInt("LOUNGE_TEST_INT", 1))
	assert.Equal(t, 1, GetenvInt("LOUNGE_TEST_BAD_INT", 1))
	assert.True(t, GetenvBool("LOUNGE_TEST_BOOL", false))
	assert.True(t, GetenvBool("LOUNGE_TEST_UNSET", true))
	assert.Equal(t, 45*time.Second, GetenvDuration("LOUNGE_TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, GetenvDuration("LOUNGE_TEST_NEG_DUR", time.Minute))
}
