package utils

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtMu        sync.RWMutex
	jwtSecretKey = []byte("change-me-gaming-lounge-dev-secret")
)

const AccessTokenTTL = 12 * time.Hour

// SetJWTSecret replaces the signing key. Called once from main with JWT_SECRET.
func SetJWTSecret(secret string) {
	if secret == "" {
		return
	}
	jwtMu.Lock()
	jwtSecretKey = []byte(secret)
	jwtMu.Unlock()
}

func secretKey() []byte {
	jwtMu.RLock()
	defer jwtMu.RUnlock()
	return jwtSecretKey
}

// Claims defines the JWT claims structure
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAccessToken creates a new JWT access token for a staff member.
// Tokens are issued by the external auth service; this is used by tooling and tests.
func GenerateAccessToken(userID, username, role string) (string, error) {
	issuedAt := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    "gaming-lounge-backend",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secretKey())
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token string.
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secretKey(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
