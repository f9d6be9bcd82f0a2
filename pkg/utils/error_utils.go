package utils

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIError is the body of every non-2xx response, wrapped as {"error": ...}.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

func NewAPIError(statusCode int, code string, message string, details string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Details:    details,
	}
}

// RespondWithError writes err, stamps it with the request id and aborts the
// handler chain.
func RespondWithError(c *gin.Context, err *APIError) {
	if err.RequestID == "" {
		err.RequestID = RequestIDFrom(c)
	}
	c.AbortWithStatusJSON(err.StatusCode, gin.H{"error": err})
}

// Error codes shared by handlers and middleware.
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeUnprocessable       = "UNPROCESSABLE"
	ErrCodeLocked              = "LOCKED"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"
)

func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// RespondValidationFailed answers 400 for a request body or query that does
// not bind.
func RespondValidationFailed(c *gin.Context, details string) {
	RespondWithError(c, NewAPIError(http.StatusBadRequest, ErrCodeValidationFailed, "Input validation failed", details))
}
