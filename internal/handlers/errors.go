package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gaming_lounge_backend/internal/locks"
	"gaming_lounge_backend/internal/repositories"
	"gaming_lounge_backend/internal/services"
	"gaming_lounge_backend/pkg/utils"
)

const DefaultDateLayout = "2006-01-02"

type statusRule struct {
	targets []error
	status  int
	code    string
}

// statusRules maps engine errors to HTTP responses, first match wins.
var statusRules = []statusRule{
	{[]error{services.ErrValidation}, http.StatusBadRequest, utils.ErrCodeValidationFailed},
	{[]error{
		services.ErrBookingNotFound, services.ErrFoodItemNotFound, services.ErrGroupNotFound,
		services.ErrUserNotFound, repositories.ErrNotFound,
	}, http.StatusNotFound, utils.ErrCodeNotFound},
	{[]error{
		services.ErrSeatUnavailable, services.ErrInsufficientStock, services.ErrUsernameExists,
		repositories.ErrPersistenceConflict, repositories.ErrDuplicateKey, locks.ErrLockTimeout,
	}, http.StatusConflict, utils.ErrCodeConflict},
	{[]error{
		services.ErrUnknownSeat, services.ErrInvalidTransition, services.ErrNoPricingRuleFound,
		services.ErrOverpaymentNotAllowed, services.ErrUnsettledPaymentBlocksCompletion,
		services.ErrCategoryMismatch, services.ErrBookingTypeMismatch, services.ErrPinNotSet,
		services.ErrLastAdmin,
	}, http.StatusUnprocessableEntity, utils.ErrCodeUnprocessable},
	{[]error{services.ErrInvalidCredentials, services.ErrInvalidPin}, http.StatusUnauthorized, utils.ErrCodeUnauthorized},
	{[]error{services.ErrPinLocked}, http.StatusLocked, utils.ErrCodeLocked},
}

// respondServiceError logs err and answers with the status it maps to.
// Unmapped errors become a generic 500 carrying fallback as the message.
func respondServiceError(c *gin.Context, err error, op, fallback string) {
	for _, rule := range statusRules {
		for _, target := range rule.targets {
			if errors.Is(err, target) {
				utils.LogDebug(op+": rejected", map[string]interface{}{"error": err.Error(), "status": rule.status})
				utils.RespondWithError(c, utils.NewAPIError(rule.status, rule.code, err.Error(), target.Error()))
				return
			}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusServiceUnavailable, utils.ErrCodeInternalServerError, "Request timed out.", err.Error()))
		return
	}
	utils.LogError(err, op+": unexpected error", map[string]interface{}{"path": c.FullPath()})
	utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, fallback, "Internal error"))
}

func bindJSON(c *gin.Context, op string, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.LogDebug(op+": failed to bind JSON", map[string]interface{}{"error": err.Error()})
		utils.RespondValidationFailed(c, err.Error())
		return false
	}
	return true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}
	return page, pageSize
}

// parseDateParam reads an optional YYYY-MM-DD query value in loc. It answers
// the request itself when the value is malformed.
func parseDateParam(c *gin.Context, name string, loc *time.Location) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.ParseInLocation(DefaultDateLayout, raw, loc)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed,
			"Invalid "+name+" format. Use YYYY-MM-DD.", err.Error()))
		return nil, false
	}
	return &t, true
}
