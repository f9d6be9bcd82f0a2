package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming_lounge_backend/internal/locks"
	"gaming_lounge_backend/internal/repositories"
	"gaming_lounge_backend/internal/services"
	"gaming_lounge_backend/pkg/utils"
)

func respondWith(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/bookings/b1/pause", nil)
	respondServiceError(c, err, "PauseBooking", "Failed to pause booking.")
	return w
}

func TestRespondServiceError_Statuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"conflict after retry", fmt.Errorf("%w: booking b1 was updated by someone else", repositories.ErrPersistenceConflict), http.StatusConflict, utils.ErrCodeConflict},
		{"lock timeout", locks.ErrLockTimeout, http.StatusConflict, utils.ErrCodeConflict},
		{"seat taken", fmt.Errorf("%w: PS5-1 is occupied", services.ErrSeatUnavailable), http.StatusConflict, utils.ErrCodeConflict},
		{"validation", fmt.Errorf("%w: quantity must be positive", services.ErrValidation), http.StatusBadRequest, utils.ErrCodeValidationFailed},
		{"missing booking", services.ErrBookingNotFound, http.StatusNotFound, utils.ErrCodeNotFound},
		{"bad transition", services.ErrInvalidTransition, http.StatusUnprocessableEntity, utils.ErrCodeUnprocessable},
		{"pin locked", services.ErrPinLocked, http.StatusLocked, utils.ErrCodeLocked},
		{"unmapped", errors.New("disk on fire"), http.StatusInternalServerError, utils.ErrCodeInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := respondWith(tt.err)
			assert.Equal(t, tt.want, w.Code)

			var body struct {
				Error utils.APIError `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestRespondServiceError_HidesUnmappedErrors(t *testing.T) {
	w := respondWith(errors.New("pq: password authentication failed"))
	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), "Failed to pause booking.")
}
