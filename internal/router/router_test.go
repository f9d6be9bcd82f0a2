package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaming_lounge_backend/internal/locks"
	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/notify"
	"gaming_lounge_backend/internal/repositories"
	"gaming_lounge_backend/internal/router"
	"gaming_lounge_backend/internal/services"
	"gaming_lounge_backend/pkg/utils"
)

var evening = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type bookingBody struct {
	ID          string               `json:"id"`
	BookingCode string               `json:"booking_code"`
	Status      models.BookingStatus `json:"status"`
	FinalPrice  decimal.Decimal      `json:"final_price"`
}

type testServer struct {
	engine     *gin.Engine
	staffToken string
	adminToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repositories.NewMemoryStore()
	lounge := models.LoungeSettings{
		Location: time.UTC,
		Categories: []models.DeviceCategory{
			{Name: "PS5", MaxPersons: 4, Seats: []models.Seat{{Number: 1, Name: "PS5-1"}, {Number: 2, Name: "PS5-2"}}},
		},
	}
	rt := services.Runtime{
		Store:    store,
		Locker:   locks.NewLocalLocker(),
		Notifier: &notify.Recorder{},
		Audit:    notify.NewStoreAuditSink(store, time.Now),
		Settings: lounge,
		Now:      func() time.Time { return evening },
	}
	pricing := services.NewPricingResolver(rt)
	inventory := services.NewInventoryLedger(rt)
	bookings := services.NewBookingService(rt, pricing, inventory, nil)
	auth := services.NewAuthService(rt)

	ctx := context.Background()
	require.NoError(t, pricing.Seed(ctx, []models.PricingRule{{
		ID:              uuid.NewString(),
		Kind:            models.RuleKindRegular,
		Category:        "PS5",
		DurationMinutes: 60,
		PersonCount:     1,
		Price:           decimal.NewFromInt(200),
	}}, nil))
	require.NoError(t, auth.EnsureAdmin(ctx, "owner", "owner-secret"))

	engine := gin.New()
	router.Setup(engine, router.Dependencies{
		Bookings:  bookings,
		Groups:    services.NewGroupCoordinator(rt, bookings),
		Inventory: inventory,
		Pricing:   pricing,
		Settings:  services.NewSettingsService(rt),
		Reports:   services.NewReportService(rt, inventory),
		Auth:      auth,
		Quotes:    services.NewMemoryQuoteCache(),
		Lounge:    lounge,
	})

	staff, err := utils.GenerateAccessToken("u-desk", "desk", models.RoleStaff)
	require.NoError(t, err)
	adminTok, err := utils.GenerateAccessToken("u-admin", "owner", models.RoleAdmin)
	require.NoError(t, err)
	return &testServer{engine: engine, staffToken: staff, adminToken: adminTok}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (s *testServer) startBooking(t *testing.T, seat int) bookingBody {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/bookings", s.staffToken, gin.H{
		"category":      "PS5",
		"seat_number":   seat,
		"customer_name": "Asha",
		"duration":      "1 hour",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var b bookingBody
	decode(t, w, &b)
	return b
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	b := s.startBooking(t, 1)
	assert.True(t, strings.HasPrefix(b.BookingCode, "BK-"))
	assert.True(t, b.FinalPrice.Equal(decimal.NewFromInt(200)))

	w := s.do(t, http.MethodGet, "/api/v1/bookings/"+b.BookingCode, s.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var byCode bookingBody
	decode(t, w, &byCode)
	assert.Equal(t, b.ID, byCode.ID)

	w = s.do(t, http.MethodPost, "/api/v1/bookings/"+b.ID+"/pause", s.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var paused bookingBody
	decode(t, w, &paused)
	assert.Equal(t, models.BookingStatusPaused, paused.Status)

	w = s.do(t, http.MethodPost, "/api/v1/bookings/"+b.ID+"/pause", s.staffToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var apiErr apiError
	decode(t, w, &apiErr)
	assert.Equal(t, utils.ErrCodeUnprocessable, apiErr.Error.Code)

	w = s.do(t, http.MethodPost, "/api/v1/bookings/"+b.ID+"/cancel", s.staffToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/bookings/missing", s.staffToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingErrorsMapToStatus(t *testing.T) {
	s := newTestServer(t)
	s.startBooking(t, 1)

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"seat taken", gin.H{"category": "PS5", "seat_number": 1, "customer_name": "B", "duration": "1 hour"}, http.StatusConflict},
		{"unknown seat", gin.H{"category": "PS5", "seat_number": 9, "customer_name": "B", "duration": "1 hour"}, http.StatusUnprocessableEntity},
		{"missing customer", gin.H{"category": "PS5", "seat_number": 2, "duration": "1 hour"}, http.StatusBadRequest},
		{"no pricing rule", gin.H{"category": "PS5", "seat_number": 2, "customer_name": "B", "duration": "3 hours"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/bookings", s.staffToken, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestAuthGuards(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/bookings", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/staff", s.staffToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/staff", s.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "owner", "password": "owner-secret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp services.AuthResponse
	decode(t, w, &resp)
	require.NotEmpty(t, resp.AccessToken)

	w = s.do(t, http.MethodGet, "/api/v1/auth/me", resp.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	decode(t, w, &me)
	assert.Equal(t, "owner", me.Username)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "owner", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupPartialFailureIsMultiStatus(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/groups", s.staffToken, gin.H{"group_name": "Squad", "category": "PS5", "booking_type": "fixed_slot"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var group models.SessionGroup
	decode(t, w, &group)

	first := s.startBooking(t, 1)
	second := s.startBooking(t, 2)
	for _, id := range []string{first.ID, second.ID} {
		w = s.do(t, http.MethodPost, "/api/v1/groups/"+group.ID+"/members", s.staffToken, gin.H{"booking_id": id})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/v1/bookings/"+second.ID+"/pause", s.staffToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/groups/"+group.ID+"/pause", s.staffToken, nil)
	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())
	var result struct {
		Done   []string `json:"done"`
		Failed []struct {
			BookingID string `json:"booking_id"`
			Error     string `json:"error"`
		} `json:"failed"`
	}
	decode(t, w, &result)
	assert.Equal(t, []string{first.ID}, result.Done)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, second.ID, result.Failed[0].BookingID)

	w = s.do(t, http.MethodPost, "/api/v1/groups/"+group.ID+"/resume", s.staffToken, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
